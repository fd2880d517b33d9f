package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/kardex-api/internal/application/inventory"
	"github.com/jhoicas/kardex-api/internal/application/notification"
)

// JobHandler dispara manualmente los procesos periódicos para una sede.
type JobHandler struct {
	sweep     *inventory.ExpirySweepUseCase
	generator *notification.GeneratorUseCase
}

// NewJobHandler construye el handler.
func NewJobHandler(sweep *inventory.ExpirySweepUseCase, generator *notification.GeneratorUseCase) *JobHandler {
	return &JobHandler{sweep: sweep, generator: generator}
}

// ExpirySweep godoc
// @Summary      Ejecutar barrido de lotes terminados hoy
// @Tags         jobs
// @Produce      json
// @Param        site_id  path  int  true  "Sede"
// @Success      200  {object}  dto.SweepReport
// @Router       /api/sites/{site_id}/jobs/expiry-sweep [post]
func (h *JobHandler) ExpirySweep(c *fiber.Ctx) error {
	siteID, ok := siteParam(c)
	if !ok {
		return badRequest(c, "INVALID_SITE", "site_id inválido")
	}
	report, err := h.sweep.RunExpirySweep(c.Context(), siteID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(report)
}

// Notifications godoc
// @Summary      Generar y despachar notificaciones
// @Tags         jobs
// @Produce      json
// @Param        site_id  path  int  true  "Sede"
// @Success      200  {object}  dto.GenerationReport
// @Router       /api/sites/{site_id}/jobs/notifications [post]
func (h *JobHandler) Notifications(c *fiber.Ctx) error {
	siteID, ok := siteParam(c)
	if !ok {
		return badRequest(c, "INVALID_SITE", "site_id inválido")
	}
	report, err := h.generator.RunNotificationGeneration(c.Context(), siteID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(report)
}
