package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/kardex-api/internal/application/dto"
	"github.com/jhoicas/kardex-api/internal/application/inventory"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// StockHandler expone la proyección de existencias.
type StockHandler struct {
	uc *inventory.LotUseCase
}

// NewStockHandler construye el handler.
func NewStockHandler(uc *inventory.LotUseCase) *StockHandler {
	return &StockHandler{uc: uc}
}

// List godoc
// @Summary      Existencias de la sede
// @Tags         stock
// @Produce      json
// @Param        site_id  path   int     true   "Sede"
// @Param        kind     query  string  false  "reagents | supplies (vacío = ambos)"
// @Param        name     query  string  false  "Filtro por nombre de producto (contiene)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/sites/{site_id}/stock [get]
func (h *StockHandler) List(c *fiber.Ctx) error {
	siteID, ok := siteParam(c)
	if !ok {
		return badRequest(c, "INVALID_SITE", "site_id inválido")
	}
	var kind entity.LotKind
	if raw := c.Query("kind"); raw != "" {
		if kind, ok = parseKind(raw); !ok {
			return badRequest(c, "INVALID_KIND", "tipo de lote desconocido")
		}
	}
	rows, err := h.uc.ListStock(c.Context(), siteID, kind, c.Query("name"))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.StockRowDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.NewStockRowDTO(r))
	}
	return c.JSON(fiber.Map{
		"total": len(out),
		"items": out,
	})
}
