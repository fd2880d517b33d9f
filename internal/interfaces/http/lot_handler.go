package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/kardex-api/internal/application/dto"
	"github.com/jhoicas/kardex-api/internal/application/inventory"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// LotHandler maneja el libro de lotes de reactivos e insumos.
type LotHandler struct {
	uc *inventory.LotUseCase
}

// NewLotHandler construye el handler.
func NewLotHandler(uc *inventory.LotUseCase) *LotHandler {
	return &LotHandler{uc: uc}
}

// Create godoc
// @Summary      Registrar lote
// @Tags         lots
// @Accept       json
// @Produce      json
// @Param        site_id  path  int             true  "Sede"
// @Param        kind     path  string          true  "reagents | supplies"
// @Param        body     body  dto.LotRequest  true  "Datos del lote; las dimensiones aceptan id o nombre"
// @Success      201  {object}  dto.LotResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/sites/{site_id}/lots/{kind} [post]
func (h *LotHandler) Create(c *fiber.Ctx) error {
	p, perr := parseLotPath(c, false)
	if perr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(perr)
	}
	var in dto.LotRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	lot, err := h.uc.CreateLot(c.Context(), p.siteID, p.kind, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewLotResponse(lot))
}

// List godoc
// @Summary      Listar lotes de la sede
// @Tags         lots
// @Produce      json
// @Param        site_id  path  int     true  "Sede"
// @Param        kind     path  string  true  "reagents | supplies"
// @Success      200  {array}  dto.LotResponse
// @Router       /api/sites/{site_id}/lots/{kind} [get]
func (h *LotHandler) List(c *fiber.Ctx) error {
	p, perr := parseLotPath(c, false)
	if perr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(perr)
	}
	lots, err := h.uc.ListLots(c.Context(), p.siteID, p.kind)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.LotResponse, 0, len(lots))
	for _, l := range lots {
		out = append(out, dto.NewLotResponse(l))
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener lote
// @Tags         lots
// @Produce      json
// @Param        site_id  path  int     true  "Sede"
// @Param        kind     path  string  true  "reagents | supplies"
// @Param        id       path  int     true  "ID del lote"
// @Success      200  {object}  dto.LotResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sites/{site_id}/lots/{kind}/{id} [get]
func (h *LotHandler) GetByID(c *fiber.Ctx) error {
	p, perr := parseLotPath(c, true)
	if perr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(perr)
	}
	lot, err := h.uc.GetLot(c.Context(), p.siteID, p.kind, p.id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewLotResponse(lot))
}

// Update godoc
// @Summary      Corregir lote
// @Description  Reconcilia la fila de existencias de origen con la nueva cantidad disponible.
// @Tags         lots
// @Accept       json
// @Produce      json
// @Param        site_id  path  int                  true  "Sede"
// @Param        kind     path  string               true  "reagents | supplies"
// @Param        id       path  int                  true  "ID del lote"
// @Param        body     body  dto.LotPatchRequest  true  "Campos a modificar"
// @Success      200  {object}  dto.LotResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sites/{site_id}/lots/{kind}/{id} [put]
func (h *LotHandler) Update(c *fiber.Ctx) error {
	p, perr := parseLotPath(c, true)
	if perr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(perr)
	}
	var in dto.LotPatchRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	lot, err := h.uc.UpdateLot(c.Context(), p.siteID, p.kind, p.id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewLotResponse(lot))
}

// Delete godoc
// @Summary      Eliminar lote
// @Description  Retira de las existencias la cantidad disponible del lote (FIFO) y elimina el lote.
// @Tags         lots
// @Param        site_id  path    int     true   "Sede"
// @Param        kind     path    string  true   "reagents | supplies"
// @Param        id       path    int     true   "ID del lote"
// @Param        X-Actor  header  string  false  "Usuario que elimina (auditoría)"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sites/{site_id}/lots/{kind}/{id} [delete]
func (h *LotHandler) Delete(c *fiber.Ctx) error {
	p, perr := parseLotPath(c, true)
	if perr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(perr)
	}
	if err := h.uc.DeleteLot(c.Context(), p.siteID, p.kind, p.id, c.Get("X-Actor")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type lotPath struct {
	siteID int64
	kind   entity.LotKind
	id     int64
}

// parseLotPath valida sede, tipo y, si withID, el id del lote.
func parseLotPath(c *fiber.Ctx, withID bool) (lotPath, *dto.ErrorResponse) {
	var p lotPath
	var ok bool
	if p.siteID, ok = siteParam(c); !ok {
		return p, &dto.ErrorResponse{Code: "INVALID_SITE", Message: "site_id inválido"}
	}
	if p.kind, ok = kindParam(c); !ok {
		return p, &dto.ErrorResponse{Code: "INVALID_KIND", Message: "tipo de lote desconocido"}
	}
	if withID {
		if p.id, ok = idParam(c); !ok {
			return p, &dto.ErrorResponse{Code: "MISSING_ID", Message: "id inválido"}
		}
	}
	return p, nil
}
