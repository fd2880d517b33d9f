package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/kardex-api/internal/application/dto"
	"github.com/jhoicas/kardex-api/internal/domain"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// writeError traduce errores de dominio a respuestas HTTP.
func writeError(c *fiber.Ctx, err error) error {
	var verr *domain.ValidationError
	var derr *domain.DimensionError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: verr.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado en la sede"})
	case errors.As(err, &derr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "DIMENSION_NOT_FOUND", Message: derr.Error()})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: "conflicto concurrente, reintente"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}

func badRequest(c *fiber.Ctx, code, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: msg})
}

// siteParam lee :site_id; la sede viaja explícita en cada ruta.
func siteParam(c *fiber.Ctx) (int64, bool) {
	return positiveParam(c, "site_id")
}

func idParam(c *fiber.Ctx) (int64, bool) {
	return positiveParam(c, "id")
}

func positiveParam(c *fiber.Ctx, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// kindParam traduce el segmento de ruta (reagents|supplies) al tipo de lote.
func kindParam(c *fiber.Ctx) (entity.LotKind, bool) {
	return parseKind(c.Params("kind"))
}

func parseKind(raw string) (entity.LotKind, bool) {
	switch raw {
	case "reagents", "reagent", "kardex":
		return entity.LotKindReagent, true
	case "supplies", "supply", "insumos":
		return entity.LotKindSupply, true
	}
	return "", false
}
