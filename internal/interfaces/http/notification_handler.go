package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/kardex-api/internal/application/dto"
	"github.com/jhoicas/kardex-api/internal/application/notification"
)

// NotificationHandler bandeja de notificaciones de la sede.
type NotificationHandler struct {
	uc *notification.InboxUseCase
}

// NewNotificationHandler construye el handler.
func NewNotificationHandler(uc *notification.InboxUseCase) *NotificationHandler {
	return &NotificationHandler{uc: uc}
}

// ListUnread godoc
// @Summary      Notificaciones no leídas
// @Tags         notifications
// @Produce      json
// @Param        site_id  path  int  true  "Sede"
// @Success      200  {array}  dto.NotificationDTO
// @Router       /api/sites/{site_id}/notifications [get]
func (h *NotificationHandler) ListUnread(c *fiber.Ctx) error {
	siteID, ok := siteParam(c)
	if !ok {
		return badRequest(c, "INVALID_SITE", "site_id inválido")
	}
	list, err := h.uc.ListUnread(c.Context(), siteID)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.NotificationDTO, 0, len(list))
	for _, n := range list {
		out = append(out, dto.NewNotificationDTO(n))
	}
	return c.JSON(out)
}

// MarkRead godoc
// @Summary      Marcar notificación como leída
// @Tags         notifications
// @Param        site_id  path  int  true  "Sede"
// @Param        id       path  int  true  "ID de la notificación"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sites/{site_id}/notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	siteID, ok := siteParam(c)
	if !ok {
		return badRequest(c, "INVALID_SITE", "site_id inválido")
	}
	id, ok := idParam(c)
	if !ok {
		return badRequest(c, "MISSING_ID", "id inválido")
	}
	if err := h.uc.MarkRead(c.Context(), siteID, id); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
