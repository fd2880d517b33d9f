package dto

import (
	"time"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// NotificationDTO notificación expuesta por HTTP.
type NotificationDTO struct {
	ID           int64                   `json:"id"`
	Kind         entity.NotificationKind `json:"kind"`
	ReagentLotID int64                   `json:"reagent_lot_id,omitempty"`
	SupplyLotID  int64                   `json:"supply_lot_id,omitempty"`
	EventDate    string                  `json:"event_date"`
	Message      string                  `json:"message"`
	Read         bool                    `json:"read"`
	Sent         bool                    `json:"sent"`
}

// NewNotificationDTO construye el DTO desde la entidad.
func NewNotificationDTO(n entity.Notification) NotificationDTO {
	return NotificationDTO{
		ID:           n.ID,
		Kind:         n.Kind,
		ReagentLotID: n.ReagentLotID,
		SupplyLotID:  n.SupplyLotID,
		EventDate:    n.EventDate.Format(time.DateOnly),
		Message:      n.Message,
		Read:         n.Read,
		Sent:         n.Sent,
	}
}
