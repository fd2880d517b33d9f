package entity

import "time"

// NotificationKind tipo de notificación.
type NotificationKind string

const (
	NotificationReagentExpiring NotificationKind = "reagent_expiring"
	NotificationSupplyExpiring  NotificationKind = "supply_expiring"
	NotificationReagentIssued   NotificationKind = "reagent_issued"
	NotificationSupplyIssued    NotificationKind = "supply_issued"
)

// Notification aviso generado para una sede. ReagentLotID y SupplyLotID son excluyentes;
// 0 significa ausente para que la restricción única opere sobre columnas no nulas.
type Notification struct {
	ID           int64
	SiteID       int64
	Kind         NotificationKind
	ReagentLotID int64
	SupplyLotID  int64
	EventDate    time.Time
	Message      string
	Read         bool
	Sent         bool
	CreatedAt    time.Time
}

// Subscriber correo suscrito a las notificaciones de una sede.
type Subscriber struct {
	ID     int64
	SiteID int64
	Email  string
}
