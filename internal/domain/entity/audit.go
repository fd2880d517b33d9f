package entity

import "time"

// Acciones registradas en auditoría.
const (
	AuditCreated = "created"
	AuditUpdated = "updated"
	AuditDeleted = "deleted"
)

// AuditEntry registro de auditoría de una acción sobre un lote.
type AuditEntry struct {
	ID        int64
	SiteID    int64
	Table     string
	RecordID  int64
	Action    string
	Actor     string
	CreatedAt time.Time
}

// Site sede (partición de todas las entidades).
type Site struct {
	ID   int64
	Name string
}
