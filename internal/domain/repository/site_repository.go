package repository

import (
	"context"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// SiteRepository lista las sedes que recorren los procesos periódicos.
type SiteRepository interface {
	ListIDs(ctx context.Context) ([]int64, error)
}

// AuditRepository registra acciones sobre los lotes.
type AuditRepository interface {
	Record(ctx context.Context, entry *entity.AuditEntry) error
}
