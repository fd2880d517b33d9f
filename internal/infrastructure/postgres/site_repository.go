package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

var (
	_ repository.SiteRepository  = (*SiteRepo)(nil)
	_ repository.AuditRepository = (*AuditRepo)(nil)
)

// SiteRepo lista las sedes registradas.
type SiteRepo struct {
	q Querier
}

// NewSiteRepository construye el adaptador de sedes.
func NewSiteRepository(q Querier) *SiteRepo {
	return &SiteRepo{q: q}
}

// ListIDs ids de todas las sedes en orden ascendente.
func (r *SiteRepo) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.q.Query(ctx, `SELECT id FROM sites ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scan sites: %w", err)
	}
	return ids, nil
}

// AuditRepo escribe el registro de auditoría.
type AuditRepo struct {
	q Querier
}

// NewAuditRepository construye el adaptador de auditoría. Pasar pool o tx (Querier).
func NewAuditRepository(q Querier) *AuditRepo {
	return &AuditRepo{q: q}
}

// Record inserta la entrada y completa ID y fecha.
func (r *AuditRepo) Record(ctx context.Context, e *entity.AuditEntry) error {
	query := `
		INSERT INTO audit_log (site_id, table_name, record_id, action, actor)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	if err := r.q.QueryRow(ctx, query, e.SiteID, e.Table, e.RecordID, e.Action, e.Actor).Scan(&e.ID, &e.CreatedAt); err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}
