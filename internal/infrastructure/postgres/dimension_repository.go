package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/kardex-api/internal/domain"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

var _ repository.DimensionRepository = (*DimensionRepo)(nil)

// dimensionTables tablas de búsqueda admitidas; el nombre de la tabla coincide con el tipo.
var dimensionTables = map[entity.DimensionKind]bool{
	entity.DimensionReagentName:    true,
	entity.DimensionSupplyName:     true,
	entity.DimensionVendor:         true,
	entity.DimensionLaboratory:     true,
	entity.DimensionRiskClass:      true,
	entity.DimensionClassification: true,
	entity.DimensionPresentation:   true,
	entity.DimensionProvider:       true,
}

// DimensionRepo implementación de DimensionRepository sobre PostgreSQL (usable con pool o tx).
type DimensionRepo struct {
	q Querier
}

// NewDimensionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDimensionRepository(q Querier) *DimensionRepo {
	return &DimensionRepo{q: q}
}

func tableFor(kind entity.DimensionKind) (string, error) {
	if !dimensionTables[kind] {
		return "", fmt.Errorf("dimensión desconocida: %q", kind)
	}
	return string(kind), nil
}

func (r *DimensionRepo) findOne(ctx context.Context, kind entity.DimensionKind, where string, args ...any) (*entity.Dimension, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT id, site_id, name FROM %s WHERE %s ORDER BY id LIMIT 1`, table, where)
	var d entity.Dimension
	if err := r.q.QueryRow(ctx, query, args...).Scan(&d.ID, &d.SiteID, &d.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", table, err)
	}
	return &d, nil
}

// Get devuelve la dimensión por id dentro de la sede; nil si no existe.
func (r *DimensionRepo) Get(ctx context.Context, kind entity.DimensionKind, siteID, id int64) (*entity.Dimension, error) {
	return r.findOne(ctx, kind, `site_id = $1 AND id = $2`, siteID, id)
}

// FindByName búsqueda exacta por nombre dentro de la sede; nil si no existe.
func (r *DimensionRepo) FindByName(ctx context.Context, kind entity.DimensionKind, siteID int64, name string) (*entity.Dimension, error) {
	return r.findOne(ctx, kind, `site_id = $1 AND name = $2`, siteID, name)
}

// Create inserta la dimensión y completa su ID.
func (r *DimensionRepo) Create(ctx context.Context, kind entity.DimensionKind, d *entity.Dimension) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT INTO %s (site_id, name) VALUES ($1, $2) RETURNING id`, table)
	if err := r.q.QueryRow(ctx, query, d.SiteID, d.Name).Scan(&d.ID); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create %s: %w", table, domain.ErrConflict)
		}
		return fmt.Errorf("create %s: %w", table, err)
	}
	return nil
}
