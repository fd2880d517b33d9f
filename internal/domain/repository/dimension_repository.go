package repository

import (
	"context"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// DimensionRepository acceso a las tablas de búsqueda por sede.
type DimensionRepository interface {
	// Get devuelve la dimensión por id dentro de la sede; nil si no existe.
	Get(ctx context.Context, kind entity.DimensionKind, siteID, id int64) (*entity.Dimension, error)
	// FindByName búsqueda exacta por nombre; nil si no existe.
	FindByName(ctx context.Context, kind entity.DimensionKind, siteID int64, name string) (*entity.Dimension, error)
	Create(ctx context.Context, kind entity.DimensionKind, d *entity.Dimension) error
}
