package repository

import (
	"context"
	"time"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// LotRepository define el puerto de persistencia del libro de lotes (reactivos e insumos).
// Las lecturas devuelven ProductName y VendorName resueltos; un lote ausente devuelve nil, nil.
type LotRepository interface {
	Create(ctx context.Context, lot *entity.Lot) error
	GetByID(ctx context.Context, kind entity.LotKind, siteID, id int64) (*entity.Lot, error)
	// GetForUpdate bloquea la fila del lote (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, kind entity.LotKind, siteID, id int64) (*entity.Lot, error)
	List(ctx context.Context, kind entity.LotKind, siteID int64) ([]*entity.Lot, error)
	// ListTerminatedOn devuelve los lotes cuya fecha de terminación es day.
	ListTerminatedOn(ctx context.Context, kind entity.LotKind, siteID int64, day time.Time) ([]*entity.Lot, error)
	Update(ctx context.Context, lot *entity.Lot) error
	// MarkSwept registra que el barrido procesó el lote en day.
	MarkSwept(ctx context.Context, kind entity.LotKind, siteID, id int64, day time.Time) error
	Delete(ctx context.Context, kind entity.LotKind, siteID, id int64) error
}
