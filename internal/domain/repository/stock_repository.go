package repository

import (
	"context"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// StockRepository define el puerto para la proyección de existencias.
// Usado dentro de transacciones para garantizar consistencia con el libro de lotes.
type StockRepository interface {
	Insert(ctx context.Context, row *entity.StockRow) error
	Update(ctx context.Context, row *entity.StockRow) error
	Delete(ctx context.Context, siteID, id int64) error
	// GetByOriginForUpdate bloquea la fila creada junto con el lote; nil si no existe.
	GetByOriginForUpdate(ctx context.Context, kind entity.LotKind, siteID, lotID int64) (*entity.StockRow, error)
	// LockByKey bloquea (SELECT FOR UPDATE) las filas de la firma en orden de id ascendente.
	LockByKey(ctx context.Context, key entity.StockKey) ([]entity.StockRow, error)
	// List filtra por tipo (vacío = todos) y por nombre de producto (contiene, sin distinguir mayúsculas).
	List(ctx context.Context, siteID int64, kind entity.LotKind, name string) ([]entity.StockRow, error)
}
