package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockKey identifica un agregado de la proyección: (tipo, nombre de producto, proveedor, sede).
// Se usa el nombre y no el id de la dimensión para que lotes históricos sigan agregando juntos.
type StockKey struct {
	Kind        LotKind
	ProductName string
	VendorID    int64
	SiteID      int64
}

// StockRow representa una fila de la proyección materializada de existencias.
type StockRow struct {
	ID          int64
	Kind        LotKind
	ProductName string
	VendorID    int64
	SiteID      int64
	Quantity    decimal.Decimal
	OriginLotID int64  // lote que creó la fila; 0 si el lote ya no existe
	VendorName  string // solo lectura
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Key devuelve la clave de agregación de la fila.
func (r *StockRow) Key() StockKey {
	return StockKey{Kind: r.Kind, ProductName: r.ProductName, VendorID: r.VendorID, SiteID: r.SiteID}
}
