package dto

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// StockRowDTO fila de la proyección de existencias.
type StockRowDTO struct {
	ID          int64           `json:"id"`
	Kind        entity.LotKind  `json:"kind"`
	ProductName string          `json:"product_name"`
	VendorID    int64           `json:"vendor_id,omitempty"`
	VendorName  string          `json:"vendor_name,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	OriginLotID int64           `json:"origin_lot_id,omitempty"`
}

// NewStockRowDTO construye el DTO desde la entidad.
func NewStockRowDTO(r entity.StockRow) StockRowDTO {
	return StockRowDTO{
		ID:          r.ID,
		Kind:        r.Kind,
		ProductName: r.ProductName,
		VendorID:    r.VendorID,
		VendorName:  r.VendorName,
		Quantity:    r.Quantity,
		OriginLotID: r.OriginLotID,
	}
}

// SweepReport resumen de un barrido de terminación por sede.
type SweepReport struct {
	SiteID      int64           `json:"site_id"`
	Lots        int             `json:"lots"`
	Failed      int             `json:"failed"`
	Depleted    decimal.Decimal `json:"depleted"`
	Unsatisfied decimal.Decimal `json:"unsatisfied"`
	RowsDeleted int             `json:"rows_deleted"`
}

// GenerationReport resumen de una generación de notificaciones por sede.
type GenerationReport struct {
	SiteID     int64 `json:"site_id"`
	Created    int   `json:"created"`
	Duplicates int   `json:"duplicates"`
	Sent       int   `json:"sent"`
}
