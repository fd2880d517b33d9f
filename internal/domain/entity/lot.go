package entity

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// LotKind distingue las dos variantes del libro de lotes: reactivos (kardex) e insumos.
type LotKind string

const (
	LotKindReagent LotKind = "reagent"
	LotKindSupply  LotKind = "supply"
)

// Valid indica si el tipo de lote es conocido.
func (k LotKind) Valid() bool {
	return k == LotKindReagent || k == LotKindSupply
}

// Categorías de lote (campo lab_sas).
const (
	LotCategoryLab = "lab"
	LotCategorySAS = "sas"
)

// Lot representa un lote recibido de un reactivo o insumo.
// La cantidad disponible no se persiste: se deriva de Received - Issued.
type Lot struct {
	ID               int64
	Kind             LotKind
	SiteID           int64
	ProductID        int64  // dimensión nombre del producto
	ProductName      string // nombre resuelto de ProductID (solo lectura)
	VendorID         int64  // casa comercial (reactivos) o laboratorio (insumos); 0 = sin dimensión
	VendorName       string // solo lectura
	ClassificationID int64  // clasificación de riesgo; 0 = sin dimensión
	PresentationID   int64
	ProviderID       int64
	Category         string // lab | sas

	Received decimal.Decimal // cantidad recibida
	Issued   decimal.Decimal // salidas acumuladas

	ReceivedAt   time.Time
	ExpiryAt     time.Time
	TerminatedAt *time.Time // fecha de terminación operativa, independiente del vencimiento
	IssuedAt     *time.Time
	StartedAt    *time.Time

	LotNumber          string
	InvimaRegistration string
	Attributes         json.RawMessage // campos regulatorios y de costo, opacos para el motor

	SweptOn   *time.Time // último día en que el barrido de terminación procesó el lote
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Available devuelve max(Received - Issued, 0).
func (l *Lot) Available() decimal.Decimal {
	return Available(l.Received, l.Issued)
}

// Signature devuelve la clave de proyección del lote. Requiere ProductName resuelto.
func (l *Lot) Signature() StockKey {
	return StockKey{Kind: l.Kind, ProductName: l.ProductName, VendorID: l.VendorID, SiteID: l.SiteID}
}

// Available calcula la cantidad disponible acotada en cero.
func Available(received, issued decimal.Decimal) decimal.Decimal {
	return decimal.Max(received.Sub(issued), decimal.Zero)
}
