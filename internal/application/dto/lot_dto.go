package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// DimensionValue acepta en JSON un id numérico o un nombre libre.
type DimensionValue string

// UnmarshalJSON admite número, texto o null.
func (v *DimensionValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*v = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = DimensionValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*v = DimensionValue(n.String())
	return nil
}

// Ref convierte el valor en referencia de dimensión (id o nombre).
func (v DimensionValue) Ref() entity.DimensionRef {
	return entity.ParseDimensionRef(string(v))
}

// LotRequest body para registrar un lote (POST /api/sites/:site_id/lots/:kind).
// Vendor es casa comercial para reactivos y laboratorio para insumos.
type LotRequest struct {
	Product            DimensionValue   `json:"product" validate:"required"`
	Vendor             DimensionValue   `json:"vendor"`
	Classification     DimensionValue   `json:"classification"`
	Presentation       DimensionValue   `json:"presentation"`
	Provider           DimensionValue   `json:"provider"`
	Category           string           `json:"category" validate:"required,oneof=lab sas"`
	Received           *decimal.Decimal `json:"received" validate:"required"`
	Issued             *decimal.Decimal `json:"issued,omitempty"`
	ReceivedAt         string           `json:"received_at" validate:"required,datetime=2006-01-02"`
	ExpiryAt           string           `json:"expiry_at" validate:"required,datetime=2006-01-02"`
	TerminatedAt       string           `json:"terminated_at,omitempty" validate:"omitempty,datetime=2006-01-02"`
	IssuedAt           string           `json:"issued_at,omitempty" validate:"omitempty,datetime=2006-01-02"`
	StartedAt          string           `json:"started_at,omitempty" validate:"omitempty,datetime=2006-01-02"`
	LotNumber          string           `json:"lot_number,omitempty" validate:"max=120"`
	InvimaRegistration string           `json:"invima_registration,omitempty" validate:"max=120"`
	Attributes         json.RawMessage  `json:"attributes,omitempty"`
	CreatedBy          string           `json:"created_by,omitempty"`
}

// LotPatchRequest body para corregir un lote (PUT). Campos nulos conservan el valor anterior;
// una fecha de terminación vacía la elimina.
type LotPatchRequest struct {
	Product            *DimensionValue  `json:"product,omitempty"`
	Vendor             *DimensionValue  `json:"vendor,omitempty"`
	Classification     *DimensionValue  `json:"classification,omitempty"`
	Presentation       *DimensionValue  `json:"presentation,omitempty"`
	Provider           *DimensionValue  `json:"provider,omitempty"`
	Category           *string          `json:"category,omitempty" validate:"omitempty,oneof=lab sas"`
	Received           *decimal.Decimal `json:"received,omitempty"`
	Issued             *decimal.Decimal `json:"issued,omitempty"`
	ReceivedAt         *string          `json:"received_at,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ExpiryAt           *string          `json:"expiry_at,omitempty" validate:"omitempty,datetime=2006-01-02"`
	TerminatedAt       *string          `json:"terminated_at,omitempty"`
	IssuedAt           *string          `json:"issued_at,omitempty"`
	StartedAt          *string          `json:"started_at,omitempty"`
	LotNumber          *string          `json:"lot_number,omitempty" validate:"omitempty,max=120"`
	InvimaRegistration *string          `json:"invima_registration,omitempty" validate:"omitempty,max=120"`
	Attributes         json.RawMessage  `json:"attributes,omitempty"`
	UpdatedBy          string           `json:"updated_by,omitempty"`
}

// LotResponse representación de un lote con su cantidad disponible derivada.
type LotResponse struct {
	ID                 int64           `json:"id"`
	Kind               entity.LotKind  `json:"kind"`
	SiteID             int64           `json:"site_id"`
	ProductID          int64           `json:"product_id"`
	ProductName        string          `json:"product_name"`
	VendorID           int64           `json:"vendor_id,omitempty"`
	VendorName         string          `json:"vendor_name,omitempty"`
	ClassificationID   int64           `json:"classification_id,omitempty"`
	PresentationID     int64           `json:"presentation_id,omitempty"`
	ProviderID         int64           `json:"provider_id,omitempty"`
	Category           string          `json:"category"`
	Received           decimal.Decimal `json:"received"`
	Issued             decimal.Decimal `json:"issued"`
	Available          decimal.Decimal `json:"available"`
	ReceivedAt         string          `json:"received_at"`
	ExpiryAt           string          `json:"expiry_at"`
	TerminatedAt       string          `json:"terminated_at,omitempty"`
	IssuedAt           string          `json:"issued_at,omitempty"`
	StartedAt          string          `json:"started_at,omitempty"`
	LotNumber          string          `json:"lot_number,omitempty"`
	InvimaRegistration string          `json:"invima_registration,omitempty"`
	Attributes         json.RawMessage `json:"attributes,omitempty"`
}

// NewLotResponse construye la respuesta desde la entidad.
func NewLotResponse(l *entity.Lot) LotResponse {
	return LotResponse{
		ID:                 l.ID,
		Kind:               l.Kind,
		SiteID:             l.SiteID,
		ProductID:          l.ProductID,
		ProductName:        l.ProductName,
		VendorID:           l.VendorID,
		VendorName:         l.VendorName,
		ClassificationID:   l.ClassificationID,
		PresentationID:     l.PresentationID,
		ProviderID:         l.ProviderID,
		Category:           l.Category,
		Received:           l.Received,
		Issued:             l.Issued,
		Available:          l.Available(),
		ReceivedAt:         formatDate(&l.ReceivedAt),
		ExpiryAt:           formatDate(&l.ExpiryAt),
		TerminatedAt:       formatDate(l.TerminatedAt),
		IssuedAt:           formatDate(l.IssuedAt),
		StartedAt:          formatDate(l.StartedAt),
		LotNumber:          l.LotNumber,
		InvimaRegistration: l.InvimaRegistration,
		Attributes:         l.Attributes,
	}
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
