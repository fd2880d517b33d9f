package entity

import (
	"strconv"
	"strings"
)

// DimensionKind tabla de búsqueda resoluble por nombre o id dentro de una sede.
type DimensionKind string

const (
	DimensionReagentName    DimensionKind = "reagent_names"
	DimensionSupplyName     DimensionKind = "supply_names"
	DimensionVendor         DimensionKind = "vendors"      // casa comercial
	DimensionLaboratory     DimensionKind = "laboratories" // laboratorio de insumos
	DimensionRiskClass      DimensionKind = "risk_classes"
	DimensionClassification DimensionKind = "classifications"
	DimensionPresentation   DimensionKind = "presentations"
	DimensionProvider       DimensionKind = "providers"
)

// Dimension fila de una tabla de búsqueda.
type Dimension struct {
	ID     int64
	SiteID int64
	Name   string
}

// DimensionRef referencia a una dimensión: por id o por nombre. El valor cero no referencia nada.
type DimensionRef struct {
	id   int64
	name string
}

// DimensionByID referencia una dimensión existente.
func DimensionByID(id int64) DimensionRef { return DimensionRef{id: id} }

// DimensionByName referencia una dimensión por nombre (se crea si no existe).
func DimensionByName(name string) DimensionRef { return DimensionRef{name: strings.TrimSpace(name)} }

// ParseDimensionRef interpreta el texto recibido: numérico → id, texto → nombre, vacío → sin referencia.
func ParseDimensionRef(raw string) DimensionRef {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DimensionRef{}
	}
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return DimensionByID(id)
	}
	return DimensionByName(raw)
}

// IsEmpty indica que no hay referencia.
func (r DimensionRef) IsEmpty() bool { return r.id == 0 && r.name == "" }

// ID devuelve el id y si la referencia es por id.
func (r DimensionRef) ID() (int64, bool) { return r.id, r.id != 0 }

// Name devuelve el nombre y si la referencia es por nombre.
func (r DimensionRef) Name() (string, bool) { return r.name, r.id == 0 && r.name != "" }
