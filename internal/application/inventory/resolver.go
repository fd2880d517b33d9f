package inventory

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/kardex-api/internal/domain"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

// DimensionResolver resuelve referencias (id o nombre) a dimensiones de la sede,
// creando la fila cuando el nombre no existe. No toma bloqueos: si dos altas concurrentes
// crean el mismo nombre, la segunda falla con domain.ErrConflict y la tx se revierte.
type DimensionResolver struct {
	repo repository.DimensionRepository
}

// NewDimensionResolver construye el resolvedor sobre el repositorio dado (normalmente atado a una tx).
func NewDimensionResolver(repo repository.DimensionRepository) *DimensionResolver {
	return &DimensionResolver{repo: repo}
}

// Resolve devuelve la dimensión referenciada; nil, nil si la referencia está vacía.
// Un id que no existe en la sede devuelve *domain.DimensionError.
func (r *DimensionResolver) Resolve(ctx context.Context, kind entity.DimensionKind, ref entity.DimensionRef, siteID int64) (*entity.Dimension, error) {
	if ref.IsEmpty() {
		return nil, nil
	}
	if id, ok := ref.ID(); ok {
		d, err := r.repo.Get(ctx, kind, siteID, id)
		if err != nil {
			return nil, fmt.Errorf("resolver %s: %w", kind, err)
		}
		if d == nil {
			return nil, &domain.DimensionError{Table: string(kind), ID: id}
		}
		return d, nil
	}

	name, _ := ref.Name()
	name = NormalizeName(name)
	if name == "" {
		return nil, nil
	}
	d, err := r.repo.FindByName(ctx, kind, siteID, name)
	if err != nil {
		return nil, fmt.Errorf("resolver %s: %w", kind, err)
	}
	if d != nil {
		return d, nil
	}
	d = &entity.Dimension{SiteID: siteID, Name: name}
	if err := r.repo.Create(ctx, kind, d); err != nil {
		return nil, fmt.Errorf("crear %s: %w", kind, err)
	}
	return d, nil
}

// NormalizeName recorta espacios y normaliza a NFC para que "Acetona" escrita con
// caracteres combinados coincida con la forma compuesta.
func NormalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
