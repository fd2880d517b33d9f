package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/kardex-api/internal/application/dto"
	"github.com/jhoicas/kardex-api/internal/domain"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/inventory"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
	"github.com/jhoicas/kardex-api/pkg/logger"
)

// LotUseCase registra, corrige y elimina lotes manteniendo la proyección de existencias
// consistente con el libro dentro de una sola transacción por operación.
type LotUseCase struct {
	txRunner TxRunner
	lots     repository.LotRepository
	stock    repository.StockRepository
	calendar inventory.Calendar
	log      *logger.Logger
}

// NewLotUseCase construye el caso de uso.
func NewLotUseCase(
	txRunner TxRunner,
	lots repository.LotRepository,
	stock repository.StockRepository,
	calendar inventory.Calendar,
	log *logger.Logger,
) *LotUseCase {
	return &LotUseCase{
		txRunner: txRunner,
		lots:     lots,
		stock:    stock,
		calendar: calendar,
		log:      log,
	}
}

// lotDimensions tablas de búsqueda usadas por cada tipo de lote.
type lotDimensions struct {
	product        entity.DimensionKind
	vendor         entity.DimensionKind
	classification entity.DimensionKind
	vendorRequired bool
}

func dimensionsFor(kind entity.LotKind) lotDimensions {
	if kind == entity.LotKindSupply {
		return lotDimensions{
			product:        entity.DimensionSupplyName,
			vendor:         entity.DimensionLaboratory,
			classification: entity.DimensionClassification,
		}
	}
	return lotDimensions{
		product:        entity.DimensionReagentName,
		vendor:         entity.DimensionVendor,
		classification: entity.DimensionRiskClass,
		vendorRequired: true,
	}
}

// Las cantidades se persisten como NUMERIC(14,3).
const quantityScale = 3

var maxQuantity = decimal.New(1, 14-quantityScale)

// checkQuantity rechaza cantidades negativas o que la columna no puede guardar sin redondear.
func checkQuantity(field string, q decimal.Decimal) error {
	switch {
	case q.IsNegative():
		return domain.Invalid(field, "no puede ser negativa")
	case !q.Round(quantityScale).Equal(q):
		return domain.Invalid(field, "admite como máximo 3 decimales")
	case q.GreaterThanOrEqual(maxQuantity):
		return domain.Invalid(field, "excede el máximo permitido")
	}
	return nil
}

// LotTable nombre de la tabla del libro para el tipo de lote (auditoría).
func LotTable(kind entity.LotKind) string {
	if kind == entity.LotKindSupply {
		return "supply_lots"
	}
	return "reagent_lots"
}

// CreateLot valida la entrada, resuelve dimensiones, persiste el lote y acredita su
// disponible en la proyección. La salida (issued) no se admite al registrar.
func (uc *LotUseCase) CreateLot(ctx context.Context, siteID int64, kind entity.LotKind, in dto.LotRequest) (*entity.Lot, error) {
	if !kind.Valid() {
		return nil, domain.Invalid("kind", "tipo de lote desconocido")
	}
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	if err := checkQuantity("received", *in.Received); err != nil {
		return nil, err
	}
	if in.Issued != nil && !in.Issued.IsZero() {
		return nil, domain.Invalid("issued", "la salida solo se registra al actualizar el lote")
	}
	dims := dimensionsFor(kind)
	if dims.vendorRequired && in.Vendor.Ref().IsEmpty() {
		return nil, domain.Invalid("vendor", "campo obligatorio")
	}

	lot := &entity.Lot{
		Kind:               kind,
		SiteID:             siteID,
		Category:           in.Category,
		Received:           *in.Received,
		Issued:             decimal.Zero,
		LotNumber:          in.LotNumber,
		InvimaRegistration: in.InvimaRegistration,
		Attributes:         in.Attributes,
		CreatedBy:          in.CreatedBy,
	}
	var err error
	if lot.ReceivedAt, err = uc.requiredDate("received_at", in.ReceivedAt); err != nil {
		return nil, err
	}
	if lot.ExpiryAt, err = uc.requiredDate("expiry_at", in.ExpiryAt); err != nil {
		return nil, err
	}
	if lot.TerminatedAt, err = uc.optionalDate("terminated_at", in.TerminatedAt); err != nil {
		return nil, err
	}
	if lot.IssuedAt, err = uc.optionalDate("issued_at", in.IssuedAt); err != nil {
		return nil, err
	}
	if lot.StartedAt, err = uc.optionalDate("started_at", in.StartedAt); err != nil {
		return nil, err
	}

	err = uc.txRunner.Run(ctx, func(repos TxRepos) error {
		resolver := NewDimensionResolver(repos.Dimensions)
		product, err := resolver.Resolve(ctx, dims.product, in.Product.Ref(), siteID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.Invalid("product", "campo obligatorio")
		}
		lot.ProductID, lot.ProductName = product.ID, product.Name

		vendor, err := resolver.Resolve(ctx, dims.vendor, in.Vendor.Ref(), siteID)
		if err != nil {
			return err
		}
		if vendor != nil {
			lot.VendorID, lot.VendorName = vendor.ID, vendor.Name
		}
		if lot.ClassificationID, err = resolveID(ctx, resolver, dims.classification, in.Classification.Ref(), siteID); err != nil {
			return err
		}
		if lot.PresentationID, err = resolveID(ctx, resolver, entity.DimensionPresentation, in.Presentation.Ref(), siteID); err != nil {
			return err
		}
		if lot.ProviderID, err = resolveID(ctx, resolver, entity.DimensionProvider, in.Provider.Ref(), siteID); err != nil {
			return err
		}

		if err := repos.Lots.Create(ctx, lot); err != nil {
			return err
		}
		if available := lot.Available(); available.IsPositive() {
			row := &entity.StockRow{
				Kind:        kind,
				ProductName: lot.ProductName,
				VendorID:    lot.VendorID,
				SiteID:      siteID,
				Quantity:    available,
				OriginLotID: lot.ID,
			}
			if err := repos.Stock.Insert(ctx, row); err != nil {
				return err
			}
		}
		return repos.Audit.Record(ctx, &entity.AuditEntry{
			SiteID:   siteID,
			Table:    LotTable(kind),
			RecordID: lot.ID,
			Action:   entity.AuditCreated,
			Actor:    in.CreatedBy,
		})
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Int64("site_id", siteID).
		Int64("lot_id", lot.ID).
		Str("kind", string(kind)).
		Str("received", lot.Received.String()).
		Msg("lote registrado")
	return lot, nil
}

// UpdateLot aplica la corrección sobre el lote y concilia la única fila de existencias
// originada por él. No recorre filas de otros lotes con la misma firma.
func (uc *LotUseCase) UpdateLot(ctx context.Context, siteID int64, kind entity.LotKind, id int64, in dto.LotPatchRequest) (*entity.Lot, error) {
	if !kind.Valid() {
		return nil, domain.Invalid("kind", "tipo de lote desconocido")
	}
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	if in.Received != nil {
		if err := checkQuantity("received", *in.Received); err != nil {
			return nil, err
		}
	}
	if in.Issued != nil {
		if err := checkQuantity("issued", *in.Issued); err != nil {
			return nil, err
		}
	}
	dims := dimensionsFor(kind)

	var next entity.Lot
	err := uc.txRunner.Run(ctx, func(repos TxRepos) error {
		prior, err := repos.Lots.GetForUpdate(ctx, kind, siteID, id)
		if err != nil {
			return err
		}
		if prior == nil {
			return domain.ErrNotFound
		}
		next = *prior

		if err := uc.applyPatch(ctx, repos, dims, &next, in); err != nil {
			return err
		}
		if next.Issued.GreaterThan(next.Received) {
			next.Issued = next.Received
		}
		if err := repos.Lots.Update(ctx, &next); err != nil {
			return err
		}
		if err := uc.reconcileOrigin(ctx, repos.Stock, prior, &next); err != nil {
			return err
		}
		return repos.Audit.Record(ctx, &entity.AuditEntry{
			SiteID:   siteID,
			Table:    LotTable(kind),
			RecordID: id,
			Action:   entity.AuditUpdated,
			Actor:    in.UpdatedBy,
		})
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Int64("site_id", siteID).
		Int64("lot_id", id).
		Str("kind", string(kind)).
		Str("available", next.Available().String()).
		Msg("lote actualizado")
	return &next, nil
}

// applyPatch copia sobre lot los campos presentes en el patch, resolviendo dimensiones.
func (uc *LotUseCase) applyPatch(ctx context.Context, repos TxRepos, dims lotDimensions, lot *entity.Lot, in dto.LotPatchRequest) error {
	resolver := NewDimensionResolver(repos.Dimensions)
	site := lot.SiteID

	if in.Product != nil {
		product, err := resolver.Resolve(ctx, dims.product, in.Product.Ref(), site)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.Invalid("product", "campo obligatorio")
		}
		lot.ProductID, lot.ProductName = product.ID, product.Name
	}
	if in.Vendor != nil {
		vendor, err := resolver.Resolve(ctx, dims.vendor, in.Vendor.Ref(), site)
		if err != nil {
			return err
		}
		switch {
		case vendor != nil:
			lot.VendorID, lot.VendorName = vendor.ID, vendor.Name
		case dims.vendorRequired:
			return domain.Invalid("vendor", "campo obligatorio")
		default:
			lot.VendorID, lot.VendorName = 0, ""
		}
	}
	var err error
	if in.Classification != nil {
		if lot.ClassificationID, err = resolveID(ctx, resolver, dims.classification, in.Classification.Ref(), site); err != nil {
			return err
		}
	}
	if in.Presentation != nil {
		if lot.PresentationID, err = resolveID(ctx, resolver, entity.DimensionPresentation, in.Presentation.Ref(), site); err != nil {
			return err
		}
	}
	if in.Provider != nil {
		if lot.ProviderID, err = resolveID(ctx, resolver, entity.DimensionProvider, in.Provider.Ref(), site); err != nil {
			return err
		}
	}

	if in.Category != nil {
		lot.Category = *in.Category
	}
	if in.Received != nil {
		lot.Received = *in.Received
	}
	if in.Issued != nil {
		lot.Issued = *in.Issued
	}
	if in.ReceivedAt != nil {
		if lot.ReceivedAt, err = uc.requiredDate("received_at", *in.ReceivedAt); err != nil {
			return err
		}
	}
	if in.ExpiryAt != nil {
		if lot.ExpiryAt, err = uc.requiredDate("expiry_at", *in.ExpiryAt); err != nil {
			return err
		}
	}
	if in.TerminatedAt != nil {
		if lot.TerminatedAt, err = uc.optionalDate("terminated_at", *in.TerminatedAt); err != nil {
			return err
		}
	}
	if in.IssuedAt != nil {
		if lot.IssuedAt, err = uc.optionalDate("issued_at", *in.IssuedAt); err != nil {
			return err
		}
	}
	if in.StartedAt != nil {
		if lot.StartedAt, err = uc.optionalDate("started_at", *in.StartedAt); err != nil {
			return err
		}
	}
	if in.LotNumber != nil {
		lot.LotNumber = *in.LotNumber
	}
	if in.InvimaRegistration != nil {
		lot.InvimaRegistration = *in.InvimaRegistration
	}
	if len(in.Attributes) > 0 {
		lot.Attributes = in.Attributes
	}
	return nil
}

// reconcileOrigin ajusta la fila creada junto con el lote por delta = disponible' - disponible previo.
// Si la fila ya no existe el disponible previo cuenta como cero. Un lote que termina hoy
// elimina su fila sin importar la cantidad.
func (uc *LotUseCase) reconcileOrigin(ctx context.Context, stock repository.StockRepository, prior, next *entity.Lot) error {
	row, err := stock.GetByOriginForUpdate(ctx, next.Kind, next.SiteID, next.ID)
	if err != nil {
		return err
	}
	availableNext := next.Available()
	terminatedToday := uc.calendar.IsToday(next.TerminatedAt)

	if row == nil {
		if !availableNext.IsPositive() || terminatedToday {
			return nil
		}
		return stock.Insert(ctx, &entity.StockRow{
			Kind:        next.Kind,
			ProductName: next.ProductName,
			VendorID:    next.VendorID,
			SiteID:      next.SiteID,
			Quantity:    availableNext,
			OriginLotID: next.ID,
		})
	}

	delta := availableNext.Sub(prior.Available())
	row.Quantity = row.Quantity.Add(delta)
	if terminatedToday || !row.Quantity.IsPositive() {
		return stock.Delete(ctx, row.SiteID, row.ID)
	}
	row.ProductName = next.ProductName
	row.VendorID = next.VendorID
	return stock.Update(ctx, row)
}

// DeleteLot retira del agregado (producto, proveedor, sede) lo que el lote aún aportaba,
// en orden FIFO, y elimina el lote en la misma transacción.
func (uc *LotUseCase) DeleteLot(ctx context.Context, siteID int64, kind entity.LotKind, id int64, actor string) error {
	if !kind.Valid() {
		return domain.Invalid("kind", "tipo de lote desconocido")
	}
	var alloc inventory.Allocation
	err := uc.txRunner.Run(ctx, func(repos TxRepos) error {
		lot, err := repos.Lots.GetForUpdate(ctx, kind, siteID, id)
		if err != nil {
			return err
		}
		if lot == nil {
			return domain.ErrNotFound
		}
		rows, err := repos.Stock.LockByKey(ctx, lot.Signature())
		if err != nil {
			return err
		}
		alloc = inventory.Deplete(rows, lot.Available())
		if err := ApplyAllocation(ctx, repos.Stock, siteID, alloc); err != nil {
			return err
		}
		if err := repos.Lots.Delete(ctx, kind, siteID, id); err != nil {
			return err
		}
		return repos.Audit.Record(ctx, &entity.AuditEntry{
			SiteID:   siteID,
			Table:    LotTable(kind),
			RecordID: id,
			Action:   entity.AuditDeleted,
			Actor:    actor,
		})
	})
	if err != nil {
		return err
	}

	if alloc.Unsatisfied.IsPositive() {
		uc.log.Warn().
			Int64("site_id", siteID).
			Int64("lot_id", id).
			Str("kind", string(kind)).
			Str("unsatisfied", alloc.Unsatisfied.String()).
			Msg("existencias insuficientes al eliminar lote")
	}
	uc.log.Info().Int64("site_id", siteID).Int64("lot_id", id).Str("kind", string(kind)).Msg("lote eliminado")
	return nil
}

// GetLot devuelve el lote de la sede o domain.ErrNotFound.
func (uc *LotUseCase) GetLot(ctx context.Context, siteID int64, kind entity.LotKind, id int64) (*entity.Lot, error) {
	if !kind.Valid() {
		return nil, domain.Invalid("kind", "tipo de lote desconocido")
	}
	lot, err := uc.lots.GetByID(ctx, kind, siteID, id)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, domain.ErrNotFound
	}
	return lot, nil
}

// ListLots lista los lotes de la sede por tipo.
func (uc *LotUseCase) ListLots(ctx context.Context, siteID int64, kind entity.LotKind) ([]*entity.Lot, error) {
	if !kind.Valid() {
		return nil, domain.Invalid("kind", "tipo de lote desconocido")
	}
	return uc.lots.List(ctx, kind, siteID)
}

// ListStock lista la proyección de existencias; kind vacío devuelve ambos tipos.
func (uc *LotUseCase) ListStock(ctx context.Context, siteID int64, kind entity.LotKind, name string) ([]entity.StockRow, error) {
	if kind != "" && !kind.Valid() {
		return nil, domain.Invalid("kind", "tipo de lote desconocido")
	}
	return uc.stock.List(ctx, siteID, kind, NormalizeName(name))
}

// ApplyAllocation persiste el resultado del asignador FIFO sobre filas ya bloqueadas.
func ApplyAllocation(ctx context.Context, stock repository.StockRepository, siteID int64, alloc inventory.Allocation) error {
	for _, id := range alloc.Deleted {
		if err := stock.Delete(ctx, siteID, id); err != nil {
			return err
		}
	}
	for i := range alloc.Updated {
		if err := stock.Update(ctx, &alloc.Updated[i]); err != nil {
			return err
		}
	}
	return nil
}

func resolveID(ctx context.Context, r *DimensionResolver, kind entity.DimensionKind, ref entity.DimensionRef, siteID int64) (int64, error) {
	d, err := r.Resolve(ctx, kind, ref, siteID)
	if err != nil || d == nil {
		return 0, err
	}
	return d.ID, nil
}

func (uc *LotUseCase) requiredDate(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, domain.Invalid(field, "campo obligatorio")
	}
	d, err := inventory.ParseDate(raw)
	if err != nil {
		return time.Time{}, domain.Invalid(field, "fecha inválida, formato esperado AAAA-MM-DD")
	}
	return d, nil
}

func (uc *LotUseCase) optionalDate(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := uc.requiredDate(field, raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
