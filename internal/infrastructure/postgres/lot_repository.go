package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

var _ repository.LotRepository = (*LotRepo)(nil)

// lotTables tablas del libro y de sus dimensiones de nombre y proveedor por tipo de lote.
type lotTables struct {
	lots     string
	products string
	vendors  string
}

func tablesFor(kind entity.LotKind) (lotTables, error) {
	switch kind {
	case entity.LotKindReagent:
		return lotTables{lots: "reagent_lots", products: "reagent_names", vendors: "vendors"}, nil
	case entity.LotKindSupply:
		return lotTables{lots: "supply_lots", products: "supply_names", vendors: "laboratories"}, nil
	}
	return lotTables{}, fmt.Errorf("tipo de lote desconocido: %q", kind)
}

const lotColumns = `
	l.id, l.site_id, l.product_id, p.name, COALESCE(l.vendor_id, 0), COALESCE(v.name, ''),
	COALESCE(l.classification_id, 0), COALESCE(l.presentation_id, 0), COALESCE(l.provider_id, 0),
	l.category, l.received, l.issued, l.received_at, l.expiry_at, l.terminated_at, l.issued_at,
	l.started_at, l.lot_number, l.invima_registration, l.attributes, l.swept_on, l.created_by,
	l.created_at, l.updated_at`

// LotRepo implementación de LotRepository sobre PostgreSQL (usable con pool o tx).
type LotRepo struct {
	q Querier
}

// NewLotRepository construye el adaptador del libro de lotes. Pasar pool o tx (Querier).
func NewLotRepository(q Querier) *LotRepo {
	return &LotRepo{q: q}
}

func selectLots(t lotTables) string {
	return fmt.Sprintf(`
		SELECT %s
		FROM %s l
		JOIN %s p ON p.id = l.product_id
		LEFT JOIN %s v ON v.id = l.vendor_id`, lotColumns, t.lots, t.products, t.vendors)
}

func scanLot(row pgx.Row, kind entity.LotKind) (*entity.Lot, error) {
	l := entity.Lot{Kind: kind}
	var attrs []byte
	err := row.Scan(
		&l.ID, &l.SiteID, &l.ProductID, &l.ProductName, &l.VendorID, &l.VendorName,
		&l.ClassificationID, &l.PresentationID, &l.ProviderID,
		&l.Category, &l.Received, &l.Issued, &l.ReceivedAt, &l.ExpiryAt, &l.TerminatedAt, &l.IssuedAt,
		&l.StartedAt, &l.LotNumber, &l.InvimaRegistration, &attrs, &l.SweptOn, &l.CreatedBy,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(attrs) > 0 {
		l.Attributes = attrs
	}
	return &l, nil
}

// Create inserta el lote y completa ID y fechas de auditoría.
func (r *LotRepo) Create(ctx context.Context, lot *entity.Lot) error {
	t, err := tablesFor(lot.Kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (
			site_id, product_id, vendor_id, classification_id, presentation_id, provider_id,
			category, received, issued, received_at, expiry_at, terminated_at, issued_at, started_at,
			lot_number, invima_registration, attributes, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at, updated_at`, t.lots)
	err = r.q.QueryRow(ctx, query,
		lot.SiteID, lot.ProductID, nullableID(lot.VendorID), nullableID(lot.ClassificationID),
		nullableID(lot.PresentationID), nullableID(lot.ProviderID),
		lot.Category, lot.Received, lot.Issued, dateOnly(&lot.ReceivedAt), dateOnly(&lot.ExpiryAt),
		dateOnly(lot.TerminatedAt), dateOnly(lot.IssuedAt), dateOnly(lot.StartedAt),
		lot.LotNumber, lot.InvimaRegistration, nullableJSON(lot.Attributes), lot.CreatedBy,
	).Scan(&lot.ID, &lot.CreatedAt, &lot.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create %s: %w", t.lots, err)
	}
	return nil
}

func (r *LotRepo) getOne(ctx context.Context, kind entity.LotKind, siteID, id int64, forUpdate bool) (*entity.Lot, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	query := selectLots(t) + ` WHERE l.site_id = $1 AND l.id = $2`
	if forUpdate {
		query += ` FOR UPDATE OF l`
	}
	lot, err := scanLot(r.q.QueryRow(ctx, query, siteID, id), kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", t.lots, err)
	}
	return lot, nil
}

// GetByID obtiene un lote de la sede; nil si no existe.
func (r *LotRepo) GetByID(ctx context.Context, kind entity.LotKind, siteID, id int64) (*entity.Lot, error) {
	return r.getOne(ctx, kind, siteID, id, false)
}

// GetForUpdate obtiene el lote y bloquea su fila (SELECT FOR UPDATE).
func (r *LotRepo) GetForUpdate(ctx context.Context, kind entity.LotKind, siteID, id int64) (*entity.Lot, error) {
	return r.getOne(ctx, kind, siteID, id, true)
}

func (r *LotRepo) list(ctx context.Context, kind entity.LotKind, where string, args ...any) ([]*entity.Lot, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.q.Query(ctx, selectLots(t)+where+` ORDER BY l.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.lots, err)
	}
	defer rows.Close()

	var out []*entity.Lot
	for rows.Next() {
		lot, err := scanLot(rows, kind)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.lots, err)
		}
		out = append(out, lot)
	}
	return out, rows.Err()
}

// List lista los lotes de la sede ordenados por id.
func (r *LotRepo) List(ctx context.Context, kind entity.LotKind, siteID int64) ([]*entity.Lot, error) {
	return r.list(ctx, kind, ` WHERE l.site_id = $1`, siteID)
}

// ListTerminatedOn lista los lotes cuya fecha de terminación es day.
func (r *LotRepo) ListTerminatedOn(ctx context.Context, kind entity.LotKind, siteID int64, day time.Time) ([]*entity.Lot, error) {
	return r.list(ctx, kind, ` WHERE l.site_id = $1 AND l.terminated_at = $2`, siteID, dateOnly(&day))
}

// Update persiste todos los campos editables del lote.
func (r *LotRepo) Update(ctx context.Context, lot *entity.Lot) error {
	t, err := tablesFor(lot.Kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE %s SET
			product_id = $3, vendor_id = $4, classification_id = $5, presentation_id = $6, provider_id = $7,
			category = $8, received = $9, issued = $10, received_at = $11, expiry_at = $12,
			terminated_at = $13, issued_at = $14, started_at = $15, lot_number = $16,
			invima_registration = $17, attributes = $18, updated_at = now()
		WHERE site_id = $1 AND id = $2
		RETURNING updated_at`, t.lots)
	err = r.q.QueryRow(ctx, query,
		lot.SiteID, lot.ID, lot.ProductID, nullableID(lot.VendorID), nullableID(lot.ClassificationID),
		nullableID(lot.PresentationID), nullableID(lot.ProviderID),
		lot.Category, lot.Received, lot.Issued, dateOnly(&lot.ReceivedAt), dateOnly(&lot.ExpiryAt),
		dateOnly(lot.TerminatedAt), dateOnly(lot.IssuedAt), dateOnly(lot.StartedAt),
		lot.LotNumber, lot.InvimaRegistration, nullableJSON(lot.Attributes),
	).Scan(&lot.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update %s: %w", t.lots, err)
	}
	return nil
}

// MarkSwept registra el día en que el barrido procesó el lote.
func (r *LotRepo) MarkSwept(ctx context.Context, kind entity.LotKind, siteID, id int64, day time.Time) error {
	t, err := tablesFor(kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET swept_on = $3 WHERE site_id = $1 AND id = $2`, t.lots)
	if _, err := r.q.Exec(ctx, query, siteID, id, dateOnly(&day)); err != nil {
		return fmt.Errorf("mark swept %s: %w", t.lots, err)
	}
	return nil
}

// Delete elimina el lote y suelta la referencia de origen de las filas de existencias que creó.
func (r *LotRepo) Delete(ctx context.Context, kind entity.LotKind, siteID, id int64) error {
	t, err := tablesFor(kind)
	if err != nil {
		return err
	}
	if _, err := r.q.Exec(ctx,
		`UPDATE stock_on_hand SET origin_lot_id = NULL WHERE kind = $1 AND site_id = $2 AND origin_lot_id = $3`,
		string(kind), siteID, id,
	); err != nil {
		return fmt.Errorf("release stock origin: %w", err)
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE site_id = $1 AND id = $2`, t.lots)
	if _, err := r.q.Exec(ctx, query, siteID, id); err != nil {
		return fmt.Errorf("delete %s: %w", t.lots, err)
	}
	return nil
}
