package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de existencias. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

const stockColumns = `id, kind, product_name, vendor_id, site_id, quantity, COALESCE(origin_lot_id, 0), created_at, updated_at`

func scanStockRow(row pgx.Row) (entity.StockRow, error) {
	var s entity.StockRow
	var kind string
	err := row.Scan(&s.ID, &kind, &s.ProductName, &s.VendorID, &s.SiteID, &s.Quantity, &s.OriginLotID, &s.CreatedAt, &s.UpdatedAt)
	s.Kind = entity.LotKind(kind)
	return s, err
}

// Insert crea una fila de existencias.
func (r *StockRepo) Insert(ctx context.Context, row *entity.StockRow) error {
	query := `
		INSERT INTO stock_on_hand (kind, product_name, vendor_id, site_id, quantity, origin_lot_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	err := r.q.QueryRow(ctx, query,
		string(row.Kind), row.ProductName, row.VendorID, row.SiteID, row.Quantity, nullableID(row.OriginLotID),
	).Scan(&row.ID, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert stock: %w", err)
	}
	return nil
}

// Update persiste cantidad y firma de la fila.
func (r *StockRepo) Update(ctx context.Context, row *entity.StockRow) error {
	query := `
		UPDATE stock_on_hand
		SET product_name = $3, vendor_id = $4, quantity = $5, updated_at = now()
		WHERE site_id = $1 AND id = $2`
	_, err := r.q.Exec(ctx, query, row.SiteID, row.ID, row.ProductName, row.VendorID, row.Quantity)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	return nil
}

// Delete elimina la fila.
func (r *StockRepo) Delete(ctx context.Context, siteID, id int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM stock_on_hand WHERE site_id = $1 AND id = $2`, siteID, id); err != nil {
		return fmt.Errorf("delete stock: %w", err)
	}
	return nil
}

// GetByOriginForUpdate bloquea la fila creada junto con el lote; nil si no existe.
func (r *StockRepo) GetByOriginForUpdate(ctx context.Context, kind entity.LotKind, siteID, lotID int64) (*entity.StockRow, error) {
	query := `SELECT ` + stockColumns + `
		FROM stock_on_hand
		WHERE kind = $1 AND site_id = $2 AND origin_lot_id = $3
		ORDER BY id
		LIMIT 1
		FOR UPDATE`
	s, err := scanStockRow(r.q.QueryRow(ctx, query, string(kind), siteID, lotID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock by origin: %w", err)
	}
	return &s, nil
}

// LockByKey bloquea las filas de la firma en orden de id ascendente (SELECT FOR UPDATE).
func (r *StockRepo) LockByKey(ctx context.Context, key entity.StockKey) ([]entity.StockRow, error) {
	query := `SELECT ` + stockColumns + `
		FROM stock_on_hand
		WHERE kind = $1 AND product_name = $2 AND vendor_id = $3 AND site_id = $4
		ORDER BY id
		FOR UPDATE`
	rows, err := r.q.Query(ctx, query, string(key.Kind), key.ProductName, key.VendorID, key.SiteID)
	if err != nil {
		return nil, fmt.Errorf("lock stock: %w", err)
	}
	defer rows.Close()

	var out []entity.StockRow
	for rows.Next() {
		s, err := scanStockRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// List devuelve la proyección con el nombre del proveedor resuelto según el tipo.
// name filtra por subcadena literal sin distinguir mayúsculas; % y _ no son comodines.
func (r *StockRepo) List(ctx context.Context, siteID int64, kind entity.LotKind, name string) ([]entity.StockRow, error) {
	query := `
		SELECT s.id, s.kind, s.product_name, s.vendor_id, s.site_id, s.quantity, COALESCE(s.origin_lot_id, 0),
		       s.created_at, s.updated_at, COALESCE(v.name, lab.name, '')
		FROM stock_on_hand s
		LEFT JOIN vendors v ON s.kind = 'reagent' AND v.id = s.vendor_id
		LEFT JOIN laboratories lab ON s.kind = 'supply' AND lab.id = s.vendor_id
		WHERE s.site_id = $1
		  AND ($2 = '' OR s.kind = $2)
		  AND ($3 = '' OR position(lower($3) IN lower(s.product_name)) > 0)
		ORDER BY s.product_name, s.id`
	rows, err := r.q.Query(ctx, query, siteID, string(kind), name)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	defer rows.Close()

	var out []entity.StockRow
	for rows.Next() {
		var s entity.StockRow
		var k string
		if err := rows.Scan(&s.ID, &k, &s.ProductName, &s.VendorID, &s.SiteID, &s.Quantity, &s.OriginLotID,
			&s.CreatedAt, &s.UpdatedAt, &s.VendorName); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		s.Kind = entity.LotKind(k)
		out = append(out, s)
	}
	return out, rows.Err()
}
