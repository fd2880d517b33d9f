package postgres_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/kardex-api/internal/application/dto"
	"github.com/jhoicas/kardex-api/internal/application/inventory"
	"github.com/jhoicas/kardex-api/internal/domain"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	domaininv "github.com/jhoicas/kardex-api/internal/domain/inventory"
	"github.com/jhoicas/kardex-api/internal/infrastructure/postgres"
	"github.com/jhoicas/kardex-api/pkg/config"
	"github.com/jhoicas/kardex-api/pkg/logger"
)

var (
	containerOnce sync.Once
	sharedPool    *pgxpool.Pool
	containerErr  error
)

// testPool arranca un PostgreSQL compartido por todas las pruebas del paquete.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("prueba de integración: requiere Docker")
	}
	containerOnce.Do(func() {
		ctx := context.Background()
		container, err := tcpostgres.RunContainer(ctx,
			testcontainers.WithImage("postgres:15-alpine"),
			tcpostgres.WithDatabase("kardex_test"),
			tcpostgres.WithUsername("test"),
			tcpostgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			containerErr = err
			return
		}
		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			containerErr = err
			return
		}
		sharedPool, containerErr = postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn, MaxConns: 4})
		if containerErr == nil {
			containerErr = postgres.Migrate(ctx, sharedPool)
		}
	})
	require.NoError(t, containerErr)
	return sharedPool
}

func newSite(t *testing.T, pool *pgxpool.Pool) int64 {
	t.Helper()
	var id int64
	require.NoError(t, pool.QueryRow(context.Background(), `INSERT INTO sites (name) VALUES ($1) RETURNING id`, t.Name()).Scan(&id))
	return id
}

func calendar(t *testing.T) domaininv.Calendar {
	t.Helper()
	loc, err := time.LoadLocation("America/Bogota")
	require.NoError(t, err)
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, loc)
	return domaininv.NewCalendar(loc, func() time.Time { return now })
}

func lotUseCase(t *testing.T, pool *pgxpool.Pool) *inventory.LotUseCase {
	t.Helper()
	return inventory.NewLotUseCase(postgres.NewTxRunner(pool), postgres.NewLotRepository(pool),
		postgres.NewStockRepository(pool), calendar(t), logger.Nop())
}

func request(product, vendor string, received int64) dto.LotRequest {
	q := decimal.NewFromInt(received)
	return dto.LotRequest{
		Product:    dto.DimensionValue(product),
		Vendor:     dto.DimensionValue(vendor),
		Category:   entity.LotCategoryLab,
		Received:   &q,
		ReceivedAt: "2025-03-01",
		ExpiryAt:   "2025-03-17",
		CreatedBy:  "analista",
	}
}

func quantities(t *testing.T, pool *pgxpool.Pool, siteID int64) []string {
	t.Helper()
	rows, err := postgres.NewStockRepository(pool).List(context.Background(), siteID, "", "")
	require.NoError(t, err)
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Quantity.String())
	}
	return out
}

// ────────────────────────────────────────────────────────────────────────────
// Libro de lotes y proyección
// ────────────────────────────────────────────────────────────────────────────

func TestPostgres_MigracionIdempotente(t *testing.T) {
	pool := testPool(t)
	assert.NoError(t, postgres.Migrate(context.Background(), pool))
}

func TestPostgres_CicloDeVidaDelLote(t *testing.T) {
	pool := testPool(t)
	siteID := newSite(t, pool)
	uc := lotUseCase(t, pool)
	ctx := context.Background()

	b, err := uc.CreateLot(ctx, siteID, entity.LotKindReagent, request("Acetona", "Merck", 10))
	require.NoError(t, err)
	c, err := uc.CreateLot(ctx, siteID, entity.LotKindReagent, request("Acetona", "Merck", 15))
	require.NoError(t, err)
	assert.Equal(t, b.ProductID, c.ProductID, "el nombre se resuelve a la misma dimensión")
	assert.Equal(t, []string{"10", "15"}, quantities(t, pool, siteID))

	got, err := uc.GetLot(ctx, siteID, entity.LotKindReagent, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acetona", got.ProductName)
	assert.Equal(t, "Merck", got.VendorName)

	_, err = uc.UpdateLot(ctx, siteID, entity.LotKindReagent, c.ID, dto.LotPatchRequest{Issued: decPtr(5)})
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "10"}, quantities(t, pool, siteID))

	require.NoError(t, uc.DeleteLot(ctx, siteID, entity.LotKindReagent, b.ID, "analista"))
	assert.Equal(t, []string{"10"}, quantities(t, pool, siteID))

	_, err = uc.GetLot(ctx, siteID, entity.LotKindReagent, b.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var audits int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM audit_log WHERE site_id = $1`, siteID).Scan(&audits))
	assert.Equal(t, 4, audits)
}

func TestPostgres_BorrarLoteSueltaElOrigen(t *testing.T) {
	pool := testPool(t)
	siteID := newSite(t, pool)
	uc := lotUseCase(t, pool)
	ctx := context.Background()

	a, err := uc.CreateLot(ctx, siteID, entity.LotKindSupply, request("Guantes", "", 5))
	require.NoError(t, err)
	_, err = uc.CreateLot(ctx, siteID, entity.LotKindSupply, request("Guantes", "", 7))
	require.NoError(t, err)
	require.NoError(t, uc.DeleteLot(ctx, siteID, entity.LotKindSupply, a.ID, ""))

	rows, err := postgres.NewStockRepository(pool).List(ctx, siteID, entity.LotKindSupply, "guan")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "7", rows[0].Quantity.String())
	assert.Zero(t, rows[0].VendorID)
}

func TestPostgres_FiltroDeNombreEsLiteral(t *testing.T) {
	pool := testPool(t)
	siteID := newSite(t, pool)
	uc := lotUseCase(t, pool)
	ctx := context.Background()

	for _, name := range []string{"Acido 50%", "Acido 500 mL", "Etanol_96", "Etanol 96"} {
		_, err := uc.CreateLot(ctx, siteID, entity.LotKindReagent, request(name, "Merck", 1))
		require.NoError(t, err)
	}

	tests := []struct {
		filter string
		want   []string
	}{
		{"50%", []string{"Acido 50%"}},
		{"l_9", []string{"Etanol_96"}},
		{"ACIDO", []string{"Acido 50%", "Acido 500 mL"}},
		{"%", []string{"Acido 50%"}},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			rows, err := uc.ListStock(ctx, siteID, entity.LotKindReagent, tt.filter)
			require.NoError(t, err)
			names := make([]string, 0, len(rows))
			for _, r := range rows {
				names = append(names, r.ProductName)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestPostgres_DimensionDeOtraSedeNoSeResuelve(t *testing.T) {
	pool := testPool(t)
	siteA, siteB := newSite(t, pool), newSite(t, pool)
	uc := lotUseCase(t, pool)
	ctx := context.Background()

	lot, err := uc.CreateLot(ctx, siteA, entity.LotKindReagent, request("Etanol", "Sigma", 3))
	require.NoError(t, err)

	req := request("Etanol", "Sigma", 3)
	req.Product = dto.DimensionValue(strconv.FormatInt(lot.ProductID, 10))
	_, err = uc.CreateLot(ctx, siteB, entity.LotKindReagent, req)

	assert.ErrorIs(t, err, domain.ErrDimensionNotFound)
	assert.Empty(t, quantities(t, pool, siteB))
}

func TestPostgres_BarridoIdempotente(t *testing.T) {
	pool := testPool(t)
	siteID := newSite(t, pool)
	uc := lotUseCase(t, pool)
	ctx := context.Background()

	req := request("Acetona", "Merck", 10)
	req.TerminatedAt = "2025-03-10"
	_, err := uc.CreateLot(ctx, siteID, entity.LotKindReagent, req)
	require.NoError(t, err)
	_, err = uc.CreateLot(ctx, siteID, entity.LotKindReagent, request("Acetona", "Merck", 25))
	require.NoError(t, err)

	sweep := inventory.NewExpirySweepUseCase(postgres.NewTxRunner(pool), postgres.NewLotRepository(pool), calendar(t), logger.Nop())
	first, err := sweep.RunExpirySweep(ctx, siteID)
	require.NoError(t, err)
	second, err := sweep.RunExpirySweep(ctx, siteID)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Lots)
	assert.Zero(t, second.Lots)
	assert.Equal(t, []string{"25"}, quantities(t, pool, siteID))
}

// ────────────────────────────────────────────────────────────────────────────
// Notificaciones
// ────────────────────────────────────────────────────────────────────────────

func TestPostgres_NotificacionDeduplicada(t *testing.T) {
	pool := testPool(t)
	siteID := newSite(t, pool)
	repo := postgres.NewNotificationRepository(pool)
	ctx := context.Background()
	n := entity.Notification{
		SiteID:       siteID,
		Kind:         entity.NotificationReagentExpiring,
		ReagentLotID: siteID * 1000,
		EventDate:    time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC),
		Message:      `El reactivo "Acetona" de la casa comercial "Merck" vencerá en 7 días.`,
	}

	first := n
	created, err := repo.Create(ctx, &first)
	require.NoError(t, err)
	assert.True(t, created)
	dup := n
	created, err = repo.Create(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, created)

	unsent, err := repo.ListUnsent(ctx, siteID)
	require.NoError(t, err)
	require.Len(t, unsent, 1)
	assert.Equal(t, "2025-03-17", unsent[0].EventDate.Format(time.DateOnly))

	require.NoError(t, repo.MarkSent(ctx, siteID, first.ID))
	unsent, err = repo.ListUnsent(ctx, siteID)
	require.NoError(t, err)
	assert.Empty(t, unsent)

	ok, err := repo.MarkRead(ctx, siteID+1, first.ID)
	require.NoError(t, err)
	assert.False(t, ok, "otra sede")
	ok, err = repo.MarkRead(ctx, siteID, first.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPostgres_SedesYSuscriptores(t *testing.T) {
	pool := testPool(t)
	siteID := newSite(t, pool)
	ctx := context.Background()
	_, err := pool.Exec(ctx, `INSERT INTO subscriptions (site_id, email) VALUES ($1, 'lab@example.com')`, siteID)
	require.NoError(t, err)

	ids, err := postgres.NewSiteRepository(pool).ListIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, siteID)

	subs, err := postgres.NewSubscriberRepository(pool).ListBySite(ctx, siteID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "lab@example.com", subs[0].Email)
}

func decPtr(n int64) *decimal.Decimal {
	d := decimal.NewFromInt(n)
	return &d
}
