package notification_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/kardex-api/internal/application/dto"
	"github.com/jhoicas/kardex-api/internal/application/inventory"
	"github.com/jhoicas/kardex-api/internal/application/notification"
	"github.com/jhoicas/kardex-api/internal/domain"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	domaininv "github.com/jhoicas/kardex-api/internal/domain/inventory"
	"github.com/jhoicas/kardex-api/internal/testutil"
	"github.com/jhoicas/kardex-api/pkg/logger"
)

const site int64 = 1

type fakeDispatcher struct {
	mu    sync.Mutex
	sent  []entity.Notification
	to    [][]string
	fails map[int64]bool
}

func (f *fakeDispatcher) Send(_ context.Context, n entity.Notification, recipients []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails[n.ID] {
		return errors.New("smtp no disponible")
	}
	f.sent = append(f.sent, n)
	f.to = append(f.to, recipients)
	return nil
}

type fixture struct {
	store      *testutil.MemStore
	lots       *inventory.LotUseCase
	generator  *notification.GeneratorUseCase
	dispatcher *fakeDispatcher
	calendar   domaininv.Calendar
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	loc, err := time.LoadLocation("America/Bogota")
	require.NoError(t, err)
	now := time.Date(2025, 3, 10, 23, 30, 0, 0, loc)
	cal := domaininv.NewCalendar(loc, func() time.Time { return now })

	store := testutil.NewMemStore()
	store.AddSite(site)
	disp := &fakeDispatcher{fails: map[int64]bool{}}
	dispatch := notification.NewDispatchUseCase(store.Notifications(), store.Subscribers(), disp, logger.Nop())
	return &fixture{
		store:      store,
		lots:       inventory.NewLotUseCase(store, store.Lots(), store.Stock(), cal, logger.Nop()),
		generator:  notification.NewGeneratorUseCase(store.Lots(), store.Notifications(), dispatch, cal, logger.Nop()),
		dispatcher: disp,
		calendar:   cal,
	}
}

func (f *fixture) createLot(t *testing.T, kind entity.LotKind, product, vendor, expiry, terminated string) *entity.Lot {
	t.Helper()
	received := decimal.NewFromInt(10)
	lot, err := f.lots.CreateLot(context.Background(), site, kind, dto.LotRequest{
		Product:      dto.DimensionValue(product),
		Vendor:       dto.DimensionValue(vendor),
		Category:     entity.LotCategoryLab,
		Received:     &received,
		ReceivedAt:   "2025-01-01",
		ExpiryAt:     expiry,
		TerminatedAt: terminated,
	})
	require.NoError(t, err)
	return lot
}

// ────────────────────────────────────────────────────────────────────────────
// Generación
// ────────────────────────────────────────────────────────────────────────────

func TestGenerator_VencimientoEnSieteDias(t *testing.T) {
	f := newFixture(t)
	lot := f.createLot(t, entity.LotKindReagent, "Acetona", "Merck", "2025-03-17", "")

	report, err := f.generator.RunNotificationGeneration(context.Background(), site)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	got := f.store.AllNotifications(site)
	require.Len(t, got, 1)
	assert.Equal(t, entity.NotificationReagentExpiring, got[0].Kind)
	assert.Equal(t, lot.ID, got[0].ReagentLotID)
	assert.Zero(t, got[0].SupplyLotID)
	assert.Equal(t, "2025-03-17", got[0].EventDate.Format(time.DateOnly))
	assert.Equal(t, `El reactivo "Acetona" de la casa comercial "Merck" vencerá en 7 días.`, got[0].Message)
}

func TestGenerator_VenceHoyUsaElDiaCivilLocal(t *testing.T) {
	f := newFixture(t)
	// 23:30 en Bogotá ya es 11 de marzo en UTC; el día civil sigue siendo el 10
	f.createLot(t, entity.LotKindSupply, "Guantes", "3M", "2025-03-10", "")

	_, err := f.generator.RunNotificationGeneration(context.Background(), site)

	require.NoError(t, err)
	got := f.store.AllNotifications(site)
	require.Len(t, got, 1)
	assert.Equal(t, entity.NotificationSupplyExpiring, got[0].Kind)
	assert.Equal(t, `⚠️ El insumo "Guantes" del laboratorio "3M" vence HOY.`, got[0].Message)
}

func TestGenerator_SalidaHoy(t *testing.T) {
	f := newFixture(t)
	lot := f.createLot(t, entity.LotKindReagent, "Etanol", "Sigma", "2025-06-01", "2025-03-10")

	_, err := f.generator.RunNotificationGeneration(context.Background(), site)

	require.NoError(t, err)
	got := f.store.AllNotifications(site)
	require.Len(t, got, 1)
	assert.Equal(t, entity.NotificationReagentIssued, got[0].Kind)
	assert.Equal(t, lot.ID, got[0].ReagentLotID)
	assert.True(t, got[0].EventDate.Equal(f.calendar.Today()))
	assert.Contains(t, got[0].Message, "ha sido dado de salida")
}

func TestGenerator_SinAvisosFueraDeLasFechas(t *testing.T) {
	f := newFixture(t)
	f.createLot(t, entity.LotKindReagent, "Etanol", "Sigma", "2025-03-15", "2025-03-09")
	f.createLot(t, entity.LotKindSupply, "Guantes", "", "2025-03-09", "")

	report, err := f.generator.RunNotificationGeneration(context.Background(), site)

	require.NoError(t, err)
	assert.Zero(t, report.Created)
	assert.Empty(t, f.store.AllNotifications(site))
}

func TestGenerator_DeduplicaEntreEjecuciones(t *testing.T) {
	f := newFixture(t)
	f.createLot(t, entity.LotKindReagent, "Acetona", "Merck", "2025-03-10", "2025-03-10")
	ctx := context.Background()

	first, err := f.generator.RunNotificationGeneration(ctx, site)
	require.NoError(t, err)
	second, err := f.generator.RunNotificationGeneration(ctx, site)
	require.NoError(t, err)

	assert.Equal(t, 2, first.Created, "vence hoy y salida hoy")
	assert.Zero(t, second.Created)
	assert.Equal(t, 2, second.Duplicates)
	assert.Len(t, f.store.AllNotifications(site), 2)
}

func TestGenerator_ErrorDeInsercionNoDetieneLosDemas(t *testing.T) {
	f := newFixture(t)
	bad := f.createLot(t, entity.LotKindReagent, "Acetona", "Merck", "2025-03-17", "")
	f.createLot(t, entity.LotKindReagent, "Etanol", "Merck", "2025-03-17", "")
	f.store.Fail = func(op string, id int64) error {
		if op == "notifications.Create" && id == bad.ID {
			return errors.New("deadlock")
		}
		return nil
	}

	report, err := f.generator.RunNotificationGeneration(context.Background(), site)

	assert.Error(t, err)
	assert.Equal(t, 1, report.Created)
}

// ────────────────────────────────────────────────────────────────────────────
// Despacho
// ────────────────────────────────────────────────────────────────────────────

func TestDispatch_SinSuscriptoresNoEnvia(t *testing.T) {
	f := newFixture(t)
	f.createLot(t, entity.LotKindReagent, "Acetona", "Merck", "2025-03-17", "")

	report, err := f.generator.RunNotificationGeneration(context.Background(), site)

	require.NoError(t, err)
	assert.Zero(t, report.Sent)
	assert.Empty(t, f.dispatcher.sent)
	assert.False(t, f.store.AllNotifications(site)[0].Sent)
}

func TestDispatch_SinPendientesNoEnvia(t *testing.T) {
	f := newFixture(t)
	f.store.AddSubscriber(site, "lab@example.com")

	report, err := f.generator.RunNotificationGeneration(context.Background(), site)

	require.NoError(t, err)
	assert.Zero(t, report.Sent)
	assert.Empty(t, f.dispatcher.sent)
}

func TestDispatch_EnviaYMarcaComoEnviada(t *testing.T) {
	f := newFixture(t)
	f.store.AddSubscriber(site, "lab@example.com")
	f.store.AddSubscriber(site, "jefe@example.com")
	f.store.AddSubscriber(2, "otra-sede@example.com")
	f.createLot(t, entity.LotKindReagent, "Acetona", "Merck", "2025-03-17", "")
	ctx := context.Background()

	report, err := f.generator.RunNotificationGeneration(ctx, site)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	require.Len(t, f.dispatcher.to, 1)
	assert.ElementsMatch(t, []string{"lab@example.com", "jefe@example.com"}, f.dispatcher.to[0])
	assert.True(t, f.store.AllNotifications(site)[0].Sent)

	again, err := f.generator.RunNotificationGeneration(ctx, site)
	require.NoError(t, err)
	assert.Zero(t, again.Sent, "no se reenvía")
}

func TestDispatch_FalloDeEnvioQuedaPendiente(t *testing.T) {
	f := newFixture(t)
	f.store.AddSubscriber(site, "lab@example.com")
	f.createLot(t, entity.LotKindReagent, "Acetona", "Merck", "2025-03-17", "")
	f.createLot(t, entity.LotKindReagent, "Etanol", "Merck", "2025-03-17", "")
	ctx := context.Background()
	onlyGenerate := notification.NewGeneratorUseCase(f.store.Lots(), f.store.Notifications(), nil, f.calendar, logger.Nop())
	_, err := onlyGenerate.RunNotificationGeneration(ctx, site)
	require.NoError(t, err)
	pending := f.store.AllNotifications(site)
	require.Len(t, pending, 2)
	f.dispatcher.fails[pending[0].ID] = true
	dispatch := notification.NewDispatchUseCase(f.store.Notifications(), f.store.Subscribers(), f.dispatcher, logger.Nop())

	sent, err := dispatch.DispatchPending(ctx, site)

	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	after := f.store.AllNotifications(site)
	assert.False(t, after[0].Sent, "queda pendiente para el siguiente ciclo")
	assert.True(t, after[1].Sent)
}

// ────────────────────────────────────────────────────────────────────────────
// Bandeja
// ────────────────────────────────────────────────────────────────────────────

func TestInbox_ListarYMarcarLeida(t *testing.T) {
	f := newFixture(t)
	f.createLot(t, entity.LotKindReagent, "Acetona", "Merck", "2025-03-17", "")
	f.createLot(t, entity.LotKindReagent, "Etanol", "Merck", "2025-03-10", "")
	ctx := context.Background()
	_, err := f.generator.RunNotificationGeneration(ctx, site)
	require.NoError(t, err)
	inbox := notification.NewInboxUseCase(f.store.Notifications())

	unread, err := inbox.ListUnread(ctx, site)
	require.NoError(t, err)
	require.Len(t, unread, 2)
	assert.Greater(t, unread[0].ID, unread[1].ID, "más recientes primero")

	require.NoError(t, inbox.MarkRead(ctx, site, unread[0].ID))
	assert.ErrorIs(t, inbox.MarkRead(ctx, 2, unread[1].ID), domain.ErrNotFound)
	assert.ErrorIs(t, inbox.MarkRead(ctx, site, 999), domain.ErrNotFound)

	unread, err = inbox.ListUnread(ctx, site)
	require.NoError(t, err)
	assert.Len(t, unread, 1)
}
