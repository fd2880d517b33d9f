package inventory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/kardex-api/internal/application/dto"
	"github.com/jhoicas/kardex-api/internal/application/inventory"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/testutil"
	"github.com/jhoicas/kardex-api/pkg/logger"
)

func newSweep(t *testing.T) (*inventory.ExpirySweepUseCase, *inventory.LotUseCase, *testutil.MemStore) {
	t.Helper()
	lots, store := newLotUseCase(t)
	sweep := inventory.NewExpirySweepUseCase(store, store.Lots(), fixedCalendar(t), logger.Nop())
	return sweep, lots, store
}

func terminatedRequest(product, vendor string, received int64, terminatedAt string) dto.LotRequest {
	req := reagentRequest(product, vendor, received)
	req.TerminatedAt = terminatedAt
	return req
}

func TestExpirySweep_RetiraLoteTerminadoHoy(t *testing.T) {
	sweep, lots, store := newSweep(t)
	ctx := context.Background()
	_, err := lots.CreateLot(ctx, site, entity.LotKindReagent, terminatedRequest("Acetona", "Merck", 30, today))
	require.NoError(t, err)
	require.Len(t, store.StockRows(site), 1)

	report, err := sweep.RunExpirySweep(ctx, site)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Lots)
	assert.Equal(t, 1, report.RowsDeleted)
	assert.True(t, report.Depleted.Equal(decimal.NewFromInt(30)))
	assert.True(t, report.Unsatisfied.IsZero())
	assert.Empty(t, store.StockRows(site))
}

func TestExpirySweep_IgnoraLotesDeOtrosDias(t *testing.T) {
	sweep, lots, store := newSweep(t)
	ctx := context.Background()
	_, err := lots.CreateLot(ctx, site, entity.LotKindReagent, terminatedRequest("Acetona", "Merck", 30, tomorrow))
	require.NoError(t, err)
	_, err = lots.CreateLot(ctx, site, entity.LotKindReagent, terminatedRequest("Etanol", "Merck", 8, "2025-03-09"))
	require.NoError(t, err)

	report, err := sweep.RunExpirySweep(ctx, site)

	require.NoError(t, err)
	assert.Zero(t, report.Lots)
	assert.Equal(t, []int64{30, 8}, quantities(store.StockRows(site)))
}

func TestExpirySweep_EsIdempotenteElMismoDia(t *testing.T) {
	sweep, lots, store := newSweep(t)
	ctx := context.Background()
	_, err := lots.CreateLot(ctx, site, entity.LotKindReagent, terminatedRequest("Acetona", "Merck", 10, today))
	require.NoError(t, err)
	_, err = lots.CreateLot(ctx, site, entity.LotKindReagent, reagentRequest("Acetona", "Merck", 25))
	require.NoError(t, err)

	_, err = sweep.RunExpirySweep(ctx, site)
	require.NoError(t, err)
	afterFirst := store.StockRows(site)

	second, err := sweep.RunExpirySweep(ctx, site)

	require.NoError(t, err)
	assert.Zero(t, second.Lots, "un lote ya barrido hoy se omite")
	assert.Equal(t, afterFirst, store.StockRows(site))
	assert.Equal(t, []int64{25}, quantities(afterFirst), "el lote hermano conserva sus existencias")
}

// El barrido agota la cantidad recibida, no la disponible: un lote con salidas registradas
// retira además existencias de filas hermanas de la misma firma.
func TestExpirySweep_AgotaLaCantidadRecibidaNoLaDisponible(t *testing.T) {
	sweep, lots, store := newSweep(t)
	ctx := context.Background()
	terminated, err := lots.CreateLot(ctx, site, entity.LotKindReagent, terminatedRequest("Acetona", "Merck", 50, tomorrow))
	require.NoError(t, err)
	_, err = lots.CreateLot(ctx, site, entity.LotKindReagent, reagentRequest("Acetona", "Merck", 40))
	require.NoError(t, err)
	_, err = lots.UpdateLot(ctx, site, entity.LotKindReagent, terminated.ID, dto.LotPatchRequest{Issued: dec(20)})
	require.NoError(t, err)
	require.Equal(t, []int64{30, 40}, quantities(store.StockRows(site)))

	// la terminación llega hoy sin pasar por la actualización (p. ej. carga directa)
	require.NoError(t, store.Run(ctx, func(repos inventory.TxRepos) error {
		lot, err := repos.Lots.GetForUpdate(ctx, entity.LotKindReagent, site, terminated.ID)
		if err != nil {
			return err
		}
		d := fixedCalendar(t).Today()
		lot.TerminatedAt = &d
		return repos.Lots.Update(ctx, lot)
	}))

	report, err := sweep.RunExpirySweep(ctx, site)

	require.NoError(t, err)
	assert.True(t, report.Depleted.Equal(decimal.NewFromInt(50)), "se retiran 50 recibidos, no 30 disponibles")
	assert.Equal(t, []int64{20}, quantities(store.StockRows(site)))
}

func TestExpirySweep_FaltanteSeReportaSinError(t *testing.T) {
	sweep, lots, store := newSweep(t)
	ctx := context.Background()
	lot, err := lots.CreateLot(ctx, site, entity.LotKindReagent, terminatedRequest("Acetona", "Merck", 10, today))
	require.NoError(t, err)
	rows := store.StockRows(site)
	require.Len(t, rows, 1)
	require.NoError(t, store.Run(ctx, func(repos inventory.TxRepos) error {
		return repos.Stock.Delete(ctx, site, rows[0].ID)
	}))

	report, err := sweep.RunExpirySweep(ctx, site)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Lots)
	assert.True(t, report.Unsatisfied.Equal(decimal.NewFromInt(10)))
	got, err := store.Lots().GetByID(ctx, entity.LotKindReagent, site, lot.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SweptOn)
}

func TestExpirySweep_FalloDeUnLoteNoDetieneLosDemas(t *testing.T) {
	sweep, lots, store := newSweep(t)
	ctx := context.Background()
	first, err := lots.CreateLot(ctx, site, entity.LotKindReagent, terminatedRequest("Acetona", "Merck", 10, today))
	require.NoError(t, err)
	_, err = lots.CreateLot(ctx, site, entity.LotKindSupply, terminatedRequest("Guantes", "3M", 4, today))
	require.NoError(t, err)
	store.Fail = func(op string, id int64) error {
		if op == "lots.MarkSwept" && id == first.ID {
			return errors.New("timeout")
		}
		return nil
	}

	report, err := sweep.RunExpirySweep(ctx, site)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Lots)
	rows := store.StockRows(site)
	require.Len(t, rows, 1, "la fila del lote fallido se conserva por rollback")
	assert.Equal(t, first.ID, rows[0].OriginLotID)

	store.Fail = nil
	retry, err := sweep.RunExpirySweep(ctx, site)
	require.NoError(t, err)
	assert.Equal(t, 1, retry.Lots)
	assert.Empty(t, store.StockRows(site))
}

func TestExpirySweep_OnTick(t *testing.T) {
	sweep, lots, store := newSweep(t)
	ctx := context.Background()
	_, err := lots.CreateLot(ctx, site, entity.LotKindSupply, terminatedRequest("Guantes", "3M", 4, today))
	require.NoError(t, err)

	require.NoError(t, sweep.OnTick(ctx, site))
	assert.Empty(t, store.StockRows(site))
}
