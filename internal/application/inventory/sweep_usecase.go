package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jhoicas/kardex-api/internal/application/dto"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/inventory"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
	"github.com/jhoicas/kardex-api/pkg/logger"
)

const meterName = "github.com/jhoicas/kardex-api/internal/application/inventory"

// ExpirySweepUseCase retira de la proyección los lotes cuya fecha de terminación es hoy.
// Cada lote se concilia en su propia transacción; el fallo de uno no detiene el resto.
type ExpirySweepUseCase struct {
	txRunner TxRunner
	lots     repository.LotRepository
	calendar inventory.Calendar
	log      *logger.Logger

	sweptCounter       metric.Int64Counter
	failedCounter      metric.Int64Counter
	unsatisfiedCounter metric.Float64Counter
}

// NewExpirySweepUseCase construye el barrido. Los contadores se registran en el MeterProvider global.
func NewExpirySweepUseCase(
	txRunner TxRunner,
	lots repository.LotRepository,
	calendar inventory.Calendar,
	log *logger.Logger,
) *ExpirySweepUseCase {
	meter := otel.Meter(meterName)
	swept, _ := meter.Int64Counter("kardex.sweep.lots",
		metric.WithDescription("Lotes terminados retirados de existencias"))
	failed, _ := meter.Int64Counter("kardex.sweep.failures",
		metric.WithDescription("Lotes cuyo barrido falló"))
	unsatisfied, _ := meter.Float64Counter("kardex.sweep.unsatisfied",
		metric.WithDescription("Cantidad que el barrido no encontró en existencias"))
	return &ExpirySweepUseCase{
		txRunner:           txRunner,
		lots:               lots,
		calendar:           calendar,
		log:                log,
		sweptCounter:       swept,
		failedCounter:      failed,
		unsatisfiedCounter: unsatisfied,
	}
}

// OnTick ejecuta el barrido de la sede; lo invoca el planificador.
func (uc *ExpirySweepUseCase) OnTick(ctx context.Context, siteID int64) error {
	_, err := uc.RunExpirySweep(ctx, siteID)
	return err
}

// RunExpirySweep recorre los lotes de reactivos e insumos terminados hoy y agota en FIFO
// la cantidad recibida de cada uno sobre las filas de su firma. Un lote ya barrido hoy se omite.
func (uc *ExpirySweepUseCase) RunExpirySweep(ctx context.Context, siteID int64) (dto.SweepReport, error) {
	runID := uuid.NewString()
	today := uc.calendar.Today()
	report := dto.SweepReport{SiteID: siteID, Depleted: decimal.Zero, Unsatisfied: decimal.Zero}
	siteAttr := metric.WithAttributes(attribute.Int64("site_id", siteID))

	for _, kind := range []entity.LotKind{entity.LotKindReagent, entity.LotKindSupply} {
		lots, err := uc.lots.ListTerminatedOn(ctx, kind, siteID, today)
		if err != nil {
			return report, fmt.Errorf("listar lotes terminados (%s): %w", kind, err)
		}
		for _, lot := range lots {
			alloc, swept, err := uc.sweepLot(ctx, lot, today)
			if err != nil {
				report.Failed++
				uc.failedCounter.Add(ctx, 1, siteAttr)
				uc.log.Error().Err(err).
					Str("run_id", runID).
					Int64("site_id", siteID).
					Int64("lot_id", lot.ID).
					Str("kind", string(kind)).
					Msg("barrido de lote fallido")
				continue
			}
			if !swept {
				continue
			}
			report.Lots++
			report.RowsDeleted += len(alloc.Deleted)
			report.Depleted = report.Depleted.Add(alloc.Depleted)
			report.Unsatisfied = report.Unsatisfied.Add(alloc.Unsatisfied)
			uc.sweptCounter.Add(ctx, 1, siteAttr)
			if alloc.Unsatisfied.IsPositive() {
				uc.unsatisfiedCounter.Add(ctx, alloc.Unsatisfied.InexactFloat64(), siteAttr)
				uc.log.Warn().
					Str("run_id", runID).
					Int64("site_id", siteID).
					Int64("lot_id", lot.ID).
					Str("kind", string(kind)).
					Str("unsatisfied", alloc.Unsatisfied.String()).
					Msg("existencias insuficientes en barrido")
			}
		}
	}

	uc.log.Info().
		Str("run_id", runID).
		Int64("site_id", siteID).
		Int("lots", report.Lots).
		Int("failed", report.Failed).
		Str("depleted", report.Depleted.String()).
		Msg("barrido de terminación completado")
	return report, nil
}

// sweepLot bloquea el lote y las filas de su firma y aplica el agotamiento.
// swept es false si el lote desapareció, cambió de fecha o ya se barrió hoy.
func (uc *ExpirySweepUseCase) sweepLot(ctx context.Context, lot *entity.Lot, today time.Time) (inventory.Allocation, bool, error) {
	var (
		alloc inventory.Allocation
		swept bool
	)
	err := uc.txRunner.Run(ctx, func(repos TxRepos) error {
		current, err := repos.Lots.GetForUpdate(ctx, lot.Kind, lot.SiteID, lot.ID)
		if err != nil {
			return err
		}
		if current == nil || !uc.calendar.IsToday(current.TerminatedAt) {
			return nil
		}
		if current.SweptOn != nil && inventory.DateOf(*current.SweptOn).Equal(today) {
			return nil
		}
		rows, err := repos.Stock.LockByKey(ctx, current.Signature())
		if err != nil {
			return err
		}
		alloc = inventory.Deplete(rows, current.Received)
		if err := ApplyAllocation(ctx, repos.Stock, current.SiteID, alloc); err != nil {
			return err
		}
		if err := repos.Lots.MarkSwept(ctx, current.Kind, current.SiteID, current.ID, today); err != nil {
			return err
		}
		swept = true
		return nil
	})
	if err != nil {
		return inventory.Allocation{}, false, err
	}
	return alloc, swept, nil
}
