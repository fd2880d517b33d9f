package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jhoicas/kardex-api/internal/application/dto"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/inventory"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
	"github.com/jhoicas/kardex-api/pkg/logger"
)

const meterName = "github.com/jhoicas/kardex-api/internal/application/notification"

// Días de anticipación del aviso de vencimiento.
const expiryWarningDays = 7

// GeneratorUseCase genera avisos de vencimiento y de salida por sede y despacha los pendientes.
type GeneratorUseCase struct {
	lots          repository.LotRepository
	notifications repository.NotificationRepository
	dispatch      *DispatchUseCase
	calendar      inventory.Calendar
	log           *logger.Logger

	createdCounter   metric.Int64Counter
	duplicateCounter metric.Int64Counter
}

// NewGeneratorUseCase construye el generador. dispatch puede ser nil para solo generar.
func NewGeneratorUseCase(
	lots repository.LotRepository,
	notifications repository.NotificationRepository,
	dispatch *DispatchUseCase,
	calendar inventory.Calendar,
	log *logger.Logger,
) *GeneratorUseCase {
	meter := otel.Meter(meterName)
	created, _ := meter.Int64Counter("kardex.notifications.created",
		metric.WithDescription("Notificaciones insertadas"))
	duplicates, _ := meter.Int64Counter("kardex.notifications.duplicates",
		metric.WithDescription("Notificaciones descartadas por la clave única"))
	return &GeneratorUseCase{
		lots:             lots,
		notifications:    notifications,
		dispatch:         dispatch,
		calendar:         calendar,
		log:              log,
		createdCounter:   created,
		duplicateCounter: duplicates,
	}
}

// OnTick genera las notificaciones de la sede y luego despacha las pendientes.
func (uc *GeneratorUseCase) OnTick(ctx context.Context, siteID int64) error {
	_, err := uc.RunNotificationGeneration(ctx, siteID)
	return err
}

// RunNotificationGeneration inserta (con deduplicación) los avisos del día para la sede y
// despacha los no enviados. Un error al insertar una notificación no detiene las demás.
func (uc *GeneratorUseCase) RunNotificationGeneration(ctx context.Context, siteID int64) (dto.GenerationReport, error) {
	report := dto.GenerationReport{SiteID: siteID}
	siteAttr := metric.WithAttributes(attribute.Int64("site_id", siteID))
	var errs []error

	for _, kind := range []entity.LotKind{entity.LotKindReagent, entity.LotKindSupply} {
		lots, err := uc.lots.List(ctx, kind, siteID)
		if err != nil {
			return report, fmt.Errorf("listar lotes (%s): %w", kind, err)
		}
		for _, lot := range lots {
			for _, n := range uc.noticesFor(lot) {
				created, err := uc.notifications.Create(ctx, &n)
				if err != nil {
					uc.log.Error().Err(err).
						Int64("site_id", siteID).
						Int64("lot_id", lot.ID).
						Str("kind", string(n.Kind)).
						Msg("no se pudo registrar la notificación")
					errs = append(errs, err)
					continue
				}
				if created {
					report.Created++
					uc.createdCounter.Add(ctx, 1, siteAttr)
				} else {
					report.Duplicates++
					uc.duplicateCounter.Add(ctx, 1, siteAttr)
				}
			}
		}
	}

	if uc.dispatch != nil {
		sent, err := uc.dispatch.DispatchPending(ctx, siteID)
		if err != nil {
			errs = append(errs, err)
		}
		report.Sent = sent
	}

	uc.log.Debug().
		Int64("site_id", siteID).
		Int("created", report.Created).
		Int("duplicates", report.Duplicates).
		Int("sent", report.Sent).
		Msg("generación de notificaciones completada")
	return report, errors.Join(errs...)
}

// noticesFor devuelve los avisos que corresponden hoy al lote.
func (uc *GeneratorUseCase) noticesFor(lot *entity.Lot) []entity.Notification {
	var out []entity.Notification
	if !lot.ExpiryAt.IsZero() {
		expiry := inventory.DateOf(lot.ExpiryAt)
		switch uc.calendar.DaysUntil(expiry) {
		case expiryWarningDays:
			out = append(out, newNotice(lot, expiringKind(lot.Kind), expiry, expiringSoonMessage(lot)))
		case 0:
			out = append(out, newNotice(lot, expiringKind(lot.Kind), expiry, expiresTodayMessage(lot)))
		}
	}
	if uc.calendar.IsToday(lot.TerminatedAt) {
		out = append(out, newNotice(lot, issuedKind(lot.Kind), uc.calendar.Today(), issuedMessage(lot)))
	}
	return out
}

func newNotice(lot *entity.Lot, kind entity.NotificationKind, day time.Time, msg string) entity.Notification {
	n := entity.Notification{SiteID: lot.SiteID, Kind: kind, EventDate: day, Message: msg}
	if lot.Kind == entity.LotKindSupply {
		n.SupplyLotID = lot.ID
	} else {
		n.ReagentLotID = lot.ID
	}
	return n
}
