package notification

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jhoicas/kardex-api/internal/application/ports"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
	"github.com/jhoicas/kardex-api/pkg/logger"
)

// DispatchUseCase entrega las notificaciones pendientes de una sede a sus suscriptores.
type DispatchUseCase struct {
	notifications repository.NotificationRepository
	subscribers   repository.SubscriberRepository
	dispatcher    ports.Dispatcher
	log           *logger.Logger

	sentCounter   metric.Int64Counter
	failedCounter metric.Int64Counter
}

// NewDispatchUseCase construye el despachador.
func NewDispatchUseCase(
	notifications repository.NotificationRepository,
	subscribers repository.SubscriberRepository,
	dispatcher ports.Dispatcher,
	log *logger.Logger,
) *DispatchUseCase {
	meter := otel.Meter(meterName)
	sent, _ := meter.Int64Counter("kardex.notifications.sent",
		metric.WithDescription("Notificaciones entregadas al despachador"))
	failed, _ := meter.Int64Counter("kardex.notifications.dispatch_failures",
		metric.WithDescription("Envíos fallidos; la notificación queda pendiente"))
	return &DispatchUseCase{
		notifications: notifications,
		subscribers:   subscribers,
		dispatcher:    dispatcher,
		log:           log,
		sentCounter:   sent,
		failedCounter: failed,
	}
}

// DispatchPending envía cada notificación no enviada y la marca como enviada tras un envío exitoso.
// Sin pendientes o sin suscriptores no hace nada. Un envío fallido se registra y la notificación
// queda pendiente para el siguiente ciclo.
func (uc *DispatchUseCase) DispatchPending(ctx context.Context, siteID int64) (int, error) {
	pending, err := uc.notifications.ListUnsent(ctx, siteID)
	if err != nil {
		return 0, fmt.Errorf("listar notificaciones pendientes: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}
	subs, err := uc.subscribers.ListBySite(ctx, siteID)
	if err != nil {
		return 0, fmt.Errorf("listar suscriptores: %w", err)
	}
	if len(subs) == 0 {
		uc.log.Debug().Int64("site_id", siteID).Int("pending", len(pending)).Msg("sede sin suscriptores; no se despacha")
		return 0, nil
	}
	recipients := make([]string, 0, len(subs))
	for _, s := range subs {
		recipients = append(recipients, s.Email)
	}

	siteAttr := metric.WithAttributes(attribute.Int64("site_id", siteID))
	sent := 0
	for _, n := range pending {
		if err := uc.dispatcher.Send(ctx, n, recipients); err != nil {
			uc.failedCounter.Add(ctx, 1, siteAttr)
			uc.log.Warn().Err(err).
				Int64("site_id", siteID).
				Int64("notification_id", n.ID).
				Msg("envío de notificación fallido")
			continue
		}
		if err := uc.notifications.MarkSent(ctx, siteID, n.ID); err != nil {
			return sent, fmt.Errorf("marcar notificación %d como enviada: %w", n.ID, err)
		}
		sent++
		uc.sentCounter.Add(ctx, 1, siteAttr)
	}
	if sent > 0 {
		uc.log.Info().Int64("site_id", siteID).Int("sent", sent).Msg("notificaciones despachadas")
	}
	return sent, nil
}
