package messaging

import (
	"context"
	"strings"

	"github.com/jhoicas/kardex-api/internal/application/ports"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/pkg/logger"
)

var _ ports.Dispatcher = (*LogDispatcher)(nil)

// LogDispatcher registra las notificaciones en el log; se usa cuando no hay RABBITMQ_URL.
type LogDispatcher struct {
	log *logger.Logger
}

// NewLogDispatcher construye el despachador de log.
func NewLogDispatcher(log *logger.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

// Send nunca falla.
func (d *LogDispatcher) Send(_ context.Context, n entity.Notification, recipients []string) error {
	d.log.Info().
		Int64("site_id", n.SiteID).
		Int64("notification_id", n.ID).
		Str("subject", MailSubject).
		Str("to", strings.Join(recipients, ",")).
		Msg(n.Message)
	return nil
}

// MailSubject asunto común de los correos de notificación.
const MailSubject = "Notificación del Sistema Kardex"
