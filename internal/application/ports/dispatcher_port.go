package ports

import (
	"context"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// Dispatcher define el puerto de salida para entregar notificaciones a los suscriptores.
// Cualquier adaptador (RabbitMQ, log, mock) debe implementar esta interfaz; el transporte
// final (correo) queda fuera de la aplicación.
type Dispatcher interface {
	// Send entrega el mensaje de la notificación a los destinatarios. Un error indica que
	// la notificación debe quedar pendiente para el siguiente ciclo.
	Send(ctx context.Context, n entity.Notification, recipients []string) error
}
