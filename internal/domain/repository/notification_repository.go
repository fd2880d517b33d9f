package repository

import (
	"context"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// NotificationRepository persistencia de notificaciones con deduplicación.
type NotificationRepository interface {
	// Create inserta la notificación; devuelve false (sin error) si colisiona con la clave única.
	Create(ctx context.Context, n *entity.Notification) (bool, error)
	ListUnsent(ctx context.Context, siteID int64) ([]entity.Notification, error)
	ListUnread(ctx context.Context, siteID int64) ([]entity.Notification, error)
	MarkSent(ctx context.Context, siteID, id int64) error
	// MarkRead devuelve false si la notificación no existe en la sede.
	MarkRead(ctx context.Context, siteID, id int64) (bool, error)
}

// SubscriberRepository correos suscritos por sede.
type SubscriberRepository interface {
	ListBySite(ctx context.Context, siteID int64) ([]entity.Subscriber, error)
}
