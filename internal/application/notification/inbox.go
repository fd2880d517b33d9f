package notification

import (
	"context"

	"github.com/jhoicas/kardex-api/internal/domain"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

// InboxUseCase consulta y marca como leídas las notificaciones de una sede.
type InboxUseCase struct {
	notifications repository.NotificationRepository
}

// NewInboxUseCase construye el caso de uso.
func NewInboxUseCase(notifications repository.NotificationRepository) *InboxUseCase {
	return &InboxUseCase{notifications: notifications}
}

// ListUnread devuelve las notificaciones no leídas, más recientes primero.
func (uc *InboxUseCase) ListUnread(ctx context.Context, siteID int64) ([]entity.Notification, error) {
	return uc.notifications.ListUnread(ctx, siteID)
}

// MarkRead marca la notificación como leída; domain.ErrNotFound si no pertenece a la sede.
func (uc *InboxUseCase) MarkRead(ctx context.Context, siteID, id int64) error {
	ok, err := uc.notifications.MarkRead(ctx, siteID, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}
