package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

var (
	_ repository.NotificationRepository = (*NotificationRepo)(nil)
	_ repository.SubscriberRepository   = (*SubscriberRepo)(nil)
)

// NotificationRepo implementación de NotificationRepository sobre PostgreSQL.
type NotificationRepo struct {
	q Querier
}

// NewNotificationRepository construye el adaptador de notificaciones.
func NewNotificationRepository(q Querier) *NotificationRepo {
	return &NotificationRepo{q: q}
}

const notificationColumns = `id, site_id, kind, reagent_lot_id, supply_lot_id, event_date, message, read, sent, created_at`

// Create inserta la notificación; la clave única descarta duplicados sin error.
func (r *NotificationRepo) Create(ctx context.Context, n *entity.Notification) (bool, error) {
	query := `
		INSERT INTO notifications (site_id, kind, reagent_lot_id, supply_lot_id, event_date, message)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT uniq_notification DO NOTHING
		RETURNING id, created_at`
	err := r.q.QueryRow(ctx, query,
		n.SiteID, string(n.Kind), n.ReagentLotID, n.SupplyLotID, dateOnly(&n.EventDate), n.Message,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("create notification: %w", err)
	}
	return true, nil
}

func (r *NotificationRepo) list(ctx context.Context, where string, args ...any) ([]entity.Notification, error) {
	rows, err := r.q.Query(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []entity.Notification
	for rows.Next() {
		var n entity.Notification
		var kind string
		if err := rows.Scan(&n.ID, &n.SiteID, &kind, &n.ReagentLotID, &n.SupplyLotID, &n.EventDate,
			&n.Message, &n.Read, &n.Sent, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Kind = entity.NotificationKind(kind)
		out = append(out, n)
	}
	return out, rows.Err()
}

// ListUnsent pendientes de envío, en orden de creación.
func (r *NotificationRepo) ListUnsent(ctx context.Context, siteID int64) ([]entity.Notification, error) {
	return r.list(ctx, `site_id = $1 AND NOT sent ORDER BY id`, siteID)
}

// ListUnread no leídas, más recientes primero.
func (r *NotificationRepo) ListUnread(ctx context.Context, siteID int64) ([]entity.Notification, error) {
	return r.list(ctx, `site_id = $1 AND NOT read ORDER BY id DESC`, siteID)
}

// MarkSent marca la notificación como enviada.
func (r *NotificationRepo) MarkSent(ctx context.Context, siteID, id int64) error {
	if _, err := r.q.Exec(ctx, `UPDATE notifications SET sent = true WHERE site_id = $1 AND id = $2`, siteID, id); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

// MarkRead marca la notificación como leída; false si no existe en la sede.
func (r *NotificationRepo) MarkRead(ctx context.Context, siteID, id int64) (bool, error) {
	tag, err := r.q.Exec(ctx, `UPDATE notifications SET read = true WHERE site_id = $1 AND id = $2`, siteID, id)
	if err != nil {
		return false, fmt.Errorf("mark read: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SubscriberRepo implementación de SubscriberRepository sobre PostgreSQL.
type SubscriberRepo struct {
	q Querier
}

// NewSubscriberRepository construye el adaptador de suscripciones.
func NewSubscriberRepository(q Querier) *SubscriberRepo {
	return &SubscriberRepo{q: q}
}

// ListBySite correos suscritos a la sede.
func (r *SubscriberRepo) ListBySite(ctx context.Context, siteID int64) ([]entity.Subscriber, error) {
	rows, err := r.q.Query(ctx, `SELECT id, site_id, email FROM subscriptions WHERE site_id = $1 ORDER BY id`, siteID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []entity.Subscriber
	for rows.Next() {
		var s entity.Subscriber
		if err := rows.Scan(&s.ID, &s.SiteID, &s.Email); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
