package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jhoicas/kardex-api/internal/application/ports"
	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/pkg/logger"
)

var _ ports.Dispatcher = (*RabbitDispatcher)(nil)

// NotificationMessage cuerpo JSON publicado para el servicio de correo.
type NotificationMessage struct {
	ID           string   `json:"id"`
	Notification int64    `json:"notification_id"`
	SiteID       int64    `json:"site_id"`
	Kind         string   `json:"kind"`
	ReagentLotID int64    `json:"reagent_lot_id,omitempty"`
	SupplyLotID  int64    `json:"supply_lot_id,omitempty"`
	EventDate    string   `json:"event_date"`
	Subject      string   `json:"subject"`
	Message      string   `json:"message"`
	Recipients   []string `json:"recipients"`
	OccurredAt   string   `json:"occurred_at"`
}

// publisher subconjunto de *amqp.Channel usado para publicar.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitDispatcher publica cada notificación en un exchange topic; la clave de enrutamiento es el tipo.
type RabbitDispatcher struct {
	conn     *amqp.Connection
	channel  publisher
	exchange string
	log      *logger.Logger
	now      func() time.Time
	mu       sync.Mutex
}

// NewRabbitDispatcher conecta con RabbitMQ y declara el exchange.
func NewRabbitDispatcher(url, exchange string, log *logger.Logger) (*RabbitDispatcher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	log.Info().Str("exchange", exchange).Msg("connected to RabbitMQ")
	d := newRabbitDispatcher(ch, exchange, log)
	d.conn = conn
	return d, nil
}

func newRabbitDispatcher(ch publisher, exchange string, log *logger.Logger) *RabbitDispatcher {
	return &RabbitDispatcher{channel: ch, exchange: exchange, log: log, now: time.Now}
}

// Send publica la notificación de forma persistente.
func (d *RabbitDispatcher) Send(ctx context.Context, n entity.Notification, recipients []string) error {
	msg := NotificationMessage{
		ID:           uuid.NewString(),
		Notification: n.ID,
		SiteID:       n.SiteID,
		Kind:         string(n.Kind),
		ReagentLotID: n.ReagentLotID,
		SupplyLotID:  n.SupplyLotID,
		EventDate:    n.EventDate.Format(time.DateOnly),
		Subject:      MailSubject,
		Message:      n.Message,
		Recipients:   recipients,
		OccurredAt:   d.now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	// *amqp.Channel no es seguro para publicaciones concurrentes
	d.mu.Lock()
	defer d.mu.Unlock()
	err = d.channel.PublishWithContext(ctx,
		d.exchange,     // exchange
		string(n.Kind), // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID,
			Timestamp:    d.now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	d.log.Debug().
		Str("routing_key", string(n.Kind)).
		Str("message_id", msg.ID).
		Int64("notification_id", n.ID).
		Msg("notification published")
	return nil
}

// Close cierra la conexión.
func (d *RabbitDispatcher) Close() error {
	if d.conn == nil {
		return nil
	}
	if err := d.conn.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	d.log.Info().Msg("RabbitMQ connection closed")
	return nil
}
