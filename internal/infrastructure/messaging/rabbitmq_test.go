package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/pkg/logger"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	out []published
	err error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.out = append(f.out, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func sample() entity.Notification {
	return entity.Notification{
		ID:           7,
		SiteID:       1,
		Kind:         entity.NotificationReagentExpiring,
		ReagentLotID: 42,
		EventDate:    time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC),
		Message:      `El reactivo "Acetona" de la casa comercial "Merck" vencerá en 7 días.`,
	}
}

func TestRabbitDispatcher_PublicaMensajePersistente(t *testing.T) {
	ch := &fakeChannel{}
	d := newRabbitDispatcher(ch, "kardex.notifications", logger.Nop())
	d.now = func() time.Time { return time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC) }

	err := d.Send(context.Background(), sample(), []string{"lab@example.com", "jefe@example.com"})

	require.NoError(t, err)
	require.Len(t, ch.out, 1)
	p := ch.out[0]
	assert.Equal(t, "kardex.notifications", p.exchange)
	assert.Equal(t, "reagent_expiring", p.key)
	assert.Equal(t, amqp.Persistent, p.msg.DeliveryMode)
	assert.Equal(t, "application/json", p.msg.ContentType)
	_, err = uuid.Parse(p.msg.MessageId)
	assert.NoError(t, err)

	var body NotificationMessage
	require.NoError(t, json.Unmarshal(p.msg.Body, &body))
	assert.Equal(t, p.msg.MessageId, body.ID)
	assert.Equal(t, int64(7), body.Notification)
	assert.Equal(t, int64(42), body.ReagentLotID)
	assert.Zero(t, body.SupplyLotID)
	assert.Equal(t, "2025-03-17", body.EventDate)
	assert.Equal(t, MailSubject, body.Subject)
	assert.Equal(t, []string{"lab@example.com", "jefe@example.com"}, body.Recipients)
	assert.Equal(t, "2025-03-10T15:00:00Z", body.OccurredAt)
}

func TestRabbitDispatcher_ErrorDePublicacion(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel/connection is not open")}
	d := newRabbitDispatcher(ch, "kardex.notifications", logger.Nop())

	err := d.Send(context.Background(), sample(), []string{"lab@example.com"})

	assert.ErrorContains(t, err, "failed to publish notification")
	assert.NoError(t, d.Close(), "sin conexión real no hay nada que cerrar")
}

func TestLogDispatcher_RegistraElMensaje(t *testing.T) {
	var buf bytes.Buffer
	d := NewLogDispatcher(logger.New(logger.Config{Env: "production", Output: &buf}))

	require.NoError(t, d.Send(context.Background(), sample(), []string{"lab@example.com", "jefe@example.com"}))

	var event map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, sample().Message, event["message"])
	assert.Equal(t, "lab@example.com,jefe@example.com", event["to"])
	assert.Equal(t, float64(7), event["notification_id"])
}
