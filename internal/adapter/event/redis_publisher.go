package event

import (
	"context"
	"fmt"
	"time"

	domainEvent "github.com/payflowhq/payflow/internal/domain/event"
	"github.com/payflowhq/payflow/internal/infrastructure/messaging"
	"go.uber.org/zap"
)

const (
	balanceUpdatedEvent       = "balance.updated"
	paymentStatusChangedEvent = "payment.status.updated"

	defaultPublishTimeout = 2 * time.Second
)

// envelope is the wire format on the broadcast channels: the event name plus
// its JSON payload, so one channel can carry multiple event kinds.
type envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// RedisPublisher broadcasts committed ledger events over Redis pub/sub.
// Balance changes go to the account's private channel, status changes to the
// payment's channel. Each publish is bounded by a timeout so a stalled
// broker cannot hold up a request.
type RedisPublisher struct {
	client  messaging.RedisClient
	timeout time.Duration
	logger  *zap.Logger
}

// NewRedisPublisher creates a Redis-backed event publisher
func NewRedisPublisher(client messaging.RedisClient, timeout time.Duration, logger *zap.Logger) *RedisPublisher {
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &RedisPublisher{
		client:  client,
		timeout: timeout,
		logger:  logger,
	}
}

// PublishBalanceUpdated broadcasts a balance change to the account's channel.
func (p *RedisPublisher) PublishBalanceUpdated(ctx context.Context, ev domainEvent.BalanceUpdated) error {
	channel := "customer." + ev.AccountID.String()
	return p.publish(ctx, channel, envelope{Event: balanceUpdatedEvent, Data: ev})
}

// PublishPaymentStatusChanged broadcasts a status change to the payment's channel.
func (p *RedisPublisher) PublishPaymentStatusChanged(ctx context.Context, ev domainEvent.PaymentStatusChanged) error {
	channel := "payment." + ev.PaymentID.String()
	return p.publish(ctx, channel, envelope{Event: paymentStatusChangedEvent, Data: ev})
}

func (p *RedisPublisher) publish(ctx context.Context, channel string, msg envelope) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.client.Publish(ctx, channel, msg); err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", msg.Event, channel, err)
	}

	p.logger.Debug("Published event",
		zap.String("channel", channel),
		zap.String("event", msg.Event))
	return nil
}

var _ domainEvent.Publisher = (*RedisPublisher)(nil)
