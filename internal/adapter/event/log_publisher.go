package event

import (
	"context"

	domainEvent "github.com/payflowhq/payflow/internal/domain/event"
	"go.uber.org/zap"
)

// LogPublisher writes events to the service log instead of a broker. It backs
// local runs without Redis and keeps the event path observable in tests.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a log-only event publisher
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) PublishBalanceUpdated(ctx context.Context, ev domainEvent.BalanceUpdated) error {
	p.logger.Info("Balance updated",
		zap.String("account_id", ev.AccountID.String()),
		zap.String("balance", ev.Balance.String()),
		zap.String("change", ev.Change.String()))
	return nil
}

func (p *LogPublisher) PublishPaymentStatusChanged(ctx context.Context, ev domainEvent.PaymentStatusChanged) error {
	p.logger.Info("Payment status changed",
		zap.String("payment_id", ev.PaymentID.String()),
		zap.String("status", string(ev.Status)),
		zap.String("message", ev.Message))
	return nil
}

var _ domainEvent.Publisher = (*LogPublisher)(nil)
