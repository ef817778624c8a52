package gateway

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	domainGateway "github.com/payflowhq/payflow/internal/domain/gateway"
	"github.com/payflowhq/payflow/internal/domain/model"
	"go.uber.org/zap"
)

// ErrCaptureDeclined is returned when the simulated processor declines a
// capture. The caller treats it as a settlement failure, not a system error.
var ErrCaptureDeclined = errors.New("capture declined by processor")

// SimulatedGateway stands in for an external card processor. Authorize
// always succeeds; Capture is declined with the configured probability so
// the failure path stays exercisable in demos and tests.
type SimulatedGateway struct {
	mu          sync.Mutex
	rng         *rand.Rand
	failureRate float64
	logger      *zap.Logger
}

// NewSimulatedGateway creates a simulated gateway. A zero seed derives one
// from the clock; a fixed seed makes runs reproducible.
func NewSimulatedGateway(failureRate float64, seed int64, logger *zap.Logger) *SimulatedGateway {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimulatedGateway{
		rng:         rand.New(rand.NewSource(seed)),
		failureRate: failureRate,
		logger:      logger,
	}
}

// Authorize approves every payment: the balance check is the ledger's job.
func (g *SimulatedGateway) Authorize(ctx context.Context, payment *model.Payment) error {
	return nil
}

// Capture settles the payment, declining at the configured rate.
func (g *SimulatedGateway) Capture(ctx context.Context, payment *model.Payment) error {
	g.mu.Lock()
	roll := g.rng.Float64()
	g.mu.Unlock()

	if roll < g.failureRate {
		g.logger.Debug("Simulated capture decline",
			zap.String("payment_id", payment.ID.String()),
			zap.Float64("roll", roll))
		return ErrCaptureDeclined
	}
	return nil
}

var _ domainGateway.PaymentGateway = (*SimulatedGateway)(nil)
