package gateway

import (
	"context"

	"github.com/payflowhq/payflow/internal/domain/model"
)

// PaymentGateway is the capability the payment core uses to clear funds with
// an external processor. Authorize runs before any money moves; Capture runs
// during settlement. Either may decline, which the state machine maps to the
// failed status.
type PaymentGateway interface {
	Authorize(ctx context.Context, payment *model.Payment) error
	Capture(ctx context.Context, payment *model.Payment) error
}
