package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"driveshare-settlement/internal/logger"

	"github.com/shopspring/decimal"
)

// ErrTimeout is returned when the gateway does not answer within the configured bound.
var ErrTimeout = errors.New("refund gateway timed out")

// RefundResult is the gateway's answer to a refund request.
type RefundResult struct {
	Success      bool
	RefundID     string
	ErrorMessage string
}

// RefundGateway moves money back to the renter's original payment.
type RefundGateway interface {
	Refund(ctx context.Context, paymentReference string, amount decimal.Decimal) (RefundResult, error)
}

type timeoutGateway struct {
	next    RefundGateway
	timeout time.Duration
}

// WithTimeout bounds every Refund call. A call that outlives the bound or panics
// yields an error instead of blocking the caller. ErrTimeout is reserved for the
// bound itself; a cancelled caller context yields its own error.
func WithTimeout(next RefundGateway, timeout time.Duration) RefundGateway {
	return &timeoutGateway{next: next, timeout: timeout}
}

type refundOutcome struct {
	result RefundResult
	err    error
}

func (g *timeoutGateway) Refund(parent context.Context, paymentReference string, amount decimal.Decimal) (RefundResult, error) {
	ctx, cancel := context.WithTimeout(parent, g.timeout)
	defer cancel()

	done := make(chan refundOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Refund gateway panicked", "reference", paymentReference, "panic", r)
				done <- refundOutcome{err: fmt.Errorf("refund gateway panic: %v", r)}
			}
		}()
		res, err := g.next.Refund(ctx, paymentReference, amount)
		done <- refundOutcome{result: res, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		if err := parent.Err(); err != nil {
			logger.Warn("Refund gateway call abandoned by caller", "reference", paymentReference, "error", err)
			return RefundResult{}, err
		}
		logger.Warn("Refund gateway call abandoned", "reference", paymentReference, "timeout", g.timeout)
		return RefundResult{}, ErrTimeout
	}
}
