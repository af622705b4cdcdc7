package gateway

import (
	"context"
	"fmt"

	"driveshare-settlement/internal/logger"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/shopspring/decimal"
)

// refundClient is the part of coreapi.Client used for deposit refunds.
type refundClient interface {
	RefundTransaction(param string, req *coreapi.RefundReq) (*coreapi.RefundResponse, *midtrans.Error)
}

type midtransGateway struct {
	client refundClient
}

func NewMidtransGateway(serverKey string, production bool) RefundGateway {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	var c coreapi.Client
	c.New(serverKey, env)
	return &midtransGateway{client: &c}
}

func (g *midtransGateway) Refund(ctx context.Context, paymentReference string, amount decimal.Decimal) (RefundResult, error) {
	if err := ctx.Err(); err != nil {
		return RefundResult{}, err
	}

	// Midtrans takes whole units. The amount sent must not exceed the remaining deposit.
	whole := amount.Truncate(0)
	if !whole.Equal(amount) {
		logger.Warn("Refund amount truncated to whole units", "orderID", paymentReference,
			"amount", amount.String(), "sent", whole.String())
	}
	if !whole.IsPositive() {
		return RefundResult{Success: false, ErrorMessage: fmt.Sprintf("refund amount %s is below the smallest gateway unit", amount.String())}, nil
	}

	req := &coreapi.RefundReq{
		RefundKey: uuid.New().String(),
		Amount:    whole.IntPart(),
		Reason:    "Security deposit refund",
	}
	logger.ExternalServiceCall("Midtrans", "RefundTransaction", "orderID", paymentReference, "amount", req.Amount)

	resp, midErr := g.client.RefundTransaction(paymentReference, req)
	if midErr != nil {
		err := fmt.Errorf("midtrans error: %s", midErr.GetMessage())
		logger.ExternalServiceResult("Midtrans", "RefundTransaction", err, "orderID", paymentReference)
		return RefundResult{Success: false, ErrorMessage: midErr.GetMessage()}, nil
	}
	logger.ExternalServiceResult("Midtrans", "RefundTransaction", nil, "orderID", paymentReference, "status", resp.StatusCode)

	switch resp.StatusCode {
	case "200", "201":
		refundID := resp.RefundKey
		if refundID == "" {
			refundID = req.RefundKey
		}
		return RefundResult{Success: true, RefundID: refundID}, nil
	default:
		return RefundResult{Success: false, ErrorMessage: resp.StatusMessage}, nil
	}
}

// sandboxGateway accepts every refund. Used when no payment provider is configured.
type sandboxGateway struct{}

func NewSandboxGateway() RefundGateway {
	return sandboxGateway{}
}

func (sandboxGateway) Refund(ctx context.Context, paymentReference string, amount decimal.Decimal) (RefundResult, error) {
	logger.Info("Sandbox refund accepted", "reference", paymentReference, "amount", amount.String())
	return RefundResult{Success: true, RefundID: "sandbox-" + uuid.New().String()}, nil
}
