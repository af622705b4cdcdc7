package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRefundGateway struct {
	mock.Mock
}

func (m *MockRefundGateway) Refund(ctx context.Context, ref string, amount decimal.Decimal) (RefundResult, error) {
	args := m.Called(ctx, ref, amount)
	return args.Get(0).(RefundResult), args.Error(1)
}

type blockingGateway struct{}

func (blockingGateway) Refund(ctx context.Context, ref string, amount decimal.Decimal) (RefundResult, error) {
	time.Sleep(200 * time.Millisecond)
	return RefundResult{Success: true, RefundID: "late"}, nil
}

type panickingGateway struct{}

func (panickingGateway) Refund(ctx context.Context, ref string, amount decimal.Decimal) (RefundResult, error) {
	panic("nil response body")
}

func TestWithTimeout(t *testing.T) {
	ctx := context.Background()
	amount := decimal.NewFromInt(400)

	t.Run("PassesThrough", func(t *testing.T) {
		inner := new(MockRefundGateway)
		inner.On("Refund", mock.Anything, "PAY-1", amount).Return(RefundResult{Success: true, RefundID: "rf-1"}, nil)

		res, err := WithTimeout(inner, time.Second).Refund(ctx, "PAY-1", amount)
		require.NoError(t, err)
		assert.Equal(t, "rf-1", res.RefundID)
		inner.AssertExpectations(t)
	})

	t.Run("TimesOut", func(t *testing.T) {
		start := time.Now()
		_, err := WithTimeout(blockingGateway{}, 20*time.Millisecond).Refund(ctx, "PAY-1", amount)
		assert.ErrorIs(t, err, ErrTimeout)
		assert.Less(t, time.Since(start), 150*time.Millisecond)
	})

	t.Run("CallerCancelIsNotTimeout", func(t *testing.T) {
		callCtx, cancel := context.WithCancel(ctx)
		time.AfterFunc(10*time.Millisecond, cancel)

		_, err := WithTimeout(blockingGateway{}, time.Second).Refund(callCtx, "PAY-1", amount)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrTimeout)
	})

	t.Run("DetachedContextOutlivesCaller", func(t *testing.T) {
		callCtx, cancel := context.WithCancel(ctx)
		time.AfterFunc(10*time.Millisecond, cancel)

		res, err := WithTimeout(blockingGateway{}, time.Second).Refund(context.WithoutCancel(callCtx), "PAY-1", amount)
		require.NoError(t, err)
		assert.Equal(t, "late", res.RefundID)
	})

	t.Run("RecoversPanic", func(t *testing.T) {
		_, err := WithTimeout(panickingGateway{}, time.Second).Refund(ctx, "PAY-1", amount)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "panic")
	})
}

type fakeCoreClient struct {
	gotOrder string
	gotReq   *coreapi.RefundReq
	resp     *coreapi.RefundResponse
	err      *midtrans.Error
}

func (f *fakeCoreClient) RefundTransaction(param string, req *coreapi.RefundReq) (*coreapi.RefundResponse, *midtrans.Error) {
	f.gotOrder = param
	f.gotReq = req
	return f.resp, f.err
}

func TestMidtransGateway_Refund(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		client := &fakeCoreClient{resp: &coreapi.RefundResponse{StatusCode: "200", RefundKey: "rk-9"}}
		g := &midtransGateway{client: client}

		res, err := g.Refund(ctx, "ORDER-10", decimal.RequireFromString("400000.00"))
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "rk-9", res.RefundID)
		assert.Equal(t, "ORDER-10", client.gotOrder)
		assert.Equal(t, int64(400000), client.gotReq.Amount)
	})

	t.Run("FractionNeverRoundsUp", func(t *testing.T) {
		client := &fakeCoreClient{resp: &coreapi.RefundResponse{StatusCode: "200", RefundKey: "rk-10"}}
		g := &midtransGateway{client: client}

		res, err := g.Refund(ctx, "order-1", decimal.RequireFromString("495.99"))
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, int64(495), client.gotReq.Amount)
	})

	t.Run("BelowOneUnitNotSent", func(t *testing.T) {
		client := &fakeCoreClient{}
		g := &midtransGateway{client: client}

		res, err := g.Refund(ctx, "order-1", decimal.RequireFromString("0.40"))
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.ErrorMessage, "below the smallest gateway unit")
		assert.Nil(t, client.gotReq)
	})

	t.Run("GatewayRejects", func(t *testing.T) {
		client := &fakeCoreClient{err: &midtrans.Error{Message: "Transaction cannot be refunded", StatusCode: 412}}
		g := &midtransGateway{client: client}

		res, err := g.Refund(ctx, "ORDER-10", decimal.NewFromInt(1000))
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "Transaction cannot be refunded", res.ErrorMessage)
	})

	t.Run("UnexpectedStatus", func(t *testing.T) {
		client := &fakeCoreClient{resp: &coreapi.RefundResponse{StatusCode: "412", StatusMessage: "Merchant cannot modify the status"}}
		g := &midtransGateway{client: client}

		res, err := g.Refund(ctx, "ORDER-10", decimal.NewFromInt(1000))
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "Merchant cannot modify the status", res.ErrorMessage)
	})
}
