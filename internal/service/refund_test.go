package service

import (
	"context"
	"fmt"
	"testing"

	"fulfillment-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefundFullAmount(t *testing.T) {
	store := newMemStore()
	gateway := &stubGateway{}
	publisher := &stubPublisher{}
	ro := NewRefundOrchestrator(store, nil, gateway, publisher)

	orderID := store.seed(paidOrder(1000, models.OrderStatusConfirmed))

	order, err := ro.Refund(context.Background(), orderID, 0, "customer request")
	require.NoError(t, err)

	assert.Equal(t, models.RefundStatusCompleted, order.RefundStatus)
	assert.Equal(t, float64(1000), order.RefundAmount)
	assert.Equal(t, "rfnd_test_1", order.RefundID)
	assert.Equal(t, models.PaymentStatusRefunded, order.PaymentStatus)
	assert.NotNil(t, order.InitiatedAt)
	assert.NotNil(t, order.CompletedAt)
	assert.Equal(t, 1, gateway.callCount())
	assert.Equal(t, 1, publisher.count(models.EventTypeRefundCompleted))

	// the order status itself is untouched by a standalone refund
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
}

func TestRefundPartialAmount(t *testing.T) {
	store := newMemStore()
	ro := NewRefundOrchestrator(store, nil, &stubGateway{}, &stubPublisher{})

	orderID := store.seed(paidOrder(1000, models.OrderStatusDelivered))

	order, err := ro.Refund(context.Background(), orderID, 400, "damaged item")
	require.NoError(t, err)
	assert.Equal(t, float64(400), order.RefundAmount)
	assert.Equal(t, models.RefundStatusCompleted, order.RefundStatus)
}

func TestRefundAmountAboveTotal(t *testing.T) {
	store := newMemStore()
	gateway := &stubGateway{}
	ro := NewRefundOrchestrator(store, nil, gateway, &stubPublisher{})

	orderID := store.seed(paidOrder(1000, models.OrderStatusConfirmed))

	_, err := ro.Refund(context.Background(), orderID, 1500, "too much")
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Zero(t, gateway.callCount())
}

func TestRefundCODNotApplicable(t *testing.T) {
	store := newMemStore()
	gateway := &stubGateway{}
	ro := NewRefundOrchestrator(store, nil, gateway, &stubPublisher{})

	orderID := store.seed(codOrder(1000, models.OrderStatusConfirmed))

	_, err := ro.Refund(context.Background(), orderID, 0, "customer request")
	assert.ErrorIs(t, err, models.ErrNotApplicable)
	assert.Zero(t, gateway.callCount())
}

func TestRefundUnpaidNotApplicable(t *testing.T) {
	store := newMemStore()
	ro := NewRefundOrchestrator(store, nil, &stubGateway{}, &stubPublisher{})

	order := paidOrder(1000, models.OrderStatusPending)
	order.PaymentStatus = models.PaymentStatusPending
	orderID := store.seed(order)

	_, err := ro.Refund(context.Background(), orderID, 0, "customer request")
	assert.ErrorIs(t, err, models.ErrNotApplicable)
}

func TestRefundCompletedNeverRunsTwice(t *testing.T) {
	store := newMemStore()
	gateway := &stubGateway{}
	ro := NewRefundOrchestrator(store, nil, gateway, &stubPublisher{})

	orderID := store.seed(paidOrder(1000, models.OrderStatusConfirmed))
	ctx := context.Background()

	_, err := ro.Refund(ctx, orderID, 0, "first")
	require.NoError(t, err)

	_, err = ro.Refund(ctx, orderID, 0, "second")
	assert.ErrorIs(t, err, models.ErrAlreadyRefunded)
	assert.Equal(t, 1, gateway.callCount())
}

func TestRefundGatewayFailureIsRetryable(t *testing.T) {
	store := newMemStore()
	gateway := &stubGateway{
		failWith: fmt.Errorf("%w: status 502", models.ErrGatewayFailure),
	}
	publisher := &stubPublisher{}
	ro := NewRefundOrchestrator(store, nil, gateway, publisher)

	orderID := store.seed(paidOrder(1000, models.OrderStatusConfirmed))
	ctx := context.Background()

	_, err := ro.Refund(ctx, orderID, 0, "customer request")
	require.ErrorIs(t, err, models.ErrGatewayFailure)
	assert.Equal(t, 1, publisher.count(models.EventTypeRefundFailed))

	order, err := store.GetOrderByID(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusFailed, order.RefundStatus)
	assert.Contains(t, order.RefundError, "502")
	// payment state untouched so a retry can still see it as paid
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)

	// the failed state is not a dead end
	gateway.failWith = nil
	retried, err := ro.Refund(ctx, orderID, 0, "retry")
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusCompleted, retried.RefundStatus)
	assert.Empty(t, retried.RefundError)
}
