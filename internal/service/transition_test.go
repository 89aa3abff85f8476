package service

import (
	"context"
	"testing"

	"fulfillment-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionForwardFlow(t *testing.T) {
	store := newMemStore()
	publisher := &stubPublisher{}
	engine := NewTransitionEngine(store, nil, publisher)

	orderID := store.seed(paidOrder(250, models.OrderStatusPending))
	ctx := context.Background()

	res, err := engine.Transition(ctx, orderID, models.OrderStatusConfirmed, "payment verified")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, models.OrderStatusConfirmed, res.Order.Status)
	assert.Equal(t, int64(250), res.PointsEarned)

	res, err = engine.Transition(ctx, orderID, models.OrderStatusShipped, "")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, res.Order.Status)

	assert.Equal(t, 2, publisher.count(models.EventTypeOrderStatusChanged))
}

func TestTransitionSameStatusNoOp(t *testing.T) {
	store := newMemStore()
	publisher := &stubPublisher{}
	engine := NewTransitionEngine(store, nil, publisher)

	orderID := store.seed(paidOrder(250, models.OrderStatusProcessing))
	ctx := context.Background()

	res, err := engine.Transition(ctx, orderID, models.OrderStatusProcessing, "dup click")
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, int64(0), res.PointsEarned)

	// no-op leaves no timeline entry and publishes nothing
	timeline, err := store.GetTimeline(ctx, orderID)
	require.NoError(t, err)
	assert.Empty(t, timeline)
	assert.Zero(t, publisher.count(models.EventTypeOrderStatusChanged))
}

func TestTransitionBackwardRejected(t *testing.T) {
	store := newMemStore()
	engine := NewTransitionEngine(store, nil, &stubPublisher{})

	orderID := store.seed(paidOrder(250, models.OrderStatusShipped))

	_, err := engine.Transition(context.Background(), orderID, models.OrderStatusConfirmed, "")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestTransitionUnknownStatus(t *testing.T) {
	store := newMemStore()
	engine := NewTransitionEngine(store, nil, &stubPublisher{})

	orderID := store.seed(paidOrder(250, models.OrderStatusPending))

	_, err := engine.Transition(context.Background(), orderID, "returned", "")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestTransitionOrderNotFound(t *testing.T) {
	engine := NewTransitionEngine(newMemStore(), nil, &stubPublisher{})

	_, err := engine.Transition(context.Background(), 42, models.OrderStatusConfirmed, "")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestLoyaltyAccruesOncePerOrder(t *testing.T) {
	store := newMemStore()
	engine := NewTransitionEngine(store, nil, &stubPublisher{})

	order := paidOrder(250, models.OrderStatusPending)
	orderID := store.seed(order)
	ctx := context.Background()

	res, err := engine.Transition(ctx, orderID, models.OrderStatusConfirmed, "")
	require.NoError(t, err)
	assert.Equal(t, int64(250), res.PointsEarned)

	// later forward transitions re-propose purchase points but the guard
	// holds; only the delivery bonus is new
	res, err = engine.Transition(ctx, orderID, models.OrderStatusDelivered, "")
	require.NoError(t, err)
	assert.Equal(t, int64(25), res.PointsEarned)
	require.Len(t, res.Credited, 1)
	assert.Equal(t, models.AccrualDeliveryBonus, res.Credited[0].Kind)

	customer, err := store.GetCustomer(ctx, order.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, int64(275), customer.LoyaltyPoints)
}

func TestLoyaltySkipToDelivered(t *testing.T) {
	store := newMemStore()
	engine := NewTransitionEngine(store, nil, &stubPublisher{})

	order := codOrder(250, models.OrderStatusPending)
	orderID := store.seed(order)

	// a single jump to delivered earns both credits at once
	res, err := engine.Transition(context.Background(), orderID, models.OrderStatusDelivered, "")
	require.NoError(t, err)
	assert.Equal(t, int64(275), res.PointsEarned)
	assert.Len(t, res.Credited, 2)

	customer, err := store.GetCustomer(context.Background(), order.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, int64(275), customer.LoyaltyPoints)
}

func TestCancellationEarnsNoPoints(t *testing.T) {
	store := newMemStore()
	engine := NewTransitionEngine(store, nil, &stubPublisher{})

	order := paidOrder(250, models.OrderStatusPending)
	orderID := store.seed(order)

	res, err := engine.Transition(context.Background(), orderID, models.OrderStatusCancelled, "changed my mind")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, int64(0), res.PointsEarned)

	customer, err := store.GetCustomer(context.Background(), order.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), customer.LoyaltyPoints)
}
