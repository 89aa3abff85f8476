package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransitionEngine is the single authority for order status changes. Both
// operator requests and the shipment reconciler go through it, so every
// applied edge lands in the allowed-successor table, the timeline, and the
// guarded loyalty accrual exactly the same way.
type TransitionEngine struct {
	store          OrderStore
	cache          OrderCache
	eventPublisher EventPublisher
	logger         *zap.Logger
}

// NewTransitionEngine creates a new transition engine
func NewTransitionEngine(store OrderStore, cache OrderCache, eventPublisher EventPublisher) *TransitionEngine {
	return &TransitionEngine{
		store:          store,
		cache:          cache,
		eventPublisher: eventPublisher,
		logger:         util.NamedLogger("transition"),
	}
}

// Transition moves an order to newStatus with note as the timeline
// message. Re-submitting the current status is a no-op success. Loyalty
// credits attach to the transition inside the same transaction, guarded by
// (orderID, kind), so they are applied at most once per order even under
// duplicate or concurrent requests.
func (e *TransitionEngine) Transition(ctx context.Context, orderID int64, newStatus models.OrderStatus, note string) (*models.TransitionResult, error) {
	ctx, span := util.StartOrderSpan(ctx, "TransitionEngine.Transition", orderID)
	defer span.End()

	if !newStatus.IsValid() {
		util.TransitionsRejectedTotal.WithLabelValues("unknown_status").Inc()
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrValidation, newStatus)
	}

	order, err := e.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	oldStatus := order.Status
	accruals := models.AccrualsFor(order.Total, newStatus)

	res, err := e.store.ApplyTransition(ctx, orderID, newStatus, note, accruals)
	if err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			util.TransitionsRejectedTotal.WithLabelValues("invalid_transition").Inc()
		}
		return nil, err
	}

	if !res.Changed {
		e.logger.Info("Status unchanged, no-op",
			zap.Int64("order_id", orderID),
			zap.String("status", string(newStatus)))
		return res, nil
	}

	util.StatusTransitionsTotal.WithLabelValues(string(oldStatus), string(newStatus)).Inc()
	for _, accrual := range res.Credited {
		util.LoyaltyPointsAwardedTotal.WithLabelValues(string(accrual.Kind)).
			Add(float64(accrual.Points))
	}

	e.logger.Info("Order status changed",
		zap.Int64("order_id", orderID),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(newStatus)),
		zap.Int64("points_earned", res.PointsEarned))

	e.invalidate(ctx, orderID)

	event := &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderStatusChanged,
			Timestamp: time.Now(),
		},
		OrderID:      orderID,
		OrderNumber:  res.Order.OrderNumber,
		OldStatus:    oldStatus,
		NewStatus:    newStatus,
		Note:         note,
		PointsEarned: res.PointsEarned,
	}
	if err := e.eventPublisher.PublishStatusChanged(ctx, event); err != nil {
		e.logger.Error("Failed to publish OrderStatusChanged event",
			zap.Int64("order_id", orderID), zap.Error(err))
	}

	return res, nil
}

func (e *TransitionEngine) invalidate(ctx context.Context, orderID int64) {
	if e.cache == nil {
		return
	}
	if err := e.cache.InvalidateOrder(ctx, orderID); err != nil {
		e.logger.Warn("Failed to invalidate order cache",
			zap.Int64("order_id", orderID), zap.Error(err))
	}
}
