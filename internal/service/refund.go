package service

import (
	"context"
	"time"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RefundOrchestrator decides refund eligibility, executes the gateway
// call, and records the outcome on the order's refund sub-record.
type RefundOrchestrator struct {
	store          OrderStore
	cache          OrderCache
	gateway        PaymentGateway
	eventPublisher EventPublisher
	logger         *zap.Logger
}

// NewRefundOrchestrator creates a new refund orchestrator
func NewRefundOrchestrator(store OrderStore, cache OrderCache, gateway PaymentGateway, eventPublisher EventPublisher) *RefundOrchestrator {
	return &RefundOrchestrator{
		store:          store,
		cache:          cache,
		gateway:        gateway,
		eventPublisher: eventPublisher,
		logger:         util.NamedLogger("refund"),
	}
}

// Refund runs the eligibility policy and, if eligible, refunds amount
// through the gateway (zero amount means the full order total). The row
// lock is never held across the gateway call: intent is recorded first
// (refund processing), the gateway is called with a bounded timeout, and
// the result is applied as a second mutation. A failed attempt leaves the
// refund retryable and never touches the order status; a completed refund
// can never run twice.
func (ro *RefundOrchestrator) Refund(ctx context.Context, orderID int64, amount float64, reason string) (*models.Order, error) {
	ctx, span := util.StartOrderSpan(ctx, "RefundOrchestrator.Refund", orderID)
	defer span.End()

	order, err := ro.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// fast pre-flight; the store re-runs the same policy under the lock
	if _, err := order.ResolveRefund(amount); err != nil {
		return nil, err
	}

	order, err = ro.store.MarkRefundProcessing(ctx, orderID, amount, reason)
	if err != nil {
		return nil, err
	}
	ro.invalidate(ctx, orderID)

	util.RefundsInitiatedTotal.Inc()
	ro.logger.Info("Refund initiated",
		zap.Int64("order_id", orderID),
		zap.Float64("amount", order.RefundAmount),
		zap.String("reason", reason))

	gatewayRefund, err := ro.gateway.Refund(ctx, order.TransactionID, order.RefundAmount, reason)
	if err != nil {
		util.RefundsFailedTotal.Inc()
		ro.logger.Error("Gateway refund failed",
			zap.Int64("order_id", orderID), zap.Error(err))

		if _, markErr := ro.store.MarkRefundFailed(ctx, orderID, err.Error()); markErr != nil {
			ro.logger.Error("Failed to record refund failure",
				zap.Int64("order_id", orderID), zap.Error(markErr))
		}
		ro.invalidate(ctx, orderID)

		ro.publishFailed(ctx, orderID, err.Error())
		return nil, err
	}

	order, err = ro.store.MarkRefundCompleted(ctx, orderID, gatewayRefund.RefundID, order.RefundAmount)
	if err != nil {
		return nil, err
	}
	ro.invalidate(ctx, orderID)

	util.RefundsCompletedTotal.Inc()
	ro.logger.Info("Refund completed",
		zap.Int64("order_id", orderID),
		zap.String("refund_id", gatewayRefund.RefundID),
		zap.Float64("amount", order.RefundAmount))

	event := &models.RefundCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeRefundCompleted,
			Timestamp: time.Now(),
		},
		OrderID:  orderID,
		RefundID: gatewayRefund.RefundID,
		Amount:   order.RefundAmount,
		Reason:   reason,
	}
	if err := ro.eventPublisher.PublishRefundCompleted(ctx, event); err != nil {
		ro.logger.Error("Failed to publish RefundCompleted event",
			zap.Int64("order_id", orderID), zap.Error(err))
	}

	return order, nil
}

func (ro *RefundOrchestrator) publishFailed(ctx context.Context, orderID int64, reason string) {
	event := &models.RefundFailedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeRefundFailed,
			Timestamp: time.Now(),
		},
		OrderID: orderID,
		Reason:  reason,
	}
	if err := ro.eventPublisher.PublishRefundFailed(ctx, event); err != nil {
		ro.logger.Error("Failed to publish RefundFailed event",
			zap.Int64("order_id", orderID), zap.Error(err))
	}
}

func (ro *RefundOrchestrator) invalidate(ctx context.Context, orderID int64) {
	if ro.cache == nil {
		return
	}
	if err := ro.cache.InvalidateOrder(ctx, orderID); err != nil {
		ro.logger.Warn("Failed to invalidate order cache",
			zap.Int64("order_id", orderID), zap.Error(err))
	}
}
