package service

import (
	"context"
	"fmt"
	"time"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Refund skip reason codes
const (
	SkipReasonCODOrder = "cod_order"
	SkipReasonNotPaid  = "not_paid"
)

// CancellationWorkflow composes the transition engine and the refund
// orchestrator: cancel first, then refund if the payment was captured
// online. A refund failure never rolls the cancellation back; the order
// must stop being fulfilled regardless of the refund outcome.
type CancellationWorkflow struct {
	store          OrderStore
	engine         *TransitionEngine
	refunds        *RefundOrchestrator
	eventPublisher EventPublisher
	logger         *zap.Logger
}

// NewCancellationWorkflow creates a new cancellation workflow
func NewCancellationWorkflow(store OrderStore, engine *TransitionEngine, refunds *RefundOrchestrator, eventPublisher EventPublisher) *CancellationWorkflow {
	return &CancellationWorkflow{
		store:          store,
		engine:         engine,
		refunds:        refunds,
		eventPublisher: eventPublisher,
		logger:         util.NamedLogger("cancellation"),
	}
}

// Cancel cancels an order with reason as the timeline note. COD and
// unpaid orders skip the refund with a recorded reason code; paid online
// orders are refunded in full.
func (cw *CancellationWorkflow) Cancel(ctx context.Context, orderID int64, reason string) (*models.CancelResult, error) {
	ctx, span := util.StartOrderSpan(ctx, "CancellationWorkflow.Cancel", orderID)
	defer span.End()

	order, err := cw.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case models.OrderStatusCancelled, models.OrderStatusDelivered, models.OrderStatusRefunded:
		return nil, fmt.Errorf("%w: cannot cancel %s order", models.ErrInvalidTransition, order.Status)
	}

	res, err := cw.engine.Transition(ctx, orderID, models.OrderStatusCancelled, reason)
	if err != nil {
		return nil, err
	}
	util.OrdersCancelledTotal.Inc()

	result := &models.CancelResult{Order: res.Order}

	switch {
	case order.Method == models.PaymentMethodCOD:
		result.RefundSkipped = true
		result.SkipReason = SkipReasonCODOrder
	case order.PaymentStatus != models.PaymentStatusPaid:
		result.RefundSkipped = true
		result.SkipReason = SkipReasonNotPaid
	default:
		// zero amount refunds the full order total
		refunded, refundErr := cw.refunds.Refund(ctx, orderID, 0, reason)
		if refundErr != nil {
			// the order stays cancelled; refund is retryable
			cw.logger.Warn("Cancellation succeeded but refund failed",
				zap.Int64("order_id", orderID), zap.Error(refundErr))
			result.RefundErr = refundErr
			if updated, err := cw.store.GetOrderByID(ctx, orderID); err == nil {
				result.Order = updated
			}
		} else {
			result.Order = refunded
		}
	}

	cw.logger.Info("Order cancelled",
		zap.Int64("order_id", orderID),
		zap.String("reason", reason),
		zap.Bool("refund_skipped", result.RefundSkipped),
		zap.String("skip_reason", result.SkipReason))

	event := &models.OrderCancelledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCancelled,
			Timestamp: time.Now(),
		},
		OrderID:       orderID,
		Reason:        reason,
		RefundSkipped: result.RefundSkipped,
		SkipReason:    result.SkipReason,
	}
	if err := cw.eventPublisher.PublishOrderCancelled(ctx, event); err != nil {
		cw.logger.Error("Failed to publish OrderCancelled event",
			zap.Int64("order_id", orderID), zap.Error(err))
	}

	return result, nil
}
