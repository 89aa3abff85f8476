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

// carrierStatusMap translates the carrier's status vocabulary into order
// statuses. Anything absent is ignored by the sync path.
var carrierStatusMap = map[string]models.OrderStatus{
	"PICKUP_SCHEDULED": models.OrderStatusProcessing,
	"PICKED_UP":        models.OrderStatusShipped,
	"IN_TRANSIT":       models.OrderStatusShipped,
	"OUT_FOR_DELIVERY": models.OrderStatusShipped,
	"DELIVERED":        models.OrderStatusDelivered,
	"CANCELED":         models.OrderStatusCancelled,
	"CANCELLED":        models.OrderStatusCancelled,
}

// MapCarrierStatus translates one carrier status; ok is false for
// vocabulary this service does not track
func MapCarrierStatus(carrierStatus string) (models.OrderStatus, bool) {
	status, ok := carrierStatusMap[carrierStatus]
	return status, ok
}

// ShipmentReconciler creates carrier shipments and keeps order status in
// sync with the carrier's authoritative view. Both the periodic poll and
// the admin's manual sync button run the same idempotent path.
type ShipmentReconciler struct {
	store          OrderStore
	carrier        CarrierClient
	engine         *TransitionEngine
	cancellations  *CancellationWorkflow
	cache          OrderCache
	locker         Locker
	lockTTL        time.Duration
	eventPublisher EventPublisher
	logger         *zap.Logger
}

// NewShipmentReconciler creates a new shipment reconciler
func NewShipmentReconciler(
	store OrderStore,
	carrier CarrierClient,
	engine *TransitionEngine,
	cancellations *CancellationWorkflow,
	cache OrderCache,
	locker Locker,
	lockTTL time.Duration,
	eventPublisher EventPublisher,
) *ShipmentReconciler {
	return &ShipmentReconciler{
		store:          store,
		carrier:        carrier,
		engine:         engine,
		cancellations:  cancellations,
		cache:          cache,
		locker:         locker,
		lockTTL:        lockTTL,
		eventPublisher: eventPublisher,
		logger:         util.NamedLogger("shipment"),
	}
}

// CreateShipment registers the order with the carrier once; a second call
// after an AWB exists is AlreadyExists
func (sr *ShipmentReconciler) CreateShipment(ctx context.Context, orderID int64) (*models.Shipment, error) {
	ctx, span := util.StartOrderSpan(ctx, "ShipmentReconciler.CreateShipment", orderID)
	defer span.End()

	order, err := sr.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.AWB != "" {
		return nil, fmt.Errorf("%w: awb %s", models.ErrAlreadyExists, order.AWB)
	}
	if order.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: cannot ship %s order", models.ErrValidation, order.Status)
	}

	items, err := sr.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}

	shipment, err := sr.carrier.CreateShipment(ctx, order, items)
	if err != nil {
		sr.logger.Error("Carrier shipment creation failed",
			zap.Int64("order_id", orderID), zap.Error(err))
		return nil, err
	}

	// re-checked under the row lock; a concurrent create loses here
	if _, err := sr.store.SetShipment(ctx, orderID, *shipment); err != nil {
		return nil, err
	}
	sr.invalidate(ctx, orderID)

	util.ShipmentsCreatedTotal.Inc()
	sr.logger.Info("Shipment created",
		zap.Int64("order_id", orderID),
		zap.String("awb", shipment.AWB))

	event := &models.ShipmentCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeShipmentCreated,
			Timestamp: time.Now(),
		},
		OrderID:     orderID,
		ShipmentID:  shipment.ShipmentID,
		AWB:         shipment.AWB,
		TrackingURL: shipment.TrackingURL,
	}
	if err := sr.eventPublisher.PublishShipmentCreated(ctx, event); err != nil {
		sr.logger.Error("Failed to publish ShipmentCreated event",
			zap.Int64("order_id", orderID), zap.Error(err))
	}

	return shipment, nil
}

// SyncStatus pulls the carrier's current status for the order's AWB and
// feeds any change through the transition engine. A carrier-side
// cancellation routes through the cancellation workflow so refund
// eligibility is still evaluated. Safe to invoke repeatedly: an unchanged
// or unknown carrier status is a no-op.
func (sr *ShipmentReconciler) SyncStatus(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := util.StartOrderSpan(ctx, "ShipmentReconciler.SyncStatus", orderID)
	defer span.End()

	order, err := sr.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.AWB == "" {
		return nil, fmt.Errorf("%w: order has no shipment to sync", models.ErrValidation)
	}

	if sr.locker != nil {
		lockKey := fmt.Sprintf("shipment-sync:%d", orderID)
		acquired, err := sr.locker.AcquireLock(ctx, lockKey, sr.lockTTL)
		if err != nil {
			sr.logger.Warn("Sync lock unavailable, proceeding without it",
				zap.Int64("order_id", orderID), zap.Error(err))
		} else if !acquired {
			// another sync is in flight; the path is idempotent so
			// skipping is safe
			util.ShipmentSyncsTotal.WithLabelValues("skipped").Inc()
			return order, nil
		} else {
			defer func() {
				if err := sr.locker.ReleaseLock(ctx, lockKey); err != nil {
					sr.logger.Warn("Failed to release sync lock",
						zap.Int64("order_id", orderID), zap.Error(err))
				}
			}()
		}
	}

	carrierStatus, err := sr.carrier.GetStatus(ctx, order.AWB)
	if err != nil {
		util.ShipmentSyncsTotal.WithLabelValues("carrier_error").Inc()
		return nil, err
	}

	mapped, ok := MapCarrierStatus(carrierStatus)
	if !ok {
		sr.logger.Warn("Unknown carrier status, ignoring",
			zap.Int64("order_id", orderID),
			zap.String("carrier_status", carrierStatus))
		util.ShipmentSyncsTotal.WithLabelValues("unknown_status").Inc()
		return order, nil
	}

	if mapped == order.Status {
		util.ShipmentSyncsTotal.WithLabelValues("noop").Inc()
		return order, nil
	}

	if mapped == models.OrderStatusCancelled {
		result, err := sr.cancellations.Cancel(ctx, orderID,
			fmt.Sprintf("cancelled by carrier (%s)", carrierStatus))
		if err != nil {
			util.ShipmentSyncsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		util.ShipmentSyncsTotal.WithLabelValues("cancelled").Inc()
		return result.Order, nil
	}

	res, err := sr.engine.Transition(ctx, orderID, mapped,
		fmt.Sprintf("carrier status sync: %s", carrierStatus))
	if err != nil {
		util.ShipmentSyncsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	util.ShipmentSyncsTotal.WithLabelValues("updated").Inc()
	return res.Order, nil
}

// SyncOpenShipments runs one reconciliation pass over every order with an
// open shipment; the periodic worker calls this on a fixed interval
func (sr *ShipmentReconciler) SyncOpenShipments(ctx context.Context) {
	orders, err := sr.store.ListOpenShipments(ctx)
	if err != nil {
		sr.logger.Error("Failed to list open shipments", zap.Error(err))
		return
	}

	for _, order := range orders {
		if _, err := sr.SyncStatus(ctx, order.ID); err != nil {
			sr.logger.Error("Shipment sync failed",
				zap.Int64("order_id", order.ID),
				zap.String("awb", order.AWB),
				zap.Error(err))
		}
	}
}

func (sr *ShipmentReconciler) invalidate(ctx context.Context, orderID int64) {
	if sr.cache == nil {
		return
	}
	if err := sr.cache.InvalidateOrder(ctx, orderID); err != nil {
		sr.logger.Warn("Failed to invalidate order cache",
			zap.Int64("order_id", orderID), zap.Error(err))
	}
}
