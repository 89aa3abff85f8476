package broker

import (
	"context"
	"fmt"

	"fulfillment-service/internal/models"
)

// EventPublisher handles publishing order lifecycle events for downstream
// consumers (storefront, analytics, notifications)
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishStatusChanged publishes OrderStatusChanged event
func (ep *EventPublisher) PublishStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	return ep.producer.PublishEvent(ctx, orderEventKey(event.OrderID), event)
}

// PublishOrderCancelled publishes OrderCancelled event
func (ep *EventPublisher) PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	return ep.producer.PublishEvent(ctx, orderEventKey(event.OrderID), event)
}

// PublishRefundCompleted publishes RefundCompleted event
func (ep *EventPublisher) PublishRefundCompleted(ctx context.Context, event *models.RefundCompletedEvent) error {
	return ep.producer.PublishEvent(ctx, orderEventKey(event.OrderID), event)
}

// PublishRefundFailed publishes RefundFailed event
func (ep *EventPublisher) PublishRefundFailed(ctx context.Context, event *models.RefundFailedEvent) error {
	return ep.producer.PublishEvent(ctx, orderEventKey(event.OrderID), event)
}

// PublishShipmentCreated publishes ShipmentCreated event
func (ep *EventPublisher) PublishShipmentCreated(ctx context.Context, event *models.ShipmentCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, orderEventKey(event.OrderID), event)
}

func orderEventKey(orderID int64) string {
	return fmt.Sprintf("order-%d", orderID)
}
