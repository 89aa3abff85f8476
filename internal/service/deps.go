package service

import (
	"context"
	"time"

	"fulfillment-service/internal/broker"
	"fulfillment-service/internal/models"
	"fulfillment-service/internal/redisclient"
	"fulfillment-service/internal/store"
)

// OrderStore is the persistence surface the fulfillment services mutate
// orders through. *store.Store implements it; tests use an in-memory fake.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	GetTimeline(ctx context.Context, orderID int64) ([]models.TimelineEntry, error)
	ListOrders(ctx context.Context, status models.OrderStatus, limit int) ([]models.Order, error)
	ListOpenShipments(ctx context.Context) ([]models.Order, error)
	GetCustomer(ctx context.Context, id int64) (*models.Customer, error)

	ApplyTransition(ctx context.Context, orderID int64, newStatus models.OrderStatus, note string, accruals []models.Accrual) (*models.TransitionResult, error)
	MarkRefundProcessing(ctx context.Context, orderID int64, amount float64, reason string) (*models.Order, error)
	MarkRefundCompleted(ctx context.Context, orderID int64, refundID string, amount float64) (*models.Order, error)
	MarkRefundFailed(ctx context.Context, orderID int64, errMsg string) (*models.Order, error)
	SetShipment(ctx context.Context, orderID int64, shipment models.Shipment) (*models.Order, error)
	SetInvoiceNumber(ctx context.Context, orderID int64, invoiceNo string) (*models.Order, error)
}

// EventPublisher publishes order lifecycle events; publish failures are
// logged, never fail the mutation
type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error
	PublishRefundCompleted(ctx context.Context, event *models.RefundCompletedEvent) error
	PublishRefundFailed(ctx context.Context, event *models.RefundFailedEvent) error
	PublishShipmentCreated(ctx context.Context, event *models.ShipmentCreatedEvent) error
}

// OrderCache is the read-path cache; every mutation invalidates
type OrderCache interface {
	CacheOrder(ctx context.Context, order *models.Order, ttl time.Duration) error
	GetCachedOrder(ctx context.Context, orderID int64) (*models.Order, error)
	InvalidateOrder(ctx context.Context, orderID int64) error
}

// Locker hands out short-TTL locks so overlapping shipment syncs for the
// same order collapse to one
type Locker interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

var (
	_ OrderStore     = (*store.Store)(nil)
	_ EventPublisher = (*broker.EventPublisher)(nil)
	_ OrderCache     = (*redisclient.Client)(nil)
	_ Locker         = (*redisclient.Client)(nil)
)
