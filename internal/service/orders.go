package service

import (
	"context"
	"fmt"
	"time"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/util"

	"go.uber.org/zap"
)

const orderCacheTTL = 30 * time.Second

// OrderService covers the read side of the admin screens plus the order
// intake used by the checkout collaborator
type OrderService struct {
	store  OrderStore
	cache  OrderCache
	logger *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store OrderStore, cache OrderCache) *OrderService {
	return &OrderService{
		store:  store,
		cache:  cache,
		logger: util.NamedLogger("orders"),
	}
}

// CreateOrderRequest is the checkout collaborator's intake payload
type CreateOrderRequest struct {
	OrderNumber  string             `json:"order_number" binding:"required"`
	CustomerID   int64              `json:"customer_id" binding:"required"`
	CustomerTier models.LoyaltyTier `json:"customer_tier"`
	Items        []OrderItemRequest `json:"items" binding:"required,min=1"`

	Subtotal     float64 `json:"subtotal"`
	Tax          float64 `json:"tax"`
	ShippingCost float64 `json:"shipping_cost"`
	Total        float64 `json:"total" binding:"required"`

	PaymentMethod models.PaymentMethod `json:"payment_method" binding:"required"`
	// Paid marks a prepaid-confirmed checkout; the order enters with
	// payment captured
	Paid          bool   `json:"paid"`
	TransactionID string `json:"transaction_id"`
}

// OrderItemRequest is one line of the intake payload
type OrderItemRequest struct {
	ProductID int64   `json:"product_id" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,min=1"`
	UnitPrice float64 `json:"unit_price"`
	Size      string  `json:"size"`
	Color     string  `json:"color"`
}

// CreateOrder validates the monetary invariant and persists a new order
// in pending status
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	paymentStatus := models.PaymentStatusPending
	if req.Paid {
		paymentStatus = models.PaymentStatusPaid
	}
	tier := req.CustomerTier
	if tier == "" {
		tier = models.TierBronze
	}

	order := &models.Order{
		OrderNumber:  req.OrderNumber,
		CustomerID:   req.CustomerID,
		CustomerTier: tier,
		Status:       models.OrderStatusPending,
		Subtotal:     req.Subtotal,
		Tax:          req.Tax,
		ShippingCost: req.ShippingCost,
		Total:        req.Total,
		Payment: models.Payment{
			Method:        req.PaymentMethod,
			PaymentStatus: paymentStatus,
			TransactionID: req.TransactionID,
		},
		Refund: models.Refund{RefundStatus: models.RefundStatusNone},
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	if req.PaymentMethod == models.PaymentMethodRazorpay && req.Paid && req.TransactionID == "" {
		return nil, fmt.Errorf("%w: paid razorpay order requires a transaction id", models.ErrValidation)
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, models.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Size:      item.Size,
			Color:     item.Color,
		})
	}

	if err := s.store.CreateOrder(ctx, order, items); err != nil {
		return nil, err
	}

	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Float64("total", order.Total))
	return order, nil
}

// GetOrder retrieves an order, serving repeat reads from the cache
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	if s.cache != nil {
		cached, err := s.cache.GetCachedOrder(ctx, orderID)
		if err != nil {
			s.logger.Warn("Order cache read failed",
				zap.Int64("order_id", orderID), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.CacheOrder(ctx, order, orderCacheTTL); err != nil {
			s.logger.Warn("Order cache write failed",
				zap.Int64("order_id", orderID), zap.Error(err))
		}
	}
	return order, nil
}

// GetOrderDetail retrieves an order with its items and timeline
func (s *OrderService) GetOrderDetail(ctx context.Context, orderID int64) (*models.Order, []models.OrderItem, []models.TimelineEntry, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, nil, err
	}

	items, err := s.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, nil, nil, err
	}

	timeline, err := s.store.GetTimeline(ctx, orderID)
	if err != nil {
		return nil, nil, nil, err
	}

	return order, items, timeline, nil
}

// GetTimeline retrieves the status history of an order
func (s *OrderService) GetTimeline(ctx context.Context, orderID int64) ([]models.TimelineEntry, error) {
	if _, err := s.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.store.GetTimeline(ctx, orderID)
}

// ListOrders retrieves orders for the admin list view
func (s *OrderService) ListOrders(ctx context.Context, status models.OrderStatus, limit int) ([]models.Order, error) {
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrValidation, status)
	}
	return s.store.ListOrders(ctx, status, limit)
}
