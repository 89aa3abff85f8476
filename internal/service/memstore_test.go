package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fulfillment-service/internal/models"
)

// memStore is an in-memory OrderStore for unit tests. It mirrors the SQL
// store's transactional semantics: same-status no-op, edge validation,
// guarded accruals, refund policy re-run on the current row.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	orders    map[int64]*models.Order
	items     map[int64][]models.OrderItem
	timeline  map[int64][]models.TimelineEntry
	customers map[int64]*models.Customer
	accruals  map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		nextID:    1,
		orders:    make(map[int64]*models.Order),
		items:     make(map[int64][]models.OrderItem),
		timeline:  make(map[int64][]models.TimelineEntry),
		customers: make(map[int64]*models.Customer),
		accruals:  make(map[string]bool),
	}
}

// seed inserts an order as-is and returns its id
func (m *memStore) seed(order *models.Order) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	order.ID = m.nextID
	m.nextID++
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	m.orders[order.ID] = order
	if _, ok := m.customers[order.CustomerID]; !ok {
		m.customers[order.CustomerID] = &models.Customer{
			ID:          order.CustomerID,
			LoyaltyTier: order.CustomerTier,
		}
	}
	return order.ID
}

func (m *memStore) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	id := m.seed(order)

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range items {
		items[i].OrderID = id
	}
	m.items[id] = items
	m.timeline[id] = append(m.timeline[id], models.TimelineEntry{
		OrderID:   id,
		Status:    order.Status,
		Message:   "order placed",
		CreatedAt: time.Now(),
	})
	return nil
}

func (m *memStore) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: order %d", models.ErrNotFound, id)
	}
	cp := *order
	return &cp, nil
}

func (m *memStore) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[orderID], nil
}

func (m *memStore) GetTimeline(ctx context.Context, orderID int64) ([]models.TimelineEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeline[orderID], nil
}

func (m *memStore) ListOrders(ctx context.Context, status models.OrderStatus, limit int) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Order
	for _, order := range m.orders {
		if status != "" && order.Status != status {
			continue
		}
		out = append(out, *order)
	}
	return out, nil
}

func (m *memStore) ListOpenShipments(ctx context.Context) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Order
	for _, order := range m.orders {
		if order.AWB != "" && !order.Status.IsTerminal() {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (m *memStore) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	customer, ok := m.customers[id]
	if !ok {
		return nil, fmt.Errorf("%w: customer %d", models.ErrNotFound, id)
	}
	cp := *customer
	return &cp, nil
}

func (m *memStore) ApplyTransition(ctx context.Context, orderID int64, newStatus models.OrderStatus, note string, accruals []models.Accrual) (*models.TransitionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: order %d", models.ErrNotFound, orderID)
	}
	if order.Status == newStatus {
		cp := *order
		return &models.TransitionResult{Order: &cp, Changed: false}, nil
	}
	if !order.Status.CanTransitionTo(newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, order.Status, newStatus)
	}

	order.Status = newStatus
	order.UpdatedAt = time.Now()
	m.timeline[orderID] = append(m.timeline[orderID], models.TimelineEntry{
		OrderID:   orderID,
		Status:    newStatus,
		Message:   note,
		CreatedAt: time.Now(),
	})

	res := &models.TransitionResult{Changed: true}
	for _, accrual := range accruals {
		key := fmt.Sprintf("%d/%s", orderID, accrual.Kind)
		if m.accruals[key] {
			continue
		}
		m.accruals[key] = true
		if customer, ok := m.customers[order.CustomerID]; ok {
			customer.LoyaltyPoints += accrual.Points
		}
		res.Credited = append(res.Credited, accrual)
		res.PointsEarned += accrual.Points
	}

	cp := *order
	res.Order = &cp
	return res, nil
}

func (m *memStore) MarkRefundProcessing(ctx context.Context, orderID int64, amount float64, reason string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: order %d", models.ErrNotFound, orderID)
	}
	resolved, err := order.ResolveRefund(amount)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	order.RefundStatus = models.RefundStatusProcessing
	order.RefundAmount = resolved
	order.RefundReason = reason
	order.InitiatedAt = &now
	order.RefundError = ""
	order.UpdatedAt = now

	cp := *order
	return &cp, nil
}

func (m *memStore) MarkRefundCompleted(ctx context.Context, orderID int64, refundID string, amount float64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: order %d", models.ErrNotFound, orderID)
	}

	now := time.Now()
	order.RefundStatus = models.RefundStatusCompleted
	order.RefundID = refundID
	order.RefundAmount = amount
	order.CompletedAt = &now
	order.PaymentStatus = models.PaymentStatusRefunded
	order.UpdatedAt = now

	cp := *order
	return &cp, nil
}

func (m *memStore) MarkRefundFailed(ctx context.Context, orderID int64, errMsg string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: order %d", models.ErrNotFound, orderID)
	}

	order.RefundStatus = models.RefundStatusFailed
	order.RefundError = errMsg
	order.UpdatedAt = time.Now()

	cp := *order
	return &cp, nil
}

func (m *memStore) SetShipment(ctx context.Context, orderID int64, shipment models.Shipment) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: order %d", models.ErrNotFound, orderID)
	}
	if order.AWB != "" {
		return nil, fmt.Errorf("%w: awb %s", models.ErrAlreadyExists, order.AWB)
	}

	order.Shipment = shipment
	order.UpdatedAt = time.Now()

	cp := *order
	return &cp, nil
}

func (m *memStore) SetInvoiceNumber(ctx context.Context, orderID int64, invoiceNo string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: order %d", models.ErrNotFound, orderID)
	}

	order.InvoiceNo = invoiceNo
	order.UpdatedAt = time.Now()

	cp := *order
	return &cp, nil
}

var _ OrderStore = (*memStore)(nil)

// stubPublisher records published events by type
type stubPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *stubPublisher) record(eventType string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

func (p *stubPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e == eventType {
			n++
		}
	}
	return n
}

func (p *stubPublisher) PublishStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	p.record(models.EventTypeOrderStatusChanged)
	return nil
}

func (p *stubPublisher) PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	p.record(models.EventTypeOrderCancelled)
	return nil
}

func (p *stubPublisher) PublishRefundCompleted(ctx context.Context, event *models.RefundCompletedEvent) error {
	p.record(models.EventTypeRefundCompleted)
	return nil
}

func (p *stubPublisher) PublishRefundFailed(ctx context.Context, event *models.RefundFailedEvent) error {
	p.record(models.EventTypeRefundFailed)
	return nil
}

func (p *stubPublisher) PublishShipmentCreated(ctx context.Context, event *models.ShipmentCreatedEvent) error {
	p.record(models.EventTypeShipmentCreated)
	return nil
}

var _ EventPublisher = (*stubPublisher)(nil)

// stubGateway counts refund calls and can be told to fail
type stubGateway struct {
	mu       sync.Mutex
	calls    int
	failWith error
}

func (g *stubGateway) Refund(ctx context.Context, transactionID string, amount float64, reason string) (*GatewayRefund, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.failWith != nil {
		return nil, g.failWith
	}
	return &GatewayRefund{RefundID: "rfnd_test_1", Status: "processed"}, nil
}

func (g *stubGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

var _ PaymentGateway = (*stubGateway)(nil)

// stubCarrier returns a canned shipment and tracking status
type stubCarrier struct {
	shipment  models.Shipment
	createErr error
	status    string
	statusErr error
}

func (c *stubCarrier) CreateShipment(ctx context.Context, order *models.Order, items []models.OrderItem) (*models.Shipment, error) {
	if c.createErr != nil {
		return nil, c.createErr
	}
	cp := c.shipment
	return &cp, nil
}

func (c *stubCarrier) GetStatus(ctx context.Context, awb string) (string, error) {
	if c.statusErr != nil {
		return "", c.statusErr
	}
	return c.status, nil
}

var _ CarrierClient = (*stubCarrier)(nil)

// stubLocker hands out or withholds locks
type stubLocker struct {
	denied bool
	err    error
}

func (l *stubLocker) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	return !l.denied, nil
}

func (l *stubLocker) ReleaseLock(ctx context.Context, lockKey string) error {
	return nil
}

var _ Locker = (*stubLocker)(nil)

// paidOrder builds a razorpay order with the payment captured
func paidOrder(total float64, status models.OrderStatus) *models.Order {
	return &models.Order{
		OrderNumber:  "ORD-1001",
		CustomerID:   7,
		CustomerTier: models.TierGold,
		Status:       status,
		Subtotal:     total,
		Total:        total,
		Payment: models.Payment{
			Method:        models.PaymentMethodRazorpay,
			PaymentStatus: models.PaymentStatusPaid,
			TransactionID: "pay_abc123",
		},
		Refund: models.Refund{RefundStatus: models.RefundStatusNone},
	}
}

// codOrder builds a cash-on-delivery order
func codOrder(total float64, status models.OrderStatus) *models.Order {
	return &models.Order{
		OrderNumber:  "ORD-1002",
		CustomerID:   8,
		CustomerTier: models.TierBronze,
		Status:       status,
		Subtotal:     total,
		Total:        total,
		Payment: models.Payment{
			Method:        models.PaymentMethodCOD,
			PaymentStatus: models.PaymentStatusPending,
		},
		Refund: models.Refund{RefundStatus: models.RefundStatusNone},
	}
}
