package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fulfillment-service/internal/models"
)

// CreateOrder persists a new order, its items and the opening timeline
// entry in one transaction. Orders enter in pending (or paid for
// prepaid-confirmed checkouts); items are immutable afterwards.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (
			order_number, customer_id, customer_tier, status,
			subtotal, tax, shipping_cost, total,
			payment_method, payment_status, transaction_id, refund_status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRowxContext(ctx, query,
		order.OrderNumber, order.CustomerID, order.CustomerTier, order.Status,
		order.Subtotal, order.Tax, order.ShippingCost, order.Total,
		order.Method, order.PaymentStatus, order.TransactionID, models.RefundStatusNone,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	order.RefundStatus = models.RefundStatusNone

	for i := range items {
		items[i].OrderID = order.ID
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price, size, color)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			items[i].OrderID, items[i].ProductID, items[i].Quantity,
			items[i].UnitPrice, items[i].Size, items[i].Color,
		).Scan(&items[i].ID)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO order_timeline (order_id, status, message) VALUES ($1, $2, $3)",
		order.ID, order.Status, "order placed")
	if err != nil {
		return fmt.Errorf("failed to append timeline: %w", err)
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: order %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItems retrieves all items for an order
func (s *Store) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// GetTimeline retrieves an order's audit trail in append order
func (s *Store) GetTimeline(ctx context.Context, orderID int64) ([]models.TimelineEntry, error) {
	var entries []models.TimelineEntry
	err := s.db.SelectContext(ctx, &entries,
		"SELECT * FROM order_timeline WHERE order_id = $1 ORDER BY id", orderID)
	return entries, err
}

// ListOrders retrieves orders for the admin list view, newest first,
// optionally filtered by status
func (s *Store) ListOrders(ctx context.Context, status models.OrderStatus, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 50
	}

	var orders []models.Order
	var err error
	if status != "" {
		err = s.db.SelectContext(ctx, &orders,
			"SELECT * FROM orders WHERE status = $1 ORDER BY created_at DESC LIMIT $2", status, limit)
	} else {
		err = s.db.SelectContext(ctx, &orders,
			"SELECT * FROM orders ORDER BY created_at DESC LIMIT $1", limit)
	}
	return orders, err
}

// ListOpenShipments retrieves orders with a carrier shipment that has not
// reached a terminal status; the reconciler polls these
func (s *Store) ListOpenShipments(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		`SELECT * FROM orders
		 WHERE awb <> '' AND status NOT IN ($1, $2, $3)
		 ORDER BY updated_at`,
		models.OrderStatusDelivered, models.OrderStatusCancelled, models.OrderStatusRefunded)
	return orders, err
}

// lockOrder reads an order row FOR UPDATE inside tx, serializing all
// mutations on the same order for the transaction's lifetime
func lockOrder(ctx context.Context, tx queryer, id int64) (*models.Order, error) {
	var order models.Order
	err := tx.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: order %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	return &order, nil
}

type queryer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// ApplyTransition moves an order to newStatus with the timeline append and
// any guarded loyalty accruals in a single transaction. Re-applying the
// current status is a no-op success. The allowed-successor table is
// enforced under the row lock, so concurrent mutations cannot slip an
// illegal edge through.
func (s *Store) ApplyTransition(ctx context.Context, orderID int64, newStatus models.OrderStatus, note string, accruals []models.Accrual) (*models.TransitionResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	order, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == newStatus {
		return &models.TransitionResult{Order: order, Changed: false}, nil
	}

	if !order.Status.CanTransitionTo(newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, order.Status, newStatus)
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3",
		newStatus, now, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO order_timeline (order_id, status, message) VALUES ($1, $2, $3)",
		orderID, newStatus, note)
	if err != nil {
		return nil, fmt.Errorf("failed to append timeline: %w", err)
	}

	var credited []models.Accrual
	var points int64
	for _, accrual := range accruals {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO loyalty_accruals (order_id, kind, points)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (order_id, kind) DO NOTHING`,
			orderID, accrual.Kind, accrual.Points)
		if err != nil {
			return nil, fmt.Errorf("failed to claim accrual guard: %w", err)
		}
		claimed, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if claimed == 0 {
			// already credited for this order and kind
			continue
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE customers SET loyalty_points = loyalty_points + $1, updated_at = $2 WHERE id = $3",
			accrual.Points, now, order.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("failed to credit loyalty points: %w", err)
		}
		credited = append(credited, accrual)
		points += accrual.Points
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	order.Status = newStatus
	order.UpdatedAt = now
	return &models.TransitionResult{Order: order, Changed: true, Credited: credited, PointsEarned: points}, nil
}

// MarkRefundProcessing records refund intent before any gateway call. The
// eligibility policy is re-evaluated under the row lock so duplicate or
// concurrent requests cannot trigger a second gateway refund.
func (s *Store) MarkRefundProcessing(ctx context.Context, orderID int64, amount float64, reason string) (*models.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	order, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	resolved, err := order.ResolveRefund(amount)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`UPDATE orders SET
			refund_status = $1, refund_amount = $2, refund_reason = $3,
			refund_initiated_at = $4, refund_error = '', updated_at = $4
		 WHERE id = $5`,
		models.RefundStatusProcessing, resolved, reason, now, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark refund processing: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	order.RefundStatus = models.RefundStatusProcessing
	order.RefundAmount = resolved
	order.RefundReason = reason
	order.InitiatedAt = &now
	order.RefundError = ""
	order.UpdatedAt = now
	return order, nil
}

// MarkRefundCompleted records a gateway-confirmed refund and flips the
// payment to refunded
func (s *Store) MarkRefundCompleted(ctx context.Context, orderID int64, refundID string, amount float64) (*models.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	order, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`UPDATE orders SET
			refund_status = $1, refund_id = $2, refund_amount = $3,
			refund_completed_at = $4, payment_status = $5, updated_at = $4
		 WHERE id = $6`,
		models.RefundStatusCompleted, refundID, amount, now, models.PaymentStatusRefunded, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark refund completed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	order.RefundStatus = models.RefundStatusCompleted
	order.RefundID = refundID
	order.RefundAmount = amount
	order.CompletedAt = &now
	order.PaymentStatus = models.PaymentStatusRefunded
	order.UpdatedAt = now
	return order, nil
}

// MarkRefundFailed records a gateway failure; the order status is left
// untouched so the operator or reconciler can retry
func (s *Store) MarkRefundFailed(ctx context.Context, orderID int64, errMsg string) (*models.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	order, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		"UPDATE orders SET refund_status = $1, refund_error = $2, updated_at = $3 WHERE id = $4",
		models.RefundStatusFailed, errMsg, now, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark refund failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	order.RefundStatus = models.RefundStatusFailed
	order.RefundError = errMsg
	order.UpdatedAt = now
	return order, nil
}

// SetShipment attaches the carrier's identifiers to an order. Once an AWB
// exists the shipment is immutable; a second create is rejected.
func (s *Store) SetShipment(ctx context.Context, orderID int64, shipment models.Shipment) (*models.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	order, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	if order.AWB != "" {
		return nil, fmt.Errorf("%w: awb %s", models.ErrAlreadyExists, order.AWB)
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		"UPDATE orders SET shipment_id = $1, awb = $2, tracking_url = $3, updated_at = $4 WHERE id = $5",
		shipment.ShipmentID, shipment.AWB, shipment.TrackingURL, now, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to set shipment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	order.Shipment = shipment
	order.UpdatedAt = now
	return order, nil
}

// SetInvoiceNumber attaches the human-assigned invoice number; last write
// wins
func (s *Store) SetInvoiceNumber(ctx context.Context, orderID int64, invoiceNo string) (*models.Order, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET invoice_no = $1, updated_at = NOW() WHERE id = $2",
		invoiceNo, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to set invoice number: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: order %d", models.ErrNotFound, orderID)
	}
	return s.GetOrderByID(ctx, orderID)
}
