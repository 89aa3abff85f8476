package models

import (
	"fmt"
	"time"
)

// Order represents a customer order moving through fulfillment
type Order struct {
	ID          int64  `db:"id" json:"id"`
	OrderNumber string `db:"order_number" json:"order_number"`
	CustomerID  int64  `db:"customer_id" json:"customer_id"`
	// CustomerTier is a denormalized snapshot taken at checkout; live
	// points are kept on the customer record, not here.
	CustomerTier LoyaltyTier `db:"customer_tier" json:"customer_tier"`
	Status       OrderStatus `db:"status" json:"status"`

	Subtotal     float64 `db:"subtotal" json:"subtotal"`
	Tax          float64 `db:"tax" json:"tax"`
	ShippingCost float64 `db:"shipping_cost" json:"shipping_cost"`
	Total        float64 `db:"total" json:"total"`

	Payment
	Refund
	Shipment

	InvoiceNo string    `db:"invoice_no" json:"invoice_no,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem represents one line of an order; immutable after creation
type OrderItem struct {
	ID        int64   `db:"id" json:"id"`
	OrderID   int64   `db:"order_id" json:"order_id"`
	ProductID int64   `db:"product_id" json:"product_id"`
	Quantity  int     `db:"quantity" json:"quantity"`
	UnitPrice float64 `db:"unit_price" json:"unit_price"`
	Size      string  `db:"size" json:"size,omitempty"`
	Color     string  `db:"color" json:"color,omitempty"`
}

// Payment is the embedded payment sub-record; one per order
type Payment struct {
	Method        PaymentMethod `db:"payment_method" json:"payment_method"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"payment_status"`
	TransactionID string        `db:"transaction_id" json:"transaction_id,omitempty"`
}

// Refund is the embedded refund sub-record
type Refund struct {
	RefundStatus RefundStatus `db:"refund_status" json:"refund_status"`
	RefundID     string       `db:"refund_id" json:"refund_id,omitempty"`
	RefundAmount float64      `db:"refund_amount" json:"refund_amount,omitempty"`
	RefundReason string       `db:"refund_reason" json:"refund_reason,omitempty"`
	InitiatedAt  *time.Time   `db:"refund_initiated_at" json:"refund_initiated_at,omitempty"`
	CompletedAt  *time.Time   `db:"refund_completed_at" json:"refund_completed_at,omitempty"`
	RefundError  string       `db:"refund_error" json:"refund_error,omitempty"`
}

// Shipment is the embedded carrier sub-record; created at most once per order
type Shipment struct {
	ShipmentID  string `db:"shipment_id" json:"shipment_id,omitempty"`
	AWB         string `db:"awb" json:"awb,omitempty"`
	TrackingURL string `db:"tracking_url" json:"tracking_url,omitempty"`
}

// TimelineEntry is one line of an order's append-only audit trail
type TimelineEntry struct {
	ID        int64       `db:"id" json:"id"`
	OrderID   int64       `db:"order_id" json:"order_id"`
	Status    OrderStatus `db:"status" json:"status"`
	Message   string      `db:"message" json:"message"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// Customer holds the loyalty snapshot this service reads and increments
type Customer struct {
	ID            int64       `db:"id" json:"id"`
	LoyaltyTier   LoyaltyTier `db:"loyalty_tier" json:"loyalty_tier"`
	LoyaltyPoints int64       `db:"loyalty_points" json:"loyalty_points"`
	UpdatedAt     time.Time   `db:"updated_at" json:"updated_at"`
}

// TransitionResult reports the outcome of a status transition
type TransitionResult struct {
	Order *Order
	// Changed is false when the requested status equals the current one
	// (a no-op success: no timeline entry, no accrual)
	Changed bool
	// Credited lists the accruals whose guard was claimed by this
	// transition; repeat transitions leave it empty
	Credited     []Accrual
	PointsEarned int64
}

// CancelResult reports the outcome of the cancellation workflow
type CancelResult struct {
	Order         *Order
	RefundSkipped bool
	// SkipReason is cod_order or not_paid when RefundSkipped is set
	SkipReason string
	// RefundErr carries a gateway failure; the order stays cancelled and
	// the refund is retryable
	RefundErr error
}

// Validate checks the invariants fixed at order creation
func (o *Order) Validate() error {
	if o.CustomerID == 0 {
		return fmt.Errorf("%w: customer is required", ErrValidation)
	}
	if o.Subtotal < 0 || o.Tax < 0 || o.ShippingCost < 0 {
		return fmt.Errorf("%w: negative amount", ErrValidation)
	}
	if o.Subtotal+o.Tax+o.ShippingCost != o.Total {
		return fmt.Errorf("%w: total %.2f does not match subtotal+tax+shipping %.2f",
			ErrValidation, o.Total, o.Subtotal+o.Tax+o.ShippingCost)
	}
	switch o.Method {
	case PaymentMethodRazorpay, PaymentMethodCOD:
	default:
		return fmt.Errorf("%w: unknown payment method %q", ErrValidation, o.Method)
	}
	return nil
}
