package models

// OrderStatus is the fulfillment state of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// PaymentMethod is how the customer paid for an order
type PaymentMethod string

const (
	PaymentMethodRazorpay PaymentMethod = "razorpay"
	PaymentMethodCOD      PaymentMethod = "cod"
)

// PaymentStatus is the settlement state of an order's payment
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// RefundStatus is the state of an order's refund sub-record
type RefundStatus string

const (
	RefundStatusNone       RefundStatus = "none"
	RefundStatusProcessing RefundStatus = "processing"
	RefundStatusCompleted  RefundStatus = "completed"
	RefundStatusFailed     RefundStatus = "failed"
)

// LoyaltyTier gates catalog access elsewhere; read-only in this service
type LoyaltyTier string

const (
	TierBronze LoyaltyTier = "bronze"
	TierSilver LoyaltyTier = "silver"
	TierGold   LoyaltyTier = "gold"
)

// statusRank orders the forward fulfillment flow. Terminal side-exits
// (cancelled, refunded) carry no rank.
var statusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusConfirmed:  1,
	OrderStatusProcessing: 2,
	OrderStatusShipped:    3,
	OrderStatusDelivered:  4,
}

// IsValid checks the status against the closed set
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// IsTerminal returns true for states with no outgoing edges in the normal flow
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled || s == OrderStatusRefunded
}

// CanTransitionTo is the single source of truth for legal status edges.
// Forward skips (pending -> shipped) are allowed for operator convenience;
// backward edges never are. cancelled and refunded are side-exits reachable
// from any non-terminal state, and refunded may additionally follow
// cancelled or delivered.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if !target.IsValid() || s == target {
		return false
	}

	switch target {
	case OrderStatusCancelled:
		return !s.IsTerminal()
	case OrderStatusRefunded:
		return !s.IsTerminal() || s == OrderStatusCancelled || s == OrderStatusDelivered
	}

	from, ok := statusRank[s]
	if !ok {
		// cancelled/refunded have no forward edges
		return false
	}
	to, ok := statusRank[target]
	if !ok {
		return false
	}
	return to > from
}

// ReachedConfirmation reports whether the status is confirmed or later in
// the forward flow; purchase points accrue on the first such transition.
func (s OrderStatus) ReachedConfirmation() bool {
	rank, ok := statusRank[s]
	return ok && rank >= statusRank[OrderStatusConfirmed]
}
