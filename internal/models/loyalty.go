package models

import "math"

// AccrualKind keys the exactly-once loyalty guard per order
type AccrualKind string

const (
	AccrualPurchase      AccrualKind = "purchase"
	AccrualDeliveryBonus AccrualKind = "delivery-bonus"
)

// Accrual is a candidate loyalty credit; the store applies it only if the
// (order, kind) guard row has never been claimed before.
type Accrual struct {
	Kind   AccrualKind
	Points int64
}

// PurchasePoints is the base reward for a completed purchase
func PurchasePoints(orderTotal float64) int64 {
	return int64(math.Floor(orderTotal))
}

// DeliveryBonus is the extra reward on first delivery
func DeliveryBonus(orderTotal float64) int64 {
	return int64(math.Floor(orderTotal * 0.10))
}

// AccrualsFor returns the credits a transition into newStatus may earn.
// Purchase points attach to the first transition that reaches confirmed or
// later; the delivery bonus only to delivered. Cancellation and refund
// never accrue, and points are never decremented here.
func AccrualsFor(orderTotal float64, newStatus OrderStatus) []Accrual {
	var accruals []Accrual
	if newStatus.ReachedConfirmation() {
		accruals = append(accruals, Accrual{Kind: AccrualPurchase, Points: PurchasePoints(orderTotal)})
	}
	if newStatus == OrderStatusDelivered {
		accruals = append(accruals, Accrual{Kind: AccrualDeliveryBonus, Points: DeliveryBonus(orderTotal)})
	}
	return accruals
}
