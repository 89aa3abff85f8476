package models

import "fmt"

// ResolveRefund evaluates the refund eligibility policy and resolves the
// requested amount, defaulting to the full order total when zero. The
// orchestrator runs it pre-flight and the store re-runs it under the row
// lock, so both see one policy.
func (o *Order) ResolveRefund(amount float64) (float64, error) {
	if o.Method == PaymentMethodCOD {
		return 0, fmt.Errorf("%w: cod order", ErrNotApplicable)
	}
	if o.PaymentStatus != PaymentStatusPaid {
		return 0, fmt.Errorf("%w: order not paid", ErrNotApplicable)
	}
	switch o.RefundStatus {
	case RefundStatusProcessing, RefundStatusCompleted:
		return 0, fmt.Errorf("%w: refund is %s", ErrAlreadyRefunded, o.RefundStatus)
	}
	if amount == 0 {
		amount = o.Total
	}
	if amount <= 0 || amount > o.Total {
		return 0, fmt.Errorf("%w: refund amount must be between 0 and %.2f", ErrValidation, o.Total)
	}
	return amount, nil
}
