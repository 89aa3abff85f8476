package models

import "errors"

// Error taxonomy for order mutations. Callers match with errors.Is; the
// HTTP layer maps each to a status code. Gateway/carrier failures are
// retryable by re-invocation, everything else is terminal for the call.
var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotApplicable     = errors.New("refund not applicable")
	ErrAlreadyRefunded   = errors.New("refund already processed")
	ErrAlreadyExists     = errors.New("shipment already exists")
	ErrValidation        = errors.New("validation failed")
	ErrGatewayFailure    = errors.New("payment gateway failure")
	ErrCarrierFailure    = errors.New("carrier failure")
)
