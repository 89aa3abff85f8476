package models

import "time"

// Event types
const (
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeOrderCancelled     = "ORDER_CANCELLED"
	EventTypeRefundCompleted    = "REFUND_COMPLETED"
	EventTypeRefundFailed       = "REFUND_FAILED"
	EventTypeShipmentCreated    = "SHIPMENT_CREATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderStatusChangedEvent published on every applied status transition
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID      int64       `json:"order_id"`
	OrderNumber  string      `json:"order_number"`
	OldStatus    OrderStatus `json:"old_status"`
	NewStatus    OrderStatus `json:"new_status"`
	Note         string      `json:"note,omitempty"`
	PointsEarned int64       `json:"points_earned,omitempty"`
}

// OrderCancelledEvent published when the cancellation workflow completes
type OrderCancelledEvent struct {
	BaseEvent
	OrderID       int64  `json:"order_id"`
	Reason        string `json:"reason"`
	RefundSkipped bool   `json:"refund_skipped"`
	SkipReason    string `json:"skip_reason,omitempty"`
}

// RefundCompletedEvent published when the gateway confirms a refund
type RefundCompletedEvent struct {
	BaseEvent
	OrderID  int64   `json:"order_id"`
	RefundID string  `json:"refund_id"`
	Amount   float64 `json:"amount"`
	Reason   string  `json:"reason,omitempty"`
}

// RefundFailedEvent published when a gateway call fails or times out
type RefundFailedEvent struct {
	BaseEvent
	OrderID int64  `json:"order_id"`
	Reason  string `json:"reason"`
}

// ShipmentCreatedEvent published when a carrier shipment is registered
type ShipmentCreatedEvent struct {
	BaseEvent
	OrderID     int64  `json:"order_id"`
	ShipmentID  string `json:"shipment_id"`
	AWB         string `json:"awb"`
	TrackingURL string `json:"tracking_url,omitempty"`
}
