package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Total number of applied order status transitions",
	}, []string{"from", "to"})

	TransitionsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_rejected_total",
		Help: "Total number of rejected status transitions",
	}, []string{"reason"})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of cancelled orders",
	})

	LoyaltyPointsAwardedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_points_awarded_total",
		Help: "Total loyalty points credited, by accrual kind",
	}, []string{"kind"})

	RefundsInitiatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refunds_initiated_total",
		Help: "Total number of refund attempts sent to the gateway",
	})

	RefundsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refunds_completed_total",
		Help: "Total number of gateway-confirmed refunds",
	})

	RefundsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refunds_failed_total",
		Help: "Total number of failed refund attempts",
	})

	GatewayLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_gateway_latency_seconds",
		Help:    "Latency of payment gateway refund calls",
		Buckets: prometheus.DefBuckets,
	})

	ShipmentsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shipments_created_total",
		Help: "Total number of carrier shipments created",
	})

	ShipmentSyncsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipment_syncs_total",
		Help: "Total number of carrier status syncs, by outcome",
	}, []string{"result"})

	CarrierLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "carrier_latency_seconds",
		Help:    "Latency of carrier API calls",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
