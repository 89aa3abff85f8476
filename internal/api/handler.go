package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/service"
	"fulfillment-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	orders      *service.OrderService
	transitions *service.TransitionEngine
	cancels     *service.CancellationWorkflow
	refunds     *service.RefundOrchestrator
	shipments   *service.ShipmentReconciler
	invoices    *service.InvoiceAssigner
}

// NewHandler creates a new HTTP handler
func NewHandler(
	orders *service.OrderService,
	transitions *service.TransitionEngine,
	cancels *service.CancellationWorkflow,
	refunds *service.RefundOrchestrator,
	shipments *service.ShipmentReconciler,
	invoices *service.InvoiceAssigner,
) *Handler {
	return &Handler{
		orders:      orders,
		transitions: transitions,
		cancels:     cancels,
		refunds:     refunds,
		shipments:   shipments,
		invoices:    invoices,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders", h.createOrder)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.GET("/orders/:id/timeline", h.getTimeline)

		v1.PUT("/orders/:id/status", h.updateStatus)
		v1.POST("/orders/:id/cancel", h.cancelOrder)
		v1.POST("/orders/:id/refund", h.refundOrder)
		v1.POST("/orders/:id/shipment", h.createShipment)
		v1.POST("/orders/:id/shipment/sync", h.syncShipment)
		v1.PUT("/orders/:id/invoice", h.setInvoice)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) listOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	status := models.OrderStatus(c.Query("status"))

	orders, err := h.orders.ListOrders(c.Request.Context(), status, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	order, items, timeline, err := h.orders.GetOrderDetail(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "items": items, "timeline": timeline})
}

func (h *Handler) getTimeline(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	timeline, err := h.orders.GetTimeline(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timeline": timeline})
}

type updateStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
	Note   string             `json:"note"`
}

func (h *Handler) updateStatus(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	res, err := h.transitions.Transition(c.Request.Context(), orderID, req.Status, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":         res.Order,
		"changed":       res.Changed,
		"points_earned": res.PointsEarned,
	})
}

type cancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *Handler) cancelOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	result, err := h.cancels.Cancel(c.Request.Context(), orderID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"order": result.Order, "refund_skipped": result.RefundSkipped}
	if result.SkipReason != "" {
		resp["skip_reason"] = result.SkipReason
	}
	if result.RefundErr != nil {
		resp["refund_error"] = result.RefundErr.Error()
	}
	c.JSON(http.StatusOK, resp)
}

type refundRequest struct {
	Amount float64 `json:"amount"`
	Reason string  `json:"reason" binding:"required"`
}

func (h *Handler) refundOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	order, err := h.refunds.Refund(c.Request.Context(), orderID, req.Amount, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *Handler) createShipment(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	shipment, err := h.shipments.CreateShipment(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"shipment": shipment})
}

func (h *Handler) syncShipment(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	order, err := h.shipments.SyncStatus(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

type invoiceRequest struct {
	InvoiceNo string `json:"invoice_no" binding:"required"`
}

func (h *Handler) setInvoice(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req invoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	order, err := h.invoices.SetInvoice(c.Request.Context(), orderID, req.InvoiceNo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func orderIDParam(c *gin.Context) (int64, bool) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return 0, false
	}
	return orderID, true
}

// respondError maps the error taxonomy onto HTTP status codes
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrNotApplicable):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrAlreadyRefunded),
		errors.Is(err, models.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrGatewayFailure),
		errors.Is(err, models.ErrCarrierFailure):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
