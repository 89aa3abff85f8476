package service

import (
	"context"
	"fmt"
	"strings"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/util"

	"go.uber.org/zap"
)

// InvoiceAssigner attaches a human-assigned invoice number to an order.
// Idempotent by construction: last write wins, no state-machine rules.
type InvoiceAssigner struct {
	store  OrderStore
	cache  OrderCache
	logger *zap.Logger
}

// NewInvoiceAssigner creates a new invoice assigner
func NewInvoiceAssigner(store OrderStore, cache OrderCache) *InvoiceAssigner {
	return &InvoiceAssigner{
		store:  store,
		cache:  cache,
		logger: util.NamedLogger("invoice"),
	}
}

// SetInvoice overwrites the order's invoice number
func (ia *InvoiceAssigner) SetInvoice(ctx context.Context, orderID int64, invoiceNo string) (*models.Order, error) {
	ctx, span := util.StartOrderSpan(ctx, "InvoiceAssigner.SetInvoice", orderID)
	defer span.End()

	invoiceNo = strings.TrimSpace(invoiceNo)
	if invoiceNo == "" {
		return nil, fmt.Errorf("%w: invoice number is required", models.ErrValidation)
	}

	order, err := ia.store.SetInvoiceNumber(ctx, orderID, invoiceNo)
	if err != nil {
		return nil, err
	}

	if ia.cache != nil {
		if err := ia.cache.InvalidateOrder(ctx, orderID); err != nil {
			ia.logger.Warn("Failed to invalidate order cache",
				zap.Int64("order_id", orderID), zap.Error(err))
		}
	}

	ia.logger.Info("Invoice assigned",
		zap.Int64("order_id", orderID),
		zap.String("invoice_no", invoiceNo))
	return order, nil
}
