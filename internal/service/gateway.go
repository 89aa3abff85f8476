package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/util"

	"go.uber.org/zap"
)

// PaymentGateway executes refunds against the payment provider. The
// provider is expected to be idempotent per transaction on its side; this
// service deduplicates calls through the refund sub-record state.
type PaymentGateway interface {
	Refund(ctx context.Context, transactionID string, amount float64, reason string) (*GatewayRefund, error)
}

// GatewayRefund is the provider's answer to a refund request
type GatewayRefund struct {
	RefundID string
	Status   string
}

// RazorpayClient talks to the Razorpay refund API
type RazorpayClient struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewRazorpayClient creates a gateway client with a bounded call timeout
func NewRazorpayClient(baseURL, keyID, keySecret string, timeout time.Duration) *RazorpayClient {
	return &RazorpayClient{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: util.NamedLogger("gateway"),
	}
}

type razorpayRefundRequest struct {
	// Razorpay amounts are in paise
	Amount int64             `json:"amount"`
	Notes  map[string]string `json:"notes,omitempty"`
}

type razorpayRefundResponse struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Status string `json:"status"`
}

// Refund executes a refund for a captured payment. A timeout or transport
// error is a GatewayFailure; callers must treat it as a failed attempt,
// never as success.
func (c *RazorpayClient) Refund(ctx context.Context, transactionID string, amount float64, reason string) (*GatewayRefund, error) {
	start := time.Now()
	defer func() {
		util.GatewayLatency.Observe(time.Since(start).Seconds())
	}()

	payload := razorpayRefundRequest{
		Amount: int64(math.Round(amount * 100)),
	}
	if reason != "" {
		payload.Notes = map[string]string{"reason": reason}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal refund request: %w", err)
	}

	url := fmt.Sprintf("%s/payments/%s/refund", c.baseURL, transactionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build refund request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrGatewayFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: gateway returned %d", models.ErrGatewayFailure, resp.StatusCode)
	}

	var refund razorpayRefundResponse
	if err := json.NewDecoder(resp.Body).Decode(&refund); err != nil {
		return nil, fmt.Errorf("%w: invalid gateway response: %v", models.ErrGatewayFailure, err)
	}

	c.logger.Info("Gateway refund executed",
		zap.String("transaction_id", transactionID),
		zap.String("refund_id", refund.ID),
		zap.String("status", refund.Status))

	return &GatewayRefund{RefundID: refund.ID, Status: refund.Status}, nil
}

var _ PaymentGateway = (*RazorpayClient)(nil)
