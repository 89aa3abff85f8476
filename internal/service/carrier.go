package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/util"

	"go.uber.org/zap"
)

// CarrierClient is the shipping carrier boundary: register a shipment,
// read its authoritative status
type CarrierClient interface {
	CreateShipment(ctx context.Context, order *models.Order, items []models.OrderItem) (*models.Shipment, error)
	GetStatus(ctx context.Context, awb string) (string, error)
}

// ShiprocketClient talks to a Shiprocket-style carrier API
type ShiprocketClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewShiprocketClient creates a carrier client with a bounded call timeout
func NewShiprocketClient(baseURL, token string, timeout time.Duration) *ShiprocketClient {
	return &ShiprocketClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: util.NamedLogger("carrier"),
	}
}

type carrierCreateRequest struct {
	OrderNumber string             `json:"order_id"`
	Items       []carrierOrderItem `json:"order_items"`
	SubTotal    float64            `json:"sub_total"`
}

type carrierOrderItem struct {
	SKU   string  `json:"sku"`
	Units int     `json:"units"`
	Price float64 `json:"selling_price"`
}

type carrierCreateResponse struct {
	ShipmentID  int64  `json:"shipment_id"`
	AWBCode     string `json:"awb_code"`
	TrackingURL string `json:"tracking_url"`
}

type carrierTrackResponse struct {
	TrackingData struct {
		CurrentStatus string `json:"current_status"`
	} `json:"tracking_data"`
}

// CreateShipment registers the order with the carrier and returns the
// assigned identifiers
func (c *ShiprocketClient) CreateShipment(ctx context.Context, order *models.Order, items []models.OrderItem) (*models.Shipment, error) {
	start := time.Now()
	defer func() {
		util.CarrierLatency.Observe(time.Since(start).Seconds())
	}()

	payload := carrierCreateRequest{
		OrderNumber: order.OrderNumber,
		SubTotal:    order.Subtotal,
	}
	for _, item := range items {
		payload.Items = append(payload.Items, carrierOrderItem{
			SKU:   fmt.Sprintf("%d", item.ProductID),
			Units: item.Quantity,
			Price: item.UnitPrice,
		})
	}

	var resp carrierCreateResponse
	if err := c.post(ctx, "/orders/create/adhoc", payload, &resp); err != nil {
		return nil, err
	}
	if resp.AWBCode == "" {
		return nil, fmt.Errorf("%w: carrier returned no awb", models.ErrCarrierFailure)
	}

	c.logger.Info("Carrier shipment created",
		zap.String("order_number", order.OrderNumber),
		zap.String("awb", resp.AWBCode))

	return &models.Shipment{
		ShipmentID:  fmt.Sprintf("%d", resp.ShipmentID),
		AWB:         resp.AWBCode,
		TrackingURL: resp.TrackingURL,
	}, nil
}

// GetStatus returns the carrier's current status string for an AWB; the
// vocabulary is understood only by the reconciler's mapping table
func (c *ShiprocketClient) GetStatus(ctx context.Context, awb string) (string, error) {
	start := time.Now()
	defer func() {
		util.CarrierLatency.Observe(time.Since(start).Seconds())
	}()

	url := fmt.Sprintf("%s/courier/track/awb/%s", c.baseURL, awb)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build track request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrCarrierFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: carrier returned %d", models.ErrCarrierFailure, resp.StatusCode)
	}

	var track carrierTrackResponse
	if err := json.NewDecoder(resp.Body).Decode(&track); err != nil {
		return "", fmt.Errorf("%w: invalid carrier response: %v", models.ErrCarrierFailure, err)
	}

	return strings.ToUpper(track.TrackingData.CurrentStatus), nil
}

func (c *ShiprocketClient) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal carrier request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("failed to build carrier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrCarrierFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: carrier returned %d", models.ErrCarrierFailure, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: invalid carrier response: %v", models.ErrCarrierFailure, err)
	}
	return nil
}

var _ CarrierClient = (*ShiprocketClient)(nil)
