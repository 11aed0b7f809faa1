package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/swiftroute/delivery-gateway/internal/model"
	"github.com/swiftroute/delivery-gateway/pkg/logger"
	"github.com/valyala/fasthttp"
)

// ExternalServiceError carries the upstream status and body of a failed
// Shopify Admin API call so callers can decide whether to retry.
type ExternalServiceError struct {
	StatusCode int
	Body       string
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("shopify responded %d: %s", e.StatusCode, e.Body)
}

type ShopifyConfig struct {
	APIVersion string
	Timeout    time.Duration
	// Scheme is https in production; tests point it at a local server.
	Scheme string
}

type FulfillmentRequest struct {
	OrderID        string
	ShopifyOrderID string
	OrderNumber    string
}

type FulfillmentResponse struct {
	FulfillmentID string
}

type fulfillmentPayload struct {
	Fulfillment struct {
		TrackingNumber  string `json:"tracking_number"`
		TrackingCompany string `json:"tracking_company"`
		NotifyCustomer  bool   `json:"notify_customer"`
		LineItems       []any  `json:"line_items"`
	} `json:"fulfillment"`
}

type fulfillmentResult struct {
	Fulfillment struct {
		ID json.Number `json:"id"`
	} `json:"fulfillment"`
}

type ShopifyClient struct {
	config ShopifyConfig
	client *fasthttp.Client
}

func NewShopifyClient(config ShopifyConfig) *ShopifyClient {
	if config.APIVersion == "" {
		config.APIVersion = "2023-10"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Scheme == "" {
		config.Scheme = "https"
	}
	return &ShopifyClient{
		config: config,
		client: &fasthttp.Client{
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: time.Minute,
		},
	}
}

// CreateFulfillment marks the Shopify order fulfilled. Shopify sends the
// customer a shipping confirmation because notify_customer is set.
func (c *ShopifyClient) CreateFulfillment(ctx context.Context, conn *model.ShopifyConnection, fr FulfillmentRequest) (*FulfillmentResponse, error) {
	var payload fulfillmentPayload
	payload.Fulfillment.TrackingNumber = "DEL-" + fr.OrderNumber
	payload.Fulfillment.TrackingCompany = "Local Delivery Service"
	payload.Fulfillment.NotifyCustomer = true
	payload.Fulfillment.LineItems = []any{}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fulfillment: %w", err)
	}

	url := fmt.Sprintf("%s://%s/admin/api/%s/orders/%s/fulfillments.json",
		c.config.Scheme, conn.ShopDomain, c.config.APIVersion, fr.ShopifyOrderID)

	start := time.Now()
	respBody, err := c.doRequest(ctx, "POST", url, conn.AccessToken, body)
	if err != nil {
		return nil, err
	}

	var result fulfillmentResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fulfillment response: %w", err)
	}

	logger.Info("shopify fulfillment created",
		"order_id", fr.OrderID,
		"shopify_order_id", fr.ShopifyOrderID,
		"fulfillment_id", result.Fulfillment.ID.String(),
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return &FulfillmentResponse{FulfillmentID: result.Fulfillment.ID.String()}, nil
}

func (c *ShopifyClient) doRequest(ctx context.Context, method, url, accessToken string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	req.Header.Set("X-Shopify-Access-Token", accessToken)

	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	statusCode := resp.StatusCode()
	if statusCode < fasthttp.StatusOK || statusCode >= fasthttp.StatusMultipleChoices {
		return nil, &ExternalServiceError{
			StatusCode: statusCode,
			Body:       string(resp.Body()),
		}
	}

	result := make([]byte, len(resp.Body()))
	copy(result, resp.Body())

	return result, nil
}
