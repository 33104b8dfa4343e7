package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RevolutClient talks to the Revolut Merchant API for card/redirect
// orders. Amounts go over the wire in minor units.
type RevolutClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewRevolutClient(baseURL, apiKey string) *RevolutClient {
	return &RevolutClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *RevolutClient) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, description string) (OrderRef, error) {
	minor := amount.Round(2).Mul(decimal.NewFromInt(100)).IntPart()
	body := map[string]interface{}{
		"amount":      minor,
		"currency":    currency,
		"description": description,
	}
	reqBody, err := json.Marshal(body)
	if err != nil {
		return OrderRef{}, fmt.Errorf("failed to marshal order request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/orders", bytes.NewBuffer(reqBody))
	if err != nil {
		return OrderRef{}, fmt.Errorf("failed to create order request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Revolut-Api-Version", "2024-09-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return OrderRef{}, fmt.Errorf("order request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return OrderRef{}, fmt.Errorf("order request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var order struct {
		ID          string `json:"id"`
		CheckoutURL string `json:"checkout_url"`
		Token       string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return OrderRef{}, fmt.Errorf("failed to decode order response: %v", err)
	}
	if order.ID == "" {
		return OrderRef{}, fmt.Errorf("order response missing id")
	}
	return OrderRef{OrderID: order.ID, ApprovalURL: order.CheckoutURL}, nil
}

// GetOrderState returns the processor-side state of an order, used when
// reconciling a delivery against a booking the webhook got ahead of.
func (c *RevolutClient) GetOrderState(ctx context.Context, orderID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/orders/"+orderID, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create get-order request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Revolut-Api-Version", "2024-09-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get-order request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("get-order failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var order struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return "", fmt.Errorf("failed to decode order response: %v", err)
	}
	return order.State, nil
}
