package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PayPalClient talks to the PayPal REST API: checkout orders, capture
// and batch payouts. Tokens are fetched per call via the
// client-credentials exchange; no shared cache.
type PayPalClient struct {
	baseURL  string
	clientID string
	secret   string
	client   *http.Client
}

func NewPayPalClient(baseURL, clientID, secret string) *PayPalClient {
	return &PayPalClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		secret:   secret,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *PayPalClient) token(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %v", err)
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("failed to decode token response: %v", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("empty access token in response")
	}
	return tok.AccessToken, nil
}

type paypalOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Rel  string `json:"rel"`
		Href string `json:"href"`
	} `json:"links"`
}

func (r *paypalOrderResponse) approvalURL() string {
	for _, l := range r.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			return l.Href
		}
	}
	return ""
}

// CreateOrder attempts the fully-populated checkout request first and
// falls back to a minimal direct call when that is rejected. The caller
// sees one result either way.
func (c *PayPalClient) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, description string) (OrderRef, error) {
	value := amount.Round(2).StringFixed(2)

	full := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"description": description,
				"amount": map[string]interface{}{
					"currency_code": currency,
					"value":         value,
					"breakdown": map[string]interface{}{
						"item_total": map[string]string{
							"currency_code": currency,
							"value":         value,
						},
					},
				},
				"items": []map[string]interface{}{
					{
						"name":     description,
						"quantity": "1",
						"unit_amount": map[string]string{
							"currency_code": currency,
							"value":         value,
						},
					},
				},
			},
		},
		"application_context": map[string]string{
			"shipping_preference": "NO_SHIPPING",
			"user_action":         "PAY_NOW",
		},
	}

	order, err := c.postOrder(ctx, full)
	if err == nil {
		return OrderRef{OrderID: order.ID, ApprovalURL: order.approvalURL()}, nil
	}
	log.Printf("PayPal order creation failed, falling back to direct call: %v", err)

	minimal := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"amount": map[string]string{
					"currency_code": currency,
					"value":         value,
				},
			},
		},
	}
	order, err = c.postOrder(ctx, minimal)
	if err != nil {
		return OrderRef{}, fmt.Errorf("paypal order creation failed: %v", err)
	}
	return OrderRef{OrderID: order.ID, ApprovalURL: order.approvalURL()}, nil
}

func (c *PayPalClient) postOrder(ctx context.Context, body map[string]interface{}) (*paypalOrderResponse, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v2/checkout/orders", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create order request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("order request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("order request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var order paypalOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %v", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("order response missing id")
	}
	return &order, nil
}

// CaptureOrder finalizes an authorized order. Safe on an
// already-captured order: the state is checked first and a terminal
// success short-circuits without re-capturing.
func (c *PayPalClient) CaptureOrder(ctx context.Context, orderID string) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v2/checkout/orders/"+orderID, nil)
	if err != nil {
		return fmt.Errorf("failed to create get-order request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("get-order request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var order paypalOrderResponse
		if err := json.NewDecoder(resp.Body).Decode(&order); err == nil && order.Status == "COMPLETED" {
			log.Printf("PayPal order %s already captured", orderID)
			return nil
		}
	}

	capReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v2/checkout/orders/"+orderID+"/capture", bytes.NewBufferString("{}"))
	if err != nil {
		return fmt.Errorf("failed to create capture request: %v", err)
	}
	capReq.Header.Set("Content-Type", "application/json")
	capReq.Header.Set("Authorization", "Bearer "+token)

	capResp, err := c.client.Do(capReq)
	if err != nil {
		return fmt.Errorf("capture request failed: %v", err)
	}
	defer capResp.Body.Close()

	if capResp.StatusCode != http.StatusCreated && capResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(capResp.Body)
		return fmt.Errorf("capture failed with status %d: %s", capResp.StatusCode, string(body))
	}
	return nil
}

// SendBatch submits one payouts-batch request. The batch id is supplied
// by the caller: processor-side idempotency depends on a retried group
// re-presenting the same id, so the adapter never generates its own.
func (c *PayPalClient) SendBatch(ctx context.Context, batchID string, items []PayoutItem) (string, error) {
	token, err := c.token(ctx)
	if err != nil {
		return "", err
	}

	payoutItems := make([]map[string]interface{}, 0, len(items))
	for i, it := range items {
		payoutItems = append(payoutItems, map[string]interface{}{
			"recipient_type": "EMAIL",
			"receiver":       it.Receiver,
			"note":           it.Note,
			"sender_item_id": fmt.Sprintf("%s-%d", batchID, i),
			"amount": map[string]string{
				"value":    it.Amount.Round(2).StringFixed(2),
				"currency": it.Currency,
			},
		})
	}
	body := map[string]interface{}{
		"sender_batch_header": map[string]string{
			"sender_batch_id": batchID,
			"email_subject":   "You have a payout from Booking-Web",
		},
		"items": payoutItems,
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payout request: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/payments/payouts", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create payout request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("payout request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return string(respBody), fmt.Errorf("payout failed with status %d: %s", resp.StatusCode, string(respBody))
	}
	return string(respBody), nil
}
