package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevolutCreateOrder(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/orders", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{
			"id":           "rev-ord-1",
			"checkout_url": "https://checkout.example.com/rev-ord-1",
		})
	}))
	defer srv.Close()

	client := NewRevolutClient(srv.URL, "sk-test")
	ref, err := client.CreateOrder(context.Background(), decimal.NewFromFloat(123.45), "USD", "Hotel booking")
	require.NoError(t, err)
	assert.Equal(t, "rev-ord-1", ref.OrderID)
	assert.Equal(t, "https://checkout.example.com/rev-ord-1", ref.ApprovalURL)

	// Amount is transmitted in minor units.
	assert.Equal(t, float64(12345), gotBody["amount"])
	assert.Equal(t, "USD", gotBody["currency"])
}

func TestRevolutCreateOrder_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid api key"}`))
	}))
	defer srv.Close()

	client := NewRevolutClient(srv.URL, "bad-key")
	_, err := client.CreateOrder(context.Background(), decimal.NewFromInt(10), "USD", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestRevolutGetOrderState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/orders/rev-ord-1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"id": "rev-ord-1", "state": "completed"})
	}))
	defer srv.Close()

	client := NewRevolutClient(srv.URL, "sk-test")
	state, err := client.GetOrderState(context.Background(), "rev-ord-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", state)
}
