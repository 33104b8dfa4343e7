package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Adnan2k5/Booking-Web-sub000/internal/services"
)

type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, orderID string, event services.Event) (services.CompletionResult, error) {
	args := m.Called(ctx, orderID, event)
	return args.Get(0).(services.CompletionResult), args.Error(1)
}

func postWebhook(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestRevolutWebhook_OrderCompleted(t *testing.T) {
	engine := &MockCompleter{}
	engine.On("Complete", mock.Anything, "rev-ord-1", services.OrderCompleted).
		Return(services.CompletionResult{Matches: 1, Updated: 1}, nil).Once()
	h := NewWebhookHandler(engine, nil, nil)

	rec := postWebhook(t, h.Revolut, `{"event":"ORDER_COMPLETED","order_id":"rev-ord-1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"updated":1`)
	engine.AssertExpectations(t)
}

func TestRevolutWebhook_MalformedJSON(t *testing.T) {
	engine := &MockCompleter{}
	h := NewWebhookHandler(engine, nil, nil)

	rec := postWebhook(t, h.Revolut, `{"event":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	engine.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestRevolutWebhook_MissingFields(t *testing.T) {
	engine := &MockCompleter{}
	h := NewWebhookHandler(engine, nil, nil)

	rec := postWebhook(t, h.Revolut, `{"event":"ORDER_COMPLETED"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	engine.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestRevolutWebhook_UnknownEvent(t *testing.T) {
	engine := &MockCompleter{}
	h := NewWebhookHandler(engine, nil, nil)

	rec := postWebhook(t, h.Revolut, `{"event":"ORDER_CANCELLED","order_id":"rev-ord-2"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	engine.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

type fakeVerifier struct {
	state string
	err   error
}

func (f *fakeVerifier) GetOrderState(context.Context, string) (string, error) {
	return f.state, f.err
}

func TestRevolutWebhook_CompletionVerifiedAgainstAPI(t *testing.T) {
	engine := &MockCompleter{}
	engine.On("Complete", mock.Anything, "rev-ord-9", services.OrderCompleted).
		Return(services.CompletionResult{Matches: 1, Updated: 1}, nil).Once()
	h := NewWebhookHandler(engine, nil, &fakeVerifier{state: "completed"})

	rec := postWebhook(t, h.Revolut, `{"event":"ORDER_COMPLETED","order_id":"rev-ord-9"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	engine.AssertExpectations(t)
}

func TestRevolutWebhook_UnverifiedCompletionIgnored(t *testing.T) {
	engine := &MockCompleter{}
	h := NewWebhookHandler(engine, nil, &fakeVerifier{state: "pending"})

	rec := postWebhook(t, h.Revolut, `{"event":"ORDER_COMPLETED","order_id":"rev-ord-9"}`)

	// Acknowledged but not applied: the processor-side order never
	// reached completed.
	assert.Equal(t, http.StatusOK, rec.Code)
	engine.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestRevolutWebhook_VerificationErrorRetries(t *testing.T) {
	engine := &MockCompleter{}
	h := NewWebhookHandler(engine, nil, &fakeVerifier{err: errors.New("api unavailable")})

	rec := postWebhook(t, h.Revolut, `{"event":"ORDER_COMPLETED","order_id":"rev-ord-9"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	engine.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestPayPalWebhook_CaptureCompleted(t *testing.T) {
	engine := &MockCompleter{}
	engine.On("Complete", mock.Anything, "ORD-1", services.OrderCompleted).
		Return(services.CompletionResult{Matches: 1, Updated: 1}, nil).Once()
	h := NewWebhookHandler(engine, nil, nil)

	rec := postWebhook(t, h.PayPal, `{"event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{"id":"ORD-1"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	engine.AssertExpectations(t)
}

func TestPayPalWebhook_Approved(t *testing.T) {
	engine := &MockCompleter{}
	engine.On("Complete", mock.Anything, "ORD-2", services.OrderAuthorised).
		Return(services.CompletionResult{Matches: 1, Updated: 1}, nil).Once()
	h := NewWebhookHandler(engine, nil, nil)

	rec := postWebhook(t, h.PayPal, `{"event_type":"CHECKOUT.ORDER.APPROVED","resource":{"id":"ORD-2"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	engine.AssertExpectations(t)
}

type fakeCapturer struct {
	calls chan string
}

func newFakeCapturer() *fakeCapturer {
	return &fakeCapturer{calls: make(chan string, 1)}
}

func (f *fakeCapturer) CaptureOrder(_ context.Context, orderID string) error {
	f.calls <- orderID
	return nil
}

func TestPayPalWebhook_ApprovedTriggersCapture(t *testing.T) {
	engine := &MockCompleter{}
	engine.On("Complete", mock.Anything, "ORD-5", services.OrderAuthorised).
		Return(services.CompletionResult{Matches: 1, Updated: 1}, nil).Once()
	capturer := newFakeCapturer()
	h := NewWebhookHandler(engine, capturer, nil)

	rec := postWebhook(t, h.PayPal, `{"event_type":"CHECKOUT.ORDER.APPROVED","resource":{"id":"ORD-5"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	select {
	case got := <-capturer.calls:
		assert.Equal(t, "ORD-5", got)
	case <-time.After(time.Second):
		t.Fatal("capture was never triggered")
	}
}

func TestPayPalWebhook_CompletedDoesNotCapture(t *testing.T) {
	engine := &MockCompleter{}
	engine.On("Complete", mock.Anything, "ORD-6", services.OrderCompleted).
		Return(services.CompletionResult{Matches: 1, Updated: 1}, nil).Once()
	capturer := newFakeCapturer()
	h := NewWebhookHandler(engine, capturer, nil)

	rec := postWebhook(t, h.PayPal, `{"event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{"id":"ORD-6"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, capturer.calls)
}

func TestPayPalWebhook_CaptureEventUsesRelatedOrderID(t *testing.T) {
	engine := &MockCompleter{}
	// The capture delivery carries the capture id in resource.id; the
	// booking is correlated by the checkout order id from
	// supplementary_data.
	engine.On("Complete", mock.Anything, "ORD-7", services.OrderCompleted).
		Return(services.CompletionResult{Matches: 1, Updated: 1}, nil).Once()
	h := NewWebhookHandler(engine, nil, nil)

	rec := postWebhook(t, h.PayPal, `{
		"event_type": "PAYMENT.CAPTURE.COMPLETED",
		"resource": {
			"id": "CAP-123",
			"supplementary_data": {"related_ids": {"order_id": "ORD-7"}}
		}
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	engine.AssertExpectations(t)
}

func TestPayPalWebhook_OrderEventUsesResourceID(t *testing.T) {
	engine := &MockCompleter{}
	engine.On("Complete", mock.Anything, "ORD-8", services.OrderCompleted).
		Return(services.CompletionResult{Matches: 1, Updated: 1}, nil).Once()
	h := NewWebhookHandler(engine, nil, nil)

	rec := postWebhook(t, h.PayPal, `{"event_type":"CHECKOUT.ORDER.COMPLETED","resource":{"id":"ORD-8"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	engine.AssertExpectations(t)
}

func TestPayPalWebhook_IrrelevantEventAcknowledged(t *testing.T) {
	engine := &MockCompleter{}
	h := NewWebhookHandler(engine, nil, nil)

	rec := postWebhook(t, h.PayPal, `{"event_type":"BILLING.SUBSCRIPTION.CREATED","resource":{"id":"SUB-1"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	engine.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhook_ProcessingErrorReturns500(t *testing.T) {
	engine := &MockCompleter{}
	engine.On("Complete", mock.Anything, "rev-ord-3", services.OrderCompleted).
		Return(services.CompletionResult{}, errors.New("mongo down")).Once()
	h := NewWebhookHandler(engine, nil, nil)

	rec := postWebhook(t, h.Revolut, `{"event":"ORDER_COMPLETED","order_id":"rev-ord-3"}`)

	// Non-2xx makes the processor redeliver; completion is idempotent.
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	engine.AssertExpectations(t)
}
