package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Adnan2k5/Booking-Web-sub000/internal/models"
)

// In-memory fakes mirror the Mongo-backed implementations closely
// enough to exercise the cross-run idempotency properties.

type memSource struct {
	bookings []models.PayableBooking
}

func (m *memSource) CollectPayable(_ context.Context, completedBefore time.Time) ([]models.PayableBooking, error) {
	var out []models.PayableBooking
	for _, b := range m.bookings {
		if b.ProviderID != "" && b.PaymentCompletedAt.Before(completedBefore) {
			out = append(out, b)
		}
	}
	return out, nil
}

type memLedger struct {
	rows []*models.Payout
}

func (m *memLedger) CoveredBookingIDs(context.Context) (map[string]struct{}, error) {
	covered := make(map[string]struct{})
	for _, r := range m.rows {
		if r.Status == models.PayoutFailed {
			continue
		}
		for _, id := range r.BookingIDs() {
			covered[id] = struct{}{}
		}
	}
	return covered, nil
}

func (m *memLedger) Create(_ context.Context, p *models.Payout) error {
	m.rows = append(m.rows, p)
	return nil
}

func (m *memLedger) setStatus(id primitive.ObjectID, status models.PayoutStatus, raw string) error {
	for _, r := range m.rows {
		if r.ID == id {
			r.Status = status
			r.RawResponse = raw
			return nil
		}
	}
	return errors.New("payout not found")
}

func (m *memLedger) MarkSent(_ context.Context, id primitive.ObjectID, raw string) error {
	return m.setStatus(id, models.PayoutSent, raw)
}

func (m *memLedger) MarkFailed(_ context.Context, id primitive.ObjectID, raw string) error {
	return m.setStatus(id, models.PayoutFailed, raw)
}

type memAccounts struct {
	accounts map[string]string
}

func (m *memAccounts) PayoutAccount(_ context.Context, userID string) (string, error) {
	return m.accounts[userID], nil
}

type recordingSender struct {
	calls   []string // batch ids, in call order
	failFor map[string]bool
	lastFor map[string][]PayoutItem
}

func (s *recordingSender) SendBatch(_ context.Context, batchID string, items []PayoutItem) (string, error) {
	s.calls = append(s.calls, batchID)
	if s.lastFor == nil {
		s.lastFor = make(map[string][]PayoutItem)
	}
	s.lastFor[batchID] = items
	if len(items) > 0 && s.failFor[items[0].Receiver] {
		return "", errors.New("processor unavailable")
	}
	return `{"batch_header":{"payout_batch_id":"PB1"}}`, nil
}

func defaultConfig() PayoutConfig {
	return PayoutConfig{
		SettlementDelay: 24 * time.Hour,
		MinimumPayout:   decimal.NewFromInt(10),
		ProviderShare:   decimal.NewFromFloat(0.8),
		Currency:        "USD",
		Note:            "provider payout",
	}
}

func newEngine(src *memSource, ledger *memLedger, accounts *memAccounts, sender *recordingSender, now time.Time, cfg PayoutConfig) *PayoutEngine {
	return NewPayoutEngine(src, ledger, accounts, sender, fakeClock{now: now}, cfg)
}

func TestRunPayoutCycle_EndToEnd(t *testing.T) {
	now := time.Date(2025, 6, 2, 2, 0, 0, 0, time.UTC)
	src := &memSource{bookings: []models.PayableBooking{{
		ID:                 "hotel-1",
		Kind:               models.KindHotel,
		UserID:             "guest-1",
		Amount:             200,
		ProviderID:         "owner-1",
		PaymentCompletedAt: now.Add(-25 * time.Hour),
	}}}
	ledger := &memLedger{}
	accounts := &memAccounts{accounts: map[string]string{"owner-1": "owner@example.com"}}
	sender := &recordingSender{}
	engine := newEngine(src, ledger, accounts, sender, now, defaultConfig())

	summary, err := engine.RunPayoutCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ProvidersPaid)
	assert.Equal(t, "160.00", summary.TotalAmount)

	require.Len(t, ledger.rows, 1)
	row := ledger.rows[0]
	assert.Equal(t, models.PayoutSent, row.Status)
	assert.Equal(t, "owner-1", row.User)
	assert.Equal(t, 160.0, row.Amount)
	assert.Contains(t, row.BookingIDs(), "hotel-1")
	assert.NotEmpty(t, row.RawResponse)
	require.Len(t, sender.calls, 1)
	assert.Equal(t, "owner@example.com", sender.lastFor[row.BatchID][0].Receiver)
	assert.Equal(t, "160.00", sender.lastFor[row.BatchID][0].Amount.StringFixed(2))

	// Second run with no new bookings: nothing moves.
	summary, err = engine.RunPayoutCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.ProvidersPaid)
	assert.Len(t, ledger.rows, 1)
	assert.Len(t, sender.calls, 1)
}

func TestRunPayoutCycle_ThresholdAccrual(t *testing.T) {
	now := time.Date(2025, 6, 2, 2, 0, 0, 0, time.UTC)
	cfg := defaultConfig()
	cfg.ProviderShare = decimal.NewFromInt(1)

	src := &memSource{bookings: []models.PayableBooking{{
		ID:                 "s-1",
		Kind:               models.KindSession,
		Amount:             9.99,
		ProviderID:         "inst-1",
		PaymentCompletedAt: now.Add(-48 * time.Hour),
	}}}
	ledger := &memLedger{}
	accounts := &memAccounts{accounts: map[string]string{"inst-1": "inst@example.com"}}
	sender := &recordingSender{}
	engine := newEngine(src, ledger, accounts, sender, now, cfg)

	summary, err := engine.RunPayoutCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.ProvidersPaid)
	assert.Equal(t, 1, summary.ProvidersSkipped)
	assert.Empty(t, ledger.rows)

	// A later booking pushes the accumulated sum over the minimum; one
	// payout covers everything.
	src.bookings = append(src.bookings, models.PayableBooking{
		ID:                 "s-2",
		Kind:               models.KindSession,
		Amount:             0.02,
		ProviderID:         "inst-1",
		PaymentCompletedAt: now.Add(-25 * time.Hour),
	})
	summary, err = engine.RunPayoutCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ProvidersPaid)
	require.Len(t, ledger.rows, 1)
	assert.ElementsMatch(t, []string{"s-1", "s-2"}, ledger.rows[0].BookingIDs())
	assert.Equal(t, 10.01, ledger.rows[0].Amount)
}

func TestRunPayoutCycle_SplitCorrectness(t *testing.T) {
	now := time.Date(2025, 6, 2, 2, 0, 0, 0, time.UTC)
	src := &memSource{bookings: []models.PayableBooking{{
		ID:                 "h-1",
		Kind:               models.KindHotel,
		Amount:             100,
		ProviderID:         "owner-1",
		PaymentCompletedAt: now.Add(-30 * time.Hour),
	}}}
	ledger := &memLedger{}
	accounts := &memAccounts{accounts: map[string]string{"owner-1": "owner@example.com"}}
	sender := &recordingSender{}
	engine := newEngine(src, ledger, accounts, sender, now, defaultConfig())

	summary, err := engine.RunPayoutCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "80.00", summary.TotalAmount)
	require.Len(t, ledger.rows, 1)
	assert.Equal(t, 80.0, ledger.rows[0].Amount)
}

func TestRunPayoutCycle_UnlinkedProviderSkipped(t *testing.T) {
	now := time.Date(2025, 6, 2, 2, 0, 0, 0, time.UTC)
	src := &memSource{bookings: []models.PayableBooking{{
		ID:                 "h-1",
		Kind:               models.KindHotel,
		Amount:             100,
		ProviderID:         "owner-1",
		PaymentCompletedAt: now.Add(-30 * time.Hour),
	}}}
	ledger := &memLedger{}
	accounts := &memAccounts{accounts: map[string]string{}}
	sender := &recordingSender{}
	engine := newEngine(src, ledger, accounts, sender, now, defaultConfig())

	summary, err := engine.RunPayoutCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ProvidersSkipped)
	assert.Empty(t, ledger.rows)
	assert.Empty(t, sender.calls)

	// Linking the account later makes the accrued bookings payable.
	accounts.accounts["owner-1"] = "owner@example.com"
	summary, err = engine.RunPayoutCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ProvidersPaid)
	require.Len(t, ledger.rows, 1)
	assert.Contains(t, ledger.rows[0].BookingIDs(), "h-1")
}

func TestRunPayoutCycle_SettlementDelayBoundary(t *testing.T) {
	now := time.Date(2025, 6, 2, 2, 0, 0, 0, time.UTC)
	src := &memSource{bookings: []models.PayableBooking{
		{
			ID: "young", Kind: models.KindHotel, Amount: 100,
			ProviderID: "owner-1", PaymentCompletedAt: now.Add(-23 * time.Hour),
		},
		{
			ID: "settled", Kind: models.KindHotel, Amount: 100,
			ProviderID: "owner-1", PaymentCompletedAt: now.Add(-25 * time.Hour),
		},
	}}
	ledger := &memLedger{}
	accounts := &memAccounts{accounts: map[string]string{"owner-1": "owner@example.com"}}
	sender := &recordingSender{}
	engine := newEngine(src, ledger, accounts, sender, now, defaultConfig())

	_, err := engine.RunPayoutCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, ledger.rows, 1)
	assert.Equal(t, []string{"settled"}, ledger.rows[0].BookingIDs())
}

func TestRunPayoutCycle_ProviderFailureIsolated(t *testing.T) {
	now := time.Date(2025, 6, 2, 2, 0, 0, 0, time.UTC)
	src := &memSource{bookings: []models.PayableBooking{
		{
			ID: "a-1", Kind: models.KindSession, Amount: 50,
			ProviderID: "inst-a", PaymentCompletedAt: now.Add(-48 * time.Hour),
		},
		{
			ID: "b-1", Kind: models.KindSession, Amount: 50,
			ProviderID: "inst-b", PaymentCompletedAt: now.Add(-48 * time.Hour),
		},
	}}
	ledger := &memLedger{}
	accounts := &memAccounts{accounts: map[string]string{
		"inst-a": "a@example.com",
		"inst-b": "b@example.com",
	}}
	sender := &recordingSender{failFor: map[string]bool{"a@example.com": true}}
	engine := newEngine(src, ledger, accounts, sender, now, defaultConfig())

	summary, err := engine.RunPayoutCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ProvidersPaid)
	assert.Equal(t, 1, summary.ProvidersFailed)
	require.Len(t, ledger.rows, 2)

	statusByUser := map[string]models.PayoutStatus{}
	for _, r := range ledger.rows {
		statusByUser[r.User] = r.Status
	}
	assert.Equal(t, models.PayoutFailed, statusByUser["inst-a"])
	assert.Equal(t, models.PayoutSent, statusByUser["inst-b"])

	// A FAILED payout does not cover its bookings: the next run retries
	// the failed provider and leaves the sent one alone.
	sender.failFor = nil
	summary, err = engine.RunPayoutCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ProvidersPaid)
	assert.Len(t, ledger.rows, 3)
}

func TestRunPayoutCycle_QueuedRowsStayCovered(t *testing.T) {
	now := time.Date(2025, 6, 2, 2, 0, 0, 0, time.UTC)
	src := &memSource{bookings: []models.PayableBooking{{
		ID: "h-1", Kind: models.KindHotel, Amount: 100,
		ProviderID: "owner-1", PaymentCompletedAt: now.Add(-30 * time.Hour),
	}}}
	// Simulate a crash after the QUEUED write of a previous run.
	ledger := &memLedger{rows: []*models.Payout{{
		ID:     primitive.NewObjectID(),
		User:   "owner-1",
		ItemID: "h-1",
		Status: models.PayoutQueued,
	}}}
	accounts := &memAccounts{accounts: map[string]string{"owner-1": "owner@example.com"}}
	sender := &recordingSender{}
	engine := newEngine(src, ledger, accounts, sender, now, defaultConfig())

	summary, err := engine.RunPayoutCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.ProvidersPaid)
	assert.Len(t, ledger.rows, 1)
	assert.Empty(t, sender.calls)
}

func TestBatchID_DeterministicFromBookingIDs(t *testing.T) {
	a := batchID([]string{"b1", "b2", "b3"})
	b := batchID([]string{"b1", "b2", "b3"})
	c := batchID([]string{"b1", "b2"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEmpty(t, a)
}
