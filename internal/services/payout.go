package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Adnan2k5/Booking-Web-sub000/internal/clock"
	"github.com/Adnan2k5/Booking-Web-sub000/internal/models"
)

// PayoutItem is one transfer in a payout batch.
type PayoutItem struct {
	Receiver string
	Amount   decimal.Decimal
	Currency string
	Note     string
}

type payableSource interface {
	CollectPayable(ctx context.Context, completedBefore time.Time) ([]models.PayableBooking, error)
}

type payoutLedger interface {
	CoveredBookingIDs(ctx context.Context) (map[string]struct{}, error)
	Create(ctx context.Context, p *models.Payout) error
	MarkSent(ctx context.Context, id primitive.ObjectID, raw string) error
	MarkFailed(ctx context.Context, id primitive.ObjectID, raw string) error
}

type providerAccounts interface {
	PayoutAccount(ctx context.Context, userID string) (string, error)
}

type payoutSender interface {
	SendBatch(ctx context.Context, batchID string, items []PayoutItem) (string, error)
}

// PayoutConfig tunes one cycle. ProviderShare is the provider's cut of
// each booking; the platform retains the remainder.
type PayoutConfig struct {
	SettlementDelay time.Duration
	MinimumPayout   decimal.Decimal
	ProviderShare   decimal.Decimal
	Currency        string
	Note            string
}

// CycleSummary is what a run reports back: to the scheduler's log and
// to the administrative trigger.
type CycleSummary struct {
	ProvidersPaid    int    `json:"providersPaid"`
	ProvidersSkipped int    `json:"providersSkipped"`
	ProvidersFailed  int    `json:"providersFailed"`
	TotalAmount      string `json:"totalAmount"`
}

// PayoutEngine sweeps settled bookings into one payout per provider per
// run. The mutex serializes the scheduled trigger and the
// administrative one: the covered-bookings check is check-then-write,
// so two overlapping cycles could otherwise pay a booking twice.
type PayoutEngine struct {
	mu       sync.Mutex
	bookings payableSource
	ledger   payoutLedger
	accounts providerAccounts
	sender   payoutSender
	clock    clock.Clock
	cfg      PayoutConfig
}

func NewPayoutEngine(bookings payableSource, ledger payoutLedger, accounts providerAccounts, sender payoutSender, clk clock.Clock, cfg PayoutConfig) *PayoutEngine {
	return &PayoutEngine{
		bookings: bookings,
		ledger:   ledger,
		accounts: accounts,
		sender:   sender,
		clock:    clk,
		cfg:      cfg,
	}
}

// batchID derives the processor idempotency key from the sorted covered
// booking ids, so a retried group after a crash re-presents the same
// key instead of a fresh random one.
func batchID(bookingIDs []string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("booking-web:payout:"+models.JoinBookingIDs(bookingIDs))).String()
}

// RunPayoutCycle collects settled bookings, drops those already covered
// by a non-failed payout, groups by provider, applies the minimum and
// the linked-account filter, and disburses one payout per remaining
// provider. One provider's failure never aborts the cycle.
func (e *PayoutEngine) RunPayoutCycle(ctx context.Context) (CycleSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	cutoff := now.Add(-e.cfg.SettlementDelay)

	eligible, err := e.bookings.CollectPayable(ctx, cutoff)
	if err != nil {
		return CycleSummary{}, fmt.Errorf("payout collection failed: %v", err)
	}

	covered, err := e.ledger.CoveredBookingIDs(ctx)
	if err != nil {
		return CycleSummary{}, fmt.Errorf("failed to load covered bookings: %v", err)
	}

	groups := make(map[string][]models.PayableBooking)
	for _, b := range eligible {
		if _, done := covered[b.ID]; done {
			continue
		}
		groups[b.ProviderID] = append(groups[b.ProviderID], b)
	}

	providers := make([]string, 0, len(groups))
	for p := range groups {
		providers = append(providers, p)
	}
	sort.Strings(providers)

	summary := CycleSummary{}
	total := decimal.Zero

	for _, providerID := range providers {
		bookings := groups[providerID]

		sum := decimal.Zero
		ids := make([]string, 0, len(bookings))
		for _, b := range bookings {
			sum = sum.Add(decimal.NewFromFloat(b.Amount))
			ids = append(ids, b.ID)
		}
		sort.Strings(ids)
		payable := sum.Mul(e.cfg.ProviderShare)

		if payable.LessThan(e.cfg.MinimumPayout) {
			// Below-minimum groups accrue: the bookings stay uncovered
			// and roll into the next cycle.
			log.Printf("Payout for provider %s below minimum (%s), skipping %d bookings", providerID, payable.StringFixed(2), len(ids))
			summary.ProvidersSkipped++
			continue
		}

		account, err := e.accounts.PayoutAccount(ctx, providerID)
		if err != nil {
			log.Printf("Account lookup failed for provider %s: %v", providerID, err)
			summary.ProvidersFailed++
			continue
		}
		if account == "" {
			log.Printf("Provider %s has no linked payout account, skipping %d bookings", providerID, len(ids))
			summary.ProvidersSkipped++
			continue
		}

		amount := payable.Round(2)
		payout := &models.Payout{
			ID:        primitive.NewObjectID(),
			User:      providerID,
			Amount:    amount.InexactFloat64(),
			Currency:  e.cfg.Currency,
			Note:      e.cfg.Note,
			BatchID:   batchID(ids),
			ItemID:    models.JoinBookingIDs(ids),
			Status:    models.PayoutQueued,
			CreatedAt: now,
			UpdatedAt: now,
		}

		// Written before the transfer call: a crash here leaves a
		// QUEUED row whose bookings stay covered, for manual
		// reconciliation.
		if err := e.ledger.Create(ctx, payout); err != nil {
			log.Printf("Failed to queue payout for provider %s: %v", providerID, err)
			summary.ProvidersFailed++
			continue
		}

		raw, err := e.sender.SendBatch(ctx, payout.BatchID, []PayoutItem{{
			Receiver: account,
			Amount:   amount,
			Currency: e.cfg.Currency,
			Note:     e.cfg.Note,
		}})
		if err != nil {
			log.Printf("Payout transfer failed for provider %s: %v", providerID, err)
			if markErr := e.ledger.MarkFailed(ctx, payout.ID, err.Error()); markErr != nil {
				log.Printf("Failed to mark payout %s failed: %v", payout.ID.Hex(), markErr)
			}
			summary.ProvidersFailed++
			continue
		}

		if err := e.ledger.MarkSent(ctx, payout.ID, raw); err != nil {
			log.Printf("Failed to mark payout %s sent: %v", payout.ID.Hex(), err)
		}
		summary.ProvidersPaid++
		total = total.Add(amount)
		log.Printf("Payout sent: provider=%s amount=%s bookings=%d batch=%s", providerID, amount.StringFixed(2), len(ids), payout.BatchID)
	}

	summary.TotalAmount = total.StringFixed(2)
	log.Printf("Payout cycle complete: paid=%d skipped=%d failed=%d total=%s",
		summary.ProvidersPaid, summary.ProvidersSkipped, summary.ProvidersFailed, summary.TotalAmount)
	return summary, nil
}
