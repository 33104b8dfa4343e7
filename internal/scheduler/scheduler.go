package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/Adnan2k5/Booking-Web-sub000/internal/clock"
	"github.com/Adnan2k5/Booking-Web-sub000/internal/services"
)

type cycleRunner interface {
	RunPayoutCycle(ctx context.Context) (services.CycleSummary, error)
}

// Scheduler fires the payout cycle once daily at a fixed UTC hour.
// Mutual exclusion with the administrative trigger lives in the engine,
// not here; a second instance of the process would need a distributed
// lease instead.
type Scheduler struct {
	runner cycleRunner
	clock  clock.Clock
	hour   int
}

func New(runner cycleRunner, clk clock.Clock, hourUTC int) *Scheduler {
	return &Scheduler{runner: runner, clock: clk, hour: hourUTC}
}

func (s *Scheduler) nextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// Start runs the trigger loop until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		for {
			now := s.clock.Now()
			next := s.nextRun(now)
			timer := time.NewTimer(next.Sub(now))
			log.Printf("Next payout cycle scheduled for %s", next.Format(time.RFC3339))

			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
			summary, err := s.runner.RunPayoutCycle(runCtx)
			cancel()
			if err != nil {
				// Failed cycles are retried at the next daily trigger,
				// never in a tight loop.
				log.Printf("Scheduled payout cycle failed: %v", err)
				continue
			}
			log.Printf("Scheduled payout cycle: paid=%d skipped=%d failed=%d total=%s",
				summary.ProvidersPaid, summary.ProvidersSkipped, summary.ProvidersFailed, summary.TotalAmount)
		}
	}()
}
