package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
	"ridehail/internal/service"
)

const (
	// DefaultSweepSpec runs the sweeper once a minute.
	DefaultSweepSpec = "@every 1m"
	// DefaultGracePeriod leaves in-flight completions alone.
	DefaultGracePeriod = 2 * time.Minute

	sweepTimeout = 50 * time.Second
)

// Settler settles the earning of a completed booking.
type Settler interface {
	Settle(ctx context.Context, bookingID string) (*domain.DriverEarning, error)
}

// SettlementSweeper retries settlement for completed bookings that still
// carry the pending-settlement marker, e.g. after a crash between Complete
// and Settle.
type SettlementSweeper struct {
	bookings repository.BookingRepository
	settler  Settler
	grace    time.Duration
	now      func() time.Time
}

// NewSettlementSweeper creates a new SettlementSweeper.
func NewSettlementSweeper(bookings repository.BookingRepository, settler Settler, grace time.Duration) *SettlementSweeper {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &SettlementSweeper{
		bookings: bookings,
		settler:  settler,
		grace:    grace,
		now:      time.Now,
	}
}

// Run implements cron.Job.
func (s *SettlementSweeper) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if _, err := s.Sweep(ctx); err != nil {
		log.Printf("[SWEEPER] run failed: %v", err)
	}
}

// Sweep settles every booking whose marker is older than the grace period
// and returns how many were settled.
func (s *SettlementSweeper) Sweep(ctx context.Context) (int, error) {
	pending, err := s.bookings.ListPendingSettlement(ctx, s.now().Add(-s.grace))
	if err != nil {
		return 0, fmt.Errorf("list pending settlements: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	settled := 0
	for _, b := range pending {
		if ctx.Err() != nil {
			break
		}

		_, err := s.settler.Settle(ctx, b.ID)
		switch {
		case err == nil:
			settled++
		case errors.Is(err, service.ErrSettlementInProgress):
			// Another instance holds the lock.
		case errors.Is(err, service.ErrEarningAlreadyExists):
			log.Printf("[SWEEPER] booking %s has an earning but is still marked pending", b.ID)
		default:
			log.Printf("[SWEEPER] failed to settle booking %s: %v", b.ID, err)
		}
	}

	log.Printf("[SWEEPER] settled %d of %d pending booking(s)", settled, len(pending))
	return settled, nil
}

// NewScheduler returns a cron scheduler that runs the sweeper on spec. A run
// is skipped while the previous one is still going.
func NewScheduler(spec string, sweeper *SettlementSweeper) (*cron.Cron, error) {
	if spec == "" {
		spec = DefaultSweepSpec
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddJob(spec, sweeper); err != nil {
		return nil, fmt.Errorf("schedule settlement sweeper %q: %w", spec, err)
	}
	return c, nil
}
