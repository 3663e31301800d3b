package schedule

import (
	"context"
	"sync"
	"time"

	"hitrivals/schedule/internal/models"
)

// Selection tracks the schedule a single viewer is looking at. Starting a new
// fetch cancels the one before it, and a superseded fetch reports false so
// its result can be dropped.
type Selection struct {
	svc *Service

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewSelection creates a selection backed by s
func (s *Service) NewSelection() *Selection {
	return &Selection{svc: s}
}

// Fetch loads date's schedule for league. The bool is false when another
// Fetch or Cancel on the same selection happened before this one finished.
func (sel *Selection) Fetch(ctx context.Context, date time.Time, league models.League) (Result, bool) {
	ctx, cancel := context.WithCancel(ctx)

	sel.mu.Lock()
	if sel.cancel != nil {
		sel.cancel()
	}
	sel.gen++
	gen := sel.gen
	sel.cancel = cancel
	sel.mu.Unlock()

	res := sel.svc.FetchScheduleForDate(ctx, date, league)

	sel.mu.Lock()
	current := gen == sel.gen
	if current {
		sel.cancel = nil
	}
	sel.mu.Unlock()
	cancel()

	return res, current
}

// Cancel aborts the in-flight fetch, if any
func (sel *Selection) Cancel() {
	sel.mu.Lock()
	defer sel.mu.Unlock()
	if sel.cancel != nil {
		sel.cancel()
		sel.cancel = nil
	}
	sel.gen++
}
