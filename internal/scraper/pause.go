package scraper

import (
	"context"
	"time"
)

// Pauser waits between listing requests.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration) error
}

// TimerPauser sleeps on a timer and wakes early when ctx is done.
type TimerPauser struct{}

// Pause blocks for delay or until ctx is done, whichever comes first.
func (TimerPauser) Pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
