package core

// limiter.go bounds how many retrain requests run at once.
//
// Retraining is expensive on the service side, so the gateway admits at most
// maxConcurrent retrains. A caller that cannot get a slot within maxWait gets
// ErrTooManyRetrains. WaitForDrain lets shutdown wait for running retrains.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyRetrains is returned when no retrain slot frees up in time.
var ErrTooManyRetrains = errors.New("too many concurrent retrain requests, please try again later")

const (
	DefaultMaxConcurrentRetrains = 2
	DefaultMaxWaitTime           = 30 * time.Second
)

// RetrainLimiter is a counting semaphore with a bounded wait.
type RetrainLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewRetrainLimiter allows at most maxConcurrent holders. Non-positive
// arguments fall back to the defaults.
func NewRetrainLimiter(maxConcurrent int, maxWait time.Duration) *RetrainLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentRetrains
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &RetrainLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire waits for a slot. The caller must Release it when done.
func (l *RetrainLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyRetrains
	}
}

// Release frees a slot taken by Acquire.
func (l *RetrainLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// Active returns the number of slots in use.
func (l *RetrainLimiter) Active() int {
	return int(l.active.Load())
}

// LimiterStatus is a snapshot of a RetrainLimiter.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// Status returns the current limiter state.
func (l *RetrainLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.Active(),
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}

// WaitForDrain blocks until no slot is held or ctx is done.
func (l *RetrainLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for l.Active() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
