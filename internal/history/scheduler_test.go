package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakePurger struct {
	mu    sync.Mutex
	calls int
	days  []int
	err   error
}

func (p *fakePurger) PurgeOlderThan(_ context.Context, days int) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.days = append(p.days, days)
	return 1, p.err
}

func (p *fakePurger) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestStartRetentionScheduler_RunsUntilCancelled(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"purges succeed", nil},
		{"purge failures do not stop the scheduler", errors.New("db down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePurger{err: tt.err}
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				StartRetentionScheduler(ctx, p, RetentionConfig{RetentionDays: 30, CheckInterval: 10 * time.Millisecond})
				close(done)
			}()

			deadline := time.Now().Add(2 * time.Second)
			for p.count() < 3 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			cancel()

			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("scheduler did not stop after cancel")
			}
			if got := p.count(); got < 3 {
				t.Errorf("purge ran %d times, want at least 3", got)
			}
			for _, d := range p.days {
				if d != 30 {
					t.Errorf("purged with %d days, want 30", d)
				}
			}
		})
	}
}

func TestStartRetentionScheduler_Defaults(t *testing.T) {
	p := &fakePurger{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		StartRetentionScheduler(ctx, p, RetentionConfig{})
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for p.count() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if p.count() != 1 {
		t.Fatalf("purge ran %d times, want exactly the startup run", p.count())
	}
	if p.days[0] != defaultRetentionDays {
		t.Errorf("days = %d, want %d", p.days[0], defaultRetentionDays)
	}
}
