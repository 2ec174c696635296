package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dhkim0428/simple-dex/pkg/venue"
)

type recordingSweeper struct {
	mu     sync.Mutex
	calls  int
	result []*venue.Order
	err    error
}

func (s *recordingSweeper) Sweep(context.Context) ([]*venue.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.result, s.err
}

func (s *recordingSweeper) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingNotifier struct {
	mu      sync.Mutex
	batches [][]*venue.Order
}

func (n *recordingNotifier) NotifyFilled(orders []*venue.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.batches = append(n.batches, orders)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestDriverSweepsOnInterval(t *testing.T) {
	sweeper := &recordingSweeper{result: []*venue.Order{{ID: "o1"}}}
	notifier := &recordingNotifier{}
	d := New(sweeper, notifier, 10*time.Millisecond, zap.NewNop().Sugar())

	d.Start()
	waitFor(t, func() bool { return sweeper.callCount() >= 2 })
	if err := d.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.batches) == 0 {
		t.Fatal("notifier never received a filled batch")
	}
	if notifier.batches[0][0].ID != "o1" {
		t.Errorf("notified order = %s, want o1", notifier.batches[0][0].ID)
	}
}

func TestDriverSkipsEmptySweeps(t *testing.T) {
	sweeper := &recordingSweeper{}
	notifier := &recordingNotifier{}
	d := New(sweeper, notifier, 10*time.Millisecond, zap.NewNop().Sugar())

	d.Start()
	waitFor(t, func() bool { return sweeper.callCount() >= 2 })
	if err := d.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.batches) != 0 {
		t.Errorf("notifier received %d batches for empty sweeps", len(notifier.batches))
	}
}

func TestDriverToleratesSweepErrors(t *testing.T) {
	sweeper := &recordingSweeper{err: errors.New("boom")}
	d := New(sweeper, nil, 10*time.Millisecond, zap.NewNop().Sugar())

	d.Start()
	waitFor(t, func() bool { return sweeper.callCount() >= 3 })
	if err := d.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestDriverStopBeforeFirstTick(t *testing.T) {
	sweeper := &recordingSweeper{}
	d := New(sweeper, nil, time.Hour, zap.NewNop().Sugar())

	d.Start()
	if err := d.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if sweeper.callCount() != 0 {
		t.Errorf("sweeper ran %d times before the first tick", sweeper.callCount())
	}
}
