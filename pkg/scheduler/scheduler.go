// Package scheduler drives the matching engine on a fixed interval and
// forwards non-empty sweep results to the notification channel.
package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	tomb "gopkg.in/tomb.v2"

	"github.com/dhkim0428/simple-dex/pkg/venue"
)

// DefaultInterval matches the venue's historical sweep period.
const DefaultInterval = 50 * time.Second

// Sweeper runs one matching pass and returns the orders it filled.
type Sweeper interface {
	Sweep(ctx context.Context) ([]*venue.Order, error)
}

// Notifier receives the filled orders of each non-empty sweep.
type Notifier interface {
	NotifyFilled(orders []*venue.Order)
}

// Driver owns the periodic sweep goroutine.
type Driver struct {
	t        tomb.Tomb
	engine   Sweeper
	notifier Notifier
	interval time.Duration
	log      *zap.SugaredLogger
}

// New creates a driver. interval <= 0 selects DefaultInterval;
// notifier may be nil.
func New(engine Sweeper, notifier Notifier, interval time.Duration, log *zap.SugaredLogger) *Driver {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Driver{
		engine:   engine,
		notifier: notifier,
		interval: interval,
		log:      log,
	}
}

// Start launches the sweep loop.
func (d *Driver) Start() {
	d.t.Go(d.run)
}

// Stop terminates the loop and waits for the in-flight sweep, if any,
// to finish.
func (d *Driver) Stop() error {
	d.t.Kill(nil)
	return d.t.Wait()
}

func (d *Driver) run() error {
	d.log.Infow("sweep_scheduler_started", "interval", d.interval.String())
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	ctx := d.t.Context(nil)
	for {
		select {
		case <-d.t.Dying():
			d.log.Infow("sweep_scheduler_stopped")
			return nil
		case <-ticker.C:
			d.sweepOnce(ctx)
		}
	}
}

func (d *Driver) sweepOnce(ctx context.Context) {
	filled, err := d.engine.Sweep(ctx)
	if err != nil {
		if errors.Is(err, venue.ErrSweepInFlight) {
			// Previous sweep still running; skip this tick.
			return
		}
		d.log.Errorw("sweep_failed", "err", err)
		return
	}
	if len(filled) > 0 && d.notifier != nil {
		d.notifier.NotifyFilled(filled)
	}
}
