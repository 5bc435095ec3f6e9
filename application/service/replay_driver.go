package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"swingref/application/port"
	"swingref/application/usecase"
	"swingref/domain/aggregate/event"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ReplayDriver periodically pulls new bars from a BarSource and advances a
// fixed set of tracked sessions, mirroring the teacher's BaseCronScheduler/
// BullishCronScheduler split between shared lifecycle plumbing and the
// work a single schedule performs.
type ReplayDriver struct {
	cron      *cron.Cron
	logger    *zap.Logger
	manager   *usecase.Manager
	source    port.BarSource
	notifier  port.Notifier
	snapshots port.SnapshotRepository
	handles   []string
	batchSize int
	isRunning bool
	mu        sync.RWMutex
}

// NewReplayDriver constructs a driver that advances the given session
// handles from source on the supplied cron schedule. A nil snapshots
// repository disables per-bar snapshot persistence.
func NewReplayDriver(
	logger *zap.Logger,
	manager *usecase.Manager,
	source port.BarSource,
	notifier port.Notifier,
	snapshots port.SnapshotRepository,
	handles []string,
	batchSize int,
) *ReplayDriver {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ReplayDriver{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		logger:    logger,
		manager:   manager,
		source:    source,
		notifier:  notifier,
		snapshots: snapshots,
		handles:   handles,
		batchSize: batchSize,
	}
}

// Start registers the polling job on schedule and starts the cron loop.
// Returns an error if the driver is already running or the schedule is
// empty, matching CronScheduler's lifecycle contract.
func (d *ReplayDriver) Start(schedule string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isRunning {
		return fmt.Errorf("replay driver already running")
	}
	if schedule == "" {
		return fmt.Errorf("no schedule configured")
	}

	if _, err := d.cron.AddFunc(schedule, d.tick); err != nil {
		return fmt.Errorf("failed to register replay schedule: %w", err)
	}

	d.cron.Start()
	d.isRunning = true
	d.logger.Info("replay driver started",
		zap.String("schedule", schedule),
		zap.Int("sessions", len(d.handles)),
	)
	return nil
}

// Stop stops the cron loop gracefully.
func (d *ReplayDriver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isRunning {
		d.cron.Stop()
		d.isRunning = false
		d.logger.Info("replay driver stopped")
	}
}

// IsRunning reports whether the driver's cron loop is active.
func (d *ReplayDriver) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.isRunning
}

func (d *ReplayDriver) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	for _, handle := range d.handles {
		d.advanceOne(ctx, handle)
	}
}

func (d *ReplayDriver) advanceOne(ctx context.Context, handle string) {
	after := d.manager.NextExpectedIndex(handle) - 1
	bars, err := d.source.NextBatch(ctx, after, d.batchSize)
	if err != nil {
		d.logger.Error("replay source fetch failed", zap.String("handle", handle), zap.Error(err))
		return
	}
	if len(bars) == 0 {
		return
	}

	events, snaps, err := d.manager.Advance(handle, bars, d.snapshots != nil)
	if err != nil {
		d.logger.Error("replay advance failed", zap.String("handle", handle), zap.Error(err))
		return
	}

	for _, snap := range snaps {
		if err := d.snapshots.Save(ctx, handle, snap); err != nil {
			d.logger.Warn("snapshot persist failed",
				zap.String("handle", handle),
				zap.Int64("bar_index", snap.BarIndex),
				zap.Error(err),
			)
		}
	}

	d.logger.Info("replay batch applied",
		zap.String("handle", handle),
		zap.Int("bars", len(bars)),
		zap.Int("events", len(events)),
	)

	if d.notifier == nil || !d.notifier.Enabled() {
		return
	}
	for _, evt := range events {
		if msg, ok := notifiableMessage(evt); ok {
			if err := d.notifier.Notify(ctx, msg); err != nil {
				d.logger.Warn("notify failed", zap.String("handle", handle), zap.Error(err))
			}
		}
	}
}

// notifiableMessage renders the event kinds worth surfacing externally
// (creation and level crossings); breach/prune bookkeeping stays internal.
func notifiableMessage(evt event.Event) (string, bool) {
	switch e := evt.(type) {
	case event.LegCreated:
		return fmt.Sprintf("new %s leg %s: origin %.4f -> pivot %.4f", e.Direction, e.LegID, e.OriginPrice, e.PivotPrice), true
	case event.LevelCross:
		return fmt.Sprintf("leg %s crossed %.3f (%s) at bar %d", e.LegID, e.LevelCrossed, e.CrossDirection, e.BarIndex), true
	default:
		return "", false
	}
}
