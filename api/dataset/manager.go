package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/manaskarra/pdash/api/metrics"
	"github.com/manaskarra/pdash/internal/dberror"
)

const managerStopTimeout = 5 * time.Second

// Loader fetches the full monthly metrics table.
type Loader interface {
	LoadMonthlyMetrics(ctx context.Context) ([]MonthlyMetric, error)
}

// Manager owns the current snapshot and refreshes it in the background.
// Readers always get a complete snapshot; a failed refresh keeps serving
// the previous one.
type Manager struct {
	loader   Loader
	interval time.Duration
	clock    clockwork.Clock
	log      *slog.Logger

	mu   sync.RWMutex
	snap *Snapshot

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a manager that reloads every interval using the given
// clock. Pass clockwork.NewRealClock outside of tests.
func NewManager(loader Loader, interval time.Duration, clock clockwork.Clock, log *slog.Logger) *Manager {
	return &Manager{
		loader:   loader,
		interval: interval,
		clock:    clock,
		log:      log,
		snap:     NewSnapshot(nil),
	}
}

// Start loads the initial snapshot synchronously so the API never serves
// an empty dataset, then begins the refresh loop.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.Refresh(ctx); err != nil {
		return fmt.Errorf("initial load: %w", err)
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go m.refreshLoop(ctx)
	return nil
}

func (m *Manager) refreshLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			if err := m.Refresh(ctx); err != nil {
				m.log.Error("snapshot refresh failed, keeping previous data", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Refresh reloads the dataset and swaps the snapshot in one step.
func (m *Manager) Refresh(ctx context.Context) error {
	start := m.clock.Now()
	rows, err := dberror.Retry(ctx, dberror.DefaultRetryConfig(), func() ([]MonthlyMetric, error) {
		return m.loader.LoadMonthlyMetrics(ctx)
	})
	if err != nil {
		metrics.RecordSnapshotRefresh(m.clock.Since(start), 0, 0, err)
		return fmt.Errorf("load monthly metrics: %w", err)
	}
	snap := NewSnapshot(rows)
	metrics.RecordSnapshotRefresh(m.clock.Since(start), len(rows), len(snap.aggregates), nil)

	m.mu.Lock()
	m.snap = snap
	m.mu.Unlock()

	m.log.Info("snapshot refreshed",
		"rows", len(rows),
		"partners", len(snap.aggregates),
		"months", len(snap.months),
		"took", m.clock.Since(start))
	return nil
}

// Snapshot returns the current snapshot. Never nil.
func (m *Manager) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

// Stop halts the refresh loop and waits briefly for it to exit.
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(managerStopTimeout):
		m.log.Warn("snapshot manager stop timed out, continuing shutdown")
	}
}
