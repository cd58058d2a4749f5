// Package stopwatch tracks the single running time entry of a user.
//
// A Machine is either Idle or Running. Start and Stop only change state after
// the data service confirmed the write; on failure the previous state is
// kept and the error is returned. While Running the machine owns exactly one
// ticker that refreshes the displayed "now", and Stop persists that last
// ticked value so the shown and stored durations agree.
package stopwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Tiliavir/timeplan/internal/model"
	"github.com/Tiliavir/timeplan/internal/store"
	"github.com/Tiliavir/timeplan/internal/timecalc"
)

// State of the stopwatch.
type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

var (
	// ErrMultipleRunning means the data service holds more than one running
	// entry. It is not repaired automatically.
	ErrMultipleRunning = errors.New("more than one time entry is running")
	ErrAlreadyRunning  = errors.New("timer is already running")
	ErrNotRunning      = errors.New("timer is not running")
	ErrBusy            = errors.New("another timer operation is in progress")
)

// DefaultInterval is the display refresh rate.
const DefaultInterval = time.Second

// Snapshot is a copy of the machine's state safe to hand to renderers.
type Snapshot struct {
	State       State
	Entry       model.TimeEntry
	Description string
	Now         time.Time
}

// Elapsed is the time between the running entry's start and the last tick.
func (s Snapshot) Elapsed() time.Duration {
	if s.State != Running {
		return 0
	}
	return s.Now.Sub(s.Entry.Start)
}

// ElapsedText renders Elapsed as hh:mm:ss.
func (s Snapshot) ElapsedText() string {
	if s.State != Running {
		return timecalc.FormatHHMMSS(0)
	}
	return timecalc.FormatElapsed(s.Entry.Start, s.Now)
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(m *Machine) { m.clock = clock }
}

// WithInterval sets the tick interval. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithTickHandler registers fn to be called after every tick. fn runs on the
// ticker goroutine without any machine lock held.
func WithTickHandler(fn func(Snapshot)) Option {
	return func(m *Machine) { m.onTick = fn }
}

// Machine is the stopwatch. The zero value is not usable; call New.
type Machine struct {
	repo     store.EntryRepository
	clock    func() time.Time
	interval time.Duration
	onTick   func(Snapshot)

	// opMu serializes remote operations; a second Start or Stop while one is
	// in flight fails with ErrBusy instead of queueing.
	opMu sync.Mutex

	mu          sync.Mutex
	state       State
	entry       model.TimeEntry
	description string
	now         time.Time
	cancel      context.CancelFunc
	gen         uint64
}

// New returns an Idle machine writing through repo.
func New(repo store.EntryRepository, opts ...Option) *Machine {
	m := &Machine{
		repo:     repo,
		clock:    time.Now,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Recover finds the running entry in a freshly fetched collection. It
// returns nil when nothing is running and ErrMultipleRunning when more than
// one entry is.
func Recover(entries []model.TimeEntry) (*model.TimeEntry, error) {
	var running *model.TimeEntry
	for i := range entries {
		if !entries[i].Running() {
			continue
		}
		if running != nil {
			return nil, fmt.Errorf("%w: %s and %s", ErrMultipleRunning, running.ID, entries[i].ID)
		}
		running = &entries[i]
	}
	if running == nil {
		return nil, nil
	}
	e := *running
	return &e, nil
}

// Load applies a recovery scan of entries: a single running entry is adopted,
// none leaves the machine Idle.
func (m *Machine) Load(entries []model.TimeEntry) error {
	running, err := Recover(entries)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if running == nil {
		if m.state == Running {
			slog.Debug("running entry no longer reported, going idle", "id", m.entry.ID)
		}
		m.resetLocked()
		return nil
	}
	m.adoptLocked(*running)
	return nil
}

// Refresh fetches the entry collection and loads it.
func (m *Machine) Refresh(ctx context.Context) ([]model.TimeEntry, error) {
	entries, err := m.repo.ListTimeEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading time entries: %w", err)
	}
	return entries, m.Load(entries)
}

func (m *Machine) adoptLocked(e model.TimeEntry) {
	m.state = Running
	m.entry = e
	m.description = e.Description
	m.now = m.clock()
	if m.now.Before(e.Start) {
		m.now = e.Start
	}
	m.startTickerLocked()
}

func (m *Machine) resetLocked() {
	m.stopTickerLocked()
	m.state = Idle
	m.entry = model.TimeEntry{}
	m.description = ""
	m.now = time.Time{}
}

// Start creates a running entry starting now. The machine only becomes
// Running once the entry was created.
func (m *Machine) Start(ctx context.Context, description string) error {
	if !m.opMu.TryLock() {
		return ErrBusy
	}
	defer m.opMu.Unlock()

	m.mu.Lock()
	if m.state == Running {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	m.mu.Unlock()

	startMoment := m.clock()
	e, err := m.repo.CreateTimeEntry(ctx, model.NewTimeEntry{Description: description, Start: startMoment})
	if err != nil {
		return fmt.Errorf("starting timer: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Running
	m.entry = e
	m.description = e.Description
	m.now = e.Start
	m.startTickerLocked()
	slog.Debug("timer started", "id", e.ID)
	return nil
}

// Stop sets the running entry's stop to the last ticked time. On failure the
// machine stays Running and keeps ticking.
func (m *Machine) Stop(ctx context.Context) (model.TimeEntry, error) {
	if !m.opMu.TryLock() {
		return model.TimeEntry{}, ErrBusy
	}
	defer m.opMu.Unlock()

	m.mu.Lock()
	if m.state != Running {
		m.mu.Unlock()
		return model.TimeEntry{}, ErrNotRunning
	}
	stopMoment := m.now
	id := m.entry.ID
	m.mu.Unlock()

	stopped, err := m.repo.UpdateTimeEntry(ctx, model.EntryUpdate{ID: id, Stop: &stopMoment})
	if err != nil {
		return model.TimeEntry{}, fmt.Errorf("stopping timer: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
	slog.Debug("timer stopped", "id", id)
	return stopped, nil
}

// SetDescription edits the running entry's description locally.
func (m *Machine) SetDescription(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.description = text
}

// CommitDescription persists a changed description of the running entry. On
// failure the description reverts to the last persisted value. When Idle it
// does nothing.
func (m *Machine) CommitDescription(ctx context.Context) error {
	if !m.opMu.TryLock() {
		return ErrBusy
	}
	defer m.opMu.Unlock()

	m.mu.Lock()
	if m.state != Running || m.description == m.entry.Description {
		m.mu.Unlock()
		return nil
	}
	id := m.entry.ID
	text := m.description
	m.mu.Unlock()

	updated, err := m.repo.UpdateTimeEntry(ctx, model.EntryUpdate{ID: id, Description: &text})

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Running || m.entry.ID != id {
		return err
	}
	if err != nil {
		m.description = m.entry.Description
		return fmt.Errorf("updating description: %w", err)
	}
	m.entry.Description = updated.Description
	m.description = updated.Description
	return nil
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() Snapshot {
	return Snapshot{
		State:       m.state,
		Entry:       m.entry,
		Description: m.description,
		Now:         m.now,
	}
}

// Close cancels the ticker. The machine must not be used afterwards.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTickerLocked()
}

// startTickerLocked replaces any running ticker with a new one.
func (m *Machine) startTickerLocked() {
	m.stopTickerLocked()
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.gen++
	go m.run(ctx, m.gen)
}

// stopTickerLocked cancels the ticker without waiting for it; a tick racing
// the cancel is discarded by the generation check.
func (m *Machine) stopTickerLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.gen++
}

func (m *Machine) run(ctx context.Context, gen uint64) {
	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.tick(gen)
		}
	}
}

func (m *Machine) tick(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != Running {
		m.mu.Unlock()
		return
	}
	m.now = m.clock()
	snap := m.snapshotLocked()
	handler := m.onTick
	m.mu.Unlock()

	if handler != nil {
		handler(snap)
	}
}
