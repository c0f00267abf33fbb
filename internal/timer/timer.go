// Package timer tracks time spent on a selected task and saves finished
// sessions to the time log.
package timer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fentz26/taskboard/internal/models"
)

// State is the timer's mode.
type State int

const (
	Idle State = iota
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "idle"
	}
}

// UnknownTaskTitle is logged when the selected task no longer resolves.
const UnknownTaskTitle = "Unknown Task"

// TitleResolver looks up a task's current title.
type TitleResolver func(taskID string) (string, bool)

// Options configures a Timer.
type Options struct {
	TickInterval time.Duration
	MinSave      time.Duration
}

// DefaultOptions ticks every second and refuses sessions under a second.
func DefaultOptions() Options {
	return Options{TickInterval: time.Second, MinSave: time.Second}
}

// Timer is the session state machine. Elapsed time is always recomputed
// from the clock; the ticker only tells listeners to redraw.
type Timer struct {
	clock   models.Clock
	log     *Log
	resolve TitleResolver
	opts    Options

	mu          sync.Mutex
	state       State
	taskID      string
	accumulated time.Duration
	startedAt   time.Time
	stop        chan struct{}
	onTick      []func(time.Duration)

	tickWG sync.WaitGroup
}

// New creates an idle timer.
func New(clock models.Clock, log *Log, resolve TitleResolver, opts Options) *Timer {
	def := DefaultOptions()
	if opts.TickInterval <= 0 {
		opts.TickInterval = def.TickInterval
	}
	if opts.MinSave <= 0 {
		opts.MinSave = def.MinSave
	}
	if clock == nil {
		clock = models.RealClock{}
	}
	return &Timer{clock: clock, log: log, resolve: resolve, opts: opts}
}

// OnTick registers fn to receive the elapsed time on every tick while running.
// Listeners run outside the timer lock, so a tick already being delivered
// when Pause, Reset or Save returns may still arrive once; callers that need
// the settled value read Elapsed. No tick is delivered after that one.
func (t *Timer) OnTick(fn func(time.Duration)) {
	t.mu.Lock()
	t.onTick = append(t.onTick, fn)
	t.mu.Unlock()
}

// State returns the current mode.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// TaskID returns the selected task.
func (t *Timer) TaskID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.taskID
}

// Elapsed returns accumulated time plus the running segment.
func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsedLocked()
}

func (t *Timer) elapsedLocked() time.Duration {
	if t.state != Running {
		return t.accumulated
	}
	d := t.accumulated + t.clock.Now().Sub(t.startedAt)
	if d < 0 {
		return t.accumulated
	}
	return d
}

// SelectTask chooses the task to time. It is refused while running.
func (t *Timer) SelectTask(taskID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Running {
		return false
	}
	t.taskID = taskID
	return true
}

// Start begins or resumes timing the selected task.
func (t *Timer) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Running {
		return nil
	}
	if t.taskID == "" {
		return models.Invalid("task", "select a task before starting the timer")
	}
	t.startedAt = t.clock.Now()
	t.state = Running
	t.startTickerLocked()
	return nil
}

// Pause freezes elapsed time.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pauseLocked()
}

func (t *Timer) pauseLocked() {
	if t.state != Running {
		return
	}
	t.accumulated = t.elapsedLocked()
	t.state = Paused
	t.stopTickerLocked()
}

// Reset pauses and zeroes the timer from any state.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pauseLocked()
	t.stopTickerLocked()
	t.accumulated = 0
	t.state = Idle
}

// Save appends the paused session to the log and resets the timer. It is
// refused while running and when less than the minimum has elapsed.
func (t *Timer) Save(ctx context.Context) (models.TimeLogEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == Running {
		return models.TimeLogEntry{}, models.Invalid("timer", "pause the timer before saving")
	}
	elapsed := t.accumulated
	if elapsed < t.opts.MinSave {
		return models.TimeLogEntry{}, models.Invalid("timer", "track at least %s before saving", t.opts.MinSave)
	}

	title := UnknownTaskTitle
	if t.resolve != nil {
		if name, ok := t.resolve(t.taskID); ok && name != "" {
			title = name
		}
	}
	entry := models.TimeLogEntry{
		ID:         uuid.New().String(),
		TaskID:     t.taskID,
		TaskTitle:  title,
		DurationMs: elapsed.Milliseconds(),
		SavedAt:    models.EpochMillis(t.clock.Now()),
	}
	if err := t.log.Append(ctx, entry); err != nil {
		return models.TimeLogEntry{}, err
	}

	t.stopTickerLocked()
	t.accumulated = 0
	t.state = Idle
	return entry, nil
}

// Close stops the ticker and waits for it to exit.
func (t *Timer) Close() {
	t.mu.Lock()
	t.pauseLocked()
	t.stopTickerLocked()
	t.mu.Unlock()
	t.tickWG.Wait()
}

func (t *Timer) startTickerLocked() {
	t.stopTickerLocked()
	stop := make(chan struct{})
	t.stop = stop
	t.tickWG.Add(1)
	go t.tickLoop(stop)
}

func (t *Timer) stopTickerLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

func (t *Timer) tickLoop(stop chan struct{}) {
	defer t.tickWG.Done()

	ticker := time.NewTicker(t.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			if t.stop != stop || t.state != Running {
				t.mu.Unlock()
				return
			}
			elapsed := t.elapsedLocked()
			fns := append([]func(time.Duration){}, t.onTick...)
			t.mu.Unlock()

			for _, fn := range fns {
				fn(elapsed)
			}
		}
	}
}
