// Package session holds the single workout in progress. Mutations are
// serialized against the latest snapshot and the draft is persisted to a
// local blob store with debounced writes.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
)

var (
	// ErrWorkoutInProgress is returned when starting a workout while another
	// one is active.
	ErrWorkoutInProgress = errors.New("a workout is already in progress")
	// ErrNoActiveWorkout is returned by operations that need an active workout.
	ErrNoActiveWorkout = errors.New("no workout in progress")
)

// DefaultDebounce is the quiet period before a draft is written.
const DefaultDebounce = 750 * time.Millisecond

const (
	draftKey = "session/draft"
	prefsKey = "session/prefs"
)

const writeTimeout = 10 * time.Second

// Archive stores finished workouts.
type Archive interface {
	SaveWorkout(ctx context.Context, w models.Workout) error
}

// Finisher finalizes a workout.
type Finisher interface {
	Finish(w models.Workout) models.Workout
}

type prefs struct {
	Bodyweight float64 `json:"bodyweight"`
}

// Manager owns the workout in progress.
type Manager struct {
	finisher Finisher
	store    storage.Blobs
	archive  Archive
	log      *slog.Logger
	debounce time.Duration

	mu     sync.Mutex
	active *models.Workout
	dirty  bool
	timer  *time.Timer

	// writeMu orders draft writes so an older snapshot never lands after a newer one.
	writeMu sync.Mutex
}

// NewManager creates a Manager. A non-positive debounce uses DefaultDebounce.
func NewManager(finisher Finisher, store storage.Blobs, archive Archive, logger *slog.Logger, debounce time.Duration) *Manager {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Manager{
		finisher: finisher,
		store:    store,
		archive:  archive,
		log:      logger,
		debounce: debounce,
	}
}

// Restore loads the draft left by a previous process. A draft that was
// already finished is archived and cleared.
func (m *Manager) Restore(ctx context.Context) error {
	data, ok, err := m.store.Get(ctx, draftKey)
	if err != nil {
		return fmt.Errorf("restoring draft: %w", err)
	}
	if !ok {
		return nil
	}
	w, err := models.DecodeWorkout(data)
	if err != nil {
		return fmt.Errorf("restoring draft: %w", err)
	}

	if !w.InProgress() {
		if err := m.archive.SaveWorkout(ctx, w); err != nil {
			return fmt.Errorf("archiving restored workout: %w", err)
		}
		m.log.Info("archived finished draft", "workout_id", w.ID)
		return m.store.Delete(ctx, draftKey)
	}

	m.mu.Lock()
	m.active = &w
	m.mu.Unlock()
	m.log.Info("restored workout in progress", "workout_id", w.ID, "started_at", w.StartedAt)
	return nil
}

// Start makes w the active workout. A zero bodyweight is filled in from the
// last finished workout.
func (m *Manager) Start(ctx context.Context, w models.Workout) (models.Workout, error) {
	if !w.InProgress() {
		return models.Workout{}, fmt.Errorf("starting workout %s: already finished", w.ID)
	}
	if w.Bodyweight == 0 {
		w.Bodyweight = m.LastBodyweight(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return models.Workout{}, fmt.Errorf("%w: %s", ErrWorkoutInProgress, m.active.ID)
	}
	m.active = &w
	m.scheduleLocked()
	m.log.Info("workout started", "workout_id", w.ID, "name", w.Name)
	return w.Clone(), nil
}

// Active returns a copy of the workout in progress.
func (m *Manager) Active() (models.Workout, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return models.Workout{}, false
	}
	return m.active.Clone(), true
}

// Apply runs fn against the latest snapshot and installs its result. Calls
// are serialized; fn must not block.
func (m *Manager) Apply(fn func(models.Workout) (models.Workout, error)) (models.Workout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return models.Workout{}, ErrNoActiveWorkout
	}
	next, err := fn(*m.active)
	if err != nil {
		return models.Workout{}, err
	}
	m.active = &next
	m.scheduleLocked()
	return next.Clone(), nil
}

// Finish finalizes the active workout, archives it and clears the draft.
// If archiving fails the workout stays active. A failed draft clear after
// archiving is retried on the next flush.
func (m *Manager) Finish(ctx context.Context) (models.Workout, error) {
	m.mu.Lock()
	if m.active == nil {
		m.mu.Unlock()
		return models.Workout{}, ErrNoActiveWorkout
	}
	finished := m.finisher.Finish(*m.active)
	if err := m.archive.SaveWorkout(ctx, finished); err != nil {
		m.mu.Unlock()
		return models.Workout{}, fmt.Errorf("archiving workout: %w", err)
	}
	m.active = nil
	m.dirty = true
	m.stopLocked()
	m.mu.Unlock()

	if err := storage.Write(ctx, m.store, prefsKey, prefs{Bodyweight: finished.Bodyweight}); err != nil {
		m.log.Warn("saving bodyweight failed", "error", err)
	}
	if err := m.Flush(ctx); err != nil {
		m.log.Warn("clearing finished draft failed, will retry", "workout_id", finished.ID, "error", err)
		if err := m.markDraftFinished(ctx, finished); err != nil {
			m.log.Warn("marking draft finished failed", "workout_id", finished.ID, "error", err)
		}
	}
	m.log.Info("workout finished", "workout_id", finished.ID, "exercises", len(finished.Exercises))
	return finished, nil
}

// Discard drops the active workout without archiving it.
func (m *Manager) Discard(ctx context.Context) error {
	m.mu.Lock()
	if m.active == nil {
		m.mu.Unlock()
		return ErrNoActiveWorkout
	}
	id := m.active.ID
	m.active = nil
	m.dirty = true
	m.stopLocked()
	m.mu.Unlock()

	m.log.Info("workout discarded", "workout_id", id)
	return m.Flush(ctx)
}

// Flush writes any pending change immediately.
func (m *Manager) Flush(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	if !m.dirty {
		m.mu.Unlock()
		return nil
	}
	var snapshot *models.Workout
	if m.active != nil {
		w := m.active.Clone()
		snapshot = &w
	}
	m.dirty = false
	m.mu.Unlock()

	if snapshot == nil {
		if err := m.store.Delete(ctx, draftKey); err != nil {
			m.markDirty()
			return fmt.Errorf("clearing draft: %w", err)
		}
		return nil
	}
	doc, err := models.EncodeWorkout(*snapshot)
	if err != nil {
		return err
	}
	if err := m.store.Put(ctx, draftKey, doc); err != nil {
		m.markDirty()
		return fmt.Errorf("writing draft: %w", err)
	}
	return nil
}

// markDraftFinished replaces a stale draft with the finished workout so
// Restore archives it instead of resuming it. A draft from a newer workout
// is left alone.
func (m *Manager) markDraftFinished(ctx context.Context, finished models.Workout) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	replaced := m.active != nil
	m.mu.Unlock()
	if replaced {
		return nil
	}
	doc, err := models.EncodeWorkout(finished)
	if err != nil {
		return err
	}
	return m.store.Put(ctx, draftKey, doc)
}

// Close stops the debounce timer and writes any pending change.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.stopLocked()
	m.mu.Unlock()
	return m.Flush(ctx)
}

// LastBodyweight returns the bodyweight of the last finished workout, or 0.
func (m *Manager) LastBodyweight(ctx context.Context) float64 {
	p, err := storage.Read(ctx, m.store, prefsKey, prefs{})
	if err != nil {
		m.log.Warn("reading preferences failed", "error", err)
	}
	return p.Bodyweight
}

func (m *Manager) scheduleLocked() {
	m.dirty = true
	if m.timer != nil {
		m.timer.Reset(m.debounce)
		return
	}
	m.timer = time.AfterFunc(m.debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := m.Flush(ctx); err != nil {
			m.log.Error("draft write failed", "error", err)
		}
	})
}

func (m *Manager) stopLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) markDirty() {
	m.mu.Lock()
	m.dirty = true
	m.mu.Unlock()
}
