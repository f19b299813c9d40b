package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
	"github.com/claude/liftlog/internal/workout"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	puts int
	put  chan string
	// deleteErr, when set, fails every Delete.
	deleteErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}, put: make(chan string, 64)}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.data[key] = value
	if key == draftKey {
		s.puts++
	}
	s.mu.Unlock()
	select {
	case s.put <- key:
	default:
	}
	return nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.data, key)
	return nil
}

func (s *memStore) draft(t *testing.T) (models.Workout, bool) {
	t.Helper()
	data, ok, _ := s.Get(context.Background(), draftKey)
	if !ok {
		return models.Workout{}, false
	}
	w, err := models.DecodeWorkout(data)
	if err != nil {
		t.Fatalf("decoding draft: %v", err)
	}
	return w, true
}

var _ storage.Blobs = (*memStore)(nil)

type memArchive struct {
	saved []models.Workout
	err   error
}

func (a *memArchive) SaveWorkout(_ context.Context, w models.Workout) error {
	if a.err != nil {
		return a.err
	}
	a.saved = append(a.saved, w)
	return nil
}

var t0 = time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)

func newEngine(t *testing.T) *workout.Engine {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	return workout.NewEngine(cat,
		workout.WithClock(func() time.Time { return t0 }),
		workout.WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }),
	)
}

func newTestManager(t *testing.T, debounce time.Duration) (*Manager, *workout.Engine, *memStore, *memArchive) {
	t.Helper()
	e := newEngine(t)
	store := newMemStore()
	archive := &memArchive{}
	m := NewManager(e, store, archive, slog.Default(), debounce)
	t.Cleanup(func() { m.Close(context.Background()) })
	return m, e, store, archive
}

func startWithBench(t *testing.T, m *Manager, e *workout.Engine) models.Workout {
	t.Helper()
	w, err := e.AddExercise(e.Quickstart("Push", 80), "bench_press")
	if err != nil {
		t.Fatal(err)
	}
	started, err := m.Start(context.Background(), w)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return started
}

// TestStartRejectsSecondWorkout verifies at most one workout is in progress.
func TestStartRejectsSecondWorkout(t *testing.T) {
	m, e, _, _ := newTestManager(t, time.Hour)
	startWithBench(t, m, e)

	_, err := m.Start(context.Background(), e.Quickstart("Pull", 80))
	if !errors.Is(err, ErrWorkoutInProgress) {
		t.Errorf("err = %v, want ErrWorkoutInProgress", err)
	}
}

// TestApplyWithoutWorkout verifies mutations need an active workout.
func TestApplyWithoutWorkout(t *testing.T) {
	m, e, _, _ := newTestManager(t, time.Hour)
	_, err := m.Apply(func(w models.Workout) (models.Workout, error) { return e.Rename(w, "x"), nil })
	if !errors.Is(err, ErrNoActiveWorkout) {
		t.Errorf("err = %v, want ErrNoActiveWorkout", err)
	}
	if _, err := m.Finish(context.Background()); !errors.Is(err, ErrNoActiveWorkout) {
		t.Errorf("Finish err = %v, want ErrNoActiveWorkout", err)
	}
}

// TestApplyErrorKeepsSnapshot verifies a failing mutation leaves the active
// workout untouched.
func TestApplyErrorKeepsSnapshot(t *testing.T) {
	m, e, _, _ := newTestManager(t, time.Hour)
	before := startWithBench(t, m, e)

	_, err := m.Apply(func(w models.Workout) (models.Workout, error) { return e.FinishSet(w, "nope") })
	if !errors.Is(err, workout.ErrSetNotFound) {
		t.Fatalf("err = %v, want ErrSetNotFound", err)
	}
	after, _ := m.Active()
	if len(after.Exercises[0].Sets) != len(before.Exercises[0].Sets) {
		t.Error("active workout changed after a failed mutation")
	}
}

// TestDebounceCoalescesWrites verifies a burst of mutations produces a single
// draft write carrying the last snapshot.
func TestDebounceCoalescesWrites(t *testing.T) {
	m, e, store, _ := newTestManager(t, 200*time.Millisecond)
	startWithBench(t, m, e)
	for i := range 5 {
		name := fmt.Sprintf("Push %d", i)
		if _, err := m.Apply(func(w models.Workout) (models.Workout, error) { return e.Rename(w, name), nil }); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-store.put:
	case <-time.After(5 * time.Second):
		t.Fatal("draft was never written")
	}
	if err := m.Close(context.Background()); err != nil {
		t.Fatal(err)
	}

	store.mu.Lock()
	puts := store.puts
	store.mu.Unlock()
	if puts != 1 {
		t.Errorf("draft writes = %d, want 1", puts)
	}
	draft, ok := store.draft(t)
	if !ok || draft.Name != "Push 4" {
		t.Errorf("draft name = %q, want Push 4", draft.Name)
	}
}

// TestFlushWritesImmediately verifies Flush bypasses the debounce delay.
func TestFlushWritesImmediately(t *testing.T) {
	m, e, store, _ := newTestManager(t, time.Hour)
	w := startWithBench(t, m, e)
	if _, ok := store.draft(t); ok {
		t.Fatal("draft written before the debounce elapsed")
	}

	if err := m.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	draft, ok := store.draft(t)
	if !ok || draft.ID != w.ID || len(draft.Exercises) != 1 {
		t.Errorf("draft = %+v, want workout %s with one exercise", draft, w.ID)
	}
}

// TestFinishArchivesAndClearsDraft verifies finishing prunes the workout,
// archives it, removes the draft and remembers the bodyweight.
func TestFinishArchivesAndClearsDraft(t *testing.T) {
	ctx := context.Background()
	m, e, store, archive := newTestManager(t, time.Hour)
	w := startWithBench(t, m, e)
	first := w.Exercises[0].Sets[0].ID
	if _, err := m.Apply(func(w models.Workout) (models.Workout, error) { return e.FinishSet(w, first) }); err != nil {
		t.Fatal(err)
	}
	if err := m.Flush(ctx); err != nil {
		t.Fatal(err)
	}

	done, err := m.Finish(ctx)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if done.InProgress() {
		t.Error("finished workout has no end time")
	}
	if n := len(done.Exercises[0].Sets); n != 1 {
		t.Errorf("sets after finish = %d, want 1", n)
	}
	if len(archive.saved) != 1 || archive.saved[0].ID != w.ID {
		t.Errorf("archived = %+v", archive.saved)
	}
	if _, ok := m.Active(); ok {
		t.Error("workout still active after finish")
	}
	if _, ok := store.draft(t); ok {
		t.Error("draft not cleared after finish")
	}

	next, err := m.Start(ctx, e.Quickstart("", 0))
	if err != nil {
		t.Fatal(err)
	}
	if next.Bodyweight != 80 {
		t.Errorf("bodyweight = %v, want 80 from the last workout", next.Bodyweight)
	}
}

// TestFinishArchiveFailureKeepsWorkout verifies nothing is lost when the
// archive rejects the workout.
func TestFinishArchiveFailureKeepsWorkout(t *testing.T) {
	m, e, _, archive := newTestManager(t, time.Hour)
	startWithBench(t, m, e)
	archive.err = errors.New("database down")

	if _, err := m.Finish(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	w, ok := m.Active()
	if !ok || !w.InProgress() {
		t.Error("workout should remain active and in progress")
	}
}

// TestFinishSucceedsWhenDraftClearFails verifies an archived workout is
// reported finished even if the draft cannot be removed, and the removal is
// retried on the next flush.
func TestFinishSucceedsWhenDraftClearFails(t *testing.T) {
	ctx := context.Background()
	m, e, store, archive := newTestManager(t, time.Hour)
	w := startWithBench(t, m, e)
	if err := m.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	store.mu.Lock()
	store.deleteErr = errors.New("disk full")
	store.mu.Unlock()

	done, err := m.Finish(ctx)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if done.ID != w.ID || done.InProgress() {
		t.Errorf("finished = %+v", done)
	}
	if len(archive.saved) != 1 {
		t.Errorf("archived %d workouts, want 1", len(archive.saved))
	}
	if _, ok := m.Active(); ok {
		t.Error("workout still active after finish")
	}
	if _, err := m.Finish(ctx); !errors.Is(err, ErrNoActiveWorkout) {
		t.Errorf("second finish err = %v, want ErrNoActiveWorkout", err)
	}
	left, ok := store.draft(t)
	if !ok {
		t.Fatal("draft should still be present while deletes fail")
	}
	if left.InProgress() {
		t.Error("leftover draft is still in progress; a restart would resume an archived workout")
	}

	store.mu.Lock()
	store.deleteErr = nil
	store.mu.Unlock()
	if err := m.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if _, ok := store.draft(t); ok {
		t.Error("draft not cleared by the retried flush")
	}
}

// TestDiscard verifies discarding removes the workout and its draft.
func TestDiscard(t *testing.T) {
	ctx := context.Background()
	m, e, store, archive := newTestManager(t, time.Hour)
	startWithBench(t, m, e)
	if err := m.Flush(ctx); err != nil {
		t.Fatal(err)
	}

	if err := m.Discard(ctx); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if _, ok := store.draft(t); ok {
		t.Error("draft not cleared")
	}
	if len(archive.saved) != 0 {
		t.Error("discarded workout was archived")
	}
	if err := m.Discard(ctx); !errors.Is(err, ErrNoActiveWorkout) {
		t.Errorf("second discard err = %v, want ErrNoActiveWorkout", err)
	}
}

// TestRestore verifies an in-progress draft becomes active again and a
// finished draft is archived instead.
func TestRestore(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	t.Run("in progress", func(t *testing.T) {
		store := newMemStore()
		w, _ := e.AddExercise(e.Quickstart("Legs", 75), "back_squat")
		doc, _ := models.EncodeWorkout(w)
		store.data[draftKey] = doc

		m := NewManager(e, store, &memArchive{}, slog.Default(), time.Hour)
		defer m.Close(ctx)
		if err := m.Restore(ctx); err != nil {
			t.Fatalf("Restore: %v", err)
		}
		got, ok := m.Active()
		if !ok || got.ID != w.ID || got.Exercises[0].MetaID != "back_squat" {
			t.Errorf("active = %+v, %v", got, ok)
		}
	})

	t.Run("finished", func(t *testing.T) {
		store := newMemStore()
		archive := &memArchive{}
		w, _ := e.AddExercise(e.Quickstart("Legs", 75), "back_squat")
		doc, _ := models.EncodeWorkout(e.Finish(w))
		store.data[draftKey] = doc

		m := NewManager(e, store, archive, slog.Default(), time.Hour)
		defer m.Close(ctx)
		if err := m.Restore(ctx); err != nil {
			t.Fatalf("Restore: %v", err)
		}
		if _, ok := m.Active(); ok {
			t.Error("finished draft should not be active")
		}
		if len(archive.saved) != 1 {
			t.Errorf("archived = %d, want 1", len(archive.saved))
		}
		if _, ok := store.draft(t); ok {
			t.Error("finished draft not cleared")
		}
	})

	t.Run("empty", func(t *testing.T) {
		m := NewManager(e, newMemStore(), &memArchive{}, slog.Default(), time.Hour)
		defer m.Close(ctx)
		if err := m.Restore(ctx); err != nil {
			t.Fatalf("Restore: %v", err)
		}
		if _, ok := m.Active(); ok {
			t.Error("nothing should be active")
		}
	})
}

// TestConcurrentApplySerializes verifies concurrent mutations are applied
// one after another against the latest snapshot.
func TestConcurrentApplySerializes(t *testing.T) {
	m, e, _, _ := newTestManager(t, 5*time.Millisecond)
	w := startWithBench(t, m, e)
	exID := w.Exercises[0].ID
	before := len(w.Exercises[0].Sets)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Apply(func(w models.Workout) (models.Workout, error) { return e.DuplicateLastSet(w, exID) }); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	got, _ := m.Active()
	if n := len(got.Exercises[0].Sets); n != before+50 {
		t.Errorf("sets = %d, want %d", n, before+50)
	}
}
