package workout

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/models"
	"github.com/google/go-cmp/cmp"
)

var t0 = time.Date(2026, 5, 4, 18, 0, 0, 0, time.UTC)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestEngine(t *testing.T) (*Engine, *fakeClock) {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatal(err)
	}
	clock := &fakeClock{now: t0}
	n := 0
	ids := func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return NewEngine(cat, WithClock(clock.Now), WithIDGenerator(ids)), clock
}

func testWorkout() models.Workout {
	return models.Workout{
		ID:         "w",
		Name:       "Push",
		Bodyweight: 80,
		StartedAt:  t0,
		Exercises: []models.Exercise{
			{ID: "e1", MetaID: "bench_press", RestSec: 120, Sets: []models.Set{
				{ID: "s1", Status: models.StatusUnstarted, Difficulty: models.Weight{Weight: 100, Reps: 10}, RestSec: 120},
				{ID: "s2", Status: models.StatusUnstarted, Difficulty: models.Weight{Weight: 110, Reps: 8}, RestSec: 120},
			}},
			{ID: "e2", MetaID: "pull_up", RestSec: 90, Sets: []models.Set{
				{ID: "s3", Status: models.StatusUnstarted, Difficulty: models.Bodyweight{Reps: 10}, RestSec: 90},
				{ID: "s4", Status: models.StatusUnstarted, Difficulty: models.Bodyweight{Reps: 8}, RestSec: 90},
			}},
			{ID: "e3", MetaID: "plank", RestSec: 60, Sets: []models.Set{
				{ID: "s5", Status: models.StatusUnstarted, Difficulty: models.Time{DurationSec: 60}, RestSec: 60},
			}},
		},
	}
}

func mustSet(t *testing.T, w models.Workout, setID string) models.Set {
	t.Helper()
	ei, si, ok := findSet(w, setID)
	if !ok {
		t.Fatalf("set %s not found", setID)
	}
	return w.Exercises[ei].Sets[si]
}

func must(t *testing.T) func(models.Workout, error) models.Workout {
	return func(w models.Workout, err error) models.Workout {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return w
	}
}

// checkInvariants asserts the structural invariants every reachable workout keeps.
func checkInvariants(t *testing.T, w models.Workout) {
	t.Helper()
	for _, ex := range w.Exercises {
		if len(ex.Sets) == 0 {
			t.Errorf("exercise %s has no sets", ex.ID)
		}
		for _, s := range ex.Sets {
			if s.Status == models.StatusFinished && s.RestStartedAt != nil {
				if s.RestEndedAt == nil || s.RestEndedAt.Before(*s.RestStartedAt) {
					t.Errorf("set %s: rest end %v before start %v", s.ID, s.RestEndedAt, s.RestStartedAt)
				}
			}
		}
	}
}

// TestFinishSetFromUnstarted verifies an unstarted set can skip resting and
// leaves rest fields untouched.
func TestFinishSetFromUnstarted(t *testing.T) {
	e, _ := newTestEngine(t)
	w := must(t)(e.FinishSet(testWorkout(), "s1"))

	s := mustSet(t, w, "s1")
	if s.Status != models.StatusFinished {
		t.Errorf("status = %s, want FINISHED", s.Status)
	}
	if s.RestStartedAt != nil || s.RestEndedAt != nil {
		t.Errorf("rest fields touched: %v %v", s.RestStartedAt, s.RestEndedAt)
	}
}

// TestRestThenFinishStampsRest verifies the UNSTARTED -> RESTING -> FINISHED path
// stamps both rest timestamps.
func TestRestThenFinishStampsRest(t *testing.T) {
	e, clock := newTestEngine(t)
	w := must(t)(e.RestSet(testWorkout(), "s1"))
	if s := mustSet(t, w, "s1"); s.Status != models.StatusResting || !s.RestStartedAt.Equal(t0) {
		t.Fatalf("after rest: %+v", s)
	}

	clock.Advance(95 * time.Second)
	w = must(t)(e.FinishSet(w, "s1"))
	s := mustSet(t, w, "s1")
	if s.Status != models.StatusFinished {
		t.Errorf("status = %s, want FINISHED", s.Status)
	}
	if s.RestEndedAt == nil || s.RestEndedAt.Sub(*s.RestStartedAt) != 95*time.Second {
		t.Errorf("rest window = %v..%v, want 95s", s.RestStartedAt, s.RestEndedAt)
	}
	checkInvariants(t, w)
}

// TestInvalidTransitions verifies the state machine signals instead of
// silently corrupting state.
func TestInvalidTransitions(t *testing.T) {
	e, _ := newTestEngine(t)
	finished := must(t)(e.FinishSet(testWorkout(), "s1"))

	if _, err := e.FinishSet(finished, "s1"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("finish FINISHED: err = %v, want ErrInvalidTransition", err)
	}
	if _, err := e.RestSet(finished, "s1"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("rest FINISHED: err = %v, want ErrInvalidTransition", err)
	}
	resting := must(t)(e.RestSet(testWorkout(), "s1"))
	if _, err := e.RestSet(resting, "s1"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("rest RESTING: err = %v, want ErrInvalidTransition", err)
	}
	if _, err := e.FinishSet(testWorkout(), "nope"); !errors.Is(err, ErrSetNotFound) {
		t.Errorf("unknown set: err = %v, want ErrSetNotFound", err)
	}
}

// TestUnstartClearsRest verifies undo resets status and both rest stamps.
func TestUnstartClearsRest(t *testing.T) {
	e, _ := newTestEngine(t)
	w := must(t)(e.RestSet(testWorkout(), "s1"))
	w = must(t)(e.FinishSet(w, "s1"))
	w = must(t)(e.UnstartSet(w, "s1"))

	s := mustSet(t, w, "s1")
	if s.Status != models.StatusUnstarted || s.RestStartedAt != nil || s.RestEndedAt != nil {
		t.Errorf("after unstart: %+v", s)
	}
}

// TestMutationsDoNotModifyInput verifies every operation returns a new snapshot.
func TestMutationsDoNotModifyInput(t *testing.T) {
	e, _ := newTestEngine(t)
	in := must(t)(e.RestSet(testWorkout(), "s3"))
	snapshot := in.Clone()

	ops := map[string]func() (models.Workout, error){
		"finish":    func() (models.Workout, error) { return e.FinishSet(in, "s3") },
		"unstart":   func() (models.Workout, error) { return e.UnstartSet(in, "s3") },
		"delete":    func() (models.Workout, error) { return e.DeleteSet(in, "s5") },
		"duplicate": func() (models.Workout, error) { return e.DuplicateLastSet(in, "e1") },
		"rest":      func() (models.Workout, error) { return e.SetExerciseRest(in, "e2", 30) },
		"reorder":   func() (models.Workout, error) { return e.ReorderExercises(in, []string{"e3", "e1", "e2"}) },
		"add":       func() (models.Workout, error) { return e.AddExercise(in, "deadlift") },
		"finishAll": func() (models.Workout, error) { return e.Finish(in), nil },
	}
	for name, op := range ops {
		if _, err := op(); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if diff := cmp.Diff(snapshot, in); diff != "" {
			t.Errorf("%s modified its input (-want +got):\n%s", name, diff)
		}
	}
}

// TestDeleteSetCascade verifies deleting the only set of an exercise removes the exercise.
func TestDeleteSetCascade(t *testing.T) {
	e, _ := newTestEngine(t)
	w := must(t)(e.DeleteSet(testWorkout(), "s5"))
	if len(w.Exercises) != 2 {
		t.Fatalf("exercises = %d, want 2", len(w.Exercises))
	}
	if findExercise(w, "e3") >= 0 {
		t.Error("e3 should have been removed with its last set")
	}
	checkInvariants(t, w)
}

// TestDeleteNonLastSetKeepsOrder verifies other sets and exercises stay untouched.
func TestDeleteNonLastSetKeepsOrder(t *testing.T) {
	e, _ := newTestEngine(t)
	in := testWorkout()
	in.Exercises[0].Sets = append(in.Exercises[0].Sets, models.Set{
		ID: "s1b", Status: models.StatusUnstarted, Difficulty: models.Weight{Weight: 120, Reps: 5},
	})

	w := must(t)(e.DeleteSet(in, "s2"))

	want := in.Clone()
	want.Exercises[0].Sets = []models.Set{want.Exercises[0].Sets[0], want.Exercises[0].Sets[2]}
	if diff := cmp.Diff(want, w); diff != "" {
		t.Errorf("unexpected result (-want +got):\n%s", diff)
	}
}

// TestDuplicateLastSet verifies the copy keeps difficulty values but not
// status or timestamps, and picks up the exercise's current rest duration.
func TestDuplicateLastSet(t *testing.T) {
	e, _ := newTestEngine(t)
	w := must(t)(e.RestSet(testWorkout(), "s1"))
	w = must(t)(e.FinishSet(w, "s1"))
	w = must(t)(e.FinishSet(w, "s2"))
	w = must(t)(e.SetExerciseRest(w, "e1", 150))
	w = must(t)(e.DuplicateLastSet(w, "e1"))

	sets := w.Exercises[0].Sets
	if len(sets) != 3 {
		t.Fatalf("sets = %d, want 3", len(sets))
	}
	dup := sets[2]
	want := models.Set{
		ID:         dup.ID,
		Status:     models.StatusUnstarted,
		Difficulty: models.Weight{Weight: 110, Reps: 8},
		RestSec:    150,
	}
	if diff := cmp.Diff(want, dup); diff != "" {
		t.Errorf("duplicate mismatch (-want +got):\n%s", diff)
	}
	if dup.ID == "s2" || dup.ID == "" {
		t.Errorf("duplicate id = %q, want a fresh id", dup.ID)
	}
}

// TestCurrentTraversalOrder verifies exercises are scanned in order, then sets.
func TestCurrentTraversalOrder(t *testing.T) {
	e, _ := newTestEngine(t)
	w := testWorkout()
	if a := Current(w); a.SetID != "s1" || a.ExerciseID != "e1" {
		t.Errorf("current = %+v, want s1", a)
	}

	w = must(t)(e.FinishSet(w, "s1"))
	w = must(t)(e.RestSet(w, "s2"))
	if a := Current(w); a.SetID != "s2" || a.Status != models.StatusResting {
		t.Errorf("current = %+v, want resting s2", a)
	}

	w = must(t)(e.FinishSet(w, "s2"))
	if a := Current(w); a.SetID != "s3" || a.ExerciseIndex != 1 || a.SetIndex != 0 {
		t.Errorf("current = %+v, want s3", a)
	}

	for _, id := range []string{"s3", "s4", "s5"} {
		w = must(t)(e.FinishSet(w, id))
	}
	if a := Current(w); !a.Finished {
		t.Errorf("current = %+v, want finished", a)
	}
}

// TestReorderFinishesDanglingRest verifies that when a reorder changes the
// current set, a set left RESTING at its old position is finished.
func TestReorderFinishesDanglingRest(t *testing.T) {
	e, clock := newTestEngine(t)
	w := must(t)(e.RestSet(testWorkout(), "s1"))
	clock.Advance(30 * time.Second)

	w = must(t)(e.ReorderExercises(w, []string{"e2", "e1", "e3"}))

	if got := []string{w.Exercises[0].ID, w.Exercises[1].ID, w.Exercises[2].ID}; !cmp.Equal(got, []string{"e2", "e1", "e3"}) {
		t.Errorf("order = %v", got)
	}
	s := mustSet(t, w, "s1")
	if s.Status != models.StatusFinished {
		t.Errorf("s1 status = %s, want FINISHED", s.Status)
	}
	if s.RestEndedAt == nil || !s.RestEndedAt.Equal(t0.Add(30*time.Second)) {
		t.Errorf("s1 rest end = %v", s.RestEndedAt)
	}
	if a := Current(w); a.SetID != "s3" {
		t.Errorf("current = %+v, want s3", a)
	}
	checkInvariants(t, w)
}

// TestReorderKeepsRestWhenCurrentUnchanged verifies the narrow rule: a RESTING
// set whose exercise moves is left alone while it is still the current set.
func TestReorderKeepsRestWhenCurrentUnchanged(t *testing.T) {
	e, _ := newTestEngine(t)
	w := must(t)(e.FinishSet(testWorkout(), "s1"))
	w = must(t)(e.FinishSet(w, "s2"))
	w = must(t)(e.RestSet(w, "s3"))

	w = must(t)(e.ReorderExercises(w, []string{"e2", "e3", "e1"}))
	if s := mustSet(t, w, "s3"); s.Status != models.StatusResting {
		t.Errorf("s3 status = %s, want RESTING", s.Status)
	}
}

// TestReorderRejectsBadPermutation verifies the order must name every exercise once.
func TestReorderRejectsBadPermutation(t *testing.T) {
	e, _ := newTestEngine(t)
	bad := [][]string{
		{"e1", "e2"},
		{"e1", "e1", "e2"},
		{"e1", "e2", "e9"},
	}
	for _, order := range bad {
		if _, err := e.ReorderExercises(testWorkout(), order); !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("order %v: err = %v, want ErrInvalidOrder", order, err)
		}
	}
}

// TestFinishWorkoutPrunes verifies finishing drops unstarted sets and empty
// exercises, finishes resting sets and stamps EndedAt.
func TestFinishWorkoutPrunes(t *testing.T) {
	e, clock := newTestEngine(t)
	w := must(t)(e.FinishSet(testWorkout(), "s1"))
	w = must(t)(e.RestSet(w, "s2"))
	clock.Advance(time.Minute)

	done := e.Finish(w)

	if done.InProgress() || !done.EndedAt.Equal(t0.Add(time.Minute)) {
		t.Errorf("ended at = %v", done.EndedAt)
	}
	if len(done.Exercises) != 1 || len(done.Exercises[0].Sets) != 2 {
		t.Fatalf("exercises = %+v, want only e1 with 2 sets", done.Exercises)
	}
	s2 := mustSet(t, done, "s2")
	if s2.Status != models.StatusFinished || !s2.RestEndedAt.Equal(t0.Add(time.Minute)) {
		t.Errorf("s2 = %+v, want finished with rest end stamped", s2)
	}
	for _, ex := range done.Exercises {
		for _, s := range ex.Sets {
			if s.Status != models.StatusFinished {
				t.Errorf("set %s left %s after finish", s.ID, s.Status)
			}
		}
	}
	checkInvariants(t, done)
}

// TestFinishIsIdempotent verifies finish(finish(w)) == finish(w).
func TestFinishIsIdempotent(t *testing.T) {
	e, clock := newTestEngine(t)
	w := must(t)(e.RestSet(testWorkout(), "s1"))
	once := e.Finish(w)
	clock.Advance(time.Hour)
	twice := e.Finish(once)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second finish changed the workout (-first +second):\n%s", diff)
	}
}

// TestFinishedWorkoutRejectsNewSets verifies a finished workout cannot gain
// unfinished sets.
func TestFinishedWorkoutRejectsNewSets(t *testing.T) {
	e, _ := newTestEngine(t)
	w := must(t)(e.FinishSet(testWorkout(), "s1"))
	done := e.Finish(w)

	ops := map[string]func() (models.Workout, error){
		"add":       func() (models.Workout, error) { return e.AddExercise(done, "deadlift") },
		"duplicate": func() (models.Workout, error) { return e.DuplicateLastSet(done, "e1") },
		"unstart":   func() (models.Workout, error) { return e.UnstartSet(done, "s1") },
	}
	for name, op := range ops {
		if _, err := op(); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s: err = %v, want ErrInvalidTransition", name, err)
		}
	}
	checkInvariants(t, done)
}

// TestSetExerciseRestPropagates verifies only non-finished sets pick up the new rest.
func TestSetExerciseRestPropagates(t *testing.T) {
	e, _ := newTestEngine(t)
	w := must(t)(e.FinishSet(testWorkout(), "s1"))
	w = must(t)(e.SetExerciseRest(w, "e1", 45))

	if got := w.Exercises[0].RestSec; got != 45 {
		t.Errorf("exercise rest = %d, want 45", got)
	}
	if got := mustSet(t, w, "s1").RestSec; got != 120 {
		t.Errorf("finished set rest = %d, want unchanged 120", got)
	}
	if got := mustSet(t, w, "s2").RestSec; got != 45 {
		t.Errorf("pending set rest = %d, want 45", got)
	}
	if _, err := e.SetExerciseRest(w, "e1", -1); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("negative rest: err = %v, want ErrInvalidValue", err)
	}
}

// TestAddExercise verifies catalog-driven default sets and the unknown-id failure.
func TestAddExercise(t *testing.T) {
	e, _ := newTestEngine(t)
	w := must(t)(e.AddExercise(testWorkout(), "assisted_pull_up"))

	ex := w.Exercises[len(w.Exercises)-1]
	if ex.MetaID != "assisted_pull_up" || len(ex.Sets) != DefaultSetCount {
		t.Fatalf("added exercise = %+v", ex)
	}
	for _, s := range ex.Sets {
		if s.Difficulty.Type() != models.DifficultyAssistedBodyweight || s.Status != models.StatusUnstarted {
			t.Errorf("default set = %+v", s)
		}
	}

	if _, err := e.AddExercise(testWorkout(), "unicycle"); !errors.Is(err, catalog.ErrUnknownExercise) {
		t.Errorf("err = %v, want ErrUnknownExercise", err)
	}
}

// TestSetSetDifficulty verifies values can change but the variant cannot.
func TestSetSetDifficulty(t *testing.T) {
	e, _ := newTestEngine(t)
	w := must(t)(e.SetSetDifficulty(testWorkout(), "s1", models.Weight{Weight: 105, Reps: 9}))
	if got := mustSet(t, w, "s1").Difficulty; got != models.Difficulty(models.Weight{Weight: 105, Reps: 9}) {
		t.Errorf("difficulty = %#v", got)
	}
	if _, err := e.SetSetDifficulty(w, "s1", models.Bodyweight{Reps: 9}); !errors.Is(err, ErrDifficultyMismatch) {
		t.Errorf("err = %v, want ErrDifficultyMismatch", err)
	}
}

// TestFromRoutineMintsFreshIDs verifies templates are deep-copied with new ids
// while catalog ids and difficulty values survive.
func TestFromRoutineMintsFreshIDs(t *testing.T) {
	e, _ := newTestEngine(t)
	done := e.Finish(must(t)(e.FinishSet(testWorkout(), "s1")))
	routine := models.Routine{ID: "r1", Name: "Push A", Exercises: testWorkout().Exercises}

	for name, w := range map[string]models.Workout{
		"routine": e.FromRoutine(routine, 81),
		"repeat":  e.Repeat(done, 81),
	} {
		if w.ID == "w" || !w.InProgress() || w.Bodyweight != 81 {
			t.Errorf("%s: workout = %+v", name, w)
		}
		for _, ex := range w.Exercises {
			if ex.ID == "e1" || ex.ID == "e2" || ex.ID == "e3" {
				t.Errorf("%s: exercise id %s reused", name, ex.ID)
			}
			for _, s := range ex.Sets {
				if s.Status != models.StatusUnstarted || s.RestStartedAt != nil || s.RestEndedAt != nil {
					t.Errorf("%s: set %+v not reset", name, s)
				}
			}
		}
	}

	w := e.FromRoutine(routine, 81)
	if w.RoutineID != "r1" || len(w.Exercises) != 3 || w.Exercises[1].MetaID != "pull_up" {
		t.Errorf("routine workout = %+v", w)
	}
	if got := w.Exercises[0].Sets[1].Difficulty; got != models.Difficulty(models.Weight{Weight: 110, Reps: 8}) {
		t.Errorf("difficulty not preserved: %#v", got)
	}
}

// TestQuickstartDefaults verifies an empty quickstart workout.
func TestQuickstartDefaults(t *testing.T) {
	e, _ := newTestEngine(t)
	w := e.Quickstart("", 75)
	if w.Name != DefaultWorkoutName || len(w.Exercises) != 0 || !w.StartedAt.Equal(t0) {
		t.Errorf("quickstart = %+v", w)
	}
	if a := Current(w); !a.Finished {
		t.Errorf("empty workout current = %+v, want finished", a)
	}
}
