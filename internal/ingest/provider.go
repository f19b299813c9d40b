// Package ingest holds types shared by the workout importers.
package ingest

// Result holds the outcome of an import.
type Result struct {
	SessionsReceived int   `json:"sessions_received"`
	WorkoutsInserted int64 `json:"workouts_inserted"`
	WorkoutsSkipped  int64 `json:"workouts_skipped"`

	SetsReceived   int `json:"sets_received"`
	SetsImported   int `json:"sets_imported"`
	WarmupsSkipped int `json:"warmups_skipped"`
	SetsRejected   int `json:"sets_rejected"`

	// UnknownExercises lists export names with no catalog match, in the
	// order they were first seen.
	UnknownExercises []string `json:"unknown_exercises,omitempty"`

	Message string `json:"message,omitempty"`
}

// AddUnknown records an unmatched exercise name once.
func (r *Result) AddUnknown(name string) {
	for _, n := range r.UnknownExercises {
		if n == name {
			return
		}
	}
	r.UnknownExercises = append(r.UnknownExercises, name)
}
