// Package alpha imports Alpha Progression CSV exports as finished workouts.
package alpha

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Session is one workout as it appears in the export.
type Session struct {
	Name      string
	Date      time.Time
	Duration  time.Duration
	Exercises []Exercise
}

// Exercise is a single exercise within a session.
type Exercise struct {
	Number     int
	Name       string
	Equipment  string
	TargetReps int
	Sets       []Set
}

// Set is a single set, working or warmup.
type Set struct {
	Number           int
	WeightKg         float64
	IsBodyweightPlus bool
	Reps             int
	RIR              float64
	IsWarmup         bool
}

var (
	// sessionHeaderRe matches: "Session Name";"2026-02-19 4:54 h";"1:02 hr"
	sessionHeaderRe = regexp.MustCompile(`^"(.+)";"(\d{4}-\d{2}-\d{2}\s+\d+:\d+)\s+h";"(.+)"$`)

	// exerciseHeaderRe matches: "1. Exercise Name · Equipment · 8 reps[· modifiers]"[;"warmup info"]
	exerciseHeaderRe = regexp.MustCompile(`^"(\d+)\.\s+(.+?)(?:\s+·\s+(\S.*?))?\s+·\s+(\d+)\s+reps(.*?)"(?:;"(.+)")?$`)

	// setDataRe matches: 1;115;8;1
	setDataRe = regexp.MustCompile(`^(\d+);(.+);(\d+);(.+)$`)

	// warmupRe matches: WU1 · 37,5 kg · 9 reps
	warmupRe = regexp.MustCompile(`WU(\d+)\s+·\s+(.+?)\s+kg\s+·\s+(\d+)\s+reps`)

	columnHeaderRe = regexp.MustCompile(`^#;KG;REPS;RIR$`)

	// durationRe matches "1:02 hr" and "48 min".
	durationRe = regexp.MustCompile(`^(?:(\d+):(\d{2})\s*hr|(\d+)\s*min)$`)
)

type parser struct {
	sessions []Session
	current  *Session
	exercise *Exercise
}

func (p *parser) flushExercise() {
	if p.exercise != nil {
		p.current.Exercises = append(p.current.Exercises, *p.exercise)
		p.exercise = nil
	}
}

func (p *parser) flushSession() {
	if p.current == nil {
		return
	}
	p.flushExercise()
	p.sessions = append(p.sessions, *p.current)
	p.current = nil
}

// Parse reads an Alpha Progression CSV export. Unrecognised lines are
// skipped; malformed numbers in set rows are errors that name the line.
func Parse(r io.Reader) ([]Session, error) {
	scanner := bufio.NewScanner(r)
	var p parser
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Blank line = session boundary
		if line == "" {
			p.flushSession()
			continue
		}
		if columnHeaderRe.MatchString(line) {
			continue
		}

		if m := sessionHeaderRe.FindStringSubmatch(line); m != nil {
			p.flushSession()
			date, err := parseSessionDate(m[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			p.current = &Session{Name: m[1], Date: date, Duration: parseDuration(m[3])}
			continue
		}

		if m := exerciseHeaderRe.FindStringSubmatch(line); m != nil {
			if p.current == nil {
				return nil, fmt.Errorf("line %d: exercise without session: %q", lineNo, line)
			}
			p.flushExercise()
			num, _ := strconv.Atoi(m[1])
			targetReps, _ := strconv.Atoi(m[4])
			p.exercise = &Exercise{
				Number:     num,
				Name:       strings.TrimSpace(m[2]),
				Equipment:  strings.TrimSpace(m[3]),
				TargetReps: targetReps,
			}
			if m[6] != "" {
				p.exercise.Sets = append(p.exercise.Sets, parseWarmups(m[6])...)
			}
			continue
		}

		if m := setDataRe.FindStringSubmatch(line); m != nil {
			if p.exercise == nil {
				return nil, fmt.Errorf("line %d: set data without exercise: %q", lineNo, line)
			}
			set, err := parseSetRow(m)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			p.exercise.Sets = append(p.exercise.Sets, set)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}

	p.flushSession()
	return p.sessions, nil
}

func parseSetRow(m []string) (Set, error) {
	num, _ := strconv.Atoi(m[1])
	reps, _ := strconv.Atoi(m[3])
	weight, isBW, err := parseWeight(m[2])
	if err != nil {
		return Set{}, err
	}
	rir, err := parseEuropeanFloat(m[4])
	if err != nil {
		return Set{}, fmt.Errorf("parsing RIR: %w", err)
	}
	return Set{
		Number:           num,
		WeightKg:         weight,
		IsBodyweightPlus: isBW,
		Reps:             reps,
		RIR:              rir,
	}, nil
}

// parseSessionDate parses "2026-02-19 4:54" or "2026-02-19 16:54".
func parseSessionDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 3:04"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse date %q", s)
}

// parseDuration reads the session length. Unknown formats yield zero.
func parseDuration(s string) time.Duration {
	m := durationRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	if m[3] != "" {
		mins, _ := strconv.Atoi(m[3])
		return time.Duration(mins) * time.Minute
	}
	hours, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	return time.Duration(hours)*time.Hour + time.Duration(mins)*time.Minute
}

// parseWarmups extracts warmup sets from the exercise header's second field.
// Example: "WU1 · 37,5 kg · 9 reps<br>WU2 · 72,5 kg · 7 reps"
func parseWarmups(s string) []Set {
	var sets []Set
	for _, part := range strings.Split(s, "<br>") {
		m := warmupRe.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		weight, isBW, err := parseWeight(m[2])
		if err != nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		reps, _ := strconv.Atoi(m[3])
		sets = append(sets, Set{
			Number:           num,
			WeightKg:         weight,
			IsBodyweightPlus: isBW,
			Reps:             reps,
			IsWarmup:         true,
		})
	}
	return sets
}

// parseWeight handles European decimals and bodyweight-plus notation.
// "+35" -> (35, true), "102,5" -> (102.5, false), "+0" -> (0, true)
func parseWeight(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	plus := strings.HasPrefix(s, "+")
	w, err := parseEuropeanFloat(strings.TrimPrefix(s, "+"))
	if err != nil {
		return 0, false, fmt.Errorf("parsing weight: %w", err)
	}
	return w, plus, nil
}

// parseEuropeanFloat converts "102,5" to 102.5.
func parseEuropeanFloat(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	return strconv.ParseFloat(s, 64)
}
