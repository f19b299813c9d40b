package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/claude/liftlog/internal/models"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// ErrUnknownExercise is returned when a metaID has no catalog entry.
var ErrUnknownExercise = errors.New("unknown exercise")

//go:embed catalog.yaml
var defaultCatalog []byte

// Meta is the static description of an exercise.
type Meta struct {
	ID               string                `yaml:"id" json:"id"`
	Name             string                `yaml:"name" json:"name"`
	DifficultyType   models.DifficultyType `yaml:"difficulty_type" json:"difficulty_type"`
	PrimaryMuscles   []string              `yaml:"primary_muscles" json:"primary_muscles"`
	SecondaryMuscles []string              `yaml:"secondary_muscles,omitempty" json:"secondary_muscles,omitempty"`
}

// Catalog is an immutable, in-memory exercise catalog. It is safe for
// concurrent use.
type Catalog struct {
	byID   map[string]Meta
	byName map[string]Meta
	all    []Meta
}

type file struct {
	Exercises []Meta `yaml:"exercises"`
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog YAML file from disk.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	return Parse(data)
}

// Parse builds a catalog from YAML. Every invalid entry is reported, not just
// the first one.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return New(f.Exercises)
}

// New builds a catalog from a list of entries.
func New(entries []Meta) (*Catalog, error) {
	c := &Catalog{
		byID:   make(map[string]Meta, len(entries)),
		byName: make(map[string]Meta, len(entries)),
	}

	var errs error
	for i, m := range entries {
		if m.ID == "" {
			errs = multierr.Append(errs, fmt.Errorf("entry %d: id is required", i))
			continue
		}
		if m.Name == "" {
			errs = multierr.Append(errs, fmt.Errorf("%s: name is required", m.ID))
		}
		if !m.DifficultyType.Valid() {
			errs = multierr.Append(errs, fmt.Errorf("%s: unknown difficulty type %q", m.ID, m.DifficultyType))
		}
		if _, dup := c.byID[m.ID]; dup {
			errs = multierr.Append(errs, fmt.Errorf("%s: duplicate id", m.ID))
			continue
		}
		c.byID[m.ID] = m
		if m.Name != "" {
			c.byName[normalizeName(m.Name)] = m
		}
		c.all = append(c.all, m)
	}
	if errs != nil {
		return nil, fmt.Errorf("invalid catalog: %w", errs)
	}

	sort.Slice(c.all, func(i, j int) bool { return c.all[i].Name < c.all[j].Name })
	return c, nil
}

// Lookup returns the entry for metaID, or ErrUnknownExercise.
func (c *Catalog) Lookup(metaID string) (Meta, error) {
	m, ok := c.byID[metaID]
	if !ok {
		return Meta{}, fmt.Errorf("%w: %q", ErrUnknownExercise, metaID)
	}
	return m, nil
}

// FindByName looks an exercise up by its display name, ignoring case and
// surrounding whitespace.
func (c *Catalog) FindByName(name string) (Meta, error) {
	m, ok := c.byName[normalizeName(name)]
	if !ok {
		return Meta{}, fmt.Errorf("%w: no exercise named %q", ErrUnknownExercise, name)
	}
	return m, nil
}

// All returns every entry sorted by name.
func (c *Catalog) All() []Meta {
	out := make([]Meta, len(c.all))
	copy(out, c.all)
	return out
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
