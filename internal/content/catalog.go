package content

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mrwolf/parami/internal/models"
)

// ThemeCount is the fixed number of themes. Theme ids run 1..ThemeCount.
const ThemeCount = 10

// ErrUnknownTheme is returned for theme ids outside 1..ThemeCount
var ErrUnknownTheme = errors.New("unknown theme id")

//go:embed catalog.yaml
var catalogYAML []byte

// Catalog is the immutable theme and activity reference content
type Catalog struct {
	themes []models.Theme // index = id-1
}

type catalogFile struct {
	Themes []models.Theme `yaml:"themes"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the embedded catalog, parsed once per process
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(catalogYAML)
	})
	return defaultCatalog, defaultErr
}

// MustDefault is Default for callers that cannot continue without content
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(fmt.Sprintf("content: embedded catalog is invalid: %v", err))
	}
	return c
}

// Parse decodes and validates a YAML catalog
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	return New(f.Themes)
}

// New validates themes and builds a catalog ordered by id
func New(themes []models.Theme) (*Catalog, error) {
	if len(themes) != ThemeCount {
		return nil, fmt.Errorf("catalog has %d themes, want %d", len(themes), ThemeCount)
	}

	ordered := make([]models.Theme, ThemeCount)
	seenTheme := make(map[int]bool)
	seenActivity := make(map[string]int)

	for _, t := range themes {
		if t.ID < 1 || t.ID > ThemeCount {
			return nil, fmt.Errorf("theme %q: %w %d", t.Name, ErrUnknownTheme, t.ID)
		}
		if seenTheme[t.ID] {
			return nil, fmt.Errorf("duplicate theme id %d", t.ID)
		}
		seenTheme[t.ID] = true

		if len(t.Activities) == 0 {
			return nil, fmt.Errorf("theme %d has no base activities", t.ID)
		}
		all := append(append([]models.Activity{}, t.Activities...), t.ExtendedActivities...)
		for _, a := range all {
			if a.ID == "" {
				return nil, fmt.Errorf("theme %d has an activity without id", t.ID)
			}
			if owner, dup := seenActivity[a.ID]; dup {
				return nil, fmt.Errorf("activity %q appears in themes %d and %d", a.ID, owner, t.ID)
			}
			seenActivity[a.ID] = t.ID
			if a.Difficulty.Rank() == 0 {
				return nil, fmt.Errorf("activity %q has unknown difficulty %q", a.ID, a.Difficulty)
			}
		}
		ordered[t.ID-1] = t
	}

	return &Catalog{themes: ordered}, nil
}

// Count returns the number of themes
func (c *Catalog) Count() int {
	return len(c.themes)
}

// Theme returns the theme with the given id
func (c *Catalog) Theme(id int) (*models.Theme, error) {
	if id < 1 || id > len(c.themes) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTheme, id)
	}
	t := cloneTheme(c.themes[id-1])
	return &t, nil
}

// Themes returns all themes in id order
func (c *Catalog) Themes() []models.Theme {
	out := make([]models.Theme, len(c.themes))
	for i, t := range c.themes {
		out[i] = cloneTheme(t)
	}
	return out
}

// cloneTheme copies the activity slices so callers cannot reach catalog storage
func cloneTheme(t models.Theme) models.Theme {
	t.Activities = slices.Clone(t.Activities)
	t.ExtendedActivities = slices.Clone(t.ExtendedActivities)
	return t
}

// ValidThemeID reports whether id names a theme in the catalog
func (c *Catalog) ValidThemeID(id int) bool {
	return id >= 1 && id <= len(c.themes)
}
