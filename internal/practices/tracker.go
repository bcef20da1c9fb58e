package practices

import (
	"github.com/mrwolf/parami/internal/content"
	"github.com/mrwolf/parami/internal/models"
)

// ThemeSource supplies theme content by id
type ThemeSource interface {
	Theme(id int) (*models.Theme, error)
}

// Tracker walks a theme's activity catalog, skipping activities the caller
// has already seen. It keeps no state of its own: the seen list is owned and
// grown by the caller.
type Tracker struct {
	themes ThemeSource
}

// NewTracker creates a tracker over the given content
func NewTracker(themes ThemeSource) *Tracker {
	return &Tracker{themes: themes}
}

// Catalog returns base activities followed by extended activities
func (t *Tracker) Catalog(themeID int) ([]models.Activity, error) {
	theme, err := t.themes.Theme(themeID)
	if err != nil {
		return nil, err
	}
	all := make([]models.Activity, 0, len(theme.Activities)+len(theme.ExtendedActivities))
	all = append(all, theme.Activities...)
	all = append(all, theme.ExtendedActivities...)
	return all, nil
}

// Available returns the catalog minus any activity whose id is in seen, in catalog order
func (t *Tracker) Available(themeID int, seen []string) ([]models.Activity, error) {
	all, err := t.Catalog(themeID)
	if err != nil {
		return nil, err
	}

	skip := make(map[string]bool, len(seen))
	for _, id := range seen {
		skip[id] = true
	}

	out := make([]models.Activity, 0, len(all))
	for _, a := range all {
		if !skip[a.ID] {
			out = append(out, a)
		}
	}
	return out, nil
}

// Next returns the first unseen activity in catalog order.
// A nil activity with a nil error means the pool is exhausted.
func (t *Tracker) Next(themeID int, seen []string) (*models.Activity, error) {
	available, err := t.Available(themeID, seen)
	if err != nil {
		return nil, err
	}
	if len(available) == 0 {
		return nil, nil
	}
	next := available[0]
	return &next, nil
}

// HasMore reports whether any unseen activity remains
func (t *Tracker) HasMore(themeID int, seen []string) (bool, error) {
	available, err := t.Available(themeID, seen)
	if err != nil {
		return false, err
	}
	return len(available) > 0, nil
}

// TotalCount is the size of the theme's full catalog
func (t *Tracker) TotalCount(themeID int) (int, error) {
	theme, err := t.themes.Theme(themeID)
	if err != nil {
		return 0, err
	}
	return len(theme.Activities) + len(theme.ExtendedActivities), nil
}

var _ ThemeSource = (*content.Catalog)(nil)
