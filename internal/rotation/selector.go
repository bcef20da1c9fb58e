package rotation

import "time"

// Generator constants for the theme-of-the-day mapping. Every installation
// must use exactly these values to agree on the theme for a date.
const (
	LCGMultiplier = 9301
	LCGIncrement  = 49297
	LCGModulus    = 233280
)

// ThemeCount is the size of the theme range produced by SelectTheme
const ThemeCount = 10

// DefaultHorizonDays bounds DaysUntilThemeRecurs when callers have no preference
const DefaultHorizonDays = 30

// DaySeed folds a calendar date into an integer seed: year*10000 + month*100 + day.
// Only the date in t's location is used; the clock time is ignored.
func DaySeed(t time.Time) int64 {
	y, m, d := t.Date()
	return int64(y)*10000 + int64(m)*100 + int64(d)
}

// DayRandom returns the generator output for a date, a value in [0,1)
func DayRandom(t time.Time) float64 {
	seed := DaySeed(t)
	next := (seed*LCGMultiplier + LCGIncrement) % LCGModulus
	if next < 0 {
		next += LCGModulus
	}
	return float64(next) / float64(LCGModulus)
}

// SelectTheme returns the theme of the day, an id in [1, ThemeCount].
// Same date, same result, on every installation.
func SelectTheme(t time.Time) int {
	return int(DayRandom(t)*ThemeCount) + 1
}

// DaysUntilThemeRecurs scans forward from the day after from and returns the
// first offset whose theme of the day is themeID. ok is false when the theme
// does not come up within horizonDays or themeID is out of range.
func DaysUntilThemeRecurs(themeID int, from time.Time, horizonDays int) (days int, ok bool) {
	if themeID < 1 || themeID > ThemeCount {
		return 0, false
	}
	for offset := 1; offset <= horizonDays; offset++ {
		if SelectTheme(from.AddDate(0, 0, offset)) == themeID {
			return offset, true
		}
	}
	return 0, false
}
