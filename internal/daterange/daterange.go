// Package daterange turns user-supplied calendar dates and an IANA
// timezone into absolute UTC instant boundaries for querying.
//
// The from date is interpreted as 00:00:00 and the to date as the end
// of that calendar day, both in the requested timezone. This keeps a
// query for "2026-02-02" in America/Los_Angeles inclusive of activity
// at 23:06 local time even though it falls on Feb 3 in UTC.
package daterange

import (
	"strings"
	"time"

	apperrors "github.com/osswatch/maintainer-dashboard/internal/errors"
)

const (
	// DateLayout is the only accepted calendar date format.
	DateLayout = "2006-01-02"

	// MaxDays is the largest inclusive day count a range may span.
	MaxDays = 200
)

// Range is an immutable resolved date range. FromInstant and ToInstant
// are UTC; Location is the timezone the calendar dates were resolved in.
type Range struct {
	FromInstant time.Time
	ToInstant   time.Time
	Location    *time.Location
	Days        int
}

// Contains reports whether a UTC instant falls inside the range,
// boundaries included.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.FromInstant) && !t.After(r.ToInstant)
}

// LoadTimezone validates an IANA timezone name. Empty input defaults
// to UTC. Fixed abbreviations such as "PST" or "EST" are rejected even
// when the system zoneinfo database would resolve them, because they
// are ambiguous across daylight-saving transitions.
func LoadTimezone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "UTC" {
		return time.UTC, nil
	}
	if !strings.Contains(name, "/") {
		return nil, apperrors.NewValidationError(apperrors.ErrCodeInvalidTimezone,
			"invalid timezone %q: use a canonical IANA name such as America/Los_Angeles", name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, apperrors.NewValidationError(apperrors.ErrCodeInvalidTimezone,
			"invalid timezone %q: use a canonical IANA name such as America/Los_Angeles", name)
	}
	return loc, nil
}

// Resolve validates a (from, to) calendar date pair against the strict
// YYYY-MM-DD layout and converts it into UTC instant boundaries in loc.
// now anchors the future-date check; it is always passed explicitly so
// no boundary computation ever reads ambient clock or timezone state.
func Resolve(fromDate, toDate string, loc *time.Location, now time.Time) (Range, error) {
	from, err := parseDate(fromDate)
	if err != nil {
		return Range{}, err
	}
	to, err := parseDate(toDate)
	if err != nil {
		return Range{}, err
	}

	// Calendar comparison happens before any timezone conversion.
	if from.After(to) {
		return Range{}, apperrors.NewValidationError(apperrors.ErrCodeInvalidDateRange,
			"from_date %s is after to_date %s", fromDate, toDate)
	}

	days := int(to.Sub(from).Hours()/24) + 1
	if days > MaxDays {
		return Range{}, apperrors.NewValidationError(apperrors.ErrCodeDateRangeTooLarge,
			"date range spans %d days; the maximum is %d", days, MaxDays)
	}

	ty, tm, td := to.Date()
	ny, nm, nd := now.In(loc).Date()
	if afterCalendar(ty, tm, td, ny, nm, nd) {
		return Range{}, apperrors.NewValidationError(apperrors.ErrCodeFutureDate,
			"to_date %s is in the future for timezone %s", toDate, loc.String())
	}

	fy, fm, fd := from.Date()
	fromInstant := time.Date(fy, fm, fd, 0, 0, 0, 0, loc).UTC()
	toInstant := time.Date(ty, tm, td+1, 0, 0, 0, 0, loc).Add(-time.Nanosecond).UTC()

	return Range{
		FromInstant: fromInstant,
		ToInstant:   toInstant,
		Location:    loc,
		Days:        days,
	}, nil
}

// ResolveLastNDays resolves a rolling window of n inclusive calendar
// days ending yesterday in loc. Today is deliberately excluded so the
// future-date check never races against clock skew between the caller
// and the upstream API.
func ResolveLastNDays(n int, loc *time.Location, now time.Time) (Range, error) {
	if n < 1 || n > MaxDays {
		return Range{}, apperrors.NewValidationError(apperrors.ErrCodeInvalidParameter,
			"days must be between 1 and %d, got %d", MaxDays, n)
	}

	local := now.In(loc)
	y, m, d := local.Date()
	yesterday := time.Date(y, m, d, 0, 0, 0, 0, loc).AddDate(0, 0, -1)
	first := yesterday.AddDate(0, 0, -(n - 1))

	return Resolve(first.Format(DateLayout), yesterday.Format(DateLayout), loc, now)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(apperrors.ErrCodeInvalidDateFormat,
			"invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

func afterCalendar(y1 int, m1 time.Month, d1, y2 int, m2 time.Month, d2 int) bool {
	if y1 != y2 {
		return y1 > y2
	}
	if m1 != m2 {
		return m1 > m2
	}
	return d1 > d2
}
