// Package civiltime is the single place where absolute instants are
// converted to and from civil dates and times in the organization's
// reference timezone. No other package may derive a calendar date from
// a raw instant; comparing instants against locally-constructed dates
// is exactly the class of DST bug this package exists to prevent.
package civiltime

import (
	"fmt"
	"time"
)

// Date is a civil calendar date with no timezone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses the wire format YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Before reports whether d is earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// Zone converts between instants and civil representations in one fixed
// reference timezone. Load it once at startup; a bad zone name is a
// configuration error, never a per-call condition.
type Zone struct {
	loc *time.Location
}

func LoadZone(name string) (Zone, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Zone{}, fmt.Errorf("invalid reference timezone %q: %w", name, err)
	}
	return Zone{loc: loc}, nil
}

func (z Zone) Name() string {
	return z.loc.String()
}

// Instant resolves a civil date and time-of-day in the reference zone
// to an absolute instant, normalized to UTC.
func (z Zone) Instant(d Date, hour, minute int) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, z.loc).UTC()
}

// DayRange returns the instant interval [start, end) covering the full
// civil day in the reference zone. On DST transition days the interval
// is 23 or 25 hours long.
func (z Zone) DayRange(d Date) (time.Time, time.Time) {
	start := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, z.loc)
	end := time.Date(d.Year, d.Month, d.Day+1, 0, 0, 0, 0, z.loc)
	return start.UTC(), end.UTC()
}

// DateOf extracts the civil date an instant falls on in the reference zone.
func (z Zone) DateOf(t time.Time) Date {
	local := t.In(z.loc)
	return Date{Year: local.Year(), Month: local.Month(), Day: local.Day()}
}

// Label renders an instant as a human-readable time-of-day in the
// reference zone, e.g. "9:00 AM".
func (z Zone) Label(t time.Time) string {
	return t.In(z.loc).Format("3:04 PM")
}

// ParseLocal parses a wall-clock timestamp ("2006-01-02T15:04") as a
// civil time in the reference zone and returns the UTC instant.
func (z Zone) ParseLocal(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02T15:04", s, z.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid local timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
