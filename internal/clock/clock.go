// Package clock centralizes the local-time policy of the application.
//
// Weekday and month boundaries are computed in a single, injectable
// location so that scheduling and pruning decisions can be tested with
// a fixed clock instead of the host timezone.
package clock

import "time"

// Clock supplies the current time and the timezone in which calendar
// boundaries (day, week, month) are evaluated.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// System is a Clock backed by the host's local time.
type System struct{}

// Now returns the current local time.
func (System) Now() time.Time {
	return time.Now()
}

// Location returns the host's local timezone.
func (System) Location() *time.Location {
	return time.Local
}

// Fixed is a Clock pinned to a single instant, for tests.
type Fixed struct {
	Time time.Time
}

// Now returns the pinned instant.
func (f Fixed) Now() time.Time {
	return f.Time
}

// Location returns the pinned instant's timezone.
func (f Fixed) Location() *time.Location {
	return f.Time.Location()
}

// Day truncates t to midnight of its calendar day in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Week truncates t to midnight of the Monday starting its week in loc.
func Week(t time.Time, loc *time.Location) time.Time {
	d := Day(t, loc)
	offset := (int(d.Weekday()) - int(time.Monday) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// Month truncates t to midnight of the first day of its month in loc.
func Month(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
}
