// Package schedule decides when configured backups are due.
//
// A TimeSpec is a set of calendar triggers: individual weekdays, "weekly"
// (an alias for Monday) and "monthly" (the first of the month). All
// computations happen at midnight boundaries in the timezone of the
// reference time handed in, which the caller derives from the application
// clock.
package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"backupmgr/internal/clock"
	"backupmgr/internal/domain"
)

// Token is a single trigger within a TimeSpec.
type Token int

// Trigger tokens. The weekday tokens are ordered Monday first to match
// the week convention used by the pruning buckets.
const (
	Monday Token = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
	Weekly
	Monthly
)

var tokenNames = map[Token]string{
	Monday:    "monday",
	Tuesday:   "tuesday",
	Wednesday: "wednesday",
	Thursday:  "thursday",
	Friday:    "friday",
	Saturday:  "saturday",
	Sunday:    "sunday",
	Weekly:    "weekly",
	Monthly:   "monthly",
}

var tokenWeekdays = map[Token]time.Weekday{
	Monday:    time.Monday,
	Tuesday:   time.Tuesday,
	Wednesday: time.Wednesday,
	Thursday:  time.Thursday,
	Friday:    time.Friday,
	Saturday:  time.Saturday,
	Sunday:    time.Sunday,
}

// String returns the lowercase name of the token.
func (t Token) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// TimeSpec is a non-empty, deduplicated set of trigger tokens.
type TimeSpec []Token

// String renders the spec as a comma-separated token list.
func (ts TimeSpec) String() string {
	names := make([]string, len(ts))
	for i, tok := range ts {
		names[i] = tok.String()
	}
	return strings.Join(names, ",")
}

var weekdayTokens = []Token{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Parse builds a TimeSpec from configuration strings. A single entry may
// be one of the shorthand words "daily", "weekly" or "monthly"; weekday
// names are matched on their first two letters ("mo", "tues", ...).
func Parse(items []string) (TimeSpec, error) {
	if len(items) == 0 {
		return nil, domain.NewConfigError("empty timespec")
	}

	if len(items) == 1 {
		switch strings.ToLower(items[0]) {
		case "daily":
			return TimeSpec(weekdayTokens), nil
		case "weekly":
			return TimeSpec{Weekly}, nil
		case "monthly":
			return TimeSpec{Monthly}, nil
		}
	}

	seen := make(map[Token]bool)
	var spec TimeSpec
	for _, item := range items {
		tok, err := parseToken(item)
		if err != nil {
			return nil, err
		}
		if seen[tok] {
			continue
		}
		seen[tok] = true
		spec = append(spec, tok)
	}

	sort.Slice(spec, func(i, j int) bool { return spec[i] < spec[j] })
	return spec, nil
}

func parseToken(item string) (Token, error) {
	lowered := strings.ToLower(item)
	switch lowered {
	case "weekly":
		return Weekly, nil
	case "monthly":
		return Monthly, nil
	}
	for _, tok := range weekdayTokens {
		if prefixMatch(lowered, tok.String(), 2) {
			return tok, nil
		}
	}
	return 0, domain.NewConfigError("invalid timespec entry %q", item)
}

func prefixMatch(s, full string, n int) bool {
	if len(s) < n || len(s) > len(full) {
		return false
	}
	return strings.HasPrefix(full, s)
}

// NextDueRun returns the earliest trigger time strictly after since.
//
// Monthly triggers at midnight on the first day of the month following
// since's month. A weekday trigger is the next occurrence of that weekday
// at midnight strictly after since: since is first advanced by one day
// before searching at-or-after, so a since landing exactly on the trigger
// still advances a full week.
func NextDueRun(spec TimeSpec, since time.Time) time.Time {
	loc := since.Location()

	var due time.Time
	for _, tok := range spec {
		candidate := nextDuePart(tok, since, loc)
		if due.IsZero() || candidate.Before(due) {
			due = candidate
		}
	}
	return due
}

func nextDuePart(tok Token, since time.Time, loc *time.Location) time.Time {
	if tok == Monthly {
		return clock.Month(since, loc).AddDate(0, 1, 0)
	}
	if tok == Weekly {
		tok = Monday
	}

	target := tokenWeekdays[tok]
	start := clock.Day(since.AddDate(0, 0, 1), loc)
	offset := (int(target) - int(start.Weekday()) + 7) % 7
	return start.AddDate(0, 0, offset)
}

// ShouldRun reports whether a backup with this spec, last run at lastRun,
// is due at now. A backup that has never run carries a lastRun of the
// epoch, whose next due run is necessarily in the past.
func ShouldRun(spec TimeSpec, lastRun, now time.Time) bool {
	return NextDueRun(spec, lastRun).Before(now)
}
