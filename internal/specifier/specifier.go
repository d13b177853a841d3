// Package specifier resolves user-supplied archive specifiers against an
// archive listing.
//
// A specifier string is matched against an ordered list of concrete
// matcher types: ordinal position, raw timestamp, then fuzzy calendar
// date. The order is fixed so that a string acceptable to more than one
// matcher always resolves the same way.
package specifier

import (
	"strconv"
	"strings"
	"time"

	"backupmgr/internal/domain"
)

// ordinalCutoff separates position indices from plausible Unix
// timestamps: integers below it are ordinals, values at or above it are
// timestamps.
const ordinalCutoff = 1_000_000_000

// Specifier is a resolved, immutable archive matcher.
type Specifier interface {
	// Evaluate reports whether the archive at the given 0-based
	// position in an ascending-by-timestamp listing matches.
	Evaluate(archive domain.Archive, position int) bool

	// String returns the raw specifier string.
	String() string
}

// concreteType pairs an acceptance predicate with a constructor. Parse
// tries these in declaration order.
type concreteType struct {
	accepts   func(s string) bool
	construct func(s string, loc *time.Location) (Specifier, error)
}

var concreteTypes = []concreteType{
	{acceptsOrdinal, newOrdinal},
	{acceptsTimestamp, newTimestamp},
	{acceptsFuzzyDate, newFuzzyDate},
}

// Parse builds a Specifier from a raw string. Fuzzy dates without an
// explicit zone are interpreted in loc. An unrecognizable string is an
// expected error.
func Parse(s string, loc *time.Location) (Specifier, error) {
	for _, ct := range concreteTypes {
		if ct.accepts(s) {
			return ct.construct(s, loc)
		}
	}
	return nil, domain.Errorf("no specifier matched %q", s)
}

// Resolve evaluates the specifier against archives (pre-sorted ascending
// by timestamp, positions 0-based) and requires exactly one match. Zero
// matches and multiple matches are both expected errors; the latter
// enumerates every candidate.
func Resolve(spec Specifier, archives []domain.Archive, loc *time.Location) (domain.Archive, error) {
	var matches []domain.Archive
	for position, archive := range archives {
		if spec.Evaluate(archive, position) {
			matches = append(matches, archive)
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return domain.Archive{}, domain.Errorf("no archive matched specifier %q", spec)
	default:
		times := make([]string, len(matches))
		for i, archive := range matches {
			times[i] = archive.HumanTime(loc)
		}
		return domain.Archive{}, domain.Errorf(
			"specifier %q is ambiguous, matched archives: %s", spec, strings.Join(times, ", "))
	}
}

// Ordinal matches an archive by its position in the listing.
type Ordinal struct {
	raw     string
	ordinal int
}

func acceptsOrdinal(s string) bool {
	value, err := strconv.Atoi(s)
	return err == nil && value < ordinalCutoff
}

func newOrdinal(s string, _ *time.Location) (Specifier, error) {
	value, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &Ordinal{raw: s, ordinal: value}, nil
}

// Evaluate matches on position only.
func (o *Ordinal) Evaluate(_ domain.Archive, position int) bool {
	return position == o.ordinal
}

// String returns the raw specifier string.
func (o *Ordinal) String() string {
	return o.raw
}

// Timestamp matches an archive by its exact stored timestamp.
type Timestamp struct {
	raw       string
	timestamp float64
}

func acceptsTimestamp(s string) bool {
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false
	}
	return value >= ordinalCutoff || strings.Contains(s, ".")
}

func newTimestamp(s string, _ *time.Location) (Specifier, error) {
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &Timestamp{raw: s, timestamp: value}, nil
}

// Evaluate matches on the archive timestamp only.
func (t *Timestamp) Evaluate(archive domain.Archive, _ int) bool {
	return archive.Timestamp == t.timestamp
}

// String returns the raw specifier string.
func (t *Timestamp) String() string {
	return t.raw
}

// granularity is the most specific calendar field a fuzzy date supplied.
type granularity int

const (
	granYear granularity = iota
	granMonth
	granDay
	granHour
	granMinute
	granSecond
)

// fuzzyLayout associates a parse layout with the granularity it conveys
// and whether it carries an explicit zone.
type fuzzyLayout struct {
	layout  string
	gran    granularity
	hasZone bool
}

// Layouts are tried in order; more specific forms come first so a string
// is never truncated to a coarser reading.
var fuzzyLayouts = []fuzzyLayout{
	{time.RFC3339, granSecond, true},
	{"2006-01-02T15:04:05", granSecond, false},
	{"2006-01-02 15:04:05", granSecond, false},
	{"2006-01-02T15:04", granMinute, false},
	{"2006-01-02 15:04", granMinute, false},
	{"2006-01-02 15", granHour, false},
	{"2006-01-02", granDay, false},
	{"2006/01/02", granDay, false},
	{"01/02/2006", granDay, false},
	{"Jan 2, 2006", granDay, false},
	{"January 2, 2006", granDay, false},
	{"2006-01", granMonth, false},
}

// FuzzyDate matches archives whose timestamps agree with the parsed date
// on every calendar field the user supplied. Fields finer than the
// supplied granularity are ignored; the day is always compared even when
// the string did not name one.
type FuzzyDate struct {
	raw  string
	date time.Time
	gran granularity
}

func acceptsFuzzyDate(s string) bool {
	_, _, err := parseFuzzyDate(s, time.UTC)
	return err == nil
}

func newFuzzyDate(s string, loc *time.Location) (Specifier, error) {
	date, gran, err := parseFuzzyDate(s, loc)
	if err != nil {
		return nil, domain.Errorf("no specifier matched %q", s)
	}
	return &FuzzyDate{raw: s, date: date, gran: gran}, nil
}

func parseFuzzyDate(s string, loc *time.Location) (time.Time, granularity, error) {
	var lastErr error
	for _, fl := range fuzzyLayouts {
		var parsed time.Time
		var err error
		if fl.hasZone {
			parsed, err = time.Parse(fl.layout, s)
		} else {
			parsed, err = time.ParseInLocation(fl.layout, s, loc)
		}
		if err == nil {
			return parsed, fl.gran, nil
		}
		lastErr = err
	}
	return time.Time{}, 0, lastErr
}

// Evaluate converts the archive timestamp into the specifier's timezone
// and compares calendar fields down to the supplied granularity.
func (f *FuzzyDate) Evaluate(archive domain.Archive, _ int) bool {
	at := archive.Time(f.date.Location())

	if at.Year() != f.date.Year() ||
		at.Month() != f.date.Month() ||
		at.Day() != f.date.Day() {
		return false
	}
	if f.gran >= granHour && at.Hour() != f.date.Hour() {
		return false
	}
	if f.gran >= granMinute && at.Minute() != f.date.Minute() {
		return false
	}
	if f.gran >= granSecond && at.Second() != f.date.Second() {
		return false
	}
	return true
}

// String returns the raw specifier string.
func (f *FuzzyDate) String() string {
	return f.raw
}
