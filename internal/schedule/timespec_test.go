package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backupmgr/internal/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		items []string
		want  TimeSpec
	}{
		{"daily expands to all weekdays", []string{"daily"},
			TimeSpec{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}},
		{"weekly shorthand", []string{"weekly"}, TimeSpec{Weekly}},
		{"monthly shorthand", []string{"monthly"}, TimeSpec{Monthly}},
		{"full weekday names", []string{"monday", "thursday"}, TimeSpec{Monday, Thursday}},
		{"two letter prefixes", []string{"mo", "tu", "we", "th", "fr", "sa", "su"},
			TimeSpec{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}},
		{"case and duplicates", []string{"Friday", "FRIDAY", "fri"}, TimeSpec{Friday}},
		{"mixed weekday and monthly", []string{"monthly", "friday"}, TimeSpec{Friday, Monthly}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Parse(tt.items)
			require.NoError(t, err)
			assert.Equal(t, tt.want, spec)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, items := range [][]string{nil, {}, {"m"}, {"someday"}, {"monday", "nonsense"}} {
		_, err := Parse(items)
		require.Error(t, err)
		assert.True(t, domain.IsExpected(err))
	}
}

func TestNextDueRun_Weekday(t *testing.T) {
	loc := time.UTC
	// 2014-11-17 is a Monday.
	monday := time.Date(2014, 11, 17, 0, 0, 0, 0, loc)

	tests := []struct {
		name  string
		spec  TimeSpec
		since time.Time
		want  time.Time
	}{
		{
			name:  "midweek advance to friday",
			spec:  TimeSpec{Friday},
			since: time.Date(2014, 11, 19, 10, 30, 0, 0, loc), // Wednesday
			want:  time.Date(2014, 11, 21, 0, 0, 0, 0, loc),
		},
		{
			name:  "since exactly on trigger advances a full week",
			spec:  TimeSpec{Monday},
			since: monday,
			want:  monday.AddDate(0, 0, 7),
		},
		{
			name:  "weekly aliases monday",
			spec:  TimeSpec{Weekly},
			since: time.Date(2014, 11, 20, 3, 0, 0, 0, loc), // Thursday
			want:  time.Date(2014, 11, 24, 0, 0, 0, 0, loc),
		},
		{
			name:  "late sunday rolls to monday midnight",
			spec:  TimeSpec{Monday},
			since: time.Date(2014, 11, 16, 23, 0, 0, 0, loc),
			want:  monday,
		},
		{
			name:  "earliest of several tokens wins",
			spec:  TimeSpec{Monday, Thursday},
			since: time.Date(2014, 11, 19, 0, 0, 0, 0, loc), // Wednesday
			want:  time.Date(2014, 11, 20, 0, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextDueRun(tt.spec, tt.since))
		})
	}
}

func TestNextDueRun_Monthly(t *testing.T) {
	loc := time.UTC

	tests := []struct {
		since time.Time
		want  time.Time
	}{
		{time.Date(2014, 11, 17, 12, 0, 0, 0, loc), time.Date(2014, 12, 1, 0, 0, 0, 0, loc)},
		{time.Date(2014, 12, 1, 0, 0, 0, 0, loc), time.Date(2015, 1, 1, 0, 0, 0, 0, loc)},
		{time.Date(2014, 12, 31, 23, 59, 59, 0, loc), time.Date(2015, 1, 1, 0, 0, 0, 0, loc)},
	}

	for _, tt := range tests {
		got := NextDueRun(TimeSpec{Monthly}, tt.since)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, 1, got.Day())
		assert.True(t, got.After(tt.since))
	}
}

func TestNextDueRun_StrictAdvancement(t *testing.T) {
	// Every weekday-only spec must land strictly after since, even when
	// since sits exactly on a selected weekday at midnight.
	loc := time.UTC
	for day := 0; day < 7; day++ {
		since := time.Date(2014, 11, 17+day, 0, 0, 0, 0, loc)
		for _, tok := range weekdayTokens {
			due := NextDueRun(TimeSpec{tok}, since)
			assert.True(t, due.After(since),
				"token %s since %s gave %s", tok, since, due)
		}
	}
}

func TestShouldRun(t *testing.T) {
	loc := time.UTC
	now := time.Date(2014, 11, 19, 9, 0, 0, 0, loc) // Wednesday
	spec := TimeSpec{Monday}

	t.Run("overdue backup runs", func(t *testing.T) {
		lastRun := time.Date(2014, 11, 3, 0, 0, 0, 0, loc)
		assert.True(t, ShouldRun(spec, lastRun, now))
	})

	t.Run("never-run backup is always due", func(t *testing.T) {
		epoch := time.Unix(0, 0).In(loc)
		assert.True(t, ShouldRun(spec, epoch, now))
	})

	t.Run("idempotent after run", func(t *testing.T) {
		assert.False(t, ShouldRun(spec, now, now))
	})

	t.Run("recent run not yet due", func(t *testing.T) {
		lastRun := time.Date(2014, 11, 17, 1, 0, 0, 0, loc)
		assert.False(t, ShouldRun(spec, lastRun, now))
	})
}
