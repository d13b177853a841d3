package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDay(t *testing.T) {
	loc := time.FixedZone("TST", -5*3600)
	in := time.Date(2014, 11, 17, 23, 45, 12, 0, loc)

	got := Day(in, loc)

	assert.Equal(t, time.Date(2014, 11, 17, 0, 0, 0, 0, loc), got)
}

func TestWeek(t *testing.T) {
	loc := time.UTC

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "mid-week lands on preceding monday",
			// 2014-11-19 is a Wednesday
			in:   time.Date(2014, 11, 19, 10, 0, 0, 0, loc),
			want: time.Date(2014, 11, 17, 0, 0, 0, 0, loc),
		},
		{
			name: "monday maps to itself",
			in:   time.Date(2014, 11, 17, 0, 0, 0, 0, loc),
			want: time.Date(2014, 11, 17, 0, 0, 0, 0, loc),
		},
		{
			name: "sunday maps back six days",
			in:   time.Date(2014, 11, 23, 23, 59, 59, 0, loc),
			want: time.Date(2014, 11, 17, 0, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Week(tt.in, loc))
		})
	}
}

func TestMonth(t *testing.T) {
	loc := time.UTC
	in := time.Date(2014, 11, 17, 23, 45, 12, 0, loc)

	assert.Equal(t, time.Date(2014, 11, 1, 0, 0, 0, 0, loc), Month(in, loc))
}

func TestFixedClock(t *testing.T) {
	loc := time.FixedZone("TST", 3600)
	instant := time.Date(2014, 11, 17, 12, 0, 0, 0, loc)
	c := Fixed{Time: instant}

	assert.Equal(t, instant, c.Now())
	assert.Equal(t, loc, c.Location())
}
