package app

import (
	"testing"
	"time"
)

func TestComputeBasicOffsets(t *testing.T) {
	t.Parallel()
	calc := NewDueDateCalculator(newTestCalendar(t, nil))

	tests := []struct {
		name    string
		runDate time.Time
		days    int
		hours   int
		want    time.Time
	}{
		{
			name:    "one day",
			runDate: date(2024, time.January, 1), // Monday
			days:    1,
			want:    date(2024, time.January, 2),
		},
		{
			name:    "days and hours",
			runDate: date(2024, time.January, 1),
			days:    2,
			hours:   5,
			want:    time.Date(2024, time.January, 3, 5, 0, 0, 0, time.UTC),
		},
		{
			name:    "hours only",
			runDate: date(2024, time.January, 1),
			hours:   36,
			want:    time.Date(2024, time.January, 2, 12, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := calc.Compute(tt.runDate, tt.days, tt.hours, false)
			if !got.Equal(tt.want) {
				t.Fatalf("Compute = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	t.Parallel()
	calc := NewDueDateCalculator(newTestCalendar(t, map[int][]time.Time{
		2024: {date(2024, time.January, 8)},
	}))

	first := calc.Compute(date(2024, time.January, 5), 1, 10, true)
	second := calc.Compute(date(2024, time.January, 5), 1, 10, true)
	if !first.Equal(second) {
		t.Fatalf("Compute not deterministic: %s vs %s", first, second)
	}
}

func TestComputeMoveToNextBusinessDay(t *testing.T) {
	t.Parallel()
	// 2024-01-06 is a Saturday and Monday the 8th a registered holiday.
	holidays := map[int][]time.Time{2024: {date(2024, time.January, 8)}}
	calc := NewDueDateCalculator(newTestCalendar(t, holidays))

	tests := []struct {
		name    string
		runDate time.Time
		days    int
		hours   int
		move    bool
		want    time.Time
	}{
		{
			name:    "saturday base advances past holiday monday",
			runDate: date(2024, time.January, 5), // Friday
			days:    1,
			move:    true,
			want:    date(2024, time.January, 9), // Tuesday
		},
		{
			name:    "clock time survives the move",
			runDate: date(2024, time.January, 5),
			days:    1,
			hours:   10,
			move:    true,
			want:    time.Date(2024, time.January, 9, 10, 0, 0, 0, time.UTC),
		},
		{
			name:    "flag unset keeps weekend due date",
			runDate: date(2024, time.January, 5),
			days:    1,
			move:    false,
			want:    date(2024, time.January, 6),
		},
		{
			name:    "business day base untouched",
			runDate: date(2024, time.January, 1),
			days:    1,
			move:    true,
			want:    date(2024, time.January, 2),
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := calc.Compute(tt.runDate, tt.days, tt.hours, tt.move)
			if !got.Equal(tt.want) {
				t.Fatalf("Compute = %s, want %s", got, tt.want)
			}
		})
	}
}
