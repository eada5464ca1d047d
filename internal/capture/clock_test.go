package capture

import (
	"testing"
	"time"
)

func TestFormatElapsed(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start *time.Time
		now   time.Time
		want  string
	}{
		{name: "not started", start: nil, now: start, want: NotStarted},
		{name: "just started", start: &start, now: start, want: "0s"},
		{name: "floors partial seconds", start: &start, now: start.Add(2999 * time.Millisecond), want: "2s"},
		{name: "minutes are shown in seconds", start: &start, now: start.Add(2*time.Minute + 5*time.Second), want: "125s"},
		{name: "clock went backwards", start: &start, now: start.Add(-time.Second), want: "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatElapsed(tt.start, tt.now); got != tt.want {
				t.Errorf("FormatElapsed() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestElapsed_NotStarted(t *testing.T) {
	if _, ok := Elapsed(nil, time.Now()); ok {
		t.Error("expected ok=false without a start time")
	}
}
