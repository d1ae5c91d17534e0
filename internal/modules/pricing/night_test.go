package pricing

import (
	"testing"
	"time"
)

func TestIsNightAt_Boundaries(t *testing.T) {
	for h := 0; h < 24; h++ {
		want := h >= 22 || h <= 4
		at := time.Date(2026, 3, 1, h, 30, 0, 0, time.UTC)
		if got := IsNightAt(at); got != want {
			t.Errorf("IsNightAt(%02d:30) = %v, want %v", h, got, want)
		}
	}
}

func TestIsNightAt_EdgeMinutes(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"21:59:59 is day", time.Date(2026, 3, 1, 21, 59, 59, 0, time.UTC), false},
		{"22:00:00 is night", time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC), true},
		{"00:00:00 is night", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), true},
		{"04:59:59 is night", time.Date(2026, 3, 2, 4, 59, 59, 0, time.UTC), true},
		{"05:00:00 is day", time.Date(2026, 3, 2, 5, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNightAt(tt.at); got != tt.want {
				t.Errorf("IsNightAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClock_UsesConfiguredLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	// 17:00 UTC is 22:30 in IST.
	utc := time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC)

	if NewClock(time.UTC).WithNow(func() time.Time { return utc }).IsNight() {
		t.Error("17:00 UTC should be day in UTC")
	}
	if !NewClock(ist).WithNow(func() time.Time { return utc }).IsNight() {
		t.Error("17:00 UTC should be night in IST")
	}
}
