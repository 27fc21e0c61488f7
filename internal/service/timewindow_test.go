package service

import (
	"testing"
	"time"

	"github.com/Agastya221/society-gate-backend/internal/domain"
)

func TestMinutesOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"noon", 0, true},
		{"12", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := MinutesOfDay(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("MinutesOfDay(%q): expected error", tt.in)
			} else if !domain.IsKind(err, domain.KindValidation) {
				t.Errorf("MinutesOfDay(%q): expected VALIDATION_ERROR, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("MinutesOfDay(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("MinutesOfDay(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestWindowActive(t *testing.T) {
	tests := []struct {
		name             string
		from, until, now string
		want             bool
	}{
		{"inside plain window", "09:00", "17:00", "12:00", true},
		{"before plain window", "09:00", "17:00", "08:59", false},
		{"after plain window", "09:00", "17:00", "17:01", false},
		{"at lower bound", "09:00", "17:00", "09:00", true},
		{"at upper bound", "09:00", "17:00", "17:00", true},

		// until < from wraps past midnight
		{"wrap, late evening", "22:00", "02:00", "23:30", true},
		{"wrap, early morning", "22:00", "02:00", "01:30", true},
		{"wrap, midday outside", "22:00", "02:00", "12:00", false},
		{"wrap, at from", "22:00", "02:00", "22:00", true},
		{"wrap, at until", "22:00", "02:00", "02:00", true},
		{"wrap, just past until", "22:00", "02:00", "02:01", false},
		{"wrap, just before from", "22:00", "02:00", "21:59", false},

		{"degenerate single minute", "10:00", "10:00", "10:00", true},
		{"degenerate single minute, off", "10:00", "10:00", "10:01", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WindowActive(tt.from, tt.until, tt.now)
			if err != nil {
				t.Fatalf("WindowActive(%q, %q, %q): %v", tt.from, tt.until, tt.now, err)
			}
			if got != tt.want {
				t.Errorf("WindowActive(%q, %q, %q) = %v, want %v", tt.from, tt.until, tt.now, got, tt.want)
			}
		})
	}
}

func TestWindowActive_MalformedInput(t *testing.T) {
	if _, err := WindowActive("9am", "17:00", "12:00"); err == nil {
		t.Fatal("expected error for malformed from")
	}
	if _, err := WindowActive("09:00", "17:00", "later"); err == nil {
		t.Fatal("expected error for malformed now")
	}
}

func TestWindowActiveAt(t *testing.T) {
	at := time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC)
	active, err := WindowActiveAt("22:00", "02:00", at)
	if err != nil {
		t.Fatal(err)
	}
	if !active {
		t.Fatal("23:30 should be inside 22:00-02:00")
	}
}
