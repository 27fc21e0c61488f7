package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/Agastya221/society-gate-backend/internal/domain"
)

// MinutesOfDay parses "HH:MM" into minutes since midnight.
func MinutesOfDay(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, domain.ErrValidation("malformed time %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, domain.ErrValidation("malformed hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, domain.ErrValidation("malformed minute in %q", s)
	}
	return h*60 + m, nil
}

// WindowActive reports whether now lies inside [from, until], all three
// given as "HH:MM". A window whose until precedes its from spans
// midnight: 22:00-02:00 is active at 23:30 and at 01:30. Bounds are
// inclusive on both ends.
func WindowActive(from, until, now string) (bool, error) {
	f, err := MinutesOfDay(from)
	if err != nil {
		return false, err
	}
	u, err := MinutesOfDay(until)
	if err != nil {
		return false, err
	}
	n, err := MinutesOfDay(now)
	if err != nil {
		return false, err
	}

	if u < f {
		return n >= f || n <= u, nil
	}
	return f <= n && n <= u, nil
}

// WindowActiveAt is WindowActive against a wall-clock instant.
func WindowActiveAt(from, until string, t time.Time) (bool, error) {
	return WindowActive(from, until, t.Format("15:04"))
}
