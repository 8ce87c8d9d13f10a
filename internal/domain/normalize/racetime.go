package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseRaceTime parses elapsed times written as H:MM:SS, M:SS or MM:SS,
// with optional fractional seconds ("33:29.4").
func ParseRaceTime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrBadTime)
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrBadTime, s)
	}

	secs, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil || secs < 0 || secs >= 60 {
		return 0, fmt.Errorf("%w: %q", ErrBadTime, s)
	}
	mins, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil || mins < 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadTime, s)
	}
	hours := 0
	if len(parts) == 3 {
		if mins >= 60 {
			return 0, fmt.Errorf("%w: %q", ErrBadTime, s)
		}
		hours, err = strconv.Atoi(parts[0])
		if err != nil || hours < 0 {
			return 0, fmt.Errorf("%w: %q", ErrBadTime, s)
		}
	}

	d := time.Duration(hours)*time.Hour +
		time.Duration(mins)*time.Minute +
		time.Duration(secs*float64(time.Second))
	return d.Round(time.Millisecond), nil
}

// FormatRaceTime renders d as M:SS below one hour and H:MM:SS above.
// Sub-second precision is kept only when present.
func FormatRaceTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	frac := d % time.Second

	var out string
	if h > 0 {
		out = fmt.Sprintf("%d:%02d:%02d", h, m, s)
	} else {
		out = fmt.Sprintf("%d:%02d", m, s)
	}
	if frac > 0 {
		out += strings.TrimRight(fmt.Sprintf(".%03d", frac/time.Millisecond), "0")
	}
	return out
}
