package caption

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Static errors for caption parsing.
var (
	// ErrInvalidTimestamp is returned when a timestamp is not [[HH:]MM:]SS[.mmm].
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	// ErrInvalidTiming is returned when a timing line cannot be split into start and end.
	ErrInvalidTiming = errors.New("invalid timing line")
	// ErrNegativeSpan is returned when a cue ends before it starts.
	ErrNegativeSpan = errors.New("cue ends before it starts")
)

// MaxTimestamp bounds every parsed timestamp; larger values would overflow
// time.Duration arithmetic further down the pipeline.
const MaxTimestamp = 100000 * time.Hour

// ParseTimestamp converts a WebVTT timestamp to a duration.
// Hours are optional and default to 0. Milliseconds are optional; a short
// fraction is right-padded ("5" is 500ms) and digits past the third are dropped.
// A bare seconds value is accepted only with a fractional part ("7.250").
// Values beyond MaxTimestamp are rejected.
func ParseTimestamp(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}

	secPart, fracPart, hasFrac := strings.Cut(parts[len(parts)-1], ".")
	if len(parts) == 1 && !hasFrac {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}

	var hours, minutes int
	var err error
	switch len(parts) {
	case 3:
		if hours, err = atoi(parts[0]); err != nil {
			return 0, fmt.Errorf("%w: hours in %q", ErrInvalidTimestamp, s)
		}
		if minutes, err = atoi(parts[1]); err != nil {
			return 0, fmt.Errorf("%w: minutes in %q", ErrInvalidTimestamp, s)
		}
	case 2:
		if minutes, err = atoi(parts[0]); err != nil {
			return 0, fmt.Errorf("%w: minutes in %q", ErrInvalidTimestamp, s)
		}
	}

	seconds, err := atoi(secPart)
	if err != nil {
		return 0, fmt.Errorf("%w: seconds in %q", ErrInvalidTimestamp, s)
	}

	var millis int
	if hasFrac {
		if len(fracPart) > 3 {
			fracPart = fracPart[:3]
		}
		for len(fracPart) < 3 && fracPart != "" {
			fracPart += "0"
		}
		if millis, err = atoi(fracPart); err != nil {
			return 0, fmt.Errorf("%w: milliseconds in %q", ErrInvalidTimestamp, s)
		}
	}

	// Bound each field before multiplying so the sum cannot wrap.
	limit := int(MaxTimestamp / time.Second)
	if hours > limit/3600 || minutes > limit/60 || seconds > limit {
		return 0, fmt.Errorf("%w: %q exceeds %s", ErrInvalidTimestamp, s, MaxTimestamp)
	}
	d := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond
	if d > MaxTimestamp {
		return 0, fmt.Errorf("%w: %q exceeds %s", ErrInvalidTimestamp, s, MaxTimestamp)
	}
	return d, nil
}

// atoi accepts only non-empty runs of ASCII digits.
func atoi(s string) (int, error) {
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}

// FormatTimestamp renders d as HH:MM:SS.mmm. Negative durations render as zero.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// parseTiming splits a timing line into start, end and the settings suffix.
func parseTiming(line string) (start, end time.Duration, settings string, err error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, "", fmt.Errorf("%w: expected one %q", ErrInvalidTiming, "-->")
	}

	right := strings.TrimLeft(parts[1], " \t")
	endToken := right
	if i := strings.IndexAny(right, " \t"); i >= 0 {
		endToken, settings = right[:i], right[i:]
	}
	if strings.TrimSpace(parts[0]) == "" || endToken == "" {
		return 0, 0, "", fmt.Errorf("%w: missing timestamp", ErrInvalidTiming)
	}

	if start, err = ParseTimestamp(parts[0]); err != nil {
		return 0, 0, "", fmt.Errorf("start: %w", err)
	}
	if end, err = ParseTimestamp(endToken); err != nil {
		return 0, 0, "", fmt.Errorf("end: %w", err)
	}
	if end < start {
		return 0, 0, "", fmt.Errorf("%w: %s > %s", ErrNegativeSpan, FormatTimestamp(start), FormatTimestamp(end))
	}
	return start, end, strings.TrimRight(settings, " \t"), nil
}
