package duration

import (
	"fmt"
	"regexp"
	"strconv"
)

// The wire format for all timer durations is "PT{minutes}M{seconds}S".
// Both ends of every sync offer and timer update depend on it, so it must
// stay stable.

var (
	fullForm    = regexp.MustCompile(`^PT(\d+)M(\d+)S$`)
	minutesForm = regexp.MustCompile(`^PT(\d+)M$`)
)

// Encode renders a non-negative number of seconds in PT{m}M{s}S form.
// Zero minutes and seconds are still rendered, e.g. "PT0M45S".
func Encode(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("PT%dM%dS", seconds/60, seconds%60)
}

// Decode parses PT{m}M{s}S or the minutes-only PT{m}M form into seconds.
// Anything else is interpreted as a plain integer, and failing that, 0.
// Malformed wire input must never be fatal, only degrade to zero.
func Decode(text string) int {
	if m := fullForm.FindStringSubmatch(text); m != nil {
		mins, _ := strconv.Atoi(m[1])
		secs, _ := strconv.Atoi(m[2])
		return mins*60 + secs
	}
	if m := minutesForm.FindStringSubmatch(text); m != nil {
		mins, _ := strconv.Atoi(m[1])
		return mins * 60
	}
	if n, err := strconv.Atoi(text); err == nil {
		return n
	}
	return 0
}
