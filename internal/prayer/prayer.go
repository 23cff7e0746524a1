// Package prayer fetches daily prayer timings and picks the next prayer.
package prayer

import (
	"errors"
	"regexp"
	"strconv"
	"time"
)

// Names lists the five daily prayers in order.
var Names = []string{"Fajr", "Dhuhr", "Asr", "Maghrib", "Isha"}

// ErrNoTimings is returned when no prayer has a usable time.
var ErrNoTimings = errors.New("no usable prayer timings")

// Timings maps a prayer name to a wall-clock time such as "05:12" or
// "05:12 (EET)".
type Timings map[string]string

// Next is the upcoming prayer.
type Next struct {
	Name string        `json:"name"`
	At   time.Time     `json:"at"`
	In   time.Duration `json:"in"`
}

var clockRe = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
var strictClockRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ParseClock extracts hours and minutes from the first "H:MM" in s.
func ParseClock(s string) (hour, minute int, ok bool) {
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	return hour, minute, true
}

// ValidClock reports whether s is a strict "HH:MM" 24-hour time.
func ValidClock(s string) bool {
	return strictClockRe.MatchString(s)
}

// IsName reports whether name is one of the five prayers.
func IsName(name string) bool {
	for _, n := range Names {
		if n == name {
			return true
		}
	}
	return false
}

func effective(name string, t Timings, custom map[string]string) (string, bool) {
	if v, ok := custom[name]; ok && v != "" {
		return v, true
	}
	v, ok := t[name]
	return v, ok && v != ""
}

// NextPrayer returns the first prayer today, in now's location, that is
// strictly after now. Custom times override fetched ones. When every prayer
// has passed the answer is tomorrow's Fajr.
func NextPrayer(now time.Time, t Timings, custom map[string]string) (Next, error) {
	y, mo, d := now.Date()
	at := func(s string, dayOffset int) (time.Time, bool) {
		h, m, ok := ParseClock(s)
		if !ok {
			return time.Time{}, false
		}
		return time.Date(y, mo, d+dayOffset, h, m, 0, 0, now.Location()), true
	}

	for _, name := range Names {
		v, ok := effective(name, t, custom)
		if !ok {
			continue
		}
		when, ok := at(v, 0)
		if ok && when.After(now) {
			return Next{Name: name, At: when, In: when.Sub(now)}, nil
		}
	}

	v, ok := effective("Fajr", t, custom)
	if !ok {
		return Next{}, ErrNoTimings
	}
	when, ok := at(v, 1)
	if !ok {
		return Next{}, ErrNoTimings
	}
	return Next{Name: "Fajr", At: when, In: when.Sub(now)}, nil
}
