package calendar

import (
	"bufio"
	"io"
	"strings"
	"time"
	"unicode/utf8"
)

// ICSEvent is one all-day VEVENT.
type ICSEvent struct {
	UID         string
	Date        time.Time
	Summary     string
	Description string
}

const icsLineLimit = 75

var icsEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\r\n", `\n`, "\n", `\n`)

// WriteICS writes an RFC 5545 calendar with one all-day VEVENT per event.
// Lines end in CRLF and are folded at 75 octets.
func WriteICS(w io.Writer, name string, stamp time.Time, events []ICSEvent) error {
	bw := bufio.NewWriter(w)
	line := func(s string) {
		writeFolded(bw, s)
	}

	line("BEGIN:VCALENDAR")
	line("VERSION:2.0")
	line("PRODID:-//dualcal//dualcal//EN")
	line("CALSCALE:GREGORIAN")
	if name != "" {
		line("X-WR-CALNAME:" + icsEscaper.Replace(name))
	}
	ts := stamp.UTC().Format("20060102T150405Z")
	for _, e := range events {
		line("BEGIN:VEVENT")
		line("UID:" + e.UID)
		line("DTSTAMP:" + ts)
		line("DTSTART;VALUE=DATE:" + e.Date.Format("20060102"))
		line("DTEND;VALUE=DATE:" + e.Date.AddDate(0, 0, 1).Format("20060102"))
		line("SUMMARY:" + icsEscaper.Replace(e.Summary))
		if e.Description != "" {
			line("DESCRIPTION:" + icsEscaper.Replace(e.Description))
		}
		line("TRANSP:TRANSPARENT")
		line("END:VEVENT")
	}
	line("END:VCALENDAR")
	return bw.Flush()
}

// writeFolded splits s into chunks of at most 75 octets without breaking a
// UTF-8 sequence; continuation lines start with a space.
func writeFolded(w *bufio.Writer, s string) {
	limit := icsLineLimit
	for len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		w.WriteString(s[:cut])
		w.WriteString("\r\n ")
		s = s[cut:]
		limit = icsLineLimit - 1
	}
	w.WriteString(s)
	w.WriteString("\r\n")
}

// MonthICS returns the day labels of m as events: one per Gregorian day,
// summarised with its adjusted Hijri date.
func MonthICS(m Month) []ICSEvent {
	out := make([]ICSEvent, 0, len(m.Cells))
	for _, c := range m.Cells {
		d := time.Date(m.View.Year, time.Month(m.View.Month), c.Day, 0, 0, 0, 0, time.UTC)
		out = append(out, ICSEvent{
			UID:     "hijri-" + d.Format("20060102") + "@dualcal",
			Date:    d,
			Summary: c.Hijri.String(),
		})
	}
	return out
}
