// Package calendar builds the dual Gregorian/Hijri month grid.
//
// View is an immutable cursor over months; Build is a pure function of the
// view and the account's Hijri adjustment.
package calendar

import (
	"time"

	"github.com/dmitrijs2005/dualcal/internal/hijri"
)

// View names a displayed Gregorian month. Month is 1-based.
type View struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Today returns the view containing now.
func Today(now time.Time) View {
	return View{Year: now.Year(), Month: int(now.Month())}
}

func (v View) Next() View {
	if v.Month >= 12 {
		return View{Year: v.Year + 1, Month: 1}
	}
	return View{Year: v.Year, Month: v.Month + 1}
}

func (v View) Prev() View {
	if v.Month <= 1 {
		return View{Year: v.Year - 1, Month: 12}
	}
	return View{Year: v.Year, Month: v.Month - 1}
}

// First returns midnight UTC of the first day of the month.
func (v View) First() time.Time {
	return time.Date(v.Year, time.Month(v.Month), 1, 0, 0, 0, 0, time.UTC)
}

// Days returns the number of days in the month.
func (v View) Days() int {
	return time.Date(v.Year, time.Month(v.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (v View) String() string {
	return v.First().Format("January 2006")
}

// Cell is one Gregorian day with its adjusted Hijri counterpart.
type Cell struct {
	Day     int          `json:"day"`
	Weekday time.Weekday `json:"weekday"`
	Hijri   hijri.Date   `json:"hijri"`
}

// Month is a laid out month. Leading is the number of blank cells before
// day 1 in a Sunday-first week.
type Month struct {
	View    View   `json:"view"`
	Leading int    `json:"leading"`
	Cells   []Cell `json:"cells"`
}

// Build lays out v. The adjustment is added to every Hijri day without
// normalization.
func Build(v View, adjustment int) Month {
	first := v.First()
	n := v.Days()

	m := Month{
		View:    v,
		Leading: int(first.Weekday()),
		Cells:   make([]Cell, 0, n),
	}
	for d := 1; d <= n; d++ {
		m.Cells = append(m.Cells, Cell{
			Day:     d,
			Weekday: time.Weekday((m.Leading + d - 1) % 7),
			Hijri:   hijri.FromGregorian(v.Year, v.Month, d).Adjust(adjustment),
		})
	}
	return m
}

// HijriSpan names the Hijri months the grid covers, e.g. "Jumada II – Rajab 1445".
func (m Month) HijriSpan() string {
	if len(m.Cells) == 0 {
		return ""
	}
	a, b := m.Cells[0].Hijri, m.Cells[len(m.Cells)-1].Hijri
	switch {
	case a.Year == b.Year && a.Month == b.Month:
		return hijri.MonthName(a.Month) + " " + itoa(a.Year)
	case a.Year == b.Year:
		return hijri.MonthName(a.Month) + " – " + hijri.MonthName(b.Month) + " " + itoa(b.Year)
	}
	return hijri.MonthName(a.Month) + " " + itoa(a.Year) + " – " + hijri.MonthName(b.Month) + " " + itoa(b.Year)
}
