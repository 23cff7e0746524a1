// Package hijri converts Gregorian dates to the tabular (arithmetic) Islamic
// calendar through the Julian Day Number.
//
// The conversion is pure integer arithmetic over 30-year cycles of 10631 days.
// It performs no validity checks: out-of-range inputs such as day 32 yield a
// well-defined but meaningless date instead of an error.
package hijri

import "fmt"

// epochJDN is the Julian Day Number of 1 Muharram 1 AH in the civil
// (Friday epoch) tabular calendar.
const epochJDN = 1948440

var monthNames = [12]string{
	"Muharram",
	"Safar",
	"Rabiʿ I",
	"Rabiʿ II",
	"Jumada I",
	"Jumada II",
	"Rajab",
	"Shaʿban",
	"Ramadan",
	"Shawwal",
	"Dhu al-Qiʿdah",
	"Dhu al-Hijjah",
}

// Gregorian is a proleptic Gregorian calendar date. Month is 1-based.
type Gregorian struct {
	Year  int
	Month int
	Day   int
}

// Date is a tabular Hijri date. Month is 1-based.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// FromGregorian converts a Gregorian year/month/day to a tabular Hijri date.
// It is total: every input produces a result.
func FromGregorian(year, month, day int) Date {
	return FromJulianDay(JulianDay(year, month, day))
}

// Convert is FromGregorian for a Gregorian value.
func (g Gregorian) Convert() Date {
	return FromGregorian(g.Year, g.Month, g.Day)
}

// JulianDay returns the Julian Day Number of a proleptic Gregorian date.
func JulianDay(year, month, day int) int {
	a := floorDiv(14-month, 12)
	y := year + 4800 - a
	m := month + 12*a - 3

	return day + floorDiv(153*m+2, 5) + 365*y + floorDiv(y, 4) - floorDiv(y, 100) + floorDiv(y, 400) - 32045
}

// FromJulianDay converts a Julian Day Number to the tabular Hijri calendar.
//
// Every division floors. For all dates on or after the Hijri epoch the
// intermediates are non-negative, so flooring and truncation agree there.
func FromJulianDay(jdn int) Date {
	l := jdn - epochJDN + 10632
	n := floorDiv(l-1, 10631)
	l = l - 10631*n + 354

	j := floorDiv(10985-l, 5316)*floorDiv(50*l, 17719) + floorDiv(l, 5670)*floorDiv(43*l, 15238)
	l = l - floorDiv(30-j, 15)*floorDiv(17719*j, 50) - floorDiv(j, 16)*floorDiv(15238*j, 43) + 29

	month := floorDiv(24*l, 709)
	day := l - floorDiv(709*month, 24)
	year := 30*n + j - 30

	return Date{Year: year, Month: month, Day: day}
}

// Adjust shifts the day by a manual moon-sighting correction.
//
// The result is NOT normalized: day 27 adjusted by +5 is day 32 of the same
// month, and day 1 adjusted by -2 is day -1.
func (d Date) Adjust(days int) Date {
	d.Day += days
	return d
}

// MonthName returns the transliterated name of the date's month.
func (d Date) MonthName() string {
	return MonthName(d.Month)
}

// String formats the date as "19 Jumada II 1445".
func (d Date) String() string {
	return fmt.Sprintf("%d %s %d", d.Day, d.MonthName(), d.Year)
}

// MonthName returns the name of the 1-based Hijri month m, or "Month(m)" when
// m is outside 1..12.
func MonthName(m int) string {
	if m < 1 || m > len(monthNames) {
		return fmt.Sprintf("Month(%d)", m)
	}
	return monthNames[m-1]
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
