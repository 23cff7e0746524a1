// Package models holds the CLI's cached view of server data.
package models

// Kind distinguishes cached events from holidays.
type Kind string

const (
	KindEvent   Kind = "event"
	KindHoliday Kind = "holiday"
)

// Item is one dated entry shown on the month grid.
type Item struct {
	ID    string
	Kind  Kind
	Title string
	Date  string // YYYY-MM-DD
}

// Day returns the day of month of Date, or 0 when Date is malformed.
func (i Item) Day() int {
	if len(i.Date) != 10 {
		return 0
	}
	d := int(i.Date[8]-'0')*10 + int(i.Date[9]-'0')
	if d < 1 || d > 31 {
		return 0
	}
	return d
}
