package models

import "github.com/dmitrijs2005/dualcal/internal/server/store"

// Event is events/{id}: a personal calendar entry. AdminID is set when an
// admin added the event on the owner's behalf.
type Event struct {
	ID        string  `json:"-"`
	Title     string  `json:"title"`
	Date      string  `json:"date"`
	OwnerID   string  `json:"ownerId"`
	CreatedBy string  `json:"createdBy"`
	AdminID   *string `json:"adminId,omitempty"`
	CreatedAt string  `json:"createdAt"`
}

func (e Event) Fields() (map[string]any, error) {
	return store.Encode(e)
}

func EventFromRecord(r store.Record) (Event, error) {
	var e Event
	if err := store.Decode(r, &e); err != nil {
		return Event{}, err
	}
	e.ID = r.ID
	return e, nil
}

// Holiday is holidays/{id}, visible to every account.
type Holiday struct {
	ID        string `json:"-"`
	Title     string `json:"title"`
	Date      string `json:"date"`
	CreatedBy string `json:"createdBy"`
	CreatedAt string `json:"createdAt"`
}

func (h Holiday) Fields() (map[string]any, error) {
	return store.Encode(h)
}

func HolidayFromRecord(r store.Record) (Holiday, error) {
	var h Holiday
	if err := store.Decode(r, &h); err != nil {
		return Holiday{}, err
	}
	h.ID = r.ID
	return h, nil
}
