package models

import "github.com/dmitrijs2005/dualcal/internal/server/store"

// Announcement scopes.
const (
	ScopeGlobal = "global"
	ScopeAdmin  = "admin"
	ScopeUser   = "user"
)

// Announcement is announcements/{id}.
//
// A global announcement is visible to everyone, an admin-scoped one to the
// accounts managed by AdminID, a user-scoped one to OwnerID only.
type Announcement struct {
	ID        string  `json:"-"`
	Title     string  `json:"title"`
	Message   string  `json:"message"`
	Scope     string  `json:"scope"`
	AdminID   *string `json:"adminId,omitempty"`
	OwnerID   *string `json:"ownerId,omitempty"`
	CreatedBy string  `json:"createdBy"`
	CreatedAt string  `json:"createdAt"`
}

func (a Announcement) Fields() (map[string]any, error) {
	return store.Encode(a)
}

func AnnouncementFromRecord(r store.Record) (Announcement, error) {
	var a Announcement
	if err := store.Decode(r, &a); err != nil {
		return Announcement{}, err
	}
	a.ID = r.ID
	return a, nil
}

// VisibleTo applies the visibility rule for a reader whose account is
// managed by readerAdminID (empty when unmanaged).
func (a Announcement) VisibleTo(uid, readerAdminID string, master bool) bool {
	if master {
		return true
	}
	switch a.Scope {
	case ScopeGlobal:
		return true
	case ScopeAdmin:
		return a.AdminID != nil && readerAdminID != "" && *a.AdminID == readerAdminID
	case ScopeUser:
		return a.OwnerID != nil && *a.OwnerID == uid
	}
	return false
}
