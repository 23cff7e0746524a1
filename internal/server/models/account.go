// Package models defines the documents the server keeps in the record store.
// Field names in the json tags are the stored field names.
package models

import (
	"github.com/dmitrijs2005/dualcal/internal/roles"
	"github.com/dmitrijs2005/dualcal/internal/server/store"
)

// UserAccount is users/{uid}.
type UserAccount struct {
	UID               string            `json:"uid"`
	Email             string            `json:"email"`
	DisplayName       string            `json:"displayName"`
	Role              string            `json:"role"`
	AdminID           *string           `json:"adminId"`
	Timezone          string            `json:"timezone"`
	HijriAdjustment   int               `json:"hijriAdjustment"`
	UseGeo            bool              `json:"useGeo"`
	Lat               *float64          `json:"lat"`
	Lon               *float64          `json:"lon"`
	CustomPrayerTimes map[string]string `json:"customPrayerTimes,omitempty"`
	CreatedAt         string            `json:"createdAt"`
}

// ParsedRole returns the account role. A stored value outside the role set
// is reported as an error rather than guessed.
func (a UserAccount) ParsedRole() (roles.Role, error) {
	return roles.Parse(a.Role)
}

// ManagedBy reports whether adminID manages this account.
func (a UserAccount) ManagedBy(adminID string) bool {
	return a.AdminID != nil && *a.AdminID == adminID
}

func (a UserAccount) Fields() (map[string]any, error) {
	return store.Encode(a)
}

// AccountFromRecord decodes a users record.
func AccountFromRecord(r store.Record) (UserAccount, error) {
	var a UserAccount
	if err := store.Decode(r, &a); err != nil {
		return UserAccount{}, err
	}
	if a.UID == "" {
		a.UID = r.ID
	}
	return a, nil
}
