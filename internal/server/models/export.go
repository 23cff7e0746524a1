package models

import "time"

// Export is an uploaded month export and the presigned URL to fetch it.
type Export struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
