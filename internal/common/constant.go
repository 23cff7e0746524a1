package common

// AccessTokenHeaderName is the gRPC metadata key carrying the identity token.
const AccessTokenHeaderName = "access_token"

// Collection names in the document record store.
const (
	CollectionUsers         = "users"
	CollectionEvents        = "events"
	CollectionHolidays      = "holidays"
	CollectionAnnouncements = "announcements"
)
