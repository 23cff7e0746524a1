package proto

// Wire payloads. Field names match the stored document fields.

type Empty struct{}

type Success struct {
	Success bool `json:"success"`
}

type SignInRequest struct {
	DisplayName string `json:"displayName,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
}

type SignInResponse struct {
	Account Account `json:"account"`
	Token   string  `json:"token"`
}

type Account struct {
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
	Dashboards        []string          `json:"dashboards,omitempty"`
}

type UpdateSettingsRequest struct {
	Timezone        string   `json:"timezone"`
	HijriAdjustment int      `json:"hijriAdjustment"`
	UseGeo          bool     `json:"useGeo"`
	Lat             *float64 `json:"lat,omitempty"`
	Lon             *float64 `json:"lon,omitempty"`
}

type SetRoleRequest struct {
	UID  string `json:"uid"`
	Role string `json:"role"`
}

type SetUserAdjustmentRequest struct {
	UID             string `json:"uid"`
	HijriAdjustment int    `json:"hijriAdjustment"`
}

type AssignManagerRequest struct {
	UID     string `json:"uid"`
	AdminID string `json:"adminId"`
}

type EventRequest struct {
	UID   string `json:"uid,omitempty"`
	Title string `json:"title"`
	Date  string `json:"date"`
}

type Event struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Date      string  `json:"date"`
	OwnerID   string  `json:"ownerId"`
	CreatedBy string  `json:"createdBy"`
	AdminID   *string `json:"adminId,omitempty"`
	CreatedAt string  `json:"createdAt"`
}

type Holiday struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Date      string `json:"date"`
	CreatedBy string `json:"createdBy"`
	CreatedAt string `json:"createdAt"`
}

type HolidayList struct {
	Holidays []Holiday `json:"holidays"`
}

type AnnouncementRequest struct {
	UID     string `json:"uid,omitempty"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

type Announcement struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Message   string  `json:"message"`
	Scope     string  `json:"scope"`
	AdminID   *string `json:"adminId,omitempty"`
	OwnerID   *string `json:"ownerId,omitempty"`
	CreatedBy string  `json:"createdBy"`
	CreatedAt string  `json:"createdAt"`
}

type CustomPrayerTimesRequest struct {
	UID   string            `json:"uid"`
	Times map[string]string `json:"times"`
}

type NextPrayer struct {
	Name      string `json:"name"`
	At        string `json:"at"`
	InSeconds int64  `json:"inSeconds"`
}

type ExportMonthRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type Export struct {
	Key       string `json:"key"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt"`
}

// Stream snapshots.

type EventsSnapshot struct {
	Events []Event `json:"events"`
}

type UsersSnapshot struct {
	Users []Account `json:"users"`
}

type AnnouncementsSnapshot struct {
	Announcements []Announcement `json:"announcements"`
}
