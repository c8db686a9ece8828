package main

import "time"

// Ticket is one ServiceDesk ticket as persisted locally. Summary fields come
// from the list table; detail fields are populated only for tickets that have
// gone through detail extraction. An empty string means "never extracted",
// which is why merges must not write empty values over existing ones.
type Ticket struct {
	Number    string // portal ticket number, stable across rescrapes
	Priority  string
	Status    string // portal status text, e.g. "Nova"
	Requester string
	Location  string
	Service   string
	OpenedAt  string // portal-supplied "DD/MM/YYYY HH:MM" string

	ServiceType     string
	InstallLocation string
	Description     string
	AssetTag        string
	Room            string
	Extension       string
	CellPhone       string
	Email           string
	ScheduleText    string // "Melhor data" / "Data e Horário" free text
	OpenedDetail    string // opening timestamp from the detail page header

	ViewedBy  []string // viewer names, grows monotonically (owned by the dashboard)
	HiddenFor []string // per-viewer soft hide (owned by the dashboard)
	ScrapedAt time.Time
}

// Detail field keys returned by ScrapeDetail. Absent fields are simply not
// present in the map.
const (
	detailServiceType     = "service_type"
	detailInstallLocation = "install_location"
	detailDescription     = "description"
	detailAssetTag        = "asset_tag"
	detailRoom            = "room"
	detailExtension       = "extension"
	detailCellPhone       = "cell_phone"
	detailEmail           = "email"
	detailScheduleText    = "schedule_text"
	detailOpenedDetail    = "opened_detail"
)

// MergeDetails copies extracted detail fields into the ticket. Keys absent
// from the map leave the corresponding field untouched.
func (t *Ticket) MergeDetails(details map[string]string) {
	set := func(dst *string, key string) {
		if v, ok := details[key]; ok && v != "" {
			*dst = v
		}
	}
	set(&t.ServiceType, detailServiceType)
	set(&t.InstallLocation, detailInstallLocation)
	set(&t.Description, detailDescription)
	set(&t.AssetTag, detailAssetTag)
	set(&t.Room, detailRoom)
	set(&t.Extension, detailExtension)
	set(&t.CellPhone, detailCellPhone)
	set(&t.Email, detailEmail)
	set(&t.ScheduleText, detailScheduleText)
	set(&t.OpenedDetail, detailOpenedDetail)
}

// Notification queue item statuses. Terminal states are "sent" and "error";
// error items are left for an operator, never retried automatically.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusError   = "error"
)

type QueueItem struct {
	ID           string
	Recipient    string // phone number
	Message      string
	Status       string
	Type         string // e.g. "serviceDesk_new_ticket", "weather_alert"
	TicketNumber string
	Error        string
	CreatedAt    time.Time
}

// Reminder kinds.
const (
	ReminderGeneral     = "general"
	ReminderServiceDesk = "servicedesk"
)

type Reminder struct {
	ID          string
	Phone       string // empty = web-notification only
	Title       string
	Description string
	SendAt      time.Time // authoritative "send after" time
	DisplayTime string    // UI string, not used for scheduling
	Sent        bool
	SentAt      time.Time
	Kind        string

	// Metadata for ticket-linked reminders.
	Requester    string
	Location     string
	Room         string
	ScheduleText string
	TicketNumber string
	AutoCreated  bool
}

// User is a dashboard account, read-only to the worker. Recipients are users
// with ServiceDesk WhatsApp notifications enabled and a phone on file.
type User struct {
	ID               string
	Name             string
	Phone            string
	ServiceDeskAlert bool
}

// ThresholdConfig is one metric's alert configuration.
type ThresholdConfig struct {
	Enabled    bool      `json:"enabled"`
	Thresholds []float64 `json:"thresholds"`
	Custom     *float64  `json:"custom,omitempty"`
}

// Weather alert types, matching the dashboard's preference keys.
const (
	AlertTemperature = "temperatura"
	AlertWind        = "ventos"
	AlertRain        = "chuva"
	AlertHumidity    = "umidade"
)

type WeatherPrefs struct {
	UserID        string
	Phone         string
	Temperature   ThresholdConfig
	Wind          ThresholdConfig
	Rain          ThresholdConfig
	Humidity      ThresholdConfig
	LastAlertSent map[string]time.Time // alert type -> last successful send
}

// WeatherReading is the current-conditions slice the evaluator consumes.
type WeatherReading struct {
	Temperature     float64 // °C
	WindSpeed       float64 // km/h
	RainProbability float64 // %, max over the next hours
	Humidity        float64 // %
}

type TriggeredAlert struct {
	Type      string
	Value     float64
	Threshold float64
	Message   string
}

// SyncResult tracks separate counters for one reconciliation cycle.
type SyncResult struct {
	Scraped   int
	Created   int
	Deleted   int
	Ignored   int
	Unchanged int
	Errors    []string
}
