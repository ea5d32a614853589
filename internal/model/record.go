package model

import "time"

// Record status values.
const (
	StatusOpen       = "Open"
	StatusInProgress = "In-Progress"
	StatusResolved   = "Resolved"
)

// Shift labels.
const (
	ShiftMorning   = "Morning"
	ShiftAfternoon = "Afternoon"
	ShiftNight     = "Night"
)

// DowntimeRecord represents one logged unplanned production interruption.
// Temporal and impact fields are derived by the computation pipeline and
// are never taken from user input.
type DowntimeRecord struct {
	ID int64 `gorm:"primaryKey" json:"id"`

	// User-entered temporal fields.
	Date      string `gorm:"size:10;not null;index" json:"date"`       // YYYY-MM-DD
	StartTime string `gorm:"size:8;not null" json:"start_time"`        // HH:MM:SS
	EndTime   string `gorm:"size:8;not null" json:"end_time"`          // HH:MM:SS

	// Derived temporal fields.
	DurationHours float64 `gorm:"not null" json:"duration_hours"`
	WeekLabel     string  `gorm:"size:8;not null;index" json:"week_label"` // e.g. 2026-S05
	MonthLabel    string  `gorm:"size:8;not null;index" json:"month_label"`
	Year          int     `gorm:"not null" json:"year"`

	// Dimensional fields.
	Site       string `gorm:"size:64;not null;index" json:"site"`
	Building   string `gorm:"size:64" json:"building"`
	Client     string `gorm:"size:64;not null;index" json:"client"`
	Service    string `gorm:"size:64;not null;index" json:"service"`
	SubFamily  string `gorm:"size:64" json:"sub_family"`
	Process    string `gorm:"size:64" json:"process"`
	Station    string `gorm:"size:128" json:"station"`
	ShiftCount int    `gorm:"not null" json:"shift_count"`
	ShiftLabel string `gorm:"size:16" json:"shift_label"`

	// Descriptive fields.
	Description string `gorm:"size:1024" json:"description"`
	Reference   string `gorm:"size:128" json:"reference"`
	Requester   string `gorm:"size:128" json:"requester"`
	Handler     string `gorm:"size:128" json:"handler"`
	Status      string `gorm:"size:16;not null;index" json:"status"`

	// Derived impact field.
	ImpactPct float64 `gorm:"not null" json:"impact_pct"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
