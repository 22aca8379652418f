package models

import (
	"time"

	"github.com/tidemarkdata/clickstream-engine/pkg/enums"
)

// Session is one maximal run of a device's events with no 30-minute gap.
// Channel attributes and device classification are first-touch sticky.
type Session struct {
	SessionID       string        `gorm:"column:session_id;primaryKey"`
	PersonID        string        `gorm:"column:person_id;not null"`
	DeviceID        string        `gorm:"column:device_id;not null"`
	StartedAt       time.Time     `gorm:"column:started_at;not null"`
	EndedAt         time.Time     `gorm:"column:ended_at;not null"`
	DurationMinutes float64       `gorm:"column:duration_minutes;not null"`
	Channel         enums.Channel `gorm:"column:channel;not null"`
	Source          string        `gorm:"column:source;not null"`
	Medium          string        `gorm:"column:medium;not null"`
	Campaign        string        `gorm:"column:campaign"`
	Platform        string        `gorm:"column:platform;not null"`
	OS              string        `gorm:"column:os;not null"`
	Browser         string        `gorm:"column:browser;not null"`
	Actions         int           `gorm:"column:actions;not null"`
	PageViews       int           `gorm:"column:page_views;not null"`
	CartAdds        int           `gorm:"column:cart_adds;not null"`
	DidCheckout     bool          `gorm:"column:did_checkout;not null"`
	CapturedEmail   bool          `gorm:"column:captured_email;not null"`
	Converted       bool          `gorm:"column:converted;not null"`
}

func (Session) TableName() string { return "sessions" }
