package models

import "time"

// AcceptedEvent is one validated clickstream row handed over by the ingestor.
// ID preserves ingestion order and is the stable tie-break when two events of
// the same device share a timestamp.
type AcceptedEvent struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	DeviceID  string    `gorm:"column:device_id;not null"`
	EventTime time.Time `gorm:"column:event_time;not null"`
	EventName string    `gorm:"column:event_name;not null"`
	EventData string    `gorm:"column:event_data;type:jsonb"`
	PageURL   string    `gorm:"column:page_url;not null"`
	Referrer  *string   `gorm:"column:referrer"`
	UserAgent string    `gorm:"column:user_agent;not null"`
}

func (AcceptedEvent) TableName() string { return "accepted_events" }
