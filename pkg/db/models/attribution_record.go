package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tidemarkdata/clickstream-engine/pkg/enums"
)

// AttributionRecord assigns first-click and last-click credit for one
// purchase. Rows exist only for purchases with at least one qualifying
// session inside the lookback window.
type AttributionRecord struct {
	TransactionRef string          `gorm:"column:transaction_ref;primaryKey"`
	PersonID       string          `gorm:"column:person_id;not null"`
	Revenue        decimal.Decimal `gorm:"column:revenue;type:numeric;not null"`
	PurchaseTime   time.Time       `gorm:"column:purchase_time;not null"`
	LcSessionID    string          `gorm:"column:lc_session_id;not null"`
	LcChannel      enums.Channel   `gorm:"column:lc_channel;not null"`
	LcSource       string          `gorm:"column:lc_source;not null"`
	LcMedium       string          `gorm:"column:lc_medium;not null"`
	FcSessionID    string          `gorm:"column:fc_session_id;not null"`
	FcChannel      enums.Channel   `gorm:"column:fc_channel;not null"`
	FcSource       string          `gorm:"column:fc_source;not null"`
	FcMedium       string          `gorm:"column:fc_medium;not null"`
}

func (AttributionRecord) TableName() string { return "attribution" }
