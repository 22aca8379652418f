package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tidemarkdata/clickstream-engine/pkg/enums"
)

// EngineRun is the audit row appended after every batch computation. The
// monitoring layer reads its counters instead of rescanning raw input.
type EngineRun struct {
	ID                    uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	StartedAt             time.Time       `gorm:"column:started_at;not null"`
	FinishedAt            time.Time       `gorm:"column:finished_at;not null"`
	Status                enums.RunStatus `gorm:"column:status;not null"`
	EventsIn              int64           `gorm:"column:events_in;not null"`
	TotalSessions         int64           `gorm:"column:total_sessions;not null"`
	TotalPurchases        int64           `gorm:"column:total_purchases;not null"`
	AttributedRevenue     decimal.Decimal `gorm:"column:attributed_revenue;type:numeric;not null"`
	RawPurchaseRevenue    decimal.Decimal `gorm:"column:raw_purchase_revenue;type:numeric;not null"`
	UnattributedPurchases int64           `gorm:"column:unattributed_purchases;not null"`
	RevenueMismatchOrders int64           `gorm:"column:revenue_mismatch_orders;not null"`
}

func (EngineRun) TableName() string { return "engine_runs" }
