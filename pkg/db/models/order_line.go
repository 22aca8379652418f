package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderLine is one expanded line item from a deduplicated purchase.
// DeclaredOrderRevenue repeats the parent purchase's top-level revenue; it is
// authoritative even when the summed line totals disagree.
type OrderLine struct {
	ID                   uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	TransactionRef       string          `gorm:"column:transaction_ref;not null"`
	PurchaseTime         time.Time       `gorm:"column:purchase_time;not null"`
	DeviceID             string          `gorm:"column:device_id;not null"`
	DeclaredOrderRevenue decimal.Decimal `gorm:"column:declared_order_revenue;type:numeric;not null"`
	ItemID               string          `gorm:"column:item_id;not null"`
	ItemName             string          `gorm:"column:item_name;not null"`
	UnitPrice            decimal.Decimal `gorm:"column:unit_price;type:numeric;not null"`
	Quantity             int             `gorm:"column:quantity;not null"`
	LineTotal            decimal.Decimal `gorm:"column:line_total;type:numeric;not null"`
}

func (OrderLine) TableName() string { return "order_lines" }
