package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency stores one conversion rate relative to the configured base
// currency (the base row itself carries rate 1). Rows are only ever upserted
// by the rate refresh, never deleted mid-life.
type Currency struct {
	Code          string          `gorm:"column:code;type:char(3);primaryKey"`
	Rate          decimal.Decimal `gorm:"column:rate;type:numeric(16,8);not null"`
	LastUpdatedAt time.Time       `gorm:"column:last_updated_at;not null"`
}
