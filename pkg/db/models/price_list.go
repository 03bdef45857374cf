package models

import (
	"time"

	"github.com/google/uuid"
)

// PriceList is a named pricing context. A NULL customer group marks the
// default list; among group-scoped lists, the highest priority wins.
type PriceList struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string     `gorm:"column:name;not null"`
	CurrencyCode    string     `gorm:"column:currency_code;type:char(3);not null"`
	CustomerGroupID *uuid.UUID `gorm:"column:customer_group_id;type:uuid;index"`
	Priority        int        `gorm:"column:priority;not null;default:0"`
	IsActive        bool       `gorm:"column:is_active;not null"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
