package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductPrice is one product's (optionally one variant's) price within a
// price list. Amounts are in the owning list's currency.
type ProductPrice struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID    uuid.UUID        `gorm:"column:product_id;type:uuid;not null;index"`
	VariantID    *uuid.UUID       `gorm:"column:variant_id;type:uuid"`
	PriceListID  uuid.UUID        `gorm:"column:price_list_id;type:uuid;not null;index"`
	BasePrice    decimal.Decimal  `gorm:"column:base_price;type:numeric(12,2);not null"`
	SalePrice    *decimal.Decimal `gorm:"column:sale_price;type:numeric(12,2)"`
	SaleStartsAt *time.Time       `gorm:"column:sale_starts_at"`
	SaleEndsAt   *time.Time       `gorm:"column:sale_ends_at"`
	IsActive     bool             `gorm:"column:is_active;not null"`
	Tiers        []PriceTier      `gorm:"foreignKey:ProductPriceID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// SaleActiveAt reports whether the sale window covers the given instant.
// Both bounds are inclusive and optional.
func (p ProductPrice) SaleActiveAt(now time.Time) bool {
	if p.SalePrice == nil {
		return false
	}
	if p.SaleStartsAt != nil && now.Before(*p.SaleStartsAt) {
		return false
	}
	if p.SaleEndsAt != nil && now.After(*p.SaleEndsAt) {
		return false
	}
	return true
}
