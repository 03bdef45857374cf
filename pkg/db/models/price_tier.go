package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceTier unlocks a per-unit price once the purchased quantity reaches
// MinQuantity. Among qualifying tiers the largest MinQuantity applies.
type PriceTier struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductPriceID uuid.UUID       `gorm:"column:product_price_id;type:uuid;not null;index"`
	MinQuantity    int             `gorm:"column:min_quantity;not null"`
	UnitPrice      decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Label          *string         `gorm:"column:label"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}
