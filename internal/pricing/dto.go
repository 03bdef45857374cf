package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Options carries the customer context for a price resolution. Group ids are
// in caller preference order, most specific first. An empty Currency means
// the winning list's native currency.
type Options struct {
	CustomerGroupIDs []uuid.UUID
	Currency         string
	VariantID        *uuid.UUID
}

// AppliedTier echoes the quantity tier that produced the resolved price.
type AppliedTier struct {
	MinQuantity int             `json:"minQuantity"`
	Price       decimal.Decimal `json:"price"`
}

// ResolvedPrice is the outcome of a price resolution. Price is the effective
// per-unit amount after sale and tier handling; OriginalPrice is the base
// price under the same currency conversion.
type ResolvedPrice struct {
	Price              decimal.Decimal `json:"price"`
	OriginalPrice      decimal.Decimal `json:"originalPrice"`
	Currency           string          `json:"currency"`
	OnSale             bool            `json:"onSale"`
	PriceListID        uuid.UUID       `json:"priceListId"`
	CustomerGroupID    *uuid.UUID      `json:"customerGroupId,omitempty"`
	AppliedTier        *AppliedTier    `json:"appliedTier,omitempty"`
	DiscountPercentage *int            `json:"discountPercentage,omitempty"`
}
