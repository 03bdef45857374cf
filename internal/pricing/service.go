package pricing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/harborline/pricing-service/internal/rates"
	"github.com/harborline/pricing-service/pkg/db/models"
	pkgerrors "github.com/harborline/pricing-service/pkg/errors"
	"github.com/harborline/pricing-service/pkg/logger"
)

type pricingRepository interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	CandidateLists(ctx context.Context, groupIDs []uuid.UUID) ([]models.PriceList, error)
	PricesForProducts(ctx context.Context, productIDs []uuid.UUID) ([]models.ProductPrice, error)
}

type currencyConverter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// Service resolves the effective price for products given a quantity and an
// optional customer context.
type Service interface {
	CalculatePrice(ctx context.Context, productID uuid.UUID, quantity int, opts Options) (*ResolvedPrice, error)
	CalculatePrices(ctx context.Context, productIDs []uuid.UUID, quantity int, opts Options) (map[uuid.UUID]*ResolvedPrice, error)
}

type service struct {
	repo      pricingRepository
	converter currencyConverter
	log       *logger.Logger
	now       func() time.Time
}

// NewService builds a pricing service backed by the provided repository and
// currency converter.
func NewService(repo pricingRepository, converter currencyConverter, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	if converter == nil {
		return nil, fmt.Errorf("currency converter required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		converter: converter,
		log:       log,
		now:       time.Now,
	}, nil
}

func (s *service) CalculatePrice(ctx context.Context, productID uuid.UUID, quantity int, opts Options) (*ResolvedPrice, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if err := validateRequest(quantity, &opts); err != nil {
		return nil, err
	}

	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	lists, err := s.repo.CandidateLists(ctx, opts.CustomerGroupIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load candidate price lists")
	}
	prices, err := s.repo.PricesForProducts(ctx, []uuid.UUID{productID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product prices")
	}

	orderCandidates(lists, opts.CustomerGroupIDs)
	return s.resolve(ctx, productID, quantity, opts, lists, groupPricesByProduct(prices)[productID])
}

func (s *service) CalculatePrices(ctx context.Context, productIDs []uuid.UUID, quantity int, opts Options) (map[uuid.UUID]*ResolvedPrice, error) {
	if len(productIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one product id required")
	}
	if err := validateRequest(quantity, &opts); err != nil {
		return nil, err
	}
	ids := dedupe(productIDs)

	var (
		products []models.Product
		lists    []models.PriceList
		prices   []models.ProductPrice
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.repo.FindProducts(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		lists, err = s.repo.CandidateLists(gctx, opts.CustomerGroupIDs)
		return err
	})
	g.Go(func() error {
		var err error
		prices, err = s.repo.PricesForProducts(gctx, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pricing data")
	}

	orderCandidates(lists, opts.CustomerGroupIDs)
	pricesByProduct := groupPricesByProduct(prices)
	productsByID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		productsByID[p.ID] = p
	}

	results := make(map[uuid.UUID]*ResolvedPrice, len(ids))
	var failures error
	for _, id := range ids {
		product, ok := productsByID[id]
		if !ok || !product.IsActive {
			failures = multierr.Append(failures, fmt.Errorf("product %s: %w",
				id, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")))
			continue
		}
		resolved, err := s.resolve(ctx, id, quantity, opts, lists, pricesByProduct[id])
		if err != nil {
			failures = multierr.Append(failures, fmt.Errorf("product %s: %w", id, err))
			continue
		}
		results[id] = resolved
	}

	if failures != nil {
		s.log.Error(ctx, "some products could not be priced", failures)
	}
	return results, nil
}

// resolve walks the ordered candidate lists and prices the first one that
// holds an applicable row for the product.
func (s *service) resolve(ctx context.Context, productID uuid.UUID, quantity int, opts Options, lists []models.PriceList, entries []models.ProductPrice) (*ResolvedPrice, error) {
	for _, list := range lists {
		entry := pickEntry(entries, list.ID, opts.VariantID)
		if entry == nil {
			continue
		}
		return s.price(ctx, list, *entry, quantity, opts.Currency)
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no price configured for product")
}

func (s *service) price(ctx context.Context, list models.PriceList, entry models.ProductPrice, quantity int, targetCurrency string) (*ResolvedPrice, error) {
	now := s.now()
	onSale := entry.SaleActiveAt(now)

	effective := entry.BasePrice
	if onSale {
		effective = *entry.SalePrice
	}

	var applied *models.PriceTier
	if quantity > 1 {
		applied = bestTier(entry.Tiers, quantity)
		if applied != nil {
			effective = applied.UnitPrice
		}
	}

	target := targetCurrency
	if target == "" {
		target = list.CurrencyCode
	}

	price, err := s.converter.Convert(ctx, effective, list.CurrencyCode, target)
	if err != nil {
		return nil, err
	}
	original, err := s.converter.Convert(ctx, entry.BasePrice, list.CurrencyCode, target)
	if err != nil {
		return nil, err
	}

	resolved := &ResolvedPrice{
		Price:           price,
		OriginalPrice:   original,
		Currency:        target,
		OnSale:          onSale,
		PriceListID:     list.ID,
		CustomerGroupID: list.CustomerGroupID,
	}
	if applied != nil {
		tierPrice, err := s.converter.Convert(ctx, applied.UnitPrice, list.CurrencyCode, target)
		if err != nil {
			return nil, err
		}
		resolved.AppliedTier = &AppliedTier{MinQuantity: applied.MinQuantity, Price: tierPrice}
	}
	if onSale && entry.BasePrice.IsPositive() {
		pct := int(entry.BasePrice.Sub(*entry.SalePrice).
			Div(entry.BasePrice).
			Mul(decimal.NewFromInt(100)).
			Round(0).IntPart())
		resolved.DiscountPercentage = &pct
	}
	return resolved, nil
}

func validateRequest(quantity int, opts *Options) error {
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	}
	if opts.Currency != "" {
		normalized, err := rates.NormalizeCode(opts.Currency)
		if err != nil {
			return err
		}
		opts.Currency = normalized
	}
	return nil
}

// orderCandidates sorts in place: priority descending, ties broken by the
// caller's group preference order, the default (NULL group) list last.
func orderCandidates(lists []models.PriceList, groupIDs []uuid.UUID) {
	rank := func(list models.PriceList) int {
		if list.CustomerGroupID == nil {
			return len(groupIDs)
		}
		for i, id := range groupIDs {
			if *list.CustomerGroupID == id {
				return i
			}
		}
		return len(groupIDs)
	}
	sort.SliceStable(lists, func(i, j int) bool {
		if lists[i].Priority != lists[j].Priority {
			return lists[i].Priority > lists[j].Priority
		}
		return rank(lists[i]) < rank(lists[j])
	})
}

// pickEntry selects the price row for one list. A variant-specific row wins;
// a product-level (NULL variant) row is the fallback. Without a requested
// variant only product-level rows apply.
func pickEntry(entries []models.ProductPrice, listID uuid.UUID, variantID *uuid.UUID) *models.ProductPrice {
	var fallback *models.ProductPrice
	for i := range entries {
		entry := &entries[i]
		if entry.PriceListID != listID {
			continue
		}
		if variantID != nil && entry.VariantID != nil && *entry.VariantID == *variantID {
			return entry
		}
		if entry.VariantID == nil && fallback == nil {
			fallback = entry
		}
	}
	return fallback
}

// bestTier returns the qualifying tier with the largest minimum quantity.
func bestTier(tiers []models.PriceTier, quantity int) *models.PriceTier {
	var best *models.PriceTier
	for i := range tiers {
		tier := &tiers[i]
		if tier.MinQuantity > quantity {
			continue
		}
		if best == nil || tier.MinQuantity > best.MinQuantity {
			best = tier
		}
	}
	return best
}

func groupPricesByProduct(prices []models.ProductPrice) map[uuid.UUID][]models.ProductPrice {
	byProduct := make(map[uuid.UUID][]models.ProductPrice, len(prices))
	for _, p := range prices {
		byProduct[p.ProductID] = append(byProduct[p.ProductID], p)
	}
	return byProduct
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
