package pricing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/harborline/pricing-service/pkg/db/models"
	pkgerrors "github.com/harborline/pricing-service/pkg/errors"
	"github.com/harborline/pricing-service/pkg/logger"
)

type stubPricingRepo struct {
	products map[uuid.UUID]models.Product
	lists    []models.PriceList
	prices   []models.ProductPrice

	productsErr error
	listsErr    error
	pricesErr   error
}

func (s *stubPricingRepo) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if s.productsErr != nil {
		return nil, s.productsErr
	}
	row, ok := s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

func (s *stubPricingRepo) FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if s.productsErr != nil {
		return nil, s.productsErr
	}
	var out []models.Product
	for _, id := range ids {
		if row, ok := s.products[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *stubPricingRepo) CandidateLists(ctx context.Context, groupIDs []uuid.UUID) ([]models.PriceList, error) {
	if s.listsErr != nil {
		return nil, s.listsErr
	}
	groups := make(map[uuid.UUID]struct{}, len(groupIDs))
	for _, id := range groupIDs {
		groups[id] = struct{}{}
	}
	var out []models.PriceList
	for _, list := range s.lists {
		if !list.IsActive {
			continue
		}
		if list.CustomerGroupID == nil {
			out = append(out, list)
			continue
		}
		if _, ok := groups[*list.CustomerGroupID]; ok {
			out = append(out, list)
		}
	}
	return out, nil
}

func (s *stubPricingRepo) PricesForProducts(ctx context.Context, productIDs []uuid.UUID) ([]models.ProductPrice, error) {
	if s.pricesErr != nil {
		return nil, s.pricesErr
	}
	ids := make(map[uuid.UUID]struct{}, len(productIDs))
	for _, id := range productIDs {
		ids[id] = struct{}{}
	}
	var out []models.ProductPrice
	for _, price := range s.prices {
		if !price.IsActive {
			continue
		}
		if _, ok := ids[price.ProductID]; ok {
			out = append(out, price)
		}
	}
	return out, nil
}

// stubConverter converts through a fixed USD-based rate table, mirroring the
// real converter's identity short-circuit and half-up rounding.
type stubConverter struct {
	rates map[string]decimal.Decimal
	err   error
}

func newStubConverter() *stubConverter {
	return &stubConverter{rates: map[string]decimal.Decimal{
		"USD": decimal.NewFromInt(1),
		"EUR": decimal.RequireFromString("0.85"),
		"GBP": decimal.RequireFromString("0.75"),
	}}
}

func (s *stubConverter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if s.err != nil {
		return decimal.Zero, s.err
	}
	if from == to {
		return amount, nil
	}
	fromRate, ok := s.rates[from]
	if !ok {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("currency %s not found", from))
	}
	toRate, ok := s.rates[to]
	if !ok {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("currency %s not found", to))
	}
	return amount.Div(fromRate).Mul(toRate).Round(2), nil
}

type fixture struct {
	repo      *stubPricingRepo
	converter *stubConverter
	productID uuid.UUID
	listID    uuid.UUID
}

func newFixture() *fixture {
	productID := uuid.New()
	listID := uuid.New()
	return &fixture{
		repo: &stubPricingRepo{
			products: map[uuid.UUID]models.Product{
				productID: {ID: productID, SKU: "SKU-1", Name: "Widget", IsActive: true},
			},
			lists: []models.PriceList{
				{ID: listID, Name: "Default", CurrencyCode: "USD", IsActive: true},
			},
		},
		converter: newStubConverter(),
		productID: productID,
		listID:    listID,
	}
}

func (f *fixture) addPrice(price models.ProductPrice) {
	if price.ID == uuid.Nil {
		price.ID = uuid.New()
	}
	if price.ProductID == uuid.Nil {
		price.ProductID = f.productID
	}
	if price.PriceListID == uuid.Nil {
		price.PriceListID = f.listID
	}
	price.IsActive = true
	f.repo.prices = append(f.repo.prices, price)
}

func (f *fixture) service(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(f.repo, f.converter, logger.New(logger.Options{ServiceName: "pricing-test"}))
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return svc
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

func TestCalculatePriceBaseOnly(t *testing.T) {
	f := newFixture()
	f.addPrice(models.ProductPrice{BasePrice: dec("100")})
	svc := f.service(t)

	got, err := svc.CalculatePrice(context.Background(), f.productID, 1, Options{})
	if err != nil {
		t.Fatalf("CalculatePrice returned error: %v", err)
	}
	if !got.Price.Equal(dec("100")) || !got.OriginalPrice.Equal(dec("100")) {
		t.Fatalf("expected 100/100, got %s/%s", got.Price, got.OriginalPrice)
	}
	if got.OnSale || got.DiscountPercentage != nil || got.AppliedTier != nil {
		t.Fatalf("expected plain base price result, got %+v", got)
	}
	if got.Currency != "USD" {
		t.Fatalf("expected list currency USD, got %s", got.Currency)
	}
	if got.PriceListID != f.listID {
		t.Fatalf("expected winning list id recorded")
	}
}

func TestCalculatePriceActiveSale(t *testing.T) {
	f := newFixture()
	now := time.Now()
	f.addPrice(models.ProductPrice{
		BasePrice:    dec("100"),
		SalePrice:    ptr(dec("75")),
		SaleStartsAt: ptr(now.Add(-time.Hour)),
		SaleEndsAt:   ptr(now.Add(time.Hour)),
	})
	svc := f.service(t)

	got, err := svc.CalculatePrice(context.Background(), f.productID, 1, Options{})
	if err != nil {
		t.Fatalf("CalculatePrice returned error: %v", err)
	}
	if !got.Price.Equal(dec("75")) {
		t.Fatalf("expected sale price 75, got %s", got.Price)
	}
	if !got.OriginalPrice.Equal(dec("100")) {
		t.Fatalf("expected original 100, got %s", got.OriginalPrice)
	}
	if !got.OnSale {
		t.Fatalf("expected on-sale result")
	}
	if got.DiscountPercentage == nil || *got.DiscountPercentage != 25 {
		t.Fatalf("expected discount 25, got %v", got.DiscountPercentage)
	}
}

func TestCalculatePriceSaleWindowBoundsInclusive(t *testing.T) {
	f := newFixture()
	now := time.Now()
	f.addPrice(models.ProductPrice{
		BasePrice:    dec("100"),
		SalePrice:    ptr(dec("80")),
		SaleStartsAt: ptr(now.Add(-time.Hour)),
		SaleEndsAt:   ptr(now),
	})
	svc := f.service(t).(*service)
	svc.now = func() time.Time { return now }

	got, err := svc.CalculatePrice(context.Background(), f.productID, 1, Options{})
	if err != nil {
		t.Fatalf("CalculatePrice returned error: %v", err)
	}
	if !got.OnSale {
		t.Fatalf("expected sale active at inclusive end bound")
	}

	svc.now = func() time.Time { return now.Add(time.Second) }
	got, err = svc.CalculatePrice(context.Background(), f.productID, 1, Options{})
	if err != nil {
		t.Fatalf("CalculatePrice returned error: %v", err)
	}
	if got.OnSale {
		t.Fatalf("expected sale inactive past end bound")
	}
	if !got.Price.Equal(dec("100")) {
		t.Fatalf("expected base price after sale, got %s", got.Price)
	}
}

func TestCalculatePriceExpiredSaleNoDiscount(t *testing.T) {
	f := newFixture()
	now := time.Now()
	f.addPrice(models.ProductPrice{
		BasePrice:    dec("100"),
		SalePrice:    ptr(dec("75")),
		SaleStartsAt: ptr(now.Add(-2 * time.Hour)),
		SaleEndsAt:   ptr(now.Add(-time.Hour)),
	})
	svc := f.service(t)

	got, err := svc.CalculatePrice(context.Background(), f.productID, 1, Options{})
	if err != nil {
		t.Fatalf("CalculatePrice returned error: %v", err)
	}
	if got.OnSale || got.DiscountPercentage != nil {
		t.Fatalf("expected expired sale ignored, got %+v", got)
	}
	if !got.Price.Equal(dec("100")) {
		t.Fatalf("expected base price 100, got %s", got.Price)
	}
}

func TestCalculatePriceTierSelection(t *testing.T) {
	f := newFixture()
	f.addPrice(models.ProductPrice{
		BasePrice: dec("100"),
		Tiers: []models.PriceTier{
			{MinQuantity: 5, UnitPrice: dec("90")},
			{MinQuantity: 10, UnitPrice: dec("80")},
			{MinQuantity: 20, UnitPrice: dec("70")},
		},
	})
	svc := f.service(t)

	cases := []struct {
		quantity int
		price    string
		tierMin  int
	}{
		{1, "100", 0},
		{4, "100", 0},
		{5, "90", 5},
		{15, "80", 10},
		{20, "70", 20},
		{100, "70", 20},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("qty_%d", tc.quantity), func(t *testing.T) {
			got, err := svc.CalculatePrice(context.Background(), f.productID, tc.quantity, Options{})
			if err != nil {
				t.Fatalf("CalculatePrice returned error: %v", err)
			}
			if !got.Price.Equal(dec(tc.price)) {
				t.Fatalf("expected price %s, got %s", tc.price, got.Price)
			}
			if tc.tierMin == 0 {
				if got.AppliedTier != nil {
					t.Fatalf("expected no tier, got %+v", got.AppliedTier)
				}
			} else {
				if got.AppliedTier == nil || got.AppliedTier.MinQuantity != tc.tierMin {
					t.Fatalf("expected tier min %d, got %+v", tc.tierMin, got.AppliedTier)
				}
			}
			if !got.OriginalPrice.Equal(dec("100")) {
				t.Fatalf("expected original 100, got %s", got.OriginalPrice)
			}
		})
	}
}

func TestCalculatePriceQuantityOneSkipsTierAtOne(t *testing.T) {
	f := newFixture()
	f.addPrice(models.ProductPrice{
		BasePrice: dec("100"),
		Tiers:     []models.PriceTier{{MinQuantity: 1, UnitPrice: dec("50")}},
	})
	svc := f.service(t)

	got, err := svc.CalculatePrice(context.Background(), f.productID, 1, Options{})
	if err != nil {
		t.Fatalf("CalculatePrice returned error: %v", err)
	}
	if !got.Price.Equal(dec("100")) || got.AppliedTier != nil {
		t.Fatalf("expected tiers skipped at quantity 1, got %+v", got)
	}

	got, err = svc.CalculatePrice(context.Background(), f.productID, 2, Options{})
	if err != nil {
		t.Fatalf("CalculatePrice returned error: %v", err)
	}
	if !got.Price.Equal(dec("50")) {
		t.Fatalf("expected tier price at quantity 2, got %s", got.Price)
	}
}

func TestCalculatePriceCurrencyConversion(t *testing.T) {
	f := newFixture()
	f.addPrice(models.ProductPrice{BasePrice: dec("100")})
	svc := f.service(t)

	got, err := svc.CalculatePrice(context.Background(), f.productID, 1, Options{Currency: "eur"})
	if err != nil {
		t.Fatalf("CalculatePrice returned error: %v", err)
	}
	if !got.Price.Equal(dec("85")) {
		t.Fatalf("expected 85 EUR, got %s", got.Price)
	}
	if got.Currency != "EUR" {
		t.Fatalf("expected normalized EUR, got %s", got.Currency)
	}
}

func TestCalculatePriceTierWithConversion(t *testing.T) {
	groupID := uuid.New()
	f := newFixture()
	vipList := models.PriceList{
		ID:              uuid.New(),
		Name:            "VIP",
		CurrencyCode:    "USD",
		CustomerGroupID: &groupID,
		Priority:        10,
		IsActive:        true,
	}
	f.repo.lists = append(f.repo.lists, vipList)
	f.addPrice(models.ProductPrice{
		PriceListID: vipList.ID,
		BasePrice:   dec("100"),
		Tiers: []models.PriceTier{
			{MinQuantity: 5, UnitPrice: dec("90")},
			{MinQuantity: 10, UnitPrice: dec("80")},
		},
	})
	svc := f.service(t)

	got, err := svc.CalculatePrice(context.Background(), f.productID, 10, Options{
		CustomerGroupIDs: []uuid.UUID{groupID},
		Currency:         "EUR",
	})
	if err != nil {
		t.Fatalf("CalculatePrice returned error: %v", err)
	}
	if !got.Price.Equal(dec("68")) {
		t.Fatalf("expected 68 EUR (80 converted), got %s", got.Price)
	}
	if got.PriceListID != vipList.ID {
		t.Fatalf("expected VIP list to win")
	}
	if got.CustomerGroupID == nil || *got.CustomerGroupID != groupID {
		t.Fatalf("expected customer group recorded")
	}
	if got.AppliedTier == nil || got.AppliedTier.MinQuantity != 10 || !got.AppliedTier.Price.Equal(dec("68")) {
		t.Fatalf("expected converted tier 10/68, got %+v", got.AppliedTier)
	}
}

func TestCalculatePricePriorityOrdering(t *testing.T) {
	groupA := uuid.New()
	groupB := uuid.New()
	f := newFixture()
	lowList := models.PriceList{ID: uuid.New(), Name: "Low", CurrencyCode: "USD", CustomerGroupID: &groupA, Priority: 1, IsActive: true}
	highList := models.PriceList{ID: uuid.New(), Name: "High", CurrencyCode: "USD", CustomerGroupID: &groupB, Priority: 5, IsActive: true}
	f.repo.lists = append(f.repo.lists, lowList, highList)
	f.addPrice(models.ProductPrice{PriceListID: lowList.ID, BasePrice: dec("90")})
	f.addPrice(models.ProductPrice{PriceListID: highList.ID, BasePrice: dec("80")})
	f.addPrice(models.ProductPrice{BasePrice: dec("100")})
	svc := f.service(t)

	got, err := svc.CalculatePrice(context.Background(), f.productID, 1, Options{
		CustomerGroupIDs: []uuid.UUID{groupA, groupB},
	})
	if err != nil {
		t.Fatalf("CalculatePrice returned error: %v", err)
	}
	if got.PriceListID != highList.ID {
		t.Fatalf("expected highest priority list, got %s", got.PriceListID)
	}
	if !got.Price.Equal(dec("80")) {
		t.Fatalf("expected 80 from high priority list, got %s", got.Price)
	}
}

func TestCalculatePricePriorityTieUsesCallerGroupOrder(t *testing.T) {
	groupA := uuid.New()
	groupB := uuid.New()
	f := newFixture()
	listA := models.PriceList{ID: uuid.New(), CurrencyCode: "USD", CustomerGroupID: &groupA, Priority: 5, IsActive: true}
	listB := models.PriceList{ID: uuid.New(), CurrencyCode: "USD", CustomerGroupID: &groupB, Priority: 5, IsActive: true}
	f.repo.lists = append(f.repo.lists, listB, listA)
	f.addPrice(models.ProductPrice{PriceListID: listA.ID, BasePrice: dec("70")})
	f.addPrice(models.ProductPrice{PriceListID: listB.ID, BasePrice: dec("60")})
	svc := f.service(t)

	got, err := svc.CalculatePrice(context.Background(), f.productID, 1, Options{
		CustomerGroupIDs: []uuid.UUID{groupA, groupB},
	})
	if err != nil {
		t.Fatalf("CalculatePrice returned error: %v", err)
	}
	if got.PriceListID != listA.ID {
		t.Fatalf("expected caller's first group to break the tie")
	}
}

func TestCalculatePriceFallsBackToDefaultList(t *testing.T) {
	groupID := uuid.New()
	f := newFixture()
	vipList := models.PriceList{ID: uuid.New(), CurrencyCode: "USD", CustomerGroupID: &groupID, Priority: 10, IsActive: true}
	f.repo.lists = append(f.repo.lists, vipList)
	// VIP list has no row for this product, only the default list does.
	f.addPrice(models.ProductPrice{BasePrice: dec("100")})
	svc := f.service(t)

	got, err := svc.CalculatePrice(context.Background(), f.productID, 1, Options{
		CustomerGroupIDs: []uuid.UUID{groupID},
	})
	if err != nil {
		t.Fatalf("CalculatePrice returned error: %v", err)
	}
	if got.PriceListID != f.listID {
		t.Fatalf("expected default list fallback")
	}
	if got.CustomerGroupID != nil {
		t.Fatalf("expected no customer group on default list")
	}
}

func TestCalculatePriceVariantPreference(t *testing.T) {
	variantID := uuid.New()
	f := newFixture()
	f.addPrice(models.ProductPrice{BasePrice: dec("100")})
	f.addPrice(models.ProductPrice{VariantID: &variantID, BasePrice: dec("120")})
	svc := f.service(t)

	got, err := svc.CalculatePrice(context.Background(), f.productID, 1, Options{VariantID: &variantID})
	if err != nil {
		t.Fatalf("CalculatePrice returned error: %v", err)
	}
	if !got.Price.Equal(dec("120")) {
		t.Fatalf("expected variant-specific price, got %s", got.Price)
	}

	otherVariant := uuid.New()
	got, err = svc.CalculatePrice(context.Background(), f.productID, 1, Options{VariantID: &otherVariant})
	if err != nil {
		t.Fatalf("CalculatePrice returned error: %v", err)
	}
	if !got.Price.Equal(dec("100")) {
		t.Fatalf("expected product-level fallback, got %s", got.Price)
	}

	got, err = svc.CalculatePrice(context.Background(), f.productID, 1, Options{})
	if err != nil {
		t.Fatalf("CalculatePrice returned error: %v", err)
	}
	if !got.Price.Equal(dec("100")) {
		t.Fatalf("expected product-level row without a variant, got %s", got.Price)
	}
}

func TestCalculatePriceValidation(t *testing.T) {
	f := newFixture()
	f.addPrice(models.ProductPrice{BasePrice: dec("100")})
	svc := f.service(t)

	_, err := svc.CalculatePrice(context.Background(), f.productID, 0, Options{})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for zero quantity, got %v", err)
	}

	_, err = svc.CalculatePrice(context.Background(), uuid.Nil, 1, Options{})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for nil product id, got %v", err)
	}

	_, err = svc.CalculatePrice(context.Background(), f.productID, 1, Options{Currency: "EURO"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for malformed currency, got %v", err)
	}
}

func TestCalculatePriceUnknownProduct(t *testing.T) {
	f := newFixture()
	svc := f.service(t)

	_, err := svc.CalculatePrice(context.Background(), uuid.New(), 1, Options{})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown product, got %v", err)
	}
}

func TestCalculatePriceNoPriceConfigured(t *testing.T) {
	f := newFixture()
	svc := f.service(t)

	_, err := svc.CalculatePrice(context.Background(), f.productID, 1, Options{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if typed.Message() != "no price configured for product" {
		t.Fatalf("unexpected message %q", typed.Message())
	}
}

func TestCalculatePriceInactiveEntriesIgnored(t *testing.T) {
	f := newFixture()
	f.repo.prices = append(f.repo.prices, models.ProductPrice{
		ID:          uuid.New(),
		ProductID:   f.productID,
		PriceListID: f.listID,
		BasePrice:   dec("10"),
		IsActive:    false,
	})
	svc := f.service(t)

	_, err := svc.CalculatePrice(context.Background(), f.productID, 1, Options{})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected inactive price rows ignored, got %v", err)
	}
}

func TestCalculatePricesBatch(t *testing.T) {
	f := newFixture()
	second := uuid.New()
	f.repo.products[second] = models.Product{ID: second, SKU: "SKU-2", Name: "Gadget", IsActive: true}
	f.addPrice(models.ProductPrice{BasePrice: dec("100")})
	f.addPrice(models.ProductPrice{ProductID: second, BasePrice: dec("50")})
	svc := f.service(t)

	got, err := svc.CalculatePrices(context.Background(), []uuid.UUID{f.productID, second}, 1, Options{})
	if err != nil {
		t.Fatalf("CalculatePrices returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if !got[f.productID].Price.Equal(dec("100")) || !got[second].Price.Equal(dec("50")) {
		t.Fatalf("unexpected batch prices: %+v", got)
	}
}

func TestCalculatePricesOmitsFailedProducts(t *testing.T) {
	f := newFixture()
	unknown := uuid.New()
	unpriced := uuid.New()
	f.repo.products[unpriced] = models.Product{ID: unpriced, SKU: "SKU-3", IsActive: true}
	f.addPrice(models.ProductPrice{BasePrice: dec("100")})
	svc := f.service(t)

	got, err := svc.CalculatePrices(context.Background(), []uuid.UUID{f.productID, unknown, unpriced}, 1, Options{})
	if err != nil {
		t.Fatalf("expected per-product failures to be absorbed, got %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected only the priced product, got %d results", len(got))
	}
	if _, ok := got[f.productID]; !ok {
		t.Fatalf("expected priced product present")
	}
}

func TestCalculatePricesBulkQueryFailureFailsCall(t *testing.T) {
	f := newFixture()
	f.repo.listsErr = errors.New("db down")
	svc := f.service(t)

	_, err := svc.CalculatePrices(context.Background(), []uuid.UUID{f.productID}, 1, Options{})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestCalculatePricesEmptyInput(t *testing.T) {
	f := newFixture()
	svc := f.service(t)

	_, err := svc.CalculatePrices(context.Background(), nil, 1, Options{})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty batch, got %v", err)
	}
}

func TestCalculatePricesDeduplicatesIDs(t *testing.T) {
	f := newFixture()
	f.addPrice(models.ProductPrice{BasePrice: dec("100")})
	svc := f.service(t)

	got, err := svc.CalculatePrices(context.Background(), []uuid.UUID{f.productID, f.productID}, 1, Options{})
	if err != nil {
		t.Fatalf("CalculatePrices returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected duplicates collapsed, got %d results", len(got))
	}
}
