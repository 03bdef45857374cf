package rates

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/harborline/pricing-service/pkg/db/models"
	pkgerrors "github.com/harborline/pricing-service/pkg/errors"
	"github.com/harborline/pricing-service/pkg/logger"
	"github.com/harborline/pricing-service/pkg/metrics"
)

var currencyCodeRe = regexp.MustCompile(`^[A-Z]{3}$`)

type rateRepository interface {
	UpsertAll(ctx context.Context, rows []models.Currency) error
	FindByCode(ctx context.Context, code string) (*models.Currency, error)
	ListAll(ctx context.Context) ([]models.Currency, error)
}

// Service converts amounts between currencies using a rate table kept in
// sync with an external provider. All rates are relative to the configured
// base currency.
type Service interface {
	Initialize(ctx context.Context) error
	RefreshRates(ctx context.Context) error
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
	GetRate(ctx context.Context, code string) (*models.Currency, error)
	GetAllRates(ctx context.Context) ([]models.Currency, error)
}

type service struct {
	repo     rateRepository
	provider Provider
	base     string
	log      *logger.Logger
	metrics  *metrics.RateMetrics
	now      func() time.Time
}

// NewService builds a rate service backed by the provided repository and
// provider. metrics may be nil.
func NewService(repo rateRepository, provider Provider, baseCurrency string, log *logger.Logger, m *metrics.RateMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rate repository required")
	}
	if provider == nil {
		return nil, fmt.Errorf("rate provider required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	base, err := NormalizeCode(baseCurrency)
	if err != nil {
		return nil, fmt.Errorf("invalid base currency %q", baseCurrency)
	}
	return &service{
		repo:     repo,
		provider: provider,
		base:     base,
		log:      log,
		metrics:  m,
		now:      time.Now,
	}, nil
}

// NormalizeCode upper-cases and validates an ISO 4217 currency code.
func NormalizeCode(code string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if !currencyCodeRe.MatchString(normalized) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid currency code %q", code))
	}
	return normalized, nil
}

func (s *service) Initialize(ctx context.Context) error {
	return s.refresh(ctx)
}

func (s *service) RefreshRates(ctx context.Context) error {
	return s.refresh(ctx)
}

// refresh pulls one snapshot from the provider and replaces the table in one
// transaction. Base validation and the stored rates come from the same
// payload; any failure leaves the previous rates intact.
func (s *service) refresh(ctx context.Context) error {
	snapshot, err := s.provider.GetSnapshot(ctx)
	if err != nil {
		s.metrics.IncRefreshFailure()
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to refresh currency rates")
	}
	providerBase, err := NormalizeCode(snapshot.Base)
	if err != nil || providerBase != s.base {
		s.metrics.IncRefreshFailure()
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("rate provider base %q does not match configured base %q", snapshot.Base, s.base))
	}

	now := s.now().UTC()
	rows := make([]models.Currency, 0, len(snapshot.Rates)+1)
	rows = append(rows, models.Currency{Code: s.base, Rate: decimal.NewFromInt(1), LastUpdatedAt: now})
	for code, rate := range snapshot.Rates {
		normalized, err := NormalizeCode(code)
		if err != nil {
			s.metrics.IncRefreshFailure()
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to refresh currency rates")
		}
		if normalized == s.base {
			continue
		}
		if !rate.IsPositive() {
			s.metrics.IncRefreshFailure()
			return pkgerrors.New(pkgerrors.CodeDependency,
				fmt.Sprintf("rate provider returned non-positive rate for %s", normalized))
		}
		rows = append(rows, models.Currency{Code: normalized, Rate: rate, LastUpdatedAt: now})
	}

	if err := s.repo.UpsertAll(ctx, rows); err != nil {
		s.metrics.IncRefreshFailure()
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to refresh currency rates")
	}

	s.metrics.IncRefreshSuccess()
	s.log.Info(s.log.WithField(ctx, "currency_count", len(rows)), "currency rates refreshed")
	return nil
}

func (s *service) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	fromCode, err := NormalizeCode(from)
	if err != nil {
		return decimal.Zero, err
	}
	toCode, err := NormalizeCode(to)
	if err != nil {
		return decimal.Zero, err
	}

	// Identity conversions return the amount untouched, no rate lookup.
	if fromCode == toCode {
		return amount, nil
	}

	fromRate, err := s.lookupRate(ctx, fromCode)
	if err != nil {
		return decimal.Zero, err
	}
	toRate, err := s.lookupRate(ctx, toCode)
	if err != nil {
		return decimal.Zero, err
	}

	s.metrics.IncConversion(fromCode, toCode)

	// amount is in `from`; divide back to base, then multiply out to `to`.
	converted := amount.Div(fromRate).Mul(toRate)
	return converted.Round(2), nil
}

func (s *service) GetRate(ctx context.Context, code string) (*models.Currency, error) {
	normalized, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}
	row, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("currency %s not found", normalized))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup currency rate")
	}
	return row, nil
}

func (s *service) GetAllRates(ctx context.Context) ([]models.Currency, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list currency rates")
	}
	return rows, nil
}

func (s *service) lookupRate(ctx context.Context, code string) (decimal.Decimal, error) {
	if code == s.base {
		return decimal.NewFromInt(1), nil
	}
	row, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("currency %s not found", code))
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup currency rate")
	}
	return row.Rate, nil
}
