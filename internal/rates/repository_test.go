package rates

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harborline/pricing-service/pkg/db/models"
)

func setupRatesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	currencies := `
CREATE TABLE IF NOT EXISTS currencies (
  code TEXT PRIMARY KEY,
  rate TEXT NOT NULL,
  last_updated_at DATETIME NOT NULL
);`
	require.NoError(t, db.Exec(currencies).Error)
	require.NoError(t, db.Exec(`DELETE FROM currencies`).Error)
	return db
}

func TestUpsertAllInsertsAndUpdates(t *testing.T) {
	db := setupRatesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	first := []models.Currency{
		{Code: "USD", Rate: decimal.NewFromInt(1), LastUpdatedAt: now},
		{Code: "EUR", Rate: decimal.RequireFromString("0.85"), LastUpdatedAt: now},
	}
	require.NoError(t, repo.UpsertAll(ctx, first))

	later := now.Add(time.Hour)
	second := []models.Currency{
		{Code: "USD", Rate: decimal.NewFromInt(1), LastUpdatedAt: later},
		{Code: "EUR", Rate: decimal.RequireFromString("0.90"), LastUpdatedAt: later},
		{Code: "GBP", Rate: decimal.RequireFromString("0.75"), LastUpdatedAt: later},
	}
	require.NoError(t, repo.UpsertAll(ctx, second))

	rows, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	eur, err := repo.FindByCode(ctx, "EUR")
	require.NoError(t, err)
	require.True(t, eur.Rate.Equal(decimal.RequireFromString("0.90")), "expected updated EUR rate, got %s", eur.Rate)
}

func TestUpsertAllEmptyIsNoop(t *testing.T) {
	db := setupRatesTestDB(t)
	repo := NewRepository(db)

	require.NoError(t, repo.UpsertAll(context.Background(), nil))

	rows, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestFindByCodeMissing(t *testing.T) {
	db := setupRatesTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByCode(context.Background(), "JPY")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListAllOrdersByCode(t *testing.T) {
	db := setupRatesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.UpsertAll(ctx, []models.Currency{
		{Code: "GBP", Rate: decimal.RequireFromString("0.75"), LastUpdatedAt: now},
		{Code: "EUR", Rate: decimal.RequireFromString("0.85"), LastUpdatedAt: now},
	}))

	rows, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "EUR", rows[0].Code)
	require.Equal(t, "GBP", rows[1].Code)
}
