package rates

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/harborline/pricing-service/internal/repo"
	"github.com/harborline/pricing-service/pkg/db/models"
)

// Repository exposes currency rate persistence.
type Repository struct {
	base repo.Base
}

// NewRepository constructs a rate repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// UpsertAll writes every row in a single transaction so a partial failure
// leaves the existing table untouched.
func (r *Repository) UpsertAll(ctx context.Context, rows []models.Currency) error {
	if len(rows) == 0 {
		return nil
	}
	return r.base.Transaction(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"rate", "last_updated_at"}),
		}).Create(&rows).Error
	})
}

// FindByCode returns one currency row; gorm.ErrRecordNotFound when absent.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Currency, error) {
	var row models.Currency
	if err := r.base.DB(ctx).First(&row, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ListAll returns every known currency ordered by code.
func (r *Repository) ListAll(ctx context.Context) ([]models.Currency, error) {
	var rows []models.Currency
	if err := r.base.DB(ctx).Order("code ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
