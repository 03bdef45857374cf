package pricing

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harborline/pricing-service/internal/repo"
	"github.com/harborline/pricing-service/pkg/db/models"
)

// Repository exposes the read paths the resolver needs.
type Repository struct {
	base repo.Base
}

// NewRepository constructs a pricing repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// FindProduct returns one product row; gorm.ErrRecordNotFound when absent.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var row models.Product
	if err := r.base.DB(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindProducts returns the product rows for the given ids; missing ids are
// simply absent from the result.
func (r *Repository) FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	if err := r.base.DB(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CandidateLists returns the active price lists visible to the given customer
// groups plus the default (NULL group) lists, ordered by priority descending.
// Final candidate ordering (group preference, default last) happens in the
// service, which knows the caller's group order.
func (r *Repository) CandidateLists(ctx context.Context, groupIDs []uuid.UUID) ([]models.PriceList, error) {
	query := r.base.DB(ctx).Model(&models.PriceList{}).Where("is_active = ?", true)
	if len(groupIDs) > 0 {
		query = query.Where("customer_group_id IN ? OR customer_group_id IS NULL", groupIDs)
	} else {
		query = query.Where("customer_group_id IS NULL")
	}

	var rows []models.PriceList
	if err := query.Order("priority DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// PricesForProducts returns all active price rows (tiers preloaded) for the
// given products across every price list.
func (r *Repository) PricesForProducts(ctx context.Context, productIDs []uuid.UUID) ([]models.ProductPrice, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var rows []models.ProductPrice
	err := r.base.DB(ctx).
		Preload("Tiers").
		Where("product_id IN ? AND is_active = ?", productIDs, true).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
