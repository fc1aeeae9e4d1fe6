package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trovemart/trovemart-backend/pkg/db/models"
)

// Repository exposes catalog reads plus the atomic stock mutations used by
// the commit pipeline.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	DecrementStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, qty int) (bool, error)
	RestoreStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, qty int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("id IN ?", ids).
		Find(&products).Error
	return products, err
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// DecrementStock conditionally takes qty units off the shelf. The WHERE guard
// keeps concurrent checkouts from driving stock negative; zero rows affected
// means someone else got there first.
func (r *repository) DecrementStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, qty int) (bool, error) {
	var res *gorm.DB
	if variantID != nil {
		res = r.db.WithContext(ctx).Exec(
			`UPDATE product_variants SET stock = stock - ? WHERE id = ? AND product_id = ? AND stock >= ?`,
			qty, *variantID, productID, qty,
		)
	} else {
		res = r.db.WithContext(ctx).Exec(
			`UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?`,
			qty, productID, qty,
		)
	}
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) RestoreStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, qty int) error {
	if variantID != nil {
		return r.db.WithContext(ctx).Exec(
			`UPDATE product_variants SET stock = stock + ? WHERE id = ? AND product_id = ?`,
			qty, *variantID, productID,
		).Error
	}
	return r.db.WithContext(ctx).Exec(
		`UPDATE products SET stock = stock + ? WHERE id = ?`,
		qty, productID,
	).Error
}
