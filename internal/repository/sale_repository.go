package repository

import (
	"context"

	"github.com/wecubehq/wecube-backend/internal/model"
	"gorm.io/gorm"
)

type SaleRepository interface {
	Create(ctx context.Context, sale *model.Sale) error
	FindByListing(ctx context.Context, listingID uint64) (*model.Sale, error)
	ListByBuyer(ctx context.Context, uid string) ([]model.Sale, error)
	Update(ctx context.Context, sale *model.Sale) error
	SetDB(db *gorm.DB)
}

type saleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepository{db: db}
}

func (r *saleRepository) SetDB(db *gorm.DB) {
	r.db = db
}

func (r *saleRepository) Create(ctx context.Context, sale *model.Sale) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *saleRepository) FindByListing(ctx context.Context, listingID uint64) (*model.Sale, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var sale model.Sale
	if err := r.db.WithContext(ctx).Where("listing_id = ?", listingID).First(&sale).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) ListByBuyer(ctx context.Context, uid string) ([]model.Sale, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var sales []model.Sale
	if err := r.db.WithContext(ctx).
		Where("buyer_uid = ?", uid).
		Order("created_at DESC").
		Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *saleRepository) Update(ctx context.Context, sale *model.Sale) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Save(sale).Error
}
