package repository

import (
	"context"
	"errors"
	"time"

	"github.com/wecubehq/wecube-backend/internal/model"
	"gorm.io/gorm"
)

var ErrDBNotReady = errors.New("database not initialized")

// PageCursor marks the last listing of the previously fetched page. Keyset
// pagination over (created_at, id) keeps pages stable while new listings
// arrive at the head.
type PageCursor struct {
	CreatedAt time.Time
	ID        uint64
}

type ListingRepository interface {
	Create(ctx context.Context, listing *model.Listing) error
	FindByID(ctx context.Context, id uint64) (*model.Listing, error)
	ListBySeller(ctx context.Context, uid string) ([]model.Listing, error)
	Page(ctx context.Context, cursor *PageCursor, limit int) ([]model.Listing, error)
	All(ctx context.Context) ([]model.Listing, error)
	MarkSold(ctx context.Context, id uint64, buyerUID string, at time.Time) error
	Delete(ctx context.Context, id uint64) error
	SetDB(db *gorm.DB)
}

type listingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) SetDB(db *gorm.DB) {
	r.db = db
}

func (r *listingRepository) Create(ctx context.Context, listing *model.Listing) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *listingRepository) FindByID(ctx context.Context, id uint64) (*model.Listing, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var listing model.Listing
	if err := r.db.WithContext(ctx).First(&listing, id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *listingRepository) ListBySeller(ctx context.Context, uid string) ([]model.Listing, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var listings []model.Listing
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", uid).
		Order("created_at DESC").
		Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *listingRepository) Page(ctx context.Context, cursor *PageCursor, limit int) ([]model.Listing, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	q := r.db.WithContext(ctx).
		Where("status = ?", model.ListingStatusActive).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit)
	if cursor != nil {
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var listings []model.Listing
	if err := q.Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// All fetches the entire active listing set, newest first. Backs the
// filtered search mode, which applies its predicates in memory.
func (r *listingRepository) All(ctx context.Context) ([]model.Listing, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var listings []model.Listing
	if err := r.db.WithContext(ctx).
		Where("status = ?", model.ListingStatusActive).
		Order("created_at DESC").
		Order("id DESC").
		Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *listingRepository) MarkSold(ctx context.Context, id uint64, buyerUID string, at time.Time) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":  model.ListingStatusSold,
			"sold_at": at,
			"sold_to": buyerUID,
		}).Error
}

func (r *listingRepository) Delete(ctx context.Context, id uint64) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Delete(&model.Listing{}, id).Error
}
