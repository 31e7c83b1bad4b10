package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/wecubehq/wecube-backend/internal/model"
	"github.com/wecubehq/wecube-backend/internal/repository"
	"gorm.io/gorm"
)

const maxListingPhotos = 5

// PhotoStore is the consumed slice of the object store: per-file upload
// returning a stable key scoped under the listing's reference, and bulk
// delete by key.
type PhotoStore interface {
	Upload(ctx context.Context, listingRef, filename, contentType string, data []byte) (string, error)
	BulkDelete(ctx context.Context, keys []string) error
}

type PhotoUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type CreateListingInput struct {
	Title           string
	Description     string
	Price           float64
	Condition       string
	DeliveryOptions model.DeliveryOptions
	Competitions    []model.ListingCompetition
	Photos          []PhotoUpload
}

type ListingService interface {
	Create(ctx context.Context, sellerUID string, in CreateListingInput) (*model.Listing, error)
	Get(ctx context.Context, id uint64) (*model.Listing, error)
	ListBySeller(ctx context.Context, uid string) ([]model.Listing, error)
	Delete(ctx context.Context, id uint64, uid string) error
}

type listingService struct {
	listingRepo repository.ListingRepository
	userRepo    repository.UserRepository
	photos      PhotoStore
	gateway     PaymentGateway
}

func NewListingService(listingRepo repository.ListingRepository, userRepo repository.UserRepository, photos PhotoStore, gateway PaymentGateway) ListingService {
	return &listingService{
		listingRepo: listingRepo,
		userRepo:    userRepo,
		photos:      photos,
		gateway:     gateway,
	}
}

func (s *listingService) Create(ctx context.Context, sellerUID string, in CreateListingInput) (*model.Listing, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" || len(in.Title) > 120 {
		return nil, errors.New("invalid title")
	}
	if in.Price <= 0 {
		return nil, errors.New("invalid price")
	}
	if in.Condition == "" {
		return nil, errors.New("condition is required")
	}
	if !in.DeliveryOptions.Shipping && !in.DeliveryOptions.Meetup {
		return nil, errors.New("at least one delivery option is required")
	}
	if in.DeliveryOptions.Meetup && len(in.Competitions) == 0 {
		return nil, errors.New("meetup delivery requires at least one competition")
	}
	if len(in.Photos) > maxListingPhotos {
		return nil, errors.New("too many photos")
	}
	if err := s.requireOnboardedSeller(ctx, sellerUID); err != nil {
		return nil, err
	}

	ref := "listing_" + uuid.NewString()
	keys := make([]string, 0, len(in.Photos))
	for _, photo := range in.Photos {
		key, err := s.photos.Upload(ctx, ref, photo.Filename, photo.ContentType, photo.Data)
		if err != nil {
			// Whole-call semantics: one failed upload fails the
			// listing, and anything already stored is rolled back.
			if len(keys) > 0 {
				if cleanupErr := s.photos.BulkDelete(ctx, keys); cleanupErr != nil {
					log.Printf("cleanup photos for %s: %v", ref, cleanupErr)
				}
			}
			return nil, err
		}
		keys = append(keys, key)
	}

	if !in.DeliveryOptions.Meetup {
		in.Competitions = nil
	}
	listing := &model.Listing{
		Ref:             ref,
		UserID:          sellerUID,
		Title:           in.Title,
		Description:     in.Description,
		Price:           in.Price,
		Condition:       in.Condition,
		Photos:          keys,
		DeliveryOptions: in.DeliveryOptions,
		Competitions:    in.Competitions,
		Status:          model.ListingStatusActive,
	}
	if err := s.listingRepo.Create(ctx, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

func (s *listingService) requireOnboardedSeller(ctx context.Context, uid string) error {
	user, err := s.userRepo.FindByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if user.StripeAccountID == "" {
		return ErrOnboardingIncomplete
	}
	account, err := s.gateway.GetAccount(ctx, user.StripeAccountID)
	if err != nil {
		return err
	}
	if !account.Complete() {
		return ErrOnboardingIncomplete
	}
	return nil
}

func (s *listingService) Get(ctx context.Context, id uint64) (*model.Listing, error) {
	listing, err := s.listingRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return listing, nil
}

func (s *listingService) ListBySeller(ctx context.Context, uid string) ([]model.Listing, error) {
	return s.listingRepo.ListBySeller(ctx, uid)
}

func (s *listingService) Delete(ctx context.Context, id uint64, uid string) error {
	listing, err := s.listingRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if listing.UserID != uid {
		return ErrForbidden
	}
	if err := s.listingRepo.Delete(ctx, id); err != nil {
		return err
	}
	if len(listing.Photos) > 0 {
		if err := s.photos.BulkDelete(ctx, listing.Photos); err != nil {
			log.Printf("delete photos for listing %d: %v", id, err)
		}
	}
	return nil
}
