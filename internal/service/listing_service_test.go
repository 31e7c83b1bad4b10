package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/wecubehq/wecube-backend/internal/model"
	"github.com/wecubehq/wecube-backend/internal/repository"
	"github.com/wecubehq/wecube-backend/internal/stripe"
)

// fakePhotoStore keeps uploads in memory and can fail the nth upload.
type fakePhotoStore struct {
	stored    map[string][]byte
	deleted   []string
	failAfter int // fail the upload once this many succeeded; 0 disables
}

func newFakePhotoStore() *fakePhotoStore {
	return &fakePhotoStore{stored: make(map[string][]byte)}
}

func (s *fakePhotoStore) Upload(ctx context.Context, listingRef, filename, contentType string, data []byte) (string, error) {
	if s.failAfter > 0 && len(s.stored) >= s.failAfter {
		return "", errors.New("upload failed")
	}
	key := fmt.Sprintf("listings/%s/%d-%s", listingRef, len(s.stored), filename)
	s.stored[key] = data
	return key, nil
}

func (s *fakePhotoStore) BulkDelete(ctx context.Context, keys []string) error {
	for _, key := range keys {
		delete(s.stored, key)
		s.deleted = append(s.deleted, key)
	}
	return nil
}

type listingFixture struct {
	*messagingFixture
	photos *fakePhotoStore
	svc    ListingService
}

func newListingFixture(t *testing.T) *listingFixture {
	t.Helper()
	base := newMessagingFixture(t)

	gateway := newFakeGateway()
	gateway.accounts["acct_seller"] = &stripe.Account{
		ID:               "acct_seller",
		ChargesEnabled:   true,
		DetailsSubmitted: true,
		PayoutsEnabled:   true,
	}
	if err := base.db.Model(&model.User{}).Where("uid = ?", "seller-1").Update("stripe_account_id", "acct_seller").Error; err != nil {
		t.Fatalf("attach stripe account: %v", err)
	}

	photos := newFakePhotoStore()
	svc := NewListingService(
		repository.NewListingRepository(base.db),
		repository.NewUserRepository(base.db),
		photos,
		gateway,
	)
	return &listingFixture{messagingFixture: base, photos: photos, svc: svc}
}

func validInput() CreateListingInput {
	return CreateListingInput{
		Title:           "MoYu WR M V9",
		Description:     "Sealed in box.",
		Price:           39.99,
		Condition:       "new",
		DeliveryOptions: model.DeliveryOptions{Shipping: true},
		Photos: []PhotoUpload{
			{Filename: "front.jpg", ContentType: "image/jpeg", Data: []byte("front")},
			{Filename: "back.jpg", ContentType: "image/jpeg", Data: []byte("back")},
		},
	}
}

func TestCreateListing(t *testing.T) {
	f := newListingFixture(t)

	listing, err := f.svc.Create(context.Background(), "seller-1", validInput())
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	if !strings.HasPrefix(listing.Ref, "listing_") {
		t.Errorf("ref = %q, want listing_ prefix", listing.Ref)
	}
	if listing.Status != model.ListingStatusActive {
		t.Errorf("status = %q, want active", listing.Status)
	}
	if len(listing.Photos) != 2 || len(f.photos.stored) != 2 {
		t.Errorf("photos = %v, stored = %d", listing.Photos, len(f.photos.stored))
	}
}

func TestCreateListingValidation(t *testing.T) {
	f := newListingFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateListingInput)
	}{
		{"blank title", func(in *CreateListingInput) { in.Title = "   " }},
		{"overlong title", func(in *CreateListingInput) { in.Title = strings.Repeat("x", 121) }},
		{"zero price", func(in *CreateListingInput) { in.Price = 0 }},
		{"negative price", func(in *CreateListingInput) { in.Price = -5 }},
		{"missing condition", func(in *CreateListingInput) { in.Condition = "" }},
		{"no delivery option", func(in *CreateListingInput) { in.DeliveryOptions = model.DeliveryOptions{} }},
		{"meetup without competitions", func(in *CreateListingInput) {
			in.DeliveryOptions = model.DeliveryOptions{Meetup: true}
		}},
		{"too many photos", func(in *CreateListingInput) {
			in.Photos = make([]PhotoUpload, maxListingPhotos+1)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			if _, err := f.svc.Create(ctx, "seller-1", in); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCreateListingMeetupKeepsCompetitions(t *testing.T) {
	f := newListingFixture(t)

	in := validInput()
	in.DeliveryOptions = model.DeliveryOptions{Meetup: true}
	in.Competitions = []model.ListingCompetition{{ID: "NatsOpen2026", Name: "Nationals Open 2026"}}

	listing, err := f.svc.Create(context.Background(), "seller-1", in)
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	if len(listing.Competitions) != 1 || listing.Competitions[0].ID != "NatsOpen2026" {
		t.Errorf("competitions = %+v", listing.Competitions)
	}

	// Shipping-only listings drop any competitions that slipped in.
	in2 := validInput()
	in2.Competitions = []model.ListingCompetition{{ID: "Stray2026"}}
	listing2, err := f.svc.Create(context.Background(), "seller-1", in2)
	if err != nil {
		t.Fatalf("create shipping listing: %v", err)
	}
	if len(listing2.Competitions) != 0 {
		t.Errorf("shipping listing kept competitions: %+v", listing2.Competitions)
	}
}

func TestCreateListingRequiresOnboardedSeller(t *testing.T) {
	f := newListingFixture(t)
	if _, err := f.svc.Create(context.Background(), "buyer-1", validInput()); !errors.Is(err, ErrOnboardingIncomplete) {
		t.Fatalf("err = %v, want ErrOnboardingIncomplete", err)
	}
}

func TestCreateListingRollsBackPhotosOnFailure(t *testing.T) {
	f := newListingFixture(t)
	f.photos.failAfter = 1

	if _, err := f.svc.Create(context.Background(), "seller-1", validInput()); err == nil {
		t.Fatal("expected upload failure")
	}
	if len(f.photos.stored) != 0 {
		t.Errorf("%d orphan photos left in storage", len(f.photos.stored))
	}
	var count int64
	if err := f.db.Model(&model.Listing{}).Where("title = ?", "MoYu WR M V9").Count(&count).Error; err != nil {
		t.Fatalf("count listings: %v", err)
	}
	if count != 0 {
		t.Error("listing row created despite failed upload")
	}
}

func TestDeleteListing(t *testing.T) {
	f := newListingFixture(t)
	ctx := context.Background()

	listing, err := f.svc.Create(ctx, "seller-1", validInput())
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}

	if err := f.svc.Delete(ctx, listing.ID, "buyer-1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("delete as non-owner err = %v, want ErrForbidden", err)
	}

	if err := f.svc.Delete(ctx, listing.ID, "seller-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Get(ctx, listing.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete err = %v, want ErrNotFound", err)
	}
	if len(f.photos.deleted) != 2 {
		t.Errorf("deleted %d photos, want 2", len(f.photos.deleted))
	}
}
