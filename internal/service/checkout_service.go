package service

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"github.com/wecubehq/wecube-backend/internal/model"
	"github.com/wecubehq/wecube-backend/internal/repository"
	"github.com/wecubehq/wecube-backend/internal/stripe"
	"gorm.io/gorm"
)

// platformFeeRate is the flat marketplace fee added on top of the listing
// price; the seller receives the complement.
const platformFeeRate = 0.05

// PaymentGateway is the consumed slice of the hosted payment platform.
// *stripe.Client implements it.
type PaymentGateway interface {
	CreateAccount(ctx context.Context, email string) (*stripe.Account, error)
	GetAccount(ctx context.Context, accountID string) (*stripe.Account, error)
	CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (*stripe.AccountLink, error)
	CreatePaymentIntent(ctx context.Context, amountCents int64, destinationAccount string, metadata map[string]string) (*stripe.PaymentIntent, error)
	Transfer(ctx context.Context, amountCents int64, destinationAccount, paymentIntentID string) (*stripe.Transfer, error)
}

// Pricing breaks a checkout total down for display and for the intent.
type Pricing struct {
	ListingPrice float64 `json:"listingPrice"`
	PlatformFee  float64 `json:"platformFee"`
	Total        float64 `json:"totalAmount"`
	TotalCents   int64   `json:"totalCents"`
}

func PriceWithFee(listingPrice float64) Pricing {
	fee := math.Round(listingPrice*platformFeeRate*100) / 100
	total := listingPrice + fee
	return Pricing{
		ListingPrice: listingPrice,
		PlatformFee:  fee,
		Total:        total,
		TotalCents:   int64(math.Round(total * 100)),
	}
}

// SellerCutCents is the 95% share transferred to the seller after a sale.
func SellerCutCents(listingPrice float64) int64 {
	return int64(math.Round(listingPrice * (1 - platformFeeRate) * 100))
}

type CheckoutService interface {
	StartCheckout(ctx context.Context, listingID uint64, buyerUID string) (*stripe.PaymentIntent, *Pricing, error)
	CompleteCheckout(ctx context.Context, listingID uint64, buyerUID, paymentIntentID string) (*model.Sale, error)
	EnsureSellerAccount(ctx context.Context, uid string) (string, error)
	SellerAccountStatus(ctx context.Context, uid string) (*stripe.Account, error)
	OnboardingLink(ctx context.Context, uid, refreshURL, returnURL string) (*stripe.AccountLink, error)
}

type checkoutService struct {
	listingRepo repository.ListingRepository
	saleRepo    repository.SaleRepository
	userRepo    repository.UserRepository
	gateway     PaymentGateway
	notifier    Notifier
}

func NewCheckoutService(listingRepo repository.ListingRepository, saleRepo repository.SaleRepository, userRepo repository.UserRepository, gateway PaymentGateway, notifier Notifier) CheckoutService {
	return &checkoutService{
		listingRepo: listingRepo,
		saleRepo:    saleRepo,
		userRepo:    userRepo,
		gateway:     gateway,
		notifier:    notifier,
	}
}

func (s *checkoutService) StartCheckout(ctx context.Context, listingID uint64, buyerUID string) (*stripe.PaymentIntent, *Pricing, error) {
	listing, err := s.findActiveListing(ctx, listingID)
	if err != nil {
		return nil, nil, err
	}
	if listing.UserID == buyerUID {
		return nil, nil, errors.New("cannot buy your own listing")
	}
	seller, err := s.userRepo.FindByUID(ctx, listing.UserID)
	if err != nil || seller.StripeAccountID == "" {
		return nil, nil, ErrOnboardingIncomplete
	}

	pricing := PriceWithFee(listing.Price)
	intent, err := s.gateway.CreatePaymentIntent(ctx, pricing.TotalCents, seller.StripeAccountID, map[string]string{
		"listing_id": listing.Ref,
		"buyer_uid":  buyerUID,
	})
	if err != nil {
		return nil, nil, err
	}
	return intent, &pricing, nil
}

// CompleteCheckout records the sale and marks the listing sold, then tries
// to move the seller's cut. The transfer is best-effort: a failure is logged
// and the sale stands.
func (s *checkoutService) CompleteCheckout(ctx context.Context, listingID uint64, buyerUID, paymentIntentID string) (*model.Sale, error) {
	listing, err := s.findActiveListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.UserID == buyerUID {
		return nil, errors.New("cannot buy your own listing")
	}

	pricing := PriceWithFee(listing.Price)
	sale := &model.Sale{
		ListingID:       listing.ID,
		BuyerUID:        buyerUID,
		SellerUID:       listing.UserID,
		PriceCents:      int64(math.Round(listing.Price * 100)),
		FeeCents:        int64(math.Round(pricing.PlatformFee * 100)),
		TotalCents:      pricing.TotalCents,
		PaymentIntentID: paymentIntentID,
	}
	if err := s.saleRepo.Create(ctx, sale); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadySold
		}
		return nil, err
	}
	now := time.Now()
	if err := s.listingRepo.MarkSold(ctx, listing.ID, buyerUID, now); err != nil {
		return nil, err
	}

	if seller, err := s.userRepo.FindByUID(ctx, listing.UserID); err == nil && seller.StripeAccountID != "" {
		cut := SellerCutCents(listing.Price)
		if transfer, err := s.gateway.Transfer(ctx, cut, seller.StripeAccountID, paymentIntentID); err != nil {
			log.Printf("transfer to seller %s failed (sale %d stands): %v", listing.UserID, sale.ID, err)
		} else {
			sale.TransferID = transfer.ID
			sale.TransferredAt = &now
			if err := s.saleRepo.Update(ctx, sale); err != nil {
				log.Printf("record transfer %s on sale %d: %v", transfer.ID, sale.ID, err)
			}
		}
	}
	return sale, nil
}

func (s *checkoutService) findActiveListing(ctx context.Context, listingID uint64) (*model.Listing, error) {
	listing, err := s.listingRepo.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if listing.Status != model.ListingStatusActive {
		return nil, ErrAlreadySold
	}
	return listing, nil
}

func (s *checkoutService) EnsureSellerAccount(ctx context.Context, uid string) (string, error) {
	user, err := s.userRepo.FindByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	if user.StripeAccountID != "" {
		return user.StripeAccountID, nil
	}
	account, err := s.gateway.CreateAccount(ctx, user.Email)
	if err != nil {
		return "", err
	}
	if err := s.userRepo.SetStripeAccount(ctx, uid, account.ID); err != nil {
		return "", err
	}
	return account.ID, nil
}

func (s *checkoutService) SellerAccountStatus(ctx context.Context, uid string) (*stripe.Account, error) {
	user, err := s.userRepo.FindByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if user.StripeAccountID == "" {
		return nil, ErrOnboardingIncomplete
	}
	return s.gateway.GetAccount(ctx, user.StripeAccountID)
}

func (s *checkoutService) OnboardingLink(ctx context.Context, uid, refreshURL, returnURL string) (*stripe.AccountLink, error) {
	accountID, err := s.EnsureSellerAccount(ctx, uid)
	if err != nil {
		return nil, err
	}
	return s.gateway.CreateAccountLink(ctx, accountID, refreshURL, returnURL)
}
