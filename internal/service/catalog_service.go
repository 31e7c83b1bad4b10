package service

import (
	"context"
	"math"
	"strings"

	"github.com/wecubehq/wecube-backend/internal/model"
	"github.com/wecubehq/wecube-backend/internal/repository"
)

// Filters are the catalog's search criteria. All set filters AND together.
// A zero Filters value means plain browsing, which stays on the cheap
// paginated path; any active filter switches the catalog to a full fetch
// with in-memory filtering, trading one unbounded read for not needing a
// composite index per filter combination.
type Filters struct {
	Search         string
	Condition      string
	PriceMin       float64
	PriceMax       float64 // <= 0 means unbounded
	DeliveryOption string  // "shipping" | "meetup" | ""
}

// Active reports whether the user is filtering at all.
func (f Filters) Active() bool {
	return f.Search != "" || f.Condition != "" || f.PriceMin > 0 || f.PriceMax > 0 || f.DeliveryOption != ""
}

// Page is one browse page plus the cursor for the next fetch.
type Page struct {
	Listings   []model.Listing
	HasMore    bool
	NextCursor *repository.PageCursor
}

type CatalogService interface {
	BrowsePage(ctx context.Context, cursor *repository.PageCursor, pageSize int) (*Page, error)
	Search(ctx context.Context, filters Filters) ([]model.Listing, error)
}

type catalogService struct {
	listingRepo repository.ListingRepository
	pageSize    int
}

const defaultPageSize = 12

func NewCatalogService(listingRepo repository.ListingRepository) CatalogService {
	return &catalogService{listingRepo: listingRepo, pageSize: defaultPageSize}
}

func (s *catalogService) BrowsePage(ctx context.Context, cursor *repository.PageCursor, pageSize int) (*Page, error) {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = s.pageSize
	}
	listings, err := s.listingRepo.Page(ctx, cursor, pageSize)
	if err != nil {
		return nil, err
	}
	page := &Page{
		Listings: listings,
		// A short page signals end-of-data.
		HasMore: len(listings) == pageSize,
	}
	if len(listings) > 0 {
		last := listings[len(listings)-1]
		page.NextCursor = &repository.PageCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return page, nil
}

func (s *catalogService) Search(ctx context.Context, filters Filters) ([]model.Listing, error) {
	all, err := s.listingRepo.All(ctx)
	if err != nil {
		return nil, err
	}
	return ApplyFilters(all, filters), nil
}

// ApplyFilters runs the filter chain in order: text match, condition, price
// bounds, delivery option. One pass, no pagination.
func ApplyFilters(listings []model.Listing, f Filters) []model.Listing {
	filtered := make([]model.Listing, 0, len(listings))
	search := strings.ToLower(f.Search)
	for _, l := range listings {
		if search != "" &&
			!strings.Contains(strings.ToLower(l.Title), search) &&
			!strings.Contains(strings.ToLower(l.Description), search) {
			continue
		}
		if f.Condition != "" && l.Condition != f.Condition {
			continue
		}
		if l.Price < f.PriceMin {
			continue
		}
		if f.PriceMax > 0 && l.Price > f.PriceMax {
			continue
		}
		switch f.DeliveryOption {
		case model.DeliveryShipping:
			if !l.DeliveryOptions.Shipping {
				continue
			}
		case model.DeliveryMeetup:
			if !l.DeliveryOptions.Meetup {
				continue
			}
		}
		filtered = append(filtered, l)
	}
	return filtered
}

// AppendPage appends newly fetched listings to an accumulator, dropping any
// id already present. Guards against a cursor race producing overlap
// between pages.
func AppendPage(acc, page []model.Listing) []model.Listing {
	seen := make(map[uint64]struct{}, len(acc))
	for _, l := range acc {
		seen[l.ID] = struct{}{}
	}
	for _, l := range page {
		if _, dup := seen[l.ID]; dup {
			continue
		}
		seen[l.ID] = struct{}{}
		acc = append(acc, l)
	}
	return acc
}

// MaxPrice returns the highest listing price rounded up to the nearest
// multiple of 10. Seeds the price-range filter's upper bound.
func MaxPrice(listings []model.Listing) float64 {
	var max float64
	for _, l := range listings {
		if l.Price > max {
			max = l.Price
		}
	}
	if max == 0 {
		return 0
	}
	return math.Ceil(max/10) * 10
}
