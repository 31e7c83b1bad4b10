package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/wecubehq/wecube-backend/internal/model"
	"github.com/wecubehq/wecube-backend/internal/repository"
	"github.com/wecubehq/wecube-backend/internal/service"
)

type ListingHandler struct {
	catalog service.CatalogService
	svc     service.ListingService
}

func NewListingHandler(catalog service.CatalogService, svc service.ListingService) *ListingHandler {
	return &ListingHandler{catalog: catalog, svc: svc}
}

type CursorResponse struct {
	CreatedAt string `json:"createdAt"`
	ID        uint64 `json:"id"`
}

type BrowseResponse struct {
	Listings   []model.Listing `json:"listings"`
	HasMore    bool            `json:"hasMore"`
	NextCursor *CursorResponse `json:"nextCursor,omitempty"`
	MaxPrice   float64         `json:"maxPrice"`
	Mode       string          `json:"mode"`
}

// List serves both catalog modes. Any filter parameter switches from the
// paginated browse path to the full-scan search path.
func (h *ListingHandler) List(c echo.Context) error {
	filters := service.Filters{
		Search:         c.QueryParam("search"),
		Condition:      c.QueryParam("condition"),
		DeliveryOption: c.QueryParam("delivery"),
	}
	if v := c.QueryParam("minPrice"); v != "" {
		filters.PriceMin, _ = strconv.ParseFloat(v, 64)
	}
	if v := c.QueryParam("maxPrice"); v != "" {
		filters.PriceMax, _ = strconv.ParseFloat(v, 64)
	}

	if filters.Active() {
		listings, err := h.catalog.Search(c.Request().Context(), filters)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to search listings"))
		}
		return c.JSON(http.StatusOK, BrowseResponse{
			Listings: listings,
			MaxPrice: service.MaxPrice(listings),
			Mode:     "search",
		})
	}

	var cursor *repository.PageCursor
	if after := c.QueryParam("after"); after != "" {
		createdAt, err := time.Parse(time.RFC3339Nano, after)
		if err != nil {
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid cursor"))
		}
		afterID, err := strconv.ParseUint(c.QueryParam("afterId"), 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid cursor"))
		}
		cursor = &repository.PageCursor{CreatedAt: createdAt, ID: afterID}
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	page, err := h.catalog.BrowsePage(c.Request().Context(), cursor, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch listings"))
	}
	resp := BrowseResponse{
		Listings: page.Listings,
		HasMore:  page.HasMore,
		MaxPrice: service.MaxPrice(page.Listings),
		Mode:     "browse",
	}
	if page.NextCursor != nil {
		resp.NextCursor = &CursorResponse{
			CreatedAt: page.NextCursor.CreatedAt.Format(time.RFC3339Nano),
			ID:        page.NextCursor.ID,
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ListingHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid id"))
	}
	listing, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "listing not found"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch listing"))
	}
	return c.JSON(http.StatusOK, listing)
}

// Create accepts a multipart form: listing fields plus up to five photo
// files under the "photos" key.
func (h *ListingHandler) Create(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	price, err := strconv.ParseFloat(c.FormValue("price"), 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid price"))
	}
	in := service.CreateListingInput{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Price:       price,
		Condition:   c.FormValue("condition"),
		DeliveryOptions: model.DeliveryOptions{
			Shipping: c.FormValue("shipping") == "true",
			Meetup:   c.FormValue("meetup") == "true",
		},
	}
	if comps := c.FormValue("competitions"); comps != "" {
		if err := json.Unmarshal([]byte(comps), &in.Competitions); err != nil {
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid competitions"))
		}
	}

	form, err := c.MultipartForm()
	if err == nil {
		for _, fh := range form.File["photos"] {
			f, err := fh.Open()
			if err != nil {
				return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "unreadable photo"))
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "unreadable photo"))
			}
			in.Photos = append(in.Photos, service.PhotoUpload{
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Data:        data,
			})
		}
	}

	listing, err := h.svc.Create(c.Request().Context(), uid, in)
	if err != nil {
		if errors.Is(err, service.ErrOnboardingIncomplete) {
			return c.JSON(http.StatusForbidden, NewErrorResponse("onboarding_incomplete", err.Error()))
		}
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	}
	return c.JSON(http.StatusCreated, listing)
}

func (h *ListingHandler) ListMine(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	listings, err := h.svc.ListBySeller(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch listings"))
	}
	return c.JSON(http.StatusOK, listings)
}

func (h *ListingHandler) Delete(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid id"))
	}
	if err := h.svc.Delete(c.Request().Context(), id, uid); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "listing not found"))
		case errors.Is(err, service.ErrForbidden):
			return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", "not the seller"))
		default:
			return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to delete listing"))
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
