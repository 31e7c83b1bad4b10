package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/wecubehq/wecube-backend/internal/model"
	"github.com/wecubehq/wecube-backend/internal/repository"
	"github.com/wecubehq/wecube-backend/internal/service"
)

// SellerHandler covers profile sync and the Stripe onboarding flow.
type SellerHandler struct {
	userRepo   repository.UserRepository
	checkout   service.CheckoutService
	refreshURL string
	returnURL  string
}

func NewSellerHandler(userRepo repository.UserRepository, checkout service.CheckoutService, refreshURL, returnURL string) *SellerHandler {
	return &SellerHandler{
		userRepo:   userRepo,
		checkout:   checkout,
		refreshURL: refreshURL,
		returnURL:  returnURL,
	}
}

type ProfileBody struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// SyncProfile upserts the caller's display profile at sign-in.
func (h *SellerHandler) SyncProfile(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	var req ProfileBody
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	user := &model.User{
		UID:       uid,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	}
	if err := h.userRepo.Upsert(c.Request().Context(), user); err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to save profile"))
	}
	return c.JSON(http.StatusOK, user)
}

func (h *SellerHandler) CreateAccount(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	accountID, err := h.checkout.EnsureSellerAccount(c.Request().Context(), uid)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "profile not found, sync profile first"))
		}
		return c.JSON(http.StatusBadGateway, NewErrorResponse("upstream_unavailable", "failed to create payment account"))
	}
	return c.JSON(http.StatusOK, map[string]string{"accountId": accountID})
}

type AccountStatusResponse struct {
	AccountID        string `json:"accountId"`
	ChargesEnabled   bool   `json:"chargesEnabled"`
	DetailsSubmitted bool   `json:"detailsSubmitted"`
	PayoutsEnabled   bool   `json:"payoutsEnabled"`
	IsComplete       bool   `json:"isComplete"`
}

func (h *SellerHandler) AccountStatus(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	account, err := h.checkout.SellerAccountStatus(c.Request().Context(), uid)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOnboardingIncomplete):
			return c.JSON(http.StatusOK, AccountStatusResponse{})
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "profile not found"))
		default:
			return c.JSON(http.StatusBadGateway, NewErrorResponse("upstream_unavailable", "failed to fetch account status"))
		}
	}
	return c.JSON(http.StatusOK, AccountStatusResponse{
		AccountID:        account.ID,
		ChargesEnabled:   account.ChargesEnabled,
		DetailsSubmitted: account.DetailsSubmitted,
		PayoutsEnabled:   account.PayoutsEnabled,
		IsComplete:       account.Complete(),
	})
}

func (h *SellerHandler) CreateOnboardingLink(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	link, err := h.checkout.OnboardingLink(c.Request().Context(), uid, h.refreshURL, h.returnURL)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "profile not found"))
		}
		return c.JSON(http.StatusBadGateway, NewErrorResponse("upstream_unavailable", "failed to create onboarding link"))
	}
	return c.JSON(http.StatusOK, link)
}
