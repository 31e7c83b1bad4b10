package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/wecubehq/wecube-backend/internal/service"
	"github.com/wecubehq/wecube-backend/internal/stripe"
)

type CheckoutHandler struct {
	svc service.CheckoutService
}

func NewCheckoutHandler(svc service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

type CheckoutResponse struct {
	PaymentIntent *stripe.PaymentIntent `json:"paymentIntent"`
	Pricing       *service.Pricing      `json:"pricing"`
}

type CompleteCheckoutBody struct {
	PaymentIntentID string `json:"paymentIntentId"`
}

// Start creates a payment intent for the listing's price plus platform fee.
func (h *CheckoutHandler) Start(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	listingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid listing id"))
	}
	intent, pricing, err := h.svc.StartCheckout(c.Request().Context(), listingID, uid)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "listing not found"))
		case errors.Is(err, service.ErrAlreadySold):
			return c.JSON(http.StatusConflict, NewErrorResponse("already_sold", err.Error()))
		case errors.Is(err, service.ErrOnboardingIncomplete):
			return c.JSON(http.StatusConflict, NewErrorResponse("onboarding_incomplete", "seller cannot receive payments yet"))
		default:
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
		}
	}
	return c.JSON(http.StatusOK, CheckoutResponse{PaymentIntent: intent, Pricing: pricing})
}

// Complete records the sale after the client confirmed the payment.
func (h *CheckoutHandler) Complete(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	listingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid listing id"))
	}
	var req CompleteCheckoutBody
	if err := c.Bind(&req); err != nil || req.PaymentIntentID == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "paymentIntentId is required"))
	}
	sale, err := h.svc.CompleteCheckout(c.Request().Context(), listingID, uid, req.PaymentIntentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "listing not found"))
		case errors.Is(err, service.ErrAlreadySold):
			return c.JSON(http.StatusConflict, NewErrorResponse("already_sold", err.Error()))
		default:
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
		}
	}
	return c.JSON(http.StatusCreated, sale)
}
