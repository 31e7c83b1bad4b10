// Package stripe is a thin client for the handful of Stripe Connect REST
// endpoints the marketplace consumes: Express account creation, account
// status, onboarding links, payment intents and transfers.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.stripe.com/v1"

type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func NewClient(secretKey string) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewClientWithBaseURL exists for tests pointing at a stub server.
func NewClientWithBaseURL(secretKey, baseURL string) *Client {
	c := NewClient(secretKey)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type Account struct {
	ID               string `json:"id"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	DetailsSubmitted bool   `json:"details_submitted"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
}

// Complete reports whether the hosted onboarding finished: the account can
// take charges, has submitted its details and can receive payouts.
func (a Account) Complete() bool {
	return a.ChargesEnabled && a.DetailsSubmitted && a.PayoutsEnabled
}

type AccountLink struct {
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"`
}

type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}

type Transfer struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Destination string `json:"destination"`
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateAccount creates an Express account able to take card payments and
// receive transfers.
func (c *Client) CreateAccount(ctx context.Context, email string) (*Account, error) {
	form := url.Values{
		"type":                                   {"express"},
		"country":                                {"US"},
		"email":                                  {email},
		"business_type":                          {"individual"},
		"capabilities[card_payments][requested]": {"true"},
		"capabilities[transfers][requested]":     {"true"},
	}
	var account Account
	if err := c.postForm(ctx, "/accounts", form, &account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return &account, nil
}

func (c *Client) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	var account Account
	if err := c.get(ctx, "/accounts/"+accountID, &account); err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &account, nil
}

// CreateAccountLink returns a time-limited URL for the hosted onboarding UI.
func (c *Client) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (*AccountLink, error) {
	form := url.Values{
		"account":     {accountID},
		"refresh_url": {refreshURL},
		"return_url":  {returnURL},
		"type":        {"account_onboarding"},
	}
	var link AccountLink
	if err := c.postForm(ctx, "/account_links", form, &link); err != nil {
		return nil, fmt.Errorf("create account link: %w", err)
	}
	return &link, nil
}

// CreatePaymentIntent creates an intent for the full amount (listing price
// plus platform fee) with the destination account recorded in metadata; the
// seller's cut moves later via Transfer.
func (c *Client) CreatePaymentIntent(ctx context.Context, amountCents int64, destinationAccount string, metadata map[string]string) (*PaymentIntent, error) {
	form := url.Values{
		"amount":                             {strconv.FormatInt(amountCents, 10)},
		"currency":                           {"usd"},
		"automatic_payment_methods[enabled]": {"true"},
	}
	for k, v := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}
	form.Set("metadata[connected_account]", destinationAccount)
	var intent PaymentIntent
	if err := c.postForm(ctx, "/payment_intents", form, &intent); err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &intent, nil
}

// Transfer moves funds to the connected account.
func (c *Client) Transfer(ctx context.Context, amountCents int64, destinationAccount, paymentIntentID string) (*Transfer, error) {
	form := url.Values{
		"amount":                   {strconv.FormatInt(amountCents, 10)},
		"currency":                 {"usd"},
		"destination":              {destinationAccount},
		"metadata[payment_intent]": {paymentIntentID},
	}
	var transfer Transfer
	if err := c.postForm(ctx, "/transfers", form, &transfer); err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}
	return &transfer, nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("stripe: %s (%s)", apiErr.Error.Message, apiErr.Error.Code)
		}
		return fmt.Errorf("stripe: unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
