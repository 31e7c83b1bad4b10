// Package wca consumes the World Cube Association competition schedule:
// paginated upcoming-competition fetches with an ordered list of mirror
// base URLs, fronted by a time-bounded cache with single-flight loading.
package wca

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"
)

// ErrUnavailable means every configured endpoint failed.
var ErrUnavailable = errors.New("competition API unavailable")

// DefaultBaseURLs is tried in order; the first responding endpoint wins.
var DefaultBaseURLs = []string{
	"https://www.worldcubeassociation.org/api/v0",
	"https://api.worldcubeassociation.org/v0",
}

type Competition struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	City              string `json:"city"`
	Country           string `json:"country"`
	StartDate         string `json:"startDate"`
	EndDate           string `json:"endDate"`
	Venue             string `json:"venue"`
	Website           string `json:"website"`
	RegistrationOpen  string `json:"registrationOpen"`
	RegistrationClose string `json:"registrationClose"`
	DisplayName       string `json:"displayName"`
	DateRange         string `json:"dateRange"`
}

type apiCompetition struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	City              string `json:"city"`
	CountryISO2       string `json:"country_iso2"`
	StartDate         string `json:"start_date"`
	EndDate           string `json:"end_date"`
	Venue             string `json:"venue"`
	Website           string `json:"website"`
	URL               string `json:"url"`
	RegistrationOpen  string `json:"registration_open"`
	RegistrationClose string `json:"registration_close"`
}

type Client struct {
	baseURLs   []string
	httpClient *http.Client
}

func NewClient(baseURLs ...string) *Client {
	if len(baseURLs) == 0 {
		baseURLs = DefaultBaseURLs
	}
	return &Client{
		baseURLs:   baseURLs,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// CompetitionsPage fetches one page of upcoming competitions starting from
// the given date, optionally narrowed by a free-text query. Pages are the
// API's fixed 25-entry pages, 1-based.
func (c *Client) CompetitionsPage(ctx context.Context, from time.Time, query string, page int) ([]Competition, error) {
	params := url.Values{
		"sort":  {"start_date"},
		"start": {from.Format("2006-01-02")},
	}
	if query != "" {
		params.Set("q", query)
	}
	if page > 1 {
		params.Set("page", strconv.Itoa(page))
	}

	var lastErr error
	for _, base := range c.baseURLs {
		comps, err := c.fetch(ctx, base+"/competitions?"+params.Encode(), from)
		if err == nil {
			return comps, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) fetch(ctx context.Context, rawURL string, from time.Time) ([]Competition, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var raw []apiCompetition
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return formatCompetitions(raw, from), nil
}

// formatCompetitions drops anything already started and sorts by start date.
func formatCompetitions(raw []apiCompetition, from time.Time) []Competition {
	today := from.Truncate(24 * time.Hour)
	comps := make([]Competition, 0, len(raw))
	for _, r := range raw {
		start, err := time.Parse("2006-01-02", r.StartDate)
		if err != nil || start.Before(today) {
			continue
		}
		website := r.Website
		if website == "" {
			website = r.URL
		}
		comps = append(comps, Competition{
			ID:                r.ID,
			Name:              r.Name,
			City:              r.City,
			Country:           r.CountryISO2,
			StartDate:         r.StartDate,
			EndDate:           r.EndDate,
			Venue:             r.Venue,
			Website:           website,
			RegistrationOpen:  r.RegistrationOpen,
			RegistrationClose: r.RegistrationClose,
			DisplayName:       fmt.Sprintf("%s - %s, %s", r.Name, r.City, r.CountryISO2),
			DateRange:         formatDateRange(r.StartDate, r.EndDate),
		})
	}
	sort.SliceStable(comps, func(i, j int) bool {
		return comps[i].StartDate < comps[j].StartDate
	})
	return comps
}

func formatDateRange(startDate, endDate string) string {
	start, err1 := time.Parse("2006-01-02", startDate)
	end, err2 := time.Parse("2006-01-02", endDate)
	if err1 != nil || err2 != nil {
		return startDate
	}
	switch {
	case start.Equal(end):
		return start.Format("Jan 2, 2006")
	case start.Month() == end.Month() && start.Year() == end.Year():
		return fmt.Sprintf("%s-%d, %d", start.Format("Jan 2"), end.Day(), start.Year())
	default:
		return start.Format("Jan 2, 2006") + " - " + end.Format("Jan 2, 2006")
	}
}
