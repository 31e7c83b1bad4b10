package wca

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var testFrom = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func competitionsJSON(comps []apiCompetition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(comps)
	}
}

func TestCompetitionsPage(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		competitionsJSON([]apiCompetition{
			{ID: "LateOpen2026", Name: "Late Open", City: "Austin", CountryISO2: "US", StartDate: "2026-11-01", EndDate: "2026-11-01"},
			{ID: "AlreadyDone2026", Name: "Already Done", City: "Boston", CountryISO2: "US", StartDate: "2026-08-01", EndDate: "2026-08-02"},
			{ID: "SoonOpen2026", Name: "Soon Open", City: "Denver", CountryISO2: "US", StartDate: "2026-09-15", EndDate: "2026-09-16", URL: "https://example.com/soon"},
		})(w, r)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	comps, err := client.CompetitionsPage(context.Background(), testFrom, "", 1)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	// The already-started competition is dropped and the rest sort by
	// start date.
	if len(comps) != 2 {
		t.Fatalf("got %d competitions, want 2", len(comps))
	}
	if comps[0].ID != "SoonOpen2026" || comps[1].ID != "LateOpen2026" {
		t.Errorf("order = %s, %s", comps[0].ID, comps[1].ID)
	}
	if comps[0].DisplayName != "Soon Open - Denver, US" {
		t.Errorf("display name = %q", comps[0].DisplayName)
	}
	if comps[0].Website != "https://example.com/soon" {
		t.Errorf("website fallback to url failed: %q", comps[0].Website)
	}
	if gotQuery == "" || !strings.Contains(gotQuery, "sort=start_date") || !strings.Contains(gotQuery, "start=2026-09-01") {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestCompetitionsPageQueryAndPaging(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if q := r.URL.Query().Get("q"); q != "nationals" {
			t.Errorf("q = %q", q)
		}
		if p := r.URL.Query().Get("page"); p != "3" {
			t.Errorf("page = %q", p)
		}
		competitionsJSON(nil)(w, r)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).CompetitionsPage(context.Background(), testFrom, "nationals", 3); err != nil {
		t.Fatalf("fetch: %v", err)
	}
}

func TestCompetitionsPageMirrorFallback(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer dead.Close()
	alive := httptest.NewServer(competitionsJSON([]apiCompetition{
		{ID: "Backup2026", Name: "Backup", City: "Reno", CountryISO2: "US", StartDate: "2026-10-01", EndDate: "2026-10-01"},
	}))
	defer alive.Close()

	client := NewClient(dead.URL, alive.URL)
	comps, err := client.CompetitionsPage(context.Background(), testFrom, "", 1)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(comps) != 1 || comps[0].ID != "Backup2026" {
		t.Fatalf("comps = %+v", comps)
	}
}

func TestCompetitionsPageAllMirrorsDown(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer dead.Close()

	_, err := NewClient(dead.URL, dead.URL).CompetitionsPage(context.Background(), testFrom, "", 1)
	if err == nil {
		t.Fatal("expected error with every mirror down")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestFormatDateRange(t *testing.T) {
	tests := []struct {
		start, end string
		want       string
	}{
		{"2026-09-15", "2026-09-15", "Sep 15, 2026"},
		{"2026-09-15", "2026-09-16", "Sep 15-16, 2026"},
		{"2026-09-30", "2026-10-01", "Sep 30, 2026 - Oct 1, 2026"},
		{"not-a-date", "2026-10-01", "not-a-date"},
	}
	for _, tt := range tests {
		if got := formatDateRange(tt.start, tt.end); got != tt.want {
			t.Errorf("formatDateRange(%q, %q) = %q, want %q", tt.start, tt.end, got, tt.want)
		}
	}
}
