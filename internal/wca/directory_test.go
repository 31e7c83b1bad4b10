package wca

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// competitionServer serves deterministic pages and counts requests.
type competitionServer struct {
	*httptest.Server
	requests int32
	pages    map[int][]apiCompetition
}

func newCompetitionServer(pages map[int][]apiCompetition) *competitionServer {
	cs := &competitionServer{pages: pages}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&cs.requests, 1)
		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			page, _ = strconv.Atoi(p)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(cs.pages[page])
	}))
	return cs
}

func (cs *competitionServer) requestCount() int {
	return int(atomic.LoadInt32(&cs.requests))
}

func futureComps(prefix string, n int) []apiCompetition {
	comps := make([]apiCompetition, n)
	for i := range comps {
		day := 10 + i%19
		comps[i] = apiCompetition{
			ID:          fmt.Sprintf("%s%03d", prefix, i),
			Name:        fmt.Sprintf("%s Competition %03d", prefix, i),
			City:        "Springfield",
			CountryISO2: "US",
			StartDate:   fmt.Sprintf("2026-10-%02d", day),
			EndDate:     fmt.Sprintf("2026-10-%02d", day),
		}
	}
	return comps
}

func newTestDirectory(srv *competitionServer, ttl time.Duration) *Directory {
	d := NewDirectory(NewClient(srv.URL), NewCache(ttl))
	d.pageDelay = time.Millisecond
	d.now = func() time.Time { return testFrom }
	return d
}

func TestUpcomingUsesCache(t *testing.T) {
	srv := newCompetitionServer(map[int][]apiCompetition{1: futureComps("Short", 5)})
	defer srv.Close()
	d := newTestDirectory(srv, time.Hour)

	first, err := d.Upcoming(context.Background(), 50)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if len(first) != 5 {
		t.Fatalf("got %d competitions, want 5", len(first))
	}
	if _, err := d.Upcoming(context.Background(), 50); err != nil {
		t.Fatalf("second call: %v", err)
	}
	// A short first page means no background load either.
	if got := srv.requestCount(); got != 1 {
		t.Errorf("%d API requests, want 1 (cache hit)", got)
	}
}

func TestUpcomingCacheExpiry(t *testing.T) {
	srv := newCompetitionServer(map[int][]apiCompetition{1: futureComps("Exp", 3)})
	defer srv.Close()
	d := newTestDirectory(srv, time.Nanosecond)

	if _, err := d.Upcoming(context.Background(), 50); err != nil {
		t.Fatalf("first call: %v", err)
	}
	time.Sleep(time.Millisecond)
	if _, err := d.Upcoming(context.Background(), 50); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if got := srv.requestCount(); got != 2 {
		t.Errorf("%d API requests, want 2 after expiry", got)
	}
}

func TestUpcomingSingleFlight(t *testing.T) {
	srv := newCompetitionServer(map[int][]apiCompetition{1: futureComps("SF", 5)})
	defer srv.Close()
	d := newTestDirectory(srv, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.Upcoming(context.Background(), 50); err != nil {
				t.Errorf("concurrent call: %v", err)
			}
		}()
	}
	wg.Wait()

	// Readers racing the first flight's completion can start a second
	// fetch; anything near one-per-reader means the guard is broken.
	if got := srv.requestCount(); got > 2 {
		t.Errorf("%d API requests for 8 concurrent cold readers, want the flights shared", got)
	}
}

func TestUpcomingBackgroundLoad(t *testing.T) {
	srv := newCompetitionServer(map[int][]apiCompetition{
		1: futureComps("P1x", pageSize),
		2: futureComps("P2x", pageSize),
		3: futureComps("P3x", 4),
	})
	defer srv.Close()
	d := newTestDirectory(srv, time.Hour)

	first, err := d.Upcoming(context.Background(), 200)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if len(first) != pageSize {
		t.Fatalf("first page = %d competitions, want %d", len(first), pageSize)
	}

	// The remaining pages arrive in the background and stop on the short
	// third page.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		comps, _ := d.cache.Get()
		if len(comps) == 2*pageSize+4 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	comps, _ := d.cache.Get()
	t.Fatalf("cache settled at %d competitions, want %d", len(comps), 2*pageSize+4)
}

func TestUpcomingLimit(t *testing.T) {
	srv := newCompetitionServer(map[int][]apiCompetition{1: futureComps("Lim", 10)})
	defer srv.Close()
	d := newTestDirectory(srv, time.Hour)

	comps, err := d.Upcoming(context.Background(), 3)
	if err != nil {
		t.Fatalf("upcoming: %v", err)
	}
	if len(comps) != 3 {
		t.Errorf("got %d competitions, want 3", len(comps))
	}
}

func TestSearchFromCache(t *testing.T) {
	pages := map[int][]apiCompetition{1: {
		{ID: "NatsOpen", Name: "Nationals Open", City: "Dallas", CountryISO2: "US", StartDate: "2026-10-10", EndDate: "2026-10-11"},
		{ID: "EuroCup", Name: "Euro Cup", City: "Berlin", CountryISO2: "DE", StartDate: "2026-10-20", EndDate: "2026-10-21"},
	}}
	srv := newCompetitionServer(pages)
	defer srv.Close()
	d := newTestDirectory(srv, time.Hour)

	// Warm the cache.
	if _, err := d.Upcoming(context.Background(), 50); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	tests := []struct {
		query  string
		wantID string
	}{
		{"nationals", "NatsOpen"}, // by name
		{"berlin", "EuroCup"},     // by city
		{"de", "EuroCup"},         // by country, short query served from cache
	}
	for _, tt := range tests {
		comps, err := d.Search(context.Background(), tt.query, 10)
		if err != nil {
			t.Fatalf("search %q: %v", tt.query, err)
		}
		if len(comps) != 1 || comps[0].ID != tt.wantID {
			t.Errorf("search %q = %+v, want %s", tt.query, comps, tt.wantID)
		}
	}
	if got := srv.requestCount(); got != 1 {
		t.Errorf("%d API requests, want all searches served from cache", got)
	}
}

func TestSearchShortQueryFallsBackToUpcoming(t *testing.T) {
	srv := newCompetitionServer(map[int][]apiCompetition{1: futureComps("Any", 4)})
	defer srv.Close()
	d := newTestDirectory(srv, time.Hour)

	comps, err := d.Search(context.Background(), "x", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(comps) != 4 {
		t.Errorf("got %d competitions, want the full upcoming set", len(comps))
	}
}

func TestSearchMissGoesToAPI(t *testing.T) {
	var sawQuery atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		comps := futureComps("Cold", 2)
		if r.URL.Query().Get("q") == "zanzibar" {
			sawQuery.Store(true)
			comps = []apiCompetition{{ID: "ZanzibarOpen", Name: "Zanzibar Open", City: "Zanzibar City", CountryISO2: "TZ", StartDate: "2026-12-01", EndDate: "2026-12-01"}}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(comps)
	}))
	defer srv.Close()

	d := NewDirectory(NewClient(srv.URL), NewCache(time.Hour))
	d.pageDelay = time.Millisecond
	d.now = func() time.Time { return testFrom }

	// Warm the cache with entries that cannot match.
	if _, err := d.Upcoming(context.Background(), 50); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	comps, err := d.Search(context.Background(), "zanzibar", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !sawQuery.Load() {
		t.Fatal("cache miss never reached the API")
	}
	if len(comps) != 1 || comps[0].ID != "ZanzibarOpen" {
		t.Errorf("results = %+v", comps)
	}
}
