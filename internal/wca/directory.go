package wca

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTTL is the cache freshness window.
	DefaultTTL = time.Hour
	// pageSize is the API's fixed page length; a short page ends the
	// background load.
	pageSize = 25
)

// Cache is a time-bounded in-memory competition cache with an explicit
// lifecycle: create, read, replace, append, invalidate. Injected into the
// Directory rather than living as package state so tests stay isolated.
type Cache struct {
	mu        sync.RWMutex
	data      []Competition
	fetchedAt time.Time
	ttl       time.Duration
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{ttl: ttl}
}

// Get returns the cached set and whether it is still fresh.
func (c *Cache) Get() ([]Competition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data == nil || time.Since(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	return c.data, true
}

func (c *Cache) Set(comps []Competition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = comps
	c.fetchedAt = time.Now()
}

// Append merges later pages into the cached set, skipping ids already
// present. The freshness clock is not reset: age is measured from the
// first page.
func (c *Cache) Append(comps []Competition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		return
	}
	seen := make(map[string]struct{}, len(c.data))
	for _, comp := range c.data {
		seen[comp.ID] = struct{}{}
	}
	for _, comp := range comps {
		if _, dup := seen[comp.ID]; dup {
			continue
		}
		c.data = append(c.data, comp)
	}
}

func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
	c.fetchedAt = time.Time{}
}

// Directory serves upcoming-competition reads from the cache, loading it
// with a single-flight guard so concurrent cold readers share one fetch.
// The first page satisfies the caller immediately; remaining pages load in
// the background with an inter-page delay to stay polite to the API.
type Directory struct {
	client *Client
	cache  *Cache
	group  singleflight.Group

	pageDelay time.Duration
	maxPages  int
	now       func() time.Time

	loadingMu sync.Mutex
	loading   bool
}

func NewDirectory(client *Client, cache *Cache) *Directory {
	return &Directory{
		client:    client,
		cache:     cache,
		pageDelay: 500 * time.Millisecond,
		maxPages:  8,
		now:       time.Now,
	}
}

// Upcoming returns at most limit upcoming competitions.
func (d *Directory) Upcoming(ctx context.Context, limit int) ([]Competition, error) {
	if limit <= 0 {
		limit = 50
	}
	if comps, ok := d.cache.Get(); ok {
		return clip(comps, limit), nil
	}

	v, err, _ := d.group.Do("upcoming", func() (interface{}, error) {
		firstPage, err := d.client.CompetitionsPage(ctx, d.now(), "", 1)
		if err != nil {
			return nil, err
		}
		d.cache.Set(firstPage)
		if len(firstPage) == pageSize {
			d.startBackgroundLoad()
		}
		return firstPage, nil
	})
	if err != nil {
		return nil, err
	}
	return clip(v.([]Competition), limit), nil
}

// startBackgroundLoad pulls the remaining pages into the cache. Errors are
// logged, never surfaced; the cache simply stays partial.
func (d *Directory) startBackgroundLoad() {
	d.loadingMu.Lock()
	if d.loading {
		d.loadingMu.Unlock()
		return
	}
	d.loading = true
	d.loadingMu.Unlock()

	go func() {
		defer func() {
			d.loadingMu.Lock()
			d.loading = false
			d.loadingMu.Unlock()
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		for page := 2; page <= d.maxPages; page++ {
			time.Sleep(d.pageDelay)
			comps, err := d.client.CompetitionsPage(ctx, d.now(), "", page)
			if err != nil {
				log.Printf("competition background load page %d: %v", page, err)
				return
			}
			d.cache.Append(comps)
			if len(comps) < pageSize {
				return
			}
		}
	}()
}

// Search filters by name, city or country. Short queries and cache hits are
// answered from the cache; longer queries with no cached match go to the
// API, falling back to a client-side scan of the full upcoming set.
func (d *Directory) Search(ctx context.Context, query string, limit int) ([]Competition, error) {
	if limit <= 0 {
		limit = 20
	}
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return d.Upcoming(ctx, limit)
	}
	term := strings.ToLower(query)

	if comps, ok := d.cache.Get(); ok {
		filtered := filterCompetitions(comps, term)
		if len(filtered) > 0 || len(term) < 3 {
			return clip(filtered, limit), nil
		}
	}

	if len(term) >= 3 {
		if comps, err := d.client.CompetitionsPage(ctx, d.now(), term, 1); err == nil {
			return clip(comps, limit), nil
		}
	}

	all, err := d.Upcoming(ctx, 200)
	if err != nil {
		return nil, err
	}
	return clip(filterCompetitions(all, term), limit), nil
}

func filterCompetitions(comps []Competition, term string) []Competition {
	filtered := make([]Competition, 0, len(comps))
	for _, comp := range comps {
		if strings.Contains(strings.ToLower(comp.Name), term) ||
			strings.Contains(strings.ToLower(comp.City), term) ||
			strings.Contains(strings.ToLower(comp.Country), term) {
			filtered = append(filtered, comp)
		}
	}
	return filtered
}

func clip(comps []Competition, limit int) []Competition {
	if len(comps) > limit {
		return comps[:limit]
	}
	return comps
}
