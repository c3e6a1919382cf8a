package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"complyhub/internal/aggregation"
	"complyhub/internal/catalog/models"
	id "complyhub/pkg/domain"
)

// generationCache mirrors the redis cache semantics: Invalidate bumps a per-key
// generation and Set only stores when the generation is still the one read.
type generationCache struct {
	mu      sync.Mutex
	values  map[string]aggregation.Statistics
	gens    map[string]int64
	dropped int
}

func newGenerationCache() *generationCache {
	return &generationCache{
		values: make(map[string]aggregation.Statistics),
		gens:   make(map[string]int64),
	}
}

func (c *generationCache) Get(_ context.Context, key string) (aggregation.Statistics, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *generationCache) Generation(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key], nil
}

func (c *generationCache) Set(_ context.Context, key string, generation int64, stats aggregation.Statistics) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key] != generation {
		c.dropped++
		return false, nil
	}
	c.values[key] = stats
	return true, nil
}

func (c *generationCache) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		c.gens[k]++
		delete(c.values, k)
	}
	return nil
}

// hookedDomains runs afterFind once, right after the next FindByID has read the
// stored record.
type hookedDomains struct {
	DomainStore
	afterFind func()
}

func (h *hookedDomains) FindByID(ctx context.Context, domainID id.DomainID) (*models.Domain, error) {
	d, err := h.DomainStore.FindByID(ctx, domainID)
	if hook := h.afterFind; hook != nil {
		h.afterFind = nil
		hook()
	}
	return d, err
}

func (s *ServiceSuite) TestStatisticsCacheDropsLoadOverlappedByWrite() {
	cache := newGenerationCache()
	domains := &hookedDomains{DomainStore: s.db.Domains}
	stores := s.stores()
	stores.Domains = domains
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := New(stores, WithLogger(logger), WithStatisticsCache(cache))
	s.Require().NoError(err)

	ctx := s.asManager()
	std, err := svc.CreateStandard(ctx, &models.CreateStandardRequest{Name: "ISO 27001", Version: "2022"})
	s.Require().NoError(err)
	d, err := svc.CreateDomain(ctx, &models.CreateDomainRequest{StandardID: std.ID, Name: "A.8"})
	s.Require().NoError(err)
	c := s.createControl(std.ID, d.ID, "Malware protection")

	domains.afterFind = func() {
		_, err := svc.MarkImplemented(ctx, c.ID)
		s.Require().NoError(err)
	}
	stale, err := svc.DomainStatistics(ctx, d.ID)
	s.Require().NoError(err)
	s.Zero(stale.ImplementedCount)
	s.Equal(1, cache.dropped)

	fresh, err := svc.DomainStatistics(ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(1, fresh.ImplementedCount)

	cached, ok, _ := cache.Get(ctx, DomainStatsKey(d.ID))
	s.True(ok)
	s.Equal(1, cached.ImplementedCount)
}
