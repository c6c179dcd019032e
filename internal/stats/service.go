// Package stats derives aggregate catalog statistics on demand.
package stats

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/broshop/broshop/internal/catalog"
)

const (
	topViewedLimit     = 5
	recentlyAddedLimit = 3

	cacheKey = "stats:summary"
)

// Repository is the slice of the catalog store the aggregator reads from.
type Repository interface {
	CountProducts(ctx context.Context) (int64, error)
	TopViewed(ctx context.Context, limit int) ([]catalog.TopProduct, error)
	Recent(ctx context.Context, limit int) ([]catalog.Product, error)
}

// Stats is the aggregate snapshot served to admins.
type Stats struct {
	TotalProducts int64                `json:"totalProducts"`
	TopViewed     []catalog.TopProduct `json:"topViewed"`
	RecentlyAdded []catalog.Product    `json:"recentlyAdded"`
}

// Service computes statistics, optionally caching results for a short TTL.
type Service struct {
	repo  Repository
	cache *Cache
}

func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Compute returns total product count, the top viewed products ranked by
// distinct viewers (ties broken by ascending product id), and the most
// recently added products in descending id order.
func (s *Service) Compute(ctx context.Context) (Stats, error) {
	var out Stats
	err := s.cache.FetchJSON(ctx, cacheKey, &out, func(ctx context.Context) (any, error) {
		return s.compute(ctx)
	})
	if err != nil {
		return Stats{}, err
	}
	if out.TopViewed == nil {
		out.TopViewed = []catalog.TopProduct{}
	}
	if out.RecentlyAdded == nil {
		out.RecentlyAdded = []catalog.Product{}
	}
	return out, nil
}

func (s *Service) compute(ctx context.Context) (Stats, error) {
	var result Stats

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := s.repo.CountProducts(ctx)
		result.TotalProducts = total
		return err
	})
	g.Go(func() error {
		top, err := s.repo.TopViewed(ctx, topViewedLimit)
		result.TopViewed = top
		return err
	})
	g.Go(func() error {
		recent, err := s.repo.Recent(ctx, recentlyAddedLimit)
		result.RecentlyAdded = recent
		return err
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return result, nil
}
