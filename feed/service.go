package feed

import (
	"context"
	"errors"
	"time"

	"feedmill/models"

	log "github.com/sirupsen/logrus"
)

// Service is the API-facing entry point: cache lookup first, aggregation on
// miss, store after. Two concurrent requests for the same (user, page) may
// both miss and both build; that duplicate work is accepted, there is no
// single-flight deduplication.
type Service struct {
	aggregator *Aggregator
	cache      *Cache
	pageSize   int
}

func NewService(aggregator *Aggregator, cache *Cache) *Service {
	return &Service{
		aggregator: aggregator,
		cache:      cache,
		pageSize:   aggregator.cfg.PageSize,
	}
}

// GetPage returns the feed page for a user, computing and caching it if
// needed. An unknown user yields an empty page, not an error: absence of a
// user means nothing to show, and rejecting truly invalid users is the
// upstream auth layer's job. Upstream fetch failures propagate to the caller.
func (s *Service) GetPage(ctx context.Context, userID int64, page int) (models.FeedPage, error) {
	if page < 1 {
		page = 1
	}

	if cached, ok := s.cache.Get(ctx, userID, page); ok {
		cacheHits.Inc()
		return cached, nil
	}
	cacheMisses.Inc()

	start := time.Now()
	feedPage, err := s.aggregator.BuildPage(ctx, userID, page)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			log.WithField("user", userID).Info("Unknown user requested feed, returning empty page")
			return models.EmptyFeedPage(userID, page, s.pageSize), nil
		}
		feedBuildErrors.Inc()
		return models.FeedPage{}, err
	}
	feedBuilds.Inc()
	feedBuildDuration.Observe(time.Since(start).Seconds())

	s.cache.Put(ctx, feedPage)

	return feedPage, nil
}

// InvalidatePage drops the cached entry for one (user, page) pair.
func (s *Service) InvalidatePage(ctx context.Context, userID int64, page int) error {
	return s.cache.InvalidateUserPage(ctx, userID, page)
}

// InvalidateUser drops every cached page for a user, where the backend
// supports it.
func (s *Service) InvalidateUser(ctx context.Context, userID int64) error {
	return s.cache.InvalidateUserPages(ctx, userID)
}
