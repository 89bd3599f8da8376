package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"feedmill/cache"
	"feedmill/config"
	"feedmill/models"

	log "github.com/sirupsen/logrus"
)

// ErrBulkInvalidationUnsupported is returned when the configured store cannot
// enumerate its keys. Only per-page invalidation is guaranteed by the cache
// contract; bulk invalidation needs an enumerable-key or tag-capable backend.
var ErrBulkInvalidationUnsupported = errors.New("bulk invalidation not supported by cache backend")

// Cache stores computed feed pages keyed by (user, page) with TTL expiry.
//
// Failure semantics: a broken cache backend must never prevent feed
// generation, only its speed. Get degrades any store error to a miss and Put
// errors are logged and swallowed.
type Cache struct {
	store  cache.Store
	prefix string
	ttl    time.Duration
}

func NewCache(store cache.Store, cfg config.CacheConfig) *Cache {
	return &Cache{
		store:  store,
		prefix: cfg.Prefix,
		ttl:    time.Duration(cfg.TTLMinutes) * time.Minute,
	}
}

func (c *Cache) key(userID int64, page int) string {
	return fmt.Sprintf("%sfeed:%d:page:%d", c.prefix, userID, page)
}

// Get returns the cached page for (user, page) and whether it was present.
func (c *Cache) Get(ctx context.Context, userID int64, page int) (models.FeedPage, bool) {
	data, err := c.store.Get(ctx, c.key(userID, page))
	if errors.Is(err, cache.ErrCacheMiss) {
		return models.FeedPage{}, false
	}
	if err != nil {
		log.WithFields(log.Fields{
			"user":  userID,
			"page":  page,
			"error": err,
		}).Warn("Cache get failed, treating as miss")
		return models.FeedPage{}, false
	}

	var feedPage models.FeedPage
	if err := json.Unmarshal(data, &feedPage); err != nil {
		log.WithFields(log.Fields{
			"user":  userID,
			"page":  page,
			"error": err,
		}).Warn("Corrupt cache entry, treating as miss")
		return models.FeedPage{}, false
	}

	return feedPage, true
}

// Put stores a page under the composite key, overwriting any previous entry.
func (c *Cache) Put(ctx context.Context, feedPage models.FeedPage) {
	data, err := json.Marshal(feedPage)
	if err != nil {
		log.WithField("error", err).Warn("Failed to encode feed page for cache")
		return
	}

	if err := c.store.Put(ctx, c.key(feedPage.UserID, feedPage.Page), data, c.ttl); err != nil {
		log.WithFields(log.Fields{
			"user":  feedPage.UserID,
			"page":  feedPage.Page,
			"error": err,
		}).Warn("Cache put failed")
	}
}

// InvalidateUserPage removes a single page's entry.
func (c *Cache) InvalidateUserPage(ctx context.Context, userID int64, page int) error {
	return c.store.Forget(ctx, c.key(userID, page))
}

// InvalidateUserPages removes every cached page for a user. Supported only
// when the backing store can enumerate keys; otherwise it logs a warning and
// returns ErrBulkInvalidationUnsupported.
func (c *Cache) InvalidateUserPages(ctx context.Context, userID int64) error {
	forgetter, ok := c.store.(cache.PrefixForgetter)
	if !ok {
		log.WithField("user", userID).Warn("Bulk invalidation requested but cache backend cannot enumerate keys")
		return ErrBulkInvalidationUnsupported
	}
	return forgetter.ForgetPrefix(ctx, fmt.Sprintf("%sfeed:%d:", c.prefix, userID))
}

// InvalidateEverything removes all cached feed pages, with the same backend
// caveat as InvalidateUserPages.
func (c *Cache) InvalidateEverything(ctx context.Context) error {
	forgetter, ok := c.store.(cache.PrefixForgetter)
	if !ok {
		log.Warn("Bulk invalidation requested but cache backend cannot enumerate keys")
		return ErrBulkInvalidationUnsupported
	}
	return forgetter.ForgetPrefix(ctx, c.prefix+"feed:")
}
