package feed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"feedmill/config"
	"feedmill/models"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// ErrUserNotFound is returned by FollowSource implementations when the user
// id does not resolve. The service layer maps it to an empty feed rather than
// a hard failure; upstream auth is responsible for rejecting invalid users.
var ErrUserNotFound = errors.New("user not found")

// FollowSource resolves the set of authors a user follows.
type FollowSource interface {
	FollowedAuthors(ctx context.Context, userID int64) ([]models.AuthorRef, error)
}

// PostSource fetches candidate posts with like/comment counts attached.
type PostSource interface {
	// RecentByAuthors returns the most recent posts by the given authors,
	// newest first, capped at limit.
	RecentByAuthors(ctx context.Context, authors []models.AuthorRef, limit int) ([]models.Post, error)

	// PopularExcluding returns up to limit posts ordered by like count,
	// excluding the given authors and post ids. Used as the discovery
	// pre-filter.
	PopularExcluding(ctx context.Context, excludedAuthors []models.AuthorRef, excludedPostIDs []int64, limit int) ([]models.Post, error)
}

// Aggregator assembles the candidate pool for a user and produces one ranked,
// paginated feed page. It makes no caching decisions; that is the caller's
// job.
type Aggregator struct {
	follows FollowSource
	posts   PostSource
	cfg     config.FeedConfig
	weights Weights

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

func NewAggregator(follows FollowSource, posts PostSource, cfg config.FeedConfig) *Aggregator {
	return &Aggregator{
		follows: follows,
		posts:   posts,
		cfg:     cfg,
		weights: WeightsFromConfig(cfg.Ranking),
		now:     time.Now,
	}
}

// BuildPage builds the ranked feed page for a user.
//
// Candidates come from two pools: up to BatchSize recent posts by followed
// authors, plus up to ceil(PageSize*MaxItemsRatio) discovery posts when
// discovery is enabled. Note the batch size bounds the followed pool only;
// discovery items are added on top. All candidates are scored against one
// snapshot of now so every post in the batch is compared fairly.
//
// Known limitation carried from the original design: ranking happens over the
// most recent BatchSize followed posts only. A user following many prolific
// authors can have a high-scoring older post fall outside that cut and never
// enter the candidate pool.
func (a *Aggregator) BuildPage(ctx context.Context, userID int64, page int) (models.FeedPage, error) {
	if page < 1 {
		page = 1
	}

	followed, err := a.follows.FollowedAuthors(ctx, userID)
	if err != nil {
		return models.FeedPage{}, fmt.Errorf("resolving followed authors: %w", err)
	}

	if len(followed) == 0 && !a.cfg.Discovery.Enabled {
		return models.EmptyFeedPage(userID, page, a.cfg.PageSize), nil
	}

	var candidates []models.Post
	if len(followed) > 0 {
		candidates, err = a.posts.RecentByAuthors(ctx, followed, a.cfg.BatchSize)
		if err != nil {
			return models.FeedPage{}, fmt.Errorf("fetching followed posts: %w", err)
		}
	}

	if a.cfg.Discovery.Enabled {
		discovered, err := a.discover(ctx, userID, followed, candidates)
		if err != nil {
			return models.FeedPage{}, err
		}
		candidates = append(candidates, discovered...)
	}

	// Dedupe by post id. A post satisfying both the followed and discovery
	// queries due to a race must never appear twice; lo.UniqBy keeps the
	// first occurrence, i.e. the followed-pool copy.
	candidates = lo.UniqBy(candidates, func(p models.Post) int64 { return p.ID })

	if len(candidates) == 0 {
		return models.EmptyFeedPage(userID, page, a.cfg.PageSize), nil
	}

	ranked := Rank(candidates, a.now(), a.weights)

	items := paginate(ranked, page, a.cfg.PageSize)

	log.WithFields(log.Fields{
		"user":       userID,
		"page":       page,
		"candidates": len(ranked),
		"items":      len(items),
	}).Debug("Built feed page")

	return models.FeedPage{
		UserID:  userID,
		Page:    page,
		PerPage: a.cfg.PageSize,
		Items:   items,
		Total:   len(ranked),
	}, nil
}

// discover fetches the discovery pool: popular posts by authors the user does
// not follow, excluding the user's own posts and anything already fetched.
// The cap is a fraction of the page size, not of the batch size.
func (a *Aggregator) discover(ctx context.Context, userID int64, followed []models.AuthorRef, fetched []models.Post) ([]models.Post, error) {
	limit := int(math.Ceil(float64(a.cfg.PageSize) * a.cfg.Discovery.MaxItemsRatio))
	if limit <= 0 {
		return nil, nil
	}

	excludedAuthors := append([]models.AuthorRef{}, followed...)
	excludedAuthors = append(excludedAuthors, models.AuthorRef{Kind: models.AuthorUser, ID: userID})

	excludedIDs := lo.Map(fetched, func(p models.Post, _ int) int64 { return p.ID })

	discovered, err := a.posts.PopularExcluding(ctx, excludedAuthors, excludedIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching discovery posts: %w", err)
	}
	return discovered, nil
}

// paginate slices the ranked sequence to the requested 1-based page. Pages
// past the end yield an empty slice; the caller still reports the full total
// so consumers can tell no more pages exist.
func paginate(ranked []models.ScoredPost, page int, pageSize int) []models.Post {
	offset := (page - 1) * pageSize
	if offset >= len(ranked) {
		return []models.Post{}
	}

	end := offset + pageSize
	if end > len(ranked) {
		end = len(ranked)
	}

	return lo.Map(ranked[offset:end], func(sp models.ScoredPost, _ int) models.Post {
		return sp.Post
	})
}
