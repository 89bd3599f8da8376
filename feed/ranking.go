package feed

import (
	"math"
	"sort"
	"time"

	"feedmill/config"
	"feedmill/models"
)

// Weights configures the composite rank score. Weights are additive between
// the recency and engagement components; there is no cross-batch
// normalization, so scores are only comparable between posts scored in the
// same pass with the same now.
type Weights struct {
	Recency       float64
	Likes         float64
	Comments      float64
	HalfLifeHours float64
}

// WeightsFromConfig maps the ranking section of the config onto Weights.
func WeightsFromConfig(cfg config.RankingConfig) Weights {
	return Weights{
		Recency:       cfg.RecencyWeight,
		Likes:         cfg.LikesWeight,
		Comments:      cfg.CommentsWeight,
		HalfLifeHours: cfg.RecencyHalfLifeHours,
	}
}

// Score computes the rank score for a single candidate post. Pure function,
// no I/O, never errors: malformed counts are clamped to zero so one bad
// record can never abort ranking of a whole batch.
//
// Recency is an exponential decay with the configured half-life. A
// non-positive half-life degenerates to a flat recency term rather than
// dividing by zero. Engagement uses log1p so a handful of viral posts cannot
// dominate the ranking purely by magnitude.
func Score(post models.Post, now time.Time, weights Weights) float64 {
	ageHours := now.Sub(post.CreatedAt).Hours()
	if ageHours < 0 {
		ageHours = 0
	}

	recency := weights.Recency
	if weights.HalfLifeHours > 0 {
		recency = weights.Recency * math.Pow(0.5, ageHours/weights.HalfLifeHours)
	}

	likes := post.LikeCount
	if likes < 0 {
		likes = 0
	}
	comments := post.CommentCount
	if comments < 0 {
		comments = 0
	}

	engagement := weights.Likes*math.Log1p(float64(likes)) +
		weights.Comments*math.Log1p(float64(comments))

	return recency + engagement
}

// Rank scores every post against the single now snapshot and returns them in
// descending score order. The sort is stable: equal scores preserve the
// relative input order, which keeps results reproducible.
func Rank(posts []models.Post, now time.Time, weights Weights) []models.ScoredPost {
	scored := make([]models.ScoredPost, len(posts))
	for i, post := range posts {
		scored[i] = models.ScoredPost{
			Post:  post,
			Score: Score(post, now, weights),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored
}
