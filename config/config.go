package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
)

// DatabaseConfig points at the SQLite database file.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// DiscoveryConfig controls mixing of posts from non-followed authors into the
// feed. MaxItemsRatio is a fraction of the page size, not the batch size.
type DiscoveryConfig struct {
	Enabled       bool    `toml:"enabled"`
	MaxItemsRatio float64 `toml:"max_items_ratio"`
}

// RankingConfig holds the composite score weights.
type RankingConfig struct {
	RecencyWeight        float64 `toml:"recency_weight"`
	LikesWeight          float64 `toml:"likes_weight"`
	CommentsWeight       float64 `toml:"comments_weight"`
	RecencyHalfLifeHours float64 `toml:"recency_half_life_hours"`
}

// FeedConfig bounds the candidate pool and page size.
type FeedConfig struct {
	BatchSize int             `toml:"batch_size"`
	PageSize  int             `toml:"page_size"`
	Discovery DiscoveryConfig `toml:"discovery"`
	Ranking   RankingConfig   `toml:"ranking"`
}

// CacheConfig selects and tunes the feed page cache backend.
type CacheConfig struct {
	Backend      string `toml:"backend"` // "memory" or "redis"
	TTLMinutes   int    `toml:"ttl_minutes"`
	Prefix       string `toml:"prefix"`
	RedisAddress string `toml:"redis_address"`
}

// Config is the top-level configuration. It is loaded once and passed
// explicitly into each component's constructor; nothing reads config
// ambiently.
type Config struct {
	Hostname string         `toml:"hostname"`
	Database DatabaseConfig `toml:"database"`
	Feed     FeedConfig     `toml:"feed"`
	Cache    CacheConfig    `toml:"cache"`
}

// Default returns the built-in configuration. Loaded files only override what
// they set.
func Default() *Config {
	return &Config{
		Hostname: "localhost",
		Database: DatabaseConfig{Path: "feedmill.db"},
		Feed: FeedConfig{
			BatchSize: 100,
			PageSize:  15,
			Discovery: DiscoveryConfig{
				Enabled:       false,
				MaxItemsRatio: 0.2,
			},
			Ranking: RankingConfig{
				RecencyWeight:        1.0,
				LikesWeight:          0.3,
				CommentsWeight:       0.2,
				RecencyHalfLifeHours: 24.0,
			},
		},
		Cache: CacheConfig{
			Backend:      "memory",
			TTLMinutes:   60,
			Prefix:       "feedmill:",
			RedisAddress: "localhost:6379",
		},
	}
}

// LoadConfig reads a TOML file over the defaults and sanitizes the result.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	config.Sanitize()
	return config, nil
}

// Sanitize clamps invalid values to sane fallbacks instead of failing the
// process. Every clamp is logged so misconfiguration is visible.
func (c *Config) Sanitize() {
	def := Default()

	if c.Feed.BatchSize <= 0 {
		log.WithField("batch_size", c.Feed.BatchSize).Warn("Invalid batch size, using default")
		c.Feed.BatchSize = def.Feed.BatchSize
	}
	if c.Feed.PageSize <= 0 {
		log.WithField("page_size", c.Feed.PageSize).Warn("Invalid page size, using default")
		c.Feed.PageSize = def.Feed.PageSize
	}
	if c.Feed.Discovery.MaxItemsRatio < 0 || c.Feed.Discovery.MaxItemsRatio > 1 {
		log.WithField("max_items_ratio", c.Feed.Discovery.MaxItemsRatio).Warn("Invalid discovery ratio, using default")
		c.Feed.Discovery.MaxItemsRatio = def.Feed.Discovery.MaxItemsRatio
	}
	if c.Feed.Ranking.RecencyHalfLifeHours <= 0 {
		// The scorer itself degrades to a flat recency term on a non-positive
		// half-life, but a configured zero is almost certainly a mistake.
		log.WithField("recency_half_life_hours", c.Feed.Ranking.RecencyHalfLifeHours).Warn("Non-positive recency half-life, recency decay disabled")
	}
	if c.Feed.Ranking.RecencyWeight < 0 {
		log.WithField("recency_weight", c.Feed.Ranking.RecencyWeight).Warn("Negative recency weight, clamping to zero")
		c.Feed.Ranking.RecencyWeight = 0
	}
	if c.Feed.Ranking.LikesWeight < 0 {
		log.WithField("likes_weight", c.Feed.Ranking.LikesWeight).Warn("Negative likes weight, clamping to zero")
		c.Feed.Ranking.LikesWeight = 0
	}
	if c.Feed.Ranking.CommentsWeight < 0 {
		log.WithField("comments_weight", c.Feed.Ranking.CommentsWeight).Warn("Negative comments weight, clamping to zero")
		c.Feed.Ranking.CommentsWeight = 0
	}
	if c.Cache.TTLMinutes <= 0 {
		log.WithField("ttl_minutes", c.Cache.TTLMinutes).Warn("Invalid cache TTL, using default")
		c.Cache.TTLMinutes = def.Cache.TTLMinutes
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		log.WithField("backend", c.Cache.Backend).Warn("Unknown cache backend, using memory")
		c.Cache.Backend = def.Cache.Backend
	}
}
