package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"feedmill/cache"
	"feedmill/config"
	"feedmill/db"
	"feedmill/feed"
	"feedmill/server"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the feed HTTP API",
		Description: `Starts the feedmill HTTP server.

Serves ranked, paginated feed pages for users over HTTP. Feed pages are
cached per user and page with a TTL so repeated requests do not recompute
the ranking.`,
		Flags: []cli.Flag{
			configFlag(),
			databaseFlag(),
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   3000,
				Usage:   "Port to listen on",
				EnvVars: []string{"FEEDMILL_PORT"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			reader, err := db.NewReader(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer reader.Close()

			store, closeStore, err := newCacheStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			aggregator := feed.NewAggregator(reader, reader, cfg.Feed)
			pageCache := feed.NewCache(store, cfg.Cache)
			service := feed.NewService(aggregator, pageCache)

			app := server.Server(&server.ServerConfig{
				Hostname: cfg.Hostname,
				Feeds:    service,
			})

			// Graceful shutdown
			interrupt := make(chan os.Signal, 1)
			signal.Notify(interrupt, os.Interrupt)
			go func() {
				<-interrupt
				log.Info("Gracefully shutting down...")
				if err := app.ShutdownWithTimeout(60 * time.Second); err != nil {
					log.Error("Error shutting down server", err)
				}
			}()

			log.WithFields(log.Fields{
				"port":    ctx.Int("port"),
				"backend": cfg.Cache.Backend,
			}).Info("Starting server...")

			return app.Listen(fmt.Sprintf(":%d", ctx.Int("port")))
		},
	}
}

// newCacheStore builds the configured cache backend and returns a cleanup
// function alongside it.
func newCacheStore(ctx *cli.Context, cfg *config.Config) (cache.Store, func(), error) {
	switch cfg.Cache.Backend {
	case "redis":
		store, err := cache.NewRedisStore(ctx.Context, cfg.Cache.RedisAddress)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Error("Error closing redis store", err)
			}
		}, nil
	default:
		store := cache.NewMemoryStore(5 * time.Minute)
		return store, store.Close, nil
	}
}
