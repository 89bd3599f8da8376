package cmd

import (
	"errors"

	"feedmill/feed"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func invalidateCmd() *cli.Command {
	return &cli.Command{
		Name:  "invalidate",
		Usage: "Drop cached feed pages for a user",
		Description: `Removes cached feed pages from the configured cache backend.

With --page a single (user, page) entry is removed. Without it, all of the
user's pages are removed where the backend supports key enumeration; plain
key/value backends only support per-page invalidation.

Note that the memory backend is per-process: invalidating against it from
this command does not affect a running server.`,
		Flags: []cli.Flag{
			configFlag(),
			&cli.Int64Flag{
				Name:     "user",
				Aliases:  []string{"u"},
				Usage:    "User ID whose cached pages to drop",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "page",
				Usage: "1-based page number; omit to drop all of the user's pages",
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			store, closeStore, err := newCacheStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			pageCache := feed.NewCache(store, cfg.Cache)

			if page := ctx.Int("page"); page > 0 {
				return pageCache.InvalidateUserPage(ctx.Context, ctx.Int64("user"), page)
			}

			err = pageCache.InvalidateUserPages(ctx.Context, ctx.Int64("user"))
			if errors.Is(err, feed.ErrBulkInvalidationUnsupported) {
				log.Warn("Configured backend only supports per-page invalidation, pass --page")
			}
			return err
		},
	}
}
