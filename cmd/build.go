package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"feedmill/cache"
	"feedmill/db"
	"feedmill/feed"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func buildCmd() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Build one feed page and print it as JSON",
		Description: `Builds a single ranked feed page for a user and prints it to stdout
as a JSON object.

Useful for inspecting what the ranking produces for a given user without
going through the HTTP API. Use a tool like jq to process the output.

Prints all log messages to stderr.`,
		Flags: []cli.Flag{
			configFlag(),
			databaseFlag(),
			&cli.Int64Flag{
				Name:     "user",
				Aliases:  []string{"u"},
				Usage:    "User ID to build the feed for",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "page",
				Value: 1,
				Usage: "1-based page number",
			},
		},
		Action: func(ctx *cli.Context) error {
			// Keep stdout clean for the JSON result
			log.SetOutput(os.Stderr)

			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			reader, err := db.NewReader(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer reader.Close()

			// A one-shot build still goes through the service so the cached
			// path is exercised the same way the server exercises it.
			store := cache.NewMemoryStore(time.Minute)
			defer store.Close()

			aggregator := feed.NewAggregator(reader, reader, cfg.Feed)
			service := feed.NewService(aggregator, feed.NewCache(store, cfg.Cache))

			feedPage, err := service.GetPage(ctx.Context, ctx.Int64("user"), ctx.Int("page"))
			if err != nil {
				return err
			}

			encoded, err := json.Marshal(feedPage)
			if err != nil {
				return err
			}
			fmt.Println(string(encoded))

			return nil
		},
	}
}
