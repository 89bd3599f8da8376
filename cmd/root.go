package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "feedmill",
		Usage: "A ranked news-feed generator for a social network",
		Description: `Feedmill builds personalized, ranked news feeds.

		Candidate posts are aggregated from the authors a user follows plus an
		optional discovery pool, scored with a recency-decay and engagement
		ranking function, paginated and cached per user and page.

		Flags can generally be set via environment variables, e.g.:

		--config => FEEDMILL_CONFIG=feedmill.toml
		--database => FEEDMILL_DATABASE=feedmill.db
		`,
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			rollbackCmd(),
			buildCmd(),
			seedCmd(),
			tidyCmd(),
			invalidateCmd(),
			initCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

func Execute() {
	if err := RootApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
