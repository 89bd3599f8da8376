package cmd

import (
	"fmt"
	"time"

	"feedmill/db"

	"github.com/urfave/cli/v2"
)

func tidyCmd() *cli.Command {
	return &cli.Command{
		Name:  "tidy",
		Usage: "Tidy up the database",
		Description: `Tidy up the database by removing posts that are old.

		Posts older than the retention window have decayed far out of ranking
		relevance; removing them keeps the database size down.`,
		Flags: []cli.Flag{
			configFlag(),
			databaseFlag(),
			&cli.IntFlag{
				Name:  "retention-days",
				Value: 90,
				Usage: "Remove posts older than this many days",
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			writer, err := db.NewWriter(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer writer.Close()

			cutoff := time.Now().AddDate(0, 0, -ctx.Int("retention-days")).Unix()
			removed, err := writer.TidyPosts(ctx.Context, cutoff)
			if err != nil {
				return err
			}

			fmt.Printf("Removed %d posts\n", removed)
			return nil
		},
	}
}
