package cmd

import (
	"fmt"
	"os"

	"feedmill/config"

	"github.com/BurntSushi/toml"
	"github.com/cqroot/prompt"
	"github.com/urfave/cli/v2"
)

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Interactively create a starter configuration file",
		Description: `Walks through the handful of settings most deployments change and
writes a feedmill.toml with everything else at its default.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "feedmill.toml",
				Usage:   "Where to write the configuration file",
			},
		},
		Action: func(ctx *cli.Context) error {
			output := ctx.String("output")
			if _, err := os.Stat(output); err == nil {
				return fmt.Errorf("%s already exists, refusing to overwrite", output)
			}

			cfg := config.Default()

			hostname, err := prompt.New().Ask("Hostname:").Input(cfg.Hostname)
			if err != nil {
				return err
			}
			cfg.Hostname = hostname

			database, err := prompt.New().Ask("Database path:").Input(cfg.Database.Path)
			if err != nil {
				return err
			}
			cfg.Database.Path = database

			backend, err := prompt.New().Ask("Cache backend:").Choose([]string{"memory", "redis"})
			if err != nil {
				return err
			}
			cfg.Cache.Backend = backend

			if backend == "redis" {
				address, err := prompt.New().Ask("Redis address:").Input(cfg.Cache.RedisAddress)
				if err != nil {
					return err
				}
				cfg.Cache.RedisAddress = address
			}

			file, err := os.Create(output)
			if err != nil {
				return err
			}
			defer file.Close()

			if err := toml.NewEncoder(file).Encode(cfg); err != nil {
				return err
			}

			fmt.Println("Wrote", output)
			return nil
		},
	}
}
