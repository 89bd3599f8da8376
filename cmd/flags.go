package cmd

import (
	"os"

	"feedmill/config"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   "feedmill.toml",
		Usage:   "Path to the TOML configuration file",
		EnvVars: []string{"FEEDMILL_CONFIG"},
	}
}

func databaseFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "database",
		Aliases: []string{"d"},
		Usage:   "SQLite database file location, overrides the config file",
		EnvVars: []string{"FEEDMILL_DATABASE"},
	}
}

// loadConfig resolves the effective configuration for a command: defaults,
// then the config file if it exists, then flag overrides.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	path := ctx.String("config")

	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		log.WithField("path", path).Warn("Config file not found, using defaults")
	}

	if database := ctx.String("database"); database != "" {
		cfg.Database.Path = database
	}

	return cfg, nil
}
