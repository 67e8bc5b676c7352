package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/Fn-M/HousingManager/internal/app"
	"github.com/Fn-M/HousingManager/internal/config"
	"github.com/Fn-M/HousingManager/internal/logging"
)

// Flags holds the global options shared by every command.
type Flags struct {
	ConfigPath string
	LogLevel   string
	LogFile    string
	User       string
}

func main() {
	ctx := context.Background()

	var (
		logCloser func()
		flags     = &Flags{}
		shared    = &deps{}
	)

	cmd := &cli.Command{
		Name:      "housingctl",
		Usage:     "Inspect and manage tracked housing listings",
		UsageText: "housingctl [global options] command [command options]",
		Description: `housingctl talks to the same ads API as the dashboard server.

Run 'housingctl list' to print the listing table and 'housingctl show <id>'
for the photos and comment thread of one listing.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("CONFIG_PATH"),
				Value:       "config.yaml",
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Sources:     cli.EnvVars("HM_LOG_LEVEL"),
				Value:       "warn",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "write logs to a file instead of stderr",
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "user",
				Aliases:     []string{"u"},
				Usage:       "name recorded as the author of comments",
				Sources:     cli.EnvVars("HM_USER"),
				Destination: &flags.User,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			cfg, err := config.Load(flags.ConfigPath)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}

			logger, closer, err := newLogger(flags)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			logCloser = closer

			a, err := app.New(cfg, logger)
			if err != nil {
				return ctx, fmt.Errorf("connect: %w", err)
			}
			shared.app = a
			shared.user = flags.User
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if shared.app != nil {
				shared.app.Close()
			}
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	cmd = NewListCmd(shared).Register(cmd)
	cmd = NewShowCmd(shared).Register(cmd)
	cmd = NewCommentCmd(shared).Register(cmd)
	cmd = NewAddCmd(shared).Register(cmd)
	cmd = NewDeleteCmd(shared).Register(cmd)
	cmd = NewViewingsCmd(shared).Register(cmd)

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

// newLogger logs to stderr unless a file is given, keeping stdout for output.
func newLogger(flags *Flags) (zerolog.Logger, func(), error) {
	if flags.LogFile != "" {
		return logging.New(flags.LogLevel, flags.LogFile, false)
	}
	lvl, err := zerolog.ParseLevel(flags.LogLevel)
	if err != nil {
		return zerolog.Logger{}, func() {}, err
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
	return logger, func() {}, nil
}
