package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"mailsign/backend/internal/config"
	"mailsign/backend/internal/logger"
)

func main() {
	log := logger.NewDevelopmentLogger()
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: 无法加载配置: %v\n", err)
		os.Exit(1)
	}

	runner := NewRunner(RunnerOpts{Config: cfg, Logger: log})

	app := &cli.Command{
		Name:     "mailsignctl",
		Usage:    "Maintenance tool for the mail signature service",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "migrate",
		Usage:  "Create or update the database schema and seed the global signature",
		Action: r.Migrate,
	}
}

func tokenCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue an access token for the admin API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "subject",
				Usage: "Token subject (operator name)",
				Value: "admin",
			},
			&cli.StringFlag{
				Name:  "role",
				Usage: "Token role",
				Value: "admin",
			},
		},
		Action: r.Token,
	}
}

func overrideCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "override",
		Usage: "Inspect signature overrides",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the override attached to a mail content",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:     "content-id",
						Usage:    "Mail content ID",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.OverrideShow,
			},
			{
				Name:  "list",
				Usage: "List all overrides",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.OverrideList,
			},
			{
				Name:   "check",
				Usage:  "Report mail contents without override and overrides without mail content",
				Action: r.OverrideCheck,
			},
		},
	}
}
