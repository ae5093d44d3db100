// Package cli implements the fraudctl command line application.
package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/frauddesk/fraudctl/pkg/config"
	"github.com/frauddesk/fraudctl/pkg/data"
	"github.com/frauddesk/fraudctl/pkg/logging"
)

const appConfigKey = "app-config"

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}

	dbFilePathFlag = &cli.StringFlag{
		Name:  "db",
		Usage: "Path to the Sqlite training database file",
	}

	artifactFlag = &cli.StringFlag{
		Name:  "artifact",
		Usage: "Path to the fitted preprocessor artifact",
	}
)

// Execute creates and runs the CLI application.
func Execute() {
	logging.SetDefaultCLILogger("info")

	app := newApp()
	if err := app.Run(context.Background(), os.Args); err != nil {
		var ec cli.ExitCoder
		if errors.As(err, &ec) {
			os.Exit(ec.ExitCode())
		}
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	*config.Config
	Debug bool
}

func getConfig(cmd *cli.Command) *appConfig {
	return cmd.Root().Metadata[appConfigKey].(*appConfig)
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  "fraudctl",
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		Usage:                 "Fraud-scoring preprocessing and inference CLI",
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Metadata:              map[string]any{},
		Flags: []cli.Flag{
			debugFlag,
			dbFilePathFlag,
			artifactFlag,
		},
		Commands: []*cli.Command{
			importCmd,
			fitCmd,
			predictCmd,
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool(debugFlag.Name) {
				logging.SetDefaultCLILogger("debug")
			}

			dir, _, err := config.GetOrCreateHomeDir(cmd.Name)
			if err != nil {
				return ctx, err
			}
			cfg, err := config.ReadOrCreate(dir)
			if err != nil {
				return ctx, err
			}

			if v := cmd.String(dbFilePathFlag.Name); v != "" {
				cfg.DB = v
			}
			if v := cmd.String(artifactFlag.Name); v != "" {
				cfg.Artifact = v
			}

			cmd.Metadata[appConfigKey] = &appConfig{
				Config: cfg,
				Debug:  cmd.Bool(debugFlag.Name),
			}
			return ctx, nil
		},
	}
}

// openDB initializes the training database schema if needed and opens
// it. Only the commands that touch training data call this; predict
// never creates a database file.
func openDB(dbPath string) (*sql.DB, error) {
	if err := data.Init(dbPath); err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	db, err := data.GetDB(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func encode(v any) error {
	e := json.NewEncoder(os.Stdout)
	e.SetIndent("", "  ")
	return e.Encode(v)
}

func since(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
