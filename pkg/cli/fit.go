package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/frauddesk/fraudctl/pkg/data"
	"github.com/frauddesk/fraudctl/pkg/preprocess"
)

var (
	csvFileFlag = &cli.StringFlag{
		Name:  "csv",
		Usage: "Path to the historical applications CSV file",
	}

	importCmd = &cli.Command{
		Name:      "import",
		Aliases:   []string{"i"},
		Usage:     "Import historical application records into the training store",
		UsageText: "fraudctl import --csv data/raw/Base.csv",
		Action:    cmdImport,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     csvFileFlag.Name,
				Usage:    csvFileFlag.Usage,
				Required: true,
			},
		},
	}

	fitCmd = &cli.Command{
		Name:  "fit",
		Usage: "Fit the preprocessor from the training store and persist the artifact",
		UsageText: `fraudctl fit                          # fit from previously imported records
   fraudctl fit --csv data/raw/Base.csv  # import then fit in one step`,
		Action: cmdFit,
		Flags: []cli.Flag{
			csvFileFlag,
		},
	}
)

// ImportResult summarizes one CSV import.
type ImportResult struct {
	Rows     int    `json:"rows"`
	Duration string `json:"duration"`
}

// FitResult summarizes one fit run.
type FitResult struct {
	Rows         int    `json:"rows"`
	VectorLength int    `json:"vector_length"`
	Artifact     string `json:"artifact"`
	Duration     string `json:"duration"`
}

func cmdImport(ctx context.Context, cmd *cli.Command) error {
	start := time.Now()
	cfg := getConfig(cmd)

	db, err := openDB(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("importing applications", "csv", cmd.String(csvFileFlag.Name), "db", cfg.DB)
	n, err := data.ImportCSV(ctx, db, cmd.String(csvFileFlag.Name))
	if err != nil {
		return fmt.Errorf("importing csv: %w", err)
	}

	return encode(ImportResult{Rows: n, Duration: since(start)})
}

func cmdFit(ctx context.Context, cmd *cli.Command) error {
	start := time.Now()
	cfg := getConfig(cmd)

	db, err := openDB(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	if csvPath := cmd.String(csvFileFlag.Name); csvPath != "" {
		slog.Info("importing applications", "csv", csvPath, "db", cfg.DB)
		if _, err := data.ImportCSV(ctx, db, csvPath); err != nil {
			return fmt.Errorf("importing csv: %w", err)
		}
	}

	fitter := preprocess.NewFitter()
	if err := data.ForEachApplication(ctx, db, fitter.Add); err != nil {
		return fmt.Errorf("reading training records: %w", err)
	}
	slog.Info("fitting preprocessor", "rows", fitter.Rows())

	p, err := fitter.Finish()
	if err != nil {
		return fmt.Errorf("fitting preprocessor: %w", err)
	}

	if err := preprocess.Save(cfg.Artifact, p); err != nil {
		return fmt.Errorf("saving artifact: %w", err)
	}
	slog.Info("preprocessor saved", "artifact", cfg.Artifact, "vector_length", p.VectorLength())

	return encode(FitResult{
		Rows:         fitter.Rows(),
		VectorLength: p.VectorLength(),
		Artifact:     cfg.Artifact,
		Duration:     since(start),
	})
}
