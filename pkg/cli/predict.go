package cli

import (
	"context"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/frauddesk/fraudctl/pkg/pipeline"
)

var (
	endpointFlag = &cli.StringFlag{
		Name:  "endpoint",
		Usage: "Scoring service prediction URL",
	}

	timeoutFlag = &cli.IntFlag{
		Name:  "timeout",
		Usage: "Scoring request timeout in seconds",
	}

	predictCmd = &cli.Command{
		Name:      "predict",
		Aliases:   []string{"p"},
		Usage:     "Score one application record read as JSON from stdin",
		UsageText: `echo '{"income": 60000, "payment_type": "AB", ...}' | fraudctl predict`,
		Action:    cmdPredict,
		Flags: []cli.Flag{
			endpointFlag,
			timeoutFlag,
		},
	}
)

func cmdPredict(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	if v := cmd.String(endpointFlag.Name); v != "" {
		cfg.Endpoint = v
	}
	if v := int(cmd.Int(timeoutFlag.Name)); v > 0 {
		cfg.TimeoutSeconds = v
	}

	code := pipeline.Run(ctx, pipeline.Options{
		ArtifactPath: cfg.Artifact,
		Endpoint:     cfg.Endpoint,
		Timeout:      time.Duration(cfg.TimeoutSeconds) * time.Second,
		Stdin:        os.Stdin,
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
	})
	if code != 0 {
		return cli.Exit("", code)
	}
	return nil
}
