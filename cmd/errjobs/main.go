package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vburojevic/errjobs/internal/cli"
	"github.com/vburojevic/errjobs/internal/config"
)

func main() {
	// Load configuration from files/environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}

	var c cli.CLI

	// Config defaults apply before parsing and lose to explicit flags
	vars := kong.Vars{
		"config_format": cfg.Format,
	}

	ctx := kong.Parse(&c,
		kong.Name("errjobs"),
		kong.Description("Analyze SBS error jobs: root causes, per-process aggregates and remediation hints\n\nSTART HERE: errjobs fetch --details, or errjobs analyze <report.txt>"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		vars,
	)

	logger, err := buildLogger(c.Verbose || cfg.Verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	globals := cli.NewGlobals(&c, cfg, logger)
	if err := ctx.Run(globals); err != nil {
		os.Exit(1)
	}
}

// buildLogger returns a production logger on stderr; verbose lowers the
// level to debug. Stdout stays reserved for command output.
func buildLogger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.OutputPaths = []string{"stderr"}
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zc.Build()
}
