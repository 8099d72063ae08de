// Package cli wires the errjobs commands: analyzing saved report files,
// fetching error jobs straight from SBS, and inspecting configuration.
package cli

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/vburojevic/errjobs/internal/config"
)

// CLI is the root command structure for errjobs
type CLI struct {
	// Global flags
	Format  string `short:"f" default:"${config_format}" enum:"text,ndjson" help:"Output format"`
	Quiet   bool   `short:"q" help:"Suppress informational output (only emit results)"`
	Verbose bool   `short:"v" help:"Show debug output (requests, retries, internal state)"`

	// Commands
	Analyze AnalyzeCmd `cmd:"" help:"Analyze a saved error report file"`
	Fetch   FetchCmd   `cmd:"" help:"Fetch error jobs from SBS and analyze them"`
	Config  ConfigCmd  `cmd:"" help:"Show configuration"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

// Globals holds shared state for all commands
type Globals struct {
	Format  string
	Quiet   bool
	Verbose bool
	Stdout  io.Writer
	Stderr  io.Writer
	Config  *config.Config
	Logger  *zap.Logger
}

// NewGlobals creates a new Globals instance from CLI flags and loaded config
func NewGlobals(cli *CLI, cfg *config.Config, logger *zap.Logger) *Globals {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Globals{
		Format:  cli.Format,
		Quiet:   cli.Quiet,
		Verbose: cli.Verbose,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Config:  cfg,
		Logger:  logger,
	}

	// Config file values stand in where flags weren't given
	if !cli.Quiet && cfg.Quiet {
		g.Quiet = true
	}
	if !cli.Verbose && cfg.Verbose {
		g.Verbose = true
	}

	return g
}

// Debug prints a debug message if verbose mode is enabled
func (g *Globals) Debug(format string, args ...interface{}) {
	if g.Verbose {
		fmt.Fprintf(g.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// VersionCmd shows version information
type VersionCmd struct{}

// Run executes the version command
func (v *VersionCmd) Run(globals *Globals) error {
	if globals.Format == "ndjson" {
		io.WriteString(globals.Stdout, `{"type":"version","version":"`+Version+`","commit":"`+Commit+`"}`+"\n")
	} else {
		io.WriteString(globals.Stdout, "errjobs version "+Version+" ("+Commit+")\n")
	}
	return nil
}

// Version information (set at build time)
var (
	Version = "dev"
	Commit  = "none"
)
