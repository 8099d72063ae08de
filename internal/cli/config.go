package cli

import (
	"encoding/json"
	"fmt"

	"github.com/vburojevic/errjobs/internal/config"
)

// ConfigCmd shows configuration
type ConfigCmd struct {
	Show ConfigShowCmd `cmd:"" default:"withargs" help:"Show current configuration"`
	Path ConfigPathCmd `cmd:"" help:"Show configuration file path"`
}

// ConfigShowCmd shows current configuration
type ConfigShowCmd struct{}

// Run executes the config show command
func (c *ConfigShowCmd) Run(globals *Globals) error {
	cfg := globals.Config
	if cfg == nil {
		cfg = config.Default()
	}

	if globals.Format == "ndjson" {
		out := map[string]interface{}{
			"type":    "config",
			"format":  cfg.Format,
			"quiet":   cfg.Quiet,
			"verbose": cfg.Verbose,
			"sbs": map[string]interface{}{
				"base_url":           cfg.SBS.BaseURL,
				"username":           cfg.SBS.Username,
				"country":            cfg.SBS.Country,
				"language":           cfg.SBS.Language,
				"database_id":        cfg.SBS.DatabaseID,
				"queue":              cfg.SBS.Queue,
				"no_verify_ssl":      cfg.SBS.NoVerifySSL,
				"detail_concurrency": cfg.SBS.DetailConcurrency,
			},
			"store": map[string]interface{}{"path": cfg.Store.Path},
		}
		return json.NewEncoder(globals.Stdout).Encode(out)
	}

	fmt.Fprintln(globals.Stdout, "Current Configuration:")
	fmt.Fprintln(globals.Stdout, "")
	fmt.Fprintf(globals.Stdout, "  format:  %s\n", cfg.Format)
	fmt.Fprintf(globals.Stdout, "  quiet:   %v\n", cfg.Quiet)
	fmt.Fprintf(globals.Stdout, "  verbose: %v\n", cfg.Verbose)
	fmt.Fprintln(globals.Stdout, "")
	fmt.Fprintln(globals.Stdout, "SBS:")
	fmt.Fprintf(globals.Stdout, "  base_url:           %s\n", cfg.SBS.BaseURL)
	fmt.Fprintf(globals.Stdout, "  username:           %s\n", cfg.SBS.Username)
	fmt.Fprintf(globals.Stdout, "  country:            %s\n", cfg.SBS.Country)
	fmt.Fprintf(globals.Stdout, "  language:           %s\n", cfg.SBS.Language)
	fmt.Fprintf(globals.Stdout, "  database_id:        %s\n", cfg.SBS.DatabaseID)
	fmt.Fprintf(globals.Stdout, "  queue:              %s\n", cfg.SBS.Queue)
	fmt.Fprintf(globals.Stdout, "  no_verify_ssl:      %v\n", cfg.SBS.NoVerifySSL)
	fmt.Fprintf(globals.Stdout, "  detail_concurrency: %d\n", cfg.SBS.DetailConcurrency)
	fmt.Fprintln(globals.Stdout, "")
	fmt.Fprintln(globals.Stdout, "Store:")
	fmt.Fprintf(globals.Stdout, "  path: %s\n", cfg.Store.Path)

	return nil
}

// ConfigPathCmd shows configuration file path
type ConfigPathCmd struct{}

// Run executes the config path command
func (c *ConfigPathCmd) Run(globals *Globals) error {
	path := config.ConfigFile()
	if path == "" {
		fmt.Fprintln(globals.Stdout, "No configuration file found")
		fmt.Fprintln(globals.Stdout, "Searched: ./.errjobs.yaml, ~/.errjobs.yaml, ~/.config/errjobs/, /etc/errjobs/")
		return nil
	}
	fmt.Fprintln(globals.Stdout, path)
	return nil
}
