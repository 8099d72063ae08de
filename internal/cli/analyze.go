package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/vburojevic/errjobs/internal/analyzer"
	"github.com/vburojevic/errjobs/internal/output"
)

// AnalyzeCmd analyzes a saved error report file
type AnalyzeCmd struct {
	File string `arg:"" required:"" help:"Error report text file to analyze"`

	SummaryOnly bool   `help:"Suppress per-entry analyses, print only the aggregated report"`
	Date        string `help:"Query date to record in the report (YYYY-MM-DD)"`
	Persist     bool   `help:"Save the report to the SQLite database"`
	DB          string `help:"SQLite database path (default from config)"`
}

// Run executes the analyze command
func (c *AnalyzeCmd) Run(globals *Globals) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return outputErrorCommon(globals, "FILE_NOT_FOUND", fmt.Sprintf("cannot read file: %s", err))
	}
	if len(data) == 0 {
		return outputErrorCommon(globals, "EMPTY_FILE", "report file is empty")
	}

	session := analyzer.NewSession()
	analyses := session.AnalyzeText(string(data))
	report := session.Report(c.Date)

	globals.Debug("analyzed %d log units from %s", len(analyses), c.File)

	if globals.Format == "ndjson" {
		w := output.NewNDJSONWriter(globals.Stdout)
		if !c.SummaryOnly {
			for _, a := range analyses {
				if err := w.WriteAnalysis(a); err != nil {
					return err
				}
			}
		}
		if err := w.WriteReport(report); err != nil {
			return err
		}
	} else {
		r := output.NewRenderer(globals.Stdout)
		if !c.SummaryOnly {
			for _, a := range analyses {
				if err := r.WriteAnalysis(a); err != nil {
					return err
				}
			}
		}
		if err := r.WriteReport(report, time.Now()); err != nil {
			return err
		}
	}

	if c.Persist {
		if err := persistReport(globals, c.DB, "file://"+c.File, report, analyses); err != nil {
			return outputErrorCommon(globals, "PERSIST_FAILED", err.Error())
		}
	}

	return nil
}

