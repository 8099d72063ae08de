package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/vburojevic/errjobs/internal/analyzer"
	"github.com/vburojevic/errjobs/internal/domain"
	"github.com/vburojevic/errjobs/internal/output"
	"github.com/vburojevic/errjobs/internal/sbs"
)

// FetchCmd fetches error jobs from SBS and analyzes them
type FetchCmd struct {
	Date string `arg:"" optional:"" help:"Query date (YYYY-MM-DD, default today)"`

	Details     bool   `help:"Also fetch the full system log per queue id for deeper root causes"`
	SaveReport  string `help:"Write the fetched entries to this file (re-analyzable with 'errjobs analyze')"`
	SummaryOnly bool   `help:"Suppress per-entry analyses, print only the aggregated report"`
	Queue       string `help:"Job queue to search (default from config)"`
	Persist     bool   `help:"Save the report to the SQLite database"`
	DB          string `help:"SQLite database path (default from config)"`
}

// Run executes the fetch command
func (c *FetchCmd) Run(globals *Globals) error {
	date := c.Date
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return outputErrorCommon(globals, "BAD_DATE", fmt.Sprintf("invalid query date %q, want YYYY-MM-DD", c.Date))
	}

	sbsCfg := c.clientConfig(globals)
	if sbsCfg.BaseURL == "" {
		return outputErrorCommon(globals, "NO_BASE_URL", "SBS base URL is not configured",
			"set SBS_BASE_URL or sbs.base_url in .errjobs.yaml")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := sbs.NewClient(sbsCfg, globals.Logger)

	records, err := client.SearchJobHistory(ctx, date)
	if err != nil {
		return outputErrorCommon(globals, "FETCH_FAILED", fmt.Sprintf("searchJobHistory: %s", err))
	}
	globals.Debug("fetched %d error job(s) for %s", len(records), date)

	if len(records) == 0 {
		c.writeInfo(globals, fmt.Sprintf("no error jobs found for %s", date), date, sbsCfg.Queue)
		return nil
	}

	fields := make([]domain.ParsedFields, 0, len(records))
	for _, rec := range records {
		fields = append(fields, rec.Fields())
	}

	if c.Details {
		details, err := client.FetchDetails(ctx, sbs.QueueIDs(records))
		if err != nil {
			// Detail enrichment is best effort; the summary-level data
			// already fetched still analyzes.
			c.writeWarning(globals, fmt.Sprintf("system log fetch failed, continuing without detail: %s", err))
		} else {
			mergeDetails(fields, details)
		}
	}

	session := analyzer.NewSession()
	analyses := make([]domain.Analysis, 0, len(fields))
	for i, f := range fields {
		analyses = append(analyses, session.Analyze(i+1, f))
	}
	report := session.Report(date)

	if c.SaveReport != "" {
		if err := writeEntryFile(c.SaveReport, fields); err != nil {
			return outputErrorCommon(globals, "SAVE_FAILED", fmt.Sprintf("cannot write report file: %s", err))
		}
		c.writeInfo(globals, fmt.Sprintf("saved raw report to %s", c.SaveReport), date, sbsCfg.Queue)
	}

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
		if err := persistReport(globals, c.DB, sbsCfg.BaseURL, report, analyses); err != nil {
			return outputErrorCommon(globals, "PERSIST_FAILED", err.Error())
		}
	}

	return nil
}

func (c *FetchCmd) clientConfig(globals *Globals) sbs.Config {
	s := globals.Config.SBS
	cfg := sbs.Config{
		BaseURL:            strings.TrimRight(s.BaseURL, "/"),
		Username:           s.Username,
		Country:            s.Country,
		Language:           s.Language,
		DatabaseID:         s.DatabaseID,
		Queue:              s.Queue,
		InsecureSkipVerify: s.NoVerifySSL,
		DetailConcurrency:  s.DetailConcurrency,
	}
	if c.Queue != "" {
		cfg.Queue = c.Queue
	}
	return cfg
}

func (c *FetchCmd) writeInfo(globals *Globals, message, date, queue string) {
	if globals.Quiet {
		return
	}
	if globals.Format == "ndjson" {
		output.NewNDJSONWriter(globals.Stdout).WriteInfo(message, date, queue)
	} else {
		fmt.Fprintln(globals.Stderr, message)
	}
}

func (c *FetchCmd) writeWarning(globals *Globals, message string) {
	if globals.Format == "ndjson" {
		output.NewNDJSONWriter(globals.Stdout).WriteWarning(message)
	} else {
		fmt.Fprintf(globals.Stderr, "Warning: %s\n", message)
	}
}

// mergeDetails appends system-log long text to the matching summary records
// so the root-cause scan sees the full stack trace.
func mergeDetails(fields []domain.ParsedFields, details map[string][]sbs.JobRecord) {
	for i := range fields {
		recs, ok := details[fields[i].QueueID]
		if !ok {
			continue
		}
		var extra strings.Builder
		for _, rec := range recs {
			if rec.LongText == "" {
				continue
			}
			extra.WriteString("\n")
			extra.WriteString(rec.LongText)
		}
		fields[i].LongText += extra.String()
	}
}

func writeEntryFile(path string, fields []domain.ParsedFields) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := output.NewPlainRenderer(f).WriteEntryBlocks(fields); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
