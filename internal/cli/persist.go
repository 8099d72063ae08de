package cli

import (
	"fmt"

	"github.com/vburojevic/errjobs/internal/domain"
	"github.com/vburojevic/errjobs/internal/store"
)

// persistReport saves one analysis run, its aggregates and its per-entry
// records to the configured SQLite database.
func persistReport(globals *Globals, dbPath, source string, report domain.Report, analyses []domain.Analysis) error {
	if dbPath == "" {
		dbPath = globals.Config.Store.Path
	}

	st, err := store.Open(dbPath, globals.Logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			globals.Debug("failed to close store: %v", err)
		}
	}()

	runID, err := st.InsertRun(source, report.QueryDate)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	if err := st.SaveReport(runID, report); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	if err := st.SaveAnalyses(runID, analyses); err != nil {
		return fmt.Errorf("save analyses: %w", err)
	}

	globals.Debug("persisted run %d to %s", runID, dbPath)
	return nil
}
