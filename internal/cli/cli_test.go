package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vburojevic/errjobs/internal/config"
)

// testGlobals creates a Globals struct with captured stdout/stderr
func testGlobals(format string) (*Globals, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return &Globals{
		Format: format,
		Stdout: stdout,
		Stderr: stderr,
		Config: config.Default(),
		Logger: zap.NewNop(),
	}, stdout, stderr
}

const sampleReportText = `Log Entry #1

Queue ID: 1001
Log ID: 555001
Created: 2026-08-28 07:15:02 by SYSTEM
Process: Disinvest
Message Code: JOBFAIL

Error Message:
Could not process disinvestment

Caused by: PersistenceException: ERROR: Fee amount unallocated
    at deployment.sonata.ear//bravura.fees.FeeService(FeeService.java:120)

Log Entry #2

Queue ID: 1002
Process: Disinvest
`

// --- Analyze Command Tests ---

func TestAnalyzeCmd_Run(t *testing.T) {
	writeReport := func(t *testing.T) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "report.txt")
		require.NoError(t, os.WriteFile(path, []byte(sampleReportText), 0644))
		return path
	}

	t.Run("errors on missing file", func(t *testing.T) {
		globals, _, stderr := testGlobals("text")
		cmd := &AnalyzeCmd{File: filepath.Join(t.TempDir(), "missing.txt")}

		err := cmd.Run(globals)
		require.Error(t, err)
		assert.Contains(t, stderr.String(), "FILE_NOT_FOUND")
	})

	t.Run("errors on empty file", func(t *testing.T) {
		globals, _, _ := testGlobals("text")
		path := filepath.Join(t.TempDir(), "empty.txt")
		require.NoError(t, os.WriteFile(path, nil, 0644))

		err := (&AnalyzeCmd{File: path}).Run(globals)
		assert.Error(t, err)
	})

	t.Run("missing file error is NDJSON in ndjson format", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &AnalyzeCmd{File: filepath.Join(t.TempDir(), "missing.txt")}

		err := cmd.Run(globals)
		require.Error(t, err)

		var out map[string]interface{}
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
		assert.Equal(t, "error", out["type"])
		assert.Equal(t, "FILE_NOT_FOUND", out["code"])
	})

	t.Run("analyzes report file in text format", func(t *testing.T) {
		globals, stdout, _ := testGlobals("text")
		cmd := &AnalyzeCmd{File: writeReport(t)}

		err := cmd.Run(globals)
		require.NoError(t, err)

		out := stdout.String()
		assert.Contains(t, out, "Log Entry #1")
		assert.Contains(t, out, "PersistenceException: ERROR: Fee amount unallocated")
		assert.Contains(t, out, "Process: Disinvest")
		assert.Contains(t, out, "Total Error Jobs: 2")
	})

	t.Run("emits one NDJSON analysis per entry plus a report", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &AnalyzeCmd{File: writeReport(t), Date: "2026-08-28"}

		err := cmd.Run(globals)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n")
		require.Len(t, lines, 3)

		var first map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
		assert.Equal(t, "analysis", first["type"])
		assert.Equal(t, "1001", first["queueId"])

		var last map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(lines[2]), &last))
		assert.Equal(t, "report", last["type"])
		assert.Equal(t, "2026-08-28", last["queryDate"])
		assert.Equal(t, float64(2), last["totalErrors"])
	})

	t.Run("summary-only suppresses per-entry records", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &AnalyzeCmd{File: writeReport(t), SummaryOnly: true}

		require.NoError(t, cmd.Run(globals))

		lines := strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n")
		require.Len(t, lines, 1)
		var out map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &out))
		assert.Equal(t, "report", out["type"])
	})

	t.Run("persists the run to sqlite", func(t *testing.T) {
		globals, _, _ := testGlobals("ndjson")
		dbPath := filepath.Join(t.TempDir(), "runs.db")
		cmd := &AnalyzeCmd{File: writeReport(t), Date: "2026-08-28", Persist: true, DB: dbPath}

		require.NoError(t, cmd.Run(globals))

		info, err := os.Stat(dbPath)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	})
}

// --- Fetch Command Tests ---

func TestFetchCmd_Run(t *testing.T) {
	t.Run("rejects malformed date", func(t *testing.T) {
		globals, _, stderr := testGlobals("text")
		cmd := &FetchCmd{Date: "28-08-2026"}

		err := cmd.Run(globals)
		require.Error(t, err)
		assert.Contains(t, stderr.String(), "BAD_DATE")
	})

	t.Run("requires a base URL", func(t *testing.T) {
		globals, _, stderr := testGlobals("text")
		globals.Config.SBS.BaseURL = ""
		cmd := &FetchCmd{Date: "2026-08-28"}

		err := cmd.Run(globals)
		require.Error(t, err)
		assert.Contains(t, stderr.String(), "NO_BASE_URL")
	})
}

func TestFetchCmd_clientConfig(t *testing.T) {
	globals, _, _ := testGlobals("text")
	globals.Config.SBS.BaseURL = "https://sbs.example/api/"
	globals.Config.SBS.Queue = "GENQ"

	cmd := &FetchCmd{Queue: "BATCHQ"}
	cfg := cmd.clientConfig(globals)

	assert.Equal(t, "https://sbs.example/api", cfg.BaseURL, "trailing slash is trimmed")
	assert.Equal(t, "BATCHQ", cfg.Queue, "flag wins over config")
}

// --- Config Command Tests ---

func TestConfigShowCmd_Run(t *testing.T) {
	t.Run("outputs config in text format", func(t *testing.T) {
		globals, stdout, _ := testGlobals("text")

		err := (&ConfigShowCmd{}).Run(globals)
		require.NoError(t, err)

		out := stdout.String()
		assert.Contains(t, out, "Current Configuration:")
		assert.Contains(t, out, "SBS:")
		assert.Contains(t, out, "queue:")
		assert.Contains(t, out, "Store:")
	})

	t.Run("outputs config in NDJSON format", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")

		err := (&ConfigShowCmd{}).Run(globals)
		require.NoError(t, err)

		var result map[string]interface{}
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
		assert.Equal(t, "config", result["type"])
		assert.Contains(t, result, "sbs")
		assert.Contains(t, result, "store")
	})
}

// --- Version Command Tests ---

func TestVersionCmd_Run(t *testing.T) {
	t.Run("text format", func(t *testing.T) {
		globals, stdout, _ := testGlobals("text")
		require.NoError(t, (&VersionCmd{}).Run(globals))
		assert.Contains(t, stdout.String(), "errjobs version")
	})

	t.Run("ndjson format", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		require.NoError(t, (&VersionCmd{}).Run(globals))

		var out map[string]interface{}
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
		assert.Equal(t, "version", out["type"])
	})
}
