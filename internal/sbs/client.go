package sbs

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	searchJobHistoryPath = "/sbs/systemService/searchJobHistory"
	getSystemLogPath     = "/sbs/systemService/getSystemLog"

	maxAttempts  = 3
	retryBackoff = 2 * time.Second
)

// Config is the connection and caller identity for one SBS instance.
type Config struct {
	BaseURL    string
	Username   string
	Country    string
	Language   string
	DatabaseID string

	// Queue is the job queue to search; defaults to GENQ.
	Queue string

	// InsecureSkipVerify disables TLS certificate verification for
	// self-signed test environments.
	InsecureSkipVerify bool

	Timeout time.Duration

	// Detail fetch tuning: concurrent getSystemLog calls and the pause
	// between launching them.
	DetailConcurrency int
	DetailPacing      time.Duration
}

func (c Config) withDefaults() Config {
	if c.Queue == "" {
		c.Queue = "GENQ"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.DetailConcurrency <= 0 {
		c.DetailConcurrency = 4
	}
	return c
}

type callerDetails struct {
	Username           string `json:"username"`
	Country            string `json:"country"`
	Language           string `json:"language"`
	DatabaseIdentifier string `json:"databaseIdentifier"`
}

type searchRequest struct {
	CallerDetails callerDetails `json:"callerDetails"`
	StartDate     string        `json:"startDate"`
	EndDate       string        `json:"endDate"`
	Status        string        `json:"status"`
	Queue         struct {
		Name string `json:"name"`
	} `json:"queue"`
}

type systemLogRequest struct {
	CallerDetails callerDetails `json:"callerDetails"`
	QueueID       string        `json:"queueId"`
}

// Client queries the SBS job-history API. Transport and HTTP errors fail the
// caller; retryable failures are re-attempted with a fixed backoff.
type Client struct {
	cfg    Config
	http   *http.Client
	clock  clock.Clock
	logger *zap.Logger
}

// NewClient creates an API client for the configured SBS instance.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := http.DefaultTransport
	if cfg.InsecureSkipVerify {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		transport = t
	}

	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout, Transport: transport},
		clock:  clock.New(),
		logger: logger,
	}
}

func (c *Client) caller() callerDetails {
	return callerDetails{
		Username:           c.cfg.Username,
		Country:            c.cfg.Country,
		Language:           c.cfg.Language,
		DatabaseIdentifier: c.cfg.DatabaseID,
	}
}

// SearchJobHistory returns the error-job records for one UTC day.
func (c *Client) SearchJobHistory(ctx context.Context, date string) ([]JobRecord, error) {
	req := searchRequest{
		CallerDetails: c.caller(),
		StartDate:     date + "T00:00:00.000Z",
		EndDate:       date + "T23:59:59.000Z",
		Status:        "ERR",
	}
	req.Queue.Name = c.cfg.Queue

	body, err := c.post(ctx, searchJobHistoryPath, req)
	if err != nil {
		return nil, err
	}
	return decodeRecords(body, "searchResults")
}

// SystemLog returns the long-form log detail for one queue entry.
func (c *Client) SystemLog(ctx context.Context, queueID string) ([]JobRecord, error) {
	body, err := c.post(ctx, getSystemLogPath, systemLogRequest{
		CallerDetails: c.caller(),
		QueueID:       queueID,
	})
	if err != nil {
		return nil, err
	}
	return decodeRecords(body, "systemLogs")
}

// FetchDetails retrieves system-log detail for every queue id, with bounded
// concurrency and paced launches so the operational system is not hammered.
// Results come back keyed by queue id in input order within the map.
func (c *Client) FetchDetails(ctx context.Context, queueIDs []string) (map[string][]JobRecord, error) {
	details := make(map[string][]JobRecord, len(queueIDs))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.DetailConcurrency)

	for i, id := range queueIDs {
		if i > 0 && c.cfg.DetailPacing > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-c.clock.After(c.cfg.DetailPacing):
			}
		}

		id := id
		g.Go(func() error {
			records, err := c.SystemLog(ctx, id)
			if err != nil {
				return fmt.Errorf("queue %s: %w", id, err)
			}
			mu.Lock()
			details[id] = records
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return details, nil
}

// QueueIDs extracts the distinct queue ids from a record set, sorted for a
// stable fetch order.
func QueueIDs(records []JobRecord) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, r := range records {
		if r.QueueID != "" && !seen[r.QueueID] {
			seen[r.QueueID] = true
			ids = append(ids, r.QueueID)
		}
	}
	sort.Strings(ids)
	return ids
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	url := c.cfg.BaseURL + path

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			c.logger.Debug("retrying request",
				zap.String("url", url),
				zap.Int("attempt", attempt))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-c.clock.After(retryBackoff):
			}
		}

		respBody, retryable, err := c.doPost(ctx, url, body)
		if err == nil {
			return respBody, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, lastErr
}

// doPost performs one request. Server-side failures (5xx) and transport
// errors are retryable; client errors are not.
func (c *Client) doPost(ctx context.Context, url string, body []byte) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("calling api", zap.String("url", url))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("request %s: HTTP %d", url, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("request %s: HTTP %d", url, resp.StatusCode)
	}
	return respBody, false, nil
}
