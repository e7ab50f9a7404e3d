// Package remote implements the HTTP client for the authoritative record
// store. It maps the wire format to the domain Record shape, classifies HTTP
// failures, and bounds every request with an explicit timeout. Retry policy
// belongs to the caller, not here.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/yorutsuke/ledgersync/internal/logging"
	"github.com/yorutsuke/ledgersync/internal/models"
)

const (
	defaultFetchTimeout     = 10 * time.Second
	defaultFullFetchTimeout = 20 * time.Second
	defaultPageLimit        = 100
)

// Client is the read/write surface of the remote record store.
type Client interface {
	// Fetch reads the owner's records, optionally windowed, following
	// cursor pagination until exhausted.
	Fetch(ctx context.Context, ownerID string, opts FetchOptions) ([]*models.Record, error)

	// FetchAll reads the owner's full record set under the longer
	// full-fetch timeout. Used by bulk recovery.
	FetchAll(ctx context.Context, ownerID string) ([]*models.Record, error)

	// Push writes records best-effort; the remote may accept a subset.
	Push(ctx context.Context, ownerID string, records []*models.Record) (*PushResult, error)
}

// FetchOptions narrows a Fetch. Zero values mean unbounded.
type FetchOptions struct {
	From   time.Time
	To     time.Time
	Status models.Status
}

// PushResult is the remote acknowledgement of a batch write.
type PushResult struct {
	Succeeded int
	FailedIDs []string
}

// Config holds connection settings for the remote store. It is passed in
// explicitly so the orchestrators above stay deterministic and testable.
type Config struct {
	BaseURL  string
	APIToken string

	// FetchTimeout bounds a single request; FullFetchTimeout bounds the
	// whole unfiltered fetch.
	FetchTimeout     time.Duration
	FullFetchTimeout time.Duration

	PageLimit int

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// HTTPClient implements Client over JSON/HTTP. It holds no mutable state
// beyond configuration and is safe for concurrent use.
type HTTPClient struct {
	cfg  Config
	http *http.Client
	log  logging.Logger
}

func New(cfg Config, log logging.Logger) *HTTPClient {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.FullFetchTimeout <= 0 {
		cfg.FullFetchTimeout = defaultFullFetchTimeout
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = defaultPageLimit
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &HTTPClient{cfg: cfg, http: hc, log: log}
}

func (c *HTTPClient) Fetch(ctx context.Context, ownerID string, opts FetchOptions) ([]*models.Record, error) {
	return c.fetchPages(ctx, ownerID, opts)
}

func (c *HTTPClient) FetchAll(ctx context.Context, ownerID string) ([]*models.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.FullFetchTimeout)
	defer cancel()
	return c.fetchPages(ctx, ownerID, FetchOptions{})
}

func (c *HTTPClient) fetchPages(ctx context.Context, ownerID string, opts FetchOptions) ([]*models.Record, error) {
	req := fetchRequest{
		OwnerID:      ownerID,
		StatusFilter: string(opts.Status),
		Limit:        c.cfg.PageLimit,
	}
	if !opts.From.IsZero() || !opts.To.IsZero() {
		req.DateRange = &dateRange{}
		if !opts.From.IsZero() {
			req.DateRange.From = opts.From.UTC().Format(dateLayout)
		}
		if !opts.To.IsZero() {
			req.DateRange.To = opts.To.UTC().Format(dateLayout)
		}
	}

	var result []*models.Record
	for {
		var page fetchResponse
		if err := c.do(ctx, "/v1/records/query", req, &page); err != nil {
			return nil, err
		}

		records, err := decodeRecords(page.Records)
		if err != nil {
			return nil, err
		}
		result = append(result, records...)

		if page.NextCursor == "" {
			return result, nil
		}
		req.Cursor = page.NextCursor
	}
}

func (c *HTTPClient) Push(ctx context.Context, ownerID string, records []*models.Record) (*PushResult, error) {
	req := pushRequest{OwnerID: ownerID, Records: make([]*wireRecord, 0, len(records))}
	for _, r := range records {
		req.Records = append(req.Records, encodeRecord(r))
	}

	var resp pushResponse
	if err := c.do(ctx, "/v1/records/push", req, &resp); err != nil {
		return nil, err
	}

	if resp.SucceededCount < 0 || resp.SucceededCount > len(records) {
		return nil, protocolErr("succeededCount", "implausible value %d for batch of %d",
			resp.SucceededCount, len(records))
	}
	return &PushResult{Succeeded: resp.SucceededCount, FailedIDs: resp.FailedIDs}, nil
}

// do posts body to path and strictly decodes the response into out. The
// request races against FetchTimeout, independent of transport settings, so
// a stalled network cannot wedge a sync invocation.
func (c *HTTPClient) do(ctx context.Context, path string, body any, out any) error {
	if err := checkToken(c.cfg.APIToken); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Timeouts and transport failures are both retryable outages.
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn(ctx, "remote request failed", "path", path, "status", resp.StatusCode)
		return classifyStatus(resp.StatusCode)
	}

	dec := json.NewDecoder(resp.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return protocolErr("body", "malformed response: %v", err)
	}
	return nil
}
