package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/quarterchat/match-server-go/internal/errors"
)

const (
	DefaultBaseURL = "https://api.airtable.com/v0"

	requestTimeout = 10 * time.Second

	// How much of an error body to keep for diagnostics.
	errBodyPreview = 200
)

// Record is one row of the backing table. Fields arrive as the provider
// stored them; use the Field* readers to normalize them.
type Record struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Client talks to the Airtable REST API for a single base and table.
// Construct one per process and share it; it is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	baseID     string
	table      string
}

type ClientConfig struct {
	Token  string
	BaseID string
	Table  string
	// BaseURL overrides the API endpoint; tests point it at a local server.
	BaseURL string
}

func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      cfg.Token,
		baseID:     cfg.BaseID,
		table:      cfg.Table,
	}
}

// EscapeFormulaValue neutralizes a value interpolated into a filterByFormula
// expression so a hostile identifier cannot break out of the string literal.
func EscapeFormulaValue(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `'`, `\'`)
}

func (c *Client) tableURL() string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.baseID, url.PathEscape(c.table))
}

// FindFirstByField looks up the first record whose field equals value.
// Returns nil without error when no record matches.
func (c *Client) FindFirstByField(ctx context.Context, field, value string) (*Record, error) {
	formula := fmt.Sprintf("{%s}='%s'", field, EscapeFormulaValue(value))

	reqURL := c.tableURL() +
		"?filterByFormula=" + url.QueryEscape(formula) +
		"&maxRecords=1"

	var result struct {
		Records []Record `json:"records"`
	}
	if err := c.do(ctx, http.MethodGet, reqURL, nil, &result); err != nil {
		return nil, err
	}

	if len(result.Records) == 0 {
		return nil, nil
	}
	return &result.Records[0], nil
}

// CreateRecord inserts a new record with the given field set.
func (c *Client) CreateRecord(ctx context.Context, fields map[string]any) (*Record, error) {
	body := map[string]any{
		"records": []map[string]any{{"fields": fields}},
	}

	var result struct {
		Records []Record `json:"records"`
	}
	if err := c.do(ctx, http.MethodPost, c.tableURL(), body, &result); err != nil {
		return nil, err
	}

	if len(result.Records) == 0 {
		return nil, apperrors.Upstream("airtable", 0, fmt.Errorf("create returned no records"))
	}
	return &result.Records[0], nil
}

// PatchRecord updates only the named fields of an existing record.
func (c *Client) PatchRecord(ctx context.Context, recordID string, fields map[string]any) (*Record, error) {
	reqURL := c.tableURL() + "/" + url.PathEscape(recordID)
	body := map[string]any{"fields": fields}

	var result Record
	if err := c.do(ctx, http.MethodPatch, reqURL, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, reqURL string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		log.Error().
			Err(err).
			Str("method", method).
			Dur("elapsed", elapsed).
			Msg("airtable request error")
		return apperrors.Upstream("airtable", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyPreview))
		log.Error().
			Str("method", method).
			Int("status", resp.StatusCode).
			Dur("elapsed", elapsed).
			Str("body", string(preview)).
			Msg("airtable request rejected")
		return apperrors.Upstream("airtable", resp.StatusCode,
			fmt.Errorf("status %d: %s", resp.StatusCode, string(preview)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperrors.Upstream("airtable", resp.StatusCode, fmt.Errorf("decode response: %w", err))
		}
	}
	return nil
}
