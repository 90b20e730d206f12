// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

// Package supabase fetches CRM tables from the Supabase PostgREST API.
//
// The client reads three tables — events, contacts (with the embedded
// company name) and companies — and assembles them into one snapshot for
// the analytics pipeline. Requests are rate limited and, through
// CircuitBreakerClient, protected against a failing upstream.
package supabase

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/konfetti-app/konfetti-analytics/internal/config"
	"github.com/konfetti-app/konfetti-analytics/internal/models"
)

// maxErrorBodySize bounds how much of an error response body is read for
// diagnostics, preventing unbounded allocation on large error pages.
const maxErrorBodySize = 64 * 1024

// readBodyForError reads a response body for error reporting, truncated at
// maxErrorBodySize.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// SnapshotFetcher is the upstream dependency of the refresher. Implemented
// by Client and CircuitBreakerClient, and by mocks in tests.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context) (*models.Snapshot, error)
	Ping(ctx context.Context) error
}

// Client talks to the Supabase PostgREST API with the service-role key.
//
// Bulk table reads page through limit/offset windows; an optional token
// bucket limiter spaces requests out. Safe for concurrent use.
type Client struct {
	baseURL    string
	serviceKey string
	client     *http.Client
	limiter    *rate.Limiter
	pageSize   int
	now        func() time.Time
}

// NewClient creates a Supabase client from configuration.
func NewClient(cfg *config.SupabaseConfig) *Client {
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		baseURL:    cfg.URL,
		serviceKey: cfg.ServiceKey,
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
		pageSize:   cfg.PageSize,
		now:        time.Now,
	}
}

// Ping verifies connectivity by requesting a zero-row read of companies.
func (c *Client) Ping(ctx context.Context) error {
	params := url.Values{}
	params.Set("select", "id")
	params.Set("limit", "1")

	var probe []models.Company
	return c.get(ctx, "companies", params, &probe)
}

// FetchSnapshot reads all three CRM tables and assembles them into a
// consistent snapshot stamped with the fetch time.
func (c *Client) FetchSnapshot(ctx context.Context) (*models.Snapshot, error) {
	events, err := c.FetchEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}
	contacts, err := c.FetchContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch contacts: %w", err)
	}
	companies, err := c.FetchCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch companies: %w", err)
	}

	return &models.Snapshot{
		Events:    events,
		Contacts:  contacts,
		Companies: companies,
		FetchedAt: c.now().UTC(),
	}, nil
}

// FetchEvents reads the full events table.
func (c *Client) FetchEvents(ctx context.Context) ([]models.Event, error) {
	return fetchAll[models.Event](ctx, c, "events", "*")
}

// FetchContacts reads the full contacts table with each contact's company
// name embedded, the PostgREST equivalent of a join on company_id.
func (c *Client) FetchContacts(ctx context.Context) ([]models.Contact, error) {
	return fetchAll[models.Contact](ctx, c, "contacts", "*,companies(name)")
}

// FetchCompanies reads the full companies table.
func (c *Client) FetchCompanies(ctx context.Context) ([]models.Company, error) {
	return fetchAll[models.Company](ctx, c, "companies", "*")
}

// fetchAll pages through a table until a short page signals the end.
func fetchAll[T any](ctx context.Context, c *Client, table, selectClause string) ([]T, error) {
	var all []T
	offset := 0

	for {
		params := url.Values{}
		params.Set("select", selectClause)
		params.Set("limit", fmt.Sprintf("%d", c.pageSize))
		params.Set("offset", fmt.Sprintf("%d", offset))
		params.Set("order", "id.asc")

		var page []T
		if err := c.get(ctx, table, params, &page); err != nil {
			return nil, err
		}

		all = append(all, page...)
		if len(page) < c.pageSize {
			return all, nil
		}
		offset += c.pageSize
	}
}

// get performs one authenticated PostgREST read and decodes the JSON array
// response into result.
func (c *Client) get(ctx context.Context, table string, params url.Values, result interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	reqURL := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, table, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return fmt.Errorf("%s request returned HTTP %d: %s", table, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", table, err)
	}
	return nil
}
