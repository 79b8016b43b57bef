// ABOUTME: HTTP client for the Notion API implementing the API interface.
// ABOUTME: Handles auth headers, JSON round trips, and mapping remote failures to the error taxonomy.

package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	apierr "github.com/2389/notebridge/internal/errors"
)

const (
	// DefaultBaseURL is the production Notion API endpoint.
	DefaultBaseURL = "https://api.notion.com"

	// Version is the Notion-Version header sent with every request.
	Version = "2022-06-28"

	searchPageSize = 100
)

// Client is the concrete API implementation.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different endpoint (tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient builds a client authenticating with token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    DefaultBaseURL,
		token:      token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ API = (*Client)(nil)

// NormalizeID validates that value resembles a Notion object id (a UUID,
// dashed or not) and returns it trimmed. Anything else is a validation
// failure naming the offending field.
func NormalizeID(field, value string) (string, error) {
	candidate := strings.TrimSpace(value)
	if candidate == "" {
		return "", apierr.E(apierr.KindValidation, "%s must be provided", field)
	}
	if _, err := uuid.Parse(candidate); err != nil {
		return "", apierr.E(apierr.KindValidation, "%s must resemble a UUID", field)
	}
	return candidate, nil
}

// IsID reports whether value parses as a Notion object id. Used by the
// dispatcher to decide between id and name resolution.
func IsID(value string) bool {
	_, err := uuid.Parse(strings.TrimSpace(value))
	return err == nil
}

func (c *Client) FindByExactTitle(ctx context.Context, name string) ([]Object, error) {
	var matches []Object
	cursor := ""
	for {
		payload := map[string]any{"query": name, "page_size": searchPageSize}
		if cursor != "" {
			payload["start_cursor"] = cursor
		}
		var result struct {
			Results    []json.RawMessage `json:"results"`
			HasMore    bool              `json:"has_more"`
			NextCursor string            `json:"next_cursor"`
		}
		if err := c.do(ctx, http.MethodPost, "/v1/search", payload, nil, &result); err != nil {
			return nil, err
		}
		for _, raw := range result.Results {
			obj, ok := parseSearchResult(raw)
			if ok && obj.Title == name {
				matches = append(matches, obj)
			}
		}
		if !result.HasMore {
			return matches, nil
		}
		cursor = result.NextCursor
	}
}

func (c *Client) ListChildren(ctx context.Context, containerID, cursor string, pageSize int) (*BlockList, error) {
	id, err := NormalizeID("container_id", containerID)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	if pageSize > 0 {
		params.Set("page_size", strconv.Itoa(pageSize))
	}
	if cursor != "" {
		params.Set("start_cursor", cursor)
	}
	var list BlockList
	if err := c.do(ctx, http.MethodGet, "/v1/blocks/"+id+"/children", nil, params, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) GetDatabase(ctx context.Context, databaseID string) (*Database, error) {
	id, err := NormalizeID("database_id", databaseID)
	if err != nil {
		return nil, err
	}
	var db Database
	if err := c.do(ctx, http.MethodGet, "/v1/databases/"+id, nil, nil, &db); err != nil {
		return nil, err
	}
	return &db, nil
}

func (c *Client) QueryDatabase(ctx context.Context, databaseID string, req QueryRequest) (*PageList, error) {
	id, err := NormalizeID("database_id", databaseID)
	if err != nil {
		return nil, err
	}
	var list PageList
	if err := c.do(ctx, http.MethodPost, "/v1/databases/"+id+"/query", req, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) GetPage(ctx context.Context, pageID string) (*Page, error) {
	id, err := NormalizeID("page_id", pageID)
	if err != nil {
		return nil, err
	}
	var page Page
	if err := c.do(ctx, http.MethodGet, "/v1/pages/"+id, nil, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) CreatePage(ctx context.Context, req CreatePageRequest) (*Page, error) {
	var page Page
	if err := c.do(ctx, http.MethodPost, "/v1/pages", req, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) UpdateProperties(ctx context.Context, pageID string, properties map[string]any) (*Page, error) {
	id, err := NormalizeID("page_id", pageID)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{"properties": properties}
	var page Page
	if err := c.do(ctx, http.MethodPatch, "/v1/pages/"+id, payload, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) ArchivePage(ctx context.Context, pageID string) (*Page, error) {
	id, err := NormalizeID("page_id", pageID)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{"archived": true}
	var page Page
	if err := c.do(ctx, http.MethodPatch, "/v1/pages/"+id, payload, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetBlock(ctx context.Context, blockID string) (*Block, error) {
	id, err := NormalizeID("block_id", blockID)
	if err != nil {
		return nil, err
	}
	var block Block
	if err := c.do(ctx, http.MethodGet, "/v1/blocks/"+id, nil, nil, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

func (c *Client) AppendBlocks(ctx context.Context, blockID string, children []map[string]any) (*BlockList, error) {
	id, err := NormalizeID("block_id", blockID)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{"children": children}
	var list BlockList
	if err := c.do(ctx, http.MethodPatch, "/v1/blocks/"+id+"/children", payload, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) UpdateBlock(ctx context.Context, blockID string, payload map[string]any) (*Block, error) {
	id, err := NormalizeID("block_id", blockID)
	if err != nil {
		return nil, err
	}
	var block Block
	if err := c.do(ctx, http.MethodPatch, "/v1/blocks/"+id, payload, nil, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

func (c *Client) DeleteBlock(ctx context.Context, blockID string) error {
	id, err := NormalizeID("block_id", blockID)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/v1/blocks/"+id, nil, nil, nil)
}

// do performs one JSON round trip. Remote 404s map to not_found; every
// other non-2xx maps to upstream_error with the remote body as detail.
func (c *Client) do(ctx context.Context, method, path string, payload any, params url.Values, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return apierr.E(apierr.KindUpstream, "build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", Version)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apierr.E(apierr.KindUpstream, "notion request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apierr.E(apierr.KindUpstream, "read notion response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := apierr.KindUpstream
		if resp.StatusCode == http.StatusNotFound {
			kind = apierr.KindNotFound
		}
		return apierr.WithDetails(kind,
			map[string]any{"status": resp.StatusCode, "body": string(data)},
			"notion API error (%d)", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apierr.E(apierr.KindUpstream, "decode notion response: %v", err)
	}
	return nil
}

// parseSearchResult extracts id/title/kind from one raw search hit. Pages
// carry their title inside properties; databases carry it at the top level.
func parseSearchResult(raw json.RawMessage) (Object, bool) {
	var envelope struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Object{}, false
	}
	switch envelope.Object {
	case "page":
		var page Page
		if err := json.Unmarshal(raw, &page); err != nil {
			return Object{}, false
		}
		return Object{ID: page.ID, Title: page.Title(), Kind: KindPage, URL: page.URL}, true
	case "database":
		var db Database
		if err := json.Unmarshal(raw, &db); err != nil {
			return Object{}, false
		}
		return Object{ID: db.ID, Title: PlainText(db.Title), Kind: KindDatabase, URL: db.URL}, true
	}
	return Object{}, false
}
