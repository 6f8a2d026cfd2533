// Package logseq talks to the Logseq desktop app's local HTTP API.
package logseq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/auditmos/logseq-mcp/logging"
)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 500
)

// ErrNoTarget is returned when a block has neither a page nor a parent.
var ErrNoTarget = errors.New("either page or parent_block_id must be provided")

// APIError is a non-2xx answer from the Logseq API.
type APIError struct {
	Method     string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("logseq %s: status %d: %s", e.Method, e.StatusCode, e.Body)
}

func (e *APIError) Type() string { return "APIError" }

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithDiagnostics(l logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.diag = l
		}
	}
}

// Client posts {"method", "args"} envelopes to a single API endpoint.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	diag    logging.Logger
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		diag:    logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type apiRequest struct {
	Method string `json:"method"`
	Args   []any  `json:"args,omitempty"`
}

// call returns the raw JSON result; a JSON null comes back as nil.
func (c *Client) call(ctx context.Context, method string, args ...any) (json.RawMessage, error) {
	body, err := json.Marshal(apiRequest{Method: method, Args: args})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, logging.WrapErrorWithType(method, err, "ConnectionError")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}

	c.diag.WithFields(logging.Fields{
		"method":      method,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("logseq", "call", "Logseq API call finished")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, &APIError{Method: method, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	return data, nil
}

func decode[T any](method string, raw json.RawMessage) (T, error) {
	var v T
	if raw == nil {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode %s response: %w", method, err)
	}
	return v, nil
}

// decodeList accepts either a bare array or an object wrapping one under key.
func decodeList(method string, raw json.RawMessage, key string) ([]any, error) {
	if raw == nil {
		return []any{}, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", method, err)
	}
	switch t := v.(type) {
	case []any:
		return t, nil
	case map[string]any:
		if list, ok := t[key].([]any); ok {
			return list, nil
		}
	}
	return []any{}, nil
}

func (c *Client) GetCurrentGraph(ctx context.Context) (map[string]any, error) {
	const method = "logseq.App.getCurrentGraph"
	raw, err := c.call(ctx, method)
	if err != nil {
		return nil, err
	}
	return decode[map[string]any](method, raw)
}

type BlockInput struct {
	Content       string
	Page          string
	ParentBlockID string
	Properties    map[string]any
}

// CreateBlock inserts a block under ParentBlockID when set, otherwise at the
// end of Page.
func (c *Client) CreateBlock(ctx context.Context, in BlockInput) (map[string]any, error) {
	const method = "logseq.Editor.insertBlock"

	target := in.ParentBlockID
	opts := map[string]any{}
	if target == "" {
		target = in.Page
	} else {
		opts["sibling"] = false
	}
	if target == "" {
		return nil, ErrNoTarget
	}
	if len(in.Properties) > 0 {
		opts["properties"] = in.Properties
	}

	raw, err := c.call(ctx, method, target, in.Content, opts)
	if err != nil {
		return nil, err
	}
	return decode[map[string]any](method, raw)
}

func (c *Client) UpdateBlock(ctx context.Context, uuid, content string, properties map[string]any) (map[string]any, error) {
	const method = "logseq.Editor.updateBlock"
	args := []any{uuid, content}
	if properties != nil {
		args = append(args, map[string]any{"properties": properties})
	}
	raw, err := c.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	return decode[map[string]any](method, raw)
}

func (c *Client) DeleteBlock(ctx context.Context, uuid string) error {
	_, err := c.call(ctx, "logseq.Editor.removeBlock", uuid)
	return err
}

// GetBlock returns nil without error when the block does not exist.
func (c *Client) GetBlock(ctx context.Context, uuid string, includeChildren bool) (map[string]any, error) {
	const method = "logseq.Editor.getBlock"
	raw, err := c.call(ctx, method, uuid, map[string]any{"includeChildren": includeChildren})
	if err != nil {
		return nil, err
	}
	return decode[map[string]any](method, raw)
}

// CreatePage creates name and, when content is given, adds it as the first
// block.
func (c *Client) CreatePage(ctx context.Context, name, content string, properties map[string]any) (map[string]any, error) {
	const method = "logseq.Editor.createPage"
	args := []any{name}
	if len(properties) > 0 {
		args = append(args, properties)
	}
	raw, err := c.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	page, err := decode[map[string]any](method, raw)
	if err != nil {
		return nil, err
	}

	if content != "" && page != nil {
		if _, err := c.CreateBlock(ctx, BlockInput{Content: content, Page: name}); err != nil {
			return page, fmt.Errorf("add first block: %w", err)
		}
	}
	return page, nil
}

// GetPage returns nil without error when the page does not exist.
func (c *Client) GetPage(ctx context.Context, name string) (map[string]any, error) {
	const method = "logseq.Editor.getPage"
	raw, err := c.call(ctx, method, name)
	if err != nil {
		return nil, err
	}
	return decode[map[string]any](method, raw)
}

func (c *Client) GetPageBlocks(ctx context.Context, name string) ([]any, error) {
	const method = "logseq.Editor.getPageBlocksTree"
	raw, err := c.call(ctx, method, name)
	if err != nil {
		return nil, err
	}
	return decodeList(method, raw, "blocks")
}

func (c *Client) GetAllPages(ctx context.Context) ([]any, error) {
	const method = "logseq.Editor.getAllPages"
	raw, err := c.call(ctx, method)
	if err != nil {
		return nil, err
	}
	return decodeList(method, raw, "pages")
}

// SearchPages returns at most limit matches; limit <= 0 means all.
func (c *Client) SearchPages(ctx context.Context, query string, limit int) ([]any, error) {
	const method = "logseq.Editor.search"
	raw, err := c.call(ctx, method, query)
	if err != nil {
		return nil, err
	}
	pages, err := decodeList(method, raw, "pages")
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(pages) > limit {
		pages = pages[:limit]
	}
	return pages, nil
}

func (c *Client) ExecuteQuery(ctx context.Context, query string, inputs []string) ([]any, error) {
	const method = "logseq.DB.q"
	args := []any{query}
	for _, in := range inputs {
		args = append(args, in)
	}
	raw, err := c.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	return decodeList(method, raw, "results")
}
