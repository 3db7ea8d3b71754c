// Package restclient implements types.DirectoryClient over the list-store
// REST protocol. A Client is built once from the configured endpoint and
// shared by every operation.
package restclient

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

	"github.com/google/uuid"

	"github.com/mesh-intelligence/staffdir/internal/logger"
	"github.com/mesh-intelligence/staffdir/pkg/types"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// Compile-time interface check.
var _ types.DirectoryClient = (*Client)(nil)

// Client talks to a remote list store.
type Client struct {
	log  *logger.Logger
	base *url.URL
	list string
	page int
	http *http.Client
}

// Option customizes Client construction.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client (tests use the one from
// httptest.Server).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New builds a Client from cfg. cfg must carry an http(s) endpoint.
func New(log *logger.Logger, cfg types.Config, opts ...Option) (*Client, error) {
	if log == nil {
		log = logger.NewNop()
	}
	cfg = cfg.WithDefaults()
	cfg.Backend = types.BackendHTTP
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(strings.TrimRight(cfg.Endpoint, "/") + "/")
	if err != nil {
		return nil, types.ErrEndpointInvalid
	}
	c := &Client{
		log:  log.With("client", "restclient"),
		base: base,
		list: cfg.List,
		page: cfg.PageSize,
		http: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListAll fetches every page of list items, following nextLink.
func (c *Client) ListAll(ctx context.Context) ([]types.Record, error) {
	next := c.itemsURL("") + "?top=" + strconv.Itoa(c.page)
	seen := map[string]bool{}
	records := []types.Record{}

	for next != "" {
		if seen[next] {
			return nil, fmt.Errorf("%w: nextLink loop at %s", types.ErrMalformedPayload, next)
		}
		seen[next] = true

		var page ItemPage
		if err := c.do(ctx, http.MethodGet, next, nil, &page); err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		if page.Value == nil {
			return nil, fmt.Errorf("list items: %w: page without value", types.ErrMalformedPayload)
		}
		for _, it := range *page.Value {
			rec, err := DecodeItem(it)
			if err != nil {
				return nil, fmt.Errorf("list items: %w", err)
			}
			records = append(records, rec)
		}

		next = ""
		if page.NextLink != "" {
			ref, err := url.Parse(page.NextLink)
			if err != nil {
				return nil, fmt.Errorf("list items: %w: bad nextLink %q", types.ErrMalformedPayload, page.NextLink)
			}
			next = c.base.ResolveReference(ref).String()
		}
	}
	return records, nil
}

// GetPerson resolves a person key.
func (c *Client) GetPerson(ctx context.Context, key string) (types.Person, error) {
	if key == "" {
		return types.Person{}, fmt.Errorf("get person: empty key: %w", types.ErrNotFound)
	}
	var u User
	if err := c.do(ctx, http.MethodGet, c.resolve("people/"+url.PathEscape(key)), nil, &u); err != nil {
		return types.Person{}, fmt.Errorf("get person %q: %w", key, err)
	}
	p, err := DecodeUser(u)
	if err != nil {
		return types.Person{}, fmt.Errorf("get person %q: %w", key, err)
	}
	return p, nil
}

// Add creates a list item.
func (c *Client) Add(ctx context.Context, in types.NewRecord) (types.Record, error) {
	var it Item
	if err := c.do(ctx, http.MethodPost, c.itemsURL(""), NewPayload(in.Label, in.PersonRefs), &it); err != nil {
		return types.Record{}, fmt.Errorf("add item: %w", err)
	}
	rec, err := DecodeItem(it)
	if err != nil {
		return types.Record{}, fmt.Errorf("add item: %w", err)
	}
	return rec, nil
}

// Update patches the label and person reference of item id.
func (c *Client) Update(ctx context.Context, id int64, patch types.Patch) error {
	u := c.itemsURL(strconv.FormatInt(id, 10))
	if err := c.do(ctx, http.MethodPatch, u, NewPayload(patch.Label, patch.PersonRefs), nil); err != nil {
		return fmt.Errorf("update item %d: %w", id, err)
	}
	return nil
}

// Delete removes item id.
func (c *Client) Delete(ctx context.Context, id int64) error {
	u := c.itemsURL(strconv.FormatInt(id, 10))
	if err := c.do(ctx, http.MethodDelete, u, nil, nil); err != nil {
		return fmt.Errorf("delete item %d: %w", id, err)
	}
	return nil
}

// SearchPeople queries the people directory. Any failure is logged and
// yields an empty slice.
func (c *Client) SearchPeople(ctx context.Context, text string) []types.Person {
	people, err := c.searchPeople(ctx, text)
	if err != nil {
		c.log.Warn("people search failed", "text", text, "error", err)
		return []types.Person{}
	}
	return people
}

func (c *Client) searchPeople(ctx context.Context, text string) ([]types.Person, error) {
	var page UserPage
	u := c.resolve("people") + "?search=" + url.QueryEscape(text)
	if err := c.do(ctx, http.MethodGet, u, nil, &page); err != nil {
		return nil, err
	}
	if page.Value == nil {
		return nil, fmt.Errorf("%w: search result without value", types.ErrMalformedPayload)
	}
	people := make([]types.Person, 0, len(*page.Value))
	for _, raw := range *page.Value {
		p, err := DecodeUser(raw)
		if err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	return people, nil
}

// resolve joins an already-escaped relative path onto the endpoint.
func (c *Client) resolve(escaped string) string {
	return c.base.String() + escaped
}

func (c *Client) itemsURL(id string) string {
	p := "lists/" + url.PathEscape(c.list) + "/items"
	if id != "" {
		p += "/" + id
	}
	return c.resolve(p)
}

// do sends one request and decodes a JSON response into out (when non-nil).
// Errors are classified into the types sentinel errors.
func (c *Client) do(ctx context.Context, method, u string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrRemoteUnavailable, err)
	}
	reqID := requestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", "method", method, "url", u, "request_id", reqID, "error", err)
		return fmt.Errorf("%w: %w", types.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: reading body: %w", types.ErrRemoteUnavailable, err)
	}
	c.log.Debug("request", "method", method, "url", u, "status", resp.StatusCode, "request_id", reqID)

	if err := classify(resp.StatusCode, raw); err != nil {
		return err
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %w", types.ErrMalformedPayload, err)
	}
	return nil
}

// classify maps an HTTP status to a sentinel error; nil for 2xx.
func classify(status int, raw []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	msg := errorMessage(raw)
	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", types.ErrNotFound, msg)
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return types.Rejected(msg)
	default:
		return fmt.Errorf("%w: http %d: %s", types.ErrRemoteUnavailable, status, msg)
	}
}

func errorMessage(raw []byte) string {
	var body ErrorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = "no details"
	}
	return msg
}

func requestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
