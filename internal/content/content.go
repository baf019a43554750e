// Package content publishes paired photos as draft posts in the content
// planning tool, where a human reviews them before anything goes public.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Draft post parameters the planner expects.
const (
	statusIdea   = "idea"
	photoSource  = "companycam"
	defaultTable = "cc_posts"
)

var defaultPlatforms = []string{"instagram", "facebook", "nextdoor"}

// Client talks to the content planner's REST API.
type Client struct {
	url    string
	apiKey string
	table  string
	client *http.Client
}

// Post is a draft post record.
type Post struct {
	ID          string   `json:"id,omitempty"`
	Content     string   `json:"content"`
	Platforms   []string `json:"platforms"`
	Status      string   `json:"status"`
	PhotoURLs   []string `json:"photo_urls"`
	PhotoSource string   `json:"photo_source"`
	Tags        []string `json:"tags,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// New creates a content planner client.
func New(baseURL, apiKey, table string) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("content URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid content URL: %w", err)
	}
	if table == "" {
		table = defaultTable
	}

	return &Client{
		url:    baseURL,
		apiKey: apiKey,
		table:  table,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// CreateDraft submits a draft post built from one before/after pair. The
// caption and photo order are final; the planner only holds the draft for
// human review. Pairs of a photo with itself submit a single URL.
func (c *Client) CreateDraft(ctx context.Context, caption string, photoURLs []string, tags []string, notes string) (*Post, error) {
	if len(photoURLs) == 0 {
		return nil, errors.New("a draft needs at least one photo URL")
	}

	post := Post{
		Content:     caption,
		Platforms:   defaultPlatforms,
		Status:      statusIdea,
		PhotoURLs:   photoURLs,
		PhotoSource: photoSource,
		Tags:        tags,
		Notes:       notes,
	}

	body, err := json.Marshal(post)
	if err != nil {
		return nil, fmt.Errorf("could not encode post: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/tables/%s/rows", c.url, c.table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not call content API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("content API returned status %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	var created Post
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("could not decode response: %w", err)
	}

	return &created, nil
}

// ListDrafts returns existing draft posts, newest first. Used to avoid
// re-submitting a pair the planner already holds.
func (c *Client) ListDrafts(ctx context.Context) ([]Post, error) {
	endpoint := fmt.Sprintf("%s/api/tables/%s/rows?status=%s", c.url, c.table, statusIdea)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not call content API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content API returned status %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	var payload struct {
		Rows []Post `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("could not decode response: %w", err)
	}

	return payload.Rows, nil
}

func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 1024))
	if err != nil || len(body) == 0 {
		return "<no body>"
	}
	return string(body)
}
