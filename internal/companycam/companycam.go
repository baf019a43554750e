package companycam

import (
	"fmt"
	"io"
	"net/url"
	"strings"
)

// Client represents a client for the CompanyCam v2 API.
type Client struct {
	URL       string
	parsedURL *url.URL
	token     string
}

// New creates a CompanyCam API client with a bearer token.
func New(baseURL, token string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("CompanyCam URL is required")
	}
	if token == "" {
		return nil, fmt.Errorf("CompanyCam token is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid CompanyCam URL: %w", err)
	}

	return &Client{
		URL:       baseURL,
		parsedURL: parsed,
		token:     token,
	}, nil
}

// resolveURL builds a full URL from the base API URL and the given path segments.
// If the last segment contains a query string (e.g. "photos?per_page=50"), it is
// split so JoinPath only receives the path portion and the query is appended.
func (c *Client) resolveURL(pathSegments ...string) string {
	if len(pathSegments) == 0 {
		return c.parsedURL.String()
	}
	last := pathSegments[len(pathSegments)-1]
	if pathPart, query, ok := strings.Cut(last, "?"); ok {
		pathSegments[len(pathSegments)-1] = pathPart
		result := c.parsedURL.JoinPath(pathSegments...)
		result.RawQuery = query
		return result.String()
	}
	return c.parsedURL.JoinPath(pathSegments...).String()
}

// readErrorBody reads the response body for error messages.
// Returns empty string if reading fails (we're already in an error path).
func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(r)
	if err != nil {
		return "(could not read error body)"
	}
	return string(body)
}
