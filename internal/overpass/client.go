// Package overpass queries the Overpass API and extracts coordinate sets
// from its JSON responses.
package overpass

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultEndpoint is the public Overpass API interpreter.
const DefaultEndpoint = "https://overpass-api.de/api/interpreter"

// Client posts Overpass QL queries to an interpreter endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// New creates a client for the given interpreter endpoint. An empty endpoint
// selects DefaultEndpoint.
func New(endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 5 * time.Minute},
	}
}

// QueryError is returned when the interpreter answers with a non-200 status.
type QueryError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("overpass query error: %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// Query posts the query and parses the response into a coordinate set.
func (c *Client) Query(ctx context.Context, query string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(query))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "github.com/wegman-software/osm2geojson-go")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			body = nil
		}
		return nil, &QueryError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}
	return ParseJSON(resp.Body)
}
