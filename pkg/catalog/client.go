// Package catalog talks to the CKAN open-data catalog that publishes the
// procurement dataset, and selects the downloadable resources a pipeline run
// should process.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the Finnish open-data catalog.
const DefaultBaseURL = "https://avoindata.fi/data"

var (
	// ErrUnavailable covers transport failures and non-2xx catalog responses.
	// No resource list means no partial progress: the run fails fatally.
	ErrUnavailable = errors.New("catalog unavailable")
	// ErrProtocol means the catalog answered but flagged the request as
	// unsuccessful in its response envelope.
	ErrProtocol = errors.New("catalog protocol error")
)

// Resource is one downloadable file entry in the dataset descriptor.
type Resource struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	URL          string `json:"url"`
	Format       string `json:"format"`
	LastModified string `json:"last_modified"`
}

// Dataset is the catalog's metadata record for the procurement dataset.
type Dataset struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Title     string     `json:"title"`
	Resources []Resource `json:"resources"`
}

// Client fetches dataset descriptors via the CKAN action API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a catalog client. An empty baseURL selects avoindata.fi.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Dataset fetches the full dataset descriptor via package_show.
func (c *Client) Dataset(ctx context.Context, datasetID string) (*Dataset, error) {
	u := fmt.Sprintf("%s/api/3/action/package_show?id=%s", c.baseURL, url.QueryEscape(datasetID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d for %s", ErrUnavailable, resp.StatusCode, datasetID)
	}

	var envelope struct {
		Success bool    `json:"success"`
		Result  Dataset `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: decode package_show: %v", ErrProtocol, err)
	}
	if !envelope.Success {
		return nil, fmt.Errorf("%w: package_show success=false for %s", ErrProtocol, datasetID)
	}
	return &envelope.Result, nil
}
