// Package client talks to the segment API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/telhawk-systems/segmenter/pkg/model"
)

// APIError is a non-2xx response from the segment API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// SegmentClient interacts with the segment service.
type SegmentClient struct {
	baseURL string
	client  *http.Client
}

// NewSegmentClient creates a SegmentClient pointing at the given base URL.
func NewSegmentClient(baseURL string) *SegmentClient {
	return &SegmentClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Client exposes the underlying http.Client for specialized calls.
func (c *SegmentClient) Client() *http.Client { return c.client }

// Groups lists the selectable groups.
func (c *SegmentClient) Groups(ctx context.Context) ([]model.GroupKey, error) {
	var out []model.GroupKey
	return out, c.do(ctx, http.MethodGet, "/api/v1/segments/groups", nil, &out)
}

// DateFilters lists the preset date filters.
func (c *SegmentClient) DateFilters(ctx context.Context) ([]model.DateFilter, error) {
	var out []model.DateFilter
	return out, c.do(ctx, http.MethodGet, "/api/v1/segments/date-filters", nil, &out)
}

// Options fetches the option catalog; refresh bypasses the server cache.
func (c *SegmentClient) Options(ctx context.Context, refresh bool) (model.Catalog, error) {
	path := "/api/v1/segments/options"
	if refresh {
		path += "?refresh=true"
	}
	var out model.Catalog
	return out, c.do(ctx, http.MethodGet, path, nil, &out)
}

// Compose builds the segment tree for groups.
func (c *SegmentClient) Compose(ctx context.Context, groups []model.SelectionGroup) (*model.ComposeResponse, error) {
	var out model.ComposeResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/segments/compose", model.ComposeRequest{Groups: groups}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Validate checks groups for completeness.
func (c *SegmentClient) Validate(ctx context.Context, groups []model.SelectionGroup) (*model.ValidateResponse, error) {
	var out model.ValidateResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/segments/validate", model.ComposeRequest{Groups: groups}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Explain returns the translated query and pipeline without running it.
func (c *SegmentClient) Explain(ctx context.Context, req *model.RunRequest) (*model.ExplainResponse, error) {
	var out model.ExplainResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/segments/explain", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Run executes a segment.
func (c *SegmentClient) Run(ctx context.Context, req *model.RunRequest) (*model.RunResponse, error) {
	var out model.RunResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/segments/run", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApplyEdits applies selection edits to groups server-side.
func (c *SegmentClient) ApplyEdits(ctx context.Context, req *model.SelectionsRequest) (*model.SelectionsResponse, error) {
	var out model.SelectionsResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/segments/selections", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSaved lists saved segments.
func (c *SegmentClient) ListSaved(ctx context.Context) (*model.SavedSegmentList, error) {
	var out model.SavedSegmentList
	if err := c.do(ctx, http.MethodGet, "/api/v1/segments/saved", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSaved fetches one saved segment.
func (c *SegmentClient) GetSaved(ctx context.Context, id string) (*model.SavedSegment, error) {
	var out model.SavedSegment
	if err := c.do(ctx, http.MethodGet, "/api/v1/segments/saved/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Save creates or updates a saved segment.
func (c *SegmentClient) Save(ctx context.Context, req *model.SaveSegmentRequest) (*model.SavedSegment, error) {
	var out model.SavedSegment
	if err := c.do(ctx, http.MethodPost, "/api/v1/segments/saved", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSaved removes a saved segment.
func (c *SegmentClient) DeleteSaved(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/segments/saved/"+url.PathEscape(id), nil, nil)
}

// RunSaved runs a saved segment.
func (c *SegmentClient) RunSaved(ctx context.Context, id string, req *model.RunRequest) (*model.RunResponse, error) {
	var out model.RunResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/segments/saved/"+url.PathEscape(id)+"/run", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health fetches the service health report.
func (c *SegmentClient) Health(ctx context.Context) (*model.HealthResponse, error) {
	var out model.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *SegmentClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e model.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&e) == nil {
			apiErr.Code, apiErr.Message = e.Code, e.Message
		}
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
