package model

import (
	"encoding/json"
	"time"
)

// ComposeRequest carries the selection groups to compose.
type ComposeRequest struct {
	Groups []SelectionGroup `json:"groups" yaml:"groups"`
}

// ComposeResponse is the composed tree.
type ComposeResponse struct {
	ComposedSegment *Segment `json:"composedSegment"`
	LeafCount       int      `json:"leafCount"`
}

// ValidateResponse reports the first validation failure, if any.
type ValidateResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// RunRequest selects a segment and how to return its members. Either Groups
// or Segment must be set; Segment is a prebuilt tree used as is.
type RunRequest struct {
	Groups    []SelectionGroup `json:"groups,omitempty" yaml:"groups,omitempty"`
	Segment   *Segment         `json:"segment,omitempty" yaml:"segment,omitempty"`
	CountOnly bool             `json:"countOnly,omitempty" yaml:"countOnly,omitempty"`
	Page      int              `json:"p,omitempty" yaml:"p,omitempty"`
	PageSize  int              `json:"ps,omitempty" yaml:"ps,omitempty"`
	Query     string           `json:"q,omitempty" yaml:"q,omitempty"`
}

// RunResponse holds a run's rows and the intermediate forms it was built
// from. TotalPages is -1 for count-only runs.
type RunResponse struct {
	Data            []Profile       `json:"data"`
	TotalCount      int64           `json:"totalCount"`
	TotalPages      int64           `json:"totalPages"`
	ParsedQuery     json.RawMessage `json:"parsedQuery"`
	ComposedSegment *Segment        `json:"composedSegment"`
	TookMs          int64           `json:"tookMs"`
}

// ExplainResponse shows what a run would execute without touching the store.
type ExplainResponse struct {
	ComposedSegment *Segment          `json:"composedSegment"`
	ParsedQuery     json.RawMessage   `json:"parsedQuery"`
	Pipeline        []json.RawMessage `json:"pipeline"`
	JoinsEvents     bool              `json:"joinsEvents"`
}

// SaveSegmentRequest creates or replaces a saved segment. A missing ID
// creates a new one.
type SaveSegmentRequest struct {
	ID         string           `json:"id,omitempty" yaml:"id,omitempty"`
	Name       string           `json:"name" yaml:"name"`
	QueryState []SelectionGroup `json:"queryState" yaml:"queryState"`
}

// SavedSegmentList wraps a listing of saved segments.
type SavedSegmentList struct {
	Segments []*SavedSegment `json:"segments"`
}

// HealthResponse reports service and dependency status.
type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	StartedAt    time.Time         `json:"startedAt"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// SelectionsRequest replays edits on top of Groups.
type SelectionsRequest struct {
	Groups []SelectionGroup `json:"groups"`
	Edits  json.RawMessage  `json:"edits"`
}

// SelectionsResponse is the selection state after the edits.
type SelectionsResponse struct {
	Groups []SelectionGroup `json:"groups"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
