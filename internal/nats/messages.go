// Package nats serves segment run jobs received over NATS.
package nats

import (
	"github.com/telhawk-systems/segmenter/pkg/model"
)

// RunJobRequest is the message format for the segments.jobs.run subject.
// SegmentID runs a saved segment; otherwise Groups or Segment is used.
type RunJobRequest struct {
	JobID     string                 `json:"job_id"`
	SegmentID string                 `json:"segment_id,omitempty"`
	Groups    []model.SelectionGroup `json:"groups,omitempty"`
	Segment   *model.Segment         `json:"segment,omitempty"`
	CountOnly bool                   `json:"count_only,omitempty"`
	Page      int                    `json:"page,omitempty"`
	PageSize  int                    `json:"page_size,omitempty"`
	Query     string                 `json:"q,omitempty"`
}

func (r RunJobRequest) runRequest() *model.RunRequest {
	return &model.RunRequest{
		Groups:    r.Groups,
		Segment:   r.Segment,
		CountOnly: r.CountOnly,
		Page:      r.Page,
		PageSize:  r.PageSize,
		Query:     r.Query,
	}
}

// RunJobResponse is published to the reply subject and to
// segments.results.run.{job_id}.
type RunJobResponse struct {
	JobID   string             `json:"job_id"`
	Success bool               `json:"success"`
	Code    string             `json:"code,omitempty"`
	Error   string             `json:"error,omitempty"`
	Result  *model.RunResponse `json:"result,omitempty"`
	TookMs  int64              `json:"took_ms"`
}

// OptionsChanged is the message format for segments.options.changed.
type OptionsChanged struct {
	AccountID string `json:"account_id"`
	Reason    string `json:"reason,omitempty"`
}
