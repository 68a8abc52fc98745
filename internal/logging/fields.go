package logging

import (
	"log/slog"
	"time"
)

// Field names shared by every component.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldAccountID = "account_id"
	FieldSegmentID = "segment_id"
	FieldGroupKey  = "group_key"
	FieldMode      = "mode"
	FieldNodeType  = "node_type"
	FieldJobID     = "job_id"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldCount     = "count"
)

func Service(name string) slog.Attr { return slog.String(FieldService, name) }

func Component(name string) slog.Attr { return slog.String(FieldComponent, name) }

func RequestID(id string) slog.Attr { return slog.String(FieldRequestID, id) }

func AccountID(id string) slog.Attr { return slog.String(FieldAccountID, id) }

func SegmentID(id string) slog.Attr { return slog.String(FieldSegmentID, id) }

func GroupKey(key string) slog.Attr { return slog.String(FieldGroupKey, key) }

func Mode(mode string) slog.Attr { return slog.String(FieldMode, mode) }

func NodeType(t string) slog.Attr { return slog.String(FieldNodeType, t) }

func JobID(id string) slog.Attr { return slog.String(FieldJobID, id) }

func Count(n int64) slog.Attr { return slog.Int64(FieldCount, n) }

// Duration reports d in milliseconds.
func Duration(d time.Duration) slog.Attr { return slog.Int64(FieldDuration, d.Milliseconds()) }

// Error returns an attribute for err. A nil error yields an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}
