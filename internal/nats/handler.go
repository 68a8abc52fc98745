package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/telhawk-systems/segmenter/internal/logging"
	"github.com/telhawk-systems/segmenter/internal/messaging"
	"github.com/telhawk-systems/segmenter/internal/metrics"
	"github.com/telhawk-systems/segmenter/internal/pipeline"
	"github.com/telhawk-systems/segmenter/internal/service"
	"github.com/telhawk-systems/segmenter/internal/store"
	"github.com/telhawk-systems/segmenter/internal/validator"
	"github.com/telhawk-systems/segmenter/pkg/model"
)

// Runner executes segments. *service.SegmentService implements it.
type Runner interface {
	Run(ctx context.Context, req *model.RunRequest) (*model.RunResponse, error)
	RunSegment(ctx context.Context, id string, req *model.RunRequest) (*model.RunResponse, error)
	InvalidateOptions(ctx context.Context) error
}

// Broker is the subset of messaging.Client the handler needs.
type Broker interface {
	messaging.Subscriber
	PublishJSON(ctx context.Context, subject string, v any) error
}

// Handler processes NATS messages for segment runs.
type Handler struct {
	broker    Broker
	svc       Runner
	accountID string
	timeout   time.Duration
	subs      []messaging.Subscription
	logger    *logging.Logger
}

// NewHandler creates a handler. timeout bounds a single job.
func NewHandler(broker Broker, svc Runner, accountID string, timeout time.Duration) *Handler {
	return &Handler{
		broker:    broker,
		svc:       svc,
		accountID: accountID,
		timeout:   timeout,
		logger:    logging.Default().Component("nats-handler"),
	}
}

// Start subscribes to the run job and options subjects.
func (h *Handler) Start(ctx context.Context) error {
	sub, err := h.broker.QueueSubscribe(messaging.SubjectSegmentJobsRun, messaging.QueueSegmentWorkers, h.handleRunJob)
	if err != nil {
		return fmt.Errorf("failed to subscribe to run jobs: %w", err)
	}
	h.subs = append(h.subs, sub)

	// every instance drops its cache entry, so no queue group
	sub, err = h.broker.Subscribe(messaging.SubjectSegmentOptionsChanged, h.handleOptionsChanged)
	if err != nil {
		_ = h.Stop()
		return fmt.Errorf("failed to subscribe to option changes: %w", err)
	}
	h.subs = append(h.subs, sub)

	h.logger.InfoContext(ctx, "NATS handler started",
		slog.String("run_subject", messaging.SubjectSegmentJobsRun),
		slog.String("queue_group", messaging.QueueSegmentWorkers))
	return nil
}

// Stop unsubscribes from all subjects.
func (h *Handler) Stop() error {
	for _, sub := range h.subs {
		if err := sub.Unsubscribe(); err != nil {
			h.logger.Warn("failed to unsubscribe", slog.String("subject", sub.Subject()), logging.Error(err))
		}
	}
	h.subs = nil
	return nil
}

func (h *Handler) handleRunJob(ctx context.Context, msg *messaging.Message) error {
	var req RunJobRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		metrics.JobsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		h.logger.ErrorContext(ctx, "failed to unmarshal run job", logging.Error(err))
		return h.reply(ctx, msg.Reply, "", RunJobResponse{Code: "invalid_request", Error: "malformed job"})
	}
	if req.JobID == "" {
		metrics.JobsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return h.reply(ctx, msg.Reply, "", RunJobResponse{Code: "invalid_request", Error: "job_id is required"})
	}

	// the reply goes out on ctx so a timed-out job still reports back
	jobCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	var (
		result *model.RunResponse
		err    error
	)
	if req.SegmentID != "" {
		result, err = h.svc.RunSegment(jobCtx, req.SegmentID, req.runRequest())
	} else {
		result, err = h.svc.Run(jobCtx, req.runRequest())
	}

	resp := RunJobResponse{JobID: req.JobID, TookMs: time.Since(start).Milliseconds()}
	if err != nil {
		resp.Code, resp.Error = jobError(err)
		outcome := metrics.OutcomeError
		if resp.Code == "validation_failed" || resp.Code == "invalid_segment" || resp.Code == "segment_not_found" {
			outcome = metrics.OutcomeInvalid
		}
		metrics.JobsTotal.WithLabelValues(outcome).Inc()
		h.logger.ErrorContext(ctx, "run job failed", logging.JobID(req.JobID), logging.Error(err))
	} else {
		resp.Success = true
		resp.Result = result
		metrics.JobsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
		h.logger.InfoContext(ctx, "run job completed",
			logging.JobID(req.JobID), logging.Count(result.TotalCount), slog.Int64("took_ms", resp.TookMs))
	}
	return h.reply(ctx, msg.Reply, messaging.SegmentRunResultSubject(req.JobID), resp)
}

// reply answers request/reply callers and publishes to the job's result
// subject when there is one.
func (h *Handler) reply(ctx context.Context, replyTo, resultSubject string, resp RunJobResponse) error {
	if replyTo != "" {
		if err := h.broker.PublishJSON(ctx, replyTo, resp); err != nil {
			h.logger.ErrorContext(ctx, "failed to reply to run job", logging.JobID(resp.JobID), logging.Error(err))
		}
	}
	if resultSubject == "" {
		return nil
	}
	return h.broker.PublishJSON(ctx, resultSubject, resp)
}

func (h *Handler) handleOptionsChanged(ctx context.Context, msg *messaging.Message) error {
	var evt OptionsChanged
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		return fmt.Errorf("decode options changed: %w", err)
	}
	if evt.AccountID != h.accountID {
		return nil
	}
	h.logger.InfoContext(ctx, "invalidating option catalog", logging.AccountID(evt.AccountID), slog.String("reason", evt.Reason))
	return h.svc.InvalidateOptions(ctx)
}

// jobError maps a service error to a code and a message safe to hand back.
func jobError(err error) (string, string) {
	var (
		validationErr *validator.ValidationError
		execErr       *store.ExecutionError
	)
	switch {
	case errors.As(err, &validationErr):
		return "validation_failed", validationErr.Message
	case errors.Is(err, service.ErrInvalidSegment), errors.Is(err, pipeline.ErrInvalidOptions):
		return "invalid_segment", err.Error()
	case errors.Is(err, service.ErrSegmentNotFound):
		return "segment_not_found", "segment not found"
	case errors.As(err, &execErr):
		return "execution_failed", "could not run query"
	case errors.Is(err, service.ErrStoreUnavailable):
		return "store_unavailable", "segment store is unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout", "job timed out"
	default:
		return "internal_error", "segment could not be run"
	}
}
