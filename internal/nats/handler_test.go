package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/segmenter/internal/messaging"
	"github.com/telhawk-systems/segmenter/internal/service"
	"github.com/telhawk-systems/segmenter/internal/store"
	"github.com/telhawk-systems/segmenter/internal/validator"
	"github.com/telhawk-systems/segmenter/pkg/model"
)

type fakeSub struct {
	subject      string
	unsubscribed bool
}

func (s *fakeSub) Unsubscribe() error {
	s.unsubscribed = true
	return nil
}

func (s *fakeSub) Subject() string { return s.subject }

func (s *fakeSub) IsValid() bool { return !s.unsubscribed }

type published struct {
	subject string
	body    RunJobResponse
}

type fakeBroker struct {
	mu        sync.Mutex
	handlers  map[string]messaging.MessageHandler
	queues    map[string]string
	subs      []*fakeSub
	published []published
	failSub   string
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{handlers: map[string]messaging.MessageHandler{}, queues: map[string]string{}}
}

func (b *fakeBroker) Subscribe(subject string, h messaging.MessageHandler) (messaging.Subscription, error) {
	return b.QueueSubscribe(subject, "", h)
}

func (b *fakeBroker) QueueSubscribe(subject, queue string, h messaging.MessageHandler) (messaging.Subscription, error) {
	if subject == b.failSub {
		return nil, fmt.Errorf("subscribe %s refused", subject)
	}
	b.handlers[subject] = h
	b.queues[subject] = queue
	sub := &fakeSub{subject: subject}
	b.subs = append(b.subs, sub)
	return sub, nil
}

func (b *fakeBroker) PublishJSON(ctx context.Context, subject string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, published{subject: subject, body: v.(RunJobResponse)})
	return nil
}

func (b *fakeBroker) deliver(t *testing.T, subject, reply string, payload any) error {
	t.Helper()
	data, ok := payload.([]byte)
	if !ok {
		var err error
		data, err = json.Marshal(payload)
		require.NoError(t, err)
	}
	h, found := b.handlers[subject]
	require.True(t, found, "no handler for %s", subject)
	return h(context.Background(), &messaging.Message{Subject: subject, Data: data, Reply: reply})
}

type fakeRunner struct {
	block       bool
	lastReq     *model.RunRequest
	lastSegment string
	invalidated int
	err         error
}

func (r *fakeRunner) Run(ctx context.Context, req *model.RunRequest) (*model.RunResponse, error) {
	r.lastReq = req
	if r.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if r.err != nil {
		return nil, r.err
	}
	return &model.RunResponse{TotalCount: 7, TotalPages: -1, Data: []model.Profile{}}, nil
}

func (r *fakeRunner) RunSegment(ctx context.Context, id string, req *model.RunRequest) (*model.RunResponse, error) {
	r.lastSegment = id
	return r.Run(ctx, req)
}

func (r *fakeRunner) InvalidateOptions(context.Context) error {
	r.invalidated++
	return nil
}

func startHandler(t *testing.T, runner *fakeRunner) (*Handler, *fakeBroker) {
	t.Helper()
	broker := newFakeBroker()
	h := NewHandler(broker, runner, "acme", time.Second)
	require.NoError(t, h.Start(context.Background()))
	return h, broker
}

func TestStart_Subscriptions(t *testing.T) {
	h, broker := startHandler(t, &fakeRunner{})
	assert.Equal(t, messaging.QueueSegmentWorkers, broker.queues[messaging.SubjectSegmentJobsRun])
	assert.Empty(t, broker.queues[messaging.SubjectSegmentOptionsChanged])

	require.NoError(t, h.Stop())
	for _, sub := range broker.subs {
		assert.True(t, sub.unsubscribed)
	}
}

func TestStart_FailureUnwinds(t *testing.T) {
	broker := newFakeBroker()
	broker.failSub = messaging.SubjectSegmentOptionsChanged
	h := NewHandler(broker, &fakeRunner{}, "acme", time.Second)

	err := h.Start(context.Background())
	assert.ErrorContains(t, err, "option changes")
	require.Len(t, broker.subs, 1)
	assert.True(t, broker.subs[0].unsubscribed)
}

func TestHandleRunJob(t *testing.T) {
	runner := &fakeRunner{}
	_, broker := startHandler(t, runner)

	err := broker.deliver(t, messaging.SubjectSegmentJobsRun, "_INBOX.1", RunJobRequest{
		JobID: "job-1", CountOnly: true, Query: "bo@",
		Groups: []model.SelectionGroup{{GroupKey: model.GroupProfile}},
	})
	require.NoError(t, err)

	assert.True(t, runner.lastReq.CountOnly)
	assert.Equal(t, "bo@", runner.lastReq.Query)
	require.Len(t, broker.published, 2)
	assert.Equal(t, "_INBOX.1", broker.published[0].subject)
	assert.Equal(t, "segments.results.run.job-1", broker.published[1].subject)

	resp := broker.published[1].body
	assert.True(t, resp.Success)
	assert.Equal(t, "job-1", resp.JobID)
	assert.Equal(t, int64(7), resp.Result.TotalCount)
}

func TestHandleRunJob_SavedSegment(t *testing.T) {
	runner := &fakeRunner{}
	_, broker := startHandler(t, runner)

	require.NoError(t, broker.deliver(t, messaging.SubjectSegmentJobsRun, "", RunJobRequest{JobID: "job-2", SegmentID: "seg-9"}))
	assert.Equal(t, "seg-9", runner.lastSegment)
	require.Len(t, broker.published, 1, "no reply subject")
	assert.Equal(t, "segments.results.run.job-2", broker.published[0].subject)
}

func TestHandleRunJob_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    string
		message string
	}{
		{"validation", &validator.ValidationError{Message: "Please select a value"}, "validation_failed", "Please select a value"},
		{"not found", service.ErrSegmentNotFound, "segment_not_found", "segment not found"},
		{"execution", &store.ExecutionError{Op: "aggregate", Err: errors.New("connection reset")}, "execution_failed", "could not run query"},
		{"unexpected", errors.New("boom"), "internal_error", "segment could not be run"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, broker := startHandler(t, &fakeRunner{err: tt.err})
			require.NoError(t, broker.deliver(t, messaging.SubjectSegmentJobsRun, "_INBOX.2", RunJobRequest{JobID: "job-3"}))

			resp := broker.published[0].body
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.message, resp.Error)
			assert.Nil(t, resp.Result)
		})
	}
}

func TestHandleRunJob_Malformed(t *testing.T) {
	runner := &fakeRunner{}
	_, broker := startHandler(t, runner)

	require.NoError(t, broker.deliver(t, messaging.SubjectSegmentJobsRun, "_INBOX.3", []byte("{not json")))
	require.NoError(t, broker.deliver(t, messaging.SubjectSegmentJobsRun, "_INBOX.4", RunJobRequest{}))

	require.Len(t, broker.published, 2, "replies only, no result subject")
	assert.Equal(t, "invalid_request", broker.published[0].body.Code)
	assert.Equal(t, "job_id is required", broker.published[1].body.Error)
	assert.Nil(t, runner.lastReq)
}

func TestHandleOptionsChanged(t *testing.T) {
	runner := &fakeRunner{}
	_, broker := startHandler(t, runner)

	require.NoError(t, broker.deliver(t, messaging.SubjectSegmentOptionsChanged, "", OptionsChanged{AccountID: "globex"}))
	assert.Zero(t, runner.invalidated)

	require.NoError(t, broker.deliver(t, messaging.SubjectSegmentOptionsChanged, "", OptionsChanged{AccountID: "acme", Reason: "seed"}))
	assert.Equal(t, 1, runner.invalidated)

	assert.Error(t, broker.deliver(t, messaging.SubjectSegmentOptionsChanged, "", []byte("[")))
}

func TestHandleRunJob_TimeoutStillReplies(t *testing.T) {
	broker := newFakeBroker()
	h := NewHandler(broker, &fakeRunner{block: true}, "acme", 20*time.Millisecond)
	require.NoError(t, h.Start(context.Background()))

	require.NoError(t, broker.deliver(t, messaging.SubjectSegmentJobsRun, "_INBOX.5", RunJobRequest{JobID: "job-slow"}))

	require.Len(t, broker.published, 2)
	assert.Equal(t, "_INBOX.5", broker.published[0].subject)
	assert.Equal(t, "segments.results.run.job-slow", broker.published[1].subject)
	for _, p := range broker.published {
		assert.False(t, p.body.Success)
		assert.Equal(t, "timeout", p.body.Code)
		assert.Equal(t, "job-slow", p.body.JobID)
	}
}
