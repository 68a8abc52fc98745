package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/telhawk-systems/segmenter/internal/definitions"
	"github.com/telhawk-systems/segmenter/internal/pipeline"
	"github.com/telhawk-systems/segmenter/internal/repository"
	"github.com/telhawk-systems/segmenter/internal/service"
	"github.com/telhawk-systems/segmenter/internal/store"
	"github.com/telhawk-systems/segmenter/internal/translator"
	"github.com/telhawk-systems/segmenter/pkg/model"
)

type stubExecutor struct {
	result *store.Result
	err    error
	mode   pipeline.Mode
}

func (s *stubExecutor) Execute(ctx context.Context, p mongo.Pipeline, mode pipeline.Mode) (*store.Result, error) {
	s.mode = mode
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newHandler(exec *stubExecutor) *Handler {
	svc := service.NewSegmentService("test", "acme",
		service.Limits{MaxGroups: 2, DefaultPageSize: 20, MaxPageSize: 100},
		definitions.Default(), translator.NewMongoAdapter(nil), exec, nil).
		WithClock(func() time.Time { return time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC) }).
		WithRepository(repository.NewInMemoryRepository())
	return New(svc)
}

const lagosGroups = `{"groups":[{"id":"g1","groupKey":"profile","mainSegmentSelection":{"value":"Lagos","segmentKey":"city"},"extraSelections":[],"segmentsRelation":"OR","filterOption":null,"logicalOperator":"AND","dateFilter":{"type":"timeperiod","value":"all","name":"All"}}]}`

func do(h http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, target, reader)
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestRun(t *testing.T) {
	exec := &stubExecutor{result: &store.Result{Rows: []model.Profile{{ID: "p1"}}, TotalCount: 41}}
	h := newHandler(exec)

	rr := do(h.Run, http.MethodPost, "/api/v1/segments/run?p=1&ps=20", lagosGroups)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp model.RunResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, int64(41), resp.TotalCount)
	assert.Equal(t, int64(3), resp.TotalPages)
	assert.Len(t, resp.Data, 1)
	assert.JSONEq(t, `{"$and":[{"city":"Lagos"}]}`, string(resp.ParsedQuery))
	assert.Equal(t, model.OperatorAnd, resp.ComposedSegment.Operator)

	rr = do(h.Run, http.MethodPost, "/api/v1/segments/run?countOnly=true", lagosGroups)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, int64(-1), resp.TotalPages)
	assert.Equal(t, pipeline.ModeCountOnly, exec.mode)
}

func TestRun_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		exec   *stubExecutor
		target string
		body   string
		status int
		code   string
	}{
		{name: "empty selection", exec: &stubExecutor{}, body: `{"groups":[]}`, status: http.StatusBadRequest, code: "validation_failed"},
		{name: "bad json", exec: &stubExecutor{}, body: `{"groups":`, status: http.StatusBadRequest, code: "invalid_request"},
		{name: "unknown body field", exec: &stubExecutor{}, body: `{"nope":1}`, status: http.StatusBadRequest, code: "invalid_request"},
		{name: "bad page", exec: &stubExecutor{}, target: "?p=two", body: lagosGroups, status: http.StatusBadRequest, code: "invalid_request"},
		{name: "unknown field", exec: &stubExecutor{}, body: `{"segment":{"type":"composed","operator":"AND","segments":[{"type":"default","name":"shoe size","value":1}]}}`, status: http.StatusInternalServerError, code: "unknown_field"},
		{name: "unsupported node", exec: &stubExecutor{}, body: `{"segment":{"type":"composed","operator":"AND","segments":[{"type":"timeperiod","field":"timestamp","operator":"GTE","value":"all"}]}}`, status: http.StatusInternalServerError, code: "translation_failed"},
		{name: "execution", exec: &stubExecutor{err: &store.ExecutionError{Op: "aggregate", Err: errors.New("boom")}}, body: lagosGroups, status: http.StatusBadGateway, code: "execution_failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(newHandler(tt.exec).Run, http.MethodPost, "/api/v1/segments/run"+tt.target, tt.body)
			assert.Equal(t, tt.status, rr.Code)
			resp := decodeError(t, rr)
			assert.Equal(t, tt.code, resp.Code)
			if tt.code == "execution_failed" {
				assert.Equal(t, "could not run query", resp.Message)
			}
		})
	}
}

func TestValidateAndCompose(t *testing.T) {
	h := newHandler(&stubExecutor{})

	rr := do(h.Validate, http.MethodPost, "/api/v1/segments/validate", `{"groups":[]}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"valid":false,"message":"Please build a query first"}`, rr.Body.String())

	rr = do(h.Compose, http.MethodPost, "/api/v1/segments/compose", lagosGroups)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp model.ComposeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.LeafCount)

	rr = do(h.Compose, http.MethodGet, "/api/v1/segments/compose", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, http.MethodPost, rr.Header().Get("Allow"))
}

func TestSelections(t *testing.T) {
	h := newHandler(&stubExecutor{})
	body := `{"groups":[],"edits":[{"action":"append","groupKey":"growth"},{"action":"select","index":0,"segmentKey":"retention","option":{"value":"With Transactions"}}]}`

	rr := do(h.Selections, http.MethodPost, "/api/v1/segments/selections", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp model.SelectionsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Groups, 1)
	assert.Equal(t, "retention", resp.Groups[0].MainSegmentSelection.SegmentKey)

	rr = do(h.Selections, http.MethodPost, "/api/v1/segments/selections", `{"groups":[],"edits":[{"action":"remove","index":3}]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSavedSegments(t *testing.T) {
	h := newHandler(&stubExecutor{result: &store.Result{TotalCount: 5}})

	rr := do(h.SavedSegments, http.MethodPost, "/api/v1/segments/saved", `{"name":"Lagos","queryState":`+lagosGroups[len(`{"groups":`):])
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var saved model.SavedSegment
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &saved))
	require.NotEmpty(t, saved.ID)

	rr = do(h.SavedSegments, http.MethodGet, "/api/v1/segments/saved", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list model.SavedSegmentList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Len(t, list.Segments, 1)

	rr = do(h.SavedSegmentByID, http.MethodPost, savedPrefix+saved.ID+"/run?countOnly=true", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var run model.RunResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &run))
	assert.Equal(t, int64(5), run.TotalCount)

	rr = do(h.SavedSegmentByID, http.MethodGet, savedPrefix+saved.ID, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(h.SavedSegmentByID, http.MethodDelete, savedPrefix+saved.ID, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(h.SavedSegmentByID, http.MethodGet, savedPrefix+saved.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(h.SavedSegmentByID, http.MethodGet, savedPrefix+saved.ID+"/export", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOptions_NotConfigured(t *testing.T) {
	rr := do(newHandler(&stubExecutor{}).Options, http.MethodGet, "/api/v1/segments/options", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestGroupsAndHealth(t *testing.T) {
	h := newHandler(&stubExecutor{})

	rr := do(h.Groups, http.MethodGet, "/api/v1/segments/groups", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `["growth","transaction","profile","marketing events"]`, rr.Body.String())

	rr = do(h.DateFilters, http.MethodGet, "/api/v1/segments/date-filters", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "12 Months")

	rr = do(h.Health, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)
}
