package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/telhawk-systems/segmenter/internal/logging"
	"github.com/telhawk-systems/segmenter/internal/pipeline"
	"github.com/telhawk-systems/segmenter/internal/selection"
	"github.com/telhawk-systems/segmenter/internal/service"
	"github.com/telhawk-systems/segmenter/internal/store"
	"github.com/telhawk-systems/segmenter/internal/translator"
	"github.com/telhawk-systems/segmenter/internal/validator"
	"github.com/telhawk-systems/segmenter/pkg/model"
)

const savedPrefix = "/api/v1/segments/saved/"

// Handler wires HTTP routes to the segment service.
type Handler struct {
	svc    *service.SegmentService
	logger *logging.Logger
}

// New creates a Handler instance.
func New(svc *service.SegmentService) *Handler {
	return &Handler{svc: svc, logger: logging.Default().Component("handlers")}
}

// Groups handles GET /api/v1/segments/groups.
func (h *Handler) Groups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, http.MethodGet)
		return
	}
	h.writeJSON(w, http.StatusOK, h.svc.Groups())
}

// DateFilters handles GET /api/v1/segments/date-filters.
func (h *Handler) DateFilters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, http.MethodGet)
		return
	}
	h.writeJSON(w, http.StatusOK, h.svc.DateFilters())
}

// Options handles GET /api/v1/segments/options. refresh=true bypasses the cache.
func (h *Handler) Options(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, http.MethodGet)
		return
	}
	load := h.svc.Options
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		load = h.svc.RefreshOptions
	}
	catalog, err := load(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, catalog)
}

// Selections handles POST /api/v1/segments/selections.
func (h *Handler) Selections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, http.MethodPost)
		return
	}
	var req model.SelectionsRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	var edits []selection.Edit
	if len(req.Edits) > 0 {
		if err := json.Unmarshal(req.Edits, &edits); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
	}
	groups, err := h.svc.ApplyEdits(req.Groups, edits)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if groups == nil {
		groups = []model.SelectionGroup{}
	}
	h.writeJSON(w, http.StatusOK, model.SelectionsResponse{Groups: groups})
}

// Compose handles POST /api/v1/segments/compose.
func (h *Handler) Compose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, http.MethodPost)
		return
	}
	var req model.ComposeRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	resp, err := h.svc.Compose(req.Groups)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Validate handles POST /api/v1/segments/validate. Invalid selections still
// answer 200; the body carries the message.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, http.MethodPost)
		return
	}
	var req model.ComposeRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, h.svc.Validate(req.Groups))
}

// Explain handles POST /api/v1/segments/explain.
func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, http.MethodPost)
		return
	}
	req, ok := h.runRequest(w, r)
	if !ok {
		return
	}
	resp, err := h.svc.Explain(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Run handles POST /api/v1/segments/run.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, http.MethodPost)
		return
	}
	req, ok := h.runRequest(w, r)
	if !ok {
		return
	}
	resp, err := h.svc.Run(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// SavedSegments handles GET/POST /api/v1/segments/saved.
func (h *Handler) SavedSegments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		resp, err := h.svc.ListSegments(r.Context())
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		h.writeJSON(w, http.StatusOK, resp)
	case http.MethodPost:
		var req model.SaveSegmentRequest
		if err := decodeJSON(r.Body, &req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		seg, err := h.svc.SaveSegment(r.Context(), &req)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		status := http.StatusOK
		if req.ID == "" {
			status = http.StatusCreated
		}
		h.writeJSON(w, status, seg)
	default:
		h.methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// SavedSegmentByID handles GET/DELETE /api/v1/segments/saved/{id} and
// POST /api/v1/segments/saved/{id}/run.
func (h *Handler) SavedSegmentByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, savedPrefix)
	id, action, _ := strings.Cut(rest, "/")
	if id == "" || strings.ContainsRune(action, '/') || (action != "" && action != "run") {
		h.writeError(w, http.StatusBadRequest, "invalid_segment_id", "segment id must be provided")
		return
	}

	if action == "run" {
		if r.Method != http.MethodPost {
			h.methodNotAllowed(w, http.MethodPost)
			return
		}
		req, ok := h.runRequest(w, r)
		if !ok {
			return
		}
		resp, err := h.svc.RunSegment(r.Context(), id, req)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		h.writeJSON(w, http.StatusOK, resp)
		return
	}

	switch r.Method {
	case http.MethodGet:
		seg, err := h.svc.GetSegment(r.Context(), id)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		h.writeJSON(w, http.StatusOK, seg)
	case http.MethodDelete:
		if err := h.svc.DeleteSegment(r.Context(), id); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		h.methodNotAllowed(w, http.MethodGet, http.MethodDelete)
	}
}

// Health handles GET /healthz for liveness probes.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, http.MethodGet)
		return
	}
	h.writeJSON(w, http.StatusOK, h.svc.Health(r.Context()))
}

// runRequest decodes an optional JSON body and applies the countOnly, p, ps
// and q query parameters on top of it.
func (h *Handler) runRequest(w http.ResponseWriter, r *http.Request) (*model.RunRequest, bool) {
	var req model.RunRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
			h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return nil, false
		}
	}
	q := r.URL.Query()
	if v := q.Get("countOnly"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "countOnly must be a boolean")
			return nil, false
		}
		req.CountOnly = b
	}
	for name, dst := range map[string]*int{"p": &req.Page, "ps": &req.PageSize} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				h.writeError(w, http.StatusBadRequest, "invalid_request", name+" must be an integer")
				return nil, false
			}
			*dst = n
		}
	}
	if v := q.Get("q"); v != "" {
		req.Query = v
	}
	return &req, true
}

// writeServiceError maps the error taxonomy onto status codes. Validation
// messages are shown verbatim; internal failures are not.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *validator.ValidationError
		fieldErr      *translator.UnknownFieldError
		adapterErr    *translator.AdapterError
		execErr       *store.ExecutionError
	)
	switch {
	case errors.As(err, &validationErr):
		h.writeError(w, http.StatusBadRequest, "validation_failed", validationErr.Message)
	case errors.Is(err, service.ErrInvalidSegment), errors.Is(err, pipeline.ErrInvalidOptions):
		h.writeError(w, http.StatusBadRequest, "invalid_segment", err.Error())
	case errors.Is(err, service.ErrSegmentNotFound):
		h.writeError(w, http.StatusNotFound, "segment_not_found", "segment not found")
	case errors.As(err, &fieldErr):
		h.writeError(w, http.StatusInternalServerError, "unknown_field", fieldErr.Error())
	case errors.As(err, &adapterErr):
		h.writeError(w, http.StatusInternalServerError, "translation_failed", "segment could not be translated")
	case errors.As(err, &execErr):
		h.writeError(w, http.StatusBadGateway, "execution_failed", "could not run query")
	case errors.Is(err, service.ErrStoreUnavailable):
		h.writeError(w, http.StatusServiceUnavailable, "store_unavailable", "segment store is unavailable")
	default:
		h.logger.ErrorContext(r.Context(), "unhandled service error", logging.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method is not allowed")
}

func decodeJSON(body io.ReadCloser, dst any) error {
	defer body.Close()
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
