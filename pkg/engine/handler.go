// Core HTTP request handler for the mock API runtime.

package engine

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mockstack/mockstack/internal/storage"
	"github.com/mockstack/mockstack/pkg/formdata"
	"github.com/mockstack/mockstack/pkg/httputil"
	"github.com/mockstack/mockstack/pkg/logging"
	"github.com/mockstack/mockstack/pkg/metrics"
	"github.com/mockstack/mockstack/pkg/mockapi"
	"github.com/mockstack/mockstack/pkg/query"
	"github.com/mockstack/mockstack/pkg/quota"
	"github.com/mockstack/mockstack/pkg/upload"
	"github.com/mockstack/mockstack/pkg/validation"
)

// MaxRequestBodySize is the maximum allowed request body size (10MB).
// This prevents denial-of-service via oversized request bodies.
const MaxRequestBodySize = 10 << 20

// HealthPath answers liveness probes without entering the pipeline.
const HealthPath = "/__mockstack/health"

// Handler runs the full request pipeline: resolve, auth, quota, then the
// write path (decode, validate, upload, persist) or the data-view path.
type Handler struct {
	resolver    *Resolver
	enforcer    *quota.Enforcer
	submissions storage.SubmissionStore
	pipeline    *upload.Pipeline
	metrics     *metrics.Metrics
	log         *slog.Logger
	now         func() time.Time
}

// NewHandler creates a Handler over the given stores and collaborators.
func NewHandler(projects storage.ProjectStore, accounts storage.AccountStore, submissions storage.SubmissionStore, uploader upload.Uploader) *Handler {
	return &Handler{
		resolver:    NewResolver(projects),
		enforcer:    quota.NewEnforcer(accounts),
		submissions: submissions,
		pipeline:    upload.NewPipeline(uploader),
		log:         logging.Nop(),
		now:         time.Now,
	}
}

// SetLogger sets the operational logger for the handler and its pipeline.
func (h *Handler) SetLogger(log *slog.Logger) {
	if log == nil {
		log = logging.Nop()
	}
	h.log = log
	h.enforcer.SetLogger(log)
	h.pipeline.SetLogger(log)
}

// SetMetrics enables Prometheus instrumentation.
func (h *Handler) SetMetrics(m *metrics.Metrics) {
	h.metrics = m
}

// statusRecorder captures the written status code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// ServeHTTP implements the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == HealthPath {
		httputil.WriteOK(w, map[string]string{"status": "ok"})
		return
	}

	start := h.now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.serve(rec, r)
	if h.metrics != nil {
		h.metrics.ObserveRequest(r.Method, rec.status, h.now().Sub(start))
	}
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	match, err := h.resolver.Resolve(ctx, r.Method, r.URL.Path)
	if err != nil {
		h.log.Error("project lookup failed", "error", err)
		httputil.WriteInternalError(w, "Internal server error", "could not resolve endpoint")
		return
	}
	if match == nil {
		httputil.WriteErrorWith(w, http.StatusNotFound, "Endpoint not found", map[string]any{
			"path":   r.URL.Path,
			"method": r.Method,
		})
		return
	}

	project, endpoint := match.Project, match.Endpoint

	if err := CheckAuth(r, project, endpoint); err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			httputil.WriteErrorWith(w, http.StatusUnauthorized, "Authentication required", map[string]any{
				"message":        "Missing or invalid authentication token",
				"requiredHeader": authErr.RequiredHeader,
				"tokenFormat":    authErr.TokenFormat,
			})
			return
		}
		httputil.WriteInternalError(w, "Internal server error", "auth check failed")
		return
	}

	if d := h.enforcer.CheckRate(ctx, project.OwnerID); !d.Allowed {
		h.rejectQuota(w, d)
		return
	}
	if d := h.enforcer.CheckDaily(ctx, project.OwnerID); !d.Allowed {
		h.rejectQuota(w, d)
		return
	}

	if endpoint.IsDataView() {
		h.serveDataView(w, r, project, endpoint)
		return
	}
	if endpoint.HasSchema() {
		h.serveSubmission(w, r, project, endpoint)
		return
	}
	h.serveStatic(w, endpoint)
}

func (h *Handler) rejectQuota(w http.ResponseWriter, d quota.Decision) {
	if h.metrics != nil {
		h.metrics.ObserveQuotaRejection(string(d.Kind))
	}
	switch d.Kind {
	case quota.KindRate:
		httputil.WriteError(w, http.StatusTooManyRequests, "Rate limit exceeded", d.Message)
	case quota.KindDaily:
		httputil.WriteError(w, http.StatusTooManyRequests, "Daily request limit exceeded", d.Message)
	case quota.KindStorage:
		httputil.WriteErrorWith(w, http.StatusBadRequest, "Storage limit exceeded", map[string]any{
			"message":      d.Message,
			"readOnlyMode": true,
		})
	}
}

// serveStatic answers endpoints with no schema and no data source using the
// declared response template and status code.
func (h *Handler) serveStatic(w http.ResponseWriter, endpoint *mockapi.Endpoint) {
	status := endpoint.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	var body any
	if endpoint.Response != "" {
		if err := json.Unmarshal([]byte(endpoint.Response), &body); err != nil {
			// Template is not JSON; serve it as plain text
			w.WriteHeader(status)
			_, _ = w.Write([]byte(endpoint.Response))
			return
		}
	}
	httputil.WriteJSON(w, status, body)
}

// serveSubmission runs the write path: decode, validate, upload, storage
// check, persist.
func (h *Handler) serveSubmission(w http.ResponseWriter, r *http.Request, project *mockapi.Project, endpoint *mockapi.Endpoint) {
	ctx := r.Context()

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large",
				"request body exceeds the 10MB limit")
			return
		}
		httputil.WriteError(w, http.StatusBadRequest, "Validation failed", "could not read request body")
		return
	}

	body, err := formdata.Decode(r.Header.Get("Content-Type"), raw)
	if err != nil {
		h.rejectDecode(w, err)
		return
	}

	presence := make(validation.FilePresence, len(body.Files))
	for name := range body.Files {
		presence[name] = true
	}

	result := validation.ValidatePayload(endpoint.Fields, body.Fields, presence)

	out, uploadResult := h.pipeline.Process(ctx, endpoint.Fields, body.Files, body.Fields)
	result.Merge(uploadResult)
	if !result.Valid() {
		httputil.WriteErrorWith(w, http.StatusBadRequest, "Validation failed", map[string]any{
			"message": "Request validation failed",
			"details": result.Messages(),
		})
		return
	}

	if d := h.enforcer.CheckStorage(ctx, project.OwnerID, out.TotalSize, true); !d.Allowed {
		h.rejectQuota(w, d)
		return
	}

	sub := &mockapi.Submission{
		ID:         uuid.NewString(),
		EndpointID: endpoint.ID,
		ProjectID:  project.ID,
		Data:       body.Fields,
		Files:      out.Files,
		CreatedAt:  h.now().UTC(),
	}
	if err := h.submissions.Create(ctx, sub); err != nil {
		h.log.Error("submission write failed", "endpoint", endpoint.ID, "error", err)
		if h.metrics != nil {
			h.metrics.SubmissionsTotal.WithLabelValues("failed").Inc()
		}
		httputil.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Failed to store submission",
		})
		return
	}

	// The write is authoritative; a ledger update failure is logged only.
	if err := h.enforcer.CommitUsage(ctx, project.OwnerID, out.TotalSize); err != nil {
		h.log.Warn("storage ledger update failed", "account", project.OwnerID, "error", err)
	}

	if h.metrics != nil {
		h.metrics.SubmissionsTotal.WithLabelValues("stored").Inc()
		h.metrics.UploadBytesTotal.Add(float64(out.TotalSize))
	}

	resp := map[string]any{
		"message": "Data submitted successfully",
		"data":    sub.Data,
		"id":      sub.ID,
	}
	if len(sub.Files) > 0 {
		resp["files"] = sub.Files
	}
	httputil.WriteCreated(w, resp)
}

func (h *Handler) rejectDecode(w http.ResponseWriter, err error) {
	msg := "Invalid request body"
	switch {
	case errors.Is(err, formdata.ErrInvalidJSON):
		msg = "Invalid JSON"
	case errors.Is(err, formdata.ErrNoBoundary):
		msg = "Missing multipart boundary"
	case errors.Is(err, formdata.ErrMalformedMultipart), errors.Is(err, formdata.ErrMalformedPartHeader):
		msg = "Malformed multipart body"
	case errors.Is(err, formdata.ErrUnsupportedType):
		msg = "Unsupported content type"
	}
	httputil.WriteError(w, http.StatusBadRequest, "Validation failed", msg)
}

// serveDataView answers GET-style endpoints backed by a sibling POST
// endpoint's submissions.
func (h *Handler) serveDataView(w http.ResponseWriter, r *http.Request, project *mockapi.Project, endpoint *mockapi.Endpoint) {
	ctx := r.Context()

	// Reads stay available even when the account is over its storage cap.
	if d := h.enforcer.CheckStorage(ctx, project.OwnerID, 0, false); !d.Allowed {
		h.rejectQuota(w, d)
		return
	}

	var submissions []*mockapi.Submission
	if project.EndpointByID(endpoint.DataSource) != nil {
		var err error
		submissions, err = h.submissions.ListByEndpoint(ctx, project.ID, endpoint.DataSource)
		if err != nil {
			h.log.Error("submission lookup failed", "endpoint", endpoint.DataSource, "error", err)
			httputil.WriteInternalError(w, "Internal server error", "could not load submissions")
			return
		}
	}

	res := query.Run(endpoint, submissions, paramsFrom(r))

	if res.Mode == mockapi.ModeAggregator {
		httputil.WriteOK(w, map[string]any{"data": res.Aggregates})
		return
	}

	records := res.Records
	if records == nil {
		records = []map[string]any{}
	}
	resp := map[string]any{"data": records}
	if res.Meta != nil {
		resp["pagination"] = res.Meta
	}
	httputil.WriteOK(w, resp)
}

// paramsFrom reads limit/offset from the query string. Unparseable values
// fall back to the endpoint defaults.
func paramsFrom(r *http.Request) query.Params {
	var p query.Params
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.Limit = n
		}
	}
	if v := strings.TrimSpace(q.Get("offset")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Offset = n
		}
	}
	return p
}
