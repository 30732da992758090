package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/caffe-cappuccino/dl/pkg/catalog"
	"github.com/caffe-cappuccino/dl/pkg/service"
	"github.com/caffe-cappuccino/dl/pkg/translate"
)

// maxRequestBody caps JSON request bodies. Model inputs are short
// texts, not documents.
const maxRequestBody = 1 << 20

// HTTPServer serves the translation UI, the JSON API, job status with
// SSE progress updates, health, and Prometheus metrics.
type HTTPServer struct {
	svc      *service.TranslationService
	jobQueue *service.JobQueue
	logger   *logrus.Logger
	port     int
}

// NewHTTPServer creates a new HTTP server.
func NewHTTPServer(svc *service.TranslationService, jobQueue *service.JobQueue, logger *logrus.Logger, port int) *HTTPServer {
	if logger == nil {
		logger = logrus.New()
	}
	return &HTTPServer{
		svc:      svc,
		jobQueue: jobQueue,
		logger:   logger,
		port:     port,
	}
}

// Handler builds the route table.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	// Single-page UI
	mux.HandleFunc("/", s.handleIndex)

	// JSON API
	mux.HandleFunc("/api/v1/languages", s.handleLanguages)
	mux.HandleFunc("/api/v1/translate", s.handleTranslate)
	mux.HandleFunc("/api/v1/export", s.handleExport)

	// Job status endpoint (GET /api/v1/jobs/:jobID)
	// SSE endpoint for job progress (GET /api/v1/jobs/:jobID/events)
	// Both handled by the same function which routes based on path
	mux.HandleFunc("/api/v1/jobs", s.handleCreateJob)
	mux.HandleFunc("/api/v1/jobs/", s.handleJobRequest)

	// Health check endpoint
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// Addr returns the listen address for this server.
func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.port)
}

// translateRequest is the JSON body for translate, job and export calls.
type translateRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Text   string `json:"text"`
}

// handleIndex renders the translation page.
func (s *HTTPServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data := indexData{
		Languages:     catalog.DisplayNames(),
		DefaultSource: DetectSourceLanguage(r),
		DefaultTarget: "Spanish",
	}
	if data.DefaultSource == data.DefaultTarget {
		data.DefaultTarget = "English"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.WithError(err).Error("Failed to render index page")
	}
}

// handleLanguages returns the catalog for populating selectors.
func (s *HTTPServer) handleLanguages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"languages": s.svc.Languages(),
	})
}

// handleTranslate performs a synchronous translation. The call blocks
// through a cold model load; interactive clients should prefer jobs.
func (s *HTTPServer) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, ok := s.decodeTranslateRequest(w, r)
	if !ok {
		return
	}

	result, err := s.svc.Translate(r.Context(), req.Source, req.Target, req.Text)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// handleCreateJob enqueues an asynchronous translation job.
func (s *HTTPServer) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, ok := s.decodeTranslateRequest(w, r)
	if !ok {
		return
	}

	// Reject obviously invalid jobs up front so the client gets an
	// immediate error instead of a failed job.
	if strings.TrimSpace(req.Text) == "" {
		s.writeServiceError(w, service.ErrEmptyInput)
		return
	}

	jobID, err := s.jobQueue.CreateJob(req.Source, req.Target, req.Text)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to create job: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"job_id": jobID})
}

// handleJobRequest handles both job status and SSE events based on the path.
func (s *HTTPServer) handleJobRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Extract job ID from path
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	if path == "" {
		http.Error(w, "Job ID is required", http.StatusBadRequest)
		return
	}

	// Check if this is an SSE request
	isSSE := false
	jobID := path
	if strings.HasSuffix(path, "/events") {
		isSSE = true
		jobID = strings.TrimSuffix(path, "/events")
	}

	job, err := s.jobQueue.GetJob(jobID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Job not found: %v", err), http.StatusNotFound)
		return
	}

	if isSSE {
		s.handleJobEventsSSE(w, r, job)
	} else {
		s.handleJobStatusJSON(w, job)
	}
}

// handleJobStatusJSON returns the current status of a translation job as JSON.
func (s *HTTPServer) handleJobStatusJSON(w http.ResponseWriter, job *service.TranslationJob) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jobPayload(job))
}

// handleJobEventsSSE provides Server-Sent Events for job progress updates.
func (s *HTTPServer) handleJobEventsSSE(w http.ResponseWriter, r *http.Request, job *service.TranslationJob) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Poll job status; translation jobs are coarse enough that a
	// one-second cadence is plenty.
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	s.sendSSEEvent(w, "status", job)

	lastStatus := ""
	lastProgress := int32(-1)

	for {
		select {
		case <-r.Context().Done():
			// Client disconnected
			return
		case <-ticker.C:
			status, _, progress := job.GetStatus()

			if string(status) != lastStatus || progress != lastProgress {
				s.sendSSEEvent(w, "status", job)
				lastStatus = string(status)
				lastProgress = progress

				if status == service.JobStatusCompleted || status == service.JobStatusFailed {
					return
				}
			}
		}
	}
}

// sendSSEEvent sends one Server-Sent Event with the job snapshot.
func (s *HTTPServer) sendSSEEvent(w http.ResponseWriter, eventType string, job *service.TranslationJob) {
	data, err := json.Marshal(jobPayload(job))
	if err != nil {
		s.logger.WithError(err).Error("Failed to marshal SSE event")
		return
	}

	// SSE format: event: <type>\ndata: <json>\n\n
	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", string(data))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// jobPayload builds the wire representation of a job.
func jobPayload(job *service.TranslationJob) map[string]interface{} {
	snap := job.Snapshot()

	payload := map[string]interface{}{
		"job_id":           snap.ID,
		"status":           string(snap.Status),
		"progress_percent": snap.ProgressPercent,
		"progress_message": snap.ProgressMessage,
		"created_at":       snap.CreatedAt.Format(time.RFC3339),
	}

	if snap.StartedAt != nil {
		payload["started_at"] = snap.StartedAt.Format(time.RFC3339)
	}
	if snap.CompletedAt != nil {
		payload["completed_at"] = snap.CompletedAt.Format(time.RFC3339)
	}
	if snap.Status == service.JobStatusFailed {
		payload["error"] = snap.ErrorMessage
		payload["error_detail"] = snap.Error
	}
	if snap.Status == service.JobStatusCompleted {
		payload["translated_text"] = snap.Result.Text
		payload["model_id"] = snap.Result.ModelID
		payload["source_lang"] = snap.Result.SourceCode
		payload["target_lang"] = snap.Result.TargetCode
		payload["inference_time_seconds"] = snap.Result.InferenceSeconds
	}

	return payload
}

// handleExport returns the submitted translation as a downloadable
// plain-text file named translation_<source>_<target>.txt.
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req translateRequest
	// The export form posts urlencoded fields; the API posts JSON.
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var ok bool
		req, ok = s.decodeTranslateRequest(w, r)
		if !ok {
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form body", http.StatusBadRequest)
			return
		}
		req.Source = r.PostFormValue("source")
		req.Target = r.PostFormValue("target")
		req.Text = r.PostFormValue("text")
	}

	sourceCode, err := catalog.CodeOf(req.Source)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	targetCode, err := catalog.CodeOf(req.Target)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.writeServiceError(w, service.ErrEmptyInput)
		return
	}

	filename := service.ExportFilename(sourceCode, targetCode)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	io.WriteString(w, req.Text)
}

// handleHealth provides a health check endpoint.
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	})
}

// decodeTranslateRequest reads and validates the shared request body.
func (s *HTTPServer) decodeTranslateRequest(w http.ResponseWriter, r *http.Request) (translateRequest, bool) {
	var req translateRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return req, false
	}
	return req, true
}

// writeServiceError maps the service error taxonomy to status codes
// and a displayable message. Nothing reaches the client as a raw fault.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var unavailable *translate.ModelUnavailableError
	var failed *service.TranslationFailedError
	switch {
	case errors.Is(err, service.ErrEmptyInput), errors.Is(err, catalog.ErrUnknownLanguage):
		status = http.StatusBadRequest
	case errors.As(err, &unavailable):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &failed):
		status = http.StatusBadGateway
	}

	s.logger.WithError(err).WithFields(logrus.Fields{
		"status_code": status,
	}).Warn("Request failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":  service.DisplayMessage(err),
		"detail": err.Error(),
	})
}
