package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/guppie70/sectioner/internal/convert"
	"github.com/guppie70/sectioner/internal/outline"
	"github.com/guppie70/sectioner/internal/output"
	"github.com/guppie70/sectioner/internal/pipeline"
)

// handleSplit accepts a multipart form with a "document" file, an
// "outline" file, and optional "format" and "special_files" fields, and
// queues a background split job.
func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	docData, docName, err := s.readUpload(r, "document")
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !convert.IsSupportedExtension(docName) {
		jsonError(w, fmt.Sprintf("unsupported document type: %s", filepath.Ext(docName)), http.StatusBadRequest)
		return
	}

	outlineData, outlineName, err := s.readUpload(r, "outline")
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	// Validate the outline eagerly so a malformed one fails the request,
	// not the background job.
	if _, err := outline.Load(strings.NewReader(string(outlineData)), outlineName); err != nil {
		jsonError(w, "invalid outline: "+err.Error(), http.StatusBadRequest)
		return
	}

	format := r.FormValue("format")
	if format == "" {
		format = s.cfg.OutputFormat
	}
	if _, err := output.ParseFormat(format); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	special := make(map[string]bool)
	for _, ref := range strings.Split(r.FormValue("special_files"), ",") {
		if ref = strings.TrimSpace(ref); ref != "" {
			special[ref] = true
		}
	}

	now := time.Now()
	job := &pipeline.Job{
		ID:           uuid.NewString(),
		Status:       pipeline.StatusQueued,
		Phase:        "queued",
		DocumentName: docName,
		OutlineName:  outlineName,
		OutputFormat: format,
		OutputDir:    filepath.Join(s.cfg.OutputDir, pipeline.NewRunID()),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	job.SetInputs(docData, outlineData, special)

	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"status":   job.Status,
		"poll_url": fmt.Sprintf("/api/split/%s/status", job.ID),
	})
}

func (s *Server) handleSplitStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

// handleSplitCancel requests cooperative cancellation: the run stops
// before the next section; sections already written stay on disk.
func (s *Server) handleSplitCancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	if !s.orchestrator.CancelJob(jobID) {
		jsonError(w, "job already finished", http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":    jobID,
		"cancelled": true,
	})
}

// readUpload reads one named multipart file fully, enforcing the upload
// size limit.
func (s *Server) readUpload(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("%s file is required: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s", field)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, "", fmt.Errorf("%s exceeds max size (%d bytes)", field, s.cfg.MaxUploadBytes)
	}
	return data, sanitizeFilename(header.Filename), nil
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
