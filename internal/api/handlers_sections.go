package api

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/guppie70/sectioner/internal/pipeline"
)

// handleListSections lists the section files a finished job produced.
func (s *Server) handleListSections(w http.ResponseWriter, r *http.Request) {
	job, ok := s.finishedJob(w, r)
	if !ok {
		return
	}

	snap := job.Snapshot()
	var sections []map[string]any
	if snap.Result != nil {
		for _, ref := range snap.Result.Outputs {
			info, err := os.Stat(filepath.Join(job.OutputDir, ref))
			entry := map[string]any{"file": ref}
			if err == nil {
				entry["bytes"] = info.Size()
			}
			sections = append(sections, entry)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   snap.ID,
		"status":   snap.Status,
		"sections": sections,
	})
}

// handleGetSection serves one produced section file.
func (s *Server) handleGetSection(w http.ResponseWriter, r *http.Request) {
	job, ok := s.finishedJob(w, r)
	if !ok {
		return
	}

	name := filepath.Base(chi.URLParam(r, "name"))
	path := filepath.Join(job.OutputDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		jsonError(w, "section not found", http.StatusNotFound)
		return
	}

	if strings.HasSuffix(name, ".md") {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "application/xhtml+xml; charset=utf-8")
	}
	w.Write(data)
}

// finishedJob loads the job and rejects requests for ones still running.
func (s *Server) finishedJob(w http.ResponseWriter, r *http.Request) (*pipeline.Job, bool) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return nil, false
	}
	switch job.Snapshot().Status {
	case pipeline.StatusCompleted, pipeline.StatusPartial, pipeline.StatusCancelled:
		return job, true
	default:
		jsonError(w, "job still running", http.StatusConflict)
		return nil, false
	}
}
