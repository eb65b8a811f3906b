package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/guppie70/sectioner/internal/config"
	"github.com/guppie70/sectioner/internal/pipeline"
)

const testAPIKey = "test-key"

const testDocument = `<html><head><title>Annual Report</title></head><body>
<h1>Introduction</h1><p>opening</p>
<h1>Financials</h1><p>numbers</p>
<h1>Outlook</h1><p>bright</p>
</body></html>`

const testOutline = `
sections:
  - title: Introduction
  - title: Financials
  - title: Outlook
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		APIKey:         testAPIKey,
		WorkerCount:    1,
		MaxQueueSize:   4,
		MaxUploadBytes: 10 << 20,
		JobTTL:         time.Minute,
		OutputDir:      t.TempDir(),
		OutputFormat:   "xhtml",
	}
}

// newTestServer spins up the full stack with running workers.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := testConfig(t)
	orch := pipeline.NewOrchestrator(cfg, testLogger())
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)
	return NewServer(orch, testLogger(), cfg)
}

// newIdleServer has no workers running: submitted jobs stay queued.
func newIdleServer(t *testing.T) *Server {
	t.Helper()
	cfg := testConfig(t)
	return NewServer(pipeline.NewOrchestrator(cfg, testLogger()), testLogger(), cfg)
}

func splitRequest(t *testing.T, docName, doc, olName, ol string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if docName != "" {
		fw, err := mw.CreateFormFile("document", docName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write([]byte(doc))
	}
	if olName != "" {
		fw, err := mw.CreateFormFile("outline", olName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write([]byte(ol))
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/split", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	return req
}

func authedGet(path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	return req
}

func doJSON(t *testing.T, s *Server, req *http.Request, wantStatus int) map[string]any {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != wantStatus {
		t.Fatalf("%s %s: expected %d, got %d: %s", req.Method, req.URL.Path, wantStatus, rec.Code, rec.Body)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v: %s", err, rec.Body)
	}
	return body
}

func TestHealth_NoAuthRequired(t *testing.T) {
	s := newIdleServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuth_MissingAndWrongKey(t *testing.T) {
	s := newIdleServer(t)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/split/x/status", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing auth: expected 401, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/split/x/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: expected 401, got %d", rec.Code)
	}
}

func waitForStatus(t *testing.T, s *Server, jobID string, want pipeline.JobStatus) map[string]any {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		body := doJSON(t, s, authedGet("/api/split/"+jobID+"/status"), http.StatusOK)
		switch pipeline.JobStatus(body["status"].(string)) {
		case want:
			return body
		case pipeline.StatusFailed:
			t.Fatalf("job failed: %v", body["errors"])
		}
		select {
		case <-deadline:
			t.Fatalf("job never reached %s", want)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSplit_EndToEnd(t *testing.T) {
	s := newTestServer(t)

	body := doJSON(t, s, splitRequest(t, "report.html", testDocument, "toc.yaml", testOutline, nil), http.StatusAccepted)
	jobID, _ := body["job_id"].(string)
	if jobID == "" {
		t.Fatalf("missing job_id: %v", body)
	}
	if body["poll_url"] != "/api/split/"+jobID+"/status" {
		t.Errorf("unexpected poll_url: %v", body["poll_url"])
	}

	status := waitForStatus(t, s, jobID, pipeline.StatusCompleted)
	result, _ := status["result"].(map[string]any)
	if result == nil || result["succeeded"].(float64) != 3 {
		t.Fatalf("unexpected result: %v", status)
	}

	listed := doJSON(t, s, authedGet("/api/split/"+jobID+"/sections"), http.StatusOK)
	sections, _ := listed["sections"].([]any)
	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %v", listed)
	}
	first := sections[0].(map[string]any)["file"].(string)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, authedGet("/api/split/"+jobID+"/sections/"+first))
	if rec.Code != http.StatusOK {
		t.Fatalf("get section: expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "xhtml") {
		t.Errorf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "<h1>Introduction</h1>") {
		t.Errorf("section content missing: %s", rec.Body)
	}
}

func TestSplit_MissingDocument(t *testing.T) {
	s := newIdleServer(t)
	doJSON(t, s, splitRequest(t, "", "", "toc.yaml", testOutline, nil), http.StatusBadRequest)
}

func TestSplit_UnsupportedDocumentType(t *testing.T) {
	s := newIdleServer(t)
	doJSON(t, s, splitRequest(t, "report.odt", "x", "toc.yaml", testOutline, nil), http.StatusBadRequest)
}

func TestSplit_MalformedOutlineRejectedEagerly(t *testing.T) {
	s := newIdleServer(t)
	doJSON(t, s, splitRequest(t, "report.html", testDocument, "toc.yaml", "not: [valid", nil), http.StatusBadRequest)
}

func TestSplit_UnknownFormatRejected(t *testing.T) {
	s := newIdleServer(t)
	doJSON(t, s, splitRequest(t, "report.html", testDocument, "toc.yaml", testOutline,
		map[string]string{"format": "pdf"}), http.StatusBadRequest)
}

func TestStatus_UnknownJob(t *testing.T) {
	s := newIdleServer(t)
	doJSON(t, s, authedGet("/api/split/nope/status"), http.StatusNotFound)
}

func TestCancel_QueuedJob(t *testing.T) {
	s := newIdleServer(t)

	body := doJSON(t, s, splitRequest(t, "report.html", testDocument, "toc.yaml", testOutline, nil), http.StatusAccepted)
	jobID := body["job_id"].(string)

	req := httptest.NewRequest(http.MethodPost, "/api/split/"+jobID+"/cancel", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	cancelled := doJSON(t, s, req, http.StatusOK)
	if cancelled["cancelled"] != true {
		t.Fatalf("unexpected cancel response: %v", cancelled)
	}

	// A second cancel hits an already-finished job.
	req = httptest.NewRequest(http.MethodPost, "/api/split/"+jobID+"/cancel", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	doJSON(t, s, req, http.StatusConflict)
}

func TestSections_RunningJobRejected(t *testing.T) {
	s := newIdleServer(t)

	body := doJSON(t, s, splitRequest(t, "report.html", testDocument, "toc.yaml", testOutline, nil), http.StatusAccepted)
	jobID := body["job_id"].(string)

	// No workers are running, so the job is still queued.
	doJSON(t, s, authedGet("/api/split/"+jobID+"/sections"), http.StatusConflict)
}

func TestGetSection_PathTraversalBlocked(t *testing.T) {
	s := newTestServer(t)

	body := doJSON(t, s, splitRequest(t, "report.html", testDocument, "toc.yaml", testOutline, nil), http.StatusAccepted)
	jobID := body["job_id"].(string)
	waitForStatus(t, s, jobID, pipeline.StatusCompleted)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, authedGet("/api/split/"+jobID+"/sections/..%2F..%2Fetc%2Fpasswd"))
	if rec.Code == http.StatusOK {
		t.Fatal("traversal attempt must not serve a file")
	}
}
