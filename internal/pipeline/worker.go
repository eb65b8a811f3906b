package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/guppie70/sectioner/internal/align"
	"github.com/guppie70/sectioner/internal/config"
	"github.com/guppie70/sectioner/internal/convert"
	"github.com/guppie70/sectioner/internal/document"
	"github.com/guppie70/sectioner/internal/match"
	"github.com/guppie70/sectioner/internal/outline"
	"github.com/guppie70/sectioner/internal/output"
)

// Worker processes a single split job: convert → parse → match → align.
type Worker struct {
	cfg config.Config
	log *slog.Logger
}

func NewWorker(cfg config.Config, log *slog.Logger) *Worker {
	return &Worker{cfg: cfg, log: log}
}

// Process runs the full split pipeline for a job. Per-section failures
// are recorded in the run result; only setup failures (unreadable
// document, bad outline) fail the whole job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "document", job.DocumentName)

	// Cancelled while queued, or the pool is shutting down.
	if ctx.Err() != nil || job.Snapshot().Status == StatusCancelled {
		job.SetStatus(StatusCancelled, "cancelled")
		return
	}

	docData, outlineData, special := job.Inputs()

	// Phase 1: Convert the upload to normalized XHTML.
	job.SetStatus(StatusConverting, "converting")
	conv, err := convert.ForFile(job.DocumentName, convert.Options{
		SanitizeHTML:         w.cfg.SanitizeHTML,
		PDFFallbackPdftotext: w.cfg.PDFFallbackPdftotext,
	})
	if err != nil {
		w.fail(job, log, "converting", err)
		return
	}
	xhtml, err := conv.Convert(bytes.NewReader(docData), job.DocumentName)
	if err != nil {
		w.fail(job, log, "converting", fmt.Errorf("convert: %w", err))
		return
	}

	// Phase 2: Parse the document and the outline.
	job.SetStatus(StatusParsing, "parsing")
	doc, err := document.Parse(bytes.NewReader(xhtml))
	if err != nil {
		w.fail(job, log, "parsing", err)
		return
	}
	ol, err := outline.Load(bytes.NewReader(outlineData), job.OutlineName)
	if err != nil {
		w.fail(job, log, "parsing", fmt.Errorf("outline: %w", err))
		return
	}
	entries := ol.Flatten()
	log.Info("parsed inputs", "headings", len(doc.Headings()), "outline_entries", len(entries))

	// Phase 3: Build the candidate table.
	job.SetStatus(StatusMatching, "matching")
	table := match.Build(entries, doc)

	// Phase 4: Run the alignment engine.
	job.SetStatus(StatusSplitting, "splitting")
	format, err := output.ParseFormat(job.OutputFormat)
	if err != nil {
		w.fail(job, log, "splitting", err)
		return
	}
	sink, err := output.NewSectionWriter(doc, job.OutputDir, format, log)
	if err != nil {
		w.fail(job, log, "splitting", err)
		return
	}

	runner := align.NewRunner(doc, entries, table, sink, align.Options{
		SpecialFiles: special,
		OnProgress:   job.SetMessage,
		// The service runs headless: duplicate groups the scorer cannot
		// settle are skipped rather than escalated. Interactive hosts
		// supply their own OnDuplicate via the align package directly.
		OnDuplicate: nil,
		Scorer:      w.cfg.Scorer,
	}, log)
	res := runner.Run(ctx)
	job.SetResult(res)
	for _, e := range res.Errors {
		job.AddError(e)
	}

	var final JobStatus
	switch {
	case res.Cancelled:
		final = StatusCancelled
		job.SetStatus(final, "cancelled")
	case res.Succeeded == 0 && res.Failed > 0:
		final = StatusFailed
		job.SetStatus(final, "splitting")
	case res.Failed > 0:
		final = StatusPartial
		job.SetStatus(final, "done")
	default:
		final = StatusCompleted
		job.SetStatus(final, "done")
	}
	log.Info("split finished",
		"status", final,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"skipped", res.Skipped,
		"output_dir", filepath.Base(job.OutputDir),
	)
}

func (w *Worker) fail(job *Job, log *slog.Logger, phase string, err error) {
	log.Error(phase+" failed", "error", err)
	job.AddError(err.Error())
	job.SetStatus(StatusFailed, phase)
}
