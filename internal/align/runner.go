// Package align is the outline-to-document alignment engine: it decides,
// for every outline entry, which occurrence of its title in the document
// is the real section start and where that section ends, then hands each
// resolved (start, end) pair to the section sink.
package align

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guppie70/sectioner/internal/document"
	"github.com/guppie70/sectioner/internal/match"
	"github.com/guppie70/sectioner/internal/outline"
)

// Sink receives each resolved section. end is nil when the section runs
// to the end of the document. The returned string identifies the
// produced output (a file name, typically).
type Sink interface {
	WriteSection(ctx context.Context, entry *outline.Entry, start, end *document.Heading) (string, error)
}

// DuplicatePrompt carries everything an interactive resolver needs to
// let a human pick the right occurrence.
type DuplicatePrompt struct {
	Entry     *outline.Entry
	Group     []match.Candidate // candidates with a heading, document order
	Processed []match.Candidate // matches already resolved this run
	Outline   []*outline.Entry  // full pre-order sequence
	Document  *document.Document
}

// DuplicateFunc is the escalation callback for duplicate groups the
// scorer cannot settle. Returning nil (and no error) declines the whole
// group.
type DuplicateFunc func(ctx context.Context, p DuplicatePrompt) (*match.Candidate, error)

// Options configures one pipeline run.
type Options struct {
	// SpecialFiles is a deny-list of output refs to skip without any
	// matching or boundary work.
	SpecialFiles map[string]bool

	// OnProgress receives human-readable progress lines. Optional.
	OnProgress func(string)

	// OnDuplicate resolves duplicate groups the scorer cannot. When nil,
	// unresolved groups are skipped entirely.
	OnDuplicate DuplicateFunc

	Scorer ScorerConfig
}

// Result aggregates one run's outcome. It is mutated only by the runner
// and frozen when Run returns.
type Result struct {
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Total     int           `json:"total"`
	Cancelled bool          `json:"cancelled"`
	Duration  time.Duration `json:"duration"`
	Outputs   []string      `json:"outputs"`
	Errors    []string      `json:"errors"`
}

// Runner walks the candidate sequence once, in order, resolving
// duplicates and boundaries as it goes. A Runner and its caches belong
// to exactly one run; concurrent runs need independent Runners.
type Runner struct {
	doc     *document.Document
	entries []*outline.Entry
	byID    map[string]*outline.Entry
	table   *match.Table
	scorer  *Scorer
	cache   *ResolutionCache
	sink    Sink
	opts    Options
	log     *slog.Logger
}

func NewRunner(doc *document.Document, entries []*outline.Entry, table *match.Table, sink Sink, opts Options, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	byID := make(map[string]*outline.Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	return &Runner{
		doc:     doc,
		entries: entries,
		byID:    byID,
		table:   table,
		scorer:  NewScorer(doc, opts.Scorer, log),
		cache:   NewResolutionCache(),
		sink:    sink,
		opts:    opts,
		log:     log,
	}
}

// Run performs the single sequential pass. Cancellation is polled before
// each outline entry; a section already being written completes first.
func (r *Runner) Run(ctx context.Context) *Result {
	start := time.Now()
	res := &Result{}
	var processed []match.Candidate

	rows := r.table.Rows()
	i := 0
	for i < len(rows) {
		if ctx.Err() != nil {
			res.Cancelled = true
			r.log.Info("run cancelled", "processed", res.Total)
			break
		}

		row := rows[i]
		entry := r.byID[row.EntryID]
		groupEnd := i
		for groupEnd < len(rows) && rows[groupEnd].EntryID == row.EntryID {
			groupEnd++
		}
		groupSize := groupEnd - i
		i = groupEnd

		if entry == nil {
			// A row for an entry the outline does not know is a loader
			// bug; count it as failed rather than dropping it silently.
			res.Failed++
			res.Total++
			res.Errors = append(res.Errors, fmt.Sprintf("unknown outline entry id %q", row.EntryID))
			continue
		}

		if r.opts.SpecialFiles[entry.OutputRef] {
			r.progress("skipping special file %s", entry.OutputRef)
			res.Skipped++
			res.Total++
			continue
		}

		if row.Heading == nil {
			r.progress("no match for %q, skipping", entry.Title)
			res.Skipped++
			res.Total++
			continue
		}

		chosen := row
		if row.Duplicate() {
			resolved, declined, err := r.resolveDuplicate(ctx, entry, rows[groupEnd-groupSize:groupEnd], processed)
			if err != nil {
				res.Failed++
				res.Total++
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", entry.Title, err))
				continue
			}
			if declined {
				r.progress("duplicate group %q unresolved, skipping %d candidates", entry.Title, groupSize)
				res.Skipped += groupSize
				res.Total += groupSize
				continue
			}
			chosen = resolved
		}

		r.writeSection(ctx, entry, chosen, res)
		processed = append(processed, chosen)
	}

	res.Duration = time.Since(start)
	r.log.Info("run complete",
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"skipped", res.Skipped,
		"total", res.Total,
		"cancelled", res.Cancelled,
		"duration", res.Duration,
	)
	return res
}

// resolveDuplicate settles a duplicate group: cache first, then the
// scorer, then the escalation callback. declined is true when the whole
// group should be skipped.
func (r *Runner) resolveDuplicate(ctx context.Context, entry *outline.Entry, group []match.Candidate, processed []match.Candidate) (resolved match.Candidate, declined bool, err error) {
	if cached, ok := r.cache.Get(entry.ID); ok {
		r.log.Debug("duplicate resolved from cache", "entry_id", entry.ID, "position", headingPosition(cached.Heading))
		return cached, false, nil
	}

	lookahead := r.following(entry, r.scorer.cfg.Lookahead)
	if winner := r.scorer.Disambiguate(group, lookahead); winner != nil {
		r.cache.Put(entry.ID, *winner)
		r.progress("auto-resolved duplicate %q at position %d", entry.Title, headingPosition(winner.Heading))
		return *winner, false, nil
	}

	if r.opts.OnDuplicate == nil {
		return match.Candidate{}, true, nil
	}
	pick, err := r.opts.OnDuplicate(ctx, DuplicatePrompt{
		Entry:     entry,
		Group:     withHeadings(group),
		Processed: processed,
		Outline:   r.entries,
		Document:  r.doc,
	})
	if err != nil {
		return match.Candidate{}, false, fmt.Errorf("duplicate callback: %w", err)
	}
	if pick == nil {
		return match.Candidate{}, true, nil
	}
	r.cache.Put(entry.ID, *pick)
	r.progress("user resolved duplicate %q at position %d", entry.Title, headingPosition(pick.Heading))
	return *pick, false, nil
}

// resolveBoundary finds the heading at which the section starting at
// start ends: the resolved occurrence of the outline entry immediately
// following cur in pre-order. nil means the section runs to the end of
// the document. Boundaries always resolve without human input — an
// ambiguous boundary falls back to the earliest candidate after start.
func (r *Runner) resolveBoundary(start *document.Heading, cur *outline.Entry) *document.Heading {
	next := r.nextEntry(cur)
	if next == nil {
		return nil
	}

	if cached, ok := r.cache.Get(next.ID); ok {
		if cached.Heading != nil && document.After(start, cached.Heading) {
			return cached.Heading
		}
		return nil
	}

	var after []match.Candidate
	for _, c := range r.table.Matched(next.ID) {
		if document.After(start, c.Heading) {
			after = append(after, c)
		}
	}
	switch len(after) {
	case 0:
		return nil
	case 1:
		r.cache.Put(next.ID, after[0])
		return after[0].Heading
	}

	if winner := r.scorer.Disambiguate(after, r.following(next, r.scorer.cfg.Lookahead)); winner != nil {
		r.cache.Put(next.ID, *winner)
		return winner.Heading
	}

	// Inconclusive: pick the closest, earliest-occurring candidate so the
	// pipeline never stalls on where a section merely ends.
	earliest := after[0]
	for _, c := range after[1:] {
		if c.Heading.Position < earliest.Heading.Position {
			earliest = c
		}
	}
	r.cache.Put(next.ID, earliest)
	return earliest.Heading
}

// writeSection resolves the end boundary and hands the section to the
// sink. A sink failure is recorded and the run continues.
func (r *Runner) writeSection(ctx context.Context, entry *outline.Entry, chosen match.Candidate, res *Result) {
	end := r.resolveBoundary(chosen.Heading, entry)
	r.progress("extracting %q", entry.Title)

	ref, err := r.sink.WriteSection(ctx, entry, chosen.Heading, end)
	res.Total++
	if err != nil {
		r.log.Error("section failed", "entry_id", entry.ID, "title", entry.Title, "error", err)
		res.Failed++
		res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", entry.Title, err))
		return
	}
	res.Succeeded++
	res.Outputs = append(res.Outputs, ref)
}

// nextEntry returns the entry immediately following e in pre-order.
func (r *Runner) nextEntry(e *outline.Entry) *outline.Entry {
	for i, cur := range r.entries {
		if cur == e {
			if i+1 < len(r.entries) {
				return r.entries[i+1]
			}
			return nil
		}
	}
	return nil
}

// following returns up to n entries after e in pre-order.
func (r *Runner) following(e *outline.Entry, n int) []*outline.Entry {
	for i, cur := range r.entries {
		if cur == e {
			end := i + 1 + n
			if end > len(r.entries) {
				end = len(r.entries)
			}
			return r.entries[i+1 : end]
		}
	}
	return nil
}

func (r *Runner) progress(format string, args ...any) {
	if r.opts.OnProgress != nil {
		r.opts.OnProgress(fmt.Sprintf(format, args...))
	}
}

func withHeadings(group []match.Candidate) []match.Candidate {
	var out []match.Candidate
	for _, c := range group {
		if c.Heading != nil {
			out = append(out, c)
		}
	}
	return out
}

func headingPosition(h *document.Heading) int {
	if h == nil {
		return -1
	}
	return h.Position
}
