package align

import (
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/guppie70/sectioner/internal/document"
	"github.com/guppie70/sectioner/internal/match"
	"github.com/guppie70/sectioner/internal/outline"
)

// ScorerConfig tunes the disambiguation heuristics. Zero values fall
// back to the defaults the heuristics were calibrated with.
type ScorerConfig struct {
	Window         int // headings examined after a candidate (default 20)
	Lookahead      int // outline entries expected to follow (default 4)
	ForwardMargin  int // forward-score lead required to accept (default 3)
	TiebreakMargin int // tiebreak lead required to accept (default 2)
}

func (c ScorerConfig) withDefaults() ScorerConfig {
	if c.Window <= 0 {
		c.Window = 20
	}
	if c.Lookahead <= 0 {
		c.Lookahead = 4
	}
	if c.ForwardMargin <= 0 {
		c.ForwardMargin = 3
	}
	if c.TiebreakMargin <= 0 {
		c.TiebreakMargin = 2
	}
	return c
}

// Scorer picks the true occurrence out of a duplicate candidate group by
// checking whether the outline entries expected to follow actually appear
// shortly after each candidate.
type Scorer struct {
	doc *document.Document
	cfg ScorerConfig
	log *slog.Logger
}

func NewScorer(doc *document.Document, cfg ScorerConfig, log *slog.Logger) *Scorer {
	if log == nil {
		log = slog.Default()
	}
	return &Scorer{doc: doc, cfg: cfg.withDefaults(), log: log}
}

// Disambiguate returns the confident winner among group, or nil when
// neither the forward score nor the tiebreaker separates the candidates.
// Candidates without a heading are ignored.
func (s *Scorer) Disambiguate(group []match.Candidate, lookahead []*outline.Entry) *match.Candidate {
	type scored struct {
		cand    match.Candidate
		forward Score
	}
	var ranked []scored
	for _, c := range group {
		if c.Heading == nil {
			continue
		}
		ranked = append(ranked, scored{cand: c, forward: s.ForwardScore(c.Heading, lookahead)})
	}
	if len(ranked) == 0 {
		return nil
	}
	if len(ranked) == 1 {
		return &ranked[0].cand
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].forward.Total() > ranked[j].forward.Total()
	})
	best, second := ranked[0], ranked[1]
	for _, r := range ranked {
		s.log.Debug("forward score",
			"entry_id", r.cand.EntryID,
			"position", r.cand.Heading.Position,
			"score", r.forward.String(),
		)
	}
	if best.forward.Total()-second.forward.Total() >= s.cfg.ForwardMargin {
		return &best.cand
	}

	// The tiebreaker only separates candidates whose forward scores are
	// actually tied; a 1–2 point forward lead stays inconclusive.
	if best.forward.Total() != second.forward.Total() {
		return nil
	}
	var tied []scored
	for _, r := range ranked {
		if r.forward.Total() == best.forward.Total() {
			tied = append(tied, r)
		}
	}

	type tieScored struct {
		cand match.Candidate
		tie  Score
	}
	var tieRanked []tieScored
	for _, r := range tied {
		sc := s.TiebreakScore(r.cand.Heading)
		s.log.Debug("tiebreak score",
			"entry_id", r.cand.EntryID,
			"position", r.cand.Heading.Position,
			"score", sc.String(),
		)
		tieRanked = append(tieRanked, tieScored{cand: r.cand, tie: sc})
	}
	sort.SliceStable(tieRanked, func(i, j int) bool {
		return tieRanked[i].tie.Total() > tieRanked[j].tie.Total()
	})
	if tieRanked[0].tie.Total()-tieRanked[1].tie.Total() >= s.cfg.TiebreakMargin {
		return &tieRanked[0].cand
	}
	return nil
}

// ForwardScore checks the headings shortly after cand for the titles of
// the outline entries expected to follow. A lookahead title found at rank
// j contributes 5−j; one missing from the window contributes −2.
func (s *Scorer) ForwardScore(cand *document.Heading, lookahead []*outline.Entry) Score {
	var score Score

	headings := s.doc.Headings()
	idx := s.doc.IndexOf(cand)
	var window []*document.Heading
	if idx >= 0 && idx+1 < len(headings) {
		end := idx + 1 + s.cfg.Window
		if end > len(headings) {
			end = len(headings)
		}
		window = headings[idx+1 : end]
	}

	n := s.cfg.Lookahead
	if n > len(lookahead) {
		n = len(lookahead)
	}
	for j := 0; j < n; j++ {
		found := false
		for _, h := range window {
			if document.EqualTitle(lookahead[j].Title, h.Norm) {
				found = true
				break
			}
		}
		if found {
			score.add(SignalLookaheadHit, j, 5-j)
		} else {
			score.add(SignalLookaheadMiss, j, -2)
		}
	}
	return score
}

// TiebreakScore applies the secondary heuristics: preceding-heading
// checks first, then element type and continuation-table context when
// the backward check says nothing.
func (s *Scorer) TiebreakScore(cand *document.Heading) Score {
	var score Score

	idx := s.doc.IndexOf(cand)
	if idx == 0 {
		// Opening the document is a strong legitimate-start signal.
		score.add(SignalFirstHeading, 0, 2)
		return score
	}
	if idx > 0 {
		prev := s.doc.Headings()[idx-1]
		if strings.EqualFold(prev.Norm, cand.Norm) {
			// An immediately repeated title marks a running-header or
			// continuation duplicate, not a new section.
			score.add(SignalRepeatedTitle, 0, -5)
			return score
		}
	}

	score.add(SignalElementType, 0, elementTypeScore(cand))
	if continuedTableFollows(cand.Node) {
		score.add(SignalContinuedTable, 0, -8)
	}
	return score
}

// elementTypeScore rates the candidate's own element: h1 scores 10 down
// to h6 scoring 5; anything that is not a real heading scores -5.
func elementTypeScore(h *document.Heading) int {
	if h.Level >= 1 && h.Level <= 6 {
		return 11 - h.Level
	}
	return -5
}

// continuedTableFollows scans up to 5 following siblings, stopping at
// the next heading, for a table carrying the "(continued)" marker — the
// signature of the tail half of a split table.
func continuedTableFollows(n *html.Node) bool {
	seen := 0
	for sib := n.NextSibling; sib != nil && seen < 5; sib = sib.NextSibling {
		if sib.Type != html.ElementNode {
			continue
		}
		seen++
		if document.HeadingLevel(sib) > 0 {
			return false
		}
		if tableContainsContinued(sib) {
			return true
		}
	}
	return false
}

func tableContainsContinued(n *html.Node) bool {
	if n.Type == html.ElementNode && n.DataAtom == atom.Table {
		text := strings.ToLower(document.TextContent(n))
		return strings.Contains(text, "(continued)")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if tableContainsContinued(c) {
			return true
		}
	}
	return false
}
