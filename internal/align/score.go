package align

import (
	"fmt"
	"strings"
)

// SignalKind labels one scoring contribution.
type SignalKind string

const (
	// Forward score signals.
	SignalLookaheadHit  SignalKind = "lookahead_hit"
	SignalLookaheadMiss SignalKind = "lookahead_miss"

	// Tiebreaker signals.
	SignalFirstHeading   SignalKind = "first_heading"
	SignalRepeatedTitle  SignalKind = "repeated_title"
	SignalElementType    SignalKind = "element_type"
	SignalContinuedTable SignalKind = "continued_table"
)

// Signal is one tagged contribution to a score. Keeping contributions
// separate from their sum gives an audit trail without string parsing.
type Signal struct {
	Kind  SignalKind
	Rank  int // lookahead rank for forward signals, 0 otherwise
	Delta int
}

// Score is an ordered list of contributions.
type Score struct {
	Signals []Signal
}

func (s *Score) add(kind SignalKind, rank, delta int) {
	s.Signals = append(s.Signals, Signal{Kind: kind, Rank: rank, Delta: delta})
}

// Total sums all contributions.
func (s Score) Total() int {
	total := 0
	for _, sig := range s.Signals {
		total += sig.Delta
	}
	return total
}

// String renders the audit trail, e.g.
// "lookahead_hit[0]+5 lookahead_miss[2]-2 = 3".
func (s Score) String() string {
	if len(s.Signals) == 0 {
		return "0"
	}
	var b strings.Builder
	for i, sig := range s.Signals {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch sig.Kind {
		case SignalLookaheadHit, SignalLookaheadMiss:
			fmt.Fprintf(&b, "%s[%d]%+d", sig.Kind, sig.Rank, sig.Delta)
		default:
			fmt.Fprintf(&b, "%s%+d", sig.Kind, sig.Delta)
		}
	}
	fmt.Fprintf(&b, " = %d", s.Total())
	return b.String()
}
