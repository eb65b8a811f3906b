package align

import "github.com/guppie70/sectioner/internal/match"

// ResolutionCache memoizes, per run, which candidate was chosen for each
// outline entry. A duplicate group resolved once — by the scorer, the
// user callback, or a boundary search — is never re-scored or
// re-prompted within the same run.
//
// Entries are retained for all subsequent lookups. (An earlier revision
// of this cache evicted an entry on its first reuse; retaining proved
// the right behavior for outlines whose entries are consulted both as
// sections and as boundaries.)
type ResolutionCache struct {
	m map[string]match.Candidate
}

func NewResolutionCache() *ResolutionCache {
	return &ResolutionCache{m: make(map[string]match.Candidate)}
}

// Get returns the cached resolution for an entry id.
func (c *ResolutionCache) Get(id string) (match.Candidate, bool) {
	cand, ok := c.m[id]
	return cand, ok
}

// Put records a resolution. Once written, an id's entry is immutable:
// later writes for the same id are no-ops.
func (c *ResolutionCache) Put(id string, cand match.Candidate) {
	if _, ok := c.m[id]; ok {
		return
	}
	c.m[id] = cand
}

// Len reports how many entries have been resolved so far.
func (c *ResolutionCache) Len() int {
	return len(c.m)
}
