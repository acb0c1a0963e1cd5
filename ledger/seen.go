package ledger

import "sort"

// SeenSet is the append-only set of processed trade identifiers. It only ever
// grows; dedup against it is a hard invariant of reconciliation.
type SeenSet struct {
	ids map[string]struct{}
}

func NewSeenSet() *SeenSet {
	return &SeenSet{ids: make(map[string]struct{})}
}

func (s *SeenSet) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *SeenSet) Add(id string) {
	s.ids[id] = struct{}{}
}

func (s *SeenSet) Len() int {
	return len(s.ids)
}

// Snapshot returns the ids sorted, for stable persistence.
func (s *SeenSet) Snapshot() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Restore loads previously persisted ids.
func (s *SeenSet) Restore(ids []string) {
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}
