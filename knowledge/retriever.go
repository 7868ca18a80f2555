package knowledge

import "sort"

// Entry is one historical couplet. Entries are never mutated after load.
type Entry struct {
	Upper string `json:"upper" yaml:"upper"`
	Lower string `json:"lower" yaml:"lower"`
}

// Match is an entry together with its similarity to the query
type Match struct {
	Entry Entry
	Score float64
}

// Retrieve scores every entry's upper line against query and returns at most
// k matches scoring at least minScore, best first. Equal scores keep corpus
// order. The result may be empty.
func Retrieve(query string, corpus []Entry, k int, minScore float64) []Match {
	if k <= 0 || len(corpus) == 0 {
		return nil
	}

	matches := make([]Match, 0, len(corpus))
	for _, e := range corpus {
		score := Ratio(query, e.Upper)
		if score >= minScore {
			matches = append(matches, Match{Entry: e, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// Base is a loaded, read-only knowledge base. Safe for concurrent use.
type Base struct {
	entries []Entry
	source  string
}

// NewBase wraps entries; the slice is copied so callers cannot mutate it later
func NewBase(entries []Entry, source string) *Base {
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	return &Base{entries: cp, source: source}
}

// Retrieve runs Retrieve over the base's corpus
func (b *Base) Retrieve(query string, k int, minScore float64) []Match {
	return Retrieve(query, b.entries, k, minScore)
}

// Entries returns a copy of the corpus in load order
func (b *Base) Entries() []Entry {
	cp := make([]Entry, len(b.entries))
	copy(cp, b.entries)
	return cp
}

// Len returns the number of entries
func (b *Base) Len() int { return len(b.entries) }

// Source describes where the corpus was loaded from
func (b *Base) Source() string { return b.source }
