package index

import (
	"github.com/Aman-CERP/storyindex/pkg/indexer"
)

// Entry is one item of the served index.
type Entry struct {
	Type       indexer.EntryType `json:"type"`
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Title      string            `json:"title"`
	ImportPath string            `json:"importPath"`
	Tags       []string          `json:"tags,omitempty"`

	// StoriesImports lists the story files a docs entry depends on.
	StoriesImports []string `json:"storiesImports,omitempty"`

	// FullStore marks entries produced by an indexer that needs full-store
	// support. Never serialized.
	FullStore bool `json:"-"`
}

// IsDocs reports whether the entry is a documentation page.
func (e *Entry) IsDocs() bool {
	return e.Type == indexer.TypeDocs
}

// Snapshot is an immutable, ordered index built for one generation.
type Snapshot struct {
	// V is the index format version.
	V int
	// Entries maps id to entry.
	Entries map[string]*Entry
	// Order lists ids in serving order.
	Order []string
	// Generation is the generator generation the snapshot was built for.
	Generation uint64
}

// Len returns the number of entries.
func (s *Snapshot) Len() int {
	return len(s.Order)
}

// Get returns an entry by id.
func (s *Snapshot) Get(id string) (*Entry, bool) {
	e, ok := s.Entries[id]
	return e, ok
}

// Ordered returns the entries in serving order.
func (s *Snapshot) Ordered() []*Entry {
	out := make([]*Entry, 0, len(s.Order))
	for _, id := range s.Order {
		out = append(out, s.Entries[id])
	}
	return out
}

// Counts returns the number of story and docs entries.
func (s *Snapshot) Counts() (stories, docs int) {
	for _, e := range s.Entries {
		if e.IsDocs() {
			docs++
		} else {
			stories++
		}
	}
	return stories, docs
}

// NewSnapshot builds a snapshot serving entries in the given order.
func NewSnapshot(entries []*Entry, generation uint64) *Snapshot {
	s := &Snapshot{
		V:          4,
		Entries:    make(map[string]*Entry, len(entries)),
		Order:      make([]string, 0, len(entries)),
		Generation: generation,
	}
	for _, e := range entries {
		s.Entries[e.ID] = e
		s.Order = append(s.Order, e.ID)
	}
	return s
}
