package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	sierrors "github.com/Aman-CERP/storyindex/internal/errors"
	"github.com/Aman-CERP/storyindex/internal/index"
)

// EntryV4 is one entry of the v4 index.
type EntryV4 struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Name       string   `json:"name"`
	ImportPath string   `json:"importPath"`
	Type       string   `json:"type"`
	Tags       []string `json:"tags"`
	// StoriesImports is nil for story entries and always present for docs.
	StoriesImports *[]string `json:"storiesImports,omitempty"`
}

// IndexV4 is the canonical index format.
type IndexV4 struct {
	V       int
	Entries []EntryV4
}

// Parameters is the v3 per-story parameters block.
type Parameters struct {
	ID       string `json:"__id"`
	DocsOnly bool   `json:"docsOnly"`
	FileName string `json:"fileName"`
}

// StoryV3 is one entry of the v3 index.
type StoryV3 struct {
	ID             string     `json:"id"`
	Kind           string     `json:"kind"`
	Story          string     `json:"story"`
	ImportPath     string     `json:"importPath"`
	Tags           []string   `json:"tags,omitempty"`
	StoriesImports *[]string  `json:"storiesImports,omitempty"`
	Parameters     Parameters `json:"parameters"`
}

// IndexV3 is the legacy index format.
type IndexV3 struct {
	V       int
	Stories []StoryV3
}

// ToV4 maps a snapshot to the v4 format.
func ToV4(s *index.Snapshot) IndexV4 {
	out := IndexV4{V: 4, Entries: make([]EntryV4, 0, s.Len())}
	for _, e := range s.Ordered() {
		out.Entries = append(out.Entries, EntryV4{
			ID:             e.ID,
			Title:          e.Title,
			Name:           e.Name,
			ImportPath:     e.ImportPath,
			Type:           string(e.Type),
			Tags:           cloneTags(e.Tags),
			StoriesImports: storiesImports(e),
		})
	}
	return out
}

// ToV3 maps a snapshot to the v3 format. Entries produced by an indexer
// that needs full-store support fail with a version compatibility error
// unless storyStoreV7 is set; every offending file is listed.
func ToV3(s *index.Snapshot, storyStoreV7 bool) (IndexV3, error) {
	return toV3(s, storyStoreV7, false)
}

// ToV3Compat is ToV3 with docs entries removed.
func ToV3Compat(s *index.Snapshot, storyStoreV7 bool) (IndexV3, error) {
	return toV3(s, storyStoreV7, true)
}

func toV3(s *index.Snapshot, storyStoreV7, dropDocs bool) (IndexV3, error) {
	out := IndexV3{V: 3, Stories: make([]StoryV3, 0, s.Len())}
	var failures []sierrors.Failure
	seen := make(map[string]bool)

	for _, e := range s.Ordered() {
		if dropDocs && e.IsDocs() {
			continue
		}
		if e.FullStore && !storyStoreV7 {
			if !seen[e.ImportPath] {
				seen[e.ImportPath] = true
				failures = append(failures, sierrors.VersionCompatibilityFailure(e.ImportPath))
			}
			continue
		}
		out.Stories = append(out.Stories, StoryV3{
			ID:             e.ID,
			Kind:           e.Title,
			Story:          e.Name,
			ImportPath:     e.ImportPath,
			Tags:           cloneTags(e.Tags),
			StoriesImports: storiesImports(e),
			Parameters: Parameters{
				ID:       e.ID,
				DocsOnly: e.IsDocs(),
				FileName: e.ImportPath,
			},
		})
	}

	if agg := sierrors.NewAggregateError(failures); agg != nil {
		return IndexV3{}, agg
	}
	return out, nil
}

func storiesImports(e *index.Entry) *[]string {
	if !e.IsDocs() {
		return nil
	}
	imports := make([]string, len(e.StoriesImports))
	copy(imports, e.StoriesImports)
	return &imports
}

func cloneTags(tags []string) []string {
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

// MarshalJSON writes {"v":4,"entries":{...}} with entries in index order.
func (ix IndexV4) MarshalJSON() ([]byte, error) {
	return marshalOrdered(ix.V, "entries", len(ix.Entries), func(i int) (string, any) {
		return ix.Entries[i].ID, ix.Entries[i]
	})
}

// MarshalJSON writes {"v":3,"stories":{...}} with stories in index order.
func (ix IndexV3) MarshalJSON() ([]byte, error) {
	return marshalOrdered(ix.V, "stories", len(ix.Stories), func(i int) (string, any) {
		return ix.Stories[i].ID, ix.Stories[i]
	})
}

// UnmarshalJSON reads a v4 index, keeping the entries in document order.
func (ix *IndexV4) UnmarshalJSON(data []byte) error {
	var entries []EntryV4
	v, err := unmarshalOrdered(data, "entries", func(raw json.RawMessage) error {
		var e EntryV4
		if err := json.Unmarshal(raw, &e); err != nil {
			return err
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return err
	}
	ix.V, ix.Entries = v, entries
	return nil
}

// UnmarshalJSON reads a v3 index, keeping the stories in document order.
func (ix *IndexV3) UnmarshalJSON(data []byte) error {
	var stories []StoryV3
	v, err := unmarshalOrdered(data, "stories", func(raw json.RawMessage) error {
		var s StoryV3
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		stories = append(stories, s)
		return nil
	})
	if err != nil {
		return err
	}
	ix.V, ix.Stories = v, stories
	return nil
}

func marshalOrdered(v int, field string, n int, item func(i int) (string, any)) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `{"v":%d,%q:{`, v, field)
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, val := item(i)
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

func unmarshalOrdered(data []byte, field string, each func(json.RawMessage) error) (int, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return 0, err
	}
	var v int
	if raw, ok := top["v"]; ok {
		if err := json.Unmarshal(raw, &v); err != nil {
			return 0, fmt.Errorf("decode v: %w", err)
		}
	}
	raw, ok := top[field]
	if !ok {
		return v, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return 0, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return 0, fmt.Errorf("%s: expected object", field)
	}
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return 0, err
		}
		var item json.RawMessage
		if err := dec.Decode(&item); err != nil {
			return 0, err
		}
		if err := each(item); err != nil {
			return 0, err
		}
	}
	return v, nil
}

// Format names a served index format.
type Format string

const (
	FormatV4       Format = "v4"
	FormatV3       Format = "v3"
	FormatV3Compat Format = "v3-compat"
)

// ParseFormat parses a format name. Accepted names are v4, v3 and
// v3-compat (alias v2).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "v4", "4", "":
		return FormatV4, nil
	case "v3", "3":
		return FormatV3, nil
	case "v3-compat", "v2", "2":
		return FormatV3Compat, nil
	}
	return "", fmt.Errorf("unknown index format %q (want one of %s)", s, strings.Join(formatNames(), ", "))
}

// Formats lists the supported formats, primary first.
func Formats() []Format {
	return []Format{FormatV4, FormatV3, FormatV3Compat}
}

func formatNames() []string {
	var names []string
	for _, f := range Formats() {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return names
}

// Encode converts s to format f and returns its JSON encoding.
func Encode(s *index.Snapshot, f Format, storyStoreV7 bool) ([]byte, error) {
	switch f {
	case FormatV4:
		return json.Marshal(ToV4(s))
	case FormatV3:
		ix, err := ToV3(s, storyStoreV7)
		if err != nil {
			return nil, err
		}
		return json.Marshal(ix)
	case FormatV3Compat:
		ix, err := ToV3Compat(s, storyStoreV7)
		if err != nil {
			return nil, err
		}
		return json.Marshal(ix)
	}
	return nil, fmt.Errorf("unknown index format %q", f)
}
