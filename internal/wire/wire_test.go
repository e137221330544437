package wire

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sierrors "github.com/Aman-CERP/storyindex/internal/errors"
	"github.com/Aman-CERP/storyindex/internal/index"
	"github.com/Aman-CERP/storyindex/pkg/indexer"
)

func fixtureSnapshot() *index.Snapshot {
	return index.NewSnapshot([]*index.Entry{
		{
			Type:           indexer.TypeDocs,
			ID:             "button--docs",
			Name:           "Docs",
			Title:          "Button",
			ImportPath:     "./src/Button.mdx",
			Tags:           []string{"attached-mdx", "docs"},
			StoriesImports: []string{"./src/Button.stories.tsx"},
			FullStore:      true,
		},
		{
			Type:       indexer.TypeStory,
			ID:         "button--primary",
			Name:       "Primary",
			Title:      "Button",
			ImportPath: "./src/Button.stories.tsx",
			Tags:       []string{"story"},
		},
		{
			Type:       indexer.TypeStory,
			ID:         "a--x",
			Name:       "X",
			Title:      "A",
			ImportPath: "./src/A.stories.js",
			Tags:       []string{"story"},
		},
	}, 1)
}

func TestToV4_Identity(t *testing.T) {
	// Given: a snapshot
	s := fixtureSnapshot()

	// When: converting to v4
	ix := ToV4(s)

	// Then: every field is carried over in order
	assert.Equal(t, 4, ix.V)
	require.Len(t, ix.Entries, 3)
	assert.Equal(t, "button--docs", ix.Entries[0].ID)
	assert.Equal(t, "docs", ix.Entries[0].Type)
	require.NotNil(t, ix.Entries[0].StoriesImports)
	assert.Equal(t, []string{"./src/Button.stories.tsx"}, *ix.Entries[0].StoriesImports)
	assert.Nil(t, ix.Entries[1].StoriesImports)
	assert.Equal(t, "Primary", ix.Entries[1].Name)
	assert.Equal(t, "a--x", ix.Entries[2].ID)
}

func TestToV4_JSONKeepsSnapshotOrder(t *testing.T) {
	// Given: a snapshot whose order is not alphabetical by id
	s := fixtureSnapshot()

	// When: encoding v4
	data, err := json.Marshal(ToV4(s))
	require.NoError(t, err)

	// Then: ids appear in snapshot order
	body := string(data)
	assert.True(t, strings.HasPrefix(body, `{"v":4,"entries":{"button--docs":`))
	assert.Less(t, strings.Index(body, `"button--primary":`), strings.Index(body, `"a--x":`))
}

func TestToV4_DocsAlwaysCarryStoriesImports(t *testing.T) {
	// Given: a docs entry without dependencies
	s := index.NewSnapshot([]*index.Entry{{
		Type: indexer.TypeDocs, ID: "intro--docs", Name: "Docs", Title: "Intro", ImportPath: "./src/Intro.mdx",
	}}, 1)

	// When: encoding v4
	data, err := json.Marshal(ToV4(s))
	require.NoError(t, err)

	// Then: storiesImports is an empty array and tags is present
	assert.Contains(t, string(data), `"storiesImports":[]`)
	assert.Contains(t, string(data), `"tags":[]`)
}

func TestToV4_StoriesOmitStoriesImports(t *testing.T) {
	s := index.NewSnapshot([]*index.Entry{{
		Type: indexer.TypeStory, ID: "a--x", Name: "X", Title: "A", ImportPath: "./a.stories.js", Tags: []string{"story"},
	}}, 1)

	data, err := json.Marshal(ToV4(s))
	require.NoError(t, err)

	assert.NotContains(t, string(data), "storiesImports")
}

func TestToV3_RenamesAndParameters(t *testing.T) {
	// Given: a snapshot with full-store support enabled
	s := fixtureSnapshot()

	// When: converting to v3
	ix, err := ToV3(s, true)

	// Then: title and name are renamed and parameters synthesized
	require.NoError(t, err)
	assert.Equal(t, 3, ix.V)
	require.Len(t, ix.Stories, 3)
	for i, e := range s.Ordered() {
		st := ix.Stories[i]
		assert.Equal(t, e.ID, st.ID)
		assert.Equal(t, e.Title, st.Kind)
		assert.Equal(t, e.Name, st.Story)
		assert.Equal(t, e.ImportPath, st.ImportPath)
		assert.Equal(t, e.ID, st.Parameters.ID)
		assert.Equal(t, e.IsDocs(), st.Parameters.DocsOnly)
		assert.Equal(t, e.ImportPath, st.Parameters.FileName)
	}
}

func TestToV3_JSONShape(t *testing.T) {
	s := fixtureSnapshot()
	ix, err := ToV3(s, true)
	require.NoError(t, err)

	data, err := json.Marshal(ix)
	require.NoError(t, err)

	body := string(data)
	assert.True(t, strings.HasPrefix(body, `{"v":3,"stories":{"button--docs":`))
	assert.Contains(t, body, `"kind":"Button"`)
	assert.Contains(t, body, `"story":"Primary"`)
	assert.Contains(t, body, `"parameters":{"__id":"a--x","docsOnly":false,"fileName":"./src/A.stories.js"}`)
	assert.NotContains(t, body, `"title"`)
}

func TestToV3_FullStoreDisabled(t *testing.T) {
	// Given: a snapshot with an mdx docs entry
	s := fixtureSnapshot()

	// When: converting without full-store support
	_, err := ToV3(s, false)

	// Then: an aggregate version compatibility error names the file
	var agg *sierrors.AggregateError
	require.ErrorAs(t, err, &agg)
	require.Len(t, agg.Failures, 1)
	assert.Equal(t, "./src/Button.mdx", agg.Failures[0].Path)
	assert.Contains(t, agg.Failures[0].Message, "`.mdx`")
	assert.ErrorIs(t, err, sierrors.ErrVersionCompatibility)
}

func TestToV3Compat_DropsDocs(t *testing.T) {
	// Given: a snapshot with a docs entry
	s := fixtureSnapshot()

	// When: converting in compatibility mode
	ix, err := ToV3Compat(s, false)

	// Then: only stories remain and the mdx entry no longer blocks
	require.NoError(t, err)
	require.Len(t, ix.Stories, 2)
	for _, st := range ix.Stories {
		assert.False(t, st.Parameters.DocsOnly)
	}
}

func TestConversions_DoNotMutateSnapshot(t *testing.T) {
	// Given: a snapshot
	s := fixtureSnapshot()
	before, err := json.Marshal(ToV4(s))
	require.NoError(t, err)

	// When: converting concurrently and mutating the results
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v4 := ToV4(s)
			v4.Entries[0].Tags[0] = "mutated"
			(*v4.Entries[0].StoriesImports)[0] = "mutated"
			v3, _ := ToV3(s, true)
			v3.Stories[1].Tags[0] = "mutated"
			_, _ = ToV3Compat(s, true)
		}()
	}
	wg.Wait()

	// Then: the snapshot is unchanged
	after, err := json.Marshal(ToV4(s))
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestIndexV4_UnmarshalKeepsOrder(t *testing.T) {
	// Given: encoded v4
	data, err := json.Marshal(ToV4(fixtureSnapshot()))
	require.NoError(t, err)

	// When: decoding it back
	var ix IndexV4
	require.NoError(t, json.Unmarshal(data, &ix))

	// Then: order and content survive
	assert.Equal(t, 4, ix.V)
	require.Len(t, ix.Entries, 3)
	assert.Equal(t, []string{"button--docs", "button--primary", "a--x"},
		[]string{ix.Entries[0].ID, ix.Entries[1].ID, ix.Entries[2].ID})
	assert.Equal(t, ToV4(fixtureSnapshot()), ix)
}

func TestIndexV3_UnmarshalKeepsOrder(t *testing.T) {
	v3, err := ToV3(fixtureSnapshot(), true)
	require.NoError(t, err)
	data, err := json.Marshal(v3)
	require.NoError(t, err)

	var ix IndexV3
	require.NoError(t, json.Unmarshal(data, &ix))

	assert.Equal(t, v3, ix)
}

func TestIndexV4_UnmarshalRejectsNonObject(t *testing.T) {
	var ix IndexV4
	err := json.Unmarshal([]byte(`{"v":4,"entries":[]}`), &ix)
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatV4},
		{"v4", FormatV4},
		{"V3", FormatV3},
		{"3", FormatV3},
		{"v3-compat", FormatV3Compat},
		{"v2", FormatV3Compat},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseFormat("v5")
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	s := fixtureSnapshot()

	v4, err := Encode(s, FormatV4, false)
	require.NoError(t, err)
	assert.Contains(t, string(v4), `"v":4`)

	_, err = Encode(s, FormatV3, false)
	assert.Error(t, err)

	compat, err := Encode(s, FormatV3Compat, false)
	require.NoError(t, err)
	assert.NotContains(t, string(compat), "button--docs")

	_, err = Encode(s, Format("bogus"), true)
	assert.Error(t, err)
}
