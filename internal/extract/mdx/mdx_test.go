package mdx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/storyindex/pkg/indexer"
)

func TestIndexer_Test(t *testing.T) {
	ix := New()

	assert.True(t, ix.Test("/p/src/Intro.mdx"))
	assert.True(t, ix.Test("/p/src/Button.docs.MDX"))
	assert.False(t, ix.Test("/p/src/Button.stories.mdx"))
	assert.False(t, ix.Test("/p/src/Button.stories.tsx"))
	assert.False(t, ix.Test("/p/src/README.md"))
	assert.Equal(t, "mdx", ix.Name())
	assert.True(t, ix.RequiresFullStore())
}

func TestParse_AttachedDocs(t *testing.T) {
	// Given: an MDX file attached to a story file
	src := `import { Meta, Canvas } from '@storybook/blocks';
import * as ButtonStories from './Button.stories';

<Meta of={ButtonStories} />

# Button

<Canvas of={ButtonStories.Primary} />
`
	// When: parsing
	in, err := Parse([]byte(src))

	// Then: of is mapped through the import table
	require.NoError(t, err)
	assert.Equal(t, indexer.IndexInput{Type: indexer.TypeDocs, Of: "./Button.stories"}, in)
}

func TestParse_TitleNameAndTags(t *testing.T) {
	src := `import { Meta } from "@storybook/blocks";

<Meta title="Guides/Introduction" name='Overview' tags={['beta', "internal"]} />
`
	in, err := Parse([]byte(src))

	require.NoError(t, err)
	assert.Equal(t, "Guides/Introduction", in.Title)
	assert.Equal(t, "Overview", in.Name)
	assert.Equal(t, []string{"beta", "internal"}, in.Tags)
	assert.Empty(t, in.Of)
}

func TestParse_BraceLiteralTitle(t *testing.T) {
	in, err := Parse([]byte(`<Meta title={'In Braces'} />`))

	require.NoError(t, err)
	assert.Equal(t, "In Braces", in.Title)
}

func TestParse_NamedImportAlias(t *testing.T) {
	src := `import { default as Stories, Other } from '../components/Card.stories.tsx';

<Meta of={Stories} name="Card docs" />
`
	in, err := Parse([]byte(src))

	require.NoError(t, err)
	assert.Equal(t, "../components/Card.stories.tsx", in.Of)
	assert.Equal(t, "Card docs", in.Name)
}

func TestParse_IsTemplate(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{`<Meta isTemplate />`, true},
		{`<Meta isTemplate={true} />`, true},
		{`<Meta isTemplate={false} />`, false},
		{`<Meta title="X" />`, false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			in, err := Parse([]byte(tt.src))
			require.NoError(t, err)
			assert.Equal(t, tt.want, in.IsTemplate)
		})
	}
}

func TestParse_NoMeta(t *testing.T) {
	// Given: an MDX file without a Meta tag
	in, err := Parse([]byte("# Just docs\n\nSome text.\n"))

	// Then: an unattached, untitled docs input
	require.NoError(t, err)
	assert.Equal(t, indexer.IndexInput{Type: indexer.TypeDocs}, in)
}

func TestParse_IgnoresCodeFences(t *testing.T) {
	src := "# Usage\n\n```mdx\n<Meta title=\"Not/This\" />\n```\n\n<Meta title=\"Real\" />\n"

	in, err := Parse([]byte(src))

	require.NoError(t, err)
	assert.Equal(t, "Real", in.Title)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"of not imported", `<Meta of={Missing} />`, "not imported"},
		{"of as string", `<Meta of="./Button.stories" />`, "imported identifier"},
		{"dynamic title", `<Meta title={someTitle} />`, "dynamic title"},
		{"dynamic tags", `<Meta tags={someTags} />`, "array of string literals"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestExtract_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Intro.mdx")
	require.NoError(t, os.WriteFile(path, []byte(`<Meta title="Intro" />`), 0o644))

	inputs, err := New().Extract(context.Background(), path, indexer.Options{})

	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, "Intro", inputs[0].Title)
}

func TestExtract_MissingFile(t *testing.T) {
	_, err := New().Extract(context.Background(), filepath.Join(t.TempDir(), "gone.mdx"), indexer.Options{})
	assert.Error(t, err)
}
