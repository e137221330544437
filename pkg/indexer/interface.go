package indexer

import "context"

// EntryType distinguishes runnable stories from documentation pages.
type EntryType string

const (
	// TypeStory is a single renderable component example.
	TypeStory EntryType = "story"
	// TypeDocs is a documentation page.
	TypeDocs EntryType = "docs"
)

// IndexInput is one entry as an extractor sees it, before the generator
// derives titles and ids.
type IndexInput struct {
	// Type is story or docs.
	Type EntryType

	// Title is the user-declared title, empty when the file declares none.
	Title string

	// Name is the display name. Empty means derive it from ExportName
	// (stories) or from the file name (docs).
	Name string

	// ExportName is the export the story was declared under.
	ExportName string

	// Tags are the entry's own tags. For stories, nil means inherit the
	// file-level tags in MetaTags.
	Tags []string

	// MetaTags are the tags declared once for the whole file.
	MetaTags []string

	// Of is the import path (relative to the extracted file) of the story
	// file a docs page is attached to.
	Of string

	// IsTemplate marks a docs file that only serves as a template.
	IsTemplate bool
}

// Options is passed to every Extract call.
type Options struct {
	// ImportPath is the ./-prefixed path of the file relative to the
	// working directory.
	ImportPath string

	// MakeTitle returns the title the generator will assign given a
	// user-declared title (empty for none).
	MakeTitle func(userTitle string) string
}

// Title returns MakeTitle(userTitle), or userTitle when MakeTitle is unset.
func (o Options) Title(userTitle string) string {
	if o.MakeTitle == nil {
		return userTitle
	}
	return o.MakeTitle(userTitle)
}

// Indexer extracts index inputs from one family of files.
type Indexer interface {
	// Name identifies the indexer in logs.
	Name() string

	// Test reports whether this indexer handles the file at path.
	Test(path string) bool

	// Extract reads the file at the absolute path and returns its inputs.
	// Inputs are returned in declaration order.
	Extract(ctx context.Context, path string, opts Options) ([]IndexInput, error)

	// RequiresFullStore reports whether files handled by this indexer can
	// only be served when full-store support is enabled.
	RequiresFullStore() bool
}

// Func adapts plain functions to the Indexer interface.
type Func struct {
	ID        string
	Match     func(path string) bool
	ExtractFn func(ctx context.Context, path string, opts Options) ([]IndexInput, error)
	FullStore bool
}

// Name implements Indexer.
func (f Func) Name() string { return f.ID }

// Test implements Indexer.
func (f Func) Test(path string) bool { return f.Match != nil && f.Match(path) }

// Extract implements Indexer.
func (f Func) Extract(ctx context.Context, path string, opts Options) ([]IndexInput, error) {
	return f.ExtractFn(ctx, path, opts)
}

// RequiresFullStore implements Indexer.
func (f Func) RequiresFullStore() bool { return f.FullStore }
