package index

import (
	"fmt"
	"path"
	"strings"

	sierrors "github.com/Aman-CERP/storyindex/internal/errors"
	"github.com/Aman-CERP/storyindex/internal/scanner"
	"github.com/Aman-CERP/storyindex/internal/specifier"
	"github.com/Aman-CERP/storyindex/pkg/indexer"
)

const (
	tagStory      = "story"
	tagDocs       = "docs"
	tagAutodocs   = "autodocs"
	tagAttached   = "attached-mdx"
	tagUnattached = "unattached-mdx"
)

// fileResult is one scanned file and its extracted inputs.
type fileResult struct {
	spec   int
	file   scanner.FileInfo
	ix     indexer.Indexer
	inputs []indexer.IndexInput
}

// storyFile is a story file as seen by docs attachment.
type storyFile struct {
	importPath string
	spec       int
	title      string
}

// assembler turns extracted inputs into entries for one cycle.
type assembler struct {
	specs []*specifier.Specifier
	docs  DocsOptions

	failures []sierrors.Failure
}

func (a *assembler) fail(importPath string, code string, err error) {
	a.failures = append(a.failures, sierrors.Failure{
		Path:    importPath,
		Message: err.Error(),
		Code:    code,
	})
}

// assemble returns the entries of every file, in scan order.
func (a *assembler) assemble(results []fileResult) []*Entry {
	perFile := make([][]*Entry, len(results))

	var storyFiles []storyFile
	for i := range results {
		r := &results[i]
		if isDocsFile(r.inputs) {
			continue
		}
		entries, err := a.storyEntries(r)
		if err != nil {
			a.fail(r.file.ImportPath, sierrors.ErrCodeExtractionFailed, err)
			continue
		}
		perFile[i] = entries
		for _, e := range entries {
			if e.Type == indexer.TypeStory {
				storyFiles = append(storyFiles, storyFile{
					importPath: r.file.ImportPath,
					spec:       r.spec,
					title:      e.Title,
				})
				break
			}
		}
	}

	for i := range results {
		r := &results[i]
		if !isDocsFile(r.inputs) {
			continue
		}
		entry, err := a.docsEntry(r, storyFiles)
		if err != nil {
			a.fail(r.file.ImportPath, sierrors.ErrCodeExtractionFailed, err)
			continue
		}
		if entry != nil {
			perFile[i] = []*Entry{entry}
		}
	}

	var all []*Entry
	for _, entries := range perFile {
		all = append(all, entries...)
	}
	return all
}

func isDocsFile(inputs []indexer.IndexInput) bool {
	for _, in := range inputs {
		if in.Type == indexer.TypeDocs {
			return true
		}
	}
	return false
}

func (a *assembler) storyEntries(r *fileResult) ([]*Entry, error) {
	spec := a.specs[r.spec]
	importPath := r.file.ImportPath
	fullStore := r.ix.RequiresFullStore()

	var (
		stories  []*Entry
		metaTags []string
		tagged   bool
	)
	for _, in := range r.inputs {
		if in.Type != indexer.TypeStory {
			continue
		}
		title := spec.AutoTitle(importPath, in.Title)
		name := in.Name
		if name == "" {
			name = StoryNameFromExport(in.ExportName)
		}
		id, err := ToID(title, name)
		if err != nil {
			return nil, err
		}

		tags := in.Tags
		if tags == nil {
			tags = in.MetaTags
		}
		if metaTags == nil {
			metaTags = in.MetaTags
		}
		if hasTag(in.MetaTags, tagAutodocs) || hasTag(tags, tagAutodocs) {
			tagged = true
		}

		stories = append(stories, &Entry{
			Type:       indexer.TypeStory,
			ID:         id,
			Name:       name,
			Title:      title,
			ImportPath: importPath,
			Tags:       dedupe(tags, tagStory),
			FullStore:  fullStore,
		})
	}

	if len(stories) == 0 {
		return nil, nil
	}

	mode := a.docs.Autodocs
	if mode == AutodocsOn || (mode == AutodocsTag && tagged) {
		title := stories[0].Title
		id, err := ToID(title, a.docs.DefaultName)
		if err != nil {
			return nil, err
		}
		extra := []string{tagDocs}
		if mode == AutodocsOn && !hasTag(metaTags, tagAutodocs) {
			extra = append(extra, tagAutodocs)
		}
		docs := &Entry{
			Type:           indexer.TypeDocs,
			ID:             id,
			Name:           a.docs.DefaultName,
			Title:          title,
			ImportPath:     importPath,
			Tags:           dedupe(metaTags, extra...),
			StoriesImports: []string{},
			FullStore:      fullStore,
		}
		stories = append([]*Entry{docs}, stories...)
	}
	return stories, nil
}

func (a *assembler) docsEntry(r *fileResult, storyFiles []storyFile) (*Entry, error) {
	spec := a.specs[r.spec]
	importPath := r.file.ImportPath

	var in indexer.IndexInput
	for _, candidate := range r.inputs {
		if candidate.Type == indexer.TypeDocs {
			in = candidate
			break
		}
	}
	if in.IsTemplate {
		return nil, nil
	}

	var target *storyFile
	if in.Of != "" {
		target = resolveOf(importPath, in.Of, storyFiles)
		if target == nil {
			return nil, fmt.Errorf("could not find CSF file at path %q referenced by `of={}` in docs file %q", in.Of, importPath)
		}
	}

	var title, targetTitle string
	switch {
	case target != nil:
		title = target.title
		targetTitle = target.title
	case in.Title != "":
		title = spec.AutoTitle(importPath, in.Title)
		targetTitle = title
	default:
		title = spec.AutoTitle(importPath, "")
	}

	storiesImports := []string{}
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			storiesImports = append(storiesImports, p)
		}
	}
	if target != nil {
		add(target.importPath)
	}
	for _, sf := range storyFiles {
		if sf.spec != r.spec {
			continue
		}
		if targetTitle == "" || sf.title == targetTitle {
			add(sf.importPath)
		}
	}

	name := in.Name
	if name == "" {
		if target != nil {
			name = autoName(importPath, target.importPath, a.docs.DefaultName)
		} else {
			name = a.docs.DefaultName
		}
	}

	id, err := ToID(title, name)
	if err != nil {
		return nil, err
	}

	attach := tagUnattached
	if target != nil {
		attach = tagAttached
	}

	return &Entry{
		Type:           indexer.TypeDocs,
		ID:             id,
		Name:           name,
		Title:          title,
		ImportPath:     importPath,
		Tags:           dedupe(in.Tags, attach, tagDocs),
		StoriesImports: storiesImports,
		FullStore:      r.ix.RequiresFullStore(),
	}, nil
}

// resolveOf finds the story file an `of` reference points at. The reference
// is relative to the docs file and may omit the extension.
func resolveOf(docsImportPath, of string, storyFiles []storyFile) *storyFile {
	ref := of
	if strings.HasPrefix(of, ".") {
		ref = path.Join(path.Dir(docsImportPath), of)
	}
	ref = specifier.NormalizeImportPath(ref)

	for i := range storyFiles {
		sf := &storyFiles[i]
		if sf.importPath == ref || stripExt(sf.importPath) == ref {
			return sf
		}
	}
	return nil
}

func stripExt(p string) string {
	return strings.TrimSuffix(p, path.Ext(p))
}

// autoName names an attached docs page: the default name when the docs and
// story files share a base name, otherwise the docs file's base name.
func autoName(docsImportPath, storyImportPath, defaultName string) string {
	docsBase := baseStem(docsImportPath)
	if docsBase == baseStem(storyImportPath) {
		return defaultName
	}
	return docsBase
}

func baseStem(p string) string {
	base := path.Base(p)
	if i := strings.Index(base, "."); i > 0 {
		return base[:i]
	}
	return base
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// dedupe concatenates tags and extra, keeping the first occurrence of each.
func dedupe(tags []string, extra ...string) []string {
	out := make([]string, 0, len(tags)+len(extra))
	seen := make(map[string]struct{}, len(tags)+len(extra))
	for _, list := range [][]string{tags, extra} {
		for _, t := range list {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
