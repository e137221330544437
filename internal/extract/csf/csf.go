// Package csf extracts stories from Component Story Format files
// (*.stories.js, *.stories.ts and friends) using tree-sitter.
package csf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	sierrors "github.com/Aman-CERP/storyindex/internal/errors"
	"github.com/Aman-CERP/storyindex/pkg/indexer"
)

// Name is the indexer name.
const Name = "csf"

// Indexer extracts stories from CSF modules.
type Indexer struct {
	languages *LanguageRegistry
}

var _ indexer.Indexer = (*Indexer)(nil)

// New creates a CSF indexer.
func New() *Indexer {
	return &Indexer{languages: DefaultRegistry()}
}

// Name implements indexer.Indexer.
func (ix *Indexer) Name() string { return Name }

// Test implements indexer.Indexer. It accepts *.stories.{js,jsx,mjs,ts,tsx}.
func (ix *Indexer) Test(path string) bool {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if !strings.HasSuffix(strings.TrimSuffix(base, ext), ".stories") {
		return false
	}
	_, _, ok := ix.languages.ForPath(path)
	return ok
}

// RequiresFullStore implements indexer.Indexer.
func (ix *Indexer) RequiresFullStore() bool { return false }

// Extract implements indexer.Indexer.
func (ix *Indexer) Extract(ctx context.Context, path string, opts indexer.Options) ([]indexer.IndexInput, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, sierrors.Wrap(sierrors.ErrCodeFileRead, err)
	}
	return ix.Parse(ctx, path, src)
}

// Parse extracts stories from source. path selects the grammar.
func (ix *Indexer) Parse(ctx context.Context, path string, src []byte) ([]indexer.IndexInput, error) {
	_, lang, ok := ix.languages.ForPath(path)
	if !ok {
		return nil, fmt.Errorf("unsupported story file extension %q", filepath.Ext(path))
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if tree == nil {
		return nil, fmt.Errorf("parse %s: nil tree", filepath.Base(path))
	}
	defer tree.Close()

	root := tree.RootNode()
	if msg := firstError(root); msg != "" {
		return nil, fmt.Errorf("CSF: %s", msg)
	}

	m := newModule(src)
	m.collect(root)
	return m.inputs()
}

// export is one named export of the module.
type export struct {
	name  string
	local string
}

// storyOverrides are properties assigned after declaration,
// e.g. `Primary.storyName = 'Main'`.
type storyOverrides struct {
	name    string
	hasName bool
	tags    []string
	hasTags bool
}

type module struct {
	src       []byte
	bindings  map[string]*sitter.Node
	meta      *sitter.Node
	hasMeta   bool
	exports   []export
	overrides map[string]*storyOverrides
	order     []string
}

func newModule(src []byte) *module {
	return &module{
		src:       src,
		bindings:  make(map[string]*sitter.Node),
		overrides: make(map[string]*storyOverrides),
	}
}

// collect records top-level bindings, exports and property assignments.
func (m *module) collect(root *sitter.Node) {
	for _, stmt := range namedChildren(root) {
		switch stmt.Type() {
		case "lexical_declaration", "variable_declaration":
			m.declare(stmt)
		case "export_statement":
			m.export(stmt)
		case "expression_statement":
			m.assignment(stmt)
		}
	}
}

func (m *module) declare(decl *sitter.Node) []string {
	var names []string
	for _, d := range namedChildren(decl) {
		if d.Type() != "variable_declarator" {
			continue
		}
		name := d.ChildByFieldName("name")
		if name == nil || name.Type() != "identifier" {
			continue
		}
		local := name.Content(m.src)
		m.bindings[local] = d.ChildByFieldName("value")
		names = append(names, local)
	}
	return names
}

func (m *module) export(stmt *sitter.Node) {
	if hasToken(stmt, "default") {
		m.hasMeta = true
		if v := stmt.ChildByFieldName("value"); v != nil {
			m.meta = v
		}
		return
	}

	if decl := stmt.ChildByFieldName("declaration"); decl != nil {
		switch decl.Type() {
		case "lexical_declaration", "variable_declaration":
			for _, name := range m.declare(decl) {
				m.addExport(name, name)
			}
		case "function_declaration", "generator_function_declaration", "class_declaration":
			if name := decl.ChildByFieldName("name"); name != nil {
				local := name.Content(m.src)
				m.addExport(local, local)
			}
		}
		return
	}

	for _, c := range namedChildren(stmt) {
		if c.Type() != "export_clause" {
			continue
		}
		for _, spec := range namedChildren(c) {
			if spec.Type() != "export_specifier" {
				continue
			}
			nameNode := spec.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			local := nameNode.Content(m.src)
			exported := local
			if alias := spec.ChildByFieldName("alias"); alias != nil {
				exported = alias.Content(m.src)
			}
			if exported == "default" {
				m.hasMeta = true
				m.meta = nameNode
				continue
			}
			m.addExport(exported, local)
		}
	}
}

func (m *module) addExport(name, local string) {
	if name == "__namedExportsOrder" {
		if order, ok := stringArray(m.bindings[local], m.src); ok {
			m.order = order
		}
		return
	}
	m.exports = append(m.exports, export{name: name, local: local})
}

// assignment records `X.storyName = '...'` and `X.tags = [...]`.
func (m *module) assignment(stmt *sitter.Node) {
	expr := stmt.NamedChild(0)
	if expr == nil || expr.Type() != "assignment_expression" {
		return
	}
	left := expr.ChildByFieldName("left")
	if left == nil || left.Type() != "member_expression" {
		return
	}
	obj := left.ChildByFieldName("object")
	prop := left.ChildByFieldName("property")
	if obj == nil || prop == nil || obj.Type() != "identifier" {
		return
	}
	local := obj.Content(m.src)
	ov := m.overrides[local]
	if ov == nil {
		ov = &storyOverrides{}
		m.overrides[local] = ov
	}
	right := expr.ChildByFieldName("right")
	switch prop.Content(m.src) {
	case "storyName":
		if v, ok := stringValue(right, m.src); ok {
			ov.name, ov.hasName = v, true
		}
	case "tags":
		if v, ok := stringArray(right, m.src); ok {
			ov.tags, ov.hasTags = v, true
		}
	}
}

// resolve follows identifiers to their top-level initializer.
func (m *module) resolve(n *sitter.Node) *sitter.Node {
	for depth := 0; depth < 8; depth++ {
		n = unwrap(n)
		if n == nil || n.Type() != "identifier" {
			return n
		}
		n = m.bindings[n.Content(m.src)]
	}
	return n
}

// metaInfo holds the fields read from the default export.
type metaInfo struct {
	title   string
	tags    []string
	include *matcher
	exclude *matcher
}

func (m *module) readMeta() (metaInfo, error) {
	var info metaInfo
	if !m.hasMeta {
		return info, fmt.Errorf("CSF: missing default export")
	}
	obj := m.resolve(m.meta)
	if obj == nil || obj.Type() != "object" {
		return info, fmt.Errorf("CSF: default export must be an object")
	}
	props := objectProperties(obj, m.src)

	if v, ok := props["title"]; ok {
		title, ok := stringValue(m.resolve(v), m.src)
		if !ok {
			return info, fmt.Errorf("CSF: unexpected dynamic title")
		}
		info.title = title
	}
	if v, ok := props["tags"]; ok {
		if tags, ok := stringArray(m.resolve(v), m.src); ok {
			info.tags = tags
		}
	}

	var err error
	if info.include, err = m.readMatcher(props["includeStories"]); err != nil {
		return info, err
	}
	if info.exclude, err = m.readMatcher(props["excludeStories"]); err != nil {
		return info, err
	}
	return info, nil
}

// matcher implements includeStories / excludeStories: a list of export
// names or a regular expression.
type matcher struct {
	names []string
	re    *regexp.Regexp
}

func (mt *matcher) match(name string) bool {
	if mt.re != nil {
		return mt.re.MatchString(name)
	}
	return slices.Contains(mt.names, name)
}

func (m *module) readMatcher(n *sitter.Node) (*matcher, error) {
	n = m.resolve(n)
	if n == nil {
		return nil, nil
	}
	switch n.Type() {
	case "array":
		names, ok := stringArray(n, m.src)
		if !ok {
			return nil, fmt.Errorf("CSF: includeStories/excludeStories must be string arrays or regular expressions")
		}
		return &matcher{names: names}, nil
	case "regex":
		pattern := n.ChildByFieldName("pattern")
		if pattern == nil {
			return nil, nil
		}
		re, err := regexp.Compile(pattern.Content(m.src))
		if err != nil {
			return nil, fmt.Errorf("CSF: invalid story filter: %w", err)
		}
		return &matcher{re: re}, nil
	}
	if v, ok := stringValue(n, m.src); ok {
		return &matcher{names: []string{v}}, nil
	}
	return nil, fmt.Errorf("CSF: includeStories/excludeStories must be string arrays or regular expressions")
}

func isExportStory(name string, info metaInfo) bool {
	if strings.HasPrefix(name, "__") {
		return false
	}
	if info.include != nil && !info.include.match(name) {
		return false
	}
	if info.exclude != nil && info.exclude.match(name) {
		return false
	}
	return true
}

// inputs builds one story input per story export, in declaration order or
// the order given by __namedExportsOrder.
func (m *module) inputs() ([]indexer.IndexInput, error) {
	info, err := m.readMeta()
	if err != nil {
		return nil, err
	}

	exports := m.ordered()
	out := make([]indexer.IndexInput, 0, len(exports))
	for _, e := range exports {
		if !isExportStory(e.name, info) {
			continue
		}
		in := indexer.IndexInput{
			Type:       indexer.TypeStory,
			Title:      info.title,
			ExportName: e.name,
			MetaTags:   info.tags,
		}
		if obj := m.resolve(m.bindings[e.local]); obj != nil && obj.Type() == "object" {
			props := objectProperties(obj, m.src)
			for _, key := range []string{"storyName", "name"} {
				if v, ok := stringValue(m.resolve(props[key]), m.src); ok {
					in.Name = v
					break
				}
			}
			if tags, ok := stringArray(m.resolve(props["tags"]), m.src); ok {
				in.Tags = tags
			}
		}
		if ov := m.overrides[e.local]; ov != nil {
			if ov.hasName {
				in.Name = ov.name
			}
			if ov.hasTags {
				in.Tags = ov.tags
			}
		}
		out = append(out, in)
	}
	return out, nil
}

func (m *module) ordered() []export {
	if len(m.order) == 0 {
		return m.exports
	}
	byName := make(map[string]export, len(m.exports))
	for _, e := range m.exports {
		byName[e.name] = e
	}
	out := make([]export, 0, len(m.exports))
	seen := make(map[string]bool)
	for _, name := range m.order {
		if e, ok := byName[name]; ok && !seen[name] {
			out = append(out, e)
			seen[name] = true
		}
	}
	for _, e := range m.exports {
		if !seen[e.name] {
			out = append(out, e)
		}
	}
	return out
}
