// Package mdx extracts docs entries from MDX files.
//
// The extractor reads the module's import statements and its <Meta> tag.
// It does not compile MDX; attributes must be literal values or, for `of`,
// an imported identifier.
package mdx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	sierrors "github.com/Aman-CERP/storyindex/internal/errors"
	"github.com/Aman-CERP/storyindex/pkg/indexer"
)

// Name is the indexer name.
const Name = "mdx"

var (
	importRe = regexp.MustCompile(`(?m)^[ \t]*import\s+([^;'"]*?)\s*from\s*['"]([^'"]+)['"]`)
	metaRe   = regexp.MustCompile(`<Meta\b((?:[^>"'{}]|"[^"]*"|'[^']*'|\{[^}]*\})*)/?>`)
	attrRe   = regexp.MustCompile(`([A-Za-z_][\w-]*)(?:\s*=\s*(?:"([^"]*)"|'([^']*)'|\{([^}]*)\}))?`)
	quotedRe = regexp.MustCompile(`"([^"]*)"|'([^']*)'|` + "`([^`$]*)`")
	fenceRe  = regexp.MustCompile("(?ms)^[ \t]*(```|~~~).*?^[ \t]*(```|~~~)[ \t]*$")
)

// Indexer extracts docs entries from MDX files.
type Indexer struct{}

var _ indexer.Indexer = (*Indexer)(nil)

// New creates an MDX indexer.
func New() *Indexer { return &Indexer{} }

// Name implements indexer.Indexer.
func (ix *Indexer) Name() string { return Name }

// Test implements indexer.Indexer. Legacy *.stories.mdx files are not
// handled.
func (ix *Indexer) Test(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	return strings.HasSuffix(base, ".mdx") && !strings.HasSuffix(base, ".stories.mdx")
}

// RequiresFullStore implements indexer.Indexer.
func (ix *Indexer) RequiresFullStore() bool { return true }

// Extract implements indexer.Indexer.
func (ix *Indexer) Extract(ctx context.Context, path string, opts indexer.Options) ([]indexer.IndexInput, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, sierrors.Wrap(sierrors.ErrCodeFileRead, err)
	}
	in, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return []indexer.IndexInput{in}, nil
}

// Parse extracts the docs input from MDX source.
func Parse(src []byte) (indexer.IndexInput, error) {
	text := fenceRe.ReplaceAllString(string(src), "")
	in := indexer.IndexInput{Type: indexer.TypeDocs}

	imports := parseImports(text)

	loc := metaRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return in, nil
	}
	for _, a := range attrRe.FindAllStringSubmatch(text[loc[2]:loc[3]], -1) {
		name := a[1]
		str, isStr := firstNonEmpty(a[2], a[3])
		expr := strings.TrimSpace(a[4])
		hasValue := isStr || a[4] != "" || strings.Contains(a[0], "=")

		switch name {
		case "title":
			v, ok := literal(str, isStr, expr)
			if !ok {
				return in, fmt.Errorf("MDX: unexpected dynamic title in <Meta>")
			}
			in.Title = v
		case "name":
			v, ok := literal(str, isStr, expr)
			if !ok {
				return in, fmt.Errorf("MDX: unexpected dynamic name in <Meta>")
			}
			in.Name = v
		case "of":
			if isStr || expr == "" {
				return in, fmt.Errorf("MDX: <Meta of> must reference an imported identifier")
			}
			source, ok := imports[expr]
			if !ok {
				return in, fmt.Errorf("MDX: <Meta of={%s}> references an identifier that is not imported", expr)
			}
			in.Of = source
		case "isTemplate":
			in.IsTemplate = !hasValue || expr == "true" || str == "true"
		case "tags":
			tags, ok := literalArray(expr)
			if !ok {
				return in, fmt.Errorf("MDX: <Meta tags> must be an array of string literals")
			}
			in.Tags = tags
		}
	}
	return in, nil
}

// parseImports maps each imported binding to its module source.
func parseImports(text string) map[string]string {
	out := make(map[string]string)
	for _, m := range importRe.FindAllStringSubmatch(text, -1) {
		clause, source := strings.TrimSpace(m[1]), m[2]
		clause = strings.TrimPrefix(clause, "type ")

		if i := strings.Index(clause, "{"); i >= 0 {
			j := strings.LastIndex(clause, "}")
			if j > i {
				for _, spec := range strings.Split(clause[i+1:j], ",") {
					fields := strings.Fields(spec)
					switch {
					case len(fields) == 1:
						out[fields[0]] = source
					case len(fields) == 3 && fields[1] == "as":
						out[fields[2]] = source
					}
				}
			}
			clause = clause[:i] + clause[j+1:]
		}

		for _, part := range strings.Split(clause, ",") {
			fields := strings.Fields(part)
			switch {
			case len(fields) == 1:
				out[fields[0]] = source
			case len(fields) == 3 && fields[0] == "*" && fields[1] == "as":
				out[fields[2]] = source
			}
		}
	}
	return out
}

func firstNonEmpty(double, single string) (string, bool) {
	if double != "" {
		return double, true
	}
	if single != "" {
		return single, true
	}
	return "", false
}

// literal returns a quoted attribute or a string literal inside braces.
func literal(str string, isStr bool, expr string) (string, bool) {
	if isStr {
		return str, true
	}
	m := quotedRe.FindStringSubmatch(expr)
	if m == nil || len(m[0]) != len(expr) {
		return "", false
	}
	for _, g := range m[1:] {
		if g != "" {
			return g, true
		}
	}
	return "", true
}

// literalArray parses `['a', "b"]`.
func literalArray(expr string) ([]string, bool) {
	expr = strings.TrimSpace(expr)
	if !strings.HasPrefix(expr, "[") || !strings.HasSuffix(expr, "]") {
		return nil, false
	}
	body := strings.TrimSpace(expr[1 : len(expr)-1])
	out := []string{}
	if body == "" {
		return out, true
	}
	for _, item := range strings.Split(body, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		v, ok := literal("", false, item)
		if !ok {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}
