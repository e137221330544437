package gitignore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

// Matcher holds compiled gitignore rules. Safe for concurrent use.
type Matcher struct {
	rules []rule
	mu    sync.RWMutex
}

type rule struct {
	pattern  string
	globs    []glob.Glob
	negation bool
	dirOnly  bool
	anchored bool
	base     string
}

// New creates an empty Matcher.
func New() *Matcher {
	return &Matcher{}
}

// Len returns the number of compiled rules.
func (m *Matcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rules)
}

// AddPattern adds a rule applying from the root.
func (m *Matcher) AddPattern(pattern string) {
	m.AddPatternWithBase(pattern, "")
}

// AddPatternWithBase adds a rule that only applies under base.
// Blank lines, comments and patterns that fail to compile are skipped.
func (m *Matcher) AddPatternWithBase(pattern, base string) {
	r, ok := parseRule(pattern, filepath.ToSlash(base))
	if !ok {
		return
	}

	m.mu.Lock()
	m.rules = append(m.rules, r)
	m.mu.Unlock()
}

func parseRule(line, base string) (rule, bool) {
	escapedSpace := strings.HasSuffix(line, `\ `)
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return rule{}, false
	}

	r := rule{pattern: line, base: base}
	switch {
	case strings.HasPrefix(line, `\#`), strings.HasPrefix(line, `\!`):
		line = line[1:]
	case strings.HasPrefix(line, "!"):
		r.negation = true
		line = line[1:]
	}
	if escapedSpace && strings.HasSuffix(line, `\`) {
		line = strings.TrimSuffix(line, `\`) + " "
	}

	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		r.anchored = true
		line = strings.TrimPrefix(line, "/")
	}
	// "doc/frotz" is relative to the .gitignore, like "/doc/frotz".
	if strings.Contains(line, "/") && !strings.HasPrefix(line, "**/") {
		r.anchored = true
	}
	if line == "" {
		return rule{}, false
	}

	for _, p := range globstarVariants(line) {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return rule{}, false
		}
		r.globs = append(r.globs, g)
	}
	return r, true
}

// globstarVariants lets "**/" match zero directories as git does.
func globstarVariants(pattern string) []string {
	out := []string{pattern}
	if strings.HasPrefix(pattern, "**/") {
		out = append(out, pattern[3:])
	}
	if strings.Contains(pattern, "/**/") {
		n := len(out)
		for i := 0; i < n; i++ {
			out = append(out, strings.ReplaceAll(out[i], "/**/", "/"))
		}
	}
	return out
}

// AddFromFile reads rules from a .gitignore file scoped to base.
func (m *Matcher) AddFromFile(path, base string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open gitignore file: %w", err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		m.AddPatternWithBase(sc.Text(), base)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read gitignore file: %w", err)
	}
	return nil
}

// Match reports whether path (relative to the root) is ignored.
// The last matching rule wins.
func (m *Matcher) Match(path string, isDir bool) bool {
	path = filepath.ToSlash(path)

	m.mu.RLock()
	defer m.mu.RUnlock()

	ignored := false
	for i := range m.rules {
		if m.rules[i].match(path, isDir) {
			ignored = !m.rules[i].negation
		}
	}
	return ignored
}

func (r *rule) matchAny(s string) bool {
	for _, g := range r.globs {
		if g.Match(s) {
			return true
		}
	}
	return false
}

func (r *rule) match(path string, isDir bool) bool {
	if r.base != "" {
		if path == r.base {
			return false
		}
		if !strings.HasPrefix(path, r.base+"/") {
			return false
		}
		path = strings.TrimPrefix(path, r.base+"/")
	}

	parts := strings.Split(path, "/")

	if r.anchored {
		if r.matchAny(path) {
			return !r.dirOnly || isDir
		}
		// A matched parent directory ignores everything below it.
		for i := 1; i < len(parts); i++ {
			if r.matchAny(strings.Join(parts[:i], "/")) {
				return true
			}
		}
		return false
	}

	for i, part := range parts {
		if !r.matchAny(part) {
			continue
		}
		if i < len(parts)-1 {
			return true
		}
		return !r.dirOnly || isDir
	}
	return false
}
