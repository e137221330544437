package specifier

import (
	"fmt"
	"strings"
)

// maxExpansions bounds the number of plain patterns one glob may expand to.
const maxExpansions = 256

// expandPattern turns a glob that may contain extglob groups into a set of
// plain patterns gobwas/glob understands.
//
//	@(a|b)  -> a, b
//	?(a|b)  -> "", a, b
//	**/     -> also matches zero directories
//
// Repeating groups (*(..), +(..)) and negated groups (!(..)) are rejected.
func expandPattern(pattern string) ([]string, error) {
	out, err := expandGroups(pattern)
	if err != nil {
		return nil, err
	}

	var result []string
	seen := make(map[string]struct{})
	for _, p := range out {
		for _, q := range expandGlobstar(p) {
			if _, ok := seen[q]; ok {
				continue
			}
			seen[q] = struct{}{}
			result = append(result, q)
		}
	}
	if len(result) > maxExpansions {
		return nil, fmt.Errorf("pattern %q expands to too many alternatives", pattern)
	}
	return result, nil
}

// expandGroups expands the first extglob group and recurses.
func expandGroups(pattern string) ([]string, error) {
	start := -1
	for i := 0; i+1 < len(pattern); i++ {
		if pattern[i+1] != '(' {
			continue
		}
		switch pattern[i] {
		case '@', '?':
			start = i
		case '*', '+', '!':
			return nil, fmt.Errorf("unsupported extglob group %q in %q", pattern[i:i+2], pattern)
		}
		if start >= 0 {
			break
		}
	}
	if start < 0 {
		if strings.ContainsAny(pattern, "()|") {
			return nil, fmt.Errorf("unbalanced group in %q", pattern)
		}
		return []string{pattern}, nil
	}

	end, alternatives, err := splitGroup(pattern, start+2)
	if err != nil {
		return nil, err
	}
	if pattern[start] == '?' {
		alternatives = append([]string{""}, alternatives...)
	}

	prefix := pattern[:start]
	suffix := pattern[end+1:]

	var out []string
	for _, alt := range alternatives {
		expanded, err := expandGroups(prefix + alt + suffix)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
		if len(out) > maxExpansions {
			return nil, fmt.Errorf("pattern %q expands to too many alternatives", pattern)
		}
	}
	return out, nil
}

// splitGroup returns the index of the closing paren of the group whose body
// starts at from, and the group's top-level alternatives.
func splitGroup(pattern string, from int) (int, []string, error) {
	depth := 0
	last := from
	var alternatives []string
	for i := from; i < len(pattern); i++ {
		switch pattern[i] {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				alternatives = append(alternatives, pattern[last:i])
				return i, alternatives, nil
			}
			depth--
		case '|':
			if depth == 0 {
				alternatives = append(alternatives, pattern[last:i])
				last = i + 1
			}
		}
	}
	return 0, nil, fmt.Errorf("unbalanced group in %q", pattern)
}

// expandGlobstar lets every "**/" also match zero directories.
func expandGlobstar(pattern string) []string {
	idx := strings.Index(pattern, "**/")
	if idx < 0 {
		return []string{pattern}
	}
	if idx > 0 && pattern[idx-1] != '/' {
		// "a**/" is an ordinary wildcard run, not a globstar segment.
		rest := expandGlobstar(pattern[idx+3:])
		out := make([]string, 0, len(rest))
		for _, r := range rest {
			out = append(out, pattern[:idx+3]+r)
		}
		return out
	}

	head := pattern[:idx]
	rest := expandGlobstar(pattern[idx+3:])
	out := make([]string, 0, 2*len(rest))
	for _, r := range rest {
		out = append(out, head+"**/"+r, head+r)
	}
	return out
}
