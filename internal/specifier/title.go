package specifier

import (
	"strings"
)

// AutoTitle returns the title for a file covered by this specifier.
//
// A user title is joined onto TitlePrefix. Without one, the title is the
// path below Directory joined onto TitlePrefix, with extensions stripped
// from the last segment and a redundant file name dropped:
//
//	./src/components/Button/Button.stories.tsx -> components/Button
//	./src/components/Button/index.stories.tsx  -> components/Button
func (s *Specifier) AutoTitle(importPath, userTitle string) string {
	if userTitle != "" {
		return joinTitle(s.TitlePrefix, userTitle)
	}

	rest, ok := s.relative(NormalizeImportPath(importPath))
	if !ok {
		return ""
	}

	parts := splitTitle(joinTitle(s.TitlePrefix, rest))
	if len(parts) == 0 {
		return ""
	}
	parts[len(parts)-1] = stripExtension(parts[len(parts)-1])
	parts = removeRedundantFilename(parts)
	return strings.Join(parts, "/")
}

// MakeTitle returns a title function bound to importPath.
func (s *Specifier) MakeTitle(importPath string) func(userTitle string) string {
	return func(userTitle string) string {
		return s.AutoTitle(importPath, userTitle)
	}
}

func joinTitle(prefix, title string) string {
	parts := append(splitTitle(prefix), splitTitle(title)...)
	return strings.Join(parts, "/")
}

func splitTitle(title string) []string {
	var parts []string
	for _, p := range strings.Split(title, "/") {
		if p != "" && p != "." {
			parts = append(parts, p)
		}
	}
	return parts
}

func stripExtension(name string) string {
	if i := strings.Index(name, "."); i > 0 {
		return name[:i]
	}
	return name
}

func removeRedundantFilename(parts []string) []string {
	if len(parts) < 2 {
		return parts
	}
	last := parts[len(parts)-1]
	prev := parts[len(parts)-2]
	if strings.EqualFold(last, prev) || strings.EqualFold(last, "index") {
		return parts[:len(parts)-1]
	}
	return parts
}
