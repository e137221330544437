// Package gitignore matches paths against .gitignore rules.
//
// Patterns are compiled with github.com/gobwas/glob using '/' as the
// separator. Supported syntax: wildcards (*, ?, **, [..]), rooted
// patterns (/build), negation (!keep.js), directory-only patterns
// (storybook-static/) and nested .gitignore files scoped to their
// directory.
//
//	m := gitignore.New()
//	m.AddPattern("*.log")
//	m.AddPattern("!keep.log")
//	_ = m.AddFromFile("/p/src/.gitignore", "src")
//
//	m.Match("src/tmp/a.log", false) // true
package gitignore
