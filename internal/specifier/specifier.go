// Package specifier normalizes user-declared story locations into
// absolute globs and import-path matchers, and derives titles from paths.
package specifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	sierrors "github.com/Aman-CERP/storyindex/internal/errors"
)

// DefaultFiles is the files pattern used when a specifier names a bare directory.
const DefaultFiles = "**/*.@(mdx|stories.@(js|jsx|mjs|ts|tsx))"

// globChars marks a string as a glob rather than a literal path.
const globChars = "*?[]{}()!@+"

// Raw is a stories entry as written in configuration: either a bare string
// (glob, directory or file) or an object.
type Raw struct {
	// Glob holds a bare string entry. When set, the other fields are ignored.
	Glob string `yaml:"-" json:"-"`

	Directory   string `yaml:"directory" json:"directory"`
	Files       string `yaml:"files,omitempty" json:"files,omitempty"`
	TitlePrefix string `yaml:"titlePrefix,omitempty" json:"titlePrefix,omitempty"`
}

// UnmarshalYAML accepts both scalar and mapping forms.
func (r *Raw) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		r.Glob = node.Value
		return nil
	}
	type plain Raw
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*r = Raw(p)
	return nil
}

// MarshalYAML writes bare entries back as scalars.
func (r Raw) MarshalYAML() (any, error) {
	if r.Glob != "" {
		return r.Glob, nil
	}
	type plain Raw
	return plain(r), nil
}

// MarshalJSON writes bare entries as strings.
func (r Raw) MarshalJSON() ([]byte, error) {
	if r.Glob != "" {
		return json.Marshal(r.Glob)
	}
	type plain Raw
	return json.Marshal(plain(r))
}

// UnmarshalJSON accepts both string and object forms.
func (r *Raw) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = Raw{Glob: s}
		return nil
	}
	type plain Raw
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Raw(p)
	return nil
}

// String renders the entry for logs.
func (r Raw) String() string {
	if r.Glob != "" {
		return r.Glob
	}
	return fmt.Sprintf("{directory: %s, files: %s, titlePrefix: %s}", r.Directory, r.Files, r.TitlePrefix)
}

// Context carries the directories a specifier is resolved against.
type Context struct {
	// ConfigDir is the directory relative specifiers are declared in.
	ConfigDir string
	// WorkingDir is the project root import paths are relative to.
	WorkingDir string
}

// Specifier is a normalized stories entry. Immutable once built.
type Specifier struct {
	// TitlePrefix is prepended to every derived title.
	TitlePrefix string
	// Directory is the ./-prefixed slash path relative to WorkingDir.
	Directory string
	// Files is the glob below Directory.
	Files string
	// ImportPathGlob is Directory joined with Files.
	ImportPathGlob string
	// AbsoluteGlob is the glob rooted at WorkingDir.
	AbsoluteGlob string
	// WorkingDir is the absolute project root.
	WorkingDir string
	// ConfigDir is the absolute configuration directory.
	ConfigDir string

	matchers []glob.Glob
}

// Normalize resolves raw against ctx.
func Normalize(raw Raw, ctx Context) (*Specifier, error) {
	workingDir, err := absClean(ctx.WorkingDir)
	if err != nil {
		return nil, sierrors.SpecifierConfigError("invalid working directory", err)
	}
	configDir := ctx.ConfigDir
	if configDir == "" {
		configDir = workingDir
	}
	if !filepath.IsAbs(configDir) {
		configDir = filepath.Join(workingDir, configDir)
	}
	configDir = filepath.Clean(configDir)

	directory, files, prefix, err := split(raw, configDir)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(files) == "" {
		return nil, sierrors.SpecifierConfigError(
			fmt.Sprintf("stories entry %s has an empty files pattern", raw), nil)
	}

	absDir := filepath.FromSlash(directory)
	if !filepath.IsAbs(absDir) {
		absDir = filepath.Join(configDir, absDir)
	}
	rel, err := filepath.Rel(workingDir, filepath.Clean(absDir))
	if err != nil {
		return nil, sierrors.SpecifierConfigError(
			fmt.Sprintf("stories entry %s cannot be expressed relative to %s", raw, workingDir), err)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return nil, sierrors.SpecifierConfigError(
			fmt.Sprintf("stories entry %s resolves outside the working directory %s", raw, workingDir), nil).
			WithSuggestion("Move the stories under the project root or run from a parent directory.")
	}
	dir := NormalizeImportPath(rel)

	files = strings.TrimPrefix(files, "./")
	matchers, err := compile(files)
	if err != nil {
		return nil, sierrors.SpecifierConfigError(
			fmt.Sprintf("stories entry %s has an invalid glob %q", raw, files), err)
	}

	return &Specifier{
		TitlePrefix:    prefix,
		Directory:      dir,
		Files:          files,
		ImportPathGlob: dir + "/" + files,
		AbsoluteGlob:   path.Join(filepath.ToSlash(workingDir), rel, files),
		WorkingDir:     workingDir,
		ConfigDir:      configDir,
		matchers:       matchers,
	}, nil
}

// NormalizeAll normalizes every entry, failing on the first invalid one.
func NormalizeAll(raws []Raw, ctx Context) ([]*Specifier, error) {
	specs := make([]*Specifier, 0, len(raws))
	for _, raw := range raws {
		s, err := Normalize(raw, ctx)
		if err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	return specs, nil
}

// split classifies a raw entry into directory, files and title prefix.
func split(raw Raw, configDir string) (directory, files, prefix string, err error) {
	if raw.Glob == "" {
		if raw.Directory == "" {
			return "", "", "", sierrors.SpecifierConfigError("stories entry has no directory", nil)
		}
		files = raw.Files
		if files == "" {
			files = DefaultFiles
		}
		return filepath.ToSlash(raw.Directory), files, raw.TitlePrefix, nil
	}

	entry := filepath.ToSlash(raw.Glob)
	if isGlob(entry) {
		base, rest := scanBase(entry)
		return base, rest, "", nil
	}

	abs := entry
	if !filepath.IsAbs(filepath.FromSlash(abs)) {
		abs = filepath.Join(configDir, filepath.FromSlash(entry))
	}
	if info, statErr := os.Stat(abs); statErr == nil && info.IsDir() {
		return entry, DefaultFiles, "", nil
	}
	return path.Dir(entry), path.Base(entry), "", nil
}

// scanBase splits a glob into its literal leading directory and the rest.
func scanBase(pattern string) (string, string) {
	segments := strings.Split(pattern, "/")
	i := 0
	for ; i < len(segments)-1; i++ {
		if isGlob(segments[i]) {
			break
		}
	}
	base := strings.Join(segments[:i], "/")
	if base == "" {
		if strings.HasPrefix(pattern, "/") {
			base = "/"
		} else {
			base = "."
		}
	}
	return base, strings.Join(segments[i:], "/")
}

func isGlob(s string) bool {
	return strings.ContainsAny(s, globChars)
}

func compile(files string) ([]glob.Glob, error) {
	patterns, err := expandPattern(files)
	if err != nil {
		return nil, err
	}
	matchers := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, g)
	}
	return matchers, nil
}

func absClean(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("empty directory")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// NormalizeImportPath prefixes a relative slash path with "./".
func NormalizeImportPath(rel string) string {
	rel = filepath.ToSlash(rel)
	if rel == "" || rel == "." {
		return "."
	}
	if strings.HasPrefix(rel, "./") || strings.HasPrefix(rel, "../") || strings.HasPrefix(rel, "/") {
		return rel
	}
	return "./" + rel
}

// ImportPath converts an absolute path to the ./-prefixed import path
// relative to workingDir.
func ImportPath(workingDir, absPath string) string {
	rel, err := filepath.Rel(workingDir, absPath)
	if err != nil {
		return filepath.ToSlash(absPath)
	}
	return NormalizeImportPath(rel)
}

// AbsoluteDirectory returns the specifier's directory as an absolute OS path.
func (s *Specifier) AbsoluteDirectory() string {
	return filepath.Join(s.WorkingDir, filepath.FromSlash(s.Directory))
}

// ImportPath converts an absolute path to an import path for this specifier.
func (s *Specifier) ImportPath(absPath string) string {
	return ImportPath(s.WorkingDir, absPath)
}

// relative returns the part of importPath below Directory.
func (s *Specifier) relative(importPath string) (string, bool) {
	if s.Directory == "." {
		return strings.TrimPrefix(importPath, "./"), !strings.HasPrefix(importPath, "../")
	}
	prefix := s.Directory + "/"
	if !strings.HasPrefix(importPath, prefix) {
		return "", false
	}
	return importPath[len(prefix):], true
}

// MatchImportPath reports whether a ./-prefixed import path is covered.
func (s *Specifier) MatchImportPath(importPath string) bool {
	rest, ok := s.relative(NormalizeImportPath(importPath))
	if !ok || rest == "" {
		return false
	}
	for _, m := range s.matchers {
		if m.Match(rest) {
			return true
		}
	}
	return false
}

// MatchAbsolute reports whether an absolute path is covered.
func (s *Specifier) MatchAbsolute(absPath string) bool {
	return s.MatchImportPath(s.ImportPath(absPath))
}

// Contains reports whether an absolute path lies under the specifier directory.
func (s *Specifier) Contains(absPath string) bool {
	rel, err := filepath.Rel(s.AbsoluteDirectory(), absPath)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel != ".." && !strings.HasPrefix(rel, "../")
}
