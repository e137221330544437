package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	sierrors "github.com/Aman-CERP/storyindex/internal/errors"
	"github.com/Aman-CERP/storyindex/internal/gitignore"
	"github.com/Aman-CERP/storyindex/internal/specifier"
)

// gitignoreCacheSize is the maximum number of gitignore matchers to cache.
const gitignoreCacheSize = 1000

// Scanner discovers story files. Safe for concurrent use.
type Scanner struct {
	// gitignoreCache caches parsed gitignore matchers by directory.
	gitignoreCache *lru.Cache[string, *gitignore.Matcher]
	cacheMu        sync.RWMutex

	respectGitignore bool
	excludePatterns  []string
	logger           *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithGitignore toggles .gitignore handling (default on).
func WithGitignore(enabled bool) Option {
	return func(s *Scanner) { s.respectGitignore = enabled }
}

// WithExcludePatterns adds directory or file patterns to skip.
func WithExcludePatterns(patterns ...string) Option {
	return func(s *Scanner) { s.excludePatterns = append(s.excludePatterns, patterns...) }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) { s.logger = logger }
}

// New creates a new Scanner instance.
func New(opts ...Option) (*Scanner, error) {
	cache, err := lru.New[string, *gitignore.Matcher](gitignoreCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create gitignore cache: %w", err)
	}
	s := &Scanner{
		gitignoreCache:   cache,
		respectGitignore: true,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Resolve returns every file covered by spec, sorted by import path.
// A missing specifier directory yields no files and a warning; any other
// failure to read the directory is returned.
func (s *Scanner) Resolve(ctx context.Context, spec *specifier.Specifier) ([]FileInfo, error) {
	root := spec.AbsoluteDirectory()
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("no story files found for specifier",
				slog.String("glob", spec.AbsoluteGlob))
			return nil, nil
		}
		return nil, sierrors.New(sierrors.ErrCodeWalk,
			fmt.Sprintf("cannot read stories directory %s", spec.Directory), err).
			WithDetail("directory", root)
	}
	if !info.IsDir() {
		return nil, sierrors.New(sierrors.ErrCodeWalk,
			fmt.Sprintf("stories directory %s is not a directory", spec.Directory), nil)
	}

	results, err := s.Scan(ctx, &ScanOptions{
		RootDir:          root,
		WorkingDir:       spec.WorkingDir,
		Match:            spec.MatchImportPath,
		ExcludePatterns:  s.excludePatterns,
		RespectGitignore: s.respectGitignore,
	})
	if err != nil {
		return nil, err
	}

	var files []FileInfo
	for r := range results {
		if r.Error != nil {
			return nil, sierrors.New(sierrors.ErrCodeWalk,
				fmt.Sprintf("failed to walk %s", spec.Directory), r.Error)
		}
		files = append(files, *r.File)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ImportPath < files[j].ImportPath
	})
	if len(files) == 0 {
		s.logger.Warn("no story files found for specifier",
			slog.String("glob", spec.AbsoluteGlob))
	}
	return files, nil
}

// Scan walks opts.RootDir and streams matching files.
// The channel is closed when scanning is complete.
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions) (<-chan ScanResult, error) {
	if opts == nil {
		opts = &ScanOptions{}
	}

	rootDir := opts.RootDir
	if rootDir == "" {
		rootDir = "."
	}
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	workingDir := absRoot
	if opts.WorkingDir != "" {
		if workingDir, err = filepath.Abs(opts.WorkingDir); err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", absRoot)
	}

	results := make(chan ScanResult, 64)
	go func() {
		defer close(results)
		s.scan(ctx, absRoot, workingDir, opts, results)
	}()
	return results, nil
}

// scan performs the actual directory traversal.
func (s *Scanner) scan(ctx context.Context, absRoot, workingDir string, opts *ScanOptions, results chan<- ScanResult) {
	err := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			if path == absRoot {
				return err
			}
			return nil // Skip entries we can't access
		}

		relPath, err := filepath.Rel(workingDir, path)
		if err != nil {
			return nil
		}

		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			if s.shouldExcludeDir(relPath, opts) {
				return filepath.SkipDir
			}
			if opts.RespectGitignore && s.isGitignored(relPath, workingDir, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 && !opts.FollowSymlinks {
			return nil
		}

		importPath := specifier.NormalizeImportPath(relPath)
		if opts.Match != nil && !opts.Match(importPath) {
			return nil
		}
		if s.shouldExcludeFile(relPath, opts) {
			return nil
		}
		if opts.RespectGitignore && s.isGitignored(relPath, workingDir, false) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil
		}

		select {
		case results <- ScanResult{File: &FileInfo{
			ImportPath: importPath,
			AbsPath:    path,
			Size:       fi.Size(),
			ModTime:    fi.ModTime(),
		}}:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		select {
		case results <- ScanResult{Error: err}:
		case <-ctx.Done():
		}
	}
}

// IsExcludedDir reports whether a directory name is never descended into.
func IsExcludedDir(name string) bool {
	for _, pattern := range defaultExcludeDirs {
		if matchDirPattern(name, pattern) {
			return true
		}
	}
	return false
}

// shouldExcludeDir checks if a directory should be excluded.
func (s *Scanner) shouldExcludeDir(relPath string, opts *ScanOptions) bool {
	for _, pattern := range defaultExcludeDirs {
		if matchDirPattern(relPath, pattern) {
			return true
		}
	}
	for _, pattern := range opts.ExcludePatterns {
		if matchDirPattern(relPath, pattern) {
			return true
		}
	}
	return false
}

// shouldExcludeFile checks custom file exclusions.
func (s *Scanner) shouldExcludeFile(relPath string, opts *ScanOptions) bool {
	baseName := filepath.Base(relPath)
	for _, pattern := range opts.ExcludePatterns {
		if matchFilePattern(baseName, relPath, pattern) {
			return true
		}
	}
	return false
}

// matchDirPattern checks if a directory path matches a pattern.
func matchDirPattern(relPath, pattern string) bool {
	// **/name/** matches the name as any path component
	if strings.HasPrefix(pattern, "**/") {
		name := strings.TrimSuffix(strings.TrimPrefix(pattern, "**/"), "/**")
		for _, part := range strings.Split(relPath, string(filepath.Separator)) {
			if part == name {
				return true
			}
		}
		return false
	}

	prefix := strings.TrimSuffix(pattern, "/**")
	return relPath == prefix || strings.HasPrefix(relPath, prefix+string(filepath.Separator))
}

// matchFilePattern checks if a file matches a simple pattern.
func matchFilePattern(baseName, relPath, pattern string) bool {
	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		return strings.HasPrefix(relPath, prefix+string(filepath.Separator))
	}
	pattern = strings.TrimPrefix(pattern, "**/")
	if matched, err := filepath.Match(pattern, baseName); err == nil && matched {
		return true
	}
	return relPath == pattern
}

// isGitignored checks the root and every nested .gitignore down to relPath.
func (s *Scanner) isGitignored(relPath, absRoot string, isDir bool) bool {
	if m := s.getGitignoreMatcher(absRoot, ""); m != nil && m.Match(relPath, isDir) {
		return true
	}

	dir := filepath.Dir(relPath)
	if dir == "." {
		return false
	}
	currentDir := absRoot
	currentBase := ""
	for _, part := range strings.Split(dir, string(filepath.Separator)) {
		currentDir = filepath.Join(currentDir, part)
		if currentBase == "" {
			currentBase = part
		} else {
			currentBase = currentBase + "/" + part
		}
		if m := s.getGitignoreMatcher(currentDir, currentBase); m != nil && m.Match(relPath, isDir) {
			return true
		}
	}
	return false
}

// getGitignoreMatcher gets or creates a gitignore matcher for a directory.
// Directories without a .gitignore cache an empty matcher.
func (s *Scanner) getGitignoreMatcher(dir, base string) *gitignore.Matcher {
	s.cacheMu.RLock()
	matcher, ok := s.gitignoreCache.Get(dir)
	s.cacheMu.RUnlock()
	if ok {
		return matcher
	}

	matcher = gitignore.New()
	gitignorePath := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(gitignorePath); err == nil {
		if err := matcher.AddFromFile(gitignorePath, base); err != nil {
			s.logger.Debug("failed to read gitignore",
				slog.String("path", gitignorePath),
				slog.String("error", err.Error()))
		}
	}

	s.cacheMu.Lock()
	s.gitignoreCache.Add(dir, matcher)
	s.cacheMu.Unlock()

	return matcher
}

// InvalidateGitignoreCache clears the gitignore matcher cache.
// Call this when .gitignore files change.
func (s *Scanner) InvalidateGitignoreCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.gitignoreCache.Purge()
}

// Default directories to exclude.
var defaultExcludeDirs = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/storybook-static/**",
}
