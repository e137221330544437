// Package scanner resolves story specifiers to the files they cover.
// It walks a specifier's directory, skips excluded directories and
// .gitignore'd paths, and returns the matching files in sorted order.
package scanner

import (
	"time"
)

// FileInfo describes a discovered file.
type FileInfo struct {
	ImportPath string    // ./-prefixed path relative to the working directory
	AbsPath    string    // Absolute path
	Size       int64     // File size in bytes
	ModTime    time.Time // Last modification time
}

// ScanOptions configures one walk.
type ScanOptions struct {
	// RootDir is the directory to walk.
	RootDir string

	// WorkingDir is the directory import paths are relative to.
	// Defaults to RootDir.
	WorkingDir string

	// Match filters files by import path. Nil accepts every file.
	Match func(importPath string) bool

	// ExcludePatterns are extra directory or file patterns to skip.
	ExcludePatterns []string

	// RespectGitignore enables .gitignore parsing.
	RespectGitignore bool

	// FollowSymlinks includes symlinked files (default: false).
	FollowSymlinks bool
}

// ScanResult is returned from the scanner channel.
type ScanResult struct {
	File  *FileInfo
	Error error
}
