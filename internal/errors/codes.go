// Package errors provides structured error handling for storyindex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration and specifier errors
//   - 2XX: IO errors (file, directory walk)
//   - 3XX: Extraction errors (one file failed to index)
//   - 4XX: Structural index errors (duplicate ids, version compatibility)
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and directory I/O errors.
	CategoryIO Category = "IO"
	// CategoryExtraction indicates a single file could not be indexed.
	CategoryExtraction Category = "EXTRACTION"
	// CategoryIndex indicates the assembled index is structurally invalid.
	CategoryIndex Category = "INDEX"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeSpecifierInvalid = "ERR_101_SPECIFIER_INVALID"
	ErrCodeConfigInvalid    = "ERR_102_CONFIG_INVALID"
	ErrCodeConfigNotFound   = "ERR_103_CONFIG_NOT_FOUND"

	// IO errors (200-299)
	ErrCodeFileRead = "ERR_201_FILE_READ"
	ErrCodeWalk     = "ERR_202_WALK_FAILED"

	// Extraction errors (300-399)
	ErrCodeExtractionFailed = "ERR_301_EXTRACTION_FAILED"
	ErrCodeNoIndexer        = "ERR_302_NO_INDEXER"

	// Index errors (400-499)
	ErrCodeDuplicateID          = "ERR_401_DUPLICATE_ID"
	ErrCodeVersionIncompatible  = "ERR_402_VERSION_INCOMPATIBLE"
	ErrCodeIndexingFailed       = "ERR_403_INDEXING_FAILED"
	ErrCodeGeneratorUninitiated = "ERR_404_NOT_INITIALIZED"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "101" from "ERR_101_SPECIFIER_INVALID")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryExtraction
	case '4':
		return CategoryIndex
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeSpecifierInvalid, ErrCodeConfigInvalid:
		return SeverityFatal
	case ErrCodeExtractionFailed, ErrCodeFileRead, ErrCodeNoIndexer:
		// One bad file never takes its siblings down with it.
		return SeverityWarning
	}
	return SeverityError
}
