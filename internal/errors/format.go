package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// FormatForServer renders an indexing failure as the plain-text body
// returned in place of any JSON index.
func FormatForServer(err error) string {
	if err == nil {
		return ""
	}

	if agg, ok := AsAggregate(err); ok {
		return agg.Error()
	}

	var e *Error
	if errors.As(err, &e) {
		if e.Code == ErrCodeDuplicateID {
			return fmt.Sprintf("Unable to index files:\n- %s and %s: %s",
				e.Details["first"], e.Details["second"], e.Message)
		}
		if path, ok := e.Details["path"]; ok {
			return fmt.Sprintf("Unable to index files:\n- %s: %s", path, e.Message)
		}
		return e.Message
	}

	return err.Error()
}

// FormatForCLI formats an error for CLI output.
// Uses a concise format suitable for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	if agg, ok := AsAggregate(err); ok {
		return agg.Error() + "\n"
	}

	var e *Error
	if !errors.As(err, &e) {
		// Wrap standard error
		e = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder

	// Error message with code
	sb.WriteString(fmt.Sprintf("Error: %s\n", e.Message))

	// Suggestion if available
	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", e.Suggestion))
	}

	// Code reference
	sb.WriteString(fmt.Sprintf("  Code: %s\n", e.Code))

	return sb.String()
}

// jsonError is the JSON representation of an error.
type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
}

// FormatJSON returns a JSON representation of the error.
// Suitable for machine consumption and structured logging.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	var e *Error
	if !errors.As(err, &e) {
		e = Wrap(ErrCodeInternal, err)
	}

	je := jsonError{
		Code:       e.Code,
		Message:    e.Message,
		Category:   string(e.Category),
		Severity:   string(e.Severity),
		Details:    e.Details,
		Suggestion: e.Suggestion,
	}

	if e.Cause != nil {
		je.Cause = e.Cause.Error()
	}

	return json.Marshal(je)
}

// FormatForLog formats an error for structured logging.
// Returns key-value pairs suitable for slog attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	if agg, ok := AsAggregate(err); ok {
		return map[string]any{
			"error_code": ErrCodeIndexingFailed,
			"failures":   len(agg.Failures),
			"paths":      strings.Join(agg.Paths(), ","),
		}
	}

	var e *Error
	if !errors.As(err, &e) {
		return map[string]any{
			"error": err.Error(),
		}
	}

	result := map[string]any{
		"error_code": e.Code,
		"message":    e.Message,
		"category":   string(e.Category),
		"severity":   string(e.Severity),
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	if e.Suggestion != "" {
		result["suggestion"] = e.Suggestion
	}

	for k, v := range e.Details {
		result["detail_"+k] = v
	}

	return result
}
