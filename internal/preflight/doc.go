// Package preflight runs the checks behind `storyindex doctor`: whether the
// configuration is valid, whether the story directories exist, and whether
// the machine can watch files and bind the server address.
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, cfg)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
