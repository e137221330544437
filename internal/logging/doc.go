// Package logging configures the process logger.
//
// Without --debug, logs go to stderr only: text on a terminal, JSON when
// piped. With --debug, JSON logs are also written to a size-rotated file
// under ~/.storyindex/logs/.
package logging
