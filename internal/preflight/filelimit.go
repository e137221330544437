package preflight

import (
	"fmt"
	"syscall"
)

// MinFileDescriptors is the descriptor limit below which recursive watching
// of a large tree is likely to fail.
const MinFileDescriptors = 1024

// CheckFileDescriptors checks if the file descriptor limit is sufficient.
// A low limit only warns: the watcher falls back to polling.
func (c *Checker) CheckFileDescriptors() CheckResult {
	result := CheckResult{Name: "file_descriptors"}

	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("failed to check file descriptor limit: %v", err)
		return result
	}

	result.Message = fmt.Sprintf("%d (minimum: %d)", rLimit.Cur, MinFileDescriptors)
	if rLimit.Cur < MinFileDescriptors {
		result.Status = StatusWarn
		result.Details = "Run 'ulimit -n 10240' to increase the limit"
		return result
	}
	result.Status = StatusPass
	return result
}
