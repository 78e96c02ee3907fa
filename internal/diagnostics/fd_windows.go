//go:build windows

package diagnostics

// CountFDs reports no data on Windows; FD checks are skipped there.
func CountFDs() (open, limit int) {
	return 0, 0
}
