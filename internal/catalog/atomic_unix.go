//go:build !windows

package catalog

import (
	"os"

	"github.com/google/renameio/v2"
)

// atomicWriteFile replaces path so readers see either the old or the new file.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(path, data, perm)
}
