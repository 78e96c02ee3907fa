//go:build windows

package cli

import "os/exec"

// configureProcAttr keeps the default CommandContext behaviour on Windows,
// which kills only the direct child.
func configureProcAttr(_ *exec.Cmd) {}
