// Package clip moves text between reform and the system clipboard.
package clip

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	atotto "github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"golang.org/x/term"
)

// Method is the mechanism that made a result copyable.
// MethodFile means no clipboard was reachable and the text went to a temp file.
type Method string

const (
	MethodNative Method = "native" // OS clipboard via github.com/atotto/clipboard
	MethodOSC52  Method = "osc52"  // Terminal clipboard via OSC52 escape sequence
	MethodFile   Method = "file"   // Temp file fallback
)

// ErrEmptyClipboard is returned by ReadAll when the clipboard holds no text.
var ErrEmptyClipboard = errors.New("clipboard is empty")

// Result reports how WriteAll delivered the text.
type Result struct {
	Method   Method
	FilePath string // only set when Method == MethodFile
}

// Replaced in tests.
var (
	nativeReadAll  = atotto.ReadAll
	nativeWriteAll = atotto.WriteAll
	osc52WriteAll  = writeAllOSC52
)

// ReadAll returns the clipboard text used as formatting input.
// OSC52 cannot read, so only the native clipboard is consulted.
func ReadAll() (string, error) {
	text, err := nativeReadAll()
	if err != nil {
		return "", fmt.Errorf("reading clipboard: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyClipboard
	}
	return text, nil
}

// WriteAll copies a formatted variant, trying in order the native
// clipboard, the OSC52 terminal clipboard and a temp file.
func WriteAll(text string) (Result, error) {
	if err := nativeWriteAll(text); err == nil {
		return Result{Method: MethodNative}, nil
	}

	if err := osc52WriteAll(text); err == nil {
		return Result{Method: MethodOSC52}, nil
	}

	path, err := writeTempFile(text)
	if err != nil {
		return Result{}, err
	}
	return Result{Method: MethodFile, FilePath: path}, nil
}

// Terminals can have strict OSC52 limits.
const osc52LimitBytes = 100_000

func writeAllOSC52(text string) error {
	if text == "" {
		return errors.New("empty clipboard text")
	}
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return errors.New("stderr is not a terminal")
	}
	if len(text) > osc52LimitBytes {
		return fmt.Errorf("text too large for OSC52 (%d bytes > %d)", len(text), osc52LimitBytes)
	}

	seq := osc52.New(text).Limit(osc52LimitBytes)
	if os.Getenv("TMUX") != "" {
		seq = seq.Tmux()
	} else if os.Getenv("STY") != "" {
		seq = seq.Screen()
	}

	// stderr keeps stdout clean for piped output.
	_, err := seq.WriteTo(os.Stderr)
	return err
}

func writeTempFile(text string) (path string, err error) {
	f, err := os.CreateTemp("", "reform-variant-*.txt")
	if err != nil {
		return "", err
	}
	path = f.Name()
	defer func() {
		_ = f.Close()
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if _, err = f.WriteString(text); err != nil {
		return "", err
	}
	if err = f.Close(); err != nil {
		return "", err
	}
	return filepath.Clean(path), nil
}
