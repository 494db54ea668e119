package files

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var (
	ErrBinaryFile   = errors.New("file looks binary")
	ErrFileTooLarge = errors.New("file is too large")
)

// ReadScript reads a whole script. Directories, binary files and files over
// maxSize bytes are refused; maxSize <= 0 disables the size check.
func ReadScript(path string, maxSize int64) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("file not found or stat error: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("path '%s' is a directory, not a file", path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return "", fmt.Errorf("%s (%d bytes, limit %d): %w", filepath.Base(path), info.Size(), maxSize, ErrFileTooLarge)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("cannot open file: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("error reading file: %w", err)
	}
	head := content[:min(len(content), 1024)]
	if bytes.IndexByte(head, 0) >= 0 {
		return "", fmt.Errorf("%s: %w", filepath.Base(path), ErrBinaryFile)
	}
	return string(content), nil
}
