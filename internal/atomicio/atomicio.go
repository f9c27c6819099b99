// Package atomicio provides crash-safe writes for the JSON and text files
// that make up the messenger's on-disk state. Every write goes to a
// per-process temp file and is renamed into place, so concurrent readers
// never observe a partial write.
package atomicio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// WriteJSON marshals v as indented JSON and atomically replaces path.
// Parent directories are created as needed.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	return WriteFile(path, data, 0644)
}

// ReadJSON reads and unmarshals path into v. A missing or malformed file
// is reported via ok=false rather than an error: callers must treat
// "not present" and "corrupt" identically per the failure model, since a
// concurrent writer on a non-POSIX filesystem can leave a torn read.
func ReadJSON(path string, v any) (ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if jsonErr := json.Unmarshal(data, v); jsonErr != nil {
		return false, nil
	}
	return true, nil
}

// WriteFile atomically replaces path with data using a temp-write-then-rename.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), time.Now().UnixNano()))

	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("writing temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming into place %s: %w", path, err)
	}
	return nil
}

// ReadText reads path as a string, returning ok=false (not an error) if the
// file is missing.
func ReadText(path string) (text string, ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

// WriteText atomically replaces path with text.
func WriteText(path, text string) error {
	return WriteFile(path, []byte(text), 0644)
}

// AppendLine appends a single line (newline-terminated) to path, creating
// parent directories and the file as needed. Unlike WriteFile this is not
// atomic with respect to concurrent appenders — callers that need
// cross-process safety for the same file must hold an external lock; the
// activity feed accepts interleaved-but-whole-line writes because each
// append is smaller than the platform's atomic pipe-buffer/write guarantee
// for local files in practice, and a torn line is simply dropped by readers.
func AppendLine(path string, line string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("appending to %s: %w", path, err)
	}
	return nil
}
