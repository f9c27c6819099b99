package atomicio

import (
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestWriteReadJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "sample.json")

	want := sample{Name: "agent-1", Count: 3}
	if err := WriteJSON(path, want); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var got sample
	ok, err := ReadJSON(path, &got)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if !ok {
		t.Fatalf("ReadJSON: expected ok=true")
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestReadJSONMissingFileIsNotError(t *testing.T) {
	dir := t.TempDir()
	var got sample
	ok, err := ReadJSON(filepath.Join(dir, "absent.json"), &got)
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for missing file")
	}
}

func TestReadJSONMalformedFileIsNotError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := WriteText(path, "{not json"); err != nil {
		t.Fatalf("WriteText: %v", err)
	}

	var got sample
	ok, err := ReadJSON(path, &got)
	if err != nil {
		t.Fatalf("malformed file must not be fatal, got %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for malformed file")
	}
}

func TestWriteJSONOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.json")

	if err := WriteJSON(path, sample{Name: "a", Count: 1}); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteJSON(path, sample{Name: "b", Count: 2}); err != nil {
		t.Fatalf("second write: %v", err)
	}

	var got sample
	ok, err := ReadJSON(path, &got)
	if err != nil || !ok {
		t.Fatalf("ReadJSON after overwrite: ok=%v err=%v", ok, err)
	}
	if got.Name != "b" || got.Count != 2 {
		t.Fatalf("expected latest write to win, got %+v", got)
	}

	entries, err := filepathGlobTmp(dir)
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no leftover temp files, found %v", entries)
	}
}

func filepathGlobTmp(dir string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, ".*.tmp-*"))
}

func TestAppendLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feed.jsonl")

	if err := AppendLine(path, `{"a":1}`); err != nil {
		t.Fatalf("AppendLine: %v", err)
	}
	if err := AppendLine(path, `{"a":2}`); err != nil {
		t.Fatalf("AppendLine: %v", err)
	}

	text, ok, err := ReadText(path)
	if err != nil || !ok {
		t.Fatalf("ReadText: ok=%v err=%v", ok, err)
	}
	want := "{\"a\":1}\n{\"a\":2}\n"
	if text != want {
		t.Fatalf("got %q want %q", text, want)
	}
}
