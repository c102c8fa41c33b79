package build

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnumerateFilesSkipsIgnoredAndGitignore(t *testing.T) {
	dir := t.TempDir()

	mustWrite(t, filepath.Join(dir, "keep.wav"), "x")
	mustWrite(t, filepath.Join(dir, "skip.wav"), "x")
	mustWrite(t, filepath.Join(dir, ".gitignore"), "x")

	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	mustWrite(t, filepath.Join(sub, "also-keep.wav"), "x")

	files, err := enumerateFiles([]string{dir}, []string{filepath.Join(dir, "skip.wav")})
	if err != nil {
		t.Fatalf("enumerateFiles: %v", err)
	}

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}

	want := map[string]bool{"keep.wav": true, "also-keep.wav": true}
	if len(names) != len(want) {
		t.Fatalf("got %v, want files matching %v", names, want)
	}
	for _, n := range names {
		if !want[n] {
			t.Errorf("unexpected file %q in results", n)
		}
	}
}

func mustWrite(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}
