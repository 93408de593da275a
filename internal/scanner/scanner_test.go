package scanner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"coldcopy/internal/model"

	"go.uber.org/zap"
)

func newTestScanner(t *testing.T, opts Options) *Scanner {
	t.Helper()
	return New(opts, zap.NewNop())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
}

func TestScan_File(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "a.txt")
	writeFile(t, path, "hello")

	mtime := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	s := newTestScanner(t, Options{})
	entry, err := s.Scan(path, "")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if entry == nil {
		t.Fatal("expected entry, got nil")
	}

	if entry.Kind != model.KindFile {
		t.Errorf("Kind = %q, want file", entry.Kind)
	}
	if entry.Size != 5 {
		t.Errorf("Size = %d, want 5", entry.Size)
	}
	if entry.FileCount != 1 {
		t.Errorf("FileCount = %d, want 1", entry.FileCount)
	}
	if entry.Archive != model.ArchiveGzip {
		t.Errorf("Archive = %q, want gzip", entry.Archive)
	}
	if entry.MTime != mtime.UnixMicro() {
		t.Errorf("MTime = %d, want %d", entry.MTime, mtime.UnixMicro())
	}
}

func TestScan_MissingPath(t *testing.T) {
	s := newTestScanner(t, Options{})

	entry, err := s.Scan(filepath.Join(t.TempDir(), "nope"), "")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if entry != nil {
		t.Errorf("expected nil for missing path, got %+v", entry)
	}
}

func TestScan_IgnoredName(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "__pycache__", "x.pyc"), "x")

	s := newTestScanner(t, Options{IgnoreNames: []string{"__pycache__"}})

	entry, err := s.Scan(filepath.Join(tmpDir, "__pycache__"), "")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if entry != nil {
		t.Errorf("expected nil for ignored name, got %+v", entry)
	}
}

func TestScan_DirAggregation(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a.txt"), "12345")
	writeFile(t, filepath.Join(tmpDir, "sub", "b.txt"), "1234567890")
	writeFile(t, filepath.Join(tmpDir, "__pycache__", "x.pyc"), "ignored")

	newest := time.Now().Add(time.Hour).Truncate(time.Microsecond)
	if err := os.Chtimes(filepath.Join(tmpDir, "sub", "b.txt"), newest, newest); err != nil {
		t.Fatal(err)
	}

	s := newTestScanner(t, Options{IgnoreNames: []string{"__pycache__"}})
	entry, err := s.Scan(tmpDir, "root")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if entry == nil {
		t.Fatal("expected entry, got nil")
	}

	if entry.Kind != model.KindDir {
		t.Fatalf("Kind = %q, want dir", entry.Kind)
	}
	if entry.FileCount != 2 {
		t.Errorf("FileCount = %d, want 2", entry.FileCount)
	}
	if len(entry.Children) != 2 {
		t.Errorf("Children = %d entries, want 2", len(entry.Children))
	}
	if _, ok := entry.Children["__pycache__"]; ok {
		t.Error("ignored directory present in children")
	}
	if entry.Archive != model.ArchiveNone {
		t.Errorf("Archive = %q, want none", entry.Archive)
	}

	// directory mtime is the max over self and descendants
	if entry.MTime != newest.UnixMicro() {
		t.Errorf("MTime = %d, want %d", entry.MTime, newest.UnixMicro())
	}

	// directory size includes own size plus descendants
	if entry.Size < 15 {
		t.Errorf("Size = %d, want at least 15", entry.Size)
	}

	sub := entry.Children["sub"]
	if sub == nil {
		t.Fatal("missing sub entry")
	}
	if sub.FileCount != 1 || sub.Kind != model.KindDir {
		t.Errorf("sub = %+v, want dir with 1 file", sub)
	}
}

func TestScan_ArchiveDirIsOpaque(t *testing.T) {
	tmpDir := t.TempDir()
	for _, f := range []string{"config", "HEAD", "objects/aa/bb"} {
		writeFile(t, filepath.Join(tmpDir, ".git", f), "data")
	}

	s := newTestScanner(t, Options{ArchiveNames: []string{".git"}})
	entry, err := s.Scan(tmpDir, "root")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	git := entry.Children[".git"]
	if git == nil {
		t.Fatal("missing .git entry")
	}
	if git.Archive != model.ArchiveTarGz {
		t.Errorf("Archive = %q, want gztar", git.Archive)
	}
	if git.Children != nil {
		t.Errorf("archived directory kept children: %+v", git.Children)
	}
	if git.FileCount != 1 {
		t.Errorf("FileCount = %d, want 1", git.FileCount)
	}
	if git.Size < 12 {
		t.Errorf("Size = %d, want aggregate of subtree", git.Size)
	}
}

func TestScan_SymlinkIsLeaf(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "target", "big.txt"), "0123456789")
	if err := os.Symlink(filepath.Join(tmpDir, "target"), filepath.Join(tmpDir, "link")); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	s := newTestScanner(t, Options{})
	entry, err := s.Scan(filepath.Join(tmpDir, "link"), "")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if entry == nil {
		t.Fatal("expected entry, got nil")
	}

	if entry.Kind != model.KindLink {
		t.Errorf("Kind = %q, want link", entry.Kind)
	}
	if entry.Archive != model.ArchiveNone {
		t.Errorf("Archive = %q, want none", entry.Archive)
	}
	if entry.Children != nil {
		t.Error("symlink entry has children")
	}
	if entry.FileCount != 1 {
		t.Errorf("FileCount = %d, want 1", entry.FileCount)
	}
}

func TestScan_DanglingSymlink(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.Symlink(filepath.Join(tmpDir, "gone"), filepath.Join(tmpDir, "link")); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	s := newTestScanner(t, Options{})
	entry, err := s.Scan(filepath.Join(tmpDir, "link"), "")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if entry == nil {
		t.Fatal("dangling symlink should still be snapshotted as a leaf")
	}
	if entry.Kind != model.KindLink {
		t.Errorf("Kind = %q, want link", entry.Kind)
	}
}
