package healthcheck

import (
	"os"
	"path/filepath"
	"testing"
)

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
}

func mustWrite(t *testing.T, path string, mode os.FileMode) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), mode); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestTreeWritableNoExec_CleanTree(t *testing.T) {
	root := t.TempDir()
	mustMkdir(t, filepath.Join(root, "cache", "models"))
	mustWrite(t, filepath.Join(root, "cache", "models", "a.tmp"), 0o644)
	mustWrite(t, filepath.Join(root, "sessions.tmp"), 0o600)

	if !treeWritableNoExec(root) {
		t.Error("expected a clean tree to pass")
	}
}

func TestTreeWritableNoExec_ExecutableFileFails(t *testing.T) {
	root := t.TempDir()
	mustMkdir(t, filepath.Join(root, "cache"))
	mustWrite(t, filepath.Join(root, "cache", "dropped.sh"), 0o755)

	if treeWritableNoExec(root) {
		t.Error("expected an executable file deep in the tree to fail")
	}
}

func TestTreeWritableNoExec_PlaceholderExempt(t *testing.T) {
	root := t.TempDir()
	mustMkdir(t, filepath.Join(root, "cache"))
	mustWrite(t, filepath.Join(root, "cache", "empty"), 0o755)

	if !treeWritableNoExec(root) {
		t.Error("expected the placeholder file to be exempt even with exec bits")
	}
}

func TestTreeWritableNoExec_UnwritableEntryFails(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses permission checks")
	}

	root := t.TempDir()
	locked := filepath.Join(root, "locked")
	mustMkdir(t, locked)
	if err := os.Chmod(locked, 0o555); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	if treeWritableNoExec(root) {
		t.Error("expected an unwritable directory to fail")
	}
}

func TestTreeWritableNoExec_MissingRootFails(t *testing.T) {
	if treeWritableNoExec(filepath.Join(t.TempDir(), "gone")) {
		t.Error("expected a missing root to fail")
	}
}

func TestTreeWritableNoExec_EmptyTreePasses(t *testing.T) {
	if !treeWritableNoExec(t.TempDir()) {
		t.Error("expected an empty tree to pass")
	}
}

func TestWritable(t *testing.T) {
	if !writable(t.TempDir()) {
		t.Error("expected a fresh temp dir to be writable")
	}
	if writable(filepath.Join(t.TempDir(), "gone")) {
		t.Error("expected a missing path to be unwritable")
	}
}

func TestWritable_ReadOnlyDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses permission checks")
	}

	dir := filepath.Join(t.TempDir(), "ro")
	mustMkdir(t, dir)
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	if writable(dir) {
		t.Error("expected a read-only directory to be unwritable")
	}
}
