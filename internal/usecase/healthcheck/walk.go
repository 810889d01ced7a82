package healthcheck

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Placeholder files keep otherwise-empty directories under version control
// and are exempt from the tree scan.
const placeholderFile = "empty"

// writable reports whether the current process may write to path, with
// access(2) semantics.
func writable(path string) bool {
	return unix.Access(path, unix.W_OK) == nil
}

// treeWritableNoExec walks the tree under root, parents before children, and
// reports whether every entry is writable and no regular file carries an
// executable bit. The walk stops at the first violation; an unreadable root
// counts as one. Entries are stat'ed fresh on every call.
func treeWritableNoExec(root string) bool {
	entries, err := os.ReadDir(root)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.Name() == placeholderFile {
			continue
		}
		path := filepath.Join(root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			return false
		}
		if info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0 {
			return false
		}
		if !writable(path) {
			return false
		}
		if entry.IsDir() && !treeWritableNoExec(path) {
			return false
		}
	}
	return true
}
