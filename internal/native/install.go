package native

import (
	"os"
	"path/filepath"
)

// Install writes binary to path as an executable file, via a temp file
// in the same directory followed by os.Rename, so a process that reads
// path concurrently never observes a partially written binary (the same
// write-then-atomic-rename shape flapc's own temp-file handling in its
// CLI driver follows, just ending in a rename instead of a defer-remove).
func Install(path string, binary []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(binary); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o755); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
