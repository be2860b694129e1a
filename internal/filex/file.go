// Package filex contains small file-system helpers shared by the watcher
// and the intake coordinator.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureSubDir creates (if needed) and returns a subdirectory of the current
// working directory.
func EnsureSubDir(dirName string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// IsHidden reports whether the base name of path denotes a hidden file
// (dotfile). Directory components are ignored.
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}

// Size returns the size in bytes of the regular file at path.
func Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", path)
	}
	return info.Size(), nil
}

// PreserveExt returns name with the extension of original appended when name
// itself carries no extension. Used for user-supplied display names, which
// must keep the original file extension.
func PreserveExt(name, original string) string {
	if filepath.Ext(name) != "" {
		return name
	}
	return name + filepath.Ext(original)
}
