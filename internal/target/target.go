package target

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"opldock/internal/faults"
)

// RequiredFolders is the fixed set of top-level subfolders an OPL target
// needs. Order matters only for reporting.
var RequiredFolders = []string{"APPS", "ART", "CD", "CFG", "CHT", "DVD", "LNG", "POPS", "THM", "VMC"}

// Resolve expands a leading ~ and returns an absolute, cleaned path.
func Resolve(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", faults.Wrap(faults.ErrValidation, "validating_target", "resolve path", "target path is empty", nil)
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if path == "~" {
			path = home
		} else if len(path) > 1 && path[1] == '/' {
			path = filepath.Join(home, path[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", path, err)
	}
	return absolute, nil
}

// ValidateAccess checks that the target exists, is a directory, and is
// readable, writable, and traversable by this process.
func ValidateAccess(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return faults.Wrap(faults.ErrAccess, "validating_target", "stat", "target path does not exist", nil)
		}
		return faults.Wrap(faults.ErrAccess, "validating_target", "stat", "target path is not accessible", err)
	}
	if !info.IsDir() {
		return faults.Wrap(faults.ErrAccess, "validating_target", "stat", "target path is not a directory", nil)
	}
	if err := unix.Access(dir, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return faults.Wrap(faults.ErrAccess, "validating_target", "permissions", "target path is not writable", err)
	}
	return nil
}

// EnsureFolders creates any missing required subfolders and reports which
// were missing and which were created. A required name that exists as a
// non-directory means the target is corrupt and is never repaired here.
func EnsureFolders(dir string) (missing, created []string, err error) {
	for _, folder := range RequiredFolders {
		path := filepath.Join(dir, folder)
		info, statErr := os.Stat(path)
		if statErr == nil {
			if !info.IsDir() {
				return nil, nil, faults.Wrap(faults.ErrAccess, "ensuring_structure", "inspect",
					fmt.Sprintf("required path exists but is not a directory: %s", path), nil)
			}
			continue
		}
		if !os.IsNotExist(statErr) {
			return nil, nil, faults.Wrap(faults.ErrAccess, "ensuring_structure", "inspect", "cannot inspect required folder", statErr)
		}
		missing = append(missing, folder)
		if mkErr := os.MkdirAll(path, 0o755); mkErr != nil {
			return nil, nil, faults.Wrap(faults.ErrAccess, "ensuring_structure", "create",
				fmt.Sprintf("cannot create required folder %s", folder), mkErr)
		}
		created = append(created, folder)
	}
	return missing, created, nil
}

// Existing lists the required folders currently present, sorted by the
// canonical folder order.
func Existing(dir string) []string {
	var present []string
	for _, folder := range RequiredFolders {
		if info, err := os.Stat(filepath.Join(dir, folder)); err == nil && info.IsDir() {
			present = append(present, folder)
		}
	}
	return present
}

// FreeBytes reports the free space of the filesystem holding dir, as seen
// by an unprivileged process.
func FreeBytes(dir string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", dir, err)
	}
	return st.Bavail * uint64(st.Bsize), nil
}
