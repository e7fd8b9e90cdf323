package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"opldock/internal/config"
	"opldock/internal/target"
)

// NewTarget creates a temp directory laid out like a prepared OPL USB
// target, with every required folder present.
func NewTarget(t testing.TB) string {
	t.Helper()

	dir := t.TempDir()
	for _, folder := range target.RequiredFolders {
		if err := os.Mkdir(filepath.Join(dir, folder), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", folder, err)
		}
	}
	return dir
}

// BareTarget creates an accessible temp directory with no OPL structure.
func BareTarget(t testing.TB) string {
	t.Helper()
	return t.TempDir()
}

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Server.Bind = "127.0.0.1:0"
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}
