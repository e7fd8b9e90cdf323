package importer_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"opldock/internal/faults"
	"opldock/internal/gameid"
	"opldock/internal/importer"
	"opldock/internal/logging"
	"opldock/internal/manifest"
	"opldock/internal/testsupport"
)

func byteSource(name, content string) importer.Source {
	return importer.Source{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

func newPipeline(t *testing.T) (*importer.Pipeline, string) {
	t.Helper()
	staging := t.TempDir()
	store := manifest.NewStore()
	p := importer.New(staging, store, gameid.NewResolver(store, nil), logging.NewNop())
	return p, staging
}

func TestRunImportsToCDFolder(t *testing.T) {
	dir := testsupport.NewTarget(t)
	p, staging := newPipeline(t)
	restore := p.SetFreeBytesForTests(func(string) (uint64, error) { return 1 << 40, nil })
	defer restore()

	res := p.Run(importer.Request{
		TargetPath: dir,
		Sources:    []importer.Source{byteSource("SLUS_209.46.iso", "game data")},
	})
	if res.State != importer.StateCompleted {
		t.Fatalf("state = %s, err = %v", res.State, res.Err)
	}
	if len(res.Imported) != 1 {
		t.Fatalf("imported = %+v", res.Imported)
	}
	got := res.Imported[0]
	if got.GameID != "SLUS_209.46" || got.IDSource != gameid.SourceFilename {
		t.Errorf("resolution = %s via %s", got.GameID, got.IDSource)
	}
	if got.TargetFolder != "CD" {
		t.Errorf("small image should land in CD, got %s", got.TargetFolder)
	}
	if got.File != "SLUS_209.46_SLUS_209.46.iso" {
		t.Errorf("destination name = %s", got.File)
	}
	if _, err := os.Stat(filepath.Join(dir, "CD", got.File)); err != nil {
		t.Errorf("destination not written: %v", err)
	}

	raw, err := os.ReadFile(manifest.Path(dir))
	if err != nil {
		t.Fatalf("manifest missing: %v", err)
	}
	if !strings.Contains(string(raw), "SLUS_209.46") {
		t.Error("manifest does not record the imported game")
	}

	entries, err := os.ReadDir(staging)
	if err != nil {
		t.Fatalf("read staging root: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("staging directory left behind: %v", entries)
	}
}

func TestRunGeneratesIDWhenNothingMatches(t *testing.T) {
	dir := testsupport.NewTarget(t)
	p, _ := newPipeline(t)
	restore := p.SetFreeBytesForTests(func(string) (uint64, error) { return 1 << 40, nil })
	defer restore()

	res := p.Run(importer.Request{
		TargetPath: dir,
		Sources:    []importer.Source{byteSource("Cool Game.iso", "data")},
	})
	if res.State != importer.StateCompleted {
		t.Fatalf("state = %s, err = %v", res.State, res.Err)
	}
	got := res.Imported[0]
	if got.IDSource != gameid.SourceGenerated {
		t.Errorf("id_source = %s", got.IDSource)
	}
	if want := gameid.Generate("Cool Game"); got.GameID != want {
		t.Errorf("generated id = %s, want %s", got.GameID, want)
	}
}

func TestRunRejectsEmptyBatch(t *testing.T) {
	dir := testsupport.NewTarget(t)
	p, _ := newPipeline(t)

	res := p.Run(importer.Request{TargetPath: dir})
	if res.State != importer.StateFailed {
		t.Fatalf("state = %s", res.State)
	}
	if !errors.Is(res.Err, faults.ErrValidation) {
		t.Fatalf("err = %v", res.Err)
	}
	if res.Message != "no files uploaded" {
		t.Errorf("message = %q", res.Message)
	}
}

func TestRunRejectsNonISO(t *testing.T) {
	dir := testsupport.NewTarget(t)
	p, _ := newPipeline(t)

	res := p.Run(importer.Request{
		TargetPath: dir,
		Sources:    []importer.Source{byteSource("notes.txt", "hello")},
	})
	if res.State != importer.StateFailed || !errors.Is(res.Err, faults.ErrValidation) {
		t.Fatalf("state = %s, err = %v", res.State, res.Err)
	}
}

func TestRunRejectsEmptyFiles(t *testing.T) {
	dir := testsupport.NewTarget(t)
	p, _ := newPipeline(t)

	res := p.Run(importer.Request{
		TargetPath: dir,
		Sources:    []importer.Source{byteSource("SLUS_209.46.iso", "")},
	})
	if res.State != importer.StateFailed || !errors.Is(res.Err, faults.ErrValidation) {
		t.Fatalf("state = %s, err = %v", res.State, res.Err)
	}
	if res.Message != "uploaded files are empty" {
		t.Errorf("message = %q", res.Message)
	}
}

func TestRunRejectsMissingTarget(t *testing.T) {
	p, _ := newPipeline(t)

	res := p.Run(importer.Request{
		TargetPath: filepath.Join(t.TempDir(), "nowhere"),
		Sources:    []importer.Source{byteSource("SLUS_209.46.iso", "data")},
	})
	if res.State != importer.StateFailed || !errors.Is(res.Err, faults.ErrAccess) {
		t.Fatalf("state = %s, err = %v", res.State, res.Err)
	}
}

func TestRunReportsSpaceDeficit(t *testing.T) {
	dir := testsupport.NewTarget(t)
	p, _ := newPipeline(t)
	restore := p.SetFreeBytesForTests(func(string) (uint64, error) { return 1024, nil })
	defer restore()

	res := p.Run(importer.Request{
		TargetPath: dir,
		Sources:    []importer.Source{byteSource("SLUS_209.46.iso", "data")},
	})
	if res.State != importer.StateFailed || !errors.Is(res.Err, faults.ErrCapacity) {
		t.Fatalf("state = %s, err = %v", res.State, res.Err)
	}
	for _, key := range []string{"required", "free", "deficit", "buffer"} {
		if _, ok := res.Details[key]; !ok {
			t.Errorf("details missing %q: %v", key, res.Details)
		}
	}
}

func TestRunStopsOnCollision(t *testing.T) {
	dir := testsupport.NewTarget(t)
	p, _ := newPipeline(t)
	restore := p.SetFreeBytesForTests(func(string) (uint64, error) { return 1 << 40, nil })
	defer restore()

	first := p.Run(importer.Request{
		TargetPath: dir,
		Sources:    []importer.Source{byteSource("SLUS_209.46.iso", "original")},
	})
	if first.State != importer.StateCompleted {
		t.Fatalf("seed import failed: %v", first.Err)
	}

	res := p.Run(importer.Request{
		TargetPath: dir,
		Sources: []importer.Source{
			byteSource("SCUS_971.13.iso", "unrelated"),
			byteSource("SLUS_209.46.iso", "replacement"),
		},
	})
	if res.State != importer.StateFailed || !errors.Is(res.Err, faults.ErrCollision) {
		t.Fatalf("state = %s, err = %v", res.State, res.Err)
	}
	if len(res.Imported) != 1 || res.Imported[0].GameID != "SCUS_971.13" {
		t.Errorf("files before the collision should stay imported: %+v", res.Imported)
	}
	if res.Details["imported_count"] != 1 {
		t.Errorf("details = %v", res.Details)
	}
}

func TestRunOverwriteReplacesExisting(t *testing.T) {
	dir := testsupport.NewTarget(t)
	p, _ := newPipeline(t)
	restore := p.SetFreeBytesForTests(func(string) (uint64, error) { return 1 << 40, nil })
	defer restore()

	seed := p.Run(importer.Request{
		TargetPath: dir,
		Sources:    []importer.Source{byteSource("SLUS_209.46.iso", "original")},
	})
	if seed.State != importer.StateCompleted {
		t.Fatalf("seed import failed: %v", seed.Err)
	}

	res := p.Run(importer.Request{
		TargetPath: dir,
		Overwrite:  true,
		Sources:    []importer.Source{byteSource("SLUS_209.46.iso", "replacement content")},
	})
	if res.State != importer.StateCompleted {
		t.Fatalf("state = %s, err = %v", res.State, res.Err)
	}
	content, err := os.ReadFile(filepath.Join(dir, "CD", "SLUS_209.46_SLUS_209.46.iso"))
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if string(content) != "replacement content" {
		t.Errorf("destination not replaced: %q", content)
	}
}

func TestRunTreatsProbeFailureDuringCopyAsDeviceGone(t *testing.T) {
	dir := testsupport.NewTarget(t)
	p, _ := newPipeline(t)
	calls := 0
	restore := p.SetFreeBytesForTests(func(string) (uint64, error) {
		calls++
		if calls == 1 {
			return 1 << 40, nil
		}
		return 0, errors.New("transport endpoint is not connected")
	})
	defer restore()

	res := p.Run(importer.Request{
		TargetPath: dir,
		Sources:    []importer.Source{byteSource("SLUS_209.46.iso", "data")},
	})
	if res.State != importer.StateFailed || !errors.Is(res.Err, faults.ErrDeviceGone) {
		t.Fatalf("state = %s, err = %v", res.State, res.Err)
	}
}
