package library_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"opldock/internal/faults"
	"opldock/internal/library"
	"opldock/internal/logging"
	"opldock/internal/manifest"
	"opldock/internal/testsupport"
)

func writeGame(t *testing.T, dir, folder, name string, size int64) {
	t.Helper()
	testsupport.WriteFile(t, filepath.Join(dir, folder, name), size)
}

func journal(t *testing.T, store *manifest.Store, dir string, fields manifest.UpsertFields) {
	t.Helper()
	if err := store.Upsert(dir, fields); err != nil {
		t.Fatalf("upsert: %v", err)
	}
}

func TestScanJoinsManifest(t *testing.T) {
	dir := testsupport.NewTarget(t)
	store := manifest.NewStore()
	svc := library.NewService(store, logging.NewNop())

	writeGame(t, dir, "CD", "SLUS_209.46_Shadow of the Colossus.iso", 64)
	writeGame(t, dir, "DVD", "Unknown Game.iso", 32)
	writeGame(t, dir, "CD", "notes.txt", 8)
	journal(t, store, dir, manifest.UpsertFields{
		SourceFilename:      "Shadow of the Colossus.iso",
		GameName:            "Shadow of the Colossus",
		GameID:              "SLUS_209.46",
		IDSource:            "filename",
		TargetFolder:        "CD",
		DestinationFilename: "SLUS_209.46_Shadow of the Colossus.iso",
	})

	games, err := svc.Scan(dir)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("games = %+v", games)
	}

	// Sorted by display name: Shadow before Unknown.
	journaled := games[0]
	if !journaled.InManifest {
		t.Fatalf("journaled game not joined: %+v", journaled)
	}
	if journaled.GameID != "SLUS_209.46" || journaled.Name != "Shadow of the Colossus" {
		t.Errorf("identity = %s %q", journaled.GameID, journaled.Name)
	}
	if journaled.DisplayName != "Shadow Of The Colossus" {
		t.Errorf("display name = %q", journaled.DisplayName)
	}
	if journaled.Folder != "CD" || journaled.SizeBytes != 64 {
		t.Errorf("location = %s %d", journaled.Folder, journaled.SizeBytes)
	}

	orphan := games[1]
	if orphan.InManifest {
		t.Fatalf("orphan flagged as journaled: %+v", orphan)
	}
	if orphan.GameID != "" || orphan.IDSource != "" {
		t.Errorf("orphan identity = %s via %s", orphan.GameID, orphan.IDSource)
	}
	if orphan.DisplayName != "Unknown Game" {
		t.Errorf("orphan display name = %q", orphan.DisplayName)
	}
}

func TestScanRecoversIDFromFilename(t *testing.T) {
	dir := testsupport.NewTarget(t)
	svc := library.NewService(manifest.NewStore(), logging.NewNop())

	writeGame(t, dir, "CD", "SCUS_971.13.iso", 16)

	games, err := svc.Scan(dir)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("games = %+v", games)
	}
	if games[0].GameID != "SCUS_971.13" || games[0].IDSource != "filename" {
		t.Errorf("identity = %s via %s", games[0].GameID, games[0].IDSource)
	}
}

func TestScanRejectsMissingTarget(t *testing.T) {
	svc := library.NewService(manifest.NewStore(), logging.NewNop())
	if _, err := svc.Scan(filepath.Join(t.TempDir(), "nope")); !errors.Is(err, faults.ErrAccess) {
		t.Fatalf("err = %v", err)
	}
}

func TestDeleteRemovesFilesArtAndJournal(t *testing.T) {
	dir := testsupport.NewTarget(t)
	store := manifest.NewStore()
	svc := library.NewService(store, logging.NewNop())

	writeGame(t, dir, "CD", "SLUS_209.46_Game.iso", 16)
	writeGame(t, dir, "DVD", "SLUS_209.46_Game Disc2.iso", 16)
	writeGame(t, dir, "CD", "SCUS_971.13.iso", 16)
	testsupport.WriteFile(t, filepath.Join(dir, "ART", "SLUS_209.46_COV.jpg"), 8)
	journal(t, store, dir, manifest.UpsertFields{
		SourceFilename:      "Game.iso",
		GameName:            "Game",
		GameID:              "SLUS_209.46",
		IDSource:            "filename",
		TargetFolder:        "CD",
		DestinationFilename: "SLUS_209.46_Game.iso",
	})

	result, err := svc.Delete(dir, "slus_209.46", "")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(result.RemovedFiles) != 2 {
		t.Errorf("removed files = %v", result.RemovedFiles)
	}
	if len(result.RemovedArt) != 1 {
		t.Errorf("removed art = %v", result.RemovedArt)
	}
	if result.ManifestEntries != 1 {
		t.Errorf("manifest entries = %d", result.ManifestEntries)
	}

	if _, err := os.Stat(filepath.Join(dir, "CD", "SCUS_971.13.iso")); err != nil {
		t.Errorf("unrelated game removed: %v", err)
	}
}

func TestDeleteScopedToOneFile(t *testing.T) {
	dir := testsupport.NewTarget(t)
	svc := library.NewService(manifest.NewStore(), logging.NewNop())

	writeGame(t, dir, "CD", "SLUS_209.46_Disc1.iso", 16)
	writeGame(t, dir, "CD", "SLUS_209.46_Disc2.iso", 16)

	result, err := svc.Delete(dir, "SLUS_209.46", "SLUS_209.46_Disc1.iso")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(result.RemovedFiles) != 1 {
		t.Fatalf("removed = %v", result.RemovedFiles)
	}
	if _, err := os.Stat(filepath.Join(dir, "CD", "SLUS_209.46_Disc2.iso")); err != nil {
		t.Errorf("second disc removed: %v", err)
	}
}

func TestDeleteUnknownGame(t *testing.T) {
	dir := testsupport.NewTarget(t)
	svc := library.NewService(manifest.NewStore(), logging.NewNop())

	if _, err := svc.Delete(dir, "SLUS_000.00", ""); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestDeleteRejectsMalformedID(t *testing.T) {
	dir := testsupport.NewTarget(t)
	svc := library.NewService(manifest.NewStore(), logging.NewNop())

	if _, err := svc.Delete(dir, "not-an-id", ""); !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
}
