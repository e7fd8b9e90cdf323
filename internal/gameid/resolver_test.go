package gameid_test

import (
	"testing"

	"opldock/internal/gameid"
	"opldock/internal/manifest"
	"opldock/internal/testsupport"
)

type fakeDisc struct {
	id string
	ok bool
}

func (f fakeDisc) ExtractGameID(string) (string, bool) { return f.id, f.ok }

func TestResolvePrefersFilename(t *testing.T) {
	resolver := gameid.NewResolver(manifest.NewStore(), fakeDisc{id: "SCUS_971.24", ok: true})

	res := resolver.Resolve(gameid.Request{
		SourceFilename: "SLUS_209.46_Shadow.iso",
		StagedPath:     "/tmp/staged.iso",
	})
	if res.ID != "SLUS_209.46" || res.Source != gameid.SourceFilename {
		t.Fatalf("got (%s, %s), want filename strategy to win", res.ID, res.Source)
	}
	if res.Generated {
		t.Fatal("filename hit must not be marked generated")
	}
}

func TestResolveFallsBackToDisc(t *testing.T) {
	resolver := gameid.NewResolver(manifest.NewStore(), fakeDisc{id: "SCUS_971.24", ok: true})

	res := resolver.Resolve(gameid.Request{
		SourceFilename: "Shadow of the Colossus.iso",
		StagedPath:     "/tmp/staged.iso",
	})
	if res.ID != "SCUS_971.24" || res.Source != gameid.SourceDisc {
		t.Fatalf("got (%s, %s), want disc strategy", res.ID, res.Source)
	}
}

func TestResolveSkipsDiscWithoutStagedPath(t *testing.T) {
	resolver := gameid.NewResolver(manifest.NewStore(), fakeDisc{id: "SCUS_971.24", ok: true})

	res := resolver.Resolve(gameid.Request{
		SourceFilename: "Shadow of the Colossus.iso",
	})
	if res.Source == gameid.SourceDisc {
		t.Fatal("disc strategy must not run without a staged image")
	}
}

func TestResolveConsultsManifest(t *testing.T) {
	dir := testsupport.NewTarget(t)
	store := manifest.NewStore()
	if err := store.Upsert(dir, manifest.UpsertFields{
		SourceFilename:      "Shadow of the Colossus.iso",
		GameName:            "Shadow of the Colossus",
		GameID:              "SCUS_974.72",
		IDSource:            gameid.SourceDisc,
		TargetFolder:        "DVD",
		DestinationFilename: "SCUS_974.72_Shadow of the Colossus.iso",
	}); err != nil {
		t.Fatalf("seed manifest: %v", err)
	}

	resolver := gameid.NewResolver(store, nil)
	res := resolver.Resolve(gameid.Request{
		TargetDir:      dir,
		GameName:       "Shadow of the Colossus",
		SourceFilename: "Shadow of the Colossus.iso",
	})
	if res.ID != "SCUS_974.72" || res.Source != gameid.SourceManifest {
		t.Fatalf("got (%s, %s), want manifest strategy", res.ID, res.Source)
	}
}

func TestResolveGeneratesDeterministically(t *testing.T) {
	resolver := gameid.NewResolver(manifest.NewStore(), nil)

	req := gameid.Request{GameName: "Custom Homebrew Title"}
	first := resolver.Resolve(req)
	second := resolver.Resolve(req)

	if first.Source != gameid.SourceGenerated || !first.Generated {
		t.Fatalf("expected generated fallback, got (%s, %v)", first.Source, first.Generated)
	}
	if first.ID != second.ID {
		t.Fatalf("generation not deterministic: %s vs %s", first.ID, second.ID)
	}
	if first.ID != gameid.Generate("Custom Homebrew Title") {
		t.Fatal("resolver must seed generation with the game name")
	}
}
