package gameid

import (
	"strings"

	"opldock/internal/manifest"
)

// Source tags describing which strategy produced an identifier.
const (
	SourceFilename  = "filename"
	SourceDisc      = "iso"
	SourceManifest  = "manifest"
	SourceGenerated = "generated"
)

// DiscReader extracts an identifier from a staged disc image. It reports
// false for absent or unreadable metadata and must never fail harder than
// that.
type DiscReader interface {
	ExtractGameID(path string) (string, bool)
}

// Request carries the inputs available to the strategy chain. StagedPath is
// only set by the import pipeline, which has the uploaded image on local
// disk; TargetDir enables the manifest lookup tier.
type Request struct {
	TargetDir      string
	GameName       string
	SourceFilename string
	StagedPath     string
}

// Resolution is the outcome of a resolve call.
type Resolution struct {
	ID        string
	Source    string
	Generated bool
}

// Resolver walks the fixed strategy chain. The manifest store is required;
// the disc reader may be nil for callers that never stage images.
type Resolver struct {
	Manifests *manifest.Store
	Disc      DiscReader
}

// NewResolver wires a resolver over the given collaborators.
func NewResolver(manifests *manifest.Store, disc DiscReader) *Resolver {
	return &Resolver{Manifests: manifests, Disc: disc}
}

type strategy func(Request) (Resolution, bool)

// Resolve runs the strategies in priority order and returns the first hit.
// The generation fallback always produces a result, so Resolve never fails.
func (r *Resolver) Resolve(req Request) Resolution {
	chain := []strategy{
		r.fromFilename,
		r.fromDisc,
		r.fromManifest,
		r.generate,
	}
	for _, attempt := range chain {
		if res, ok := attempt(req); ok {
			return res
		}
	}
	// Unreachable; generate always succeeds.
	return Resolution{ID: Generate("AUTO_GAME"), Source: SourceGenerated, Generated: true}
}

func (r *Resolver) fromFilename(req Request) (Resolution, bool) {
	id, ok := FromFilename(req.SourceFilename)
	if !ok {
		return Resolution{}, false
	}
	return Resolution{ID: id, Source: SourceFilename}, true
}

func (r *Resolver) fromDisc(req Request) (Resolution, bool) {
	if r.Disc == nil || strings.TrimSpace(req.StagedPath) == "" {
		return Resolution{}, false
	}
	id, ok := r.Disc.ExtractGameID(req.StagedPath)
	if !ok {
		return Resolution{}, false
	}
	return Resolution{ID: id, Source: SourceDisc}, true
}

func (r *Resolver) fromManifest(req Request) (Resolution, bool) {
	if r.Manifests == nil || strings.TrimSpace(req.TargetDir) == "" {
		return Resolution{}, false
	}
	id, ok := r.Manifests.Lookup(req.TargetDir, req.SourceFilename, req.GameName)
	if !ok {
		return Resolution{}, false
	}
	return Resolution{ID: id, Source: SourceManifest}, true
}

func (r *Resolver) generate(req Request) (Resolution, bool) {
	seed := strings.TrimSpace(req.GameName)
	if seed == "" {
		seed = strings.TrimSpace(req.SourceFilename)
	}
	if seed == "" {
		seed = "AUTO_GAME"
	}
	return Resolution{ID: Generate(seed), Source: SourceGenerated, Generated: true}, true
}
