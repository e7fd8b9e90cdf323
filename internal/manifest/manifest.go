package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf16"
)

// FileName is the manifest document name inside the target CFG folder.
const FileName = "game_manifest.json"

// Entry associates one imported source file with its resolved game identity
// and final destination inside the target.
type Entry struct {
	SourceFilename      string `json:"source_filename"`
	SourceKey           string `json:"source_key"`
	GameName            string `json:"game_name"`
	GameNameKey         string `json:"game_name_key"`
	GameID              string `json:"game_id"`
	IDSource            string `json:"id_source"`
	TargetFolder        string `json:"target_folder"`
	DestinationFilename string `json:"destination_filename"`
	DestinationKey      string `json:"destination_key"`
	UpdatedAt           int64  `json:"updated_at"`
}

// Manifest is the top-level document shape.
type Manifest struct {
	Entries []Entry `json:"entries"`
}

// UpsertFields carries everything a successful import copy journals.
type UpsertFields struct {
	SourceFilename      string
	GameName            string
	GameID              string
	IDSource            string
	TargetFolder        string
	DestinationFilename string
}

// Store reads and writes manifests for target directories. The zero value
// uses the wall clock; tests inject Now for stable timestamps.
type Store struct {
	Now func() time.Time
}

// NewStore returns a manifest store backed by the wall clock.
func NewStore() *Store {
	return &Store{Now: time.Now}
}

// Path returns the manifest location for a target directory.
func Path(targetDir string) string {
	return filepath.Join(targetDir, "CFG", FileName)
}

// NormalizeKey lowers a value and strips everything that is not a lowercase
// letter or digit. Lookups survive punctuation and case drift between the
// originally imported filename and later queries for the same title.
func NormalizeKey(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// StemKey normalizes the basename of a path with its extension removed.
func StemKey(name string) string {
	base := filepath.Base(name)
	return NormalizeKey(strings.TrimSuffix(base, filepath.Ext(base)))
}

// Load reads the manifest for targetDir. Any read or parse failure yields an
// empty manifest; the import path must never stall on a damaged journal.
func (s *Store) Load(targetDir string) Manifest {
	raw, err := os.ReadFile(Path(targetDir))
	if err != nil {
		return Manifest{}
	}
	var doc Manifest
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Manifest{}
	}
	return doc
}

// Save writes the manifest document, creating the CFG directory if needed.
// Output is two-space indented with non-ASCII escaped.
func (s *Store) Save(targetDir string, doc Manifest) error {
	if doc.Entries == nil {
		doc.Entries = []Entry{}
	}
	path := Path(targetDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure manifest directory: %w", err)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(path, escapeNonASCII(buf.Bytes()), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Upsert loads the manifest, updates the first entry matching any of the four
// identity keys (normalized source key, raw source filename, normalized
// destination key, raw destination filename), or appends a new entry, then
// saves. Entries are never removed here.
func (s *Store) Upsert(targetDir string, fields UpsertFields) error {
	doc := s.Load(targetDir)

	entry := Entry{
		SourceFilename:      fields.SourceFilename,
		SourceKey:           StemKey(fields.SourceFilename),
		GameName:            fields.GameName,
		GameNameKey:         NormalizeKey(fields.GameName),
		GameID:              fields.GameID,
		IDSource:            fields.IDSource,
		TargetFolder:        fields.TargetFolder,
		DestinationFilename: fields.DestinationFilename,
		DestinationKey:      StemKey(fields.DestinationFilename),
		UpdatedAt:           s.now().Unix(),
	}

	updated := false
	for i := range doc.Entries {
		existing := &doc.Entries[i]
		if existing.SourceKey == entry.SourceKey ||
			existing.SourceFilename == entry.SourceFilename ||
			existing.DestinationKey == entry.DestinationKey ||
			existing.DestinationFilename == entry.DestinationFilename {
			*existing = entry
			updated = true
			break
		}
	}
	if !updated {
		doc.Entries = append(doc.Entries, entry)
	}
	return s.Save(targetDir, doc)
}

// Lookup returns the game ID recorded for a source filename or game name.
// Matching runs in three tiers: normalized source/destination stem keys, then
// raw source/destination filenames, then the normalized game-name key. The
// first entry with a non-empty game ID wins.
func (s *Store) Lookup(targetDir, sourceFilename, gameName string) (string, bool) {
	doc := s.Load(targetDir)

	sourceKey := ""
	if strings.TrimSpace(sourceFilename) != "" {
		sourceKey = StemKey(sourceFilename)
	}
	sourceName := strings.TrimSpace(sourceFilename)
	gameKey := ""
	if strings.TrimSpace(gameName) != "" {
		gameKey = NormalizeKey(gameName)
	}

	if sourceKey != "" {
		for _, entry := range doc.Entries {
			if (entry.SourceKey == sourceKey || entry.DestinationKey == sourceKey) && entry.GameID != "" {
				return entry.GameID, true
			}
		}
	}
	if sourceName != "" {
		for _, entry := range doc.Entries {
			if (entry.SourceFilename == sourceName || entry.DestinationFilename == sourceName) && entry.GameID != "" {
				return entry.GameID, true
			}
		}
	}
	if gameKey != "" {
		for _, entry := range doc.Entries {
			if entry.GameNameKey == gameKey && entry.GameID != "" {
				return entry.GameID, true
			}
		}
	}
	return "", false
}

// Remove deletes every entry matching the game ID (and, when given, the
// destination filename) and reports how many were dropped. Only the explicit
// delete-game operation calls this.
func (s *Store) Remove(targetDir, gameID, destinationFilename string) (int, error) {
	doc := s.Load(targetDir)
	kept := doc.Entries[:0]
	removed := 0
	for _, entry := range doc.Entries {
		match := entry.GameID == gameID
		if match && destinationFilename != "" {
			match = entry.DestinationFilename == destinationFilename
		}
		if match {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	if removed == 0 {
		return 0, nil
	}
	doc.Entries = kept
	if err := s.Save(targetDir, doc); err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// escapeNonASCII rewrites multi-byte runes as \uXXXX escapes so the manifest
// stays ASCII-safe regardless of the uploaded filenames.
func escapeNonASCII(in []byte) []byte {
	var out bytes.Buffer
	for _, r := range string(in) {
		switch {
		case r < 0x80:
			out.WriteRune(r)
		case r > 0xFFFF:
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&out, "\\u%04x\\u%04x", hi, lo)
		default:
			fmt.Fprintf(&out, "\\u%04x", r)
		}
	}
	return out.Bytes()
}
