package gameid

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Pattern matches the canonical PS2 title identifier, e.g. SLUS_209.46.
var Pattern = regexp.MustCompile(`^[A-Z]{4}_[0-9]{3}\.[0-9]{2}$`)

// idAnywhere finds an identifier embedded in arbitrary upper-cased text.
var idAnywhere = regexp.MustCompile(`[A-Z]{4}_[0-9]{3}\.[0-9]{2}`)

// idPrefix matches an identifier at the start of a filename followed by a
// separator, so "SLUS_209.46_Game.iso" yields SLUS_209.46 while
// "SLUS_2094.6 Game.iso" style near-misses do not.
var idPrefix = regexp.MustCompile(`^([A-Z]{4}_[0-9]{3}\.[0-9]{2})[._\-\s]`)

// leadingID strips an identifier-like prefix plus trailing separators from a
// filename stem when deriving a display name.
var leadingID = regexp.MustCompile(`(?i)^[A-Z]{4}_[0-9]{3}\.[0-9]{2}[_\-\s.]*`)

var separators = regexp.MustCompile(`[_\-.]+`)

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)

// Normalize uppercases a supplied identifier and rejects anything that does
// not match the canonical pattern exactly.
func Normalize(id string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(id))
	if !Pattern.MatchString(normalized) {
		return "", fmt.Errorf("game id %q must match pattern like SLUS_209.46", id)
	}
	return normalized, nil
}

// Generate builds a deterministic identifier from a seed string. The prefix
// is the first four alphanumeric characters of the seed (padded with "AUTO"
// when shorter); the numeric suffix comes from the first five hex digits of
// the seed's SHA-1 digest taken modulo 100000.
func Generate(seed string) string {
	cleaned := strings.ToUpper(nonAlnum.ReplaceAllString(seed, ""))
	if len(cleaned) < 4 {
		cleaned = (cleaned + "AUTO")[:4]
	}
	prefix := cleaned[:4]

	digest := sha1.Sum([]byte(seed))
	number64, _ := strconv.ParseUint(hex.EncodeToString(digest[:])[:5], 16, 64)
	number := number64 % 100000
	return fmt.Sprintf("%s_%03d.%02d", prefix, number/100, number%100)
}

// FromFilename extracts an identifier embedded at the start of a filename.
func FromFilename(sourceFilename string) (string, bool) {
	name := strings.ToUpper(filepath.Base(strings.TrimSpace(sourceFilename)))
	if name == "" || name == "." {
		return "", false
	}
	match := idPrefix.FindStringSubmatch(name)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// FromText returns the first identifier found anywhere in text, matching
// case-insensitively.
func FromText(text string) (string, bool) {
	found := idAnywhere.FindString(strings.ToUpper(text))
	if found == "" {
		return "", false
	}
	return found, true
}

// DeriveName resolves a human game name. An explicit name wins; otherwise
// the source filename stem is stripped of any leading identifier prefix and
// its separators collapsed to single spaces.
func DeriveName(gameName, sourceFilename string) (string, error) {
	if trimmed := strings.TrimSpace(gameName); trimmed != "" {
		return trimmed, nil
	}
	source := strings.TrimSpace(sourceFilename)
	if source == "" {
		return "", fmt.Errorf("game name or source filename is required")
	}

	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = leadingID.ReplaceAllString(stem, "")
	stem = strings.TrimSpace(separators.ReplaceAllString(stem, " "))
	if stem == "" {
		return "", fmt.Errorf("could not derive game name from %q", sourceFilename)
	}
	return stem, nil
}
