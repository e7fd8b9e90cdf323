// Package isofs reads PS2 disc images just far enough to recover the
// canonical game identifier from SYSTEM.CNF. Every failure mode collapses
// to "no identifier": a truncated or non-ISO9660 upload degrades to the
// next resolution strategy instead of failing the import.
package isofs

import (
	"io"
	"os"
	"strings"

	"github.com/kdomanski/iso9660"

	"opldock/internal/gameid"
)

// systemCnfLimit caps how much of SYSTEM.CNF is read. The file is a handful
// of BOOT2/VER lines; anything larger is garbage.
const systemCnfLimit = 64 * 1024

// Reader implements gameid.DiscReader over ISO9660 images.
type Reader struct{}

// NewReader returns a stateless disc reader.
func NewReader() Reader {
	return Reader{}
}

// ExtractGameID opens the image at path and returns the first canonical
// identifier found in SYSTEM.CNF, trying the versioned record first.
func (Reader) ExtractGameID(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	img, err := iso9660.OpenImage(f)
	if err != nil {
		return "", false
	}
	root, err := img.RootDir()
	if err != nil || root == nil {
		return "", false
	}
	children, err := root.GetChildren()
	if err != nil {
		return "", false
	}

	for _, candidate := range []string{"SYSTEM.CNF;1", "SYSTEM.CNF"} {
		for _, child := range children {
			if child.IsDir() || !nameMatches(child.Name(), candidate) {
				continue
			}
			content, err := io.ReadAll(io.LimitReader(child.Reader(), systemCnfLimit))
			if err != nil || len(strings.TrimSpace(string(content))) == 0 {
				continue
			}
			if id, ok := gameid.FromText(string(content)); ok {
				return id, true
			}
		}
	}
	return "", false
}

// nameMatches compares directory record identifiers ignoring case and any
// ";N" version suffix, which image tools emit inconsistently.
func nameMatches(recorded, wanted string) bool {
	return strings.EqualFold(trimVersion(recorded), trimVersion(wanted))
}

func trimVersion(name string) string {
	if idx := strings.IndexByte(name, ';'); idx >= 0 {
		return name[:idx]
	}
	return name
}
