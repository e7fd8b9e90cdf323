package artwork

import "strings"

// Types lists the OPL art slots, in display order.
var Types = []string{"COV", "COV2", "BG", "SCR", "SCR2", "LGO", "ICO", "LAB"}

// extHint is the fallback extension per art slot when neither the content
// type nor the URL reveals one.
var extHint = map[string]string{
	"COV":  ".jpg",
	"COV2": ".jpg",
	"BG":   ".jpg",
	"SCR":  ".jpg",
	"SCR2": ".jpg",
	"LGO":  ".png",
	"ICO":  ".png",
	"LAB":  ".jpg",
}

// targetSize bounds each slot to the dimensions OPL renders.
var targetSize = map[string][2]int{
	"COV":  {256, 364},
	"COV2": {256, 364},
	"BG":   {512, 288},
	"SCR":  {320, 180},
	"SCR2": {320, 180},
	"LGO":  {256, 128},
	"ICO":  {128, 128},
	"LAB":  {256, 64},
}

// targetBytes is the per-slot size budget the JPEG quality ladder aims for.
var targetBytes = map[string]int{
	"COV":  120 * 1024,
	"COV2": 120 * 1024,
	"BG":   180 * 1024,
	"SCR":  110 * 1024,
	"SCR2": 110 * 1024,
	"LGO":  90 * 1024,
	"ICO":  60 * 1024,
	"LAB":  50 * 1024,
}

// AllowedUploadExts are the extensions accepted for manual uploads.
var AllowedUploadExts = []string{".jpg", ".jpeg", ".png"}

// NormalizeType uppercases an art slot name and reports whether it is one
// of the known slots.
func NormalizeType(artType string) (string, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(artType))
	_, ok := extHint[normalized]
	return normalized, ok
}

// Candidate is one previewable search hit. CandidateID is a 1-based index
// the UI uses for selection.
type Candidate struct {
	CandidateID  int    `json:"candidate_id"`
	Title        string `json:"title"`
	ImageURL     string `json:"image_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	SourcePage   string `json:"source_page"`
}

// Selection pairs a chosen candidate image with the art slot it should
// fill.
type Selection struct {
	ArtType  string `json:"art_type"`
	ImageURL string `json:"image_url"`
}

// SavedArt records a single written art file.
type SavedArt struct {
	ArtType string `json:"art_type"`
	Path    string `json:"path"`
}
