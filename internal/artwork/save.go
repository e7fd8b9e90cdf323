package artwork

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"opldock/internal/faults"
	"opldock/internal/logging"
)

const (
	downloadTimeout  = 25 * time.Second
	downloadMaxBytes = 20 * 1024 * 1024
)

// SkippedDuplicate marks a selection dropped because its art slot was
// already claimed earlier in the same request.
type SkippedDuplicate struct {
	ArtType  string `json:"art_type"`
	Position int    `json:"position"`
}

// Upload is one manually provided art file.
type Upload struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}

// Saver downloads and writes art files into a target's ART folder.
type Saver struct {
	http      *http.Client
	userAgent string
	logger    *slog.Logger
}

// NewSaver builds a Saver. A nil httpClient gets a download-tuned default.
func NewSaver(httpClient *http.Client, logger *slog.Logger) *Saver {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: downloadTimeout}
	}
	return &Saver{
		http:      httpClient,
		userAgent: defaultUserAgent,
		logger:    logging.NewComponentLogger(logger, "artwork"),
	}
}

// SaveAuto downloads each selected image, optimizes it for its slot, and
// writes it as ART/<gameID>_<TYPE><ext>. Duplicate slots beyond the first
// are skipped, not overwritten. Selections are processed in order and a
// failed download aborts the batch; files already written stay.
func (s *Saver) SaveAuto(ctx context.Context, targetDir, gameID string, selections []Selection) ([]SavedArt, []SkippedDuplicate, error) {
	artDir := filepath.Join(targetDir, "ART")

	var skipped []SkippedDuplicate
	seen := make(map[string]struct{})
	unique := make([]Selection, 0, len(selections))
	for idx, selection := range selections {
		artType, ok := NormalizeType(selection.ArtType)
		if !ok {
			return nil, nil, faults.Wrap(faults.ErrValidation, "saving_art", "check type",
				fmt.Sprintf("invalid art type: %s", artType), nil)
		}
		if _, dup := seen[artType]; dup {
			skipped = append(skipped, SkippedDuplicate{ArtType: artType, Position: idx + 1})
			continue
		}
		seen[artType] = struct{}{}
		unique = append(unique, Selection{ArtType: artType, ImageURL: strings.TrimSpace(selection.ImageURL)})
	}
	if len(unique) == 0 {
		return nil, nil, faults.Wrap(faults.ErrValidation, "saving_art", "check selections",
			"no unique art type selected", nil)
	}

	saved := make([]SavedArt, 0, len(unique))
	for _, selection := range unique {
		content, ext, err := s.Download(ctx, selection.ImageURL, selection.ArtType)
		if err != nil {
			return saved, skipped, err
		}
		optimized, outExt, stats, err := Optimize(content, selection.ArtType, ext)
		if err != nil {
			return saved, skipped, faults.Wrap(faults.ErrValidation, "saving_art", "optimize",
				fmt.Sprintf("cannot optimize image for %s", selection.ArtType), err)
		}
		destination := filepath.Join(artDir, gameID+"_"+selection.ArtType+outExt)
		if err := os.WriteFile(destination, optimized, 0o644); err != nil {
			return saved, skipped, faults.Wrap(faults.ErrAccess, "saving_art", "write",
				fmt.Sprintf("cannot write %s", destination), err)
		}
		saved = append(saved, SavedArt{ArtType: selection.ArtType, Path: destination})
		s.logger.Debug("saved art",
			logging.String("art_type", selection.ArtType),
			logging.String("path", destination),
			logging.Int("original_bytes", stats.OriginalBytes),
			logging.Int("optimized_bytes", stats.OptimizedBytes))
	}
	return saved, skipped, nil
}

// SaveManual writes user-supplied files verbatim as ART/<gameID>_<TYPE><ext>.
// Only .jpg, .jpeg, and .png uploads are accepted; .jpeg is normalized to
// .jpg in the destination name.
func (s *Saver) SaveManual(targetDir, gameID string, uploads map[string]Upload) ([]SavedArt, error) {
	artDir := filepath.Join(targetDir, "ART")

	var saved []SavedArt
	for _, artType := range Types {
		upload, ok := uploads[artType]
		if !ok || upload.Filename == "" {
			continue
		}
		ext := strings.ToLower(filepath.Ext(upload.Filename))
		if !allowedUploadExt(ext) {
			return nil, faults.Wrap(faults.ErrValidation, "saving_art", "check extension",
				fmt.Sprintf("unsupported extension for %s: %s", artType, upload.Filename), nil)
		}
		if ext == ".jpeg" {
			ext = ".jpg"
		}
		destination := filepath.Join(artDir, gameID+"_"+artType+ext)
		if err := copyUpload(upload, destination); err != nil {
			return nil, faults.Wrap(faults.ErrAccess, "saving_art", "write",
				fmt.Sprintf("cannot write %s", destination), err)
		}
		saved = append(saved, SavedArt{ArtType: artType, Path: destination})
	}
	if len(saved) == 0 {
		return nil, faults.Wrap(faults.ErrValidation, "saving_art", "check uploads",
			"no art files provided", nil)
	}
	return saved, nil
}

// Download fetches one candidate image. It refuses non-HTTP URLs, empty
// bodies, payloads over 20 MiB, and anything that is not JPEG or PNG.
func (s *Saver) Download(ctx context.Context, imageURL, artType string) ([]byte, string, error) {
	if !strings.HasPrefix(imageURL, "http://") && !strings.HasPrefix(imageURL, "https://") {
		return nil, "", faults.Wrap(faults.ErrValidation, "saving_art", "check url",
			"image_url must start with http:// or https://", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", faults.Wrap(faults.ErrValidation, "saving_art", "build request", "invalid image url", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, "", faults.Wrap(faults.ErrExternalTool, "saving_art", "download", "image download failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, "", faults.Wrap(faults.ErrExternalTool, "saving_art", "download",
			fmt.Sprintf("image download failed: %s", resp.Status), nil)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, downloadMaxBytes+1))
	if err != nil {
		return nil, "", faults.Wrap(faults.ErrExternalTool, "saving_art", "download", "image download failed", err)
	}
	if len(content) == 0 {
		return nil, "", faults.Wrap(faults.ErrValidation, "saving_art", "download", "downloaded image is empty", nil)
	}
	if len(content) > downloadMaxBytes {
		return nil, "", faults.Wrap(faults.ErrValidation, "saving_art", "download", "downloaded image is too large", nil)
	}

	ext := guessExt(imageURL, resp.Header.Get("Content-Type"), artType)
	if ext != ".jpg" && ext != ".png" {
		return nil, "", faults.Wrap(faults.ErrValidation, "saving_art", "download", "unsupported image extension", nil)
	}
	return content, ext, nil
}

// guessExt picks an extension: content type first, then the URL path, then
// the slot's default.
func guessExt(imageURL, contentType, artType string) string {
	ctype := strings.ToLower(contentType)
	if strings.Contains(ctype, "png") {
		return ".png"
	}
	if strings.Contains(ctype, "jpeg") || strings.Contains(ctype, "jpg") {
		return ".jpg"
	}
	if parsed, err := url.Parse(imageURL); err == nil {
		ext := strings.ToLower(path.Ext(parsed.Path))
		if allowedUploadExt(ext) {
			if ext == ".jpeg" {
				return ".jpg"
			}
			return ext
		}
	}
	normalized, ok := NormalizeType(artType)
	if !ok {
		return ".jpg"
	}
	return extHint[normalized]
}

func allowedUploadExt(ext string) bool {
	for _, allowed := range AllowedUploadExts {
		if ext == allowed {
			return true
		}
	}
	return false
}

func copyUpload(upload Upload, destination string) error {
	reader, err := upload.Open()
	if err != nil {
		return err
	}
	defer reader.Close()
	out, err := os.Create(destination)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, reader); err != nil {
		return err
	}
	return out.Close()
}
