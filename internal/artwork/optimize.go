package artwork

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
)

// jpegQualityLadder is walked top-down until the encoded size fits the
// slot's byte budget; the smallest attempt wins if none fits.
var jpegQualityLadder = []int{72, 66, 60, 54, 48}

// OptimizeResult reports what the optimizer did to one image.
type OptimizeResult struct {
	ArtType        string `json:"art_type"`
	SourceExt      string `json:"source_ext"`
	OutputExt      string `json:"output_ext"`
	OriginalBytes  int    `json:"original_bytes"`
	OptimizedBytes int    `json:"optimized_bytes"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
}

// Optimize resizes content to the slot's bounding box and recompresses it.
// Logo and icon slots keep PNG for transparency; everything else becomes a
// progressive-quality JPEG squeezed under the slot's byte budget.
func Optimize(content []byte, artType, sourceExt string) ([]byte, string, OptimizeResult, error) {
	normalized, ok := NormalizeType(artType)
	if !ok {
		return nil, "", OptimizeResult{}, fmt.Errorf("invalid art type: %s", normalized)
	}

	img, err := imaging.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, "", OptimizeResult{}, fmt.Errorf("decode image: %w", err)
	}

	size := targetSize[normalized]
	img = imaging.Fit(img, size[0], size[1], imaging.Lanczos)

	var optimized []byte
	var outExt string
	if normalized == "LGO" || normalized == "ICO" {
		var buf bytes.Buffer
		encoder := png.Encoder{CompressionLevel: png.BestCompression}
		if err := encoder.Encode(&buf, img); err != nil {
			return nil, "", OptimizeResult{}, fmt.Errorf("encode png: %w", err)
		}
		optimized = buf.Bytes()
		outExt = ".png"
	} else {
		flat := flattenAlpha(img)
		budget := targetBytes[normalized]
		var best []byte
		for _, quality := range jpegQualityLadder {
			var buf bytes.Buffer
			if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
				return nil, "", OptimizeResult{}, fmt.Errorf("encode jpeg: %w", err)
			}
			candidate := buf.Bytes()
			if best == nil || len(candidate) < len(best) {
				best = candidate
			}
			if len(candidate) <= budget {
				break
			}
		}
		optimized = best
		outExt = ".jpg"
	}

	bounds := img.Bounds()
	result := OptimizeResult{
		ArtType:        normalized,
		SourceExt:      strings.ToLower(sourceExt),
		OutputExt:      outExt,
		OriginalBytes:  len(content),
		OptimizedBytes: len(optimized),
		Width:          bounds.Dx(),
		Height:         bounds.Dy(),
	}
	return optimized, outExt, result, nil
}

// flattenAlpha composites the image over black so transparent regions do
// not turn white in JPEG output.
func flattenAlpha(img image.Image) image.Image {
	bounds := img.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.Draw(flat, bounds, img, bounds.Min, draw.Over)
	return flat
}
