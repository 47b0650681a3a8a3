package compare

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // Register GIF decoder.
	_ "image/jpeg" // Register JPEG decoder.
	"image/png"
	"net/http"

	"github.com/o2r-project/erc-checker/pkg/models"
)

// MaxPixelThreshold is the largest meaningful threshold: four channels of 255
const MaxPixelThreshold = 4 * 255

// ImageComparator compares images pixel by pixel.
// A pixel counts as changed when its summed per-channel delta exceeds the threshold.
type ImageComparator struct {
	threshold  int
	embedEqual bool
}

// ImageOption configures an ImageComparator
type ImageOption func(*ImageComparator)

// WithThreshold sets the tolerated summed RGBA delta per pixel (0-1020, 8-bit scale)
func WithThreshold(threshold int) ImageOption {
	return func(c *ImageComparator) {
		if threshold < 0 {
			threshold = 0
		}
		if threshold > MaxPixelThreshold {
			threshold = MaxPixelThreshold
		}
		c.threshold = threshold
	}
}

// WithEqualArtifacts makes equal images carry the original image as artifact,
// so a rendered diff document is self-contained
func WithEqualArtifacts(enabled bool) ImageOption {
	return func(c *ImageComparator) {
		c.embedEqual = enabled
	}
}

// NewImageComparator creates a pixel comparator
func NewImageComparator(opts ...ImageOption) *ImageComparator {
	c := &ImageComparator{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the comparator name
func (c *ImageComparator) Name() string {
	return MethodPixel
}

// Compare compares two images.
// Byte-identical images short-circuit on their digest; images in a format
// without a registered decoder are compared by digest only.
func (c *ImageComparator) Compare(ctx context.Context, original, reproduced ImageInput) (*ImageCompareResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if Digest(original.Data) == Digest(reproduced.Data) {
		res := digestResult(true)
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(original.Data)); err == nil {
			res.Stats.PixelsTotal = cfg.Width * cfg.Height
		}
		if c.embedEqual {
			res.Artifact = dataURI(original.Data)
		}
		return res, nil
	}

	origImg, _, origErr := image.Decode(bytes.NewReader(original.Data))
	reprImg, _, reprErr := image.Decode(bytes.NewReader(reproduced.Data))
	if errors.Is(origErr, image.ErrFormat) || errors.Is(reprErr, image.ErrFormat) {
		// e.g. SVG: no pixels to compare
		res := digestResult(false)
		res.Artifact = dataURI(reproduced.Data)
		return res, nil
	}
	if origErr != nil {
		return nil, fmt.Errorf("failed to decode original image %s: %w", original.Identity, origErr)
	}
	if reprErr != nil {
		return nil, fmt.Errorf("failed to decode reproduced image %s: %w", reproduced.Identity, reprErr)
	}

	changed, count, dimMatch := changedPixels(origImg, reprImg, c.threshold)

	total := len(changed) * widthOf(changed)
	pct := 0.0
	if total > 0 {
		pct = float64(count) * 100 / float64(total)
	}

	res := &ImageCompareResult{
		Stats: models.ImageCompareStats{
			Differences:     count,
			PixelsTotal:     total,
			DiffPercentage:  pct,
			DimensionsMatch: dimMatch,
			Method:          MethodPixel,
		},
	}

	switch {
	case count > 0:
		artifact, err := diffArtifact(origImg, changed)
		if err != nil {
			return nil, err
		}
		res.Artifact = artifact
	case c.embedEqual:
		res.Artifact = dataURI(original.Data)
	}

	return res, nil
}

// changedPixels builds the changed grid over the union of both image areas.
// Pixels outside the intersection always count as changed.
func changedPixels(baseline, current image.Image, threshold int) ([][]bool, int, bool) {
	bBounds := baseline.Bounds()
	cBounds := current.Bounds()
	bW, bH := bBounds.Dx(), bBounds.Dy()
	cW, cH := cBounds.Dx(), cBounds.Dy()

	dimMatch := bW == cW && bH == cH

	intW := min(bW, cW)
	intH := min(bH, cH)
	maxW := max(bW, cW)
	maxH := max(bH, cH)

	changed := make([][]bool, maxH)
	for y := range changed {
		changed[y] = make([]bool, maxW)
	}

	count := 0
	limit := uint32(threshold) * 257 // RGBA() is 16-bit, threshold is 8-bit

	for y := 0; y < intH; y++ {
		for x := 0; x < intW; x++ {
			r1, g1, b1, a1 := baseline.At(bBounds.Min.X+x, bBounds.Min.Y+y).RGBA()
			r2, g2, b2, a2 := current.At(cBounds.Min.X+x, cBounds.Min.Y+y).RGBA()

			delta := absDiff16(r1, r2) + absDiff16(g1, g2) + absDiff16(b1, b2) + absDiff16(a1, a2)
			if delta > limit {
				changed[y][x] = true
				count++
			}
		}
	}

	if !dimMatch {
		for y := 0; y < maxH; y++ {
			for x := 0; x < maxW; x++ {
				if x >= intW || y >= intH {
					changed[y][x] = true
					count++
				}
			}
		}
	}

	return changed, count, dimMatch
}

// diffArtifact renders the changed grid as a PNG data URI:
// changed pixels magenta, unchanged pixels the dimmed baseline
func diffArtifact(baseline image.Image, changed [][]bool) (string, error) {
	bBounds := baseline.Bounds()
	h := len(changed)
	w := widthOf(changed)

	diff := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if changed[y][x] {
				diff.Set(x, y, color.RGBA{255, 0, 255, 255})
				continue
			}
			bx := bBounds.Min.X + x
			by := bBounds.Min.Y + y
			if bx < bBounds.Max.X && by < bBounds.Max.Y {
				r, g, b, _ := baseline.At(bx, by).RGBA()
				diff.Set(x, y, color.RGBA{
					uint8(r >> 8 * 77 / 255),
					uint8(g >> 8 * 77 / 255),
					uint8(b >> 8 * 77 / 255),
					255,
				})
			} else {
				diff.Set(x, y, color.RGBA{20, 20, 20, 255})
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, diff); err != nil {
		return "", fmt.Errorf("failed to encode diff image: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// dataURI embeds raw image bytes, sniffing the media type
func dataURI(data []byte) string {
	mediaType := http.DetectContentType(data)
	if mediaType == "text/xml; charset=utf-8" || mediaType == "text/plain; charset=utf-8" {
		if bytes.Contains(data, []byte("<svg")) {
			mediaType = "image/svg+xml"
		}
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func widthOf(grid [][]bool) int {
	if len(grid) == 0 {
		return 0
	}
	return len(grid[0])
}

func absDiff16(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
