package compare

import (
	"context"

	"github.com/o2r-project/erc-checker/pkg/models"
)

// Method names reported in ImageCompareStats.Method
const (
	MethodDigest = "digest"
	MethodPixel  = "pixel"
)

// ImageInput is the loaded content of one embedded image
type ImageInput struct {
	// Identity is the display name of the image (see IdentityOf)
	Identity string
	Data     []byte
}

// ImageCompareResult holds the outcome of comparing two images
type ImageCompareResult struct {
	Stats models.ImageCompareStats

	// Artifact is a data URI visualising the comparison, empty when none was produced
	Artifact string
}

// Differs reports whether any difference was found
func (r *ImageCompareResult) Differs() bool {
	return r.Stats.Differences != 0
}

// TextCompareResult holds the outcome of comparing the visible text of two documents
type TextCompareResult struct {
	// Differences is the number of changed word groups
	Differences int

	// Fragment is the annotated HTML diff of the text, with one
	// <!--erc-image:N--> marker per embedded image
	Fragment string
}

// ImageComparer compares two matched images.
// Implementations must be safe for concurrent use.
type ImageComparer interface {
	// Compare compares the original image with its reproduction
	Compare(ctx context.Context, original, reproduced ImageInput) (*ImageCompareResult, error)

	// Name returns the name of the comparison method
	Name() string
}

// TextComparer compares the visible text of two HTML documents.
// Implementations must be safe for concurrent use.
type TextComparer interface {
	// Compare compares the original document with its reproduction
	Compare(ctx context.Context, original, reproduced []byte) (*TextCompareResult, error)

	// Name returns the name of the comparison method
	Name() string
}
