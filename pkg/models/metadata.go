package models

// Metadata is the caller-visible result of a resolved check.
// It is the exact object written to metadata.json.
type Metadata struct {
	ComparisonSet      []string      `json:"comparisonSet"`
	Images             []ImageResult `json:"images"`
	NumTextDifferences int           `json:"numTextDifferences"`
	Display            Display       `json:"display"`
	CheckSuccessful    bool          `json:"checkSuccessful"`
	Errors             []*CheckError `json:"errors"`
}

// Display holds the rendered artifacts of a check
type Display struct {
	Diff string `json:"diff"`
}

// ImageResult describes the comparison of one matched image pair
type ImageResult struct {
	// Index is the 1-based position of the image within its document
	Index int `json:"index"`

	// Document is the original-side document the image belongs to
	Document string `json:"document"`

	OriginalImage   string `json:"originalImage"`
	ReproducedImage string `json:"reproducedImage"`

	CompareResults ImageCompareStats `json:"compareResults"`
}

// ImageCompareStats holds the measured difference of an image pair
type ImageCompareStats struct {
	// Differences is the number of changed pixels; 0 means identical
	Differences     int     `json:"differences"`
	PixelsTotal     int     `json:"pixelsTotal"`
	DiffPercentage  float64 `json:"diffPercentage"`
	DimensionsMatch bool    `json:"dimensionsMatch"`
	Method          string  `json:"method"`
}

// Successful evaluates the verdict invariant:
// no errors, no image differences and no text differences
func (m *Metadata) Successful() bool {
	if len(m.Errors) > 0 || m.NumTextDifferences != 0 {
		return false
	}
	for _, img := range m.Images {
		if img.CompareResults.Differences != 0 {
			return false
		}
	}
	return true
}

// Verdict summarises the outcome of a check for exit codes and formatters
type Verdict string

const (
	// VerdictEqual indicates the renderings match
	VerdictEqual Verdict = "equal"
	// VerdictDifferent indicates the check ran and found differences
	VerdictDifferent Verdict = "different"
	// VerdictRejected indicates the check could not run to completion
	VerdictRejected Verdict = "rejected"
)

// VerdictOf derives the verdict of a finished check
func VerdictOf(m *Metadata, err error) Verdict {
	if err != nil || m == nil {
		return VerdictRejected
	}
	if m.CheckSuccessful {
		return VerdictEqual
	}
	return VerdictDifferent
}

// ExitCode returns the appropriate exit code for the verdict
func (v Verdict) ExitCode() int {
	switch v {
	case VerdictEqual:
		return 0
	case VerdictDifferent:
		return 1
	default:
		return 2
	}
}
