package output

import (
	"github.com/o2r-project/erc-checker/pkg/models"
)

// ImageDifference describes one image pair that did not match
type ImageDifference struct {
	Document        string  `json:"document"`
	Index           int     `json:"index"`
	OriginalImage   string  `json:"original_image"`
	ReproducedImage string  `json:"reproduced_image"`
	Pixels          int     `json:"pixels"`
	Percentage      float64 `json:"percentage"`
	DimensionsMatch bool    `json:"dimensions_match"`
	Method          string  `json:"method"`
}

// Differences lists the differing images of a resolved check in result order
func Differences(m *models.Metadata) []ImageDifference {
	var diffs []ImageDifference
	for _, img := range m.Images {
		if img.CompareResults.Differences == 0 {
			continue
		}
		diffs = append(diffs, ImageDifference{
			Document:        img.Document,
			Index:           img.Index,
			OriginalImage:   img.OriginalImage,
			ReproducedImage: img.ReproducedImage,
			Pixels:          img.CompareResults.Differences,
			Percentage:      img.CompareResults.DiffPercentage,
			DimensionsMatch: img.CompareResults.DimensionsMatch,
			Method:          img.CompareResults.Method,
		})
	}
	return diffs
}

// errorsOf flattens err into check errors for display
func errorsOf(err error) []*models.CheckError {
	return models.AsCheckErrors(err, models.KindConfig, "")
}
