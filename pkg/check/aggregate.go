package check

import (
	"fmt"

	"github.com/o2r-project/erc-checker/pkg/collect"
	"github.com/o2r-project/erc-checker/pkg/compare"
	"github.com/o2r-project/erc-checker/pkg/models"
)

// Aggregate merges the per-unit results of a set into Metadata.
// Any error rejects the check with all errors; otherwise the returned
// Metadata is complete even when differences were found. texts and images
// are index-aligned with set.Units, images[i] with set.Units[i].Images.
func Aggregate(set *collect.Set, images [][]*compare.ImageCompareResult, texts []*compare.TextCompareResult, errs []*models.CheckError) (*models.Metadata, error) {
	if len(errs) > 0 {
		return nil, models.Reject(errs...)
	}
	if len(texts) != len(set.Units) || len(images) != len(set.Units) {
		return nil, fmt.Errorf("aggregate: %d units but %d text and %d image results",
			len(set.Units), len(texts), len(images))
	}

	m := &models.Metadata{
		ComparisonSet: append([]string{}, set.Files...),
		Images:        make([]models.ImageResult, 0, set.Pairs()),
		Errors:        []*models.CheckError{},
	}

	for i, unit := range set.Units {
		if texts[i] == nil {
			return nil, fmt.Errorf("aggregate: missing text result for %s", unit.Name)
		}
		m.NumTextDifferences += texts[i].Differences

		if len(images[i]) != len(unit.Images) {
			return nil, fmt.Errorf("aggregate: %s has %d image pairs but %d results",
				unit.Name, len(unit.Images), len(images[i]))
		}
		for j, pair := range unit.Images {
			res := images[i][j]
			if res == nil {
				return nil, fmt.Errorf("aggregate: missing result for image %d of %s", pair.Index, unit.Name)
			}
			m.Images = append(m.Images, models.ImageResult{
				Index:           pair.Index,
				Document:        unit.Name,
				OriginalImage:   pair.Original.Identity,
				ReproducedImage: pair.Reproduced.Identity,
				CompareResults:  res.Stats,
			})
		}
	}

	m.CheckSuccessful = m.Successful()
	return m, nil
}
