// Package report renders the in-memory artifacts of a check: the combined
// diff document and the canonical metadata encoding.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/o2r-project/erc-checker/pkg/compare"
	"github.com/o2r-project/erc-checker/pkg/models"
)

const diffTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 60em; margin: 2em auto; line-height: 1.5; color: #222; }
header { border-bottom: 1px solid #ccc; margin-bottom: 1.5em; }
section.erc-unit { margin-bottom: 3em; }
del.erc-del { background: #fdd; color: #900; }
ins.erc-ins { background: #dfd; color: #060; text-decoration: none; }
figure.erc-image { margin: 1em 0; padding: 0.5em; border: 1px solid #ddd; }
figure.erc-image.erc-changed { border-color: #c0c; }
figure.erc-image img { max-width: 100%; }
figcaption { font-size: 0.9em; color: #555; }
</style>
</head>
<body>
<header>
<h1>{{.Title}}</h1>
<p>{{.Summary}}</p>
</header>
{{range .Sections}}<section class="erc-unit">
<h2>{{.Name}}</h2>
<p class="erc-summary">{{.Summary}}</p>
<div class="erc-text">
{{.Body}}
</div>
</section>
{{end}}</body>
</html>
`

var diffTmpl = template.Must(template.New("diff").Parse(diffTemplate))

type diffPage struct {
	Title    string
	Summary  string
	Sections []diffSection
}

type diffSection struct {
	Name    string
	Summary string
	Body    template.HTML
}

// RenderDiff combines the text fragments and image artifacts of every unit
// into one HTML document. texts and images are index-aligned with units;
// images[i] is index-aligned with units[i].Images. Every image marker in a
// fragment is replaced by a figure showing the artifact, or the original
// image when the comparison produced none.
func RenderDiff(units []models.ComparisonUnit, texts []*compare.TextCompareResult, images [][]*compare.ImageCompareResult) (string, error) {
	if len(texts) != len(units) || len(images) != len(units) {
		return "", fmt.Errorf("render diff: %d units, %d text results, %d image result sets",
			len(units), len(texts), len(images))
	}

	page := diffPage{Title: "Comparison of original and reproduced paper"}
	textDiffs, imageDiffs := 0, 0

	for i, unit := range units {
		if len(images[i]) != len(unit.Images) {
			return "", fmt.Errorf("render diff: unit %s has %d image pairs but %d results",
				unit.Name, len(unit.Images), len(images[i]))
		}

		fragment := ""
		changed := 0
		if texts[i] != nil {
			fragment = texts[i].Fragment
			textDiffs += texts[i].Differences
			changed = texts[i].Differences
		}

		pairs := make([]string, 0, 2*len(unit.Images))
		unitImageDiffs := 0
		for j, pair := range unit.Images {
			res := images[i][j]
			if res != nil && res.Differs() {
				unitImageDiffs++
			}
			figure := renderFigure(pair, res)
			marker := compare.ImageMarker(pair.Index)
			if strings.Contains(fragment, marker) {
				pairs = append(pairs, marker, figure)
			} else {
				fragment += "\n" + figure
			}
		}
		imageDiffs += unitImageDiffs

		page.Sections = append(page.Sections, diffSection{
			Name:    unit.Name,
			Summary: fmt.Sprintf("%d text differences, %d of %d images differ", changed, unitImageDiffs, len(unit.Images)),
			Body:    template.HTML(strings.NewReplacer(pairs...).Replace(fragment)),
		})
	}
	page.Summary = fmt.Sprintf("%d documents compared: %d text differences, %d differing images",
		len(units), textDiffs, imageDiffs)

	var buf bytes.Buffer
	if err := diffTmpl.Execute(&buf, page); err != nil {
		return "", fmt.Errorf("render diff: %w", err)
	}
	return buf.String(), nil
}

func renderFigure(pair models.MatchedImagePair, res *compare.ImageCompareResult) string {
	src := pair.Original.Src
	class := "erc-image"
	caption := fmt.Sprintf("Image %d", pair.Index)

	if res != nil {
		if res.Artifact != "" {
			src = res.Artifact
		}
		if res.Differs() {
			class += " erc-changed"
			caption += fmt.Sprintf(": %d differing pixels (%.2f%%)", res.Stats.Differences, res.Stats.DiffPercentage)
			if !res.Stats.DimensionsMatch {
				caption += ", dimensions differ"
			}
		} else {
			caption += ": no differences"
		}
	}

	return fmt.Sprintf(`<figure class="%s"><img src="%s" alt="image %d"><figcaption>%s</figcaption></figure>`,
		class, template.HTMLEscapeString(src), pair.Index, template.HTMLEscapeString(caption))
}
