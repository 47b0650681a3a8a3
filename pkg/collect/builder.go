// Package collect builds the comparison set of a check: the filtered file
// list reported to the caller and the matched document and image pairs the
// comparators run on.
package collect

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/o2r-project/erc-checker/internal/platform"
	"github.com/o2r-project/erc-checker/pkg/compare"
	"github.com/o2r-project/erc-checker/pkg/htmldoc"
	"github.com/o2r-project/erc-checker/pkg/ignore"
	"github.com/o2r-project/erc-checker/pkg/logging"
	"github.com/o2r-project/erc-checker/pkg/models"
	"github.com/o2r-project/erc-checker/pkg/resolve"
	"github.com/o2r-project/erc-checker/pkg/storage"
)

// documentSuffixes identify the primary documents of a tree
var documentSuffixes = []string{".html", ".htm"}

// Bodies holds the raw content of one matched document pair
type Bodies struct {
	Original   []byte
	Reproduced []byte
}

// Set is the outcome of set construction
type Set struct {
	// Files is the comparison set: slash paths relative to the base directory,
	// original side first
	Files []string

	// Units are the matched document pairs in discovery order
	Units []models.ComparisonUnit

	// Bodies holds the document content of Units, index for index
	Bodies []Bodies
}

// Pairs returns the total number of matched image pairs
func (s *Set) Pairs() int {
	n := 0
	for _, u := range s.Units {
		n += len(u.Images)
	}
	return n
}

// Builder constructs comparison sets
type Builder struct {
	logger logging.Logger
}

// NewBuilder creates a builder
func NewBuilder(logger logging.Logger) *Builder {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Builder{logger: logger}
}

// Build filters both roots, pairs their documents and matches the images of
// every pair. All failures are collected into one *models.Rejection; no unit
// with an error is returned.
func (b *Builder) Build(ctx context.Context, req models.CheckRequest, roots *resolve.Roots) (*Set, error) {
	backend, err := storage.NewLocal(roots.BaseDir)
	if err != nil {
		return nil, models.Reject(models.NewCheckError(models.KindInvalidPath, err.Error(), req.BaseDir()))
	}
	defer backend.Close()

	rules, err := ignore.Load(ctx, backend, req.IgnoreFile(), req.Extensions())
	if err != nil {
		return nil, models.Reject(models.AsCheckErrors(err, models.KindIgnoreFileParse, req.IgnoreFile())...)
	}
	b.logger.Debug(ctx, "ignore rules loaded", logging.Fields{
		"ignore_file": req.IgnoreFile(),
		"patterns":    rules.Patterns(),
		"extensions":  req.Extensions(),
	})

	var (
		files []string
		docs  [][2]string
	)
	if roots.DirectoryMode {
		files, docs, err = b.walkTrees(ctx, backend, rules, roots)
	} else {
		files, docs, err = b.explicitFiles(rules, roots)
	}
	if err != nil {
		return nil, err
	}

	set := &Set{Files: files}
	var errs []*models.CheckError
	for _, pair := range docs {
		unit, bodies, err := b.matchDocuments(ctx, backend, roots.BaseDir, pair[0], pair[1])
		if err != nil {
			if ctx.Err() != nil {
				return nil, models.Reject(models.NewCheckError(models.KindCanceled, ctx.Err().Error(), ""))
			}
			errs = append(errs, models.AsCheckErrors(err, models.KindInvalidPath, pair[0])...)
			continue
		}
		set.Units = append(set.Units, unit)
		set.Bodies = append(set.Bodies, bodies)
	}
	if len(errs) > 0 {
		return nil, models.Reject(errs...)
	}

	b.logger.Info(ctx, "comparison set built", logging.Fields{
		"files": len(set.Files),
		"units": len(set.Units),
		"pairs": set.Pairs(),
	})
	return set, nil
}

// explicitFiles handles file mode: the set is exactly the two files
func (b *Builder) explicitFiles(rules *ignore.Rules, roots *resolve.Roots) ([]string, [][2]string, error) {
	var errs []*models.CheckError
	files := make([]string, 0, 2)

	for _, abs := range []string{roots.Original, roots.Reproduced} {
		rel := platform.RelSlash(roots.BaseDir, abs)
		if !rules.Include(rel) {
			errs = append(errs, models.NewCheckError(models.KindInvalidPath,
				fmt.Sprintf("%s is excluded by ignore rules", rel), abs))
			continue
		}
		files = append(files, rel)
	}
	if len(errs) > 0 {
		return nil, nil, models.Reject(errs...)
	}
	return files, [][2]string{{roots.Original, roots.Reproduced}}, nil
}

// walkTrees handles directory mode. Documents are paired by position in
// the filtered, lexically ordered listings of both trees.
func (b *Builder) walkTrees(ctx context.Context, backend storage.Backend, rules *ignore.Rules, roots *resolve.Roots) ([]string, [][2]string, error) {
	original, err := b.listTree(ctx, backend, rules, roots.BaseDir, roots.Original)
	if err != nil {
		return nil, nil, err
	}
	reproduced, err := b.listTree(ctx, backend, rules, roots.BaseDir, roots.Reproduced)
	if err != nil {
		return nil, nil, err
	}

	if len(original) != len(reproduced) {
		return nil, nil, models.Reject(models.NewCheckError(models.KindUnequalFileCount,
			fmt.Sprintf("original directory %s has %d files but reproduced directory %s has %d",
				platform.RelSlash(roots.BaseDir, roots.Original), len(original),
				platform.RelSlash(roots.BaseDir, roots.Reproduced), len(reproduced)),
			roots.Reproduced))
	}

	origDocs := documentsOf(original)
	reprDocs := documentsOf(reproduced)

	var errs []*models.CheckError
	if len(origDocs) == 0 {
		errs = append(errs, noDocument(roots.BaseDir, roots.Original))
	}
	if len(reprDocs) == 0 {
		errs = append(errs, noDocument(roots.BaseDir, roots.Reproduced))
	}
	if len(errs) > 0 {
		return nil, nil, models.Reject(errs...)
	}
	if len(origDocs) != len(reprDocs) {
		return nil, nil, models.Reject(models.NewCheckError(models.KindUnequalFileCount,
			fmt.Sprintf("original directory has %d HTML documents but reproduced directory has %d",
				len(origDocs), len(reprDocs)),
			roots.Reproduced))
	}

	docs := make([][2]string, len(origDocs))
	for i := range origDocs {
		docs[i] = [2]string{
			filepath.Join(roots.BaseDir, filepath.FromSlash(origDocs[i])),
			filepath.Join(roots.BaseDir, filepath.FromSlash(reprDocs[i])),
		}
	}

	files := make([]string, 0, len(original)+len(reproduced))
	files = append(files, original...)
	files = append(files, reproduced...)
	return files, docs, nil
}

// listTree returns the included files below root as slash paths relative to base
func (b *Builder) listTree(ctx context.Context, backend storage.Backend, rules *ignore.Rules, base, root string) ([]string, error) {
	entries, err := backend.List(ctx, root)
	if err != nil {
		if ctx.Err() != nil {
			return nil, models.Reject(models.NewCheckError(models.KindCanceled, ctx.Err().Error(), ""))
		}
		return nil, models.Reject(models.NewCheckError(models.KindInvalidPath,
			fmt.Sprintf("cannot list directory %s: %v", root, err), root))
	}

	var files []string
	skipped := 0
	for _, entry := range entries {
		if entry.IsDir {
			continue
		}
		rel := platform.RelSlash(base, entry.Path)
		if !rules.Include(rel) {
			skipped++
			continue
		}
		files = append(files, rel)
	}

	b.logger.Debug(ctx, "directory listed", logging.Fields{
		"root":     root,
		"included": len(files),
		"skipped":  skipped,
	})
	return files, nil
}

// matchDocuments parses one document pair and matches its images by position
func (b *Builder) matchDocuments(ctx context.Context, backend storage.Backend, base, origPath, reprPath string) (models.ComparisonUnit, Bodies, error) {
	var unit models.ComparisonUnit

	origData, err := backend.ReadFile(ctx, origPath)
	if err != nil {
		return unit, Bodies{}, models.NewCheckError(models.KindInvalidPath,
			fmt.Sprintf("cannot read document: %v", err), origPath)
	}
	reprData, err := backend.ReadFile(ctx, reprPath)
	if err != nil {
		return unit, Bodies{}, models.NewCheckError(models.KindInvalidPath,
			fmt.Sprintf("cannot read document: %v", err), reprPath)
	}

	origDoc, err := htmldoc.ParseBytes(origData)
	if err != nil {
		return unit, Bodies{}, models.NewCheckError(models.KindInvalidPath,
			fmt.Sprintf("cannot parse document: %v", err), origPath)
	}
	reprDoc, err := htmldoc.ParseBytes(reprData)
	if err != nil {
		return unit, Bodies{}, models.NewCheckError(models.KindInvalidPath,
			fmt.Sprintf("cannot parse document: %v", err), reprPath)
	}

	origRel := platform.RelSlash(base, origPath)
	reprRel := platform.RelSlash(base, reprPath)
	if len(origDoc.Images) != len(reprDoc.Images) {
		return unit, Bodies{}, models.NewCheckError(models.KindUnequalImageCount,
			fmt.Sprintf("unequal number of images: %s has %d, %s has %d",
				origRel, len(origDoc.Images), reprRel, len(reprDoc.Images)),
			reprPath)
	}

	unit = models.ComparisonUnit{
		Name:               origRel,
		OriginalDocument:   origPath,
		ReproducedDocument: reprPath,
		Images:             make([]models.MatchedImagePair, len(origDoc.Images)),
	}
	for i := range origDoc.Images {
		unit.Images[i] = models.MatchedImagePair{
			Index:      i + 1,
			Original:   refOf(origPath, origDoc.Images[i]),
			Reproduced: refOf(reprPath, reprDoc.Images[i]),
		}
	}

	b.logger.Debug(ctx, "documents matched", logging.Fields{
		"unit":   unit.Name,
		"title":  origDoc.Title,
		"words":  origDoc.Words(),
		"images": len(unit.Images),
	})
	return unit, Bodies{Original: origData, Reproduced: reprData}, nil
}

func refOf(document string, img htmldoc.Image) models.ImageRef {
	return models.ImageRef{
		Document: document,
		Src:      img.Src,
		Identity: compare.IdentityOf(img.Src),
	}
}

func documentsOf(files []string) []string {
	var docs []string
	for _, f := range files {
		for _, suffix := range documentSuffixes {
			if platform.HasSuffixFold(f, suffix) {
				docs = append(docs, f)
				break
			}
		}
	}
	return docs
}

func noDocument(base, root string) *models.CheckError {
	return models.NewCheckError(models.KindInvalidPath,
		fmt.Sprintf("directory %s contains no HTML document", platform.RelSlash(base, root)), root)
}
