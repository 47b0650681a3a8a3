package resolve

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/o2r-project/erc-checker/pkg/models"
)

// TestHelper provides a scratch comparison base directory
type TestHelper struct {
	t    *testing.T
	base string
}

func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t, base: t.TempDir()}
}

func (h *TestHelper) File(rel, content string) string {
	h.t.Helper()
	p := filepath.Join(h.base, filepath.FromSlash(rel))
	require.NoError(h.t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(h.t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func (h *TestHelper) Dir(rel string) string {
	h.t.Helper()
	p := filepath.Join(h.base, filepath.FromSlash(rel))
	require.NoError(h.t, os.MkdirAll(p, 0755))
	return p
}

func (h *TestHelper) Request(opts models.RequestOptions) models.CheckRequest {
	h.t.Helper()
	if opts.BaseDir == "" {
		opts.BaseDir = h.base
	}
	req, err := models.NewCheckRequest(opts)
	require.NoError(h.t, err)
	return req
}

func rejection(t *testing.T, err error) *models.Rejection {
	t.Helper()
	var rej *models.Rejection
	require.True(t, errors.As(err, &rej), "error %v is not a rejection", err)
	return rej
}

func TestResolve_FileMode(t *testing.T) {
	h := NewTestHelper(t)
	orig := h.File("original/paper.html", "<p>a</p>")
	repr := h.File("reproduced/paper.html", "<p>a</p>")

	roots, err := New(nil).Resolve(context.Background(), h.Request(models.RequestOptions{
		OriginalPath:   "original/paper.html",
		ReproducedPath: "reproduced/paper.html",
	}))
	require.NoError(t, err)

	assert.False(t, roots.DirectoryMode)
	assert.Equal(t, orig, roots.Original)
	assert.Equal(t, repr, roots.Reproduced)
	assert.Empty(t, roots.OutputDir)
}

func TestResolve_AbsolutePathsIgnoreBase(t *testing.T) {
	h := NewTestHelper(t)
	other := NewTestHelper(t)
	orig := other.File("a.html", "x")
	repr := other.File("b.html", "y")

	roots, err := New(nil).Resolve(context.Background(), h.Request(models.RequestOptions{
		OriginalPath:   orig,
		ReproducedPath: repr,
	}))
	require.NoError(t, err)
	assert.Equal(t, orig, roots.Original)
	assert.Equal(t, repr, roots.Reproduced)
}

func TestResolve_CollectsAllPathErrors(t *testing.T) {
	h := NewTestHelper(t)

	_, err := New(nil).Resolve(context.Background(), h.Request(models.RequestOptions{
		OriginalPath:   "missing/original.html",
		ReproducedPath: "missing/reproduced.html",
	}))
	rej := rejection(t, err)

	require.Len(t, rej.Errors, 2)
	for _, e := range rej.Errors {
		assert.Equal(t, models.KindInvalidPath, e.Kind)
	}
	assert.Contains(t, rej.Errors[0].Message, "missing/original.html")
	assert.Contains(t, rej.Errors[1].Message, "missing/reproduced.html")
}

func TestResolve_KindMismatch(t *testing.T) {
	h := NewTestHelper(t)
	h.Dir("orig")
	h.File("repr.html", "x")

	t.Run("DirectoryInFileMode", func(t *testing.T) {
		_, err := New(nil).Resolve(context.Background(), h.Request(models.RequestOptions{
			OriginalPath:   "orig",
			ReproducedPath: "repr.html",
		}))
		rej := rejection(t, err)
		require.Len(t, rej.Errors, 1)
		assert.Contains(t, rej.Errors[0].Message, "not a regular file")
	})

	t.Run("FileInDirectoryMode", func(t *testing.T) {
		_, err := New(nil).Resolve(context.Background(), h.Request(models.RequestOptions{
			DirectoryMode:  true,
			OriginalPath:   "orig",
			ReproducedPath: "repr.html",
		}))
		rej := rejection(t, err)
		require.Len(t, rej.Errors, 1)
		assert.Contains(t, rej.Errors[0].Message, "repr.html")
		assert.Contains(t, rej.Errors[0].Message, "not a directory")
	})
}

func TestResolve_MissingBaseDir(t *testing.T) {
	h := NewTestHelper(t)
	_, err := New(nil).Resolve(context.Background(), h.Request(models.RequestOptions{
		BaseDir:        filepath.Join(h.base, "nope"),
		OriginalPath:   "a.html",
		ReproducedPath: "b.html",
	}))
	rej := rejection(t, err)
	require.Len(t, rej.Errors, 1)
	assert.Equal(t, models.KindInvalidPath, rej.Errors[0].Kind)
	assert.Contains(t, rej.Errors[0].Message, "comparison base directory")
}

func TestResolve_MainDirectory(t *testing.T) {
	t.Run("DiscoversTwoPapers", func(t *testing.T) {
		h := NewTestHelper(t)
		h.File("papers/paperB/index.html", "x")
		h.File("papers/paperA/index.html", "x")
		h.Dir("papers/.git")
		h.File("papers/README.md", "notes")

		roots, err := New(nil).Resolve(context.Background(), h.Request(models.RequestOptions{
			DirectoryMode: true,
			MainDirectory: "papers",
		}))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(h.base, "papers", "paperA"), roots.Original)
		assert.Equal(t, filepath.Join(h.base, "papers", "paperB"), roots.Reproduced)
	})

	t.Run("WrongNumberOfPapers", func(t *testing.T) {
		h := NewTestHelper(t)
		h.Dir("papers/one")
		h.Dir("papers/two")
		h.Dir("papers/three")

		_, err := New(nil).Resolve(context.Background(), h.Request(models.RequestOptions{
			DirectoryMode: true,
			MainDirectory: "papers",
		}))
		rej := rejection(t, err)
		require.Len(t, rej.Errors, 1)
		assert.Contains(t, rej.Errors[0].Message, "exactly two")
		assert.Contains(t, rej.Errors[0].Message, "found 3")
	})
}

func TestResolve_OutputDir(t *testing.T) {
	h := NewTestHelper(t)
	h.File("a.html", "x")
	h.File("b.html", "x")
	out := h.Dir("out")

	t.Run("Existing", func(t *testing.T) {
		roots, err := New(nil).Resolve(context.Background(), h.Request(models.RequestOptions{
			OriginalPath:     "a.html",
			ReproducedPath:   "b.html",
			OutputDir:        out,
			SaveMetadataJSON: true,
		}))
		require.NoError(t, err)
		assert.Equal(t, out, roots.OutputDir)
		assert.False(t, roots.CreateOutputDir)
	})

	t.Run("MissingNotPermitted", func(t *testing.T) {
		_, err := New(nil).Resolve(context.Background(), h.Request(models.RequestOptions{
			OriginalPath:   "a.html",
			ReproducedPath: "b.html",
			OutputDir:      filepath.Join(out, "deep", "er"),
			SaveDiffHTML:   true,
		}))
		rej := rejection(t, err)
		assert.True(t, rej.Has(models.KindOutputWrite))
	})

	t.Run("MissingPermitted", func(t *testing.T) {
		roots, err := New(nil).Resolve(context.Background(), h.Request(models.RequestOptions{
			OriginalPath:            "a.html",
			ReproducedPath:          "b.html",
			OutputDir:               filepath.Join(out, "deep", "er"),
			SaveDiffHTML:            true,
			CreateParentDirectories: true,
		}))
		require.NoError(t, err)
		assert.True(t, roots.CreateOutputDir)
	})

	t.Run("OutputIsFile", func(t *testing.T) {
		_, err := New(nil).Resolve(context.Background(), h.Request(models.RequestOptions{
			OriginalPath:     "a.html",
			ReproducedPath:   "b.html",
			OutputDir:        filepath.Join(h.base, "a.html"),
			SaveMetadataJSON: true,
		}))
		rej := rejection(t, err)
		require.Len(t, rej.Errors, 1)
		assert.Contains(t, rej.Errors[0].Message, "not a directory")
	})

	t.Run("IgnoredWhenNotPersisting", func(t *testing.T) {
		roots, err := New(nil).Resolve(context.Background(), h.Request(models.RequestOptions{
			OriginalPath:   "a.html",
			ReproducedPath: "b.html",
			OutputDir:      filepath.Join(out, "missing"),
		}))
		require.NoError(t, err)
		assert.Empty(t, roots.OutputDir)
	})
}

func TestResolve_Cancelled(t *testing.T) {
	h := NewTestHelper(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(nil).Resolve(ctx, h.Request(models.RequestOptions{
		OriginalPath:   "a.html",
		ReproducedPath: "b.html",
	}))
	assert.True(t, rejection(t, err).Has(models.KindCanceled))
}
