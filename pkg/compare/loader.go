package compare

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/hashicorp/golang-lru/v2"

	"github.com/o2r-project/erc-checker/pkg/models"
	"github.com/o2r-project/erc-checker/pkg/storage"
)

// DefaultCacheEntries bounds the number of image files a Loader keeps in memory
const DefaultCacheEntries = 128

// Loader reads the bytes of embedded images.
// One Loader serves one check and caches file contents by resolved path.
type Loader struct {
	backend storage.Backend
	cache   *lru.Cache[string, []byte]
}

// NewLoader creates a loader reading files through backend
func NewLoader(backend storage.Backend, entries int) (*Loader, error) {
	if entries < 1 {
		entries = DefaultCacheEntries
	}
	cache, err := lru.New[string, []byte](entries)
	if err != nil {
		return nil, fmt.Errorf("failed to create image cache: %w", err)
	}
	return &Loader{backend: backend, cache: cache}, nil
}

// Load returns the content of the image ref points to.
// Failures are *models.CheckError values of kind ImageLoadError.
func (l *Loader) Load(ctx context.Context, ref models.ImageRef) (ImageInput, error) {
	input := ImageInput{Identity: ref.Identity}
	if input.Identity == "" {
		input.Identity = IdentityOf(ref.Src)
	}

	switch KindOf(ref.Src) {
	case SourceData:
		_, data, err := DecodeDataURI(ref.Src)
		if err != nil {
			return ImageInput{}, models.NewCheckError(models.KindImageLoad,
				fmt.Sprintf("cannot decode inline image %s in %s: %v", input.Identity, ref.Document, err), ref.Document)
		}
		input.Data = data
		return input, nil

	case SourceRemote:
		return ImageInput{}, models.NewCheckError(models.KindImageLoad,
			fmt.Sprintf("remote image %s in %s is not supported; embed or vendor it", ref.Src, ref.Document), ref.Src)
	}

	path, err := FilePathOf(ref)
	if err != nil {
		return ImageInput{}, models.NewCheckError(models.KindImageLoad,
			fmt.Sprintf("invalid image path %s in %s: %v", ref.Src, ref.Document, err), ref.Src)
	}

	if data, ok := l.cache.Get(path); ok {
		input.Data = data
		return input, nil
	}

	data, err := l.backend.ReadFile(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ImageInput{}, ctxErr
		}
		return ImageInput{}, models.NewCheckError(models.KindImageLoad,
			fmt.Sprintf("cannot read image %s referenced by %s: %v", path, ref.Document, err), path)
	}
	l.cache.Add(path, data)

	input.Data = data
	return input, nil
}

// Cached returns the number of image files currently cached
func (l *Loader) Cached() int {
	return l.cache.Len()
}

// FilePathOf resolves a file image reference against its document's directory
func FilePathOf(ref models.ImageRef) (string, error) {
	src := strings.TrimSpace(ref.Src)
	if strings.HasPrefix(strings.ToLower(src), "file:") {
		u, err := url.Parse(src)
		if err != nil {
			return "", err
		}
		return filepath.FromSlash(u.Path), nil
	}

	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	unescaped, err := url.PathUnescape(src)
	if err != nil {
		return "", err
	}
	if unescaped == "" {
		return "", fmt.Errorf("empty path")
	}

	p := filepath.FromSlash(unescaped)
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	return filepath.Join(filepath.Dir(ref.Document), p), nil
}
