package epub

import (
	"archive/zip"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/klauspost/compress/flate"
)

// archive is a read-only view of an OCF container with O(1) entry lookup.
type archive struct {
	zr    *zip.Reader
	exact map[string]*zip.File // exact-match index
	lower map[string]*zip.File // lowercase index
	limit int64
}

func newArchive(zr *zip.Reader, limit int64) *archive {
	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})

	a := &archive{
		zr:    zr,
		exact: make(map[string]*zip.File, len(zr.File)),
		lower: make(map[string]*zip.File, len(zr.File)),
		limit: limit,
	}
	for _, f := range zr.File {
		if _, exists := a.exact[f.Name]; !exists {
			a.exact[f.Name] = f // first match wins for exact
		}
		lower := strings.ToLower(f.Name)
		if _, exists := a.lower[lower]; !exists {
			a.lower[lower] = f // first match wins for case-insensitive
		}
	}
	return a
}

// checkCompression rejects entries stored with anything but Store or Deflate.
func (a *archive) checkCompression() error {
	for _, f := range a.zr.File {
		if f.Method != zip.Store && f.Method != zip.Deflate {
			return &CompressionError{Entry: f.Name, Method: f.Method}
		}
	}
	return nil
}

// find looks up an entry by path. It tries an exact match, then a
// case-insensitive match, then the percent-decoded form of name.
func (a *archive) find(name string) *zip.File {
	if f, ok := a.exact[name]; ok {
		return f
	}
	if f, ok := a.lower[strings.ToLower(name)]; ok {
		return f
	}
	if decoded, err := url.PathUnescape(name); err == nil && decoded != name {
		return a.find(decoded)
	}
	return nil
}

// read returns the bytes of the entry at name, or a *ResourceNotFoundError.
func (a *archive) read(name string) ([]byte, error) {
	f := a.find(name)
	if f == nil {
		return nil, &ResourceNotFoundError{Path: name}
	}
	return readZipFileWithLimit(f, a.limit)
}

// files returns the entries in central-directory order.
func (a *archive) files() []*zip.File {
	return a.zr.File
}

// readZipFileWithLimit reads the full contents of a ZIP entry. It enforces
// limit to guard against zip bombs and validates that the entry path is safe.
func readZipFileWithLimit(f *zip.File, limit int64) ([]byte, error) {
	if !isSafePath(f.Name) {
		return nil, fmt.Errorf("epub: unsafe zip entry path: %s", f.Name)
	}

	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("epub: zip entry %s too large: %d bytes (max %d)", f.Name, f.UncompressedSize64, limit)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("epub: open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	// Read up to limit+1 to detect if the actual decompressed data
	// exceeds the limit (the declared size might be wrong/forged).
	lr := io.LimitReader(rc, limit+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, fmt.Errorf("epub: read zip entry %s: %w", f.Name, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("epub: zip entry %s decompressed size exceeds limit (%d bytes)", f.Name, limit)
	}

	return data, nil
}
