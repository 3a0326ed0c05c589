package epub

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by the epub package.
var (
	// ErrMissingAttribute indicates a required XML attribute is absent.
	ErrMissingAttribute = errors.New("epub: missing required attribute")

	// ErrNonCanonical indicates a required file or element of the
	// publication could not be found.
	ErrNonCanonical = errors.New("epub: non-canonical publication")

	// ErrNoSupportedFormat indicates a fallback chain was exhausted without
	// reaching an acceptable media type.
	ErrNoSupportedFormat = errors.New("epub: no supported file format")

	// ErrLinkLeakage indicates a relative reference points outside the
	// container root.
	ErrLinkLeakage = errors.New("epub: relative link leakage")

	// ErrResourceIDNotExist indicates a manifest id lookup failed.
	ErrResourceIDNotExist = errors.New("epub: resource id does not exist")

	// ErrResourceNotFound indicates an archive path lookup failed.
	ErrResourceNotFound = errors.New("epub: resource not found in archive")

	// ErrUnrecognizedVersion indicates the package version could not be
	// determined from explicit or implicit signals.
	ErrUnrecognizedVersion = errors.New("epub: unrecognized version")

	// ErrUnsupportedEncryption indicates an encrypted resource uses a method
	// other than the two font obfuscation algorithms.
	ErrUnsupportedEncryption = errors.New("epub: unsupported encryption method")

	// ErrCompressionMethod indicates an archive entry uses a compression
	// method other than Store or Deflate.
	ErrCompressionMethod = errors.New("epub: unusable compression method")

	// ErrCircularFallback indicates a manifest fallback chain loops.
	ErrCircularFallback = errors.New("epub: circular reference in fallback chain")

	// ErrFallbackNotFound indicates a fallback id is not in the manifest.
	ErrFallbackNotFound = errors.New("epub: fallback resource does not exist")

	// ErrSpineBoundary indicates a spine navigation step had nowhere to go.
	ErrSpineBoundary = errors.New("epub: no spine entry in that direction")

	// ErrNoCover indicates no cover image could be detected
	// using any of the supported strategies.
	ErrNoCover = errors.New("epub: no cover image found")

	// Builder errors.

	ErrMissingNecessaryMetadata = errors.New("epub: requires at least one 'title', 'language', and 'identifier' with id 'pub-id'")
	ErrNavigationUninitialized  = errors.New("epub: navigation information is not set")
	ErrMissingRootfile          = errors.New("epub: need at least one rootfile")
	ErrIllegalRootfilePath      = errors.New("epub: rootfile path must be relative and inside the container")
	ErrNavFlagCount             = errors.New("epub: manifest must contain exactly one item with the 'nav' property")
	ErrNotAFile                 = errors.New("epub: source is not a regular file")
	ErrUnknownFileFormat        = errors.New("epub: unable to determine file type")
	ErrIllegalManifestPath      = errors.New("epub: illegal manifest path")
	ErrBuilderClosed            = errors.New("epub: builder already finalized or closed")
)

// MissingAttributeError reports an element lacking a required attribute.
type MissingAttributeError struct {
	Tag       string
	Attribute string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("epub: the %q attribute is required on the %q element", e.Attribute, e.Tag)
}

func (e *MissingAttributeError) Unwrap() error { return ErrMissingAttribute }

// NonCanonicalError reports a missing file (File set) or a missing element
// (Tag set).
type NonCanonicalError struct {
	File string
	Tag  string
}

func (e *NonCanonicalError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("epub: non-canonical publication: %q was not found", e.File)
	}
	return fmt.Sprintf("epub: non-canonical file: the %q element was not found", e.Tag)
}

func (e *NonCanonicalError) Unwrap() error { return ErrNonCanonical }

// LinkLeakageError reports a reference that escapes the container root.
type LinkLeakageError struct {
	Path string
}

func (e *LinkLeakageError) Error() string {
	return fmt.Sprintf("epub: relative link leakage: path %q is out of container range", e.Path)
}

func (e *LinkLeakageError) Unwrap() error { return ErrLinkLeakage }

// CircularFallbackError reports a fallback chain that revisits an id.
// Chain holds the visited ids in traversal order, ending with the repeat.
type CircularFallbackError struct {
	Chain []string
}

func (e *CircularFallbackError) Error() string {
	return fmt.Sprintf("epub: circular reference detected in fallback chain for '%s'", strings.Join(e.Chain, "->"))
}

func (e *CircularFallbackError) Unwrap() error { return ErrCircularFallback }

// FallbackNotFoundError reports a fallback id missing from the manifest.
type FallbackNotFoundError struct {
	ID       string
	Fallback string
}

func (e *FallbackNotFoundError) Error() string {
	return fmt.Sprintf("epub: fallback resource '%s' of '%s' does not exist in manifest", e.Fallback, e.ID)
}

func (e *FallbackNotFoundError) Unwrap() error { return ErrFallbackNotFound }

// ResourceIDError reports a manifest id that could not be resolved.
type ResourceIDError struct {
	ID string
}

func (e *ResourceIDError) Error() string {
	return fmt.Sprintf("epub: resource id %q does not exist in manifest", e.ID)
}

func (e *ResourceIDError) Unwrap() error { return ErrResourceIDNotExist }

// ResourceNotFoundError reports an archive path that has no entry.
type ResourceNotFoundError struct {
	Path string
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("epub: resource %q not found in archive", e.Path)
}

func (e *ResourceNotFoundError) Unwrap() error { return ErrResourceNotFound }

// UnsupportedEncryptionError reports an encryption record the package cannot
// reverse.
type UnsupportedEncryptionError struct {
	Method string
}

func (e *UnsupportedEncryptionError) Error() string {
	return fmt.Sprintf("epub: unsupported encryption method %q", e.Method)
}

func (e *UnsupportedEncryptionError) Unwrap() error { return ErrUnsupportedEncryption }

// CompressionError reports an archive entry with a disallowed compression
// method.
type CompressionError struct {
	Entry  string
	Method uint16
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("epub: unusable compression method %d for entry %q", e.Method, e.Entry)
}

func (e *CompressionError) Unwrap() error { return ErrCompressionMethod }

// IllegalManifestPathError reports a manifest href that would overwrite a
// reserved container entry or a path already staged for another item.
type IllegalManifestPathError struct {
	ID   string
	Path string
}

func (e *IllegalManifestPathError) Error() string {
	return fmt.Sprintf("epub: manifest item %q cannot be stored at %q", e.ID, e.Path)
}

func (e *IllegalManifestPathError) Unwrap() error { return ErrIllegalManifestPath }

// NotAFileError reports a builder source that is not a regular file.
type NotAFileError struct {
	Path string
}

func (e *NotAFileError) Error() string {
	return fmt.Sprintf("epub: expected a file, but %q is not a file", e.Path)
}

func (e *NotAFileError) Unwrap() error { return ErrNotAFile }

// UnknownFileFormatError reports a builder source whose type could not be
// determined.
type UnknownFileFormatError struct {
	Path string
}

func (e *UnknownFileFormatError) Error() string {
	return fmt.Sprintf("epub: unable to analyze the type of %q", e.Path)
}

func (e *UnknownFileFormatError) Unwrap() error { return ErrUnknownFileFormat }
