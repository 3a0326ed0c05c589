package epub

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"slices"

	"go.uber.org/zap"
)

// expectedMimetype is the required content of the "mimetype" file in a valid ePub.
const expectedMimetype = "application/epub+zip"

// Document is a parsed publication. Use Open or NewReader to create one.
//
// A Document is not safe for concurrent use by multiple goroutines.
type Document struct {
	ar     *archive
	closer io.Closer // non-nil only when created via Open()
	logger *zap.Logger

	version          Version
	uniqueIdentifier string
	packagePath      string
	baseDir          string

	metadata      []MetadataItem
	summary       Metadata
	links         []MetadataLinkItem
	manifest      map[string]ManifestItem
	manifestOrder []string
	spine         []SpineItem

	catalog      []NavPoint
	catalogTitle string
	tocPath      string

	encryption []EncryptionData
	encByPath  map[string]string // resource path → method

	warnings []string
	cursor   int
}

// Open opens the publication at the given path.
// The caller must call Close when done reading from the document.
func Open(path string, opts ...Option) (*Document, error) {
	return openFile(path, newConfig(opts))
}

func openFile(path string, cfg *config) (*Document, error) {
	zrc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("epub: open %s: %w", path, err)
	}

	d, err := initDocument(&zrc.Reader, zrc, cfg)
	if err != nil {
		zrc.Close()
		return nil, err
	}
	return d, nil
}

// NewReader creates a Document from an io.ReaderAt with the given size.
// The caller is responsible for the lifetime of r; Close only cleans
// up internal state.
func NewReader(r io.ReaderAt, size int64, opts ...Option) (*Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("epub: open zip: %w", err)
	}

	return initDocument(zr, nil, newConfig(opts))
}

// initDocument runs the open sequence. Any failure aborts with no partial
// document.
func initDocument(zr *zip.Reader, closer io.Closer, cfg *config) (*Document, error) {
	d := &Document{
		ar:     newArchive(zr, cfg.maxEntrySize),
		closer: closer,
		logger: cfg.logger,
	}

	if err := d.ar.checkCompression(); err != nil {
		return nil, err
	}

	d.validateMimetype()

	containerData, err := d.ar.read(containerPath)
	if err != nil {
		return nil, notFoundAsNonCanonical(err, containerPath)
	}
	d.packagePath, err = parseContainer(containerData)
	if err != nil {
		return nil, err
	}
	d.baseDir = dirOf(d.packagePath)

	packageData, err := d.ar.read(d.packagePath)
	if err != nil {
		return nil, notFoundAsNonCanonical(err, d.packagePath)
	}
	pkg, err := parsePackage(packageData, d.packagePath)
	if err != nil {
		return nil, err
	}
	d.version = pkg.version
	d.metadata = pkg.metadata
	d.links = pkg.links
	d.manifest = pkg.manifest
	d.manifestOrder = pkg.manifestOrder
	d.spine = pkg.spine
	for _, w := range pkg.warnings {
		d.warn(w)
	}

	for _, err := range ValidateFallbackChains(d.manifest, d.manifestOrder) {
		d.warn(err.Error())
	}

	if err := d.loadEncryption(); err != nil {
		return nil, err
	}

	nav, err := parseNavigation(d.version, pkg, d.ar)
	if err != nil {
		return nil, err
	}
	d.catalog = nav.points
	d.catalogTitle = nav.title
	d.tocPath = nav.path
	for _, w := range nav.warnings {
		d.warn(w)
	}

	uid, err := pkg.resolveUniqueIdentifier()
	if err != nil {
		return nil, err
	}
	d.uniqueIdentifier = uid

	d.summary = summarizeMetadata(d.version, d.metadata)

	d.logger.Debug("opened publication",
		zap.String("package", d.packagePath),
		zap.Stringer("version", d.version),
		zap.Int("manifest", len(d.manifest)),
		zap.Int("spine", len(d.spine)),
	)
	return d, nil
}

// loadEncryption reads META-INF/encryption.xml when present. Records that
// are not font obfuscation are kept, so fetching them fails, and reported as
// warnings now.
func (d *Document) loadEncryption() error {
	if d.ar.find(sinfFilePath) != nil {
		d.warn("META-INF/sinf.xml present; resources are likely Apple FairPlay protected")
	}

	if d.ar.find(encryptionFilePath) == nil {
		return nil
	}
	data, err := d.ar.read(encryptionFilePath)
	if err != nil {
		return err
	}
	records, err := parseEncryption(data)
	if err != nil {
		return err
	}

	d.encByPath = make(map[string]string, len(records))
	for _, r := range records {
		d.encryption = append(d.encryption, r.EncryptionData)
		d.encByPath[r.Path] = r.Method
		if w := r.drmWarning(); w != "" {
			d.warn(w)
		}
	}
	return nil
}

// validateMimetype checks that the first ZIP entry is named "mimetype" and
// contains "application/epub+zip". Deviations are recorded as warnings.
func (d *Document) validateMimetype() {
	files := d.ar.files()
	if len(files) == 0 {
		d.warn("empty ZIP archive; mimetype entry missing")
		return
	}

	first := files[0]
	if first.Name != "mimetype" {
		d.warn("first ZIP entry is not \"mimetype\"")
		return
	}

	data, err := readZipFileWithLimit(first, d.ar.limit)
	if err != nil {
		d.warn(fmt.Sprintf("cannot read mimetype entry: %v", err))
		return
	}

	if string(data) != expectedMimetype {
		d.warn(fmt.Sprintf("unexpected mimetype: %q", string(data)))
	}
}

func (d *Document) warn(msg string) {
	d.warnings = append(d.warnings, msg)
	d.logger.Warn(msg)
}

func notFoundAsNonCanonical(err error, file string) error {
	if errors.Is(err, ErrResourceNotFound) {
		return &NonCanonicalError{File: file}
	}
	return err
}

// Close releases resources held by the Document. When the Document was
// created via Open, Close closes the underlying file. Close is idempotent.
func (d *Document) Close() error {
	if d.closer != nil {
		err := d.closer.Close()
		d.closer = nil
		return err
	}
	return nil
}

// Version returns the detected package version.
func (d *Document) Version() Version { return d.version }

// UniqueIdentifier returns the value of the identifier the package declares
// as unique. It keys font deobfuscation.
func (d *Document) UniqueIdentifier() string { return d.uniqueIdentifier }

// PackagePath returns the container path of the package document.
func (d *Document) PackagePath() string { return d.packagePath }

// BaseDir returns the directory of the package document, "" for the root.
func (d *Document) BaseDir() string { return d.baseDir }

// Warnings returns the list of non-fatal warnings accumulated during parsing.
func (d *Document) Warnings() []string {
	return append([]string(nil), d.warnings...)
}

// MetadataItems returns every metadata item in document order.
func (d *Document) MetadataItems() []MetadataItem {
	return copyMetadataItems(d.metadata)
}

// MetadataByProperty returns the items with the given property.
func (d *Document) MetadataByProperty(property string) []MetadataItem {
	var out []MetadataItem
	for _, item := range d.metadata {
		if item.Property == property {
			out = append(out, item.clone())
		}
	}
	return out
}

// MetadataValues returns the values of the items with the given property.
func (d *Document) MetadataValues(property string) []string {
	var out []string
	for _, item := range d.metadata {
		if item.Property == property {
			out = append(out, item.Value)
		}
	}
	return out
}

// Title returns every dc:title value.
func (d *Document) Title() ([]string, error) { return d.requiredValues("title") }

// Language returns every dc:language value.
func (d *Document) Language() ([]string, error) { return d.requiredValues("language") }

// Identifier returns every dc:identifier value.
func (d *Document) Identifier() ([]string, error) { return d.requiredValues("identifier") }

func (d *Document) requiredValues(property string) ([]string, error) {
	values := d.MetadataValues(property)
	if len(values) == 0 {
		return nil, &NonCanonicalError{Tag: "dc:" + property}
	}
	return values, nil
}

// Metadata returns a summary of the common Dublin Core fields.
func (d *Document) Metadata() Metadata {
	return copyMetadata(d.summary)
}

// MetadataLinks returns the package's <link> metadata entries.
func (d *Document) MetadataLinks() []MetadataLinkItem {
	return slices.Clone(d.links)
}

// Manifest returns the manifest items in document order.
func (d *Document) Manifest() []ManifestItem {
	out := make([]ManifestItem, 0, len(d.manifestOrder))
	for _, id := range d.manifestOrder {
		out = append(out, d.manifest[id])
	}
	return out
}

// ManifestItem returns the manifest item with the given id.
func (d *Document) ManifestItem(id string) (ManifestItem, bool) {
	item, ok := d.manifest[id]
	return item, ok
}

// Spine returns the reading order.
func (d *Document) Spine() []SpineItem {
	return slices.Clone(d.spine)
}

// Catalog returns the table of contents tree.
func (d *Document) Catalog() []NavPoint {
	return copyNavPoints(d.catalog)
}

// CatalogTitle returns the title of the table of contents.
func (d *Document) CatalogTitle() string { return d.catalogTitle }

// HasTOC reports whether the table of contents has any entries.
func (d *Document) HasTOC() bool { return len(d.catalog) > 0 }

// ResolveContent returns the container path a navigation point refers to,
// without its fragment. Heading-only points resolve to "".
func (d *Document) ResolveContent(np NavPoint) (string, error) {
	href := hrefWithoutFragment(np.Content)
	if href == "" {
		return "", nil
	}
	return NormalizePath(dirOf(d.tocPath), href)
}

// HasEncryption reports whether the container has an encryption descriptor
// with at least one record.
func (d *Document) HasEncryption() bool { return len(d.encryption) > 0 }

// Encryption returns the records of META-INF/encryption.xml.
func (d *Document) Encryption() []EncryptionData {
	return slices.Clone(d.encryption)
}

// ReadFile reads a raw archive entry by its container path, without
// deobfuscation. The lookup is case-insensitive as a fallback.
func (d *Document) ReadFile(name string) ([]byte, error) {
	return d.ar.read(name)
}

// Resource fetches the manifest item with the given id. Obfuscated fonts are
// returned deobfuscated.
func (d *Document) Resource(id string) (Resource, error) {
	item, ok := d.manifest[id]
	if !ok {
		return Resource{}, &ResourceIDError{ID: id}
	}
	return d.fetch(item)
}

// ResourceByPath fetches the manifest item stored at the given container
// path.
func (d *Document) ResourceByPath(p string) (Resource, error) {
	normalized, err := NormalizePath("", p)
	if err != nil {
		return Resource{}, err
	}
	for _, id := range d.manifestOrder {
		if item := d.manifest[id]; item.Path == normalized {
			return d.fetch(item)
		}
	}
	return Resource{}, &ResourceNotFoundError{Path: p}
}

// ResourceWithFallback fetches the item with the given id, following its
// fallback chain until an item whose media type is in accept is found. It
// fails with ErrNoSupportedFormat when the chain is exhausted.
func (d *Document) ResourceWithFallback(id string, accept ...string) (Resource, error) {
	item, err := resolveFallback(d.manifest, id, accept)
	if err != nil {
		return Resource{}, err
	}
	return d.fetch(item)
}

func (d *Document) fetch(item ManifestItem) (Resource, error) {
	data, err := d.readResource(item.Path)
	if err != nil {
		return Resource{}, err
	}
	return Resource{
		ID:        item.ID,
		Path:      item.Path,
		MediaType: item.MediaType,
		Data:      data,
	}, nil
}

// readResource reads the entry at p and reverses its obfuscation, if any.
func (d *Document) readResource(p string) ([]byte, error) {
	data, err := d.ar.read(p)
	if err != nil {
		return nil, err
	}
	method, ok := d.encByPath[p]
	if !ok {
		return data, nil
	}
	return deobfuscate(method, data, d.uniqueIdentifier)
}
