package epub

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/flate"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// uniqueIdentifierID is the id the package's unique identifier must carry.
const uniqueIdentifierID = "pub-id"

// dcElements are the Dublin Core properties written as dc:* elements. Every
// other metadata property becomes a <meta>.
var dcElements = []string{
	"contributor", "coverage", "creator", "date", "description", "format",
	"identifier", "language", "publisher", "relation", "rights", "source",
	"subject", "title", "type",
}

// metaProperties are the unprefixed properties of the package metadata
// vocabulary. They are always written as <meta property>.
var metaProperties = []string{
	"alternate-script", "authority", "belongs-to-collection", "collection-type",
	"display-seq", "file-as", "group-position", "identifier-type", "meta-auth",
	"role", "source-of", "term", "title-type",
}

// Builder assembles a publication from resources staged in a temporary
// workspace. Call Make, MakeFile or Build to write it out, or Close to
// discard it. Either way the workspace is removed.
//
// A Builder is not safe for concurrent use by multiple goroutines.
type Builder struct {
	cfg    *config
	logger *zap.Logger
	ws     *workspace

	rootfiles []string
	metadata  []MetadataItem
	links     []MetadataLinkItem

	manifest      map[string]ManifestItem
	manifestOrder []string
	spine         []SpineItem

	catalogTitle string
	catalog      []NavPoint

	// navID is the preferred id for the generated navigation document.
	navID string

	closed bool
}

// NewBuilder returns an empty Builder with a fresh staging workspace.
func NewBuilder(opts ...Option) (*Builder, error) {
	cfg := newConfig(opts)
	ws, err := newWorkspace(cfg.workspaceDir, cfg.logger)
	if err != nil {
		return nil, err
	}
	return &Builder{
		cfg:      cfg,
		logger:   cfg.logger,
		ws:       ws,
		manifest: make(map[string]ManifestItem),
	}, nil
}

// NewIdentifier returns a fresh "urn:uuid:" identifier suitable for the
// package's unique identifier.
func NewIdentifier() string {
	return "urn:uuid:" + uuid.NewString()
}

// From returns a Builder pre-populated from doc: its rootfile, metadata,
// links, spine, table of contents and the bytes of every manifest resource.
// Obfuscated resources are staged deobfuscated. The navigation document is
// skipped; Make generates a new one from the catalog.
func From(doc *Document, opts ...Option) (*Builder, error) {
	b, err := NewBuilder(opts...)
	if err != nil {
		return nil, err
	}
	if err := b.copyFrom(doc); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *Builder) copyFrom(doc *Document) error {
	if err := b.AddRootfile(doc.PackagePath()); err != nil {
		return err
	}
	rootDir := b.rootDir()

	b.metadata = doc.MetadataItems()
	b.links = doc.MetadataLinks()
	b.spine = doc.Spine()
	b.catalogTitle = doc.CatalogTitle()

	catalog, err := rebaseCatalog(doc, doc.Catalog(), rootDir)
	if err != nil {
		return err
	}
	b.catalog = catalog

	for _, item := range doc.Manifest() {
		if item.HasProperty("nav") {
			b.navID = item.ID
			continue
		}
		data, err := doc.readResource(item.Path)
		if err != nil {
			return fmt.Errorf("epub: copy %s: %w", item.Path, err)
		}
		staged := item
		staged.Path = relativeHref(rootDir, item.Path)
		if err := b.AddManifestData(data, staged); err != nil {
			return err
		}
	}

	b.logger.Debug("builder populated from publication",
		zap.String("package", doc.PackagePath()),
		zap.Int("manifest", len(b.manifest)),
	)
	return nil
}

// rebaseCatalog rewrites the content hrefs of points, which are relative to
// the document's table of contents, to be relative to rootDir.
func rebaseCatalog(doc *Document, points []NavPoint, rootDir string) ([]NavPoint, error) {
	out := make([]NavPoint, len(points))
	for i, np := range points {
		target, err := doc.ResolveContent(np)
		if err != nil {
			return nil, err
		}
		if target != "" {
			href := relativeHref(rootDir, target)
			if idx := strings.IndexByte(np.Content, '#'); idx >= 0 {
				href += np.Content[idx:]
			}
			np.Content = href
		}
		np.Children, err = rebaseCatalog(doc, np.Children, rootDir)
		if err != nil {
			return nil, err
		}
		out[i] = np
	}
	return out, nil
}

// AddRootfile adds a package document location. The first rootfile receives
// the generated package document. p must be relative and stay inside the
// container.
func (b *Builder) AddRootfile(p string) error {
	p = strings.TrimSpace(p)
	if p == "" || strings.HasPrefix(p, "/") || strings.HasPrefix(p, "../") {
		return ErrIllegalRootfilePath
	}
	cleaned := path.Clean(p)
	if !isSafePath(cleaned) || cleaned == "." || cleaned == "mimetype" {
		return ErrIllegalRootfilePath
	}
	if !slices.Contains(b.rootfiles, cleaned) {
		b.rootfiles = append(b.rootfiles, cleaned)
	}
	return nil
}

// RemoveRootfile removes a rootfile added by AddRootfile.
func (b *Builder) RemoveRootfile(p string) *Builder {
	cleaned := path.Clean(strings.TrimSpace(p))
	b.rootfiles = slices.DeleteFunc(b.rootfiles, func(r string) bool { return r == cleaned })
	return b
}

// ClearRootfiles removes every rootfile.
func (b *Builder) ClearRootfiles() *Builder {
	b.rootfiles = nil
	return b
}

// AddMetadata appends a metadata item.
func (b *Builder) AddMetadata(item MetadataItem) *Builder {
	b.metadata = append(b.metadata, item.clone())
	return b
}

// RemoveMetadata removes every item with the given property.
func (b *Builder) RemoveMetadata(property string) *Builder {
	b.metadata = slices.DeleteFunc(b.metadata, func(m MetadataItem) bool { return m.Property == property })
	return b
}

// ClearMetadata removes every metadata item.
func (b *Builder) ClearMetadata() *Builder {
	b.metadata = nil
	return b
}

// AddMetadataLink appends a <link> entry.
func (b *Builder) AddMetadataLink(link MetadataLinkItem) *Builder {
	b.links = append(b.links, link)
	return b
}

// ClearMetadataLinks removes every <link> entry.
func (b *Builder) ClearMetadataLinks() *Builder {
	b.links = nil
	return b
}

// AddManifest stages the file at source as item. item.Path is the href
// relative to the first rootfile's directory. The media type is always
// detected from the file's content and extension.
func (b *Builder) AddManifest(source string, item ManifestItem) error {
	if err := b.checkStaging(); err != nil {
		return err
	}

	info, err := os.Stat(source)
	if err != nil || !info.Mode().IsRegular() {
		return &NotAFileError{Path: source}
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("epub: read %s: %w", source, err)
	}

	item.MediaType, err = detectMediaType(data, source)
	if err != nil {
		return err
	}
	return b.stage(data, item)
}

// AddManifestData stages data as item. When item.MediaType is empty it is
// detected from data and item.Path.
func (b *Builder) AddManifestData(data []byte, item ManifestItem) error {
	if err := b.checkStaging(); err != nil {
		return err
	}
	if item.MediaType == "" {
		mt, err := detectMediaType(data, item.Path)
		if err != nil {
			return err
		}
		item.MediaType = mt
	}
	return b.stage(data, item)
}

func (b *Builder) checkStaging() error {
	if b.closed {
		return ErrBuilderClosed
	}
	if len(b.rootfiles) == 0 {
		return ErrMissingRootfile
	}
	return nil
}

func (b *Builder) stage(data []byte, item ManifestItem) error {
	target, err := NormalizePath(b.rootDir(), item.Path)
	if err != nil {
		return err
	}
	if b.reservedPath(target) {
		return &IllegalManifestPathError{ID: item.ID, Path: target}
	}
	for _, id := range b.manifestOrder {
		if id != item.ID && b.manifest[id].Path == target {
			return &IllegalManifestPathError{ID: item.ID, Path: target}
		}
	}

	old, replacing := b.manifest[item.ID]
	if replacing && old.Path != target {
		if err := b.ws.remove(old.Path); err != nil {
			return err
		}
	}
	if err := b.ws.write(target, data); err != nil {
		return err
	}

	item.Path = target
	b.manifest[item.ID] = item
	if !replacing {
		b.manifestOrder = append(b.manifestOrder, item.ID)
	}
	return nil
}

// reservedPath reports whether target collides with a file the builder
// generates itself.
func (b *Builder) reservedPath(target string) bool {
	if target == "" || target == "mimetype" || target == "META-INF" || strings.HasPrefix(target, "META-INF/") {
		return true
	}
	return slices.Contains(b.rootfiles, target)
}

// RemoveManifest removes the item with the given id and its staged bytes.
func (b *Builder) RemoveManifest(id string) *Builder {
	item, ok := b.manifest[id]
	if !ok {
		return b
	}
	if !b.closed {
		if err := b.ws.remove(item.Path); err != nil {
			b.logger.Warn("failed to remove staged resource", zap.String("id", id), zap.Error(err))
		}
	}
	delete(b.manifest, id)
	b.manifestOrder = slices.DeleteFunc(b.manifestOrder, func(s string) bool { return s == id })
	return b
}

// ClearManifest removes every manifest item.
func (b *Builder) ClearManifest() *Builder {
	for _, id := range slices.Clone(b.manifestOrder) {
		b.RemoveManifest(id)
	}
	return b
}

// AddSpine appends a reading-order entry.
func (b *Builder) AddSpine(item SpineItem) *Builder {
	b.spine = append(b.spine, item)
	return b
}

// RemoveSpine removes every entry referencing idref.
func (b *Builder) RemoveSpine(idref string) *Builder {
	b.spine = slices.DeleteFunc(b.spine, func(s SpineItem) bool { return s.IDRef == idref })
	return b
}

// ClearSpine removes every reading-order entry.
func (b *Builder) ClearSpine() *Builder {
	b.spine = nil
	return b
}

// SetCatalogTitle sets the heading of the generated table of contents.
func (b *Builder) SetCatalogTitle(title string) *Builder {
	b.catalogTitle = title
	return b
}

// AddCatalogItem appends a top-level table of contents entry. Content hrefs
// are relative to the first rootfile's directory.
func (b *Builder) AddCatalogItem(np NavPoint) *Builder {
	b.catalog = append(b.catalog, copyNavPoints([]NavPoint{np})...)
	return b
}

// SetCatalog replaces the table of contents.
func (b *Builder) SetCatalog(points []NavPoint) *Builder {
	b.catalog = copyNavPoints(points)
	return b
}

// ClearCatalog removes every table of contents entry.
func (b *Builder) ClearCatalog() *Builder {
	b.catalog = nil
	return b
}

// Close discards the builder and removes its workspace. Close is idempotent.
func (b *Builder) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.ws.release()
	return nil
}

// Make finalizes the publication and writes it to w as a ZIP archive. The
// builder is consumed: its workspace is removed whether or not Make
// succeeds, and later calls fail with ErrBuilderClosed.
func (b *Builder) Make(w io.Writer) error {
	if b.closed {
		return ErrBuilderClosed
	}
	defer b.Close()

	if err := b.finalize(); err != nil {
		return err
	}
	return b.writeArchive(w)
}

// MakeFile is like Make but writes to the file at name, creating parent
// directories. The file is removed when finalizing fails.
func (b *Builder) MakeFile(name string) (err error) {
	if b.closed {
		return ErrBuilderClosed
	}
	defer b.Close()

	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf("epub: create %s: %w", name, err)
	}
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("epub: create %s: %w", name, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("epub: close %s: %w", name, cerr)
		}
		if err != nil {
			os.Remove(name)
		}
	}()
	return b.Make(f)
}

// Build writes the publication to the file at name and opens the result.
func (b *Builder) Build(name string) (*Document, error) {
	cfg := b.cfg
	if err := b.MakeFile(name); err != nil {
		return nil, err
	}
	return openFile(name, cfg)
}

// finalize writes the generated files into the workspace and validates the
// result.
func (b *Builder) finalize() error {
	if len(b.rootfiles) == 0 {
		return ErrMissingRootfile
	}
	container, err := marshalContainer(b.rootfiles)
	if err != nil {
		return err
	}
	if err := b.ws.write(containerPath, container); err != nil {
		return err
	}

	if err := b.addNavigationDocument(); err != nil {
		return err
	}

	if err := b.validate(); err != nil {
		return err
	}

	b.setModified(time.Now())
	opf, err := b.marshalPackage()
	if err != nil {
		return err
	}
	if err := b.ws.write(b.rootfiles[0], opf); err != nil {
		return err
	}
	return b.ws.pruneEmptyDirs()
}

// addNavigationDocument renders the catalog and stages it as the manifest
// item carrying the "nav" property.
func (b *Builder) addNavigationDocument() error {
	if len(b.catalog) == 0 {
		return ErrNavigationUninitialized
	}

	id := b.navID
	if id == "" {
		id = "nav"
	}
	if _, taken := b.manifest[id]; taken {
		id = b.uniqueID(id)
	}
	href := b.uniqueHref("nav", ".xhtml")

	data, err := b.marshalNav()
	if err != nil {
		return err
	}
	item := ManifestItem{
		ID:         id,
		Path:       href,
		MediaType:  "application/xhtml+xml",
		Properties: "nav",
	}
	return b.stage(data, item)
}

func (b *Builder) uniqueID(base string) string {
	for i := 1; ; i++ {
		id := fmt.Sprintf("%s-%d", base, i)
		if _, taken := b.manifest[id]; !taken {
			return id
		}
	}
}

// uniqueHref returns an href under the rootfile directory not used by any
// manifest item or generated file.
func (b *Builder) uniqueHref(stem, ext string) string {
	rootDir := b.rootDir()
	used := func(href string) bool {
		target := path.Join(rootDir, href)
		if b.reservedPath(target) {
			return true
		}
		for _, item := range b.manifest {
			if item.Path == target {
				return true
			}
		}
		return false
	}

	href := stem + ext
	for i := 1; used(href); i++ {
		href = fmt.Sprintf("%s-%d%s", stem, i, ext)
	}
	return href
}

// validate applies the checks a written publication must pass. Unlike the
// reader, fallback defects are fatal here.
func (b *Builder) validate() error {
	if err := b.validateMetadata(); err != nil {
		return err
	}
	if errs := ValidateFallbackChains(b.manifest, b.manifestOrder); len(errs) > 0 {
		return errs[0]
	}
	if err := validateNavFlags(b.Manifest()); err != nil {
		return err
	}
	for _, s := range b.spine {
		if _, ok := b.manifest[s.IDRef]; !ok {
			return &ResourceIDError{ID: s.IDRef}
		}
	}
	b.checkLanguageTags()
	return nil
}

// validateMetadata requires a title, a language and an identifier whose id
// is "pub-id".
func (b *Builder) validateMetadata() error {
	var title, lang, ident bool
	for _, m := range b.metadata {
		switch m.Property {
		case "title":
			title = true
		case "language":
			lang = true
		case "identifier":
			ident = ident || m.ID == uniqueIdentifierID
		}
	}
	if !title || !lang || !ident {
		return ErrMissingNecessaryMetadata
	}
	return nil
}

// validateNavFlags requires exactly one item carrying the "nav" property.
func validateNavFlags(items []ManifestItem) error {
	n := 0
	for _, item := range items {
		if item.HasProperty("nav") {
			n++
		}
	}
	if n != 1 {
		return ErrNavFlagCount
	}
	return nil
}

func (b *Builder) checkLanguageTags() {
	for _, m := range b.metadata {
		if m.Property != "language" {
			continue
		}
		if _, err := language.Parse(m.Value); err != nil {
			b.logger.Warn("ill-formed language tag", zap.String("value", m.Value), zap.Error(err))
		}
	}
}

// setModified replaces any dcterms:modified entry with t.
func (b *Builder) setModified(t time.Time) {
	b.RemoveMetadata("dcterms:modified")
	b.metadata = append(b.metadata, NewMetadataItem("dcterms:modified", t.UTC().Format("2006-01-02T15:04:05Z")))
}

// Manifest returns the staged manifest items in insertion order. Paths are
// relative to the container root.
func (b *Builder) Manifest() []ManifestItem {
	out := make([]ManifestItem, 0, len(b.manifestOrder))
	for _, id := range b.manifestOrder {
		out = append(out, b.manifest[id])
	}
	return out
}

// rootDir is the directory of the first rootfile, "" for the root.
func (b *Builder) rootDir() string {
	if len(b.rootfiles) == 0 {
		return ""
	}
	return dirOf(b.rootfiles[0])
}

// writeArchive streams the workspace into a ZIP archive. The mimetype entry
// comes first and is stored; everything else is deflated.
func (b *Builder) writeArchive(w io.Writer) error {
	files, err := b.ws.files()
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	level := b.cfg.compressionLevel
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	now := time.Now()
	mw, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store, Modified: now})
	if err != nil {
		return fmt.Errorf("epub: write mimetype: %w", err)
	}
	if _, err := io.WriteString(mw, expectedMimetype); err != nil {
		return fmt.Errorf("epub: write mimetype: %w", err)
	}

	for _, name := range files {
		if err := b.copyEntry(zw, name, now); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("epub: finish archive: %w", err)
	}
	b.logger.Debug("publication written", zap.Int("entries", len(files)+1))
	return nil
}

func (b *Builder) copyEntry(zw *zip.Writer, name string, modified time.Time) error {
	src, err := os.Open(b.ws.abs(name))
	if err != nil {
		return fmt.Errorf("epub: write %s: %w", name, err)
	}
	defer src.Close()

	dst, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return fmt.Errorf("epub: write %s: %w", name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("epub: write %s: %w", name, err)
	}
	return nil
}

// isDCElement reports whether property is written as a dc:* element.
func isDCElement(property string) bool {
	_, found := slices.BinarySearch(dcElements, property)
	return found
}

// isLegacyMeta reports whether m is written as a name/content <meta>. Only
// bare names outside the metadata vocabulary qualify, and only when nothing
// has to point at the element.
func isLegacyMeta(m MetadataItem) bool {
	if m.ID != "" || len(m.Refinements) > 0 || strings.Contains(m.Property, ":") {
		return false
	}
	_, found := slices.BinarySearch(metaProperties, m.Property)
	return !found
}
