package epub

import (
	"slices"
	"strings"
)

// Version is the publication format generation of a package document.
type Version int

const (
	// Version2 is the legacy format: NCX table of contents, attribute-style
	// metadata refinements.
	Version2 Version = 2

	// Version3 is the modern format: XHTML navigation document, meta-refines
	// metadata.
	Version3 Version = 3
)

// String returns the version as written in the package "version" attribute.
func (v Version) String() string {
	switch v {
	case Version2:
		return "2.0"
	case Version3:
		return "3.0"
	default:
		return "unknown"
	}
}

// MetadataItem is a single metadata entry from the package document, such as
// a Dublin Core element or a standalone <meta>.
type MetadataItem struct {
	// ID is the element's xml id, empty if absent.
	ID string

	// Property is the local name of a Dublin Core element ("title",
	// "identifier") or the property/name of a meta element
	// ("dcterms:modified", "cover").
	Property string

	// Value is the element text or the legacy meta content attribute.
	Value string

	// Lang is the xml:lang value, empty if absent.
	Lang string

	// Refinements are the entries that refine this item by id.
	Refinements []MetadataRefinement
}

// NewMetadataItem returns an item with the given property and value.
func NewMetadataItem(property, value string) MetadataItem {
	return MetadataItem{Property: property, Value: value}
}

// WithID returns a copy of m with its id set.
func (m MetadataItem) WithID(id string) MetadataItem {
	m.ID = id
	return m
}

// WithLang returns a copy of m with its language set.
func (m MetadataItem) WithLang(lang string) MetadataItem {
	m.Lang = lang
	return m
}

// AppendRefinement returns a copy of m with r appended. Refinements only
// attach to items that have an id; for an item without one, r is dropped.
// The refinement's Refines field is set to m.ID.
func (m MetadataItem) AppendRefinement(r MetadataRefinement) MetadataItem {
	if m.ID == "" {
		return m
	}
	r.Refines = m.ID
	m.Refinements = append(slices.Clone(m.Refinements), r)
	return m
}

// Refinement returns the value of the first refinement with the given
// property.
func (m MetadataItem) Refinement(property string) (string, bool) {
	for _, r := range m.Refinements {
		if r.Property == property {
			return r.Value, true
		}
	}
	return "", false
}

func (m MetadataItem) clone() MetadataItem {
	m.Refinements = slices.Clone(m.Refinements)
	return m
}

// MetadataRefinement attaches an extra property to the metadata item whose
// id equals Refines.
type MetadataRefinement struct {
	Refines  string
	Property string
	Value    string
	Lang     string
	Scheme   string
}

// NewRefinement returns a refinement of property with value. Refines is
// filled in by MetadataItem.AppendRefinement.
func NewRefinement(property, value string) MetadataRefinement {
	return MetadataRefinement{Property: property, Value: value}
}

// MetadataLinkItem is a <link> element of the package metadata.
type MetadataLinkItem struct {
	Href       string
	Rel        string
	HrefLang   string
	ID         string
	MediaType  string
	Properties string

	// Refines names the id of the metadata item this link describes. It is
	// a label for lookup, not an ownership edge.
	Refines string
}

// ManifestItem is an entry in the package manifest.
type ManifestItem struct {
	// ID is unique across the manifest.
	ID string

	// Path locates the resource. For items read from a publication, and for
	// items stored in a Builder, it is relative to the container root. For an
	// item passed to Builder.AddManifest it is the href relative to the
	// rootfile's directory.
	Path string

	// MediaType is the MIME type of the resource.
	MediaType string

	// Properties is a space-separated list ("nav", "cover-image", ...).
	Properties string

	// Fallback is the id of the item to use when this one's media type is
	// unsupported. Empty when there is none.
	Fallback string
}

// NewManifestItem returns an item for the resource at href.
func NewManifestItem(id, href string) ManifestItem {
	return ManifestItem{ID: id, Path: href}
}

// WithProperty returns a copy of m with property appended to its
// properties.
func (m ManifestItem) WithProperty(property string) ManifestItem {
	if m.Properties == "" {
		m.Properties = property
	} else {
		m.Properties += " " + property
	}
	return m
}

// WithFallback returns a copy of m with its fallback id set.
func (m ManifestItem) WithFallback(id string) ManifestItem {
	m.Fallback = id
	return m
}

// HasProperty reports whether name is one of m's properties.
func (m ManifestItem) HasProperty(name string) bool {
	return slices.Contains(strings.Fields(m.Properties), name)
}

// SpineItem is an <itemref> of the spine.
type SpineItem struct {
	// IDRef names the manifest item.
	IDRef string

	ID         string
	Properties string

	// Linear is false for entries reachable only by direct navigation.
	Linear bool
}

// NewSpineItem returns a linear spine entry referencing idref.
func NewSpineItem(idref string) SpineItem {
	return SpineItem{IDRef: idref, Linear: true}
}

// WithID returns a copy of s with its id set.
func (s SpineItem) WithID(id string) SpineItem {
	s.ID = id
	return s
}

// WithProperty returns a copy of s with property appended.
func (s SpineItem) WithProperty(property string) SpineItem {
	if s.Properties == "" {
		s.Properties = property
	} else {
		s.Properties += " " + property
	}
	return s
}

// WithLinear returns a copy of s with the linear flag set.
func (s SpineItem) WithLinear(linear bool) SpineItem {
	s.Linear = linear
	return s
}

// NavPoint is a node of the table of contents tree.
type NavPoint struct {
	// Label is the display text.
	Label string

	// Content is the href as written in the navigation source, which may
	// carry a fragment. Use Document.ResolveContent for the archive path.
	// Empty for heading-only entries.
	Content string

	// Children contains nested entries.
	Children []NavPoint

	// PlayOrder is the legacy reading-order number, nil when absent.
	PlayOrder *int
}

// NewNavPoint returns an entry with the given label.
func NewNavPoint(label string) NavPoint {
	return NavPoint{Label: label}
}

// WithContent returns a copy of n pointing at content.
func (n NavPoint) WithContent(content string) NavPoint {
	n.Content = content
	return n
}

// AppendChild returns a copy of n with child appended.
func (n NavPoint) AppendChild(child NavPoint) NavPoint {
	n.Children = append(slices.Clone(n.Children), child)
	return n
}

// playOrderLess orders navigation points by play order. Points without a
// play order sort before points that have one.
func playOrderLess(a, b *int) bool {
	switch {
	case a == nil:
		return b != nil
	case b == nil:
		return false
	default:
		return *a < *b
	}
}

// EncryptionData is a record of META-INF/encryption.xml.
type EncryptionData struct {
	// Method is the EncryptionMethod Algorithm URI.
	Method string

	// Path is the container-root-relative path of the encrypted resource.
	Path string
}

// Resource is the result of fetching a manifest item or archive entry.
type Resource struct {
	ID        string
	Path      string
	MediaType string
	Data      []byte
}

// Metadata is a summary of the common Dublin Core fields, derived from the
// document's metadata items.
type Metadata struct {
	// Version is the package version ("2.0" or "3.0").
	Version string

	// Titles contains all dc:title values ordered by display-seq when
	// present. The first entry is the primary title.
	Titles []string

	// Authors contains all dc:creator entries with their roles and file-as values.
	Authors []Author

	// Language contains all dc:language values.
	Language []string

	// Identifiers contains all dc:identifier entries.
	Identifiers []Identifier

	Publisher   string
	Date        string
	Description string
	Subjects    []string
	Rights      string
	Source      string

	// Modified is the dcterms:modified value.
	Modified string
}

// Author represents a dc:creator entry with optional file-as and role.
type Author struct {
	Name   string
	FileAs string
	Role   string
}

// Identifier represents a dc:identifier entry.
type Identifier struct {
	Value  string
	Scheme string
	ID     string
}

// CoverImage holds the detected cover image data.
type CoverImage struct {
	// Path is the container-root-relative path of the image.
	Path string

	// MediaType is the MIME type of the cover image (e.g., "image/jpeg").
	MediaType string

	// Data is the raw image bytes.
	Data []byte
}

func copyNavPoints(in []NavPoint) []NavPoint {
	if in == nil {
		return nil
	}
	out := make([]NavPoint, len(in))
	for i := range in {
		out[i] = in[i]
		if in[i].PlayOrder != nil {
			po := *in[i].PlayOrder
			out[i].PlayOrder = &po
		}
		out[i].Children = copyNavPoints(in[i].Children)
	}
	return out
}

func copyMetadataItems(in []MetadataItem) []MetadataItem {
	if in == nil {
		return nil
	}
	out := make([]MetadataItem, len(in))
	for i := range in {
		out[i] = in[i].clone()
	}
	return out
}
