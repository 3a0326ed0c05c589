package epub

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

const (
	containerNamespace = "urn:oasis:names:tc:opendocument:xmlns:container"
	xhtmlNamespace     = "http://www.w3.org/1999/xhtml"
	opsNamespace       = "http://www.idpf.org/2007/ops"

	packageMediaType = "application/oebps-package+xml"
	ncxMediaType     = "application/x-dtbncx+xml"
)

func newXMLDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	return doc
}

func serialize(doc *etree.Document, what string) ([]byte, error) {
	doc.Indent(2)
	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("epub: write %s: %w", what, err)
	}
	return data, nil
}

// marshalContainer renders META-INF/container.xml listing rootfiles.
func marshalContainer(rootfiles []string) ([]byte, error) {
	doc := newXMLDocument()
	container := doc.CreateElement("container")
	container.CreateAttr("version", "1.0")
	container.CreateAttr("xmlns", containerNamespace)

	list := container.CreateElement("rootfiles")
	for _, p := range rootfiles {
		rf := list.CreateElement("rootfile")
		rf.CreateAttr("full-path", p)
		rf.CreateAttr("media-type", packageMediaType)
	}

	return serialize(doc, "container document")
}

// marshalNav renders the catalog as an XHTML navigation document. Hrefs are
// written as given: the document lives in the rootfile directory.
func (b *Builder) marshalNav() ([]byte, error) {
	doc := newXMLDocument()
	doc.CreateDirective("DOCTYPE html")
	// HTML parsers treat <a/> as an open tag.
	doc.WriteSettings.CanonicalEndTags = true

	root := doc.CreateElement("html")
	root.CreateAttr("xmlns", xhtmlNamespace)
	root.CreateAttr("xmlns:epub", opsNamespace)

	head := root.CreateElement("head")
	head.CreateElement("title").SetText(b.catalogTitle)

	body := root.CreateElement("body")
	nav := body.CreateElement("nav")
	nav.CreateAttr("epub:type", "toc")
	if b.catalogTitle != "" {
		nav.CreateElement("h1").SetText(b.catalogTitle)
	}
	writeNavList(nav, b.catalog)

	return serialize(doc, "navigation document")
}

func writeNavList(parent *etree.Element, points []NavPoint) {
	ol := parent.CreateElement("ol")
	for _, np := range points {
		li := ol.CreateElement("li")
		var label *etree.Element
		if np.Content != "" {
			label = li.CreateElement("a")
			label.CreateAttr("href", np.Content)
		} else {
			label = li.CreateElement("span")
		}
		label.SetText(np.Label)
		if len(np.Children) > 0 {
			writeNavList(li, np.Children)
		}
	}
}

// marshalPackage renders the package document for the first rootfile.
func (b *Builder) marshalPackage() ([]byte, error) {
	rootDir := b.rootDir()

	doc := newXMLDocument()
	pkg := doc.CreateElement("package")
	pkg.CreateAttr("xmlns", opfNamespace)
	pkg.CreateAttr("xmlns:dc", dcNamespace)
	pkg.CreateAttr("unique-identifier", uniqueIdentifierID)
	pkg.CreateAttr("version", Version3.String())

	metadata := pkg.CreateElement("metadata")
	for _, m := range b.metadata {
		writeMetadataItem(metadata, m)
	}
	for _, l := range b.links {
		writeLink(metadata, l)
	}

	manifest := pkg.CreateElement("manifest")
	ncxID := ""
	for _, item := range b.Manifest() {
		el := manifest.CreateElement("item")
		el.CreateAttr("id", item.ID)
		el.CreateAttr("href", relativeHref(rootDir, item.Path))
		el.CreateAttr("media-type", item.MediaType)
		setAttrIf(el, "properties", item.Properties)
		setAttrIf(el, "fallback", item.Fallback)
		if ncxID == "" && baseMediaType(item.MediaType) == ncxMediaType {
			ncxID = item.ID
		}
	}

	spine := pkg.CreateElement("spine")
	setAttrIf(spine, "toc", ncxID)
	for _, s := range b.spine {
		ref := spine.CreateElement("itemref")
		ref.CreateAttr("idref", s.IDRef)
		setAttrIf(ref, "id", s.ID)
		setAttrIf(ref, "properties", s.Properties)
		if s.Linear {
			ref.CreateAttr("linear", "yes")
		} else {
			ref.CreateAttr("linear", "no")
		}
	}

	return serialize(doc, "package document")
}

// writeMetadataItem writes m followed by its refinements. Dublin Core
// properties become dc:* elements and bare names such as "cover" a legacy
// name/content <meta>. Everything else, including any item that carries an
// id or refinements, becomes a <meta property>.
func writeMetadataItem(parent *etree.Element, m MetadataItem) {
	var el *etree.Element
	switch {
	case isDCElement(m.Property):
		el = parent.CreateElement("dc:" + m.Property)
		el.SetText(m.Value)
	case isLegacyMeta(m):
		el = parent.CreateElement("meta")
		el.CreateAttr("name", m.Property)
		el.CreateAttr("content", m.Value)
	default:
		el = parent.CreateElement("meta")
		el.CreateAttr("property", m.Property)
		el.SetText(m.Value)
	}
	setAttrIf(el, "id", m.ID)
	setAttrIf(el, "xml:lang", m.Lang)

	if m.ID == "" {
		return
	}
	for _, r := range m.Refinements {
		ref := parent.CreateElement("meta")
		ref.CreateAttr("refines", "#"+m.ID)
		ref.CreateAttr("property", r.Property)
		setAttrIf(ref, "xml:lang", r.Lang)
		setAttrIf(ref, "scheme", r.Scheme)
		ref.SetText(r.Value)
	}
}

func writeLink(parent *etree.Element, l MetadataLinkItem) {
	el := parent.CreateElement("link")
	el.CreateAttr("href", l.Href)
	el.CreateAttr("rel", l.Rel)
	setAttrIf(el, "hreflang", l.HrefLang)
	setAttrIf(el, "id", l.ID)
	setAttrIf(el, "media-type", l.MediaType)
	setAttrIf(el, "properties", l.Properties)
	if l.Refines != "" {
		el.CreateAttr("refines", "#"+strings.TrimPrefix(l.Refines, "#"))
	}
}

func setAttrIf(el *etree.Element, key, value string) {
	if value != "" {
		el.CreateAttr(key, value)
	}
}
