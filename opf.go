package epub

import (
	"fmt"
	"strings"

	"github.com/simp-lee/epub/v2/internal/xmltree"
)

const (
	dcNamespace  = "http://purl.org/dc/elements/1.1/"
	opfNamespace = "http://www.idpf.org/2007/opf"
)

// packageDocument is the parsed content of the package (OPF) file.
type packageDocument struct {
	version          Version
	uniqueIdentifier string // value of the unique-identifier attribute
	metadata         []MetadataItem
	links            []MetadataLinkItem
	manifest         map[string]ManifestItem
	manifestOrder    []string
	spine            []SpineItem
	spineTOC         string
	warnings         []string
}

// parsePackage parses the package document found at packagePath. Manifest
// hrefs are normalized against the package directory.
func parsePackage(data []byte, packagePath string) (*packageDocument, error) {
	root, err := xmltree.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("epub: parse package document: %w", err)
	}

	version, err := detectVersion(root)
	if err != nil {
		return nil, err
	}

	pkg := &packageDocument{
		version:          version,
		uniqueIdentifier: strings.TrimSpace(root.AttrValue("unique-identifier", "")),
	}

	metadata := root.Find("metadata")
	if metadata == nil {
		return nil, &NonCanonicalError{Tag: "metadata"}
	}
	if err := pkg.parseMetadata(metadata); err != nil {
		return nil, err
	}

	manifest := root.Find("manifest")
	if manifest == nil {
		return nil, &NonCanonicalError{Tag: "manifest"}
	}
	if err := pkg.parseManifest(manifest, dirOf(packagePath)); err != nil {
		return nil, err
	}

	spine := root.Find("spine")
	if spine == nil {
		return nil, &NonCanonicalError{Tag: "spine"}
	}
	if err := pkg.parseSpine(spine); err != nil {
		return nil, err
	}

	return pkg, nil
}

func (p *packageDocument) warnf(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

// parseMetadata dispatches each metadata child on its namespace. Modern
// refinements are collected in a pool and merged once every element has been
// seen, so a refinement may precede the item it refines.
func (p *packageDocument) parseMetadata(el *xmltree.Element) error {
	refinements := make(map[string][]MetadataRefinement)
	var refineOrder []string

	for _, child := range el.Children() {
		switch child.Namespace() {
		case dcNamespace:
			p.metadata = append(p.metadata, p.parseDCElement(child))

		case opfNamespace:
			switch child.Name() {
			case "meta":
				r, err := p.parseMetaElement(child)
				if err != nil {
					return err
				}
				if r != nil {
					if _, seen := refinements[r.Refines]; !seen {
						refineOrder = append(refineOrder, r.Refines)
					}
					refinements[r.Refines] = append(refinements[r.Refines], *r)
				}
			case "link":
				link, err := parseLinkElement(child)
				if err != nil {
					return err
				}
				p.links = append(p.links, link)
			}
		}
	}

	for i := range p.metadata {
		id := p.metadata[i].ID
		if id == "" {
			continue
		}
		if rs, ok := refinements[id]; ok {
			p.metadata[i].Refinements = append(p.metadata[i].Refinements, rs...)
			delete(refinements, id)
		}
	}
	for _, id := range refineOrder {
		if _, dangling := refinements[id]; dangling {
			p.warnf("metadata refinement targets unknown id %q", id)
		}
	}
	return nil
}

// parseDCElement converts a Dublin Core element. In legacy packages the
// element's own attributes (opf:role, opf:file-as, ...) become refinements,
// provided the element has an id to attach them to.
func (p *packageDocument) parseDCElement(el *xmltree.Element) MetadataItem {
	item := MetadataItem{
		ID:       el.AttrValue("id", ""),
		Property: el.Name(),
		Value:    normalizeSpace(el.Text()),
		Lang:     el.AttrValue("xml:lang", ""),
	}

	if p.version == Version2 && item.ID != "" {
		for _, a := range el.Attrs() {
			if a.Name == "id" || (a.Prefix == "xml" && a.Name == "lang") {
				continue
			}
			item.Refinements = append(item.Refinements, MetadataRefinement{
				Refines:  item.ID,
				Property: a.Name,
				Value:    normalizeSpace(a.Value),
			})
		}
	}
	return item
}

// parseMetaElement handles an OPF <meta>. It either appends a standalone
// item to p.metadata or returns a refinement for the caller to pool.
func (p *packageDocument) parseMetaElement(el *xmltree.Element) (*MetadataRefinement, error) {
	property, hasProperty := el.Attr("property")
	if p.version == Version2 || !hasProperty {
		if p.version == Version3 {
			if _, hasName := el.Attr("name"); !hasName {
				return nil, &MissingAttributeError{Tag: el.TagName(), Attribute: "property"}
			}
		}
		name, ok := el.Attr("name")
		if !ok {
			return nil, &NonCanonicalError{Tag: el.TagName()}
		}
		content, ok := el.Attr("content")
		if !ok {
			return nil, &MissingAttributeError{Tag: el.TagName(), Attribute: "content"}
		}
		p.metadata = append(p.metadata, MetadataItem{
			ID:       el.AttrValue("id", ""),
			Property: name,
			Value:    normalizeSpace(content),
			Lang:     el.AttrValue("xml:lang", ""),
		})
		return nil, nil
	}

	value := normalizeSpace(el.Text())
	lang := el.AttrValue("xml:lang", "")

	if refines, ok := el.Attr("refines"); ok {
		return &MetadataRefinement{
			Refines:  strings.TrimPrefix(strings.TrimSpace(refines), "#"),
			Property: property,
			Value:    value,
			Lang:     lang,
			Scheme:   el.AttrValue("scheme", ""),
		}, nil
	}

	p.metadata = append(p.metadata, MetadataItem{
		ID:       el.AttrValue("id", ""),
		Property: property,
		Value:    value,
		Lang:     lang,
	})
	return nil, nil
}

func parseLinkElement(el *xmltree.Element) (MetadataLinkItem, error) {
	href, ok := el.Attr("href")
	if !ok {
		return MetadataLinkItem{}, &MissingAttributeError{Tag: el.TagName(), Attribute: "href"}
	}
	rel, ok := el.Attr("rel")
	if !ok {
		return MetadataLinkItem{}, &MissingAttributeError{Tag: el.TagName(), Attribute: "rel"}
	}
	return MetadataLinkItem{
		Href:       href,
		Rel:        rel,
		HrefLang:   el.AttrValue("hreflang", ""),
		ID:         el.AttrValue("id", ""),
		MediaType:  el.AttrValue("media-type", ""),
		Properties: el.AttrValue("properties", ""),
		Refines:    strings.TrimPrefix(el.AttrValue("refines", ""), "#"),
	}, nil
}

func (p *packageDocument) parseManifest(el *xmltree.Element, baseDir string) error {
	children := el.Children()
	p.manifest = make(map[string]ManifestItem, len(children))
	p.manifestOrder = make([]string, 0, len(children))

	for _, child := range children {
		id, ok := child.Attr("id")
		if !ok {
			return &MissingAttributeError{Tag: child.TagName(), Attribute: "id"}
		}
		href, ok := child.Attr("href")
		if !ok {
			return &MissingAttributeError{Tag: child.TagName(), Attribute: "href"}
		}
		mediaType, ok := child.Attr("media-type")
		if !ok {
			return &MissingAttributeError{Tag: child.TagName(), Attribute: "media-type"}
		}

		resolved, err := NormalizePath(baseDir, strings.TrimSpace(href))
		if err != nil {
			return err
		}

		if _, dup := p.manifest[id]; dup {
			p.warnf("duplicate manifest id %q; the later item wins", id)
		} else {
			p.manifestOrder = append(p.manifestOrder, id)
		}
		p.manifest[id] = ManifestItem{
			ID:         id,
			Path:       resolved,
			MediaType:  strings.TrimSpace(mediaType),
			Properties: child.AttrValue("properties", ""),
			Fallback:   child.AttrValue("fallback", ""),
		}
	}
	return nil
}

func (p *packageDocument) parseSpine(el *xmltree.Element) error {
	p.spineTOC = strings.TrimSpace(el.AttrValue("toc", ""))

	for _, child := range el.Children() {
		idref, ok := child.Attr("idref")
		if !ok {
			return &MissingAttributeError{Tag: child.TagName(), Attribute: "idref"}
		}
		p.spine = append(p.spine, SpineItem{
			IDRef:      idref,
			ID:         child.AttrValue("id", ""),
			Properties: child.AttrValue("properties", ""),
			Linear:     strings.TrimSpace(child.AttrValue("linear", "")) != "no",
		})
	}
	return nil
}

// resolveUniqueIdentifier returns the value of the identifier the package
// names as unique, or the first identifier when the package names none.
func (p *packageDocument) resolveUniqueIdentifier() (string, error) {
	for _, item := range p.metadata {
		if item.Property != "identifier" {
			continue
		}
		if p.uniqueIdentifier == "" || item.ID == p.uniqueIdentifier {
			return item.Value, nil
		}
	}
	return "", &NonCanonicalError{Tag: "dc:identifier"}
}

// normalizeSpace collapses whitespace runs to a single space and trims.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
