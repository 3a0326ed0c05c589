package epub

import (
	"bytes"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/simp-lee/epub/v2/internal/xmltree"
)

// navigation is the table of contents read from an NCX or nav document.
type navigation struct {
	title    string
	points   []NavPoint
	path     string // container-root-relative path of the TOC document
	warnings []string
}

// parseNavigation locates and parses the table of contents. The version
// decides the source: legacy packages use the NCX named by the spine's toc
// attribute, modern packages the manifest item with the "nav" property.
func parseNavigation(version Version, pkg *packageDocument, ar *archive) (*navigation, error) {
	switch version {
	case Version2:
		if pkg.spineTOC == "" {
			return nil, &MissingAttributeError{Tag: "spine", Attribute: "toc"}
		}
		item, ok := pkg.manifest[pkg.spineTOC]
		if !ok {
			return nil, &ResourceIDError{ID: pkg.spineTOC}
		}
		data, err := ar.read(item.Path)
		if err != nil {
			return nil, err
		}
		nav, err := parseNCX(data)
		if err != nil {
			return nil, err
		}
		nav.path = item.Path
		return nav, nil

	default:
		var navItem *ManifestItem
		for _, id := range pkg.manifestOrder {
			if item := pkg.manifest[id]; item.HasProperty("nav") {
				navItem = &item
				break
			}
		}
		if navItem == nil {
			return nil, &NonCanonicalError{File: "Navigation Document"}
		}
		data, err := ar.read(navItem.Path)
		if err != nil {
			return nil, err
		}
		nav, err := parseNavDocument(data)
		if err != nil {
			return nil, err
		}
		nav.path = navItem.Path
		return nav, nil
	}
}

// parseNCX parses a legacy NCX document. navPoint nesting is walked with an
// explicit stack; siblings are ordered by playOrder.
func parseNCX(data []byte) (*navigation, error) {
	root, err := xmltree.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("epub: parse NCX: %w", err)
	}

	nav := &navigation{}
	if docTitle := root.Find("docTitle"); docTitle != nil {
		nav.title = normalizeSpace(docTitle.Text())
	} else {
		nav.warnings = append(nav.warnings, "NCX document has no docTitle")
	}

	navMap := root.Find("navMap")
	if navMap == nil {
		return nil, &NonCanonicalError{Tag: "navMap"}
	}

	type frame struct {
		el  *xmltree.Element
		dst *[]NavPoint
	}
	stack := []frame{{el: navMap, dst: &nav.points}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		kids := f.el.ChildrenNamed("navPoint")
		if len(kids) == 0 {
			continue
		}

		type pending struct {
			point NavPoint
			el    *xmltree.Element
		}
		entries := make([]pending, len(kids))
		for i, k := range kids {
			np := NavPoint{}
			if label := k.Child("navLabel"); label != nil {
				np.Label = normalizeSpace(label.Text())
			}
			if content := k.Child("content"); content != nil {
				np.Content = strings.TrimSpace(content.AttrValue("src", ""))
			}
			if po, ok := k.Attr("playOrder"); ok {
				if n, err := strconv.Atoi(strings.TrimSpace(po)); err == nil {
					np.PlayOrder = &n
				}
			}
			entries[i] = pending{point: np, el: k}
		}
		sort.SliceStable(entries, func(i, j int) bool {
			return playOrderLess(entries[i].point.PlayOrder, entries[j].point.PlayOrder)
		})

		points := make([]NavPoint, len(entries))
		for i := range entries {
			points[i] = entries[i].point
		}
		*f.dst = points
		for i := range points {
			stack = append(stack, frame{el: entries[i].el, dst: &points[i].Children})
		}
	}
	return nav, nil
}

var headingTags = []string{"h1", "h2", "h3", "h4", "h5", "h6"}

// parseNavDocument parses a modern XHTML navigation document. The toc nav is
// required; its first heading gives the title and its first <ol> the tree.
func parseNavDocument(data []byte) (*navigation, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("epub: parse nav document: %w", err)
	}

	var tocNav *html.Node
	for _, n := range findAllElements(doc, "nav") {
		if hasEpubType(n, "toc") {
			tocNav = n
			break
		}
	}
	if tocNav == nil {
		return nil, &NonCanonicalError{Tag: "nav"}
	}

	nav := &navigation{}
	if h := findFirstChildElement(tocNav, headingTags...); h != nil {
		nav.title = normalizeSpace(nodeTextContent(h))
	}

	ol := findFirstChildElement(tocNav, "ol")
	if ol == nil {
		return nil, &NonCanonicalError{Tag: "ol"}
	}

	type frame struct {
		ol  *html.Node
		dst *[]NavPoint
	}
	stack := []frame{{ol: ol, dst: &nav.points}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var points []NavPoint
		var nested []*html.Node
		for li := f.ol.FirstChild; li != nil; li = li.NextSibling {
			if li.Type != html.ElementNode {
				continue
			}
			if li.Data != "li" {
				return nil, &NonCanonicalError{Tag: "li"}
			}

			var label, sublist *html.Node
			labels := 0
			for c := li.FirstChild; c != nil; c = c.NextSibling {
				if c.Type != html.ElementNode {
					continue
				}
				switch c.Data {
				case "a", "span":
					if label == nil {
						label = c
					}
					labels++
				case "ol":
					if sublist == nil {
						sublist = c
					}
				}
			}
			if label == nil {
				return nil, &NonCanonicalError{Tag: "span/a"}
			}
			if labels > 1 {
				nav.warnings = append(nav.warnings, fmt.Sprintf("nav list item %q has %d labels; using the first", normalizeSpace(nodeTextContent(label)), labels))
			}

			np := NavPoint{Label: normalizeSpace(nodeTextContent(label))}
			if label.Data == "a" {
				np.Content = strings.TrimSpace(navGetAttr(label, "href"))
			}
			points = append(points, np)
			nested = append(nested, sublist)
		}

		*f.dst = points
		for i, sub := range nested {
			if sub != nil {
				stack = append(stack, frame{ol: sub, dst: &points[i].Children})
			}
		}
	}
	return nav, nil
}

// hasEpubType checks whether n has an epub:type attribute containing the given token
// (space-separated token matching).
func hasEpubType(n *html.Node, typeName string) bool {
	return slices.Contains(strings.Fields(navGetAttr(n, "epub:type")), typeName)
}

// navGetAttr returns the value of the attribute with the given key on n.
func navGetAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// findFirstChildElement returns the first descendant of n, in document order,
// whose tag is one of tags.
func findFirstChildElement(n *html.Node, tags ...string) *html.Node {
	stack := childrenReversed(n, nil)
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if c.Type == html.ElementNode && slices.Contains(tags, c.Data) {
			return c
		}
		stack = childrenReversed(c, stack)
	}
	return nil
}

// findAllElements returns every descendant element of n with the given tag
// in document order.
func findAllElements(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	stack := childrenReversed(n, nil)
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if c.Type == html.ElementNode && c.Data == tag {
			out = append(out, c)
		}
		stack = childrenReversed(c, stack)
	}
	return out
}

// nodeTextContent collects all text content within a node.
func nodeTextContent(n *html.Node) string {
	var sb strings.Builder
	stack := []*html.Node{n}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
			continue
		}
		stack = childrenReversed(c, stack)
	}
	return sb.String()
}

// childrenReversed pushes n's children onto stack last-first, so popping
// yields them in document order.
func childrenReversed(n *html.Node, stack []*html.Node) []*html.Node {
	for c := n.LastChild; c != nil; c = c.PrevSibling {
		stack = append(stack, c)
	}
	return stack
}
