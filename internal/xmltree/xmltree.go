// Package xmltree is a small read-only element tree over beevik/etree.
//
// It exposes exactly what the package resolver needs: local names, resolved
// namespaces, attribute lookup, concatenated text, searches by local name
// and XPath selection.
// Searches are iterative so hostile nesting depth cannot grow the call stack.
package xmltree

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrEmpty is returned when asked to parse an empty byte slice.
var ErrEmpty = errors.New("xmltree: empty document")

// Element is a node of a parsed XML document.
type Element struct {
	el *etree.Element
}

// Attr is a single non-namespace-declaration attribute.
type Attr struct {
	Prefix string
	Name   string
	Value  string
}

// FullName returns the attribute name including its prefix, if any.
func (a Attr) FullName() string {
	if a.Prefix == "" {
		return a.Name
	}
	return a.Prefix + ":" + a.Name
}

// Decode converts raw document bytes to UTF-8. A UTF-8 BOM is stripped and
// UTF-16 input (either byte order) is recognised by its BOM.
func Decode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return nil, fmt.Errorf("xmltree: decode: %w", err)
	}
	return out, nil
}

// Parse decodes data and returns the document's root element.
func Parse(data []byte) (*Element, error) {
	text, err := Decode(data)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	doc.ReadSettings.Entity = htmlEntities
	// The text is UTF-8 by now whatever the declaration says.
	doc.ReadSettings.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := doc.ReadFromBytes(text); err != nil {
		return nil, fmt.Errorf("xmltree: parse: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("xmltree: parse: no root element")
	}
	return &Element{el: root}, nil
}

// Name returns the element's local name.
func (e *Element) Name() string { return e.el.Tag }

// Prefix returns the namespace prefix used in the source, if any.
func (e *Element) Prefix() string { return e.el.Space }

// TagName returns the qualified name as written in the source.
func (e *Element) TagName() string { return e.el.FullTag() }

// Namespace returns the namespace URI the element's prefix resolves to,
// taking the in-scope default namespace into account.
func (e *Element) Namespace() string { return e.el.NamespaceURI() }

// Attr looks an attribute up by name. A qualified name ("epub:type") must
// match prefix and local name; an unqualified name matches the first
// attribute with that local name regardless of prefix, so "lang" finds
// "xml:lang".
func (e *Element) Attr(name string) (string, bool) {
	if a := e.el.SelectAttr(name); a != nil && !isNamespaceDecl(*a) {
		return a.Value, true
	}
	return "", false
}

// AttrValue is Attr with a default for missing attributes.
func (e *Element) AttrValue(name, dflt string) string {
	if v, ok := e.Attr(name); ok {
		return v
	}
	return dflt
}

// Attrs returns the element's attributes in source order, without xmlns
// declarations.
func (e *Element) Attrs() []Attr {
	out := make([]Attr, 0, len(e.el.Attr))
	for _, a := range e.el.Attr {
		if isNamespaceDecl(a) {
			continue
		}
		out = append(out, Attr{Prefix: a.Space, Name: a.Key, Value: a.Value})
	}
	return out
}

// Text returns the concatenated character data of the element and all of
// its descendants, trimmed of surrounding whitespace.
func (e *Element) Text() string {
	return strings.TrimSpace(innerText(e.el))
}

// Children returns the element's child elements in document order.
func (e *Element) Children() []*Element {
	kids := e.el.ChildElements()
	out := make([]*Element, len(kids))
	for i, k := range kids {
		out[i] = &Element{el: k}
	}
	return out
}

// ChildrenNamed returns the child elements whose local name is one of names.
func (e *Element) ChildrenNamed(names ...string) []*Element {
	var out []*Element
	for _, k := range e.el.ChildElements() {
		for _, n := range names {
			if k.Tag == n {
				out = append(out, &Element{el: k})
				break
			}
		}
	}
	return out
}

// Child returns the first child element with the given local name.
func (e *Element) Child(name string) *Element {
	for _, k := range e.el.ChildElements() {
		if k.Tag == name {
			return &Element{el: k}
		}
	}
	return nil
}

// FindAll returns the element itself and every descendant whose local name
// matches, in document (pre-)order.
func (e *Element) FindAll(name string) []*Element {
	var out []*Element
	stack := []*etree.Element{e.el}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.Tag == name {
			out = append(out, &Element{el: cur})
		}
		kids := cur.ChildElements()
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return out
}

// Find returns the first element FindAll would return, or nil.
func (e *Element) Find(name string) *Element {
	stack := []*etree.Element{e.el}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.Tag == name {
			return &Element{el: cur}
		}
		kids := cur.ChildElements()
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return nil
}

func isNamespaceDecl(a etree.Attr) bool {
	return a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns")
}
