package xmltree

import (
	"bytes"
	"strings"

	"github.com/antchfx/xpath"
	"github.com/beevik/etree"
)

// Select evaluates expr with e as the context node and returns the matching
// elements in document order. Absolute paths start at the document node.
func (e *Element) Select(expr *xpath.Expr) []*Element {
	var out []*Element
	iter := expr.Select(newNavigator(e.el))
	for iter.MoveNext() {
		nav, ok := iter.Current().(*navigator)
		if !ok || nav.attr != -1 {
			continue
		}
		if el, ok := nav.curr.(*etree.Element); ok && el.Parent() != nil {
			out = append(out, &Element{el: el})
		}
	}
	return out
}

// SelectFirst returns the first element Select would return, or nil.
func (e *Element) SelectFirst(expr *xpath.Expr) *Element {
	iter := expr.Select(newNavigator(e.el))
	for iter.MoveNext() {
		nav, ok := iter.Current().(*navigator)
		if !ok || nav.attr != -1 {
			continue
		}
		if el, ok := nav.curr.(*etree.Element); ok && el.Parent() != nil {
			return &Element{el: el}
		}
	}
	return nil
}

// XML returns the element serialized as written, including its descendants.
func (e *Element) XML() string {
	var buf bytes.Buffer
	e.el.WriteTo(&buf, &etree.WriteSettings{})
	return buf.String()
}

// navigator is an xpath.NodeNavigator over an etree tree. It walks
// elements, character data and comments; directives and processing
// instructions are invisible to queries.
type navigator struct {
	root *etree.Element
	curr etree.Token
	attr int
}

func newNavigator(el *etree.Element) *navigator {
	root := el
	for root.Parent() != nil {
		root = root.Parent()
	}
	return &navigator{root: root, curr: el, attr: -1}
}

func navigable(tok etree.Token) bool {
	switch tok.(type) {
	case *etree.Element, *etree.CharData, *etree.Comment:
		return true
	}
	return false
}

func (n *navigator) NodeType() xpath.NodeType {
	switch t := n.curr.(type) {
	case *etree.Element:
		if n.attr != -1 {
			return xpath.AttributeNode
		}
		if t.Parent() == nil {
			return xpath.RootNode
		}
		return xpath.ElementNode
	case *etree.CharData:
		return xpath.TextNode
	default:
		return xpath.CommentNode
	}
}

func (n *navigator) LocalName() string {
	el, ok := n.curr.(*etree.Element)
	if !ok {
		return ""
	}
	if n.attr != -1 {
		return el.Attr[n.attr].Key
	}
	return el.Tag
}

func (n *navigator) Prefix() string {
	el, ok := n.curr.(*etree.Element)
	if !ok {
		return ""
	}
	if n.attr != -1 {
		return el.Attr[n.attr].Space
	}
	return el.Space
}

func (n *navigator) NamespaceURL() string {
	el, ok := n.curr.(*etree.Element)
	if !ok {
		return ""
	}
	if n.attr != -1 {
		return el.Attr[n.attr].NamespaceURI()
	}
	return el.NamespaceURI()
}

func (n *navigator) Value() string {
	switch t := n.curr.(type) {
	case *etree.Element:
		if n.attr != -1 {
			return t.Attr[n.attr].Value
		}
		return innerText(t)
	case *etree.CharData:
		return t.Data
	case *etree.Comment:
		return t.Data
	}
	return ""
}

func (n *navigator) Copy() xpath.NodeNavigator {
	c := *n
	return &c
}

func (n *navigator) MoveToRoot() {
	n.curr = n.root
	n.attr = -1
}

func (n *navigator) MoveToParent() bool {
	if n.attr != -1 {
		n.attr = -1
		return true
	}
	if p := n.curr.Parent(); p != nil {
		n.curr = p
		return true
	}
	return false
}

func (n *navigator) MoveToNextAttribute() bool {
	el, ok := n.curr.(*etree.Element)
	if !ok || n.attr >= len(el.Attr)-1 {
		return false
	}
	n.attr++
	return true
}

func (n *navigator) MoveToChild() bool {
	el, ok := n.curr.(*etree.Element)
	if !ok || n.attr != -1 {
		return false
	}
	for _, c := range el.Child {
		if navigable(c) {
			n.curr = c
			return true
		}
	}
	return false
}

func (n *navigator) MoveToFirst() bool {
	p := n.curr.Parent()
	if n.attr != -1 || p == nil {
		return false
	}
	for _, c := range p.Child[:n.curr.Index()] {
		if navigable(c) {
			n.curr = c
			return true
		}
	}
	return false
}

func (n *navigator) MoveToNext() bool {
	p := n.curr.Parent()
	if n.attr != -1 || p == nil {
		return false
	}
	for _, c := range p.Child[n.curr.Index()+1:] {
		if navigable(c) {
			n.curr = c
			return true
		}
	}
	return false
}

func (n *navigator) MoveToPrevious() bool {
	p := n.curr.Parent()
	if n.attr != -1 || p == nil {
		return false
	}
	for i := n.curr.Index() - 1; i >= 0; i-- {
		if c := p.Child[i]; navigable(c) {
			n.curr = c
			return true
		}
	}
	return false
}

func (n *navigator) MoveTo(other xpath.NodeNavigator) bool {
	o, ok := other.(*navigator)
	if !ok || o.root != n.root {
		return false
	}
	n.curr = o.curr
	n.attr = o.attr
	return true
}

// innerText concatenates the character data below el without trimming.
func innerText(el *etree.Element) string {
	var sb strings.Builder
	stack := []etree.Token{el}
	for len(stack) > 0 {
		tok := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch t := tok.(type) {
		case *etree.CharData:
			sb.WriteString(t.Data)
		case *etree.Element:
			for i := len(t.Child) - 1; i >= 0; i-- {
				stack = append(stack, t.Child[i])
			}
		}
	}
	return sb.String()
}
