// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package xmltree parses repository responses into etree element trees and
// writes subtrees back out as standalone documents. Element and attribute
// prefixes are kept as written, and character data stays interleaved with
// child elements in document order.
package xmltree

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
)

// Declaration is the XML declaration written by Document.
const Declaration = `<?xml version="1.0" encoding="UTF-8" standalone="no"?>`

// ErrNoRoot is returned when the input holds no element at all.
var ErrNoRoot = errors.New("no root element")

// Parse decodes a complete XML document and returns its root element. The
// input must be well-formed: exactly one root element, matching end tags,
// and no character data outside the root other than whitespace.
func Parse(s string) (*etree.Element, error) {
	// etree reads raw tokens, so tag balance is checked with a strict pass.
	if err := checkBalanced(s); err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(s); err != nil {
		return nil, err
	}

	var root *etree.Element
	for _, tok := range doc.Child {
		switch t := tok.(type) {
		case *etree.Element:
			if root != nil {
				return nil, fmt.Errorf("second root element <%s>", t.FullTag())
			}
			root = t
		case *etree.CharData:
			if !t.IsWhitespace() {
				return nil, errors.New("character data outside the root element")
			}
		}
	}
	if root == nil {
		return nil, ErrNoRoot
	}
	return root, nil
}

func checkBalanced(s string) error {
	d := xml.NewDecoder(strings.NewReader(s))
	d.Strict = true
	for {
		_, err := d.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// ChildText returns the trimmed leading text of the first child element
// with the given tag, or "" when there is none. The tag matches any prefix.
func ChildText(el *etree.Element, tag string) string {
	if el == nil {
		return ""
	}
	c := el.SelectElement(tag)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Text())
}

// Text returns all character data under el, in document order.
func Text(el *etree.Element) string {
	var b strings.Builder
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, tok := range e.Child {
			switch t := tok.(type) {
			case *etree.CharData:
				b.WriteString(t.Data)
			case *etree.Element:
				walk(t)
			}
		}
	}
	walk(el)
	return b.String()
}

// Document serializes a copy of el as a standalone UTF-8 document,
// pretty-printed with one tab per nesting level. Namespace declarations el
// inherits from its ancestors are re-declared on the copy. Elements holding
// text of their own are written as decoded, so mixed content keeps its
// exact character data.
func Document(el *etree.Element) string {
	c := el.Copy()
	for _, a := range inheritedNamespaces(el) {
		c.CreateAttr(a.FullKey(), a.Value)
	}
	indent(c, 0)

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="no"`)
	doc.CreateText("\n")
	doc.SetRoot(c)
	// Writing to memory cannot fail.
	s, _ := doc.WriteToString()
	return s
}

// inheritedNamespaces returns the namespace declarations in scope at el
// that el does not make itself, nearest ancestor first.
func inheritedNamespaces(el *etree.Element) []etree.Attr {
	declared := make(map[string]bool)
	for _, a := range el.Attr {
		if isNamespaceDecl(a) {
			declared[a.FullKey()] = true
		}
	}
	var out []etree.Attr
	for p := el.Parent(); p != nil; p = p.Parent() {
		for _, a := range p.Attr {
			if isNamespaceDecl(a) && !declared[a.FullKey()] {
				declared[a.FullKey()] = true
				out = append(out, a)
			}
		}
	}
	return out
}

func isNamespaceDecl(a etree.Attr) bool {
	return a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns")
}

// indent replaces whitespace between the child elements of el with a
// newline and tabs. Leaves and mixed-content elements are left untouched.
func indent(el *etree.Element, depth int) {
	if len(el.ChildElements()) == 0 || hasText(el) {
		return
	}
	for i := len(el.Child) - 1; i >= 0; i-- {
		if _, ok := el.Child[i].(*etree.CharData); ok {
			el.RemoveChildAt(i)
		}
	}

	pad := "\n" + strings.Repeat("\t", depth+1)
	for i := len(el.Child) - 1; i >= 0; i-- {
		if ce, ok := el.Child[i].(*etree.Element); ok {
			indent(ce, depth+1)
		}
		el.InsertChildAt(i, etree.NewText(pad))
	}
	el.AddChild(etree.NewText("\n" + strings.Repeat("\t", depth)))
}

func hasText(el *etree.Element) bool {
	for _, tok := range el.Child {
		if cd, ok := tok.(*etree.CharData); ok && !cd.IsWhitespace() {
			return true
		}
	}
	return false
}
