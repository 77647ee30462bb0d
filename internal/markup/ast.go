// Package markup parses template source files into a position-annotated tree.
//
// A source file is a sequence of nodes: tags (<name .class#id attr="v">...</name>),
// script expressions ({ ... }) and string literals ("...", r#"..."#, b"\x00").
// Everything else outside of whitespace and comments is a syntax error.
package markup

import (
	"fmt"
	"strings"
)

// RootTag is the name of the synthetic element wrapping a parsed file.
const RootTag = "fragment"

// Origin records where a node came from.
type Origin struct {
	File        string
	Offset      int // byte offset into File
	Depth       int // nesting depth, 0 for the synthetic root
	TokenLength int // bytes covered by the node, including any closing tag
}

// End returns the offset just past the node.
func (o Origin) End() int {
	return o.Offset + o.TokenLength
}

func (o Origin) String() string {
	return fmt.Sprintf("%s@%d", o.File, o.Offset)
}

// Body is a child node of an Element: *Element, *Expression or *Literal.
type Body interface {
	Pos() Origin
	body() // marker method to restrict implementation
}

// Attribute is a name/value pair from an opening tag.
type Attribute struct {
	Name  string
	Value string
	// Bare is set for name-only attributes, which are only kept when
	// ParseOptions.BareAttributes is enabled.
	Bare   bool
	Origin Origin
}

// Element is a tag with its attributes and children.
type Element struct {
	Name       string // lower case
	Attributes []Attribute
	Body       []Body
	Origin     Origin
}

func (e *Element) Pos() Origin { return e.Origin }
func (e *Element) body()       {}

// Attr returns the value of the first attribute with the given name.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Attribute returns the first attribute with the given name.
func (e *Element) Attribute(name string) (Attribute, bool) {
	for _, a := range e.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// WithBody returns a shallow copy of e carrying body instead of e.Body.
// The receiver is left untouched so parsed trees can be shared.
func (e *Element) WithBody(body []Body) *Element {
	attrs := make([]Attribute, len(e.Attributes))
	copy(attrs, e.Attributes)
	return &Element{
		Name:       e.Name,
		Attributes: attrs,
		Body:       body,
		Origin:     e.Origin,
	}
}

// Expression is the opaque text between a pair of matching braces.
type Expression struct {
	Source string
	Origin Origin
}

func (x *Expression) Pos() Origin { return x.Origin }
func (x *Expression) body()       {}

// Literal is a decoded string literal. Bytes rather than text because byte
// strings may hold anything.
type Literal struct {
	Value        []byte
	IsByteString bool
	Origin       Origin
}

func (l *Literal) Pos() Origin { return l.Origin }
func (l *Literal) body()       {}

// String returns the literal as text.
func (l *Literal) String() string {
	return string(l.Value)
}

// Dump writes an indented debug rendering of the tree.
func (e *Element) Dump() string {
	var b strings.Builder
	dumpElement(&b, e)
	return b.String()
}

func dumpElement(b *strings.Builder, e *Element) {
	indent := strings.Repeat("    ", e.Origin.Depth)
	b.WriteString(indent)
	b.WriteByte('<')
	b.WriteString(e.Name)
	for _, a := range e.Attributes {
		if a.Bare {
			fmt.Fprintf(b, " %s", a.Name)
			continue
		}
		fmt.Fprintf(b, " %s=%q", a.Name, a.Value)
	}
	if len(e.Body) == 0 {
		b.WriteString(" />")
		return
	}
	b.WriteByte('>')
	for _, child := range e.Body {
		b.WriteByte('\n')
		switch n := child.(type) {
		case *Element:
			dumpElement(b, n)
		case *Expression:
			fmt.Fprintf(b, "%s{%s}", strings.Repeat("    ", n.Origin.Depth), n.Source)
		case *Literal:
			pad := strings.Repeat("    ", n.Origin.Depth)
			if n.IsByteString {
				fmt.Fprintf(b, "%sb\"% x\"", pad, n.Value)
			} else {
				fmt.Fprintf(b, "%s%q", pad, n.Value)
			}
		}
	}
	fmt.Fprintf(b, "\n%s</%s>", indent, e.Name)
}
