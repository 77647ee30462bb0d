// Package render serializes a resolved tree to HTML.
//
// Most elements map one to one onto HTML elements. The directive elements
// are interpreted:
//
//	<template>, <component>  render only their body
//	<escape>                 renders its body as escaped text
//	<condition if="expr">    renders its body when expr is truthy
//
// Text literals are escaped, byte-string literals are written verbatim and
// expressions are evaluated through an Evaluator. Attribute values may embed
// {expr} segments.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/leapstack-labs/leapsite/internal/markup"
)

// Directive tag names interpreted by the renderer.
const (
	TemplateTag  = "template"
	ComponentTag = "component"
	EscapeTag    = "escape"
	ConditionTag = "condition"
)

// transparent elements render only their body.
var transparent = map[string]bool{
	TemplateTag:  true,
	ComponentTag: true,
	"document":   true,
	"block":      true,
	"fragment":   true,
}

// Evaluator evaluates script expressions.
type Evaluator interface {
	// Eval returns the string form of expr.
	Eval(expr string, origin markup.Origin) (string, error)
	// Truth reports whether expr is truthy.
	Truth(expr string, origin markup.Origin) (bool, error)
}

// ErrNoEvaluator is returned when a tree holds expressions but the renderer
// has no Evaluator.
var ErrNoEvaluator = errors.New("no expression evaluator configured")

// Error reports a failure rendering a node.
type Error struct {
	Origin markup.Origin
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Origin, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Renderer turns resolved trees into HTML. It is safe for concurrent use if
// its Evaluator is.
type Renderer struct {
	eval   Evaluator
	logger *slog.Logger
}

// New creates a renderer. eval may be nil for trees without expressions.
func New(eval Evaluator, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Renderer{eval: eval, logger: logger}
}

// Render writes root as an HTML document. A doctype is emitted when the
// first element is <html>.
func (r *Renderer) Render(w io.Writer, root *markup.Element) error {
	doc := &html.Node{Type: html.DocumentNode}
	if first := firstElement(root.Body); first != nil && first.Name == "html" {
		doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	}

	if err := r.appendBody(doc, root.Body); err != nil {
		return err
	}

	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(w, c); err != nil {
			return fmt.Errorf("failed to serialize html: %w", err)
		}
		if c.Type == html.DoctypeNode {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

// RenderString renders root to a string.
func (r *Renderer) RenderString(root *markup.Element) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, root); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *Renderer) appendBody(parent *html.Node, body []markup.Body) error {
	for _, node := range body {
		if err := r.appendNode(parent, node); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) appendNode(parent *html.Node, node markup.Body) error {
	switch n := node.(type) {
	case *markup.Literal:
		if n.IsByteString {
			parent.AppendChild(&html.Node{Type: html.RawNode, Data: string(n.Value)})
		} else {
			parent.AppendChild(&html.Node{Type: html.TextNode, Data: n.String()})
		}
		return nil

	case *markup.Expression:
		text, err := r.evaluate(n.Source, n.Origin)
		if err != nil {
			return err
		}
		parent.AppendChild(&html.Node{Type: html.TextNode, Data: text})
		return nil

	case *markup.Element:
		return r.appendElement(parent, n)
	}
	return nil
}

func (r *Renderer) appendElement(parent *html.Node, el *markup.Element) error {
	switch {
	case transparent[el.Name]:
		return r.appendBody(parent, el.Body)

	case el.Name == ConditionTag:
		expr, ok := el.Attr("if")
		if !ok {
			return &Error{Origin: el.Origin, Err: errors.New(`<condition> requires an "if" attribute`)}
		}
		if r.eval == nil {
			return &Error{Origin: el.Origin, Err: ErrNoEvaluator}
		}
		show, err := r.eval.Truth(expr, el.Origin)
		if err != nil {
			return &Error{Origin: el.Origin, Err: err}
		}
		if !show {
			return nil
		}
		return r.appendBody(parent, el.Body)

	case el.Name == EscapeTag:
		holder := &html.Node{Type: html.DocumentNode}
		if err := r.appendBody(holder, el.Body); err != nil {
			return err
		}
		var buf bytes.Buffer
		for c := holder.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&buf, c); err != nil {
				return &Error{Origin: el.Origin, Err: err}
			}
		}
		parent.AppendChild(&html.Node{Type: html.TextNode, Data: buf.String()})
		return nil
	}

	attrs := make([]html.Attribute, 0, len(el.Attributes))
	for _, a := range el.Attributes {
		val, err := r.interpolate(a.Value, a.Origin)
		if err != nil {
			return err
		}
		attrs = append(attrs, html.Attribute{Key: a.Name, Val: val})
	}

	n := &html.Node{
		Type:     html.ElementNode,
		Data:     el.Name,
		DataAtom: atom.Lookup([]byte(el.Name)),
		Attr:     attrs,
	}
	parent.AppendChild(n)
	return r.appendBody(n, el.Body)
}

// interpolate replaces {expr} segments of an attribute value.
func (r *Renderer) interpolate(value string, origin markup.Origin) (string, error) {
	if !strings.Contains(value, "{") {
		return value, nil
	}

	var b strings.Builder
	for {
		open := strings.IndexByte(value, '{')
		if open < 0 {
			b.WriteString(value)
			return b.String(), nil
		}
		b.WriteString(value[:open])

		end := matchBrace(value[open:])
		if end < 0 {
			return "", &Error{Origin: origin, Err: markup.BracketMismatch}
		}
		text, err := r.evaluate(value[open+1:open+end], origin)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
		value = value[open+end+1:]
	}
}

func (r *Renderer) evaluate(expr string, origin markup.Origin) (string, error) {
	if r.eval == nil {
		return "", &Error{Origin: origin, Err: ErrNoEvaluator}
	}
	text, err := r.eval.Eval(expr, origin)
	if err != nil {
		return "", &Error{Origin: origin, Err: err}
	}
	return text, nil
}

// matchBrace returns the index of the brace closing s[0], or -1.
func matchBrace(s string) int {
	level := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			level++
		case '}':
			level--
			if level == 0 {
				return i
			}
		}
	}
	return -1
}

func firstElement(body []markup.Body) *markup.Element {
	for _, node := range body {
		el, ok := node.(*markup.Element)
		if !ok {
			continue
		}
		if transparent[el.Name] {
			if inner := firstElement(el.Body); inner != nil {
				return inner
			}
			continue
		}
		return el
	}
	return nil
}
