// Package resolve turns a parsed page into a fully resolved tree by following
// template inheritance (<block parent>), includes and fragment splicing.
//
// Inheritance uses named slots. A template marks insertion points with
// <block name="x"> (optionally holding default content) and one unnamed
// <block/> for the page body. A page extends it with
//
//	<block parent="#layouts/base.html">
//	    <block name="title">"Home"</block>
//	    <p>"main content"</p>
//	</block>
//
// Named children override the matching slot; everything else fills the
// unnamed slot. Filled named slots keep their wrapper while the chain is
// expanded so that a deeper template can override them again; a final pass
// removes every remaining block and fragment wrapper.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/leapstack-labs/leapsite/internal/markup"
)

// Directive tag names handled by the resolver.
const (
	BlockTag    = "block"
	IncludeTag  = "include"
	FragmentTag = markup.RootTag

	// DocumentTag names the root of a resolved tree.
	DocumentTag = "document"
)

// Config holds resolver configuration.
type Config struct {
	// SiteRoot replaces the '#' marker in references.
	SiteRoot string
	// Loader reads referenced templates (defaults to FileLoader).
	Loader Loader
	// ParseOptions apply to every referenced template.
	ParseOptions markup.ParseOptions
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Resolver resolves parsed pages. It keeps no per-page state and is safe for
// concurrent use.
type Resolver struct {
	siteRoot string
	loader   Loader
	opts     markup.ParseOptions
	logger   *slog.Logger
}

// New creates a resolver.
func New(cfg Config) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	loader := cfg.Loader
	if loader == nil {
		loader = FileLoader{}
	}
	return &Resolver{
		siteRoot: cfg.SiteRoot,
		loader:   loader,
		opts:     cfg.ParseOptions,
		logger:   logger,
	}
}

// Result is a resolved page.
type Result struct {
	// Root is named DocumentTag and contains no block or fragment elements.
	Root *markup.Element
	// Trace lists the page and every template loaded for it, in load order,
	// without duplicates.
	Trace []string
	// Edges lists which file referenced which template.
	Edges []Edge
}

// Edge records that From references To through a block parent or include.
type Edge struct {
	From string
	To   string
}

// ResolveFile loads, parses and resolves the page at path.
func (r *Resolver) ResolveFile(ctx context.Context, path string) (*Result, error) {
	path = filepath.Clean(path)
	source, err := r.loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	root, err := markup.NewParser(source, path, r.opts).Parse()
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, root)
}

// Resolve resolves an already parsed page. The input tree is not modified.
func (r *Resolver) Resolve(ctx context.Context, root *markup.Element) (*Result, error) {
	file := root.Origin.File
	if v, ok := root.Attr("origin"); ok && v != "" {
		file = v
	}
	file = filepath.Clean(file)

	res := &resolution{Resolver: r, seen: map[string]bool{file: true}, trace: []string{file}}
	body, err := res.expand(ctx, root.Body, file, []string{file})
	if err != nil {
		return nil, err
	}

	doc := &markup.Element{
		Name:   DocumentTag,
		Body:   finalize(body),
		Origin: root.Origin,
	}
	r.logger.Debug("resolved page", "file", file, "templates", len(res.trace)-1)
	return &Result{Root: doc, Trace: res.trace, Edges: res.edges}, nil
}

// resolution carries the state of resolving one page.
type resolution struct {
	*Resolver
	seen  map[string]bool
	trace []string
	edges []Edge
}

// expand resolves directives in body. Named slots are kept as block
// elements; chain holds the files on the current inheritance path.
func (res *resolution) expand(ctx context.Context, body []markup.Body, file string, chain []string) ([]markup.Body, error) {
	out := make([]markup.Body, 0, len(body))
	for _, node := range body {
		el, ok := node.(*markup.Element)
		if !ok {
			out = append(out, node)
			continue
		}

		switch {
		case el.Name == BlockTag && hasAttr(el, "parent"):
			merged, err := res.inherit(ctx, el, "parent", file, chain)
			if err != nil {
				return nil, err
			}
			out = append(out, merged...)

		case el.Name == IncludeTag:
			merged, err := res.inherit(ctx, el, "path", file, chain)
			if err != nil {
				return nil, err
			}
			out = append(out, merged...)

		case el.Name == FragmentTag:
			children, err := res.expand(ctx, el.Body, file, chain)
			if err != nil {
				return nil, err
			}
			out = append(out, children...)

		default:
			children, err := res.expand(ctx, el.Body, file, chain)
			if err != nil {
				return nil, err
			}
			out = append(out, el.WithBody(children))
		}
	}
	return out, nil
}

// inherit loads the template referenced by el's attr, expands it and fills
// its slots with el's body.
func (res *resolution) inherit(ctx context.Context, el *markup.Element, attr, file string, chain []string) ([]markup.Body, error) {
	ref, _ := el.Attr(attr)
	if ref == "" {
		return nil, &DirectiveError{Directive: el.Name, Attribute: attr, Origin: el.Origin}
	}

	// overrides belong to the current file
	local, err := res.expand(ctx, el.Body, file, chain)
	if err != nil {
		return nil, err
	}

	path := Path(ref, file, res.siteRoot)
	if slices.Contains(chain, path) {
		return nil, &CycleError{Chain: append(slices.Clone(chain), path)}
	}

	tree, err := res.load(ctx, el, ref, file, path)
	if err != nil {
		return nil, err
	}

	content, err := res.expand(ctx, tree.Body, path, append(slices.Clone(chain), path))
	if err != nil {
		return nil, err
	}

	overrides, fallback := splitOverrides(local)
	filled, used := fill(content, overrides, fallback)
	for name := range overrides {
		if !used[name] {
			res.logger.Warn("block overrides no slot", "block", name, "template", path, "origin", el.Origin.String())
		}
	}
	return filled, nil
}

func (res *resolution) load(ctx context.Context, el *markup.Element, ref, file, path string) (*markup.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.logger.Debug("loading template", "ref", ref, "path", path)
	source, err := res.loader.Load(ctx, path)
	if err != nil {
		return nil, &LoadError{Directive: el.Name, Ref: ref, Path: path, Origin: el.Origin, Err: err}
	}
	tree, err := markup.NewParser(source, path, res.opts).Parse()
	if err != nil {
		return nil, &LoadError{Directive: el.Name, Ref: ref, Path: path, Origin: el.Origin, Err: err}
	}

	if !res.seen[path] {
		res.seen[path] = true
		res.trace = append(res.trace, path)
	}
	if edge := (Edge{From: file, To: path}); !slices.Contains(res.edges, edge) {
		res.edges = append(res.edges, edge)
	}
	return tree, nil
}

// splitOverrides separates named blocks from the content meant for the
// unnamed slot.
func splitOverrides(body []markup.Body) (map[string]*markup.Element, []markup.Body) {
	overrides := make(map[string]*markup.Element)
	var rest []markup.Body
	for _, node := range body {
		if name, ok := slotName(node); ok && name != "" {
			overrides[name] = node.(*markup.Element)
			continue
		}
		rest = append(rest, node)
	}
	return overrides, rest
}

// fill replaces slots in content. A named slot with an override takes the
// override's body and keeps its wrapper. An unnamed slot is replaced by
// fallback when there is any; otherwise it stays open for the next level.
// The returned set holds the names of overrides that found a slot.
func fill(content []markup.Body, overrides map[string]*markup.Element, fallback []markup.Body) ([]markup.Body, map[string]bool) {
	used := make(map[string]bool)
	var walk func(body []markup.Body) []markup.Body
	walk = func(body []markup.Body) []markup.Body {
		out := make([]markup.Body, 0, len(body))
		for _, node := range body {
			el, ok := node.(*markup.Element)
			if !ok {
				out = append(out, node)
				continue
			}

			name, isSlot := slotName(el)
			switch {
			case isSlot && name != "":
				if o, ok := overrides[name]; ok {
					used[name] = true
					out = append(out, el.WithBody(o.Body))
					continue
				}
				out = append(out, el.WithBody(walk(el.Body)))
			case isSlot && len(fallback) > 0:
				out = append(out, fallback...)
			default:
				out = append(out, el.WithBody(walk(el.Body)))
			}
		}
		return out
	}
	return walk(content), used
}

// slotName reports whether node is a slot block and its name ("" for the
// unnamed slot).
func slotName(node markup.Body) (string, bool) {
	el, ok := node.(*markup.Element)
	if !ok || el.Name != BlockTag || hasAttr(el, "parent") {
		return "", false
	}
	name, _ := el.Attr("name")
	return name, true
}

// finalize splices the children of every remaining block and fragment.
func finalize(body []markup.Body) []markup.Body {
	out := make([]markup.Body, 0, len(body))
	for _, node := range body {
		el, ok := node.(*markup.Element)
		if !ok {
			out = append(out, node)
			continue
		}
		if el.Name == BlockTag || el.Name == FragmentTag {
			out = append(out, finalize(el.Body)...)
			continue
		}
		out = append(out, el.WithBody(finalize(el.Body)))
	}
	return out
}

func hasAttr(el *markup.Element, name string) bool {
	_, ok := el.Attr(name)
	return ok
}
