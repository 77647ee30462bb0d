package markup

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

var (
	// openTagPattern matches <name.sel#ector attr="v" bare> or the self-closing
	// form. Whitespace may separate the name from the selector.
	openTagPattern = regexp.MustCompile(
		`^<\s*(?P<tag>` + namePattern + `)\s*` +
			`(?P<selector>(?:[.#]` + namePattern + `)*)` +
			`(?P<attributes>(?:\s+[\w:-]+(?:\s*=\s*(?:"[^"]*"|'[^']*'))?)*)` +
			`\s*(?P<slash>/?)>`,
	)
	attributePattern = regexp.MustCompile(`(?P<name>[\w:-]+)(?:\s*=\s*(?:"(?P<double>[^"]*)"|'(?P<single>[^']*)'))?`)
	closingTagPattern = regexp.MustCompile(`^</\s*` + namePattern + `\s*>`)

	tagGroup       = openTagPattern.SubexpIndex("tag")
	selectorGroup  = openTagPattern.SubexpIndex("selector")
	attributeGroup = openTagPattern.SubexpIndex("attributes")
	slashGroup     = openTagPattern.SubexpIndex("slash")

	attrNameGroup   = attributePattern.SubexpIndex("name")
	attrDoubleGroup = attributePattern.SubexpIndex("double")
	attrSingleGroup = attributePattern.SubexpIndex("single")
)

// parseElement parses one tag, and for non self-closing tags its body up to
// the matching closing tag.
func (p *Parser) parseElement(depth int) (*Element, error) {
	w := p.window()
	start := p.top().start
	if !strings.HasPrefix(w, "<") || strings.HasPrefix(w, "</") {
		return nil, NotATag
	}

	m := openTagPattern.FindStringSubmatchIndex(w)
	if m == nil {
		rest := strings.TrimLeftFunc(w[1:], unicode.IsSpace)
		if rest == "" || !isLetter(rest[0]) {
			return nil, p.errorf(NoTagName, start, "%q", snippet(w))
		}
		return nil, p.errorf(InvalidSyntax, start, "malformed opening tag %q", snippet(w))
	}

	openLen := m[1]
	rawName := group(w, m, tagGroup)
	name := strings.ToLower(rawName)

	attrStart := m[2*attributeGroup]
	attrs := p.parseAttributes(group(w, m, attributeGroup), start+attrStart, depth)

	if sel := group(w, m, selectorGroup); sel != "" {
		selStart := m[2*selectorGroup]
		selector, err := ParseSelector(sel)
		if err != nil {
			var kind Kind
			if !errors.As(err, &kind) {
				kind = BadSelectorList
			}
			return nil, p.errorf(kind, start+selStart, "%q", sel)
		}
		attrs = append(attrs, selector.attributes(Origin{
			File:        p.file,
			Offset:      start + selStart,
			Depth:       depth,
			TokenLength: len(sel),
		})...)
	}

	if group(w, m, slashGroup) == "/" {
		return &Element{
			Name:       name,
			Attributes: attrs,
			Origin:     p.origin(depth, openLen),
		}, nil
	}

	closeStart, closeEnd, err := p.findClosingTag(w, openLen, rawName)
	if err != nil {
		return nil, err
	}

	origin := p.origin(depth, closeEnd)

	p.push(start+openLen, start+closeStart)
	body, err := p.parseBody(depth + 1)
	p.pop()
	if err != nil {
		return nil, err
	}

	return &Element{
		Name:       name,
		Attributes: attrs,
		Body:       body,
		Origin:     origin,
	}, nil
}

// parseAttributes tokenizes the attribute region of an opening tag. offset
// is the absolute position of raw in the source.
func (p *Parser) parseAttributes(raw string, offset, depth int) []Attribute {
	var attrs []Attribute
	for _, m := range attributePattern.FindAllStringSubmatchIndex(raw, -1) {
		attr := Attribute{
			Name: raw[m[2*attrNameGroup]:m[2*attrNameGroup+1]],
			Origin: Origin{
				File:        p.file,
				Offset:      offset + m[0],
				Depth:       depth,
				TokenLength: m[1] - m[0],
			},
		}
		switch {
		case m[2*attrDoubleGroup] >= 0:
			attr.Value = raw[m[2*attrDoubleGroup]:m[2*attrDoubleGroup+1]]
		case m[2*attrSingleGroup] >= 0:
			attr.Value = raw[m[2*attrSingleGroup]:m[2*attrSingleGroup+1]]
		case p.opts.BareAttributes:
			attr.Bare = true
		default:
			continue
		}
		attrs = append(attrs, attr)
	}
	return attrs
}

// findClosingTag finds the closing tag matching an element named name whose
// opening tag ends at from. Opening and closing tags of the same name are
// counted so nested same-named elements are skipped. Returned offsets are
// relative to w.
func (p *Parser) findClosingTag(w string, from int, name string) (int, int, error) {
	pattern := p.tagPattern(name)
	rest := w[from:]

	count := 1
	for _, loc := range pattern.FindAllStringSubmatchIndex(rest, -1) {
		if loc[3] > loc[2] {
			count--
			if count == 0 {
				cm := closingTagPattern.FindStringIndex(rest[loc[0]:])
				if cm == nil {
					break
				}
				return from + loc[0], from + loc[0] + cm[1], nil
			}
			continue
		}

		// nested self-closing tags never get a closing counterpart
		if om := openTagPattern.FindStringSubmatchIndex(rest[loc[0]:]); om != nil && group(rest[loc[0]:], om, slashGroup) == "/" {
			continue
		}
		count++
	}

	return 0, 0, p.errorf(NoClosingTag, p.top().start, "</%s> not found", name)
}

// tagPattern returns a pattern matching <name and </name as whole tag names.
func (p *Parser) tagPattern(name string) *regexp.Regexp {
	key := strings.ToLower(name)
	if re, ok := p.tagPatterns[key]; ok {
		return re
	}
	re := regexp.MustCompile(`(?i)<(/?)\s*` + regexp.QuoteMeta(key) + `(?:[\s/>.#]|$)`)
	p.tagPatterns[key] = re
	return re
}

func group(s string, m []int, i int) string {
	if m[2*i] < 0 {
		return ""
	}
	return s[m[2*i]:m[2*i+1]]
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
