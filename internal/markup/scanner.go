package markup

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ParseOptions tunes parser behaviour.
type ParseOptions struct {
	// BareAttributes keeps name-only attributes (<input disabled>) as
	// Attribute{Bare: true}. They are dropped otherwise.
	BareAttributes bool
}

// span is a half-open byte range into the parser source.
type span struct {
	start, end int
}

// Parser holds one source file and a stack of scan windows into it. Nested
// bodies are parsed by pushing a narrower window rather than slicing copies.
// A Parser is not safe for concurrent use; parse files with one Parser each.
type Parser struct {
	source string
	file   string
	opts   ParseOptions
	ranges []span

	// closing-tag counters, compiled once per tag name
	tagPatterns map[string]*regexp.Regexp
}

// NewParser creates a parser for source read from file.
func NewParser(source, file string, opts ParseOptions) *Parser {
	return &Parser{
		source:      source,
		file:        file,
		opts:        opts,
		tagPatterns: make(map[string]*regexp.Regexp),
	}
}

// Parse parses source with default options.
func Parse(source, file string) (*Element, error) {
	return NewParser(source, file, ParseOptions{}).Parse()
}

// Parse parses the whole file into a synthetic fragment element.
// On failure no partial tree is returned.
func (p *Parser) Parse() (*Element, error) {
	p.ranges = []span{{start: 0, end: len(p.source)}}

	body, err := p.parseBody(1)
	if err != nil {
		return nil, err
	}

	origin := Origin{File: p.file, Offset: 0, Depth: 0, TokenLength: len(p.source)}
	return &Element{
		Name: RootTag,
		Attributes: []Attribute{{
			Name:   "origin",
			Value:  p.file,
			Origin: Origin{File: p.file},
		}},
		Body:   body,
		Origin: origin,
	}, nil
}

// parseBody collects nodes from the current window until nothing matches.
// Anything left over other than whitespace and comments is an error.
func (p *Parser) parseBody(depth int) ([]Body, error) {
	var body []Body
	for {
		if err := p.skipInsignificant(); err != nil {
			return nil, err
		}

		node, err := p.tryParseAny(depth)
		if err != nil {
			return nil, err
		}
		if node == nil {
			break
		}

		body = append(body, node)
		p.advance(node.Pos().TokenLength)
	}

	if p.window() != "" {
		return nil, p.errorf(UnexpectedToken, p.top().start, "%q", snippet(p.window()))
	}
	return body, nil
}

// tryParseAny tries expression, literal and element in that order. It returns
// nil, nil when all three refuse.
func (p *Parser) tryParseAny(depth int) (Body, error) {
	expr, err := p.parseExpression(depth)
	if err == nil {
		return expr, nil
	}
	if !isRefusal(err) {
		return nil, err
	}

	lit, err := p.parseLiteral(depth)
	if err == nil {
		return lit, nil
	}
	if !isRefusal(err) {
		return nil, err
	}

	el, err := p.parseElement(depth)
	if err == nil {
		return el, nil
	}
	if !isRefusal(err) {
		return nil, err
	}

	return nil, nil
}

// skipInsignificant drops leading whitespace and comments from the window.
func (p *Parser) skipInsignificant() error {
	for {
		w := p.window()
		switch {
		case w == "":
			return nil
		case isSpace(w[0]):
			p.advance(len(w) - len(strings.TrimLeftFunc(w, unicode.IsSpace)))
		case strings.HasPrefix(w, "<!--"):
			if err := p.skipBlock("<!--", "-->"); err != nil {
				return err
			}
		case strings.HasPrefix(w, "/*"):
			if err := p.skipBlock("/*", "*/"); err != nil {
				return err
			}
		case strings.HasPrefix(w, "//"):
			if nl := strings.IndexByte(w, '\n'); nl >= 0 {
				p.advance(nl + 1)
			} else {
				p.advance(len(w))
			}
		default:
			return nil
		}
	}
}

func (p *Parser) skipBlock(open, close string) error {
	w := p.window()
	end := strings.Index(w[len(open):], close)
	if end < 0 {
		return p.errorf(UnexpectedEOF, p.top().start, "unterminated comment")
	}
	p.advance(len(open) + end + len(close))
	return nil
}

// Window stack

func (p *Parser) top() *span {
	return &p.ranges[len(p.ranges)-1]
}

func (p *Parser) window() string {
	t := p.top()
	return p.source[t.start:t.end]
}

func (p *Parser) push(start, end int) {
	p.ranges = append(p.ranges, span{start: start, end: end})
}

func (p *Parser) pop() {
	p.ranges = p.ranges[:len(p.ranges)-1]
}

func (p *Parser) advance(n int) {
	t := p.top()
	t.start += n
	if t.start > t.end {
		t.start = t.end
	}
}

// origin describes a node starting at the window front.
func (p *Parser) origin(depth, length int) Origin {
	return Origin{
		File:        p.file,
		Offset:      p.top().start,
		Depth:       depth,
		TokenLength: length,
	}
}

// errorf builds a positioned error at an absolute source offset.
func (p *Parser) errorf(kind Kind, offset int, format string, args ...any) *Error {
	line, col := p.lineColumn(offset)
	e := &Error{
		Kind:   kind,
		File:   p.file,
		Offset: offset,
		Line:   line,
		Column: col,
	}
	if format != "" {
		e.Detail = fmt.Sprintf(format, args...)
	}
	return e
}

// lineColumn converts a byte offset to 1-based line and rune column.
func (p *Parser) lineColumn(offset int) (int, int) {
	if offset > len(p.source) {
		offset = len(p.source)
	}
	before := p.source[:offset]
	line := strings.Count(before, "\n") + 1
	lineStart := strings.LastIndexByte(before, '\n') + 1
	return line, utf8.RuneCountInString(before[lineStart:]) + 1
}

func isRefusal(err error) bool {
	var k Kind
	return errors.As(err, &k) && k.refusal()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

// snippet shortens s for error messages.
func snippet(s string) string {
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[:nl]
	}
	if len(s) > 24 {
		s = s[:24] + "..."
	}
	return s
}
