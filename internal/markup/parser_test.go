package markup

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, input string) *Element {
	t.Helper()
	root, err := Parse(input, "test.html")
	require.NoError(t, err, "unexpected parse error")
	return root
}

func onlyElement(t *testing.T, body []Body) *Element {
	t.Helper()
	require.Len(t, body, 1)
	el, ok := body[0].(*Element)
	require.True(t, ok, "expected *Element, got %T", body[0])
	return el
}

func TestParser_Root(t *testing.T) {
	root := mustParse(t, `<p/>`)

	assert.Equal(t, RootTag, root.Name)
	assert.Equal(t, 0, root.Origin.Depth)
	assert.Equal(t, 4, root.Origin.TokenLength)
	origin, ok := root.Attr("origin")
	require.True(t, ok)
	assert.Equal(t, "test.html", origin)
}

func TestParser_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "   \n\t", "<!-- nothing -->", "// just a comment", "/* block */"} {
		root := mustParse(t, input)
		assert.Empty(t, root.Body, "input %q", input)
	}
}

func TestParser_SelfClosing(t *testing.T) {
	root := mustParse(t, `<x a="1"/>`)

	el := onlyElement(t, root.Body)
	assert.Equal(t, "x", el.Name)
	require.Len(t, el.Attributes, 1)
	assert.Equal(t, "a", el.Attributes[0].Name)
	assert.Equal(t, "1", el.Attributes[0].Value)
	assert.Empty(t, el.Body)
	assert.Equal(t, 1, el.Origin.Depth)
	assert.Equal(t, 0, el.Origin.Offset)
	assert.Equal(t, len(`<x a="1"/>`), el.Origin.TokenLength)
}

func TestParser_NestedSameName(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"depth two", `<a><a></a></a>`},
		{"with attributes", `<a x="1"><a x="2"></a></a>`},
		{"nested self-closing", `<a><a/></a>`},
		{"upper case close", `<a><a></A></a>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := mustParse(t, tt.input)

			outer := onlyElement(t, root.Body)
			assert.Equal(t, "a", outer.Name)
			assert.Equal(t, len(tt.input), outer.Origin.TokenLength)

			inner := onlyElement(t, outer.Body)
			assert.Equal(t, "a", inner.Name)
			assert.Equal(t, 2, inner.Origin.Depth)
		})
	}
}

func TestParser_PrefixTagNamesNotCounted(t *testing.T) {
	root := mustParse(t, `<a><abbr></abbr></a>`)

	outer := onlyElement(t, root.Body)
	inner := onlyElement(t, outer.Body)
	assert.Equal(t, "abbr", inner.Name)
}

func TestParser_TagNameIsCaseFolded(t *testing.T) {
	root := mustParse(t, `<DiV></DiV>`)
	assert.Equal(t, "div", onlyElement(t, root.Body).Name)
}

func TestParser_SelectorShorthand(t *testing.T) {
	root := mustParse(t, `<div.foo#bar.baz title="t"></div>`)

	el := onlyElement(t, root.Body)
	require.Len(t, el.Attributes, 3)
	assert.Equal(t, "title", el.Attributes[0].Name)
	assert.Equal(t, "class", el.Attributes[1].Name)
	assert.Equal(t, "foo baz", el.Attributes[1].Value)
	assert.Equal(t, "id", el.Attributes[2].Name)
	assert.Equal(t, "bar", el.Attributes[2].Value)
	assert.Equal(t, 4, el.Attributes[1].Origin.Offset)
}

func TestParser_SelectorAfterWhitespace(t *testing.T) {
	tests := []struct {
		input  string
		class  string
		id     string
		offset int
	}{
		{`<div .foo></div>`, "foo", "", 5},
		{`<div  #main.wide title="t"/>`, "wide", "main", 6},
		{"<p\n.note>\"x\"</p>", "note", "", 3},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			el := onlyElement(t, mustParse(t, tt.input).Body)
			class, _ := el.Attribute("class")
			assert.Equal(t, tt.class, class.Value)
			assert.Equal(t, tt.offset, class.Origin.Offset)
			id, _ := el.Attr("id")
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestParser_BadSelector(t *testing.T) {
	_, err := Parse(`<div#a#b></div>`, "test.html")
	require.Error(t, err)
	assert.True(t, errors.Is(err, BadSelectorList), "got %v", err)
}

func TestParser_Attributes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  ParseOptions
		want  []Attribute
	}{
		{
			name:  "double and single quotes",
			input: `<a href="/x" title='hi there'/>`,
			want:  []Attribute{{Name: "href", Value: "/x"}, {Name: "title", Value: "hi there"}},
		},
		{
			name:  "spaces around equals",
			input: `<a href = "/x"/>`,
			want:  []Attribute{{Name: "href", Value: "/x"}},
		},
		{
			name:  "hyphenated names",
			input: `<a data-id="7" aria-label=""/>`,
			want:  []Attribute{{Name: "data-id", Value: "7"}, {Name: "aria-label", Value: ""}},
		},
		{
			name:  "bare attribute dropped",
			input: `<input disabled type="text"/>`,
			want:  []Attribute{{Name: "type", Value: "text"}},
		},
		{
			name:  "bare attribute kept",
			input: `<input disabled type="text"/>`,
			opts:  ParseOptions{BareAttributes: true},
			want:  []Attribute{{Name: "disabled", Bare: true}, {Name: "type", Value: "text"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := NewParser(tt.input, "test.html", tt.opts).Parse()
			require.NoError(t, err)

			el := onlyElement(t, root.Body)
			require.Len(t, el.Attributes, len(tt.want))
			for i, want := range tt.want {
				assert.Equal(t, want.Name, el.Attributes[i].Name, "attr[%d] name", i)
				assert.Equal(t, want.Value, el.Attributes[i].Value, "attr[%d] value", i)
				assert.Equal(t, want.Bare, el.Attributes[i].Bare, "attr[%d] bare", i)
			}
		})
	}
}

func TestParser_MixedBody(t *testing.T) {
	input := `<p>
    "Hello, " {user.name}
    <!-- greeting -->
    <b>"!"</b>
</p>`
	root := mustParse(t, input)

	p := onlyElement(t, root.Body)
	require.Len(t, p.Body, 3)

	lit, ok := p.Body[0].(*Literal)
	require.True(t, ok, "body[0]: expected *Literal, got %T", p.Body[0])
	assert.Equal(t, "Hello, ", lit.String())
	assert.Equal(t, 2, lit.Origin.Depth)

	expr, ok := p.Body[1].(*Expression)
	require.True(t, ok, "body[1]: expected *Expression, got %T", p.Body[1])
	assert.Equal(t, "user.name", expr.Source)

	b, ok := p.Body[2].(*Element)
	require.True(t, ok, "body[2]: expected *Element, got %T", p.Body[2])
	assert.Equal(t, "b", b.Name)
	require.Len(t, b.Body, 1)
	assert.Equal(t, 3, b.Body[0].Pos().Depth)
}

func TestParser_OriginsStayInBounds(t *testing.T) {
	input := `<html><body.main>"a\tb" {x} <img src="s"/> r#"raw"#</body></html>`
	root := mustParse(t, input)

	var walk func(body []Body)
	walk = func(body []Body) {
		for _, node := range body {
			o := node.Pos()
			assert.LessOrEqual(t, o.End(), len(input), "node %T at %d", node, o.Offset)
			assert.Equal(t, "test.html", o.File)
			if el, ok := node.(*Element); ok {
				walk(el.Body)
			}
		}
	}
	walk(root.Body)
}

func TestParser_ExpressionOrigin(t *testing.T) {
	root := mustParse(t, `  {a {b} c}`)

	require.Len(t, root.Body, 1)
	expr := root.Body[0].(*Expression)
	assert.Equal(t, "a {b} c", expr.Source)
	assert.Equal(t, 2, expr.Origin.Offset)
	assert.Equal(t, 9, expr.Origin.TokenLength)
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  Kind
	}{
		{"unbalanced expression", `{foo`, BracketMismatch},
		{"unbalanced nested expression", `<p>{a {b}</p>`, BracketMismatch},
		{"missing closing tag", `<div>`, NoClosingTag},
		{"missing nested closing tag", `<a><a></a>`, NoClosingTag},
		{"no tag name", `< >`, NoTagName},
		{"digit tag name", `<1a/>`, NoTagName},
		{"malformed open tag", `<a href=x>`, InvalidSyntax},
		{"stray text", `hello`, UnexpectedToken},
		{"stray closing tag", `</p>`, UnexpectedToken},
		{"hash without raw", `#"x"#`, UnexpectedToken},
		{"unterminated comment", `<!-- open`, UnexpectedEOF},
		{"unterminated string in body", `<p>"abc</p>`, UnexpectedEOF},
		{"bad literal inside element", `<p>"\xzz"</p>`, ByteStringNotSupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := Parse(tt.input, "bad.html")
			require.Error(t, err)
			assert.Nil(t, root, "no partial tree on failure")
			assert.True(t, errors.Is(err, tt.kind), "expected %v, got %v", tt.kind, err)

			var perr *Error
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, "bad.html", perr.File)
			assert.Positive(t, perr.Line)
		})
	}
}

func TestParser_ErrorPosition(t *testing.T) {
	_, err := Parse("<p>\n  \"ok\"\n  {oops\n</p>", "pos.html")
	require.Error(t, err)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, BracketMismatch, perr.Kind)
	assert.Equal(t, 3, perr.Line)
	assert.Equal(t, 3, perr.Column)
	assert.Contains(t, perr.Error(), "pos.html:3:3")
}

func TestParser_RefusalsNeverSurface(t *testing.T) {
	_, err := Parse(`<p>x</p>`, "t.html")
	require.Error(t, err)
	for _, k := range []Kind{NotATag, NotALiteral, NotAnExpression} {
		assert.False(t, errors.Is(err, k), "refusal %v leaked", k)
	}
}

func TestElement_WithBodyDoesNotAlias(t *testing.T) {
	root := mustParse(t, `<div.a>"x"</div>`)
	el := onlyElement(t, root.Body)

	copied := el.WithBody(nil)
	copied.Attributes[0].Value = "changed"

	assert.Equal(t, "a", el.Attributes[0].Value)
	assert.Len(t, el.Body, 1)
}

func TestElement_Dump(t *testing.T) {
	root := mustParse(t, `<ul.menu><li>"one"</li><li/></ul>`)

	want := `<fragment origin="test.html">
    <ul class="menu">
        <li>
            "one"
        </li>
        <li />
    </ul>
</fragment>`
	assert.Equal(t, want, root.Dump())
}
