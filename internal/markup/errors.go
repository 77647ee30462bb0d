package markup

import "fmt"

// Kind classifies a parse failure. A Kind is itself an error so callers can
// test for it with errors.Is through any amount of wrapping.
type Kind int

// Kind constants for parse failures.
const (
	InvalidSyntax Kind = iota + 1
	NoTagName
	NoClosingTag
	NoSelectorList
	BadSelectorList
	BracketMismatch
	ByteStringNotSupported
	InvalidCharacterCode
	UnexpectedEOF
	UnexpectedToken

	// Refusals: the parser at the window start does not apply. These never
	// escape parseBody.
	NotATag
	NotAnExpression
	NotALiteral
)

func (k Kind) String() string {
	switch k {
	case InvalidSyntax:
		return "invalid syntax"
	case NoTagName:
		return "missing tag name"
	case NoClosingTag:
		return "missing closing tag"
	case NoSelectorList:
		return "missing selector list"
	case BadSelectorList:
		return "bad selector list"
	case BracketMismatch:
		return "unbalanced braces"
	case ByteStringNotSupported:
		return "escape only valid in byte strings"
	case InvalidCharacterCode:
		return "invalid character code"
	case UnexpectedEOF:
		return "unexpected end of input"
	case UnexpectedToken:
		return "unexpected input"
	case NotATag:
		return "not a tag"
	case NotAnExpression:
		return "not an expression"
	case NotALiteral:
		return "not a literal"
	default:
		return "unknown"
	}
}

func (k Kind) Error() string { return k.String() }

// refusal reports whether k only means "try the next alternative".
func (k Kind) refusal() bool {
	return k == NotATag || k == NotAnExpression || k == NotALiteral
}

// Error is a parse failure with its location.
type Error struct {
	Kind   Kind
	File   string
	Offset int
	Line   int
	Column int
	Detail string
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, msg)
	}
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, msg)
}

func (e *Error) Unwrap() error {
	return e.Kind
}
