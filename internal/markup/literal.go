package markup

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

// quotes lists the strings that may open a string literal. The acute
// accent is two bytes in UTF-8.
var quotes = []string{`"`, `'`, "\u00b4"}

// parseLiteral decodes a string literal at the window front.
//
// Syntax: [r][b][#...]<q>body<q>[#...] where q is one of quotes. With r
// the body is verbatim and ends at the first q followed by the same number
// of hashes. Without r the body ends at the first unescaped q and hashes are
// not allowed.
func (p *Parser) parseLiteral(depth int) (*Literal, error) {
	w := p.window()
	start := p.top().start

	mods := 0
	for mods < len(w) && mods < 2 && (w[mods] == 'r' || w[mods] == 'b') {
		mods++
	}
	modifier := w[:mods]
	if modifier == "rr" || modifier == "bb" {
		return nil, NotALiteral
	}
	raw := strings.Contains(modifier, "r")
	byteString := strings.Contains(modifier, "b")

	hashes := 0
	for mods+hashes < len(w) && w[mods+hashes] == '#' {
		hashes++
	}

	q := mods + hashes
	quote := quoteAt(w[q:])
	if quote == "" {
		return nil, NotALiteral
	}
	if hashes > 0 && !raw {
		return nil, NotALiteral
	}
	bodyStart := q + len(quote)

	if raw {
		term := quote + strings.Repeat("#", hashes)
		end := strings.Index(w[bodyStart:], term)
		if end < 0 {
			return nil, p.errorf(InvalidSyntax, start, "unterminated raw string, expected %s", term)
		}
		return &Literal{
			Value:        []byte(w[bodyStart : bodyStart+end]),
			IsByteString: byteString,
			Origin:       p.origin(depth, bodyStart+end+len(term)),
		}, nil
	}

	value := make([]byte, 0, 16)
	for i := bodyStart; i < len(w); {
		c := w[i]
		if strings.HasPrefix(w[i:], quote) {
			return &Literal{
				Value:        value,
				IsByteString: byteString,
				Origin:       p.origin(depth, i+len(quote)),
			}, nil
		}
		if c != '\\' {
			value = append(value, c)
			i++
			continue
		}

		if i+1 >= len(w) {
			return nil, p.errorf(UnexpectedEOF, start+i, "dangling escape")
		}
		esc := w[i+1]
		at := start + i
		i += 2

		switch esc {
		case 't':
			value = append(value, '\t')
		case 'n':
			value = append(value, '\n')
		case 'r':
			value = append(value, '\r')
		case '0':
			value = append(value, 0)
		case 'b':
			// backspace deletes the previous byte
			if len(value) > 0 {
				value = value[:len(value)-1]
			}
		case 'x':
			if !byteString {
				return nil, p.errorf(ByteStringNotSupported, at, `\x in a text literal`)
			}
			j := i
			for j < len(w) && isHexDigit(w[j]) {
				j++
			}
			if j >= len(w) {
				return nil, p.errorf(UnexpectedEOF, at, "unterminated byte string")
			}
			value = append(value, decodeHexPairs(w[i:j])...)
			i = j
		case 'u':
			if byteString {
				return nil, p.errorf(InvalidSyntax, at, `\u in a byte string`)
			}
			if i >= len(w) {
				return nil, p.errorf(UnexpectedEOF, at, "unterminated string")
			}
			if w[i] != '{' {
				return nil, p.errorf(InvalidSyntax, at, `expected '{' after \u`)
			}
			end := strings.IndexByte(w[i:], '}')
			if end < 0 {
				return nil, p.errorf(UnexpectedEOF, at, `unterminated \u{...}`)
			}
			digits := w[i+1 : i+end]
			r, ok := decodeCodePoint(digits)
			if !ok {
				return nil, p.errorf(InvalidCharacterCode, at, "%q", digits)
			}
			value = utf8.AppendRune(value, r)
			i += end + 1
		default:
			// escaped character, possibly multi-byte such as an escaped accent
			_, size := utf8.DecodeRuneInString(w[i-1:])
			value = append(value, w[i-1:i-1+size]...)
			i += size - 1
		}
	}

	return nil, p.errorf(UnexpectedEOF, start, "unterminated string, expected %s", quote)
}

// quoteAt returns the quote that s starts with, or "".
func quoteAt(s string) string {
	for _, q := range quotes {
		if strings.HasPrefix(s, q) {
			return q
		}
	}
	return ""
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// decodeHexPairs decodes hex digit pairs; a trailing odd digit is dropped.
func decodeHexPairs(digits string) []byte {
	digits = digits[:len(digits)-len(digits)%2]
	out, err := hex.DecodeString(digits)
	if err != nil {
		return nil
	}
	return out
}

// decodeCodePoint reads up to eight hex digits as a big-endian code point.
func decodeCodePoint(digits string) (rune, bool) {
	if digits == "" || len(digits) > 8 {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if !isHexDigit(digits[i]) {
			return 0, false
		}
	}

	buf, err := hex.DecodeString(strings.Repeat("0", 8-len(digits)) + digits)
	if err != nil {
		return 0, false
	}
	code := binary.BigEndian.Uint32(buf)
	if code > utf8.MaxRune {
		return 0, false
	}
	r := rune(code)
	return r, utf8.ValidRune(r)
}
