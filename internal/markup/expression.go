package markup

import "strings"

// parseExpression extracts a brace-delimited script expression. The contents
// are not inspected beyond brace counting.
func (p *Parser) parseExpression(depth int) (*Expression, error) {
	w := p.window()
	if !strings.HasPrefix(w, "{") {
		return nil, NotAnExpression
	}

	level := 0
	for i := 0; i < len(w); i++ {
		switch w[i] {
		case '{':
			level++
		case '}':
			level--
			if level == 0 {
				return &Expression{
					Source: w[1:i],
					Origin: p.origin(depth, i+1),
				}, nil
			}
		}
	}

	return nil, p.errorf(BracketMismatch, p.top().start, "%d unclosed '{'", level)
}
