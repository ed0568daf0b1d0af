package lisp

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
)

// errIncomplete marks parse failures caused by input ending too early.
var errIncomplete = errors.New("incomplete input")

type incompleteError struct {
	err *Error
}

func (e *incompleteError) Error() string   { return e.err.Error() }
func (e *incompleteError) Unwrap() []error { return []error{e.err, errIncomplete} }

// IsIncomplete reports whether err came from input that ended inside a list
// or string, so more lines could complete it.
func IsIncomplete(err error) bool {
	return errors.Is(err, errIncomplete)
}

type parser struct {
	input []rune
	pos   int
}

// Parse reads every top-level form in input.
func Parse(input string) ([]Expr, error) {
	p := &parser{input: []rune(input)}
	var forms []Expr
	for {
		p.skipWhitespace()
		if p.pos >= len(p.input) {
			return forms, nil
		}
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		forms = append(forms, expr)
	}
}

// ParseOne reads exactly one form.
func ParseOne(input string) (Expr, error) {
	forms, err := Parse(input)
	if err != nil {
		return Expr{}, err
	}
	if len(forms) != 1 {
		return Expr{}, parseFailed("expected 1 expression, got %d", len(forms))
	}
	return forms[0], nil
}

func (p *parser) incomplete(what string) error {
	return &incompleteError{err: parseFailed("unexpected end of input in %s", what)}
}

func (p *parser) parseExpr() (Expr, error) {
	if p.pos >= len(p.input) {
		return Expr{}, p.incomplete("expression")
	}
	ch := p.input[p.pos]
	switch {
	case ch == '\'':
		return p.parseQuote()
	case ch == '(':
		p.pos++
		elems, err := p.parseSeq(')')
		if err != nil {
			return Expr{}, err
		}
		return Application(elems...), nil
	case ch == '{':
		p.pos++
		elems, err := p.parseSeq('}')
		if err != nil {
			return Expr{}, err
		}
		return Quote(Application(elems...)), nil
	case ch == ')' || ch == '}':
		return Expr{}, parseFailed("unexpected %q at position %d", ch, p.pos)
	case ch == '"':
		return p.parseString()
	default:
		return p.parseAtom()
	}
}

func (p *parser) parseQuote() (Expr, error) {
	p.pos++ // skip '\''
	p.skipWhitespace()
	inner, err := p.parseExpr()
	if err != nil {
		return Expr{}, err
	}
	return Quote(inner), nil
}

func (p *parser) parseSeq(closer rune) ([]Expr, error) {
	elems := []Expr{}
	for {
		p.skipWhitespace()
		if p.pos >= len(p.input) {
			return nil, p.incomplete("list")
		}
		ch := p.input[p.pos]
		if ch == closer {
			p.pos++
			return elems, nil
		}
		if ch == ')' || ch == '}' {
			return nil, parseFailed("mismatched %q at position %d", ch, p.pos)
		}
		elem, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
	}
}

func (p *parser) parseString() (Expr, error) {
	p.pos++ // skip opening '"'
	var buf strings.Builder
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if ch == '\\' {
			p.pos++
			if p.pos >= len(p.input) {
				return Expr{}, p.incomplete("string escape")
			}
			esc := p.input[p.pos]
			switch esc {
			case 'n':
				buf.WriteRune('\n')
			case 't':
				buf.WriteRune('\t')
			case '\\':
				buf.WriteRune('\\')
			case '"':
				buf.WriteRune('"')
			default:
				return Expr{}, parseFailed("unknown escape sequence: \\%c", esc)
			}
			p.pos++
			continue
		}
		if ch == '"' {
			p.pos++ // skip closing '"'
			return String(buf.String()), nil
		}
		buf.WriteRune(ch)
		p.pos++
	}
	return Expr{}, p.incomplete("string")
}

func (p *parser) parseAtom() (Expr, error) {
	start := p.pos
	for p.pos < len(p.input) && !isDelimiter(p.input[p.pos]) {
		p.pos++
	}
	token := string(p.input[start:p.pos])
	if token == "" {
		return Expr{}, parseFailed("unexpected character: %c", p.input[start])
	}

	switch token {
	case "#t":
		return Bool(true), nil
	case "#f":
		return Bool(false), nil
	case "nil":
		return Nil(), nil
	}

	if looksNumeric(token) {
		f, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return Expr{}, parseFailed("invalid number %q", token)
		}
		return Number(f), nil
	}

	if token[0] == '#' {
		return Expr{}, parseFailed("invalid literal %q", token)
	}
	return Symbol(token), nil
}

// looksNumeric reports whether token starts like a number: a digit, or a
// sign or dot followed by a digit. This keeps "+", "-" and "inf" symbols.
func looksNumeric(token string) bool {
	i := 0
	if token[i] == '+' || token[i] == '-' {
		i++
	}
	if i < len(token) && token[i] == '.' {
		i++
	}
	return i < len(token) && token[i] >= '0' && token[i] <= '9'
}

func (p *parser) skipWhitespace() {
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if ch == ';' {
			for p.pos < len(p.input) && p.input[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		if !unicode.IsSpace(ch) {
			break
		}
		p.pos++
	}
}

func isDelimiter(ch rune) bool {
	return unicode.IsSpace(ch) || ch == '(' || ch == ')' || ch == '{' || ch == '}' || ch == '"' || ch == ';' || ch == '\''
}
