package term

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Parse reads one serialized term, the inverse of Term.String.
func Parse(s string) (Term, error) {
	p := &parser{s: s}
	t, err := p.term()
	if err != nil {
		return Term{}, err
	}
	if p.skipSpace(); p.pos != len(p.s) {
		return Term{}, p.errorf("trailing characters")
	}
	return t, nil
}

func MustParse(s string) Term {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseLine reads one N-Triples or N-Quads statement. Blank and comment lines
// give ok == false.
func ParseLine(line string) (q Quad, ok bool, err error) {
	p := &parser{s: line}
	p.skipSpace()
	if p.pos == len(p.s) || p.s[p.pos] == '#' {
		return Quad{}, false, nil
	}

	var terms []Term
	for {
		p.skipSpace()
		if p.pos >= len(p.s) {
			return Quad{}, false, p.errorf("missing final '.'")
		}
		if p.s[p.pos] == '.' {
			p.pos++
			break
		}
		t, err := p.term()
		if err != nil {
			return Quad{}, false, err
		}
		terms = append(terms, t)
	}
	p.skipSpace()
	if p.pos < len(p.s) && p.s[p.pos] != '#' {
		return Quad{}, false, p.errorf("trailing characters after '.'")
	}

	switch len(terms) {
	case 3:
		return Quad{S: terms[0], P: terms[1], O: terms[2]}, true, nil
	case 4:
		return Quad{S: terms[0], P: terms[1], O: terms[2], G: terms[3]}, true, nil
	}
	return Quad{}, false, fmt.Errorf("statement has %d terms, want 3 or 4", len(terms))
}

// Scanner reads statements line by line.
type Scanner struct {
	sc   *bufio.Scanner
	line int
	quad Quad
	err  error
}

func NewScanner(r io.Reader) *Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &Scanner{sc: sc}
}

func (s *Scanner) Next() bool {
	for s.err == nil && s.sc.Scan() {
		s.line++
		q, ok, err := ParseLine(s.sc.Text())
		if err != nil {
			s.err = fmt.Errorf("line %d: %w", s.line, err)
			return false
		}
		if ok {
			s.quad = q
			return true
		}
	}
	if s.err == nil {
		s.err = s.sc.Err()
	}
	return false
}

func (s *Scanner) Quad() Quad {
	return s.quad
}

func (s *Scanner) Line() int {
	return s.line
}

func (s *Scanner) Err() error {
	return s.err
}

type parser struct {
	s   string
	pos int
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("bad term at offset %d in %q: %s", p.pos, p.s, fmt.Sprintf(format, args...))
}

func (p *parser) skipSpace() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t' || p.s[p.pos] == '\r') {
		p.pos++
	}
}

func (p *parser) term() (Term, error) {
	p.skipSpace()
	if p.pos >= len(p.s) {
		return Term{}, p.errorf("unexpected end")
	}
	switch {
	case p.s[p.pos] == '<':
		iri, err := p.iri()
		if err != nil {
			return Term{}, err
		}
		return NewIRI(iri), nil
	case strings.HasPrefix(p.s[p.pos:], "_:"):
		p.pos += 2
		start := p.pos
		for p.pos < len(p.s) && !isSpace(p.s[p.pos]) {
			p.pos++
		}
		// a label may contain '.' but not end with it
		for p.pos > start && p.s[p.pos-1] == '.' {
			p.pos--
		}
		if p.pos == start {
			return Term{}, p.errorf("empty blank node label")
		}
		return NewBlank(p.s[start:p.pos]), nil
	case p.s[p.pos] == '"':
		return p.literal()
	}
	return Term{}, p.errorf("unexpected character %q", p.s[p.pos])
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func (p *parser) iri() (string, error) {
	end := strings.IndexByte(p.s[p.pos:], '>')
	if end < 0 {
		return "", p.errorf("unterminated IRI")
	}
	iri := p.s[p.pos+1 : p.pos+end]
	p.pos += end + 1
	return iri, nil
}

func (p *parser) literal() (Term, error) {
	p.pos++ // opening quote
	var sb strings.Builder
	for {
		if p.pos >= len(p.s) {
			return Term{}, p.errorf("unterminated literal")
		}
		c := p.s[p.pos]
		if c == '"' {
			p.pos++
			break
		}
		if c != '\\' {
			sb.WriteByte(c)
			p.pos++
			continue
		}
		if p.pos+1 >= len(p.s) {
			return Term{}, p.errorf("dangling escape")
		}
		esc := p.s[p.pos+1]
		p.pos += 2
		switch esc {
		case '"', '\\', '\'':
			sb.WriteByte(esc)
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'u', 'U':
			n := 4
			if esc == 'U' {
				n = 8
			}
			if p.pos+n > len(p.s) {
				return Term{}, p.errorf("short \\%c escape", esc)
			}
			cp, err := strconv.ParseUint(p.s[p.pos:p.pos+n], 16, 32)
			if err != nil || !utf8.ValidRune(rune(cp)) {
				return Term{}, p.errorf("bad \\%c escape", esc)
			}
			sb.WriteRune(rune(cp))
			p.pos += n
		default:
			return Term{}, p.errorf("unknown escape \\%c", esc)
		}
	}
	lex := sb.String()

	if p.pos < len(p.s) && p.s[p.pos] == '@' {
		p.pos++
		start := p.pos
		for p.pos < len(p.s) && (isAlnum(p.s[p.pos]) || p.s[p.pos] == '-') {
			p.pos++
		}
		if p.pos == start {
			return Term{}, p.errorf("empty language tag")
		}
		return NewLangLiteral(lex, p.s[start:p.pos]), nil
	}
	if strings.HasPrefix(p.s[p.pos:], "^^") {
		p.pos += 2
		if p.pos >= len(p.s) || p.s[p.pos] != '<' {
			return Term{}, p.errorf("datatype must be an IRI")
		}
		dt, err := p.iri()
		if err != nil {
			return Term{}, err
		}
		return NewTypedLiteral(lex, dt), nil
	}
	return NewLiteral(lex), nil
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
