package term

import (
	"fmt"
	"strings"
)

type Kind uint8

const (
	KindIRI Kind = iota + 1
	KindBlank
	KindLiteral
)

func (k Kind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindBlank:
		return "blank"
	case KindLiteral:
		return "literal"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

const (
	XSD           = "http://www.w3.org/2001/XMLSchema#"
	XSDString     = XSD + "string"
	XSDInteger    = XSD + "integer"
	XSDDecimal    = XSD + "decimal"
	XSDDate       = XSD + "date"
	XSDDateTime   = XSD + "dateTime"
	XSDBoolean    = XSD + "boolean"
	RDFLangString = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"
)

// Term is an RDF term. Simple literals have neither Lang nor Datatype;
// an explicit xsd:string datatype is dropped on construction.
type Term struct {
	Kind     Kind
	Value    string
	Lang     string
	Datatype string
}

func NewIRI(iri string) Term {
	return Term{Kind: KindIRI, Value: iri}
}

func NewBlank(label string) Term {
	return Term{Kind: KindBlank, Value: label}
}

func NewLiteral(lex string) Term {
	return Term{Kind: KindLiteral, Value: lex}
}

func NewLangLiteral(lex, lang string) Term {
	return Term{Kind: KindLiteral, Value: lex, Lang: strings.ToLower(lang)}
}

func NewTypedLiteral(lex, datatype string) Term {
	if datatype == XSDString {
		datatype = ""
	}
	return Term{Kind: KindLiteral, Value: lex, Datatype: datatype}
}

func (t Term) IsIRI() bool     { return t.Kind == KindIRI }
func (t Term) IsBlank() bool   { return t.Kind == KindBlank }
func (t Term) IsLiteral() bool { return t.Kind == KindLiteral }
func (t Term) IsZero() bool    { return t.Kind == 0 }

// String is the serialized form, the bytes stored in the object file.
func (t Term) String() string {
	var sb strings.Builder
	switch t.Kind {
	case KindIRI:
		sb.WriteByte('<')
		sb.WriteString(t.Value)
		sb.WriteByte('>')
	case KindBlank:
		sb.WriteString("_:")
		sb.WriteString(t.Value)
	case KindLiteral:
		sb.WriteByte('"')
		escape(&sb, t.Value)
		sb.WriteByte('"')
		if t.Lang != "" {
			sb.WriteByte('@')
			sb.WriteString(t.Lang)
		} else if t.Datatype != "" {
			sb.WriteString("^^<")
			sb.WriteString(t.Datatype)
			sb.WriteByte('>')
		}
	default:
		return "?"
	}
	return sb.String()
}

func (t Term) Bytes() []byte {
	return []byte(t.String())
}

func escape(sb *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteByte(c)
		}
	}
}

// Triple and Quad are tuples of terms. A zero Term in a pattern matches anything.
type Triple struct {
	S, P, O Term
}

type Quad struct {
	G, S, P, O Term
}

func (q Quad) Triple() Triple {
	return Triple{S: q.S, P: q.P, O: q.O}
}

func (t Triple) String() string {
	return t.S.String() + " " + t.P.String() + " " + t.O.String() + " ."
}

func (q Quad) String() string {
	if q.G.IsZero() {
		return q.Triple().String()
	}
	return q.S.String() + " " + q.P.String() + " " + q.O.String() + " " + q.G.String() + " ."
}
