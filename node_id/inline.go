package nodeid

import (
	term "DaemonRDF/rdf_term"
)

// Inline packs a literal into a NodeId when its datatype has an inline form and
// the packed value renders back to exactly the same lexical form. Anything
// else reports false and belongs in the dictionary.
func Inline(t term.Term) (NodeId, bool) {
	if !t.IsLiteral() || t.Lang != "" {
		return 0, false
	}
	switch t.Datatype {
	case term.XSDInteger:
		return inlineInteger(t.Value)
	case term.XSDDecimal:
		return inlineDecimal(t.Value)
	case term.XSDDate:
		return inlineDate(t.Value)
	case term.XSDDateTime:
		return inlineDateTime(t.Value)
	case term.XSDBoolean:
		return inlineBoolean(t.Value)
	}
	return 0, false
}

// Extract rebuilds the literal of an inline id.
func Extract(id NodeId) (term.Term, bool) {
	var (
		lex      string
		datatype string
		ok       bool
	)
	switch id.Type() {
	case TypeInteger:
		lex, ok = extractInteger(id)
		datatype = term.XSDInteger
	case TypeDecimal:
		lex, ok = extractDecimal(id)
		datatype = term.XSDDecimal
	case TypeDate:
		lex, ok = extractDate(id)
		datatype = term.XSDDate
	case TypeDateTime:
		lex, ok = extractDateTime(id)
		datatype = term.XSDDateTime
	case TypeBoolean:
		lex, ok = extractBoolean(id)
		datatype = term.XSDBoolean
	}
	if !ok {
		return term.Term{}, false
	}
	return term.NewTypedLiteral(lex, datatype), true
}
