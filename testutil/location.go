package testutil

import (
	"path/filepath"
	"testing"

	"DaemonRDF/metadata"
	term "DaemonRDF/rdf_term"
)

// TempLocation is a fresh store directory removed when the test ends.
func TempLocation(t testing.TB) *metadata.Location {
	t.Helper()
	loc, err := metadata.NewLocation(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("NewLocation() failed with %s", err)
	}
	return loc
}

// Triple parses three serialized terms.
func Triple(t testing.TB, s, p, o string) term.Triple {
	t.Helper()
	return term.Triple{S: parse(t, s), P: parse(t, p), O: parse(t, o)}
}

func Quad(t testing.TB, g, s, p, o string) term.Quad {
	t.Helper()
	return term.Quad{G: parse(t, g), S: parse(t, s), P: parse(t, p), O: parse(t, o)}
}

func parse(t testing.TB, s string) term.Term {
	t.Helper()
	if s == "" {
		return term.Term{}
	}
	tm, err := term.Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q) failed with %s", s, err)
	}
	return tm
}
