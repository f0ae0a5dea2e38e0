package term

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeParse(t *testing.T) {
	cases := []struct {
		term Term
		text string
	}{
		{NewIRI("http://example/s"), "<http://example/s>"},
		{NewBlank("b0"), "_:b0"},
		{NewLiteral("plain"), `"plain"`},
		{NewLiteral("say \"hi\"\n\tand\\go"), `"say \"hi\"\n\tand\\go"`},
		{NewLangLiteral("chat", "FR"), `"chat"@fr`},
		{NewTypedLiteral("42", XSDInteger), `"42"^^<http://www.w3.org/2001/XMLSchema#integer>`},
		{NewTypedLiteral("s", XSDString), `"s"`},
	}
	for _, c := range cases {
		assert.Equal(t, c.text, c.term.String())
		got, err := Parse(c.text)
		require.NoError(t, err, c.text)
		assert.Equal(t, c.term, got)
	}

	got, err := Parse(`"café"`)
	require.NoError(t, err)
	assert.Equal(t, "café", got.Value)

	for _, bad := range []string{"", "<open", `"open`, `"x"^^notiri`, "_:", "?x", `"x" extra`} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestScanner(t *testing.T) {
	input := strings.Join([]string{
		"# a comment",
		"<http://example/s> <http://example/p> \"o\" .",
		"",
		"_:a <http://example/p> \"1\"^^<http://www.w3.org/2001/XMLSchema#integer> <http://example/g> .",
		"<http://example/s> <http://example/p> _:b1. # trailing comment",
	}, "\n")

	sc := NewScanner(strings.NewReader(input))
	var quads []Quad
	for sc.Next() {
		quads = append(quads, sc.Quad())
	}
	require.NoError(t, sc.Err())
	require.Len(t, quads, 3)

	assert.True(t, quads[0].G.IsZero())
	assert.Equal(t, NewLiteral("o"), quads[0].O)
	assert.Equal(t, NewIRI("http://example/g"), quads[1].G)
	assert.Equal(t, NewBlank("b1"), quads[2].O)

	sc = NewScanner(strings.NewReader("<s> <p> .\n"))
	assert.False(t, sc.Next())
	assert.Contains(t, sc.Err().Error(), "line 1")
}
