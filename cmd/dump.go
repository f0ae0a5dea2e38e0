package cmd

import (
	"bufio"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	term "DaemonRDF/rdf_term"
	storageengine "DaemonRDF/storage_engine"
)

var (
	dumpSubject   = ""
	dumpPredicate = ""
	dumpObject    = ""
	dumpGraph     = ""
)

func init() {
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Write the store, or the part matching a pattern, as N-Quads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern, err := dumpPattern()
			if err != nil {
				return err
			}
			return withStore(func(s *storageengine.Store) error {
				return dump(cmd.OutOrStdout(), s, pattern)
			})
		},
	}
	fs := dumpCmd.Flags()
	fs.StringVarP(&dumpSubject, "subject", "s", dumpSubject, "only this subject `term`")
	fs.StringVarP(&dumpPredicate, "predicate", "p", dumpPredicate, "only this predicate `term`")
	fs.StringVarP(&dumpObject, "object", "o", dumpObject, "only this object `term`")
	fs.StringVarP(&dumpGraph, "graph", "g", dumpGraph, "only this named graph `term`")
	tdbCmd.AddCommand(dumpCmd)
}

func parseOptional(s string) (term.Term, error) {
	if s == "" {
		return term.Term{}, nil
	}
	return term.Parse(s)
}

func dumpPattern() (term.Quad, error) {
	var q term.Quad
	var err error
	for _, f := range []struct {
		dst *term.Term
		src string
	}{
		{&q.G, dumpGraph},
		{&q.S, dumpSubject},
		{&q.P, dumpPredicate},
		{&q.O, dumpObject},
	} {
		if *f.dst, err = parseOptional(f.src); err != nil {
			return term.Quad{}, fmt.Errorf("bad pattern term %q: %w", f.src, err)
		}
	}
	return q, nil
}

// dump writes the default graph first, unless a graph is given, then the
// named graphs.
func dump(w io.Writer, s *storageengine.Store, pattern term.Quad) error {
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	if pattern.G.IsZero() {
		err := s.Find(pattern.Triple(), func(t term.Triple) error {
			_, err := fmt.Fprintln(bw, t.String())
			return err
		})
		if err != nil {
			return err
		}
	}
	return s.FindQuads(pattern, func(q term.Quad) error {
		_, err := fmt.Fprintln(bw, q.String())
		return err
	})
}
