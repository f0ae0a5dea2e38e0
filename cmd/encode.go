package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	nodeid "DaemonRDF/node_id"
	term "DaemonRDF/rdf_term"
)

func init() {
	tdbCmd.AddCommand(&cobra.Command{
		Use:   "encode TERM...",
		Short: "Show how terms map to NodeIds without opening a store",
		Example: `  tdb encode '"42"^^<http://www.w3.org/2001/XMLSchema#integer>'
  tdb encode '"2024-02-29"^^<http://www.w3.org/2001/XMLSchema#date>'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return encode(cmd.OutOrStdout(), args)
		},
	})
}

func encode(w io.Writer, args []string) error {
	for _, arg := range args {
		t, err := term.Parse(arg)
		if err != nil {
			return fmt.Errorf("%q: %w", arg, err)
		}
		id, ok := nodeid.Inline(t)
		if !ok {
			fmt.Fprintf(w, "%s\tdictionary\n", t)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%016x\n", t, id.Type(), uint64(id))
	}
	return nil
}
