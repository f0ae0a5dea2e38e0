package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"DaemonRDF/errs"
	rangeindex "DaemonRDF/range_index"
	storageengine "DaemonRDF/storage_engine"
)

var (
	inspectVerbose = false
	inspectCheck   = true
)

func init() {
	inspectCmd := &cobra.Command{
		Use:   "inspect INDEX",
		Short: "Dump the node structure of a B+Tree index and check it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *storageengine.Store) error {
				return inspect(cmd.OutOrStdout(), s, args[0])
			})
		},
	}
	fs := inspectCmd.Flags()
	fs.BoolVarP(&inspectVerbose, "verbose", "v", inspectVerbose, "print every record")
	fs.BoolVar(&inspectCheck, "check", inspectCheck, "run the integrity checker")
	tdbCmd.AddCommand(inspectCmd)
}

func inspect(w io.Writer, s *storageengine.Store, name string) error {
	ti, err := s.Index(name)
	if err != nil {
		return err
	}
	bi, ok := ti.Index().(*rangeindex.BPlusIndex)
	if !ok {
		return errs.Config("inspect", "index %s is not a bplustree", name)
	}

	fmt.Fprintf(w, "%s: %s\n", name, bi.Params())
	if err := bi.Inspect(w, inspectVerbose); err != nil {
		return err
	}
	if inspectCheck {
		if err := bi.Check(); err != nil {
			return err
		}
		fmt.Fprintln(w, "check: ok")
	}
	return nil
}
