package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"DaemonRDF/metadata"
)

func init() {
	tdbCmd.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print the store format version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "tdb %s (layout %s)\n", metadata.Version,
					metadata.LayoutV1)
			},
		})
}
