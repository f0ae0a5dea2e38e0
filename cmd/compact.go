package cmd

import (
	"io"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	storageengine "DaemonRDF/storage_engine"
)

func init() {
	tdbCmd.AddCommand(&cobra.Command{
		Use:   "compact [INDEX...]",
		Short: "Rewrite B+Tree indexes densely packed; all of them without arguments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *storageengine.Store) error {
				return compact(cmd.OutOrStdout(), s, args)
			})
		},
	})
}

func compact(w io.Writer, s *storageengine.Store, names []string) error {
	var results []storageengine.CompactResult
	if len(names) == 0 {
		var err error
		if results, err = s.CompactAll(); err != nil {
			return err
		}
	}
	for _, name := range names {
		res, err := s.Compact(name)
		if err != nil {
			return err
		}
		results = append(results, res)
	}

	tw := tablewriter.NewWriter(w)
	tw.SetAutoFormatHeaders(false)
	tw.SetHeader([]string{"index", "records", "before", "after"})
	for _, res := range results {
		blk, _, _ := s.Meta().GetInt(blockSizeKey(res.Index))
		tw.Append([]string{
			res.Index,
			humanize.Comma(res.Records),
			humanize.Bytes(uint64(res.BlocksBefore) * uint64(blk)),
			humanize.Bytes(uint64(res.BlocksAfter) * uint64(blk)),
		})
	}
	tw.Render()
	return nil
}
