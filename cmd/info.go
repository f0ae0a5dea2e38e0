package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"DaemonRDF/metadata"
	storageengine "DaemonRDF/storage_engine"
)

var showMeta = true

func init() {
	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show what a store holds and how it is laid out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *storageengine.Store) error {
				return printInfo(cmd.OutOrStdout(), s)
			})
		},
	}
	infoCmd.Flags().BoolVar(&showMeta, "meta", showMeta, "include the metadata properties")
	tdbCmd.AddCommand(infoCmd)
}

func printInfo(w io.Writer, s *storageengine.Store) error {
	st, err := s.Stats()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "location: %s\n", s.Location())
	fmt.Fprintf(w, "triples:  %s\n", humanize.Comma(st.Triples))
	fmt.Fprintf(w, "quads:    %s\n", humanize.Comma(st.Quads))
	fmt.Fprintf(w, "terms:    %s (%s object file)\n", humanize.Comma(st.Terms),
		humanize.Bytes(uint64(st.Objects.Length)))
	fmt.Fprintln(w)

	tw := tablewriter.NewWriter(w)
	tw.SetAutoFormatHeaders(false)
	tw.SetHeader([]string{"index", "impl", "records", "height", "blocks", "size"})
	for _, is := range st.Indexes {
		height, blocks, size := "-", "-", "-"
		if is.Blocks != nil {
			height = strconv.Itoa(is.Height)
			blocks = humanize.Comma(is.Blocks.Blocks)
			blk, _, _ := s.Meta().GetInt(blockSizeKey(is.Name))
			size = humanize.Bytes(uint64(is.Blocks.Blocks) * uint64(blk))
		}
		tw.Append([]string{is.Name, is.Kind.String(), humanize.Comma(is.Records), height, blocks,
			size})
	}
	tw.Render()

	if !showMeta {
		return nil
	}
	fmt.Fprintln(w)
	tw = tablewriter.NewWriter(w)
	tw.SetAutoFormatHeaders(false)
	tw.SetHeader([]string{"property", "value"})
	props := s.Meta().Properties()
	for _, k := range s.Meta().Keys() {
		tw.Append([]string{k, props[k]})
	}
	tw.Render()
	return nil
}

func blockSizeKey(index string) string {
	return metadata.FileKey(index, metadata.AttrBlockSize)
}
