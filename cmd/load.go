package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	term "DaemonRDF/rdf_term"
	storageengine "DaemonRDF/storage_engine"
)

func init() {
	tdbCmd.AddCommand(&cobra.Command{
		Use:   "load FILE...",
		Short: "Bulk load N-Triples or N-Quads files; - reads standard input",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *storageengine.Store) error {
				return load(cmd.OutOrStdout(), s, args)
			})
		},
	})
}

func load(w io.Writer, s *storageengine.Store, files []string) error {
	l := s.Loader()
	if err := l.StartBulk(); err != nil {
		return err
	}

	for _, name := range files {
		if err := loadFile(l, name); err != nil {
			// release the store; the error that stopped the load is the one to report
			if _, ferr := l.FinishBulk(); ferr != nil {
				log.WithError(ferr).Warn("finishing interrupted load")
			}
			return err
		}
	}

	stats, err := l.FinishBulk()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "loaded %s triples and %s quads in %s\n", humanize.Comma(stats.Triples),
		humanize.Comma(stats.Quads), stats.Elapsed)
	return nil
}

func loadFile(l *storageengine.Loader, name string) error {
	var r io.Reader = os.Stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	sc := term.NewScanner(r)
	for sc.Next() {
		if err := l.Quad(sc.Quad()); err != nil {
			return fmt.Errorf("%s: line %d: %w", name, sc.Line(), err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	log.WithFields(log.Fields{"file": name, "lines": sc.Line()}).Info("file loaded")
	return nil
}
