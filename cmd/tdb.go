package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"DaemonRDF/config"
	"DaemonRDF/errs"
	"DaemonRDF/metadata"
	storageengine "DaemonRDF/storage_engine"
)

var (
	tdbCmd = &cobra.Command{
		Use:               "tdb",
		Short:             "An RDF triple and quad store",
		Long:              "tdb loads, dumps, compacts and inspects an RDF store on disk.",
		PersistentPreRunE: tdbPreRun,
		PersistentPostRun: tdbPostRun,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	logFile   = ""
	logLevel  = "warn"
	logWriter io.WriteCloser

	configFile = ""
	envFile    = ".env"
	location   = ""

	blockSize = 0
	indexImpl = ""

	params = config.Default()
)

func init() {
	log.SetFormatter(&log.TextFormatter{
		DisableLevelTruncation: true,
	})

	fs := tdbCmd.PersistentFlags()
	fs.StringVar(&logFile, "log-file", logFile, "`file` to use for logging instead of stderr")
	fs.StringVar(&logLevel, "log-level", logLevel,
		"log level: trace, debug, info, warn, error, fatal, or panic")
	fs.StringVar(&configFile, "config-file", configFile,
		"hcl `file` to load store parameters from (default $TDB_CONFIG)")
	fs.StringVar(&envFile, "env-file", envFile, "`file` of environment variables to load")
	fs.StringVarP(&location, "location", "l", location,
		"store `directory` (default $TDB_LOCATION)")
	fs.IntVar(&blockSize, "block-size", blockSize, "block size of new index files")
	fs.StringVar(&indexImpl, "index", indexImpl, "index implementation: bplustree, bbolt, or btree for a mem location")
}

// Execute runs the command line and returns the process exit code:
// 2 for configuration errors, 3 for integrity errors.
func Execute() int {
	err := tdbCmd.Execute()
	if err == nil {
		return 0
	}
	fmt.Fprintf(os.Stderr, "tdb: %s\n", err)
	switch {
	case errs.IsConfig(err):
		return 2
	case errs.IsIntegrity(err):
		return 3
	}
	return 1
}

func tdbPreRun(cmd *cobra.Command, args []string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%s: %s", envFile, err)
		}
	}
	if location == "" {
		location = os.Getenv("TDB_LOCATION")
	}
	if configFile == "" {
		configFile = os.Getenv("TDB_CONFIG")
	}

	if logFile != "" {
		var err error
		logWriter, err = os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			logWriter = nil
			return err
		}
		log.SetOutput(logWriter)
	}
	ll, err := log.ParseLevel(logLevel)
	if err != nil {
		return errs.Config("tdb", "%s", err)
	}
	log.SetLevel(ll)

	if configFile != "" {
		params, err = config.Load(configFile)
		if err != nil {
			return err
		}
	}
	// flags given on the command line beat the config file
	cmd.Flags().Visit(func(flg *pflag.Flag) {
		switch flg.Name {
		case "block-size":
			params.BlockSize = blockSize
		case "index":
			params.IndexImpl = indexImpl
		}
	})
	if err := params.Validate(); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"pid":      os.Getpid(),
		"command":  cmd.Name(),
		"location": location,
	}).Debug("tdb starting")
	return nil
}

func tdbPostRun(cmd *cobra.Command, args []string) {
	log.WithField("pid", os.Getpid()).Debug("tdb done")
	if logWriter != nil {
		logWriter.Close()
	}
}

func openStore() (*storageengine.Store, error) {
	if location == "" {
		return nil, errs.Config("tdb", "no store location: use --location or set TDB_LOCATION")
	}
	loc, err := metadata.NewLocation(location)
	if err != nil {
		return nil, err
	}
	return storageengine.OpenStore(loc, params)
}

// withStore opens the store for the duration of fn.
func withStore(fn func(s *storageengine.Store) error) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	err = fn(s)
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	return err
}
