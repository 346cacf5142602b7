// annstore serves and inspects standoff annotation collections
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nainya/annstore/internal/config"
	"github.com/nainya/annstore/internal/logger"
	"github.com/nainya/annstore/pkg/journal"
	"github.com/nainya/annstore/pkg/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootOptions holds the persistent flags shared by every command
type rootOptions struct {
	configPath string
	dataDir    string
	logLevel   string
	pretty     bool
	compat     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "annstore",
		Short: "Store and edit standoff annotation files",
		Long: `annstore keeps brat-style standoff annotations (.ann files next to
their .txt documents) consistent while several clients edit them.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (default ./"+config.FileName+" when present)")
	pf.StringVar(&opts.dataDir, "data-dir", "", "collection root directory")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&opts.pretty, "pretty", false, "human-readable log output")
	pf.BoolVar(&opts.compat, "bionlp-st-2013", false, "accept BioNLP Shared Task 2013 conventions")

	root.AddCommand(
		newServeCmd(opts),
		newCheckCmd(opts),
		newCatCmd(opts),
		newHistoryCmd(opts),
	)
	return root
}

// load builds the effective configuration: defaults, then the config
// file, then ANNSTORE_* variables, then flags set on the command line
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()

	path := o.configPath
	if path == "" {
		if _, err := os.Stat(config.FileName); err == nil {
			path = config.FileName
		}
	}
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.Storage.DataDir = o.dataDir
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("pretty") {
		cfg.Log.Pretty = o.pretty
	}
	if flags.Changed("bionlp-st-2013") {
		cfg.Compat.BioNLPST2013 = o.compat
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logger.Logger {
	logger.InitGlobalLogger(logger.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
	})
	return logger.GetGlobalLogger()
}

// openJournal opens the revision journal, or returns nil when disabled
func openJournal(cfg *config.Config) (*journal.Journal, error) {
	if cfg.Storage.JournalPath == "" {
		return nil, nil
	}
	j := &journal.Journal{Path: cfg.Storage.JournalPath}
	if err := j.Open(); err != nil {
		return nil, err
	}
	return j, nil
}

func newStore(cfg *config.Config, log *logger.Logger, j *journal.Journal, obs storage.Observer) (*storage.Store, error) {
	return storage.New(storage.Options{
		LockDir:             cfg.Storage.LockDir,
		LockTimeout:         cfg.Storage.LockTimeout,
		Compat2013:          cfg.Compat.BioNLPST2013,
		CompatRelationTypes: cfg.Compat.RelationTypes,
		Journal:             j,
		Observer:            obs,
		Logger:              log.Zerolog(),
	})
}
