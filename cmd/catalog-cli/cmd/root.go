package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/lib/textutil"

	"github.com/spf13/cobra"
)

var (
	configPath string
	dbPath     string
	limit      int
	programs   []string
	verbose    bool

	config Config
)

var rootCmd = &cobra.Command{
	Use:   "catalog-cli",
	Short: "catalog-cli scrapes degree program requirements from a university course catalog.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		var err error
		config, err = LoadConfig(configPath)
		if err != nil {
			return err
		}
		if dbPath != "" {
			config.Database.File = dbPath
			config.Database.Url = ""
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "config.json5", "path to the config file")
	flags.StringVar(&dbPath, "db", "", "path to a local sqlite database, overrides the config")
	flags.IntVar(&limit, "limit", 0, "process at most this many programs (0 means all)")
	flags.StringSliceVar(&programs, "program", nil, "only process programs whose name contains one of these")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log debug information")
}

// selectPrograms applies the --program and --limit flags.
func selectPrograms(all []catalog.Program, names []string, limit int) []catalog.Program {
	matchers := make([]string, len(names))
	for i, n := range names {
		matchers[i] = textutil.NormalizeName(n)
	}

	var out []catalog.Program
	for _, p := range all {
		if len(matchers) > 0 && !textutil.MatchName(p.Name, matchers) {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
