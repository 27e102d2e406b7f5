package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/suar-net/suar-probe/internal/config"
	"github.com/suar-net/suar-probe/internal/logging"
)

type rootOptions struct {
	jsonOutput bool
	verbose    bool
}

// NewRootCommand builds the suar-probe command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "suar-probe",
		Short: "Send HTTP probes and summarize their request logs",
		Long: `suar-probe executes one described HTTP request against a target API and
prints the normalized outcome. With a subscription id the attempt is written
to the configured request log store, which the analytics command summarizes.

Store and probe settings come from the same environment variables as the API
server (DATABASE_TYPE, DATABASE_URL, PROBE_*). A .env file is loaded if present.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}

	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output command results in JSON format")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr while running")

	root.AddCommand(newExecCommand(opts))
	root.AddCommand(newAnalyticsCommand(opts))
	return root
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *rootOptions) logger(cfg *config.Config) *slog.Logger {
	if !o.verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
