package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ppiankov/osmlookup/internal/model"
	"github.com/ppiankov/osmlookup/internal/pipeline"
	"github.com/ppiankov/osmlookup/internal/present"
	"github.com/ppiankov/osmlookup/internal/worker"
	"github.com/spf13/cobra"
)

var resolveTimeout time.Duration

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve <place name>",
	Short: "Look up one place by its exact OpenStreetMap name",
	Long: `Resolve searches ways and nodes named exactly <place name>, reads their
tags and prints the merged record. Underscores in the name are read as
spaces, so wiki-style names can be passed unquoted.

Example:
  osmlookup resolve "Château de Vaux-le-Vicomte"
  osmlookup resolve Tour_Eiffel --mode format
  osmlookup resolve Tour Eiffel --mode json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().DurationVar(&resolveTimeout, "deadline", 2*time.Minute, "overall deadline of the lookup")
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mode, err := present.ParseMode(cfg.Output.Mode)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), resolveTimeout)
	defer cancel()

	resolver := newResolver(cfg)
	lines, err := resolver.Render(ctx, strings.Join(args, " "), mode)
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), pipeline.FailureMessage(err))
		return fmt.Errorf("%w: %w", ErrReported, err)
	}

	return writeLines(cmd.OutOrStdout(), lines)
}

func newResolver(cfg *model.Config) *pipeline.Resolver {
	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	return pipeline.New(cfg, limiter, newLogger(cfg))
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	return nil
}
