package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/ppiankov/osmlookup/internal/model"
	"github.com/ppiankov/osmlookup/internal/pipeline"
	"github.com/ppiankov/osmlookup/internal/present"
	"github.com/ppiankov/osmlookup/internal/worker"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	workers      int
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Look up every place name listed in a file",
	Long: `Batch reads place names from a file (one per line, '#' starts a comment),
resolves them in parallel and prints the results in file order.

Example:
  osmlookup batch places.txt
  osmlookup batch places.txt --workers 2 --mode json`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&workers, "workers", min(runtime.NumCPU(), 4), "number of places resolved at once")
	batchCmd.Flags().DurationVar(&batchTimeout, "deadline", 10*time.Minute, "overall deadline of the batch")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mode, err := present.ParseMode(cfg.Output.Mode)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	resolver := newResolver(cfg)
	processor := worker.NewBatchProcessor(resolver, workers)

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Resolving places from %s with %d workers\n", args[0], workers)
	}

	results, err := processor.ProcessFile(ctx, args[0])
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	presenter := present.New(cfg.Output.WikipediaLanguage)
	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
	}

	out := cmd.OutOrStdout()
	switch mode {
	case present.JSON, present.YAML:
		err = writeBatchDocument(out, results, mode)
	default:
		err = writeBatchSections(out, results, presenter, mode)
	}
	if err != nil {
		return err
	}

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Resolved %d/%d places\n", len(results)-failed, len(results))
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d places failed", ErrReported, failed, len(results))
	}
	return nil
}

func writeBatchSections(w io.Writer, results []*worker.NameResult, presenter *present.Presenter, mode present.Mode) error {
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "## %s\n", r.Name)

		if r.Error != nil {
			fmt.Fprintln(w, pipeline.FailureMessage(r.Error))
			continue
		}

		lines, err := presenter.Render(r.Resolution.Record, mode)
		if err != nil {
			return fmt.Errorf("render %q: %w", r.Name, err)
		}
		if err := writeLines(w, lines); err != nil {
			return err
		}
	}
	return nil
}

// batchEntry is one place in the JSON and YAML batch output
type batchEntry struct {
	Query       string                 `json:"query" yaml:"query"`
	Name        string                 `json:"name,omitempty" yaml:"name,omitempty"`
	Record      *model.CanonicalRecord `json:"record,omitempty" yaml:"record,omitempty"`
	Sources     []string               `json:"sources,omitempty" yaml:"sources,omitempty"`
	FieldSource map[string]string      `json:"field_source,omitempty" yaml:"field_source,omitempty"` // tag -> entity that supplied it
	Dropped     []string               `json:"dropped,omitempty" yaml:"dropped,omitempty"`
	Error       string                 `json:"error,omitempty" yaml:"error,omitempty"`
}

func writeBatchDocument(w io.Writer, results []*worker.NameResult, mode present.Mode) error {
	entries := make([]batchEntry, 0, len(results))
	for _, r := range results {
		entry := batchEntry{Query: r.Name}
		if r.Error != nil {
			entry.Error = pipeline.FailureMessage(r.Error)
		} else {
			rec := r.Resolution.Record
			entry.Name = r.Resolution.Name
			entry.Record = &rec
			for _, ref := range r.Resolution.Sources {
				entry.Sources = append(entry.Sources, ref.String())
			}
			if len(r.Resolution.FieldSources) > 0 {
				entry.FieldSource = make(map[string]string, len(r.Resolution.FieldSources))
				for field, ref := range r.Resolution.FieldSources {
					entry.FieldSource[field.Tag()] = ref.String()
				}
			}
			for _, f := range r.Resolution.Failures {
				entry.Dropped = append(entry.Dropped, f.Ref.String())
			}
		}
		entries = append(entries, entry)
	}

	var (
		out []byte
		err error
	)
	if mode == present.YAML {
		out, err = yaml.Marshal(entries)
	} else {
		out, err = json.MarshalIndent(entries, "", "  ")
		out = append(out, '\n')
	}
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	_, err = w.Write(out)
	return err
}
