package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/osmlookup/internal/normalize"
	"github.com/ppiankov/osmlookup/internal/pipeline"
)

// Resolver resolves one place name
type Resolver interface {
	Resolve(ctx context.Context, rawName string) (*pipeline.Resolution, error)
}

// ResolveJob resolves the name at a given input position
type ResolveJob struct {
	Index    int
	Name     string
	Resolver Resolver
}

// Execute runs the resolution
func (j *ResolveJob) Execute(ctx context.Context) Result {
	resolution, err := j.Resolver.Resolve(ctx, j.Name)
	return &NameResult{
		Index:      j.Index,
		Name:       j.Name,
		Resolution: resolution,
		Error:      err,
	}
}

// NameResult is the outcome of resolving one name of a batch
type NameResult struct {
	Index      int
	Name       string
	Resolution *pipeline.Resolution
	Error      error
}

// Err returns the resolution error, if any
func (r *NameResult) Err() error {
	return r.Error
}

// BatchProcessor resolves many place names concurrently
type BatchProcessor struct {
	resolver    Resolver
	concurrency int
}

// NewBatchProcessor creates a batch processor running concurrency resolutions at once
func NewBatchProcessor(resolver Resolver, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		resolver:    resolver,
		concurrency: concurrency,
	}
}

// ProcessNames resolves every name and returns results in input order
func (b *BatchProcessor) ProcessNames(ctx context.Context, names []string) []*NameResult {
	if len(names) == 0 {
		return []*NameResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	submitted := make(chan int, 1)
	go func() {
		n := 0
		for i, name := range names {
			if !pool.Submit(&ResolveJob{Index: i, Name: name, Resolver: b.resolver}) {
				break
			}
			n++
		}
		pool.Close()
		submitted <- n
	}()

	results := make([]*NameResult, 0, len(names))
	for result := range pool.Results() {
		results = append(results, result.(*NameResult))
	}
	<-submitted

	// Names never started because the context ended still get a result
	seen := make(map[int]bool, len(results))
	for _, r := range results {
		seen[r.Index] = true
	}
	for i, name := range names {
		if !seen[i] {
			results = append(results, &NameResult{Index: i, Name: name, Error: fmt.Errorf("not resolved: %w", context.Cause(ctx))})
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	return results
}

// ProcessFile reads place names from a file and resolves them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*NameResult, error) {
	names, err := ReadNamesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read names: %w", err)
	}

	return b.ProcessNames(ctx, names), nil
}

// ReadNamesFromFile reads one place name per line. Blank lines and
// '#' comments are skipped, and names that normalize identically are
// kept once.
func ReadNamesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var names []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key := normalize.Name(line)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return names, nil
}
