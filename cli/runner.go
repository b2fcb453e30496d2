// Command execution for CLI commands.
//
// Information Hiding:
// - Settings loading and orchestrator setup hidden
// - Input decoding and output formatting hidden

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"issueforge/config"
	"issueforge/enhancer"
	"issueforge/model"
	"issueforge/storage"
)

// Options holds CLI execution options.
type Options struct {
	Provider   string
	Model      string
	Cheapest   bool
	NoFallback bool
	DBPath     string
	Verbose    bool
}

// DefaultOptions returns default CLI options.
func DefaultOptions() Options {
	return Options{}
}

// Enhance reads a feedback record from inputPath ("-" for stdin), runs the
// enhancement pipeline, and prints the result as JSON.
func Enhance(ctx context.Context, inputPath string, opts Options) error {
	req, err := readRequest(inputPath)
	if err != nil {
		return err
	}

	e, err := buildEnhancer()
	if err != nil {
		return err
	}

	result := e.Enhance(ctx, req, enhancer.Options{
		Provider:        opts.Provider,
		Model:           opts.Model,
		PreferCheapest:  opts.Cheapest,
		DisableFallback: opts.NoFallback,
	})

	if opts.DBPath != "" {
		store, err := storage.OpenHistory(opts.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer store.Close()

		id, err := store.Save(ctx, req, result)
		if err != nil {
			return fmt.Errorf("failed to save history: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Saved enhancement %s\n", id)
	}

	if opts.Verbose {
		printUsage(e)
	}

	return printJSON(result)
}

// Health prints the networkless health snapshot as JSON. The startup
// credential check is skipped so a misconfigured deployment still gets a
// report instead of an error.
func Health(opts Options) error {
	settings, registry, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	e, err := enhancer.New(settings, registry, enhancer.WithoutStartupCheck())
	if err != nil {
		return err
	}
	return printJSON(e.HealthCheck())
}

// History lists the most recent persisted enhancement runs.
func History(ctx context.Context, limit int, opts Options) error {
	if opts.DBPath == "" {
		return fmt.Errorf("history requires --db")
	}

	store, err := storage.OpenHistory(opts.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer store.Close()

	records, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("No enhancement history.")
		return nil
	}

	for _, r := range records {
		fmt.Printf("%s  %s  %-10s  %-8s  $%.4f  %s\n",
			r.ID,
			r.CreatedAt.Format(time.RFC3339),
			r.Result.Metadata.Provider,
			r.Result.Priority,
			r.Result.Metadata.CostUSD,
			r.Result.Title)
	}

	if opts.Verbose {
		costs, err := store.CostByProvider(ctx)
		if err != nil {
			return err
		}
		fmt.Println("\nCost by backend:")
		for provider, cost := range costs {
			fmt.Printf("  %-10s $%.4f\n", provider, cost)
		}
	}

	return nil
}

// buildEnhancer loads settings from the environment and constructs the
// orchestrator.
func buildEnhancer() (*enhancer.Enhancer, error) {
	settings, registry, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return enhancer.New(settings, registry)
}

// readRequest decodes an EnhancementRequest from a JSON file or stdin.
func readRequest(path string) (model.EnhancementRequest, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return model.EnhancementRequest{}, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	var req model.EnhancementRequest
	dec := json.NewDecoder(r)
	if err := dec.Decode(&req); err != nil {
		return model.EnhancementRequest{}, fmt.Errorf("failed to decode request: %w", err)
	}
	if req.Kind == "" {
		req.Kind = model.FeedbackGeneral
	}
	return req, nil
}

func printUsage(e *enhancer.Enhancer) {
	snap := e.UsageStats()
	fmt.Fprintf(os.Stderr, "Usage: %d requests, %d tokens, $%.4f\n",
		snap.TotalRequests, snap.TotalTokens, snap.TotalCostUSD)
	for name, u := range snap.Providers {
		fmt.Fprintf(os.Stderr, "  %-10s %d/%d ok, %d tokens, $%.4f\n",
			name, u.Successes, u.Requests, u.Tokens, u.CostUSD)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
