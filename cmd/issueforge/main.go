// Package main provides the issueforge CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"issueforge/cli"
)

var (
	// Global flags
	provider   string
	modelName  string
	cheapest   bool
	noFallback bool
	dbPath     string
	verbose    bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "issueforge",
		Short: "LLM-backed issue enhancement with fallback and cost governance",
		Long: `issueforge turns raw feedback records (crash reports, free-text feedback)
into structured, triage-ready issues using interchangeable LLM backends.

Backend selection, cost ceilings, the fallback chain and usage accounting
are handled automatically; enhancement always produces a usable result.`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM backend (openai, anthropic, deepseek, gemini)")
	rootCmd.PersistentFlags().StringVar(&modelName, "model", "", "Model override for the selected backend")
	rootCmd.PersistentFlags().BoolVar(&cheapest, "cheapest", false, "Select the backend with the lowest estimated cost")
	rootCmd.PersistentFlags().BoolVar(&noFallback, "no-fallback", false, "Disable the fallback chain")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite path for enhancement history")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show usage accounting on stderr")

	rootCmd.AddCommand(enhanceCmd())
	rootCmd.AddCommand(healthCmd())
	rootCmd.AddCommand(historyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options() cli.Options {
	return cli.Options{
		Provider:   provider,
		Model:      modelName,
		Cheapest:   cheapest,
		NoFallback: noFallback,
		DBPath:     dbPath,
		Verbose:    verbose,
	}
}

func enhanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enhance [request.json]",
		Short: "Enhance a feedback record into a triage-ready issue",
		Long: `Enhance reads a feedback record (JSON) from the given file, or stdin
when the argument is "-", and prints the enhanced issue as JSON.

The record carries a title, description and kind (crash, general,
performance), plus optional crash context, code snippets and recent diffs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Enhance(context.Background(), args[0], options())
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Report backend and budget health without spending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Health(options())
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent persisted enhancement runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.History(context.Background(), limit, options())
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum records to list")

	return cmd
}
