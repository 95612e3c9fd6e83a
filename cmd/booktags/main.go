package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	applog "indieconverters/internal/log"
	"indieconverters/internal/repos"
	"indieconverters/internal/services"
	"indieconverters/internal/tagging"
)

var (
	dbDSN     string
	rulesPath string
	dryRun    bool
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "booktags",
	Short: "Generate discovery tags for published books",
	Long: `Derives format, release, genre, length, theme, audience, mood, season and
discovery tags for every published book and stores them on the book.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&dbDSN, "db", envOr("DB_DSN", "indieconverters.db"), "SQLite database path")
	rootCmd.Flags().StringVar(&rulesPath, "rules", "", "YAML keyword rules (default: built-in)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print tags without writing them")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(cmd *cobra.Command, _ []string) error {
	applog.Setup(cmd.ErrOrStderr(), logLevel, "text")

	rules, err := tagging.DefaultRules()
	if rulesPath != "" {
		rules, err = tagging.LoadRules(rulesPath)
	}
	if err != nil {
		return err
	}

	db, err := repos.OpenDB(dbDSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	svc := &services.TagService{
		Books:  repos.NewBookRepo(db),
		Genres: repos.NewGenreRepo(db),
		Gen:    tagging.NewGenerator(rules),
	}
	results, err := svc.Retag(cmd.Context(), dryRun)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(out, "%s: error: %v\n", r.Title, r.Err)
			continue
		}
		fmt.Fprintf(out, "%s: %s\n", r.Title, strings.Join(r.Tags, ", "))
	}
	fmt.Fprintf(out, "\n%d books, %d failed\n", len(results), failed)
	if failed > 0 {
		return fmt.Errorf("%d books could not be tagged", failed)
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
