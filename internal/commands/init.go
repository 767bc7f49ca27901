package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgerval/internal/accounts"
	"github.com/cleared-dev/ledgerval/internal/config"
	"github.com/cleared-dev/ledgerval/internal/gitops"
	"github.com/cleared-dev/ledgerval/internal/model"
	"github.com/cleared-dev/ledgerval/internal/store"
)

func newInitCommand() *cobra.Command {
	var currency string
	var chart string
	var git bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new ledgerval project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.OutOrStdout(), absDir, currency, chart, git)
		},
	}

	cmd.Flags().StringVar(&currency, "currency", "EUR", "book currency")
	cmd.Flags().StringVar(&chart, "chart", "", "chart of accounts CSV to start the book from (default: built-in chart)")
	cmd.Flags().BoolVar(&git, "git", false, "initialize a git repository and commit book changes")

	return cmd
}

func runInit(out io.Writer, dir, currency, chart string, git bool) error {
	cur := model.Currency(currency)
	if err := cur.Validate(); err != nil {
		return err
	}

	chartAccounts := accounts.DefaultChart(cur)
	if chart != "" {
		var err error
		if chartAccounts, err = readChart(chart); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	// Write ledgerval.yaml.
	cfg := config.Default()
	cfg.Currency.Fallback = cur.Code
	cfg.Git.AutoCommit = git
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Write a book holding the default chart of accounts.
	bookPath := filepath.Join(dir, cfg.Book.Path)
	if _, err := os.Stat(bookPath); err != nil {
		recs := store.Records{Accounts: chartAccounts}
		if err := store.SaveYAML(bookPath, recs); err != nil {
			return fmt.Errorf("writing book: %w", err)
		}
	}

	if !git {
		fmt.Fprintf(out, "Initialized ledgerval project at %s\n", dir)
		return nil
	}

	// Initialize git and create initial commit.
	if !gitops.IsRepo(dir) {
		if err := gitops.Init(dir); err != nil {
			return err
		}
	}
	author := gitops.Author{Name: cfg.Git.AuthorName, Email: cfg.Git.AuthorEmail}
	hash, err := gitops.Commit(dir, "init: ledgerval book", author, config.FileName, cfg.Book.Path)
	if err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}

	fmt.Fprintf(out, "Initialized ledgerval project at %s (%s)\n", dir, hash)
	return nil
}

// readChart loads a chart of accounts from CSV and checks its integrity.
func readChart(path string) ([]model.Account, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening chart: %w", err)
	}
	defer f.Close()

	accts, err := accounts.ReadAccounts(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(accts) == 0 {
		return nil, fmt.Errorf("%s: chart has no accounts", path)
	}
	if err := store.Check(store.Records{Accounts: accts}); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return accts, nil
}
