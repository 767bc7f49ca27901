package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgerval/internal/logger"
	"github.com/cleared-dev/ledgerval/internal/store/sqlite"
)

func newImportCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <book.yaml> <book.sqlite>",
		Short: "Copy a YAML book into a new SQLite database",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, dst := args[0], args[1]
			if _, err := os.Stat(dst); err == nil {
				return fmt.Errorf("%s already exists", dst)
			}

			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, Out: cmd.ErrOrStderr()})

			mem, err := loadYAMLBook(src)
			if err != nil {
				return err
			}
			db, err := sqlite.Open(dst, log)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Import(mem); err != nil {
				return fmt.Errorf("importing %s: %w", src, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s into %s\n", src, dst)
			return nil
		},
	}
}
