package commands

import (
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgerval/internal/buildinfo"
	"github.com/cleared-dev/ledgerval/internal/config"
)

// globalFlags are shared by every command that opens a book.
type globalFlags struct {
	configPath string
	envFile    string
	bookPath   string
	format     string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:     "ledgerval",
		Short:   "Value and reconcile GnuCash-style books",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&g.configPath, "config", config.FileName, "configuration file")
	flags.StringVar(&g.envFile, "env-file", ".env", "environment file applied over the configuration")
	flags.StringVar(&g.bookPath, "book", "", "book file (overrides the configuration)")
	flags.StringVar(&g.format, "format", "", "book format: yaml or sqlite (overrides the configuration)")

	rootCmd.AddCommand(
		newInitCommand(),
		newAccountsCommand(&g),
		newBalanceCommand(&g),
		newRegisterCommand(&g),
		newInvoiceCommand(&g),
		newInvoicesCommand(&g),
		newPricesCommand(&g),
		newConvertCommand(&g),
		newPriceCommand(&g),
		newImportCommand(&g),
	)

	return rootCmd
}
