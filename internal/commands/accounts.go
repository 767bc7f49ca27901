package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgerval/internal/accounts"
)

func newAccountsCommand(g *globalFlags) *cobra.Command {
	var asCSV bool

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List the account tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			all := s.accounts.All()
			if asCSV {
				return accounts.WriteAccounts(cmd.OutOrStdout(), all)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCODE\tNAME\tTYPE\tCOMMODITY")
			for _, a := range all {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Code, s.accounts.QualifiedName(a.ID), a.Type, a.Commodity)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV instead of a table")

	return cmd
}
