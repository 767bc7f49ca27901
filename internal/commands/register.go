package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgerval/internal/journal"
)

func newRegisterCommand(g *globalFlags) *cobra.Command {
	var asOf string
	var asCSV bool

	cmd := &cobra.Command{
		Use:   "register <account-id>",
		Short: "Show the splits of an account with a running balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDate(asOf)
			if err != nil {
				return err
			}

			s, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			rows, err := journal.NewService(s.book).Register(args[0], day)
			if err != nil {
				return err
			}
			if asCSV {
				return journal.WriteRows(cmd.OutOrStdout(), rows)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tNUM\tDESCRIPTION\tACTION\tAMOUNT\tBALANCE")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.Date.Format(dateLayout), r.Num, r.Description, r.Action, r.Quantity, r.Balance)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "stop after this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV instead of a table")

	return cmd
}
