package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgerval/internal/fixed"
)

const dateLayout = "2006-01-02"

// parseDate reads an optional YYYY-MM-DD flag; empty means no cutoff.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

func newBalanceCommand(g *globalFlags) *cobra.Command {
	var asOf string
	var currency string
	var recursive bool

	cmd := &cobra.Command{
		Use:   "balance <account-id>",
		Short: "Show the balance of an account",
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

			acct, err := s.account(args[0])
			if err != nil {
				return err
			}
			target, err := commodity(currency, acct.Commodity)
			if err != nil {
				return err
			}

			var bal fixed.Number
			switch {
			case recursive:
				bal, err = s.balances.BalanceRecursive(acct.ID, day, target)
			case currency != "":
				bal, err = s.balances.BalanceIn(acct.ID, day, target)
			default:
				bal, err = s.balances.Balance(acct.ID, day)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", s.accounts.QualifiedName(acct.ID), formatAmount(bal, target))
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "only count splits posted on or before this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&currency, "currency", "", "report in this commodity (CODE or NAMESPACE:CODE)")
	cmd.Flags().BoolVar(&recursive, "recursive", false, "include descendant accounts")

	return cmd
}
