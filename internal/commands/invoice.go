package commands

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgerval/internal/model"
	"github.com/cleared-dev/ledgerval/internal/reconcile"
	"github.com/cleared-dev/ledgerval/internal/store"
)

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func newInvoiceCommand(g *globalFlags) *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "invoice <invoice-id>",
		Short: "Value an invoice and show its payment state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var kind model.OwnerKind
			if as != "" {
				k, err := model.ParseOwnerKind(as)
				if err != nil {
					return err
				}
				kind = k
			}

			s, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			inv, err := s.book.Invoice(args[0])
			if err != nil {
				return err
			}
			var st reconcile.Status
			if kind != "" {
				st, err = s.reconciler.StatusAs(inv, kind)
			} else {
				st, err = s.reconciler.Status(inv)
			}
			if err != nil {
				return err
			}
			breakdown, err := s.invoices.TaxBreakdown(inv)
			if err != nil {
				return err
			}

			cur := inv.Currency
			if cur.IsZero() {
				cur = s.base
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Invoice\t%s %s\n", inv.ID, inv.Number)
			fmt.Fprintf(w, "Owner\t%s %s (%s)\n", inv.Owner.Kind, inv.Owner.ID, st.Kind)
			fmt.Fprintf(w, "Without tax\t%s\n", formatAmount(st.WithoutTax, cur))
			for _, t := range breakdown {
				fmt.Fprintf(w, "Tax %s%%\t%s\n", t.Rate, formatAmount(t.Amount, cur))
			}
			fmt.Fprintf(w, "With tax\t%s\n", formatAmount(st.WithTax, cur))
			fmt.Fprintf(w, "Paid\t%s\n", formatAmount(st.Paid, cur))
			fmt.Fprintf(w, "Unpaid\t%s\n", formatAmount(st.Unpaid, cur))
			fmt.Fprintf(w, "Fully paid\t%s\n", yesNo(st.FullyPaid))
			for _, tx := range st.Payments {
				fmt.Fprintf(w, "Payment\t%s %s %s\n", tx.ID, tx.DatePosted.Format(dateLayout), tx.Description)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&as, "as", "", "expected owner kind: customer, vendor, employee or job")
	cmd.AddCommand(newInvoiceEntryCommand(g))

	return cmd
}

func newInvoiceEntryCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Short: "Edit invoice entries",
	}
	cmd.AddCommand(newEntryTaxTableCommand(g))
	return cmd
}

func newEntryTaxTableCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tax-table <invoice-id> <entry-id> <table-id>",
		Short: "Apply a tax table to an invoice entry",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			inv, err := s.book.Invoice(args[0])
			if err != nil {
				return err
			}
			entries, err := s.book.InvoiceEntries(inv.ID)
			if err != nil {
				return err
			}
			idx := slices.IndexFunc(entries, func(e model.InvoiceEntry) bool { return e.ID == args[1] })
			if idx < 0 {
				return fmt.Errorf("entry %s of invoice %s: %w", args[1], inv.ID, store.ErrNotFound)
			}
			table, err := s.book.TaxTable(args[2])
			if err != nil {
				return err
			}

			entry, err := s.invoices.ApplyTaxTable(s.book, entries[idx], table)
			if err != nil {
				return err
			}
			if err := s.save(fmt.Sprintf("invoice: %s entry %s tax table %s", inv.ID, entry.ID, table.ID)); err != nil {
				return err
			}

			with, err := s.invoices.SumWithTax(inv)
			if err != nil {
				return err
			}
			without, err := s.invoices.SumWithoutTax(inv)
			if err != nil {
				return err
			}
			cur := inv.Currency
			if cur.IsZero() {
				cur = s.base
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Entry\t%s %s\n", entry.ID, entry.Description)
			fmt.Fprintf(w, "Tax table\t%s\n", table.ID)
			fmt.Fprintf(w, "Tax rate\t%s%%\n", entry.TaxRate)
			fmt.Fprintf(w, "Without tax\t%s\n", formatAmount(without, cur))
			fmt.Fprintf(w, "With tax\t%s\n", formatAmount(with, cur))
			return w.Flush()
		},
	}
}

func newInvoicesCommand(g *globalFlags) *cobra.Command {
	var paid, unpaid bool

	cmd := &cobra.Command{
		Use:   "invoices",
		Short: "List invoices with their payment state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			var list []reconcile.Status
			switch {
			case paid:
				list, err = s.reconciler.Paid()
			case unpaid:
				list, err = s.reconciler.Unpaid()
			default:
				list, err = s.reconciler.Statuses()
			}
			if err != nil {
				return err
			}
			return writeStatuses(cmd.OutOrStdout(), list, s.base)
		},
	}

	cmd.Flags().BoolVar(&paid, "paid", false, "only fully paid invoices")
	cmd.Flags().BoolVar(&unpaid, "unpaid", false, "only invoices with an outstanding amount")
	cmd.MarkFlagsMutuallyExclusive("paid", "unpaid")

	return cmd
}

func writeStatuses(out io.Writer, list []reconcile.Status, base model.CommodityID) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNUMBER\tKIND\tWITH TAX\tPAID\tUNPAID\tFULLY PAID")
	for _, st := range list {
		cur := st.Invoice.Currency
		if cur.IsZero() {
			cur = base
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			st.Invoice.ID, st.Invoice.Number, st.Kind,
			formatAmount(st.WithTax, cur), formatAmount(st.Paid, cur), formatAmount(st.Unpaid, cur),
			yesNo(st.FullyPaid))
	}
	return w.Flush()
}
