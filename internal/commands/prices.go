package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgerval/internal/fixed"
	"github.com/cleared-dev/ledgerval/internal/importer"
	"github.com/cleared-dev/ledgerval/internal/model"
)

func newPricesCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "prices",
		Short: "Show the base currency and conversion factors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Base\t%s\n", s.prices.Base())
			for _, f := range s.prices.Factors() {
				fmt.Fprintf(w, "%s\t%s\n", f.Commodity, f.Value)
			}
			return w.Flush()
		},
	}
}

func newConvertCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <amount> <from> <to>",
		Short: "Convert an amount between commodities through the base currency",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := fixed.Parse(args[0])
			if err != nil {
				return err
			}
			from, err := model.ParseCommodityID(args[1])
			if err != nil {
				return err
			}
			to, err := model.ParseCommodityID(args[2])
			if err != nil {
				return err
			}

			s, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			got, err := s.prices.Convert(amount, from, to)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatAmount(got, to))
			return nil
		},
	}
}

func newPriceCommand(g *globalFlags) *cobra.Command {
	priceCmd := &cobra.Command{
		Use:   "price",
		Short: "Price list operations",
	}
	priceCmd.AddCommand(newPriceAddCommand(g), newPriceImportCommand(g))
	return priceCmd
}

func newPriceAddCommand(g *globalFlags) *cobra.Command {
	var date string
	var priceType string

	cmd := &cobra.Command{
		Use:   "add <commodity> <currency> <value>",
		Short: "Record a price quote",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := commodity(args[0], model.CommodityID{})
			if err != nil {
				return err
			}
			cur, err := commodity(args[1], model.CommodityID{})
			if err != nil {
				return err
			}
			value, err := fixed.ParseFraction(args[2])
			if err != nil {
				return err
			}
			if !value.IsPositive() {
				return fmt.Errorf("price must be positive, got %s", value)
			}
			typ, err := model.ParsePriceType(priceType)
			if err != nil {
				return err
			}
			day, err := parseDate(date)
			if err != nil {
				return err
			}
			if day.IsZero() {
				day = model.Day(time.Now().UTC())
			}

			s, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			p, err := s.book.AddPrice(model.Price{
				Commodity: c,
				Currency:  cur,
				Date:      day,
				Value:     value,
				Source:    model.PriceSourceEditor,
				Type:      typ,
			})
			if err != nil {
				return err
			}
			if err := s.save(fmt.Sprintf("price: %s in %s", c, cur)); err != nil {
				return err
			}
			if err := s.reloadPrices(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Recorded price %s: 1 %s = %s\n", p.ID, c, formatAmount(value, cur))
			if f, ok := s.prices.ConversionFactor(c.Namespace, c.Code); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Conversion factor %s = %s\n", c, f)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "quote date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&priceType, "type", string(model.PriceTypeLast), "quote type: bid, ask, last, nav, transaction or unknown")

	return cmd
}

func newPriceImportCommand(g *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Record every quote of a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening quotes: %w", err)
			}
			defer f.Close()

			prices, err := importer.DefaultRegistry().Parse(format, f)
			if err != nil {
				return err
			}

			s, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			for _, p := range prices {
				if _, err := s.book.AddPrice(p); err != nil {
					return err
				}
			}
			if err := s.save(fmt.Sprintf("price: import %d quotes from %s", len(prices), filepath.Base(args[0]))); err != nil {
				return err
			}
			s.log.Info().Str("file", args[0]).Int("prices", len(prices)).Msg("Imported quotes")
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d prices from %s\n", len(prices), args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "quote-format", "quotes", "quote file format: quotes or gnucash")

	return cmd
}
