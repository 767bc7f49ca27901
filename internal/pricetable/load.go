package pricetable

import (
	"github.com/rs/zerolog"

	"github.com/cleared-dev/ledgerval/internal/model"
)

// Load builds a table from a price list. For each commodity the
// chronologically latest quote wins; equal dates keep the quote listed
// first. Quotes for the base currency itself are ignored. A quote in a
// currency other than the base is chained through that currency's own
// factor when the list provides one, otherwise it is skipped.
func Load(prices []model.Price, base model.CommodityID, log zerolog.Logger) *Table {
	log = log.With().Str("component", "pricetable").Logger()
	t := New(base)

	latest := make(map[model.CommodityID]model.Price)
	var order []model.CommodityID
	for _, p := range prices {
		if p.Commodity.IsZero() || p.Currency.IsZero() || !p.Value.IsPositive() {
			log.Warn().Str("price", p.ID).Msg("Ignoring incomplete price quote")
			continue
		}
		if p.Commodity == base {
			log.Debug().Str("price", p.ID).Str("base", base.String()).Msg("Ignoring quote for the base currency")
			continue
		}
		cur, seen := latest[p.Commodity]
		if !seen {
			order = append(order, p.Commodity)
			latest[p.Commodity] = p
			continue
		}
		if p.Date.After(cur.Date) {
			latest[p.Commodity] = p
		}
	}

	var chained []model.Price
	for _, id := range order {
		p := latest[id]
		if p.Currency != base {
			chained = append(chained, p)
			continue
		}
		// Value is positive, so the factor is always accepted.
		_ = t.SetConversionFactor(id.Namespace, id.Code, p.Value)
	}

	for _, p := range chained {
		via, ok := t.ConversionFactor(p.Currency.Namespace, p.Currency.Code)
		if !ok {
			log.Warn().
				Str("commodity", p.Commodity.String()).
				Str("currency", p.Currency.String()).
				Msg("Skipping quote in a currency without a factor")
			continue
		}
		_ = t.SetConversionFactor(p.Commodity.Namespace, p.Commodity.Code, p.Value.Mul(via))
	}

	log.Info().
		Int("prices", len(prices)).
		Int("factors", t.Len()).
		Str("base", base.String()).
		Msg("Price table loaded")
	return t
}
