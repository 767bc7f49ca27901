package model

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"gopkg.in/yaml.v3"
)

// NamespaceCurrency is the commodity namespace of ISO 4217 currencies.
// Every other namespace (an exchange, a fund family, "TEMPLATE", ...)
// denotes a security.
const NamespaceCurrency = "CURRENCY"

// CommodityID identifies a currency or a security by namespace and code.
type CommodityID struct {
	Namespace string
	Code      string
}

// Currency returns the id of an ISO 4217 currency.
func Currency(code string) CommodityID {
	return CommodityID{Namespace: NamespaceCurrency, Code: strings.ToUpper(code)}
}

// Security returns the id of a non-currency commodity.
func Security(namespace, code string) CommodityID {
	return CommodityID{Namespace: namespace, Code: code}
}

// IsCurrency reports whether c lives in the CURRENCY namespace.
func (c CommodityID) IsCurrency() bool { return c.Namespace == NamespaceCurrency }

// IsZero reports whether c is unset.
func (c CommodityID) IsZero() bool { return c.Namespace == "" && c.Code == "" }

// String renders "NAMESPACE:CODE".
func (c CommodityID) String() string { return c.Namespace + ":" + c.Code }

// Validate checks that currency codes are known ISO 4217 codes.
func (c CommodityID) Validate() error {
	if c.Namespace == "" || c.Code == "" {
		return fmt.Errorf("incomplete commodity %q", c.String())
	}
	if c.IsCurrency() && money.GetCurrency(c.Code) == nil {
		return fmt.Errorf("unknown currency code %q", c.Code)
	}
	return nil
}

// ParseCommodityID reads "NAMESPACE:CODE". A bare code is taken as a currency.
func ParseCommodityID(s string) (CommodityID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CommodityID{}, fmt.Errorf("empty commodity id")
	}
	ns, code, found := strings.Cut(s, ":")
	if !found {
		return Currency(s), nil
	}
	if ns == "" || code == "" {
		return CommodityID{}, fmt.Errorf("invalid commodity id %q", s)
	}
	if strings.EqualFold(ns, NamespaceCurrency) {
		return Currency(code), nil
	}
	return Security(ns, code), nil
}

// MarshalYAML writes the "NAMESPACE:CODE" form.
func (c CommodityID) MarshalYAML() (any, error) { return c.String(), nil }

// UnmarshalYAML reads the "NAMESPACE:CODE" form.
func (c *CommodityID) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseCommodityID(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*c = parsed
	return nil
}
