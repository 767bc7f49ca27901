// Package importer reads price quote files into price records.
package importer

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cleared-dev/ledgerval/internal/model"
)

// Parser converts a quote file into prices.
type Parser interface {
	Parse(r io.Reader) ([]model.Price, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// Formats lists the registered formats, sorted.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.parsers))
	for k := range r.parsers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Parse reads r with the parser registered for format.
func (r *Registry) Parse(format string, in io.Reader) ([]model.Price, error) {
	p := r.Get(format)
	if p == nil {
		return nil, fmt.Errorf("unknown quote format %q (have %s)", format, strings.Join(r.Formats(), ", "))
	}
	return p.Parse(in)
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&QuotesParser{})
	r.Register(&FractionParser{})
	return r
}
