// Package accounts provides lookups over the account tree of a book.
package accounts

import (
	"fmt"

	"github.com/cleared-dev/ledgerval/internal/model"
	"github.com/cleared-dev/ledgerval/internal/store"
)

// Separator joins account names in a qualified name.
const Separator = "::"

// unknownParent stands in for a parent that cannot be resolved.
const unknownParent = "UNKNOWN"

// Service provides in-memory lookup over the account tree.
type Service struct {
	accounts []model.Account
	byID     map[string]model.Account
	children map[string][]string
}

// NewService creates a Service from a slice of accounts in book order.
func NewService(accounts []model.Account) *Service {
	byID := make(map[string]model.Account, len(accounts))
	children := make(map[string][]string)
	for _, a := range accounts {
		byID[a.ID] = a
		if a.ParentID != "" {
			children[a.ParentID] = append(children[a.ParentID], a.ID)
		}
	}
	return &Service{accounts: accounts, byID: byID, children: children}
}

// Load reads the account tree from a book.
func Load(r store.Reader) (*Service, error) {
	accts, err := r.Accounts()
	if err != nil {
		return nil, fmt.Errorf("reading accounts: %w", err)
	}
	return NewService(accts), nil
}

// All returns all accounts.
func (s *Service) All() []model.Account {
	return s.accounts
}

// Get returns an account by ID.
func (s *Service) Get(id string) (model.Account, bool) {
	a, ok := s.byID[id]
	return a, ok
}

// Exists reports whether an account ID exists.
func (s *Service) Exists(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// ByType returns all accounts of the given type.
func (s *Service) ByType(accountType model.AccountType) []model.Account {
	var result []model.Account
	for _, a := range s.accounts {
		if a.Type == accountType {
			result = append(result, a)
		}
	}
	return result
}

// Children returns the direct children of an account.
func (s *Service) Children(id string) []model.Account {
	var result []model.Account
	for _, c := range s.children[id] {
		result = append(result, s.byID[c])
	}
	return result
}

// TopLevel returns the accounts without a parent.
func (s *Service) TopLevel() []model.Account {
	var result []model.Account
	for _, a := range s.accounts {
		if a.IsTopLevel() {
			result = append(result, a)
		}
	}
	return result
}

// Root returns the ROOT account, if the book has one.
func (s *Service) Root() (model.Account, bool) {
	roots := s.ByType(model.AccountTypeRoot)
	if len(roots) == 0 {
		return model.Account{}, false
	}
	return roots[0], true
}

// QualifiedName returns the account's name prefixed by its ancestors',
// e.g. "Root Account::Assets::Checking". A parent that does not resolve
// is rendered as "UNKNOWN".
func (s *Service) QualifiedName(id string) string {
	a, ok := s.byID[id]
	if !ok {
		return ""
	}
	name := a.Name
	seen := map[string]bool{a.ID: true}
	for p := a.ParentID; p != ""; {
		parent, ok := s.byID[p]
		if !ok || seen[p] {
			return unknownParent + Separator + name
		}
		seen[p] = true
		name = parent.Name + Separator + name
		p = parent.ParentID
	}
	return name
}

// IsDescendant reports whether id is ancestor itself or lies below it.
func (s *Service) IsDescendant(id, ancestor string) bool {
	seen := make(map[string]bool)
	for cur := id; cur != "" && !seen[cur]; {
		if cur == ancestor {
			return true
		}
		seen[cur] = true
		a, ok := s.byID[cur]
		if !ok {
			return false
		}
		cur = a.ParentID
	}
	return false
}

// Descendants returns every account below id, depth first in book order.
func (s *Service) Descendants(id string) []model.Account {
	var result []model.Account
	var walk func(string)
	walk = func(parent string) {
		for _, c := range s.children[parent] {
			result = append(result, s.byID[c])
			walk(c)
		}
	}
	walk(id)
	return result
}

// BaseCurrency returns the first currency commodity held by an account in
// book order, or fallback when no account holds a currency.
func (s *Service) BaseCurrency(fallback model.CommodityID) model.CommodityID {
	for _, a := range s.accounts {
		if a.Commodity.IsCurrency() {
			return a.Commodity
		}
	}
	return fallback
}
