package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgerval/internal/accounts"
	"github.com/cleared-dev/ledgerval/internal/balance"
	"github.com/cleared-dev/ledgerval/internal/config"
	"github.com/cleared-dev/ledgerval/internal/fixed"
	"github.com/cleared-dev/ledgerval/internal/gitops"
	"github.com/cleared-dev/ledgerval/internal/invoice"
	"github.com/cleared-dev/ledgerval/internal/logger"
	"github.com/cleared-dev/ledgerval/internal/model"
	"github.com/cleared-dev/ledgerval/internal/pricetable"
	"github.com/cleared-dev/ledgerval/internal/reconcile"
	"github.com/cleared-dev/ledgerval/internal/store"
	"github.com/cleared-dev/ledgerval/internal/store/sqlite"
)

// session is an opened book with its engines wired up.
type session struct {
	cfg  *config.Config
	log  zerolog.Logger
	book store.Book
	// memory is set for YAML books; writes are saved back to the file.
	memory *store.Memory
	sqlite *sqlite.Store

	accounts   *accounts.Service
	base       model.CommodityID
	prices     *pricetable.Table
	balances   *balance.Engine
	invoices   *invoice.Valuator
	reconciler *reconcile.Reconciler
}

// loadConfig reads the configuration file, then applies the environment and
// the command-line overrides. A missing default config file is not an error.
func (g *globalFlags) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if _, err := os.Stat(g.configPath); err == nil {
		cfg, err = config.Load(g.configPath)
		if err != nil {
			return nil, err
		}
		if !filepath.IsAbs(cfg.Book.Path) {
			cfg.Book.Path = filepath.Join(filepath.Dir(g.configPath), cfg.Book.Path)
		}
	} else if cmd.Flags().Changed("config") {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := cfg.ApplyEnv(g.envFile); err != nil {
		return nil, err
	}
	if g.bookPath != "" {
		cfg.Book.Path = g.bookPath
	}
	if g.format != "" {
		cfg.Book.Format = g.format
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// open loads the configured book and builds the engines over it.
func (g *globalFlags) open(cmd *cobra.Command) (*session, error) {
	cfg, err := g.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		Out:    cmd.ErrOrStderr(),
	})

	s := &session{cfg: cfg, log: log}
	if err := s.openBook(); err != nil {
		return nil, err
	}
	if err := s.wire(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) openBook() error {
	path := s.cfg.Book.Path
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("opening book: %w", err)
	}

	switch s.cfg.Book.Format {
	case config.FormatSQLite:
		db, err := sqlite.Open(path, s.log)
		if err != nil {
			return err
		}
		s.sqlite = db
		s.book = db
	default:
		mem, err := loadYAMLBook(path)
		if err != nil {
			return err
		}
		s.memory = mem
		s.book = mem
	}
	s.log.Debug().Str("book", path).Str("format", s.cfg.Book.Format).Msg("Opened book")
	return nil
}

// loadYAMLBook reads and validates a YAML book.
func loadYAMLBook(path string) (*store.Memory, error) {
	mem, err := store.LoadYAML(path)
	if err != nil {
		return nil, err
	}
	if err := store.Check(mem.Records()); err != nil {
		return nil, fmt.Errorf("validating book %s: %w", path, err)
	}
	return mem, nil
}

func (s *session) wire() error {
	svc, err := accounts.Load(s.book)
	if err != nil {
		return err
	}
	s.accounts = svc

	if s.cfg.Currency.Base != "" {
		s.base, err = model.ParseCommodityID(s.cfg.Currency.Base)
		if err != nil {
			return fmt.Errorf("base currency: %w", err)
		}
	} else {
		s.base = svc.BaseCurrency(model.Currency(s.cfg.Currency.Fallback))
	}

	if err := s.reloadPrices(); err != nil {
		return err
	}

	tolerance, err := fixed.Parse(s.cfg.Reconcile.Tolerance)
	if err != nil {
		return fmt.Errorf("reconcile tolerance: %w", err)
	}

	s.invoices = invoice.New(s.book, s.log)
	s.reconciler = reconcile.New(s.book, s.invoices, tolerance, s.log)
	return nil
}

// reloadPrices rebuilds the price table from the book's quotes and the
// balance engine that converts through it.
func (s *session) reloadPrices() error {
	prices, err := s.book.Prices()
	if err != nil {
		return fmt.Errorf("reading prices: %w", err)
	}
	s.prices = pricetable.Load(prices, s.base, s.log)
	s.balances = balance.New(s.book, s.prices, s.log)
	return nil
}

// save persists a YAML book after a write and commits it when the book sits
// at the top of a git repository with auto_commit on. SQLite writes are
// already durable.
func (s *session) save(message string) error {
	if s.memory == nil {
		return nil
	}
	path := s.cfg.Book.Path
	if err := store.SaveYAML(path, s.memory.Records()); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if !s.cfg.Git.AutoCommit || !gitops.IsRepo(dir) {
		return nil
	}
	author := gitops.Author{Name: s.cfg.Git.AuthorName, Email: s.cfg.Git.AuthorEmail}
	hash, err := gitops.Commit(dir, message, author, filepath.Base(path))
	if err != nil {
		return err
	}
	s.log.Info().Str("commit", hash).Msg("Committed book")
	return nil
}

// Close releases the book.
func (s *session) Close() {
	if s.sqlite == nil {
		return
	}
	if err := s.sqlite.Close(); err != nil {
		s.log.Warn().Err(err).Msg("Closing book")
	}
}

// account resolves an account id, wrapping store.ErrNotFound.
func (s *session) account(accountID string) (model.Account, error) {
	a, ok := s.accounts.Get(accountID)
	if !ok {
		return model.Account{}, fmt.Errorf("account %q: %w", accountID, store.ErrNotFound)
	}
	return a, nil
}

// commodity parses a commodity flag, defaulting to def when empty.
func commodity(s string, def model.CommodityID) (model.CommodityID, error) {
	if s == "" {
		return def, nil
	}
	c, err := model.ParseCommodityID(s)
	if err != nil {
		return model.CommodityID{}, err
	}
	if err := c.Validate(); err != nil {
		return model.CommodityID{}, err
	}
	return c, nil
}

// formatAmount renders currencies at their minor unit and securities
// exactly.
func formatAmount(n fixed.Number, c model.CommodityID) string {
	if c.IsCurrency() {
		return n.StringCurrency(c.Code)
	}
	return n.String() + " " + c.String()
}
