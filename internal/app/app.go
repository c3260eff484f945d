// Package app wires configuration, logging, and the domain packages into the
// operations exposed by the CLI commands.
package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"cotacoes-ledger/internal/config"
	"cotacoes-ledger/internal/fetcher"
	"cotacoes-ledger/internal/netcopy"
	"cotacoes-ledger/internal/storage"
	"cotacoes-ledger/internal/window"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newRegistry() *fetcher.Registry {
	return fetcher.NewRegistry(fetcher.Options{
		AwesomeAPIBaseURL: a.Config.Fetch.AwesomeAPIBaseURL,
		PtaxBaseURL:       a.Config.Fetch.PtaxBaseURL,
		SGSBaseURL:        a.Config.Fetch.SGSBaseURL,
		Timeout:           a.Config.Fetch.RequestTimeout,
		UserAgent:         a.Config.Fetch.UserAgent,
	}, a.Logger)
}

// windowPolicy builds the admission policy from config. Validate already
// guaranteed the boundaries parse.
func (a *App) windowPolicy() window.Policy {
	policy := window.Default()
	if hour, minute, err := config.ParseClock(a.Config.Window.MorningCutoff); err == nil {
		policy.MorningCutoff = window.Clock{Hour: hour, Minute: minute}
	}
	if hour, minute, err := config.ParseClock(a.Config.Window.PtaxFrom); err == nil {
		policy.PtaxFrom = window.Clock{Hour: hour, Minute: minute}
	}
	return policy
}

func (a *App) newReplicator() *netcopy.Replicator {
	return netcopy.NewReplicator(a.Config.Network.Destinations(), a.Config.Network.DestFolder, a.Logger)
}

// referenceWorkbooks lists the candidate shared copies of the workbook.
func (a *App) referenceWorkbooks(replicator *netcopy.Replicator) []string {
	return replicator.ReferencePaths(a.Config.Ledger.Folder, a.Config.Ledger.WorkbookName)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// RunOptions configure a collection run.
type RunOptions struct {
	// Overwrite forces quote cells to be rewritten even when already filled.
	Overwrite bool
	// Now overrides the run clock; zero means time.Now. Used by tests and by
	// operators replaying a missed window.
	Now time.Time
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// HistoryOptions configure the history command.
type HistoryOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting ledger history.
type ExportOptions struct {
	CSVPath   string
	PNGPath   string
	MaxPoints int
}

func (a *App) clock(opts RunOptions) time.Time {
	if !opts.Now.IsZero() {
		return opts.Now
	}
	return time.Now()
}
