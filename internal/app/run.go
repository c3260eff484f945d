package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"cotacoes-ledger/internal/brnum"
	"cotacoes-ledger/internal/fetcher"
	"cotacoes-ledger/internal/ledger"
	"cotacoes-ledger/internal/netcopy"
	"cotacoes-ledger/internal/quotes"
	"cotacoes-ledger/internal/storage"
	"cotacoes-ledger/internal/window"
)

// Run executes one collection pass: sync the workbook with the shared copy,
// decide which sources the current window admits, fetch them, merge the
// results into the ledger, regenerate the CSV mirror, and replicate back.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	started := time.Now()
	now := a.clock(opts)

	replicator := a.newReplicator()
	if err := a.prepareWorkbook(replicator); err != nil {
		return err
	}

	workbookPath := a.Config.Ledger.WorkbookPath()
	snapshot, err := ledger.Load(workbookPath)
	if err != nil {
		return err
	}

	filled := snapshot.FilledSources(now)
	selected, skipped := a.windowPolicy().Select(now, filled)
	for key, reason := range skipped {
		a.Logger.Info().Str("source", string(key)).Str("reason", string(reason)).Msg("source skipped")
	}

	if len(selected) == 0 {
		// Nothing admitted right now. The save still normalizes the layout
		// and migrates legacy cells, and the shared copy is kept current.
		a.Logger.Info().Msg("no source admitted in this window")
		if err := ledger.Save(workbookPath, snapshot); err != nil {
			return err
		}
		return a.replicate(replicator, now, nil)
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; run history disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if store != nil {
		unlock, acquired, lockErr := store.TryAdvisoryLock(ctx, a.Config.Database.AdvisoryLockKey)
		if lockErr != nil {
			return lockErr
		}
		if !acquired {
			return errors.New("outra execucao em andamento")
		}
		defer unlock()
	}

	sources := a.newRegistry().Sources(selected, now)
	workers := window.Workers(len(sources), a.Config.Fetch.ResolveMaxWorkers(a.Logger))
	outcomes := fetcher.RunAll(ctx, sources, workers, a.Logger)
	if err := ctx.Err(); err != nil {
		return err
	}

	update, failures, err := a.buildUpdate(now, outcomes, opts.Overwrite)
	if err != nil {
		return err
	}

	report := snapshot.Apply(update)
	if err := ledger.Save(workbookPath, snapshot); err != nil {
		return err
	}

	expected := expectedSources(filled, outcomes)
	if issues := snapshot.ValidateRow(now, expected); len(issues) > 0 {
		return fmt.Errorf("validacao da planilha local falhou: %s", strings.Join(issues, "; "))
	}

	if err := ledger.RegenerateCSV(snapshot, a.Config.Ledger.CSVPath()); err != nil {
		return err
	}

	a.logSummary(report)

	if err := a.replicate(replicator, now, expected); err != nil {
		return err
	}

	if store != nil {
		if recErr := a.recordRun(ctx, store, now, started, selected, report, failures, update); recErr != nil {
			a.Logger.Warn().Err(recErr).Msg("run history not persisted")
		}
	}

	if len(failures) > 0 && len(failures) >= len(selected) {
		return fmt.Errorf("nenhuma fonte coletada: %s", update.Detail)
	}
	return nil
}

// prepareWorkbook makes sure a local workbook exists and is at least as
// fresh as the shared copy: bootstrap when missing locally, sync when the
// network copy has a newer modification time.
func (a *App) prepareWorkbook(replicator *netcopy.Replicator) error {
	workbookPath := a.Config.Ledger.WorkbookPath()
	if err := os.MkdirAll(filepath.Dir(workbookPath), 0o755); err != nil {
		return fmt.Errorf("create workbook dir: %w", err)
	}

	localInfo, localErr := os.Stat(workbookPath)
	localExists := localErr == nil

	if replicator.Enabled() {
		if reference, info, ok := newestReference(a.referenceWorkbooks(replicator)); ok {
			switch {
			case !localExists:
				a.Logger.Info().Str("source", reference).Msg("bootstrapping workbook from network copy")
				return netcopy.CopyFile(reference, workbookPath)
			case info.ModTime().After(localInfo.ModTime()):
				a.Logger.Info().Str("source", reference).Msg("network copy is newer; syncing local workbook")
				return netcopy.CopyFile(reference, workbookPath)
			}
			return nil
		}
		// The shared tree is authoritative when replication is on: with no
		// reference copy anywhere, refusing beats silently forking a ledger.
		if !localExists {
			return fmt.Errorf("planilha nao encontrada localmente nem nos destinos de rede: %s", workbookPath)
		}
		return nil
	}

	if !localExists {
		a.Logger.Warn().Str("path", workbookPath).Msg("workbook missing; creating a fresh one")
		return ledger.Init(workbookPath)
	}
	return nil
}

func newestReference(paths []string) (string, os.FileInfo, bool) {
	var bestPath string
	var bestInfo os.FileInfo
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if bestInfo == nil || info.ModTime().After(bestInfo.ModTime()) {
			bestInfo, bestPath = info, path
		}
	}
	return bestPath, bestInfo, bestInfo != nil
}

// replicate pushes the local data tree to the shared destinations and, when
// expected data is known, re-validates today's row on the destination copy.
func (a *App) replicate(replicator *netcopy.Replicator, date time.Time, expected map[ledger.Source]bool) error {
	if !replicator.Enabled() {
		return nil
	}

	dest, err := replicator.Replicate(a.Config.Ledger.Dir)
	if err != nil {
		return fmt.Errorf("replicacao falhou: %w", err)
	}
	if expected == nil {
		return nil
	}

	destWorkbook := filepath.Join(dest, a.Config.Ledger.Folder, a.Config.Ledger.WorkbookName)
	destSnapshot, err := ledger.Load(destWorkbook)
	if err != nil {
		return fmt.Errorf("validacao do destino falhou: %w", err)
	}
	if issues := destSnapshot.ValidateRow(date, expected); len(issues) > 0 {
		return fmt.Errorf("validacao do destino falhou: %s", strings.Join(issues, "; "))
	}
	return nil
}

// buildUpdate folds fetch outcomes into a ledger update. Fetch failures do
// not abort the merge: they surface in the composed status cell and in the
// returned failure map.
func (a *App) buildUpdate(now time.Time, outcomes map[ledger.Source]fetcher.Outcome, overwrite bool) (ledger.Update, map[string]string, error) {
	spread, err := a.Config.Ledger.SpreadDecimal()
	if err != nil {
		return ledger.Update{}, nil, err
	}

	update := ledger.Update{
		Date:            now,
		Spread:          spread,
		OverwriteQuotes: overwrite,
		LoggedAt:        now,
	}
	failures := map[string]string{}

	for key, outcome := range outcomes {
		if !outcome.OK() {
			failures[string(key)] = outcome.Err
			continue
		}
		switch value := outcome.Value.(type) {
		case quotes.Quote:
			buy := value.Value
			update.OfficialBuy = &buy
		case quotes.BidAskQuote:
			update.Turismo = &ledger.BuySell{Buy: value.Buy, Sell: value.Sell}
		case quotes.PtaxQuote:
			pair := &ledger.BuySell{Buy: value.Buy, Sell: value.Sell}
			switch key {
			case ledger.SourcePtaxUSD:
				update.PtaxUSD = pair
			case ledger.SourcePtaxEUR:
				update.PtaxEUR = pair
			case ledger.SourcePtaxCHF:
				update.PtaxCHF = pair
			}
		case quotes.InterestRateQuote:
			rate := value.Value
			switch key {
			case ledger.SourceTJLP:
				update.TJLPPercent = &rate
			case ledger.SourceSELIC:
				cdi, cdiErr := brnum.CDIDailyPercent(rate)
				if cdiErr != nil {
					failures[string(key)] = cdiErr.Error()
					continue
				}
				update.SELICPercent = &rate
				update.CDIDailyPercent = &cdi
			}
		}
	}

	update.Status = "OK"
	if len(failures) > 0 {
		update.Status = "ERRO"
		update.Detail = failureDetail(failures)
	}
	return update, failures, nil
}

func failureDetail(failures map[string]string) string {
	keys := make([]string, 0, len(failures))
	for key := range failures {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", key, failures[key]))
	}
	return strings.Join(parts, "; ")
}

// expectedSources marks which sources today's row must hold after the merge:
// everything already filled plus everything fetched successfully.
func expectedSources(filled map[ledger.Source]bool, outcomes map[ledger.Source]fetcher.Outcome) map[ledger.Source]bool {
	expected := make(map[ledger.Source]bool, len(filled))
	for key, ok := range filled {
		expected[key] = ok
	}
	for key, outcome := range outcomes {
		if outcome.OK() {
			expected[key] = true
		}
	}
	return expected
}

func (a *App) logSummary(report ledger.Report) {
	for _, spec := range ledger.Sources {
		writes, ok := report[spec.Key]
		if !ok {
			continue
		}
		fresh, repeated := 0, 0
		for _, write := range writes {
			if write.Kind == ledger.WriteFresh {
				fresh++
			} else {
				repeated++
			}
		}
		a.Logger.Info().
			Str("source", string(spec.Key)).
			Int("fresh", fresh).
			Int("repeated", repeated).
			Msg("ledger updated")
	}
}

func (a *App) recordRun(
	ctx context.Context,
	store storage.RunHistoryStore,
	now, started time.Time,
	selected []ledger.Source,
	report ledger.Report,
	failures map[string]string,
	update ledger.Update,
) error {
	selectedKeys := make([]string, 0, len(selected))
	for _, key := range selected {
		selectedKeys = append(selectedKeys, string(key))
	}

	var freshFields, repeatedFields []string
	for _, spec := range ledger.Sources {
		for _, write := range report[spec.Key] {
			if write.Kind == ledger.WriteFresh {
				freshFields = append(freshFields, string(write.Field))
			} else {
				repeatedFields = append(repeatedFields, string(write.Field))
			}
		}
	}

	payload, err := json.Marshal(failures)
	if err != nil {
		return err
	}

	year, month, day := now.Date()
	record := storage.RunRecord{
		LedgerDate: time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
		RanAt:      started,
		Status:     update.Status,
		Selected:   selectedKeys,
		Fresh:      freshFields,
		Repeated:   repeatedFields,
		Failures:   payload,
		ElapsedMS:  time.Since(started).Milliseconds(),
	}
	if update.Detail != "" {
		detail := update.Detail
		record.Detail = &detail
	}
	return store.UpsertRun(ctx, record)
}
