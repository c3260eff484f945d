package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"cotacoes-ledger/internal/config"
	"cotacoes-ledger/internal/fetcher"
	"cotacoes-ledger/internal/ledger"
	"cotacoes-ledger/internal/quotes"
)

func testApp() *App {
	cfg := &config.Config{}
	cfg.Ledger.Spread = "0.0020"
	return NewApp(cfg, zerolog.Nop())
}

func obs(value quotes.Observation) fetcher.Outcome {
	return fetcher.Outcome{Value: value}
}

func TestBuildUpdateFoldsOutcomes(t *testing.T) {
	app := testApp()
	now := time.Date(2026, time.March, 10, 8, 15, 0, 0, time.Local)

	outcomes := map[ledger.Source]fetcher.Outcome{
		ledger.SourceUSDBRL: obs(quotes.Quote{Symbol: "USD-BRL", Value: decimal.RequireFromString("5.2849")}),
		ledger.SourceTurismo: obs(quotes.BidAskQuote{
			Symbol: "USD-BRLT",
			Buy:    decimal.RequireFromString("5.45"),
			Sell:   decimal.RequireFromString("5.62"),
		}),
		ledger.SourcePtaxEUR: obs(quotes.PtaxQuote{
			Symbol: "EUR",
			Buy:    decimal.RequireFromString("6.10"),
			Sell:   decimal.RequireFromString("6.11"),
		}),
		ledger.SourceSELIC: obs(quotes.InterestRateQuote{Name: "SELIC", Value: decimal.RequireFromString("15.00")}),
	}

	update, failures, err := app.buildUpdate(now, outcomes, false)
	if err != nil {
		t.Fatalf("buildUpdate: %v", err)
	}
	if len(failures) != 0 {
		t.Fatalf("sem falhas esperadas: %v", failures)
	}
	if update.Status != "OK" || update.Detail != "" {
		t.Fatalf("situacao = %q / %q", update.Status, update.Detail)
	}
	if update.OfficialBuy == nil || update.OfficialBuy.String() != "5.2849" {
		t.Fatalf("compra oficial = %v", update.OfficialBuy)
	}
	if update.Turismo == nil || update.PtaxEUR == nil {
		t.Fatal("pares nao mapeados")
	}
	if update.PtaxUSD != nil || update.PtaxCHF != nil {
		t.Fatal("pares sem coleta deveriam ficar nulos")
	}
	if update.SELICPercent == nil || update.CDIDailyPercent == nil {
		t.Fatal("selic deveria derivar o cdi")
	}
	if update.CDIDailyPercent.String() != "0.0551310642" {
		t.Fatalf("cdi = %s", update.CDIDailyPercent.String())
	}
	if update.Spread.String() != "0.002" {
		t.Fatalf("spread = %s", update.Spread.String())
	}
}

func TestBuildUpdateCollectsFailures(t *testing.T) {
	app := testApp()
	now := time.Now()

	outcomes := map[ledger.Source]fetcher.Outcome{
		ledger.SourceUSDBRL:  {Err: "awesomeapi USD-BRL: http 503"},
		ledger.SourcePtaxUSD: {Err: "ptax USD: cotacao de fechamento indisponivel para 10/03/2026"},
		ledger.SourceTJLP:    obs(quotes.InterestRateQuote{Name: "TJLP", Value: decimal.RequireFromString("7.5")}),
	}

	update, failures, err := app.buildUpdate(now, outcomes, false)
	if err != nil {
		t.Fatalf("buildUpdate: %v", err)
	}
	if len(failures) != 2 {
		t.Fatalf("falhas = %v", failures)
	}
	if update.Status != "ERRO" {
		t.Fatalf("situacao = %q", update.Status)
	}
	// Detalhe em ordem estavel de fonte.
	if !strings.HasPrefix(update.Detail, "ptax_usd: ") || !strings.Contains(update.Detail, "usd_brl: ") {
		t.Fatalf("detalhe = %q", update.Detail)
	}
	if update.TJLPPercent == nil {
		t.Fatal("tjlp coletada deveria entrar mesmo com falhas alheias")
	}
}

func TestBuildUpdateDegenerateSelicBecomesFailure(t *testing.T) {
	app := testApp()

	outcomes := map[ledger.Source]fetcher.Outcome{
		ledger.SourceSELIC: obs(quotes.InterestRateQuote{Name: "SELIC", Value: decimal.RequireFromString("-100")}),
	}

	update, failures, err := app.buildUpdate(time.Now(), outcomes, false)
	if err != nil {
		t.Fatalf("buildUpdate: %v", err)
	}
	if update.SELICPercent != nil || update.CDIDailyPercent != nil {
		t.Fatal("selic degenerada nao deveria entrar na planilha")
	}
	if _, ok := failures[string(ledger.SourceSELIC)]; !ok {
		t.Fatalf("falha da selic ausente: %v", failures)
	}
}

func TestExpectedSources(t *testing.T) {
	filled := map[ledger.Source]bool{
		ledger.SourceUSDBRL: true,
		ledger.SourceTJLP:   false,
	}
	outcomes := map[ledger.Source]fetcher.Outcome{
		ledger.SourceTJLP:  obs(quotes.InterestRateQuote{Name: "TJLP"}),
		ledger.SourceSELIC: {Err: "falhou"},
	}

	expected := expectedSources(filled, outcomes)
	if !expected[ledger.SourceUSDBRL] || !expected[ledger.SourceTJLP] {
		t.Fatalf("expected = %v", expected)
	}
	if expected[ledger.SourceSELIC] {
		t.Fatal("fonte com falha nao pode ser exigida na validacao")
	}
}

func TestRecordRunArchivesOutcome(t *testing.T) {
	app := testApp()
	store := &fakeHistory{}
	now := time.Date(2026, time.March, 10, 8, 15, 0, 0, time.Local)

	report := ledger.Report{
		ledger.SourceUSDBRL: {{Field: ledger.FieldOfficialBuy, Kind: ledger.WriteFresh}},
		ledger.SourceTJLP:   {{Field: ledger.FieldTJLP, Kind: ledger.WriteRepeated}},
	}
	update := ledger.Update{Status: "ERRO", Detail: "selic: falhou"}
	failures := map[string]string{"selic": "falhou"}

	err := app.recordRun(context.Background(), store, now, now.Add(-2*time.Second),
		[]ledger.Source{ledger.SourceUSDBRL, ledger.SourceTJLP}, report, failures, update)
	if err != nil {
		t.Fatalf("recordRun: %v", err)
	}
	if len(store.records) != 1 {
		t.Fatalf("registros = %d", len(store.records))
	}

	record := store.records[0]
	want := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	if !record.LedgerDate.Equal(want) {
		t.Fatalf("data do registro = %v", record.LedgerDate)
	}
	if record.Status != "ERRO" || record.Detail == nil || *record.Detail != "selic: falhou" {
		t.Fatalf("situacao arquivada = %q / %v", record.Status, record.Detail)
	}
	if len(record.Fresh) != 1 || record.Fresh[0] != "official_buy" {
		t.Fatalf("campos novos = %v", record.Fresh)
	}
	if len(record.Repeated) != 1 || record.Repeated[0] != "tjlp" {
		t.Fatalf("campos repetidos = %v", record.Repeated)
	}
	if !strings.Contains(string(record.Failures), "selic") {
		t.Fatalf("falhas arquivadas = %s", record.Failures)
	}
}

func TestNewestReference(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "a.xlsx")
	newer := filepath.Join(dir, "b.xlsx")
	if err := os.WriteFile(older, []byte("a"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(newer, []byte("b"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	path, info, ok := newestReference([]string{older, newer, filepath.Join(dir, "inexistente.xlsx")})
	if !ok || path != newer {
		t.Fatalf("newestReference = %q, %v", path, ok)
	}
	if info == nil {
		t.Fatal("info ausente")
	}
}
