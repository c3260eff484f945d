package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(t *testing.T, text string) decimal.Decimal {
	t.Helper()
	value, err := decimal.NewFromString(text)
	if err != nil {
		t.Fatalf("decimal invalido %q: %v", text, err)
	}
	return value
}

func decPtr(t *testing.T, text string) *decimal.Decimal {
	t.Helper()
	value := dec(t, text)
	return &value
}

func day(dayOfMonth int) time.Time {
	return time.Date(2026, time.March, dayOfMonth, 0, 0, 0, 0, time.Local)
}

func loggedAt(dayOfMonth int) time.Time {
	return time.Date(2026, time.March, dayOfMonth, 8, 15, 0, 0, time.Local)
}

func TestApplyOfficialDerivesSellFromSpread(t *testing.T) {
	snapshot := newSnapshot()

	report := snapshot.Apply(Update{
		Date:        day(10),
		OfficialBuy: decPtr(t, "5.2849"),
		Spread:      dec(t, "0.0020"),
		LoggedAt:    loggedAt(10),
	})

	row, ok := snapshot.RowFor(day(10))
	if !ok {
		t.Fatal("linha da data nao criada")
	}
	if got := row.Values[FieldOfficialBuy].String(); got != "5.2849" {
		t.Fatalf("compra = %s", got)
	}
	if got := row.Values[FieldOfficialSell].String(); got != "5.2869" {
		t.Fatalf("venda = %s, esperado 5.2869", got)
	}
	if !report.Fresh(SourceUSDBRL, FieldOfficialBuy) || !report.Fresh(SourceUSDBRL, FieldOfficialSell) {
		t.Fatalf("relatorio incompleto: %v", report[SourceUSDBRL])
	}
}

func TestApplyNeverOverwritesFilledQuote(t *testing.T) {
	snapshot := newSnapshot()
	row := snapshot.FindOrCreate(day(10))
	row.Values[FieldOfficialBuy] = dec(t, "5.4000")

	report := snapshot.Apply(Update{
		Date:        day(10),
		OfficialBuy: decPtr(t, "5.2849"),
		Spread:      dec(t, "0.0020"),
		LoggedAt:    loggedAt(10),
	})

	if got := row.Values[FieldOfficialBuy].String(); got != "5.4" {
		t.Fatalf("compra preenchida foi sobrescrita: %s", got)
	}
	// A venda deriva da compra que ficou na planilha, nao da coletada.
	if got := row.Values[FieldOfficialSell].String(); got != "5.402" {
		t.Fatalf("venda = %s, esperado 5.402", got)
	}
	if report.Fresh(SourceUSDBRL, FieldOfficialBuy) {
		t.Fatal("compra nao deveria constar como escrita")
	}
	if !report.Fresh(SourceUSDBRL, FieldOfficialSell) {
		t.Fatal("venda deveria constar como escrita")
	}
}

func TestApplyOverwriteModeRewritesQuotes(t *testing.T) {
	snapshot := newSnapshot()
	row := snapshot.FindOrCreate(day(10))
	row.Values[FieldOfficialBuy] = dec(t, "5.4000")
	row.Values[FieldOfficialSell] = dec(t, "5.4020")

	snapshot.Apply(Update{
		Date:            day(10),
		OfficialBuy:     decPtr(t, "5.2849"),
		Spread:          dec(t, "0.0020"),
		OverwriteQuotes: true,
		LoggedAt:        loggedAt(10),
	})

	if got := row.Values[FieldOfficialBuy].String(); got != "5.2849" {
		t.Fatalf("compra = %s", got)
	}
	if got := row.Values[FieldOfficialSell].String(); got != "5.2869" {
		t.Fatalf("venda = %s", got)
	}
}

func TestApplyProtectsUnparseableCellAndFallsBackToFetchedBasis(t *testing.T) {
	snapshot := newSnapshot()
	row := snapshot.FindOrCreate(day(10))
	row.Raw[FieldOfficialBuy] = "n/d"

	snapshot.Apply(Update{
		Date:        day(10),
		OfficialBuy: decPtr(t, "5.2849"),
		Spread:      dec(t, "0.0020"),
		LoggedAt:    loggedAt(10),
	})

	if raw := row.Raw[FieldOfficialBuy]; raw != "n/d" {
		t.Fatalf("texto nao numerico foi perdido: %q", raw)
	}
	if _, ok := row.Values[FieldOfficialBuy]; ok {
		t.Fatal("celula nao numerica nao deveria virar valor")
	}
	if got := row.Values[FieldOfficialSell].String(); got != "5.2869" {
		t.Fatalf("venda deriva da compra coletada: %s", got)
	}
}

func TestApplyPairAndRates(t *testing.T) {
	snapshot := newSnapshot()

	report := snapshot.Apply(Update{
		Date:            day(10),
		PtaxUSD:         &BuySell{Buy: dec(t, "5.31475"), Sell: dec(t, "5.31535")},
		TJLPPercent:     decPtr(t, "7.5"),
		SELICPercent:    decPtr(t, "15.00"),
		CDIDailyPercent: decPtr(t, "0.0551310642"),
		Spread:          dec(t, "0.0020"),
		LoggedAt:        loggedAt(10),
	})

	row, _ := snapshot.RowFor(day(10))
	if got := row.Values[FieldPtaxUSDBuy].String(); got != "5.3148" {
		t.Fatalf("ptax compra quantizada = %s", got)
	}
	if got := row.Values[FieldPtaxUSDSell].String(); got != "5.3154" {
		t.Fatalf("ptax venda quantizada = %s", got)
	}
	if got := row.Values[FieldTJLP].String(); got != "0.075" {
		t.Fatalf("tjlp armazenada como fracao: %s", got)
	}
	if got := row.Values[FieldSELIC].String(); got != "0.15" {
		t.Fatalf("selic armazenada como fracao: %s", got)
	}
	if got := row.Values[FieldCDI].String(); got != "0.0551310642" {
		t.Fatalf("cdi = %s", got)
	}
	if !report.Fresh(SourceSELIC, FieldCDI) {
		t.Fatal("cdi deveria constar como escrita da fonte selic")
	}
}

func TestApplyRepeatsRatesFromNearestEarlierRow(t *testing.T) {
	snapshot := newSnapshot()
	older := snapshot.FindOrCreate(day(5))
	older.Values[FieldTJLP] = dec(t, "0.075")
	older.Values[FieldSELIC] = dec(t, "0.145")
	older.Values[FieldCDI] = dec(t, "0.0533005230")
	newer := snapshot.FindOrCreate(day(9))
	newer.Values[FieldTJLP] = dec(t, "0.076")

	report := snapshot.Apply(Update{
		Date:     day(10),
		Spread:   dec(t, "0.0020"),
		LoggedAt: loggedAt(10),
	})

	row, _ := snapshot.RowFor(day(10))
	if got := row.Values[FieldTJLP].String(); got != "0.076" {
		t.Fatalf("tjlp repetida deve vir da linha anterior mais proxima: %s", got)
	}
	if got := row.Values[FieldSELIC].String(); got != "0.145" {
		t.Fatalf("selic repetida = %s", got)
	}
	if !report.Repeated(SourceTJLP, FieldTJLP) || !report.Repeated(SourceSELIC, FieldSELIC) {
		t.Fatalf("repeticoes nao reportadas: %v", report)
	}
	if !report.Repeated(SourceSELIC, FieldCDI) {
		t.Fatal("cdi repetido nao reportado")
	}
}

func TestApplyAlwaysRewritesStatus(t *testing.T) {
	snapshot := newSnapshot()
	row := snapshot.FindOrCreate(day(10))
	row.Status = "OK 09/03/2026 08:00:00"

	snapshot.Apply(Update{
		Date:     day(10),
		Spread:   dec(t, "0.0020"),
		Status:   "ERRO",
		Detail:   "ptax  USD:  timeout",
		LoggedAt: loggedAt(10),
	})

	want := "ERRO 10/03/2026 08:15:00 - ptax USD: timeout"
	if row.Status != want {
		t.Fatalf("situacao = %q, esperado %q", row.Status, want)
	}
}

func TestComposeStatusDefaultsToOK(t *testing.T) {
	got := ComposeStatus("", loggedAt(10), "")
	if got != "OK 10/03/2026 08:15:00" {
		t.Fatalf("situacao = %q", got)
	}
}

func TestLastUpdatedPrefersLoggedRows(t *testing.T) {
	snapshot := newSnapshot()
	first := snapshot.FindOrCreate(day(5))
	first.Status = "OK 05/03/2026 08:00:00"
	snapshot.FindOrCreate(day(10))

	row, err := snapshot.LastUpdated()
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	if !row.Date.Equal(day(5)) {
		t.Fatalf("linha com situacao deveria vencer: %s", row.Date)
	}
}

func TestLastUpdatedErrsOnEmptySheet(t *testing.T) {
	if _, err := newSnapshot().LastUpdated(); err == nil {
		t.Fatal("planilha vazia deveria falhar")
	}
}

func TestValidateRow(t *testing.T) {
	snapshot := newSnapshot()
	row := snapshot.FindOrCreate(day(10))
	row.Values[FieldOfficialBuy] = dec(t, "5.2849")

	expected := map[Source]bool{SourceUSDBRL: true}
	issues := snapshot.ValidateRow(day(10), expected)
	if len(issues) != 1 {
		t.Fatalf("esperada uma pendencia (venda vazia), veio %v", issues)
	}

	row.Values[FieldOfficialSell] = dec(t, "5.2869")
	if issues := snapshot.ValidateRow(day(10), expected); len(issues) != 0 {
		t.Fatalf("linha completa nao deveria ter pendencias: %v", issues)
	}

	if issues := snapshot.ValidateRow(day(11), expected); len(issues) != 1 {
		t.Fatalf("data ausente deveria gerar pendencia: %v", issues)
	}
}

func TestFilledSources(t *testing.T) {
	snapshot := newSnapshot()
	row := snapshot.FindOrCreate(day(10))
	row.Values[FieldTurismoBuy] = dec(t, "5.45")
	row.Values[FieldTurismoSell] = dec(t, "5.62")
	row.Raw[FieldTJLP] = "texto antigo"

	filled := snapshot.FilledSources(day(10))
	if !filled[SourceTurismo] {
		t.Fatal("turismo com os dois lados deveria constar preenchida")
	}
	if !filled[SourceTJLP] {
		t.Fatal("texto nao numerico tambem conta como preenchido")
	}
	if filled[SourceSELIC] {
		t.Fatal("selic sem valores nao deveria constar preenchida")
	}
}
