package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"cotacoes-ledger/internal/storage"
)

type fakeHistory struct {
	records []storage.RunRecord
	limit   int
}

var _ storage.RunHistoryStore = (*fakeHistory)(nil)

func (f *fakeHistory) UpsertRun(ctx context.Context, record storage.RunRecord) error {
	f.records = append(f.records, record)
	return nil
}

func (f *fakeHistory) ListRecentRuns(ctx context.Context, limit int) ([]storage.RunRecord, error) {
	f.limit = limit
	if len(f.records) > limit {
		return f.records[:limit], nil
	}
	return f.records, nil
}

func (f *fakeHistory) CountRuns(ctx context.Context) (int64, error) {
	return int64(len(f.records)), nil
}

func TestRenderHistoryTable(t *testing.T) {
	detail := "ptax_usd: timeout"
	store := &fakeHistory{records: []storage.RunRecord{
		{
			LedgerDate: time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
			RanAt:      time.Date(2026, time.March, 10, 8, 15, 0, 0, time.UTC),
			Status:     "ERRO",
			Detail:     &detail,
			Fresh:      []string{"official_buy", "official_sell"},
			Repeated:   []string{"tjlp"},
		},
	}}

	var out strings.Builder
	if err := renderHistory(context.Background(), &out, store, 0); err != nil {
		t.Fatalf("renderHistory: %v", err)
	}
	if store.limit != 15 {
		t.Fatalf("limite padrao = %d", store.limit)
	}

	text := out.String()
	if !strings.Contains(text, "10/03/2026") || !strings.Contains(text, "ERRO") {
		t.Fatalf("tabela = %q", text)
	}
	if !strings.Contains(text, "ptax_usd: timeout") {
		t.Fatalf("detalhe ausente: %q", text)
	}
	if !strings.Contains(text, "1 de 1 execucoes arquivadas") {
		t.Fatalf("rodape = %q", text)
	}
}

func TestRenderHistoryEmptyArchive(t *testing.T) {
	var out strings.Builder
	if err := renderHistory(context.Background(), &out, &fakeHistory{}, 5); err != nil {
		t.Fatalf("renderHistory: %v", err)
	}
	if !strings.Contains(out.String(), "nenhuma execucao arquivada") {
		t.Fatalf("saida = %q", out.String())
	}
}
