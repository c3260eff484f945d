package window

import (
	"testing"
	"time"

	"cotacoes-ledger/internal/ledger"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, time.March, 10, hour, minute, 0, 0, time.Local)
}

func noneFilled() map[ledger.Source]bool {
	return map[ledger.Source]bool{}
}

func TestSelectEarlyMorning(t *testing.T) {
	selected, skipped := Default().Select(at(7, 0), noneFilled())

	want := []ledger.Source{ledger.SourceUSDBRL, ledger.SourceTurismo, ledger.SourceTJLP, ledger.SourceSELIC}
	if len(selected) != len(want) {
		t.Fatalf("selecionadas %d fontes, esperado %d", len(selected), len(want))
	}
	for index, key := range want {
		if selected[index] != key {
			t.Fatalf("posicao %d: %s, esperado %s", index, selected[index], key)
		}
	}
	for _, key := range []ledger.Source{ledger.SourcePtaxUSD, ledger.SourcePtaxEUR, ledger.SourcePtaxCHF} {
		if skipped[key] != SkipBeforePtaxWindow {
			t.Fatalf("%s: motivo %q, esperado %q", key, skipped[key], SkipBeforePtaxWindow)
		}
	}
}

func TestSelectBoundariesInclusive(t *testing.T) {
	selected, _ := Default().Select(at(8, 30), noneFilled())
	if len(selected) == 0 || selected[0] != ledger.SourceUSDBRL {
		t.Fatal("08:30 ainda pertence a janela da manha")
	}

	selected, _ = Default().Select(at(13, 10), noneFilled())
	if len(selected) != 3 || selected[0] != ledger.SourcePtaxUSD {
		t.Fatalf("13:10 ja admite PTAX; selecionadas %v", selected)
	}
}

func TestSelectGapBetweenWindows(t *testing.T) {
	selected, skipped := Default().Select(at(9, 0), noneFilled())
	if len(selected) != 0 {
		t.Fatalf("09:00 nao admite nenhuma fonte; selecionadas %v", selected)
	}
	if skipped[ledger.SourceUSDBRL] != SkipAfterMorningCutoff {
		t.Fatalf("usd_brl: motivo %q", skipped[ledger.SourceUSDBRL])
	}
	if skipped[ledger.SourcePtaxEUR] != SkipBeforePtaxWindow {
		t.Fatalf("ptax_eur: motivo %q", skipped[ledger.SourcePtaxEUR])
	}
	if len(skipped) != len(ledger.Sources) {
		t.Fatalf("todas as fontes deveriam ter motivo; %d de %d", len(skipped), len(ledger.Sources))
	}
}

func TestSelectSkipsFilledSources(t *testing.T) {
	filled := map[ledger.Source]bool{
		ledger.SourceUSDBRL: true,
		ledger.SourceSELIC:  true,
	}
	selected, skipped := Default().Select(at(8, 0), filled)

	if skipped[ledger.SourceUSDBRL] != SkipAlreadyFilled {
		t.Fatalf("usd_brl: motivo %q, esperado %q", skipped[ledger.SourceUSDBRL], SkipAlreadyFilled)
	}
	for _, key := range selected {
		if key == ledger.SourceUSDBRL || key == ledger.SourceSELIC {
			t.Fatalf("%s ja preenchida nao deveria ser selecionada", key)
		}
	}
	if len(selected) != 2 {
		t.Fatalf("selecionadas %v, esperado turismo e tjlp", selected)
	}
}

func TestSelectAfternoonAfterMorningDone(t *testing.T) {
	filled := map[ledger.Source]bool{ledger.SourcePtaxUSD: true}
	selected, skipped := Default().Select(at(14, 31), filled)

	if len(selected) != 2 || selected[0] != ledger.SourcePtaxEUR || selected[1] != ledger.SourcePtaxCHF {
		t.Fatalf("selecionadas %v, esperado ptax_eur e ptax_chf", selected)
	}
	if skipped[ledger.SourcePtaxUSD] != SkipAlreadyFilled {
		t.Fatalf("ptax_usd: motivo %q", skipped[ledger.SourcePtaxUSD])
	}
}

func TestWorkers(t *testing.T) {
	if got := Workers(5, 0); got != 5 {
		t.Fatalf("sem override: %d, esperado 5", got)
	}
	if got := Workers(5, 2); got != 2 {
		t.Fatalf("override menor deve limitar: %d", got)
	}
	if got := Workers(2, 8); got != 2 {
		t.Fatalf("override maior nao amplia: %d", got)
	}
	if got := Workers(0, 0); got != 1 {
		t.Fatalf("piso de um worker: %d", got)
	}
}
