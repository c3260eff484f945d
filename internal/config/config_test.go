package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: cotacoes\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Ledger.Spread != "0.0020" {
		t.Fatalf("spread padrao = %q", cfg.Ledger.Spread)
	}
	if cfg.Ledger.WorkbookPath() != filepath.Join("dados", "planilhas", "cotacoes.xlsx") {
		t.Fatalf("caminho da planilha = %q", cfg.Ledger.WorkbookPath())
	}
	if cfg.Window.MorningCutoff != "08:30" || cfg.Window.PtaxFrom != "13:10" {
		t.Fatalf("janelas padrao = %q / %q", cfg.Window.MorningCutoff, cfg.Window.PtaxFrom)
	}
	if len(cfg.Network.Destinations()) != 0 {
		t.Fatal("replicacao deveria iniciar desabilitada")
	}
}

func TestLoadLegacyEnvironmentNames(t *testing.T) {
	t.Setenv("COTACOES_MAX_WORKERS", "3")
	t.Setenv("COTACOES_NETWORK_DIR", "//srv/share;//srv2/share")

	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Fetch.ResolveMaxWorkers(zerolog.Nop()); got != 3 {
		t.Fatalf("max workers = %d", got)
	}
	if dirs := cfg.Network.Destinations(); len(dirs) != 2 || dirs[0] != "//srv/share" {
		t.Fatalf("destinos = %v", dirs)
	}
}

func TestResolveMaxWorkersFallsBackOnGarbage(t *testing.T) {
	for _, value := range []string{"", "abc", "-2", "0"} {
		cfg := FetchConfig{MaxWorkers: value}
		if got := cfg.ResolveMaxWorkers(zerolog.Nop()); got != 0 {
			t.Fatalf("MaxWorkers=%q: %d, esperado 0", value, got)
		}
	}
}

func TestValidateRejectsBadSpread(t *testing.T) {
	if _, err := Load(writeConfig(t, "ledger:\n  spread: \"muito\"\n")); err == nil {
		t.Fatal("spread invalido deveria falhar")
	}
}

func TestValidateRejectsBadWindow(t *testing.T) {
	if _, err := Load(writeConfig(t, "window:\n  morning_cutoff: \"25:99\"\n")); err == nil {
		t.Fatal("janela invalida deveria falhar")
	}
}

func TestParseClock(t *testing.T) {
	hour, minute, err := ParseClock("08:30")
	if err != nil || hour != 8 || minute != 30 {
		t.Fatalf("ParseClock = %d:%d, %v", hour, minute, err)
	}
	for _, in := range []string{"830", "ab:cd", "24:00", "10:60", ""} {
		if _, _, err := ParseClock(in); err == nil {
			t.Fatalf("ParseClock(%q) deveria falhar", in)
		}
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("gravar config: %v", err)
	}
	return path
}
