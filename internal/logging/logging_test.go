package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLoggerStampsService(t *testing.T) {
	var buf bytes.Buffer
	logger := newLoggerTo(Config{Level: "info", Format: "json", Service: "cotacoes"}, &buf)
	logger.Info().Msg("pronto")

	if !strings.Contains(buf.String(), `"service":"cotacoes"`) {
		t.Fatalf("saida = %q", buf.String())
	}
}

func TestNewLoggerUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newLoggerTo(Config{Level: "barulhento"}, &buf)
	logger.Debug().Msg("oculto")
	logger.Info().Msg("visivel")

	out := buf.String()
	if strings.Contains(out, "oculto") || !strings.Contains(out, "visivel") {
		t.Fatalf("saida = %q", out)
	}
}
