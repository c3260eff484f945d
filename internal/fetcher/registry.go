package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"cotacoes-ledger/internal/ledger"
	"cotacoes-ledger/internal/quotes"
)

const (
	defaultAwesomeAPIBaseURL = "https://economia.awesomeapi.com.br"
	defaultPtaxBaseURL       = "https://olinda.bcb.gov.br/olinda/servico/PTAX/versao/v1/odata"
	defaultSGSBaseURL        = "https://api.bcb.gov.br/dados/serie"
	defaultUserAgent         = "cotacoes-ledger/1.0"
	defaultTimeout           = 20 * time.Second
)

// Options parameterise the HTTP fetchers.
type Options struct {
	AwesomeAPIBaseURL string
	PtaxBaseURL       string
	SGSBaseURL        string
	Timeout           time.Duration
	UserAgent         string
}

// Registry builds the fetchable source table against the public APIs.
type Registry struct {
	opts   Options
	client *http.Client
	logger zerolog.Logger
}

// NewRegistry constructs a registry, filling in defaults for any option
// left empty.
func NewRegistry(opts Options, logger zerolog.Logger) *Registry {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.AwesomeAPIBaseURL == "" {
		opts.AwesomeAPIBaseURL = defaultAwesomeAPIBaseURL
	}
	if opts.PtaxBaseURL == "" {
		opts.PtaxBaseURL = defaultPtaxBaseURL
	}
	if opts.SGSBaseURL == "" {
		opts.SGSBaseURL = defaultSGSBaseURL
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = defaultUserAgent
	}
	opts.AwesomeAPIBaseURL = strings.TrimRight(opts.AwesomeAPIBaseURL, "/")
	opts.PtaxBaseURL = strings.TrimRight(opts.PtaxBaseURL, "/")
	opts.SGSBaseURL = strings.TrimRight(opts.SGSBaseURL, "/")

	return &Registry{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		logger: logger.With().Str("component", "fetcher").Logger(),
	}
}

// Sources materialises fetchers for the selected keys, preserving selection
// order. referenceDate anchors the PTAX date parameter. Unknown keys are
// ignored.
func (r *Registry) Sources(selected []ledger.Source, referenceDate time.Time) []Source {
	table := map[ledger.Source]func(ctx context.Context) (quotes.Observation, error){
		ledger.SourceUSDBRL:  r.fetchUSDBRL,
		ledger.SourceTurismo: r.fetchTurismo,
		ledger.SourcePtaxUSD: func(ctx context.Context) (quotes.Observation, error) {
			return r.fetchPtax(ctx, "USD", referenceDate)
		},
		ledger.SourcePtaxEUR: func(ctx context.Context) (quotes.Observation, error) {
			return r.fetchPtax(ctx, "EUR", referenceDate)
		},
		ledger.SourcePtaxCHF: func(ctx context.Context) (quotes.Observation, error) {
			return r.fetchPtax(ctx, "CHF", referenceDate)
		},
		ledger.SourceTJLP: func(ctx context.Context) (quotes.Observation, error) {
			return r.fetchSGS(ctx, "TJLP", sgsSeriesTJLP)
		},
		ledger.SourceSELIC: func(ctx context.Context) (quotes.Observation, error) {
			return r.fetchSGS(ctx, "SELIC", sgsSeriesSELIC)
		},
	}

	sources := make([]Source, 0, len(selected))
	for _, key := range selected {
		fetch, ok := table[key]
		if !ok {
			continue
		}
		spec, ok := ledger.SpecFor(key)
		if !ok {
			continue
		}
		sources = append(sources, Source{Spec: spec, Fetch: fetch})
	}
	return sources
}

// getJSON performs a GET and decodes the JSON body into out.
func (r *Registry) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", r.opts.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return httpError(resp.StatusCode, payload)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("resposta invalida: %w", err)
	}
	return nil
}

func httpError(status int, payload []byte) error {
	text := strings.TrimSpace(string(payload))
	if len(text) > 200 {
		text = text[:200]
	}
	if text != "" {
		return fmt.Errorf("http %d: %s", status, text)
	}
	return fmt.Errorf("http %d", status)
}
