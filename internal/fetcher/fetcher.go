// Package fetcher retrieves quotes and rates from the public APIs
// (AwesomeAPI, BCB Olinda/PTAX, BCB SGS) and runs a set of sources with
// bounded parallelism.
package fetcher

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cotacoes-ledger/internal/ledger"
	"cotacoes-ledger/internal/quotes"
	"cotacoes-ledger/internal/redact"
)

// Source pairs a ledger source descriptor with the function that fetches it.
type Source struct {
	Spec  ledger.SourceSpec
	Fetch func(ctx context.Context) (quotes.Observation, error)
}

// Outcome is the result of fetching one source. Err carries the redacted
// failure text; an empty Err means Value is usable.
type Outcome struct {
	Key     ledger.Source
	Label   string
	Value   quotes.Observation
	Err     string
	Elapsed time.Duration
}

// OK reports whether the fetch produced a usable value.
func (o Outcome) OK() bool { return o.Err == "" }

// RunAll fetches every source, fanning out across at most workers
// goroutines. A failing source never cancels the others; there are no
// retries. Each goroutine writes only its own result slot.
func RunAll(ctx context.Context, sources []Source, workers int, logger zerolog.Logger) map[ledger.Source]Outcome {
	log := logger.With().Str("component", "fetch_runner").Logger()

	results := make([]Outcome, len(sources))
	runOne := func(index int) {
		source := sources[index]
		started := time.Now()
		value, err := source.Fetch(ctx)
		elapsed := time.Since(started)

		outcome := Outcome{Key: source.Spec.Key, Label: source.Spec.Label, Elapsed: elapsed}
		if err != nil {
			outcome.Err = redact.Secrets(err.Error())
			log.Warn().
				Str("source", string(source.Spec.Key)).
				Dur("elapsed", elapsed).
				Str("error", outcome.Err).
				Msg("fetch failed")
		} else {
			outcome.Value = value
			log.Info().
				Str("source", string(source.Spec.Key)).
				Dur("elapsed", elapsed).
				Msg("fetch succeeded")
		}
		results[index] = outcome
	}

	if workers > 1 && len(sources) > 1 {
		sem := make(chan struct{}, workers)
		var wg sync.WaitGroup
		for index := range sources {
			wg.Add(1)
			sem <- struct{}{}
			go func(index int) {
				defer wg.Done()
				defer func() { <-sem }()
				runOne(index)
			}(index)
		}
		wg.Wait()
	} else {
		for index := range sources {
			runOne(index)
		}
	}

	folded := make(map[ledger.Source]Outcome, len(results))
	for _, outcome := range results {
		folded[outcome.Key] = outcome
	}
	return folded
}
