package fetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cotacoes-ledger/internal/brnum"
	"cotacoes-ledger/internal/quotes"
)

// awesomeLast is one entry of the AwesomeAPI /json/last response.
type awesomeLast struct {
	Bid        string `json:"bid"`
	Ask        string `json:"ask"`
	CreateDate string `json:"create_date"`
}

// fetchAwesome retrieves the latest snapshot for one currency pair, e.g.
// "USD-BRL". The response is keyed by the pair without the dash.
func (r *Registry) fetchAwesome(ctx context.Context, pair string) (awesomeLast, error) {
	endpoint := fmt.Sprintf("%s/json/last/%s", r.opts.AwesomeAPIBaseURL, pair)

	var payload map[string]awesomeLast
	if err := r.getJSON(ctx, endpoint, &payload); err != nil {
		return awesomeLast{}, fmt.Errorf("awesomeapi %s: %w", pair, err)
	}

	last, ok := payload[strings.ReplaceAll(pair, "-", "")]
	if !ok {
		return awesomeLast{}, fmt.Errorf("awesomeapi: par %s ausente na resposta", pair)
	}
	return last, nil
}

// fetchUSDBRL retrieves the commercial dollar bid. Only the buy side is
// observed; the sale price is derived downstream from the fixed spread.
func (r *Registry) fetchUSDBRL(ctx context.Context) (quotes.Observation, error) {
	last, err := r.fetchAwesome(ctx, "USD-BRL")
	if err != nil {
		return nil, err
	}
	value, err := brnum.ParseDecimal(last.Bid)
	if err != nil {
		return nil, fmt.Errorf("awesomeapi USD-BRL: bid invalido %q", last.Bid)
	}
	return quotes.Quote{
		Symbol:      "USD-BRL",
		Value:       value,
		ValueRaw:    last.Bid,
		CollectedAt: time.Now().UTC(),
	}, nil
}

// fetchTurismo retrieves both sides of the tourism dollar.
func (r *Registry) fetchTurismo(ctx context.Context) (quotes.Observation, error) {
	last, err := r.fetchAwesome(ctx, "USD-BRLT")
	if err != nil {
		return nil, err
	}
	buy, err := brnum.ParseDecimal(last.Bid)
	if err != nil {
		return nil, fmt.Errorf("awesomeapi USD-BRLT: bid invalido %q", last.Bid)
	}
	sell, err := brnum.ParseDecimal(last.Ask)
	if err != nil {
		return nil, fmt.Errorf("awesomeapi USD-BRLT: ask invalido %q", last.Ask)
	}
	return quotes.BidAskQuote{
		Symbol:      "USD-BRLT",
		Buy:         buy,
		Sell:        sell,
		BuyRaw:      last.Bid,
		SellRaw:     last.Ask,
		CollectedAt: time.Now().UTC(),
	}, nil
}
