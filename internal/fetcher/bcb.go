package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"cotacoes-ledger/internal/brnum"
	"cotacoes-ledger/internal/quotes"
)

// Olinda takes its date parameter as MM-dd-yyyy.
const ptaxDateLayout = "01-02-2006"

const (
	sgsSeriesTJLP  = 256
	sgsSeriesSELIC = 432
)

// ptaxBulletin is one bulletin row of an Olinda PTAX response. json.Number
// keeps the literal digits so decimal parsing stays exact.
type ptaxBulletin struct {
	Compra json.Number `json:"cotacaoCompra"`
	Venda  json.Number `json:"cotacaoVenda"`
	Tipo   string      `json:"tipoBoletim"`
}

type ptaxResponse struct {
	Value []ptaxBulletin `json:"value"`
}

// fetchPtax retrieves the closing PTAX bulletin for a currency on the given
// date. The dollar has a dedicated endpoint that already returns only the
// closing bulletin; other currencies publish several bulletins per day and
// the "Fechamento" one is selected.
func (r *Registry) fetchPtax(ctx context.Context, currency string, date time.Time) (quotes.Observation, error) {
	dateText := "'" + date.Format(ptaxDateLayout) + "'"

	var endpoint string
	if currency == "USD" {
		params := url.Values{}
		params.Set("@dataCotacao", dateText)
		params.Set("$format", "json")
		endpoint = fmt.Sprintf("%s/CotacaoDolarDia(dataCotacao=@dataCotacao)?%s",
			r.opts.PtaxBaseURL, params.Encode())
	} else {
		params := url.Values{}
		params.Set("@moeda", "'"+currency+"'")
		params.Set("@dataCotacao", dateText)
		params.Set("$format", "json")
		endpoint = fmt.Sprintf("%s/CotacaoMoedaDia(moeda=@moeda,dataCotacao=@dataCotacao)?%s",
			r.opts.PtaxBaseURL, params.Encode())
	}

	var payload ptaxResponse
	if err := r.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("ptax %s: %w", currency, err)
	}

	bulletin, ok := closingBulletin(currency, payload.Value)
	if !ok {
		return nil, fmt.Errorf("ptax %s: cotacao de fechamento indisponivel para %s",
			currency, date.Format("02/01/2006"))
	}

	buy, err := decimal.NewFromString(bulletin.Compra.String())
	if err != nil {
		return nil, fmt.Errorf("ptax %s: compra invalida %q", currency, bulletin.Compra.String())
	}
	sell, err := decimal.NewFromString(bulletin.Venda.String())
	if err != nil {
		return nil, fmt.Errorf("ptax %s: venda invalida %q", currency, bulletin.Venda.String())
	}

	return quotes.PtaxQuote{
		Symbol:      currency,
		Buy:         buy,
		Sell:        sell,
		BuyRaw:      bulletin.Compra.String(),
		SellRaw:     bulletin.Venda.String(),
		CollectedAt: time.Now().UTC(),
	}, nil
}

func closingBulletin(currency string, bulletins []ptaxBulletin) (ptaxBulletin, bool) {
	if currency == "USD" {
		if len(bulletins) == 0 {
			return ptaxBulletin{}, false
		}
		return bulletins[len(bulletins)-1], true
	}
	for index := len(bulletins) - 1; index >= 0; index-- {
		if bulletins[index].Tipo == "Fechamento" {
			return bulletins[index], true
		}
	}
	return ptaxBulletin{}, false
}

// sgsPoint is one observation of a BCB SGS series.
type sgsPoint struct {
	Data  string `json:"data"`
	Valor string `json:"valor"`
}

// fetchSGS retrieves the latest observation of an SGS series. The value is a
// whole annual percentage (15.00 means 15% a.a.).
func (r *Registry) fetchSGS(ctx context.Context, name string, series int) (quotes.Observation, error) {
	endpoint := fmt.Sprintf("%s/bcdata.sgs.%d/dados/ultimos/1?formato=json", r.opts.SGSBaseURL, series)

	var points []sgsPoint
	if err := r.getJSON(ctx, endpoint, &points); err != nil {
		return nil, fmt.Errorf("sgs %s: %w", name, err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("sgs %s: serie %d sem observacoes", name, series)
	}

	point := points[len(points)-1]
	value, err := brnum.ParseDecimal(point.Valor)
	if err != nil {
		return nil, fmt.Errorf("sgs %s: valor invalido %q", name, point.Valor)
	}

	var referenceDate *time.Time
	if parsed, parseErr := time.ParseInLocation("02/01/2006", point.Data, time.Local); parseErr == nil {
		referenceDate = &parsed
	}

	return quotes.InterestRateQuote{
		Name:          name,
		Value:         value,
		ValueRaw:      point.Valor,
		ReferenceDate: referenceDate,
		CollectedAt:   time.Now().UTC(),
	}, nil
}
