package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"cotacoes-ledger/internal/ledger"
)

// Export renders the ledger history as CSV and/or a PNG chart of the dollar
// series.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	snapshot, err := ledger.Load(a.Config.Ledger.WorkbookPath())
	if err != nil {
		return err
	}
	if len(snapshot.Rows) == 0 {
		a.Logger.Info().Msg("no rows found for export")
		return nil
	}

	rows := downsampleRows(snapshot.Rows, opts.MaxPoints)
	a.Logger.Info().Int("total", len(snapshot.Rows)).Int("exported", len(rows)).Msg("exporting rows")

	if opts.CSVPath != "" {
		if err := writeRowsCSV(opts.CSVPath, rows); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeRowsPNG(opts.PNGPath, rows); err != nil {
			return err
		}
	}

	return nil
}

func downsampleRows(rows []*ledger.Row, max int) []*ledger.Row {
	if max <= 0 || len(rows) <= max {
		return rows
	}

	result := make([]*ledger.Row, 0, max)
	step := float64(len(rows)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(rows) {
			idx = len(rows) - 1
		}
		result = append(result, rows[idx])
	}
	return result
}

func writeRowsCSV(path string, rows []*ledger.Row) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	writer.Comma = ';'
	defer writer.Flush()

	if err := writer.Write(ledger.DefaultCSVHeader); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write(ledger.CSVRow(row)); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeRowsPNG(path string, rows []*ledger.Row) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	var (
		x        []time.Time
		official []float64
		ptax     []float64
		turismo  []float64
	)
	for _, row := range rows {
		officialValue, okOfficial := row.Values[ledger.FieldOfficialBuy]
		ptaxValue, okPtax := row.Values[ledger.FieldPtaxUSDBuy]
		turismoValue, okTurismo := row.Values[ledger.FieldTurismoBuy]
		if !okOfficial || !okPtax || !okTurismo {
			continue
		}
		x = append(x, row.Date)
		official = append(official, officialValue.InexactFloat64())
		ptax = append(ptax, ptaxValue.InexactFloat64())
		turismo = append(turismo, turismoValue.InexactFloat64())
	}
	if len(x) < 2 {
		return errors.New("not enough complete rows to chart")
	}

	rateFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.4f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "BRL por USD",
			ValueFormatter: rateFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Oficial",
				XValues: x,
				YValues: official,
			},
			chart.TimeSeries{
				Name:    "PTAX",
				XValues: x,
				YValues: ptax,
			},
			chart.TimeSeries{
				Name:    "Turismo",
				XValues: x,
				YValues: turismo,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
