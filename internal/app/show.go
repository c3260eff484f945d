package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"cotacoes-ledger/internal/brnum"
	"cotacoes-ledger/internal/ledger"
)

// Show prints the most recent ledger rows.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	snapshot, err := ledger.Load(a.Config.Ledger.WorkbookPath())
	if err != nil {
		return err
	}

	rows := snapshot.Rows
	if opts.Limit > 0 && len(rows) > opts.Limit {
		rows = rows[len(rows)-opts.Limit:]
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stdout, "planilha sem linhas datadas")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Data\tOficial C\tOficial V\tPTAX USD C\tPTAX USD V\tTurismo C\tTurismo V\tTJLP\tSELIC\tCDI\tSituacao")

	for _, row := range rows {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			row.Date.Format("02/01/2006"),
			cellText(row, ledger.FieldOfficialBuy),
			cellText(row, ledger.FieldOfficialSell),
			cellText(row, ledger.FieldPtaxUSDBuy),
			cellText(row, ledger.FieldPtaxUSDSell),
			cellText(row, ledger.FieldTurismoBuy),
			cellText(row, ledger.FieldTurismoSell),
			percentText(row, ledger.FieldTJLP),
			percentText(row, ledger.FieldSELIC),
			cdiText(row),
			sanitizeInline(row.Status),
		)
	}

	writer.Flush()
	return nil
}

func cellText(row *ledger.Row, field ledger.Field) string {
	value, ok := row.Values[field]
	if !ok {
		return "-"
	}
	return brnum.Format(value, 4)
}

func percentText(row *ledger.Row, field ledger.Field) string {
	value, ok := row.Values[field]
	if !ok {
		return "-"
	}
	return brnum.Format(value.Mul(decimal.NewFromInt(100)), 2) + "%"
}

func cdiText(row *ledger.Row) string {
	value, ok := row.Values[ledger.FieldCDI]
	if !ok {
		return "-"
	}
	return brnum.Format(value, 10)
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
