package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"cotacoes-ledger/internal/storage"
)

// History prints the most recent archived runs from the database.
func (a *App) History(ctx context.Context, opts HistoryOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn nao configurado; historico indisponivel")
	}
	defer closeStore()

	return renderHistory(ctx, os.Stdout, store, opts.Limit)
}

// renderHistory writes the run archive as a table. It takes the history
// interface so the rendering is testable without a database.
func renderHistory(ctx context.Context, w io.Writer, store storage.RunHistoryStore, limit int) error {
	if limit <= 0 {
		limit = 15
	}

	records, err := store.ListRecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	total, err := store.CountRuns(ctx)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Fprintln(w, "nenhuma execucao arquivada")
		return nil
	}

	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Data\tExecutada\tSituacao\tNovos\tRepetidos\tDetalhe")
	for _, record := range records {
		detail := "-"
		if record.Detail != nil {
			detail = sanitizeInline(*record.Detail)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%d\t%d\t%s\n",
			record.LedgerDate.Format("02/01/2006"),
			record.RanAt.Format("02/01/2006 15:04:05"),
			record.Status,
			len(record.Fresh),
			len(record.Repeated),
			detail,
		)
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "%d de %d execucoes arquivadas\n", len(records), total)
	return nil
}
