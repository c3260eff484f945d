package ledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"cotacoes-ledger/internal/brnum"
)

var csvDatePattern = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)

// DefaultCSVHeader is the canonical mirror header, substituted whenever the
// existing file has no recognizable header rows.
var DefaultCSVHeader = []string{
	"Data",
	"Dolar Oficial Compra",
	"Dolar Oficial Venda",
	"Dolar PTAX Compra",
	"Dolar PTAX Venda",
	"Dolar Turismo Compra",
	"Dolar Turismo Venda",
	"Euro PTAX Compra",
	"Euro PTAX Venda",
	"CHF PTAX Compra",
	"CHF PTAX Venda",
	"TJLP",
	"SELIC",
	"CDI",
	"Situacao",
}

// csvFieldOrder lists the value columns in mirror order (between the date
// and the status).
var csvFieldOrder = []Field{
	FieldOfficialBuy, FieldOfficialSell,
	FieldPtaxUSDBuy, FieldPtaxUSDSell,
	FieldTurismoBuy, FieldTurismoSell,
	FieldPtaxEURBuy, FieldPtaxEURSell,
	FieldPtaxCHFBuy, FieldPtaxCHFSell,
	FieldTJLP, FieldSELIC, FieldCDI,
}

// CSVRow renders a ledger row into the fixed mirror shape.
func CSVRow(row *Row) []string {
	record := make([]string, 0, len(csvFieldOrder)+2)
	record = append(record, row.Date.Format(dateLayout))
	for _, field := range csvFieldOrder {
		record = append(record, csvValue(row, field))
	}
	record = append(record, csvStatus(row))
	return record
}

func csvValue(row *Row, field Field) string {
	value, ok := row.Values[field]
	if !ok {
		return ""
	}
	switch field {
	case FieldTJLP, FieldSELIC:
		return brnum.Format(value.Mul(hundred()), 4) + "%"
	case FieldCDI:
		return brnum.Format(value, 10)
	default:
		return brnum.Format(value, 4)
	}
}

func csvStatus(row *Row) string {
	text := row.Status
	if text == "" {
		if raw, ok := row.Raw[FieldTJLP]; ok && timestampShaped(raw) {
			text = raw
		}
	}
	if timestampShaped(text) {
		return "OK " + text
	}
	return text
}

// RegenerateCSV projects the ledger's last-updated row into the CSV mirror:
// the row for that date is replaced when present, appended otherwise, and
// every other date is preserved. The whole file is rewritten so corrections
// to the same date land cleanly.
func RegenerateCSV(snapshot *Snapshot, csvPath string) error {
	row, err := snapshot.LastUpdated()
	if err != nil {
		return err
	}
	dataRow := CSVRow(row)
	dateText := dataRow[0]

	existing, err := readCSVRows(csvPath)
	if err != nil {
		return err
	}

	var rows [][]string
	if len(existing) == 0 || allSingleColumn(existing) {
		rows = [][]string{DefaultCSVHeader, dataRow}
	} else {
		var headerRows, dataRows [][]string
		for _, record := range existing {
			if len(record) > 0 && csvDatePattern.MatchString(record[0]) {
				dataRows = append(dataRows, record)
			} else {
				headerRows = append(headerRows, record)
			}
		}
		if len(headerRows) == 0 {
			headerRows = [][]string{DefaultCSVHeader}
		}

		replaced := false
		merged := make([][]string, 0, len(dataRows)+1)
		for _, record := range dataRows {
			if record[0] == dateText {
				merged = append(merged, dataRow)
				replaced = true
			} else {
				merged = append(merged, record)
			}
		}
		if !replaced {
			merged = append(merged, dataRow)
		}
		rows = append(headerRows, merged...)
	}

	return writeCSVRows(csvPath, rows)
}

// readCSVRows parses an existing mirror, retrying with a latin-1 decode when
// the bytes are not valid UTF-8. A missing file is an empty mirror.
func readCSVRows(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger: read csv: %w", err)
	}
	if !utf8.Valid(data) {
		decoded, decodeErr := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if decodeErr != nil {
			return nil, nil
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		// An unparseable mirror is rebuilt from scratch rather than blocking
		// the run.
		return nil, nil
	}
	return rows, nil
}

func writeCSVRows(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ledger: write csv: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	writer.Comma = ';'
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("ledger: write csv rows: %w", err)
	}
	writer.Flush()
	return writer.Error()
}

func allSingleColumn(rows [][]string) bool {
	for _, record := range rows {
		if len(record) > 1 {
			return false
		}
	}
	return true
}
