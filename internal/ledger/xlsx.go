package ledger

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"cotacoes-ledger/internal/brnum"
)

var dateLayouts = []string{"02/01/2006", "2006-01-02", "02/01/06", "01-02-06"}

func coerceDate(text string) (time.Time, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.ParseInLocation(layout, trimmed, time.Local); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func statusLike(text string) bool {
	upper := strings.ToUpper(strings.TrimSpace(text))
	return strings.HasPrefix(upper, "OK ") || strings.HasPrefix(upper, "ERRO ")
}

var timestampPattern = regexp.MustCompile(`^\d{2}/\d{2}/\d{4} \d{2}:\d{2}(:\d{2})?$`)

func timestampShaped(text string) bool {
	return timestampPattern.MatchString(strings.TrimSpace(text))
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// Load reads the workbook into a snapshot, applying the legacy-layout
// migration on the way in: status-like text left in the old combined log
// column moves to the status column so older files stay writable.
func Load(path string) (*Snapshot, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrLedgerNotFound, path)
		}
		return nil, fmt.Errorf("ledger: stat workbook: %w", err)
	}

	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open workbook: %w", err)
	}
	defer file.Close()

	sheet := file.GetSheetName(0)
	rows, err := file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("ledger: read rows: %w", err)
	}

	raw := excelize.Options{RawCellValue: true}
	snapshot := newSnapshot()
	for index := DefaultSchema.FirstDataRow; index <= len(rows); index++ {
		dateText, err := file.GetCellValue(sheet, cellName(DefaultSchema.DateColumn, index))
		if err != nil {
			return nil, fmt.Errorf("ledger: read date cell: %w", err)
		}
		date, ok := coerceDate(dateText)
		if !ok {
			continue
		}

		row := &Row{
			Index:  index,
			Date:   date,
			Values: map[Field]decimal.Decimal{},
			Raw:    map[Field]string{},
		}

		statusText, err := file.GetCellValue(sheet, cellName(DefaultSchema.StatusColumn, index))
		if err != nil {
			return nil, fmt.Errorf("ledger: read status cell: %w", err)
		}
		row.Status = strings.TrimSpace(statusText)

		legacyText, err := file.GetCellValue(sheet, cellName(DefaultSchema.LegacyLogColumn, index))
		if err != nil {
			return nil, fmt.Errorf("ledger: read legacy log cell: %w", err)
		}
		skipLegacyColumn := false
		if row.Status == "" && statusLike(legacyText) {
			row.Status = strings.TrimSpace(legacyText)
			row.migratedLegacyLog = true
			skipLegacyColumn = true
		} else if timestampShaped(legacyText) {
			// Oldest files logged a bare timestamp; keep it as raw text so it
			// is neither mistaken for a rate nor overwritten silently.
			row.Raw[FieldTJLP] = strings.TrimSpace(legacyText)
			skipLegacyColumn = true
		}

		for field, col := range DefaultSchema.Columns {
			if skipLegacyColumn && col == DefaultSchema.LegacyLogColumn {
				continue
			}
			text, err := file.GetCellValue(sheet, cellName(col, index), raw)
			if err != nil {
				return nil, fmt.Errorf("ledger: read cell %s: %w", cellName(col, index), err)
			}
			if strings.TrimSpace(text) == "" {
				continue
			}
			value, parseErr := brnum.ParseDecimal(text)
			if parseErr != nil {
				row.Raw[field] = strings.TrimSpace(text)
				continue
			}
			row.Values[field] = value
		}

		snapshot.addRow(row)
	}

	return snapshot, nil
}

// Save writes the snapshot back into the workbook in one pass: headers are
// normalized, every modeled cell of every row is (re)written with its number
// format, and migrated legacy log cells are blanked.
func Save(path string, snapshot *Snapshot) error {
	file, err := excelize.OpenFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrLedgerNotFound, path)
		}
		return fmt.Errorf("ledger: open workbook: %w", err)
	}
	defer file.Close()

	sheet := file.GetSheetName(0)
	if err := writeLayout(file, sheet); err != nil {
		return err
	}

	styles, err := newStyleSet(file)
	if err != nil {
		return err
	}

	lastRow := DefaultSchema.FirstDataRow - 1
	for _, row := range snapshot.Rows {
		if row.Index > lastRow {
			lastRow = row.Index
		}
		dateCell := cellName(DefaultSchema.DateColumn, row.Index)
		if err := file.SetCellValue(sheet, dateCell, row.Date); err != nil {
			return fmt.Errorf("ledger: write date: %w", err)
		}
		if err := file.SetCellStyle(sheet, dateCell, dateCell, styles.date); err != nil {
			return fmt.Errorf("ledger: style date: %w", err)
		}

		for field, col := range DefaultSchema.Columns {
			value, ok := row.Values[field]
			if !ok {
				if row.migratedLegacyLog && col == DefaultSchema.LegacyLogColumn {
					if err := file.SetCellValue(sheet, cellName(col, row.Index), ""); err != nil {
						return fmt.Errorf("ledger: clear legacy log: %w", err)
					}
				}
				continue
			}
			cell := cellName(col, row.Index)
			if err := file.SetCellValue(sheet, cell, value.InexactFloat64()); err != nil {
				return fmt.Errorf("ledger: write %s: %w", field, err)
			}
			if err := file.SetCellStyle(sheet, cell, cell, styles.forField(field)); err != nil {
				return fmt.Errorf("ledger: style %s: %w", field, err)
			}
		}

		if row.Status != "" {
			statusCell := cellName(DefaultSchema.StatusColumn, row.Index)
			if err := file.SetCellValue(sheet, statusCell, row.Status); err != nil {
				return fmt.Errorf("ledger: write status: %w", err)
			}
		}
	}

	if lastRow >= DefaultSchema.FirstDataRow {
		filterRange := fmt.Sprintf("A2:%s", cellName(DefaultSchema.StatusColumn, lastRow))
		if err := file.AutoFilter(sheet, filterRange, nil); err != nil {
			return fmt.Errorf("ledger: set auto filter: %w", err)
		}
	}

	if err := file.Save(); err != nil {
		return saveWorkbookError(err)
	}
	return nil
}

// saveWorkbookError keeps the locked-file case distinguishable: an open Excel
// holds the workbook and the save surfaces as a permission error.
func saveWorkbookError(err error) error {
	if errors.Is(err, os.ErrPermission) {
		return fmt.Errorf("ledger: workbook locked for writing (open in another program?): %w", err)
	}
	return fmt.Errorf("ledger: save workbook: %w", err)
}

// Normalize rewrites the workbook through a load/save cycle, which applies
// the header layout and the legacy log-column migration without touching any
// quote value.
func Normalize(path string) error {
	snapshot, err := Load(path)
	if err != nil {
		return err
	}
	return Save(path, snapshot)
}

// Init creates a fresh workbook with the current layout and no data rows.
func Init(path string) error {
	file := excelize.NewFile()
	defer file.Close()

	sheet := file.GetSheetName(0)
	if err := writeLayout(file, sheet); err != nil {
		return err
	}
	if err := file.SaveAs(path); err != nil {
		return fmt.Errorf("ledger: create workbook: %w", err)
	}
	return nil
}

func writeLayout(file *excelize.File, sheet string) error {
	for col := 1; col <= DefaultSchema.StatusColumn; col++ {
		for row := 1; row <= 2; row++ {
			if err := file.SetCellValue(sheet, cellName(col, row), ""); err != nil {
				return fmt.Errorf("ledger: clear header cell: %w", err)
			}
		}
	}
	for col, title := range superHeaders {
		if err := file.SetCellValue(sheet, cellName(col, 1), title); err != nil {
			return fmt.Errorf("ledger: write super header: %w", err)
		}
	}
	for col, title := range columnHeaders {
		if err := file.SetCellValue(sheet, cellName(col, 2), title); err != nil {
			return fmt.Errorf("ledger: write header: %w", err)
		}
	}
	if err := file.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      2,
		TopLeftCell: "A3",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("ledger: freeze header rows: %w", err)
	}
	return nil
}

type styleSet struct {
	date    int
	quote   int
	percent int
	cdi     int
}

func newStyleSet(file *excelize.File) (styleSet, error) {
	build := func(format string) (int, error) {
		fmtCopy := format
		return file.NewStyle(&excelize.Style{CustomNumFmt: &fmtCopy})
	}

	var set styleSet
	var err error
	if set.date, err = build(numFmtDate); err != nil {
		return set, fmt.Errorf("ledger: date style: %w", err)
	}
	if set.quote, err = build(numFmtQuote); err != nil {
		return set, fmt.Errorf("ledger: quote style: %w", err)
	}
	if set.percent, err = build(numFmtPercent); err != nil {
		return set, fmt.Errorf("ledger: percent style: %w", err)
	}
	if set.cdi, err = build(numFmtCDI); err != nil {
		return set, fmt.Errorf("ledger: cdi style: %w", err)
	}
	return set, nil
}

func (s styleSet) forField(field Field) int {
	switch numberFormat(field) {
	case numFmtPercent:
		return s.percent
	case numFmtCDI:
		return s.cdi
	default:
		return s.quote
	}
}
