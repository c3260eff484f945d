package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cotacoes-ledger/internal/brnum"
)

var (
	// ErrLedgerNotFound indicates the target workbook file does not exist.
	ErrLedgerNotFound = errors.New("ledger: workbook not found")
	// ErrNoDatedRows indicates the sheet holds no row with a parseable date.
	ErrNoDatedRows = errors.New("ledger: no dated rows in workbook")
)

const dateLayout = "02/01/2006"

// Row is one dated ledger entry. Values holds parsed numeric slots; Raw
// keeps non-blank cell text that could not be coerced to a number, so that
// the no-overwrite rule still protects it.
type Row struct {
	Index  int
	Date   time.Time
	Values map[Field]decimal.Decimal
	Raw    map[Field]string
	Status string

	migratedLegacyLog bool
}

// Blank reports whether a slot holds neither a parsed value nor raw text.
func (r *Row) Blank(field Field) bool {
	if _, ok := r.Values[field]; ok {
		return false
	}
	if raw, ok := r.Raw[field]; ok && strings.TrimSpace(raw) != "" {
		return false
	}
	return true
}

// set writes a slot, honoring the no-overwrite default, and reports whether
// the write happened.
func (r *Row) set(field Field, value decimal.Decimal, overwrite bool) bool {
	if !overwrite && !r.Blank(field) {
		return false
	}
	r.Values[field] = value
	delete(r.Raw, field)
	return true
}

// Snapshot is the in-memory image of the ledger sheet. Rows keep their
// on-disk order; new dates append after the last dated row.
type Snapshot struct {
	Rows []*Row

	byDate  map[string]*Row
	nextRow int
}

func newSnapshot() *Snapshot {
	return &Snapshot{byDate: map[string]*Row{}, nextRow: DefaultSchema.FirstDataRow}
}

func dateKey(date time.Time) string { return date.Format(dateLayout) }

func (s *Snapshot) addRow(row *Row) {
	s.Rows = append(s.Rows, row)
	s.byDate[dateKey(row.Date)] = row
	if row.Index >= s.nextRow {
		s.nextRow = row.Index + 1
	}
}

// RowFor returns the row for a calendar date, if present.
func (s *Snapshot) RowFor(date time.Time) (*Row, bool) {
	row, ok := s.byDate[dateKey(date)]
	return row, ok
}

// FindOrCreate locates the row for a date, appending a fresh one after the
// last dated row when absent.
func (s *Snapshot) FindOrCreate(date time.Time) *Row {
	if row, ok := s.RowFor(date); ok {
		return row
	}
	row := &Row{
		Index:  s.nextRow,
		Date:   truncateToDate(date),
		Values: map[Field]decimal.Decimal{},
		Raw:    map[Field]string{},
	}
	s.addRow(row)
	return row
}

// LastUpdated returns the row with the most recent non-blank status, falling
// back to the latest dated row when no status was ever written.
func (s *Snapshot) LastUpdated() (*Row, error) {
	var lastLogged, lastDated *Row
	for _, row := range s.Rows {
		lastDated = row
		if strings.TrimSpace(row.Status) != "" {
			lastLogged = row
		}
	}
	if lastLogged != nil {
		return lastLogged, nil
	}
	if lastDated != nil {
		return lastDated, nil
	}
	return nil, ErrNoDatedRows
}

// SourceFilled reports whether every required slot of a source is non-blank
// for the given date.
func (s *Snapshot) SourceFilled(date time.Time, spec SourceSpec) bool {
	row, ok := s.RowFor(date)
	if !ok {
		return false
	}
	for _, field := range spec.Fields {
		if row.Blank(field) {
			return false
		}
	}
	return true
}

// FilledSources maps every known source to its filled state for a date.
func (s *Snapshot) FilledSources(date time.Time) map[Source]bool {
	filled := make(map[Source]bool, len(Sources))
	for _, spec := range Sources {
		filled[spec.Key] = s.SourceFilled(date, spec)
	}
	return filled
}

// ValidateRow checks that every source expected to have data (per the
// expected map) has all of its required slots non-blank for the date. Each
// violation becomes a human-readable issue; it never fails hard.
func (s *Snapshot) ValidateRow(date time.Time, expected map[Source]bool) []string {
	row, ok := s.RowFor(date)
	if !ok {
		return []string{fmt.Sprintf("linha da data nao encontrada: %s", dateKey(date))}
	}

	var issues []string
	for _, spec := range Sources {
		if !expected[spec.Key] {
			continue
		}
		for _, field := range spec.Fields {
			if row.Blank(field) {
				issues = append(issues, fmt.Sprintf(
					"%s: campo %s vazio na linha %d", spec.Label, field, row.Index))
			}
		}
	}
	return issues
}

func truncateToDate(value time.Time) time.Time {
	year, month, day := value.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, value.Location())
}

// BuySell carries a quantized two-sided value for an update.
type BuySell struct {
	Buy  decimal.Decimal
	Sell decimal.Decimal
}

// Update describes one run's worth of observations to merge into a row.
// Nil members mean "no fresh observation for this source".
type Update struct {
	Date        time.Time
	OfficialBuy *decimal.Decimal
	PtaxUSD     *BuySell
	PtaxEUR     *BuySell
	PtaxCHF     *BuySell
	Turismo     *BuySell
	// TJLPPercent and SELICPercent arrive as whole percentages (15.00 means
	// 15%); CDIDailyPercent is the derived daily rate, stored as-is.
	TJLPPercent     *decimal.Decimal
	SELICPercent    *decimal.Decimal
	CDIDailyPercent *decimal.Decimal

	Spread          decimal.Decimal
	OverwriteQuotes bool
	Status          string
	Detail          string
	LoggedAt        time.Time
}

// WriteKind distinguishes a freshly fetched value from a repeat of the last
// known one.
type WriteKind string

const (
	WriteFresh    WriteKind = "fresh"
	WriteRepeated WriteKind = "repeated"
)

// Write records one slot actually written by Apply.
type Write struct {
	Field Field
	Kind  WriteKind
}

// Report maps each source to the slots Apply wrote for it. A present key
// with an empty slice means the source had data but every slot was already
// filled.
type Report map[Source][]Write

// Fresh reports whether the field was written with a fresh value.
func (r Report) Fresh(key Source, field Field) bool { return r.has(key, field, WriteFresh) }

// Repeated reports whether the field was filled by the repeat-last-value rule.
func (r Report) Repeated(key Source, field Field) bool { return r.has(key, field, WriteRepeated) }

func (r Report) has(key Source, field Field, kind WriteKind) bool {
	for _, write := range r[key] {
		if write.Field == field && write.Kind == kind {
			return true
		}
	}
	return false
}

// Apply merges the update into the snapshot and returns, per source, the
// slots actually written. Quote slots honor the no-overwrite default; the
// status cell is always rewritten. The caller persists the snapshot in a
// single save afterwards.
func (s *Snapshot) Apply(update Update) Report {
	row := s.FindOrCreate(update.Date)
	row.Date = truncateToDate(update.Date)

	report := Report{}

	if update.OfficialBuy != nil {
		writes := make([]Write, 0, 2)
		buy := brnum.Quantize4(*update.OfficialBuy)

		existing, hadExisting := row.Values[FieldOfficialBuy]
		wroteBuy := row.set(FieldOfficialBuy, buy, update.OverwriteQuotes)
		if wroteBuy {
			writes = append(writes, Write{FieldOfficialBuy, WriteFresh})
		}

		// The sale price derives from whichever buy value is authoritative
		// for the row. An unparseable pre-existing cell falls back to the
		// fetched value instead of aborting the update.
		basis := buy
		if !wroteBuy && hadExisting {
			basis = brnum.Quantize4(existing)
		}

		sell := brnum.Quantize4(basis.Add(update.Spread))
		if row.set(FieldOfficialSell, sell, update.OverwriteQuotes) {
			writes = append(writes, Write{FieldOfficialSell, WriteFresh})
		}
		report[SourceUSDBRL] = writes
	}

	applyPair := func(key Source, pair *BuySell, buyField, sellField Field) {
		if pair == nil {
			return
		}
		writes := make([]Write, 0, 2)
		if row.set(buyField, brnum.Quantize4(pair.Buy), update.OverwriteQuotes) {
			writes = append(writes, Write{buyField, WriteFresh})
		}
		if row.set(sellField, brnum.Quantize4(pair.Sell), update.OverwriteQuotes) {
			writes = append(writes, Write{sellField, WriteFresh})
		}
		report[key] = writes
	}
	applyPair(SourcePtaxUSD, update.PtaxUSD, FieldPtaxUSDBuy, FieldPtaxUSDSell)
	applyPair(SourceTurismo, update.Turismo, FieldTurismoBuy, FieldTurismoSell)
	applyPair(SourcePtaxEUR, update.PtaxEUR, FieldPtaxEURBuy, FieldPtaxEURSell)
	applyPair(SourcePtaxCHF, update.PtaxCHF, FieldPtaxCHFBuy, FieldPtaxCHFSell)

	if update.TJLPPercent != nil {
		writes := make([]Write, 0, 1)
		if row.set(FieldTJLP, update.TJLPPercent.Div(hundred()), update.OverwriteQuotes) {
			writes = append(writes, Write{FieldTJLP, WriteFresh})
		}
		report[SourceTJLP] = writes
	}
	if update.SELICPercent != nil {
		writes := make([]Write, 0, 2)
		if row.set(FieldSELIC, update.SELICPercent.Div(hundred()), update.OverwriteQuotes) {
			writes = append(writes, Write{FieldSELIC, WriteFresh})
		}
		if update.CDIDailyPercent != nil {
			if row.set(FieldCDI, brnum.Quantize10(*update.CDIDailyPercent), update.OverwriteQuotes) {
				writes = append(writes, Write{FieldCDI, WriteFresh})
			}
		}
		report[SourceSELIC] = writes
	}

	// Interest rates publish sporadically: when no fresh value landed today,
	// repeat the nearest earlier one so every dated row stays complete.
	repeat := func(key Source, field Field) {
		if !row.Blank(field) {
			return
		}
		value, ok := s.nearestEarlier(row.Date, field)
		if !ok {
			return
		}
		row.Values[field] = value
		report[key] = append(report[key], Write{field, WriteRepeated})
	}
	repeat(SourceTJLP, FieldTJLP)
	repeat(SourceSELIC, FieldSELIC)
	repeat(SourceSELIC, FieldCDI)

	row.Status = ComposeStatus(update.Status, update.LoggedAt, update.Detail)
	return report
}

// nearestEarlier finds the field value from the closest strictly-earlier
// dated row.
func (s *Snapshot) nearestEarlier(date time.Time, field Field) (decimal.Decimal, bool) {
	var best *Row
	for _, row := range s.Rows {
		if !row.Date.Before(date) {
			continue
		}
		if _, ok := row.Values[field]; !ok {
			continue
		}
		if best == nil || row.Date.After(best.Date) {
			best = row
		}
	}
	if best == nil {
		return decimal.Decimal{}, false
	}
	return best.Values[field], true
}

// ComposeStatus renders the composite status cell:
// "STATUS dd/mm/yyyy HH:MM:SS" with an optional " - detail" suffix.
func ComposeStatus(status string, loggedAt time.Time, detail string) string {
	statusText := strings.TrimSpace(status)
	if statusText == "" {
		statusText = "OK"
	}
	cell := fmt.Sprintf("%s %s", statusText, loggedAt.Format("02/01/2006 15:04:05"))
	if detail != "" {
		cell += " - " + strings.Join(strings.Fields(detail), " ")
	}
	return cell
}

func hundred() decimal.Decimal { return decimal.NewFromInt(100) }
