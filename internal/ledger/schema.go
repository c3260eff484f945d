// Package ledger maintains the date-keyed spreadsheet of record: loading it
// into an in-memory snapshot, applying no-overwrite updates, migrating legacy
// layouts, and projecting the CSV mirror.
package ledger

// Field names one value slot of a ledger row.
type Field string

const (
	FieldOfficialBuy  Field = "official_buy"
	FieldOfficialSell Field = "official_sell"
	FieldPtaxUSDBuy   Field = "ptax_usd_buy"
	FieldPtaxUSDSell  Field = "ptax_usd_sell"
	FieldTurismoBuy   Field = "turismo_buy"
	FieldTurismoSell  Field = "turismo_sell"
	FieldPtaxEURBuy   Field = "ptax_eur_buy"
	FieldPtaxEURSell  Field = "ptax_eur_sell"
	FieldPtaxCHFBuy   Field = "ptax_chf_buy"
	FieldPtaxCHFSell  Field = "ptax_chf_sell"
	FieldTJLP         Field = "tjlp"
	FieldSELIC        Field = "selic"
	FieldCDI          Field = "cdi"
)

// Source identifies one fetchable data source.
type Source string

const (
	SourceUSDBRL  Source = "usd_brl"
	SourcePtaxUSD Source = "ptax_usd"
	SourceTurismo Source = "turismo"
	SourcePtaxEUR Source = "ptax_eur"
	SourcePtaxCHF Source = "ptax_chf"
	SourceTJLP    Source = "tjlp"
	SourceSELIC   Source = "selic"
)

// Group is the time-of-day window a source belongs to.
type Group int

const (
	// GroupMorning sources are only collected until the morning cutoff.
	GroupMorning Group = iota
	// GroupAfternoon sources only publish after the early-afternoon floor.
	GroupAfternoon
)

// SourceSpec describes a source's identity, its admission window, and the
// ledger slots it is expected to fill.
type SourceSpec struct {
	Key    Source
	Label  string
	Group  Group
	Fields []Field
}

// Sources lists every known source in collection order. The SELIC source
// owns both the SELIC and the derived CDI slot.
var Sources = []SourceSpec{
	{Key: SourceUSDBRL, Label: "USD/BRL (AwesomeAPI)", Group: GroupMorning, Fields: []Field{FieldOfficialBuy, FieldOfficialSell}},
	{Key: SourceTurismo, Label: "Dolar Turismo (AwesomeAPI)", Group: GroupMorning, Fields: []Field{FieldTurismoBuy, FieldTurismoSell}},
	{Key: SourcePtaxUSD, Label: "PTAX USD", Group: GroupAfternoon, Fields: []Field{FieldPtaxUSDBuy, FieldPtaxUSDSell}},
	{Key: SourcePtaxEUR, Label: "PTAX EUR", Group: GroupAfternoon, Fields: []Field{FieldPtaxEURBuy, FieldPtaxEURSell}},
	{Key: SourcePtaxCHF, Label: "PTAX CHF", Group: GroupAfternoon, Fields: []Field{FieldPtaxCHFBuy, FieldPtaxCHFSell}},
	{Key: SourceTJLP, Label: "TJLP (BCB/SGS)", Group: GroupMorning, Fields: []Field{FieldTJLP}},
	{Key: SourceSELIC, Label: "SELIC (BCB/SGS)", Group: GroupMorning, Fields: []Field{FieldSELIC, FieldCDI}},
}

// SpecFor returns the descriptor for a source key.
func SpecFor(key Source) (SourceSpec, bool) {
	for _, spec := range Sources {
		if spec.Key == key {
			return spec, true
		}
	}
	return SourceSpec{}, false
}

// Schema pins the spreadsheet layout: which column holds which field and the
// number format each cell carries. Header rows occupy rows 1-2; data starts
// at row 3.
type Schema struct {
	FirstDataRow int
	DateColumn   int
	StatusColumn int
	// LegacyLogColumn is where older files kept the combined log text; the
	// load-time migration moves it into StatusColumn.
	LegacyLogColumn int
	Columns         map[Field]int
}

// DefaultSchema is the current layout (columns A through O).
var DefaultSchema = Schema{
	FirstDataRow:    3,
	DateColumn:      1,
	StatusColumn:    15,
	LegacyLogColumn: 12,
	Columns: map[Field]int{
		FieldOfficialBuy:  2,
		FieldOfficialSell: 3,
		FieldPtaxUSDBuy:   4,
		FieldPtaxUSDSell:  5,
		FieldTurismoBuy:   6,
		FieldTurismoSell:  7,
		FieldPtaxEURBuy:   8,
		FieldPtaxEURSell:  9,
		FieldPtaxCHFBuy:   10,
		FieldPtaxCHFSell:  11,
		FieldTJLP:         12,
		FieldSELIC:        13,
		FieldCDI:          14,
	},
}

const (
	numFmtDate    = "dd/mm/yyyy"
	numFmtQuote   = "0.0000"
	numFmtPercent = "0.00%"
	numFmtCDI     = "0.0000000000"
)

// numberFormat returns the cell format for a field.
func numberFormat(field Field) string {
	switch field {
	case FieldTJLP, FieldSELIC:
		return numFmtPercent
	case FieldCDI:
		return numFmtCDI
	default:
		return numFmtQuote
	}
}

// superHeaders maps column -> row-1 group title.
var superHeaders = map[int]string{
	1:  "Data",
	2:  "Dolar Oficial",
	4:  "Dolar PTAX",
	6:  "Dolar Turismo",
	8:  "Euro PTAX",
	10: "CHF PTAX",
	12: "Juros",
	15: "Controle",
}

// columnHeaders maps column -> row-2 header.
var columnHeaders = map[int]string{
	1:  "Data",
	2:  "Compra",
	3:  "Venda",
	4:  "Compra",
	5:  "Venda",
	6:  "Compra",
	7:  "Venda",
	8:  "Compra",
	9:  "Venda",
	10: "Compra",
	11: "Venda",
	12: "TJLP",
	13: "SELIC",
	14: "CDI",
	15: "Situacao",
}
