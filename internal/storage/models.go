package storage

import (
	"encoding/json"
	"time"
)

// RunRecord is one persisted collection run, keyed by the ledger date it
// updated. Re-runs for the same date overwrite the previous record, mirroring
// how the status cell behaves in the workbook.
type RunRecord struct {
	LedgerDate time.Time
	RanAt      time.Time
	Status     string
	Detail     *string
	Selected   []string
	Fresh      []string
	Repeated   []string
	// Failures maps source key to its redacted error text.
	Failures  json.RawMessage
	ElapsedMS int64
	CreatedAt time.Time
}
