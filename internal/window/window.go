// Package window implements the time-of-day admission policy: which sources
// may be fetched on a given run, and why the others are skipped.
package window

import (
	"time"

	"cotacoes-ledger/internal/ledger"
)

// SkipReason explains why a source was not selected this run.
type SkipReason string

const (
	SkipAfterMorningCutoff SkipReason = "fora do horario (apos 08:30)"
	SkipBeforePtaxWindow   SkipReason = "fora do horario (antes de 13:10)"
	SkipAlreadyFilled      SkipReason = "ja preenchido na data de hoje"
)

// Clock is a local time-of-day boundary.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) minutes() int { return c.Hour*60 + c.Minute }

// Policy holds the two window boundaries. Both are inclusive: exactly 08:30
// is still morning, exactly 13:10 already admits PTAX.
type Policy struct {
	MorningCutoff Clock
	PtaxFrom      Clock
}

// Default matches the publication times of the sources: morning quotes and
// interest rates until 08:30, PTAX closing rates from 13:10.
func Default() Policy {
	return Policy{
		MorningCutoff: Clock{Hour: 8, Minute: 30},
		PtaxFrom:      Clock{Hour: 13, Minute: 10},
	}
}

// Select decides, purely from the local time and the already-filled state of
// today's ledger row, which sources to fetch now. Between the two windows an
// empty selection is a legitimate outcome, not an error.
func (p Policy) Select(now time.Time, filled map[ledger.Source]bool) ([]ledger.Source, map[ledger.Source]SkipReason) {
	nowMinutes := now.Hour()*60 + now.Minute()
	allowMorning := nowMinutes <= p.MorningCutoff.minutes()
	allowPtax := nowMinutes >= p.PtaxFrom.minutes()

	var selected []ledger.Source
	skipped := map[ledger.Source]SkipReason{}

	admit := func(key ledger.Source, allowed bool, outsideReason SkipReason) {
		switch {
		case !allowed:
			skipped[key] = outsideReason
		case filled[key]:
			skipped[key] = SkipAlreadyFilled
		default:
			selected = append(selected, key)
		}
	}

	for _, key := range []ledger.Source{ledger.SourceUSDBRL, ledger.SourceTurismo} {
		admit(key, allowMorning, SkipAfterMorningCutoff)
	}
	for _, key := range []ledger.Source{ledger.SourcePtaxUSD, ledger.SourcePtaxEUR, ledger.SourcePtaxCHF} {
		admit(key, allowPtax, SkipBeforePtaxWindow)
	}
	for _, key := range []ledger.Source{ledger.SourceTJLP, ledger.SourceSELIC} {
		admit(key, allowMorning, SkipAfterMorningCutoff)
	}

	return selected, skipped
}

// Workers resolves the fetch parallelism: the override caps the default of
// one worker per selected source, never dropping below one.
func Workers(selectedCount, override int) int {
	workers := selectedCount
	if workers < 1 {
		workers = 1
	}
	if override > 0 && override < workers {
		workers = override
	}
	return workers
}
