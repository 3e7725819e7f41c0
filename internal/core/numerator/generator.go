// Package numerator defines lot token numbering. Grocery lots and machine
// batches get human-readable tokens such as GB-2024-00017 that operators
// write on labels, so numbers are gapless within a period.
package numerator

import (
	"context"
	"fmt"
	"time"
)

// Reset controls when a sequence starts over at 1.
type Reset string

const (
	ResetYearly  Reset = "year"
	ResetMonthly Reset = "month"
	ResetNever   Reset = "never"
)

// Sequence describes one token series.
type Sequence struct {
	Prefix string
	// Width is the zero-padded width of the counter (default 5)
	Width int
	Reset Reset
}

// LotSequence is the series used for lot and batch tokens: PREFIX-YYYY-NNNNN,
// restarting every year.
func LotSequence(prefix string) Sequence {
	return Sequence{Prefix: prefix, Width: 5, Reset: ResetYearly}
}

// Key is the sys_sequences row that holds the counter for period.
func (s Sequence) Key(period time.Time) string {
	switch s.Reset {
	case ResetMonthly:
		return s.Prefix + "_" + period.Format("2006_01")
	case ResetNever:
		return s.Prefix
	default:
		return s.Prefix + "_" + period.Format("2006")
	}
}

// Format renders the n-th token of period.
func (s Sequence) Format(period time.Time, n int64) string {
	width := s.Width
	if width <= 0 {
		width = 5
	}
	if s.Reset == ResetNever {
		return fmt.Sprintf("%s-%0*d", s.Prefix, width, n)
	}
	return fmt.Sprintf("%s-%s-%0*d", s.Prefix, period.Format("2006"), width, n)
}

// Generator hands out the next token of a sequence. Implementations join
// the transaction carried by ctx, so a rolled-back insert gives its number back.
type Generator interface {
	Next(ctx context.Context, seq Sequence, period time.Time) (string, error)
}
