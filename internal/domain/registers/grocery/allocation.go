package grocery

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/catalogs/item"
)

var (
	// ErrExceedsRemaining means the target is above the sum of current remaining.
	ErrExceedsRemaining = errors.New("target exceeds total remaining")
	// ErrNegativeTarget means a negative target was supplied.
	ErrNegativeTarget = errors.New("target must not be negative")
	// ErrFractionalTarget means a count item was given a fractional target.
	ErrFractionalTarget = errors.New("target must be a whole number")
	// ErrShortfall means FIFO consumption ran out of stock.
	ErrShortfall = errors.New("not enough remaining stock")
)

// Allocate spreads target over batches in proportion to their current remaining.
// current must be in FIFO order; the result has the same order and sums to target exactly.
// No allocation is negative or above the batch's current remaining.
func Allocate(current []types.Quantity, target types.Quantity, kind item.UnitKind) ([]types.Quantity, error) {
	if target < 0 {
		return nil, ErrNegativeTarget
	}
	total := sum(current)
	if target > total {
		return nil, ErrExceedsRemaining
	}

	out := make([]types.Quantity, len(current))
	if total == 0 || target == 0 {
		return out, nil
	}
	if target == total {
		copy(out, current)
		return out, nil
	}

	if kind == item.UnitWeight {
		return allocateWeight(current, target, total, out), nil
	}
	if !target.IsWhole() {
		return nil, ErrFractionalTarget
	}
	return allocateCount(current, target, total, out), nil
}

// allocateWeight rounds each share to 0.001 and closes the residual one step at a time,
// preferring batches earlier in FIFO order.
func allocateWeight(current []types.Quantity, target, total types.Quantity, out []types.Quantity) []types.Quantity {
	t := decimal.NewFromInt(target.Int64Scaled())
	d := decimal.NewFromInt(total.Int64Scaled())

	var allocated types.Quantity
	for i, c := range current {
		share := t.Mul(decimal.NewFromInt(c.Int64Scaled())).DivRound(d, 0).IntPart()
		out[i] = clamp(types.Quantity(share), 0, c)
		allocated += out[i]
	}

	residual := target - allocated
	for residual != 0 {
		moved := false
		for i := range out {
			if residual > 0 && out[i] < current[i] {
				out[i] += types.QuantityStep
				residual -= types.QuantityStep
				moved = true
				break
			}
			if residual < 0 && out[i] > 0 {
				out[i] -= types.QuantityStep
				residual += types.QuantityStep
				moved = true
				break
			}
		}
		if !moved {
			break
		}
	}
	return out
}

// allocateCount floors each share to whole units and hands out the leftover units
// by largest fractional remainder, ties going to the earlier batch.
func allocateCount(current []types.Quantity, target, total types.Quantity, out []types.Quantity) []types.Quantity {
	t := decimal.NewFromInt(target.Int64Scaled())
	d := decimal.NewFromInt(total.Int64Scaled())
	unit := decimal.NewFromInt(types.QuantityScale)

	type share struct {
		index     int
		remainder decimal.Decimal
	}
	shares := make([]share, len(current))

	var allocated types.Quantity
	for i, c := range current {
		raw := t.Mul(decimal.NewFromInt(c.Int64Scaled())).Div(d).Div(unit) // in units
		base := raw.Floor()
		out[i] = clamp(types.NewQuantityFromUnits(base.IntPart()), 0, c)
		allocated += out[i]
		shares[i] = share{index: i, remainder: raw.Sub(base)}
	}

	sort.SliceStable(shares, func(a, b int) bool {
		return shares[a].remainder.GreaterThan(shares[b].remainder)
	})

	one := types.NewQuantityFromUnits(1)
	leftover := target - allocated
	for leftover > 0 {
		moved := false
		for _, s := range shares {
			if leftover <= 0 {
				break
			}
			if out[s.index]+one <= current[s.index] {
				out[s.index] += one
				leftover -= one
				moved = true
			}
		}
		if !moved {
			break
		}
	}
	return out
}

// ConsumeFIFO takes qty from batches in order, returning how much each batch gives up.
// It fails with ErrShortfall before taking anything when the total is insufficient.
func ConsumeFIFO(current []types.Quantity, qty types.Quantity) ([]types.Quantity, error) {
	if qty <= 0 {
		return nil, ErrNegativeTarget
	}
	if sum(current) < qty {
		return nil, ErrShortfall
	}

	taken := make([]types.Quantity, len(current))
	left := qty
	for i, c := range current {
		if left == 0 {
			break
		}
		if c <= 0 {
			continue
		}
		take := min(c, left)
		taken[i] = take
		left -= take
	}
	return taken, nil
}

func sum(qs []types.Quantity) types.Quantity {
	var s types.Quantity
	for _, q := range qs {
		s += q
	}
	return s
}

func clamp(q, lo, hi types.Quantity) types.Quantity {
	return max(lo, min(q, hi))
}
