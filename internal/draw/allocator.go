package draw

import (
	"context"
	"fmt"

	"github.com/amesupakorn/eLottery/internal/model"
)

// DefaultStartNumber is the first ticket number of every draw.
const DefaultStartNumber int64 = 100000

// Range is an inclusive block of ticket numbers.
type Range struct {
	Start int64
	End   int64
}

// RangeStore reads allocation state for a draw.
type RangeStore interface {
	// LockDrawRanges serializes allocation for drawID until the transaction ends.
	LockDrawRanges(ctx context.Context, drawID int64) error
	// MaxRangeEnd returns the highest range end of any purchase of the draw.
	MaxRangeEnd(ctx context.Context, drawID int64) (int64, bool, error)
}

// Allocate reserves the next contiguous range of quantity numbers. The caller
// must insert the purchase in the same transaction.
func Allocate(ctx context.Context, s RangeStore, drawID, quantity int64) (Range, error) {
	if quantity < 1 {
		return Range{}, model.ErrInvalidQuantity
	}
	if err := s.LockDrawRanges(ctx, drawID); err != nil {
		return Range{}, fmt.Errorf("lock draw ranges: %w", err)
	}
	return Peek(ctx, s, drawID, quantity)
}

// Peek computes the range the next purchase would get without reserving it.
func Peek(ctx context.Context, s RangeStore, drawID, quantity int64) (Range, error) {
	if quantity < 1 {
		return Range{}, model.ErrInvalidQuantity
	}

	maxEnd, ok, err := s.MaxRangeEnd(ctx, drawID)
	if err != nil {
		return Range{}, fmt.Errorf("max range end: %w", err)
	}

	start := DefaultStartNumber
	if ok {
		start = maxEnd + 1
	}

	return Range{Start: start, End: start + quantity - 1}, nil
}
