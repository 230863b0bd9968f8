package draw

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/amesupakorn/eLottery/internal/model"
)

// TicketNumberWidth is the zero-padded width of a formatted ticket number.
const TicketNumberWidth = 6

// MaxTicketNumber is the largest number that fits TicketNumberWidth digits.
const MaxTicketNumber = 999999

// NumberSpace is the inclusive range winning numbers are drawn from.
type NumberSpace struct {
	Min int64
	Max int64
}

// DefaultNumberSpace covers every six digit ticket number the allocator hands out.
var DefaultNumberSpace = NumberSpace{Min: DefaultStartNumber, Max: MaxTicketNumber}

// Size returns how many numbers the space holds.
func (s NumberSpace) Size() int64 {
	return s.Max - s.Min + 1
}

// Source returns a uniform random integer in [0, n).
type Source func(n int64) (int64, error)

// CryptoSource draws from crypto/rand.
func CryptoSource(n int64) (int64, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0, err
	}
	return v.Int64(), nil
}

// Generator picks winning numbers for a draw.
type Generator struct {
	space  NumberSpace
	source Source
}

// NewGenerator returns a generator over space. A nil source means CryptoSource.
func NewGenerator(space NumberSpace, source Source) (*Generator, error) {
	if space.Min < 0 || space.Max < space.Min || space.Max > MaxTicketNumber {
		return nil, fmt.Errorf("invalid number space [%d, %d]", space.Min, space.Max)
	}
	if source == nil {
		source = CryptoSource
	}
	return &Generator{space: space, source: source}, nil
}

// Space returns the number space of the generator.
func (g *Generator) Space() NumberSpace {
	return g.space
}

var errSpaceTooSmall = errors.New("number space too small for requested winners")

// Generate draws WinnersCount numbers for every tier. Numbers are unique
// across the whole draw; a collision is redrawn.
func (g *Generator) Generate(drawID int64, tiers []model.PrizeTier) ([]model.DrawResult, error) {
	total := int64(0)
	for _, t := range tiers {
		if t.WinnersCount < 0 {
			return nil, fmt.Errorf("tier %q: negative winners count", t.Name)
		}
		total += int64(t.WinnersCount)
	}
	if total > g.space.Size() {
		return nil, fmt.Errorf("%w: %d > %d", errSpaceTooSmall, total, g.space.Size())
	}

	seen := make(map[int64]struct{}, total)
	results := make([]model.DrawResult, 0, total)

	for _, t := range tiers {
		for i := 0; i < t.WinnersCount; i++ {
			var n int64
			for {
				v, err := g.source(g.space.Size())
				if err != nil {
					return nil, fmt.Errorf("random source: %w", err)
				}
				n = g.space.Min + v
				if _, dup := seen[n]; !dup {
					break
				}
			}
			seen[n] = struct{}{}

			results = append(results, model.DrawResult{
				DrawID:       drawID,
				TierID:       t.ID,
				TierName:     t.Name,
				TicketNumber: FormatTicketNumber(n),
				PrizeAmount:  t.PrizeAmount,
			})
		}
	}

	return results, nil
}

// FormatTicketNumber zero-pads n to TicketNumberWidth digits.
func FormatTicketNumber(n int64) string {
	return fmt.Sprintf("%0*d", TicketNumberWidth, n)
}

// ParseTicketNumber returns the integer value of a formatted ticket number.
func ParseTicketNumber(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ticket number %q: %w", s, err)
	}
	return n, nil
}
