package draw

import (
	"github.com/shopspring/decimal"

	"github.com/amesupakorn/eLottery/internal/model"
)

// DefaultTiers returns the prize tiers seeded into a draw that has none.
func DefaultTiers() []model.PrizeTier {
	return []model.PrizeTier{
		{Rank: 1, Name: "1st Prize", PrizeAmount: decimal.NewFromInt(10_000_000), WinnersCount: 1},
		{Rank: 2, Name: "2nd Prize", PrizeAmount: decimal.NewFromInt(1_000_000), WinnersCount: 1},
		{Rank: 3, Name: "3rd Prize", PrizeAmount: decimal.NewFromInt(10_000), WinnersCount: 5},
	}
}
