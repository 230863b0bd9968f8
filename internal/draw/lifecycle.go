package draw

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amesupakorn/eLottery/internal/model"
)

// CurrentStore finds draws by status.
type CurrentStore interface {
	// LatestDrawByStatus returns the newest draw in status or model.ErrDrawNotFound.
	LatestDrawByStatus(ctx context.Context, status model.DrawStatus) (*model.Draw, error)
}

// Store is everything the lifecycle operations touch inside one transaction.
type Store interface {
	SettlementStore
	TierStore
	GetDraw(ctx context.Context, id int64, forUpdate bool) (*model.Draw, error)
	ListPrizeTiers(ctx context.Context, drawID int64) ([]model.PrizeTier, error)
	// ClaimDrawRun records that drawID was run. A second claim fails with
	// model.ErrResultsAlreadyExist.
	ClaimDrawRun(ctx context.Context, drawID int64, at time.Time) error
	CountDrawResults(ctx context.Context, drawID int64) (int, error)
	CreateDrawResult(ctx context.Context, r *model.DrawResult) (int64, error)
}

var currentPriority = []model.DrawStatus{
	model.DrawStatusDrawing,
	model.DrawStatusLocked,
	model.DrawStatusScheduled,
}

// Current resolves the draw operators act on when no id is given: the newest
// DRAWING draw, else the newest LOCKED, else the newest SCHEDULED.
func Current(ctx context.Context, s CurrentStore) (*model.Draw, error) {
	for _, st := range currentPriority {
		d, err := s.LatestDrawByStatus(ctx, st)
		if err == nil {
			return d, nil
		}
		if !errors.Is(err, model.ErrDrawNotFound) {
			return nil, fmt.Errorf("latest %s draw: %w", st, err)
		}
	}
	return nil, model.ErrDrawNotFound
}

// Lock moves the draw to LOCKED. Locking a LOCKED draw succeeds without a write.
func Lock(ctx context.Context, s Store, drawID int64) (*model.Draw, error) {
	d, err := s.GetDraw(ctx, drawID, true)
	if err != nil {
		return nil, err
	}

	next, err := Next(d.Status, EventLock)
	if err != nil {
		return nil, err
	}

	if next != d.Status {
		if err := s.UpdateDrawStatus(ctx, d.ID, next); err != nil {
			return nil, fmt.Errorf("update draw status: %w", err)
		}
		d.Status = next
	}

	return d, nil
}

// Run draws the winning numbers and moves the draw to DRAWING.
func Run(ctx context.Context, s Store, g *Generator, drawID int64, at time.Time) (*model.Draw, []model.DrawResult, error) {
	d, err := s.GetDraw(ctx, drawID, true)
	if err != nil {
		return nil, nil, err
	}

	n, err := s.CountDrawResults(ctx, d.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("count draw results: %w", err)
	}
	if n > 0 {
		return nil, nil, model.ErrResultsAlreadyExist
	}

	next, err := Next(d.Status, EventRun)
	if err != nil {
		return nil, nil, err
	}

	if err := s.ClaimDrawRun(ctx, d.ID, at); err != nil {
		return nil, nil, err
	}

	tiers, err := s.ListPrizeTiers(ctx, d.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list prize tiers: %w", err)
	}
	if len(tiers) == 0 {
		tiers, err = SeedTiers(ctx, s, d.ID, DefaultTiers())
		if err != nil {
			return nil, nil, err
		}
	}

	if err := s.UpdateDrawStatus(ctx, d.ID, next); err != nil {
		return nil, nil, fmt.Errorf("update draw status: %w", err)
	}
	d.Status = next

	results, err := g.Generate(d.ID, tiers)
	if err != nil {
		return nil, nil, fmt.Errorf("generate results: %w", err)
	}

	for i := range results {
		results[i].CreatedAt = at
		id, err := s.CreateDrawResult(ctx, &results[i])
		if err != nil {
			return nil, nil, fmt.Errorf("create draw result: %w", err)
		}
		results[i].ID = id
	}

	return d, results, nil
}

// TierStore creates prize tiers.
type TierStore interface {
	CreatePrizeTier(ctx context.Context, t *model.PrizeTier) (int64, error)
}

// SeedTiers stores tiers for drawID and returns them with ids assigned.
// Tiers without a rank are ranked by position.
func SeedTiers(ctx context.Context, s TierStore, drawID int64, tiers []model.PrizeTier) ([]model.PrizeTier, error) {
	out := make([]model.PrizeTier, 0, len(tiers))
	for i, t := range tiers {
		t.DrawID = drawID
		if t.Rank == 0 {
			t.Rank = i + 1
		}
		id, err := s.CreatePrizeTier(ctx, &t)
		if err != nil {
			return nil, fmt.Errorf("create prize tier %q: %w", t.Name, err)
		}
		t.ID = id
		out = append(out, t)
	}
	return out, nil
}

// Publish settles the draw and moves it to PUBLISHED.
func Publish(ctx context.Context, s Store, drawID int64, at time.Time) (*Settlement, error) {
	d, err := s.GetDraw(ctx, drawID, true)
	if err != nil {
		return nil, err
	}

	if _, err := Next(d.Status, EventPublish); err != nil {
		return nil, err
	}

	n, err := s.CountDrawResults(ctx, d.ID)
	if err != nil {
		return nil, fmt.Errorf("count draw results: %w", err)
	}
	if n == 0 {
		return nil, model.ErrNoResultsToPublish
	}

	return Settle(ctx, s, d, at)
}
