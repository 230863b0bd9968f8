package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/amesupakorn/eLottery/internal/draw"
	"github.com/amesupakorn/eLottery/internal/metrics"
	"github.com/amesupakorn/eLottery/internal/model"
	"github.com/amesupakorn/eLottery/internal/notify"
	"github.com/amesupakorn/eLottery/internal/receipt"
	"github.com/amesupakorn/eLottery/internal/repository"
)

// NewDraw describes a draw to create. An empty Code is generated as
// YYYYMMDD-NNN. Tiers wins over SeedDefaultTiers.
type NewDraw struct {
	Code             string
	ProductName      string
	SeedDefaultTiers bool
	Tiers            []model.PrizeTier
}

// DrawDetails is a draw with its tiers and drawn numbers.
type DrawDetails struct {
	Draw    model.Draw
	Tiers   []model.PrizeTier
	Results []model.DrawResult
}

// FlowResult collects the outcome of each lifecycle step run by Flow.
type FlowResult struct {
	Locked    *model.Draw
	Run       *DrawDetails
	Published *draw.Settlement
}

// StepError reports which step of Flow failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return e.Step + ": " + e.Err.Error() }

func (e *StepError) Unwrap() error { return e.Err }

func generateDrawCode(now time.Time) string {
	return fmt.Sprintf("%s-%03d", now.Format("20060102"), 100+rand.IntN(900))
}

// CreateDraw creates a SCHEDULED draw. A generated code is regenerated on
// collision a bounded number of times; an explicit code must be free.
func (s *Service) CreateDraw(ctx context.Context, nd NewDraw) (*DrawDetails, error) {
	explicit := strings.TrimSpace(nd.Code)
	productName := strings.TrimSpace(nd.ProductName)
	if productName == "" {
		productName = receipt.DefaultProductName
	}

	tiers := nd.Tiers
	if len(tiers) == 0 && nd.SeedDefaultTiers {
		tiers = draw.DefaultTiers()
	}

	for attempt := 0; attempt < maxDrawCodeAttempts; attempt++ {
		now := s.now()
		code := explicit
		if code == "" {
			code = generateDrawCode(now)
		}

		det, err := s.createDraw(ctx, code, productName, tiers, now)
		if err == nil {
			s.logger.Info("draw created",
				zap.Int64("draw_id", det.Draw.ID),
				zap.String("draw_code", code),
				zap.Int("tiers", len(det.Tiers)))
			return det, nil
		}
		if explicit != "" || !errors.Is(err, model.ErrDrawCodeConflict) {
			return nil, err
		}
		s.logger.Debug("draw code collision", zap.String("draw_code", code))
	}

	return nil, fmt.Errorf("%w: no free code after %d attempts", model.ErrDrawCodeConflict, maxDrawCodeAttempts)
}

func (s *Service) createDraw(ctx context.Context, code, productName string, tiers []model.PrizeTier, now time.Time) (*DrawDetails, error) {
	det := &DrawDetails{Draw: model.Draw{
		Code:        code,
		ProductName: productName,
		Status:      model.DrawStatusScheduled,
		CreatedAt:   now,
	}}

	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		id, err := tx.CreateDraw(ctx, &det.Draw)
		if err != nil {
			return err
		}
		det.Draw.ID = id
		if len(tiers) == 0 {
			return nil
		}
		det.Tiers, err = draw.SeedTiers(ctx, tx, id, tiers)
		return err
	})
	if err != nil {
		return nil, err
	}
	return det, nil
}

// ListDraws returns draws in status, or all draws when status is empty.
func (s *Service) ListDraws(ctx context.Context, status model.DrawStatus) ([]model.Draw, error) {
	var res []model.Draw
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		res, err = tx.ListDraws(ctx, status)
		return err
	})
	return res, err
}

// GetDraw returns a draw with tiers and results. Results of published draws
// come from the cache when present.
func (s *Service) GetDraw(ctx context.Context, drawID int64) (*DrawDetails, error) {
	det := &DrawDetails{}
	var cached bool

	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		d, err := tx.GetDraw(ctx, drawID, false)
		if err != nil {
			return err
		}
		det.Draw = *d

		det.Tiers, err = tx.ListPrizeTiers(ctx, d.ID)
		if err != nil {
			return err
		}

		if isFinal(d.Status) {
			cached, err = s.cache.DrawResults(ctx, d.ID, &det.Results)
			if err != nil {
				s.logger.Warn("read cached results", zap.Int64("draw_id", d.ID), zap.Error(err))
			}
			if cached {
				return nil
			}
		}

		det.Results, err = tx.ListDrawResults(ctx, d.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if isFinal(det.Draw.Status) && !cached {
		s.cacheResults(ctx, det.Draw.ID, det.Results)
	}
	return det, nil
}

func isFinal(st model.DrawStatus) bool {
	return st == model.DrawStatusPublished || st == model.DrawStatusClosed
}

func (s *Service) cacheResults(ctx context.Context, drawID int64, results []model.DrawResult) {
	if err := s.cache.StoreDrawResults(ctx, drawID, results); err != nil {
		s.logger.Warn("cache draw results", zap.Int64("draw_id", drawID), zap.Error(err))
	}
}

// CurrentDraw returns the draw operators act on by default.
func (s *Service) CurrentDraw(ctx context.Context) (*model.Draw, error) {
	var d *model.Draw
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		d, err = draw.Current(ctx, tx)
		return err
	})
	return d, err
}

// CurrentResults returns the current draw with its drawn numbers.
func (s *Service) CurrentResults(ctx context.Context) (*DrawDetails, error) {
	det := &DrawDetails{}
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		d, err := draw.Current(ctx, tx)
		if err != nil {
			return err
		}
		det.Draw = *d
		det.Results, err = tx.ListDrawResults(ctx, d.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return det, nil
}

// resolveDraw returns drawID, or the current draw when drawID is zero.
func resolveDraw(ctx context.Context, tx repository.Tx, drawID int64) (int64, error) {
	if drawID != 0 {
		return drawID, nil
	}
	d, err := draw.Current(ctx, tx)
	if err != nil {
		return 0, err
	}
	return d.ID, nil
}

// LockDraw stops ticket sales of a draw. Zero means the current draw.
func (s *Service) LockDraw(ctx context.Context, drawID int64) (d *model.Draw, err error) {
	defer func(started time.Time) { metrics.RecordDrawAction("lock", err, started) }(time.Now())

	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		id, err := resolveDraw(ctx, tx, drawID)
		if err != nil {
			return err
		}
		d, err = draw.Lock(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("draw locked", zap.Int64("draw_id", d.ID), zap.String("draw_code", d.Code))
	return d, nil
}

// RunDraw draws the winning numbers. Zero means the current draw.
func (s *Service) RunDraw(ctx context.Context, drawID int64) (det *DrawDetails, err error) {
	defer func(started time.Time) { metrics.RecordDrawAction("run", err, started) }(time.Now())

	det = &DrawDetails{}
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		id, err := resolveDraw(ctx, tx, drawID)
		if err != nil {
			return err
		}
		d, results, err := draw.Run(ctx, tx, s.generator, id, s.now())
		if err != nil {
			return err
		}
		det.Draw = *d
		det.Results = results
		det.Tiers, err = tx.ListPrizeTiers(ctx, d.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("draw run",
		zap.Int64("draw_id", det.Draw.ID),
		zap.String("draw_code", det.Draw.Code),
		zap.Int("results", len(det.Results)))
	return det, nil
}

// PublishDraw settles a DRAWING draw and publishes it. Zero means the current
// draw. Winners are announced after the commit; a failed announcement does
// not undo the settlement.
func (s *Service) PublishDraw(ctx context.Context, drawID int64) (st *draw.Settlement, err error) {
	defer func(started time.Time) { metrics.RecordDrawAction("publish", err, started) }(time.Now())

	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		id, err := resolveDraw(ctx, tx, drawID)
		if err != nil {
			return err
		}
		st, err = draw.Publish(ctx, tx, id, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	total := st.Total()
	metrics.RecordPayouts(len(st.Payouts), total)
	for range st.Payouts {
		metrics.RecordLedgerEntry(string(model.EntryPrize))
	}
	s.logger.Info("draw published",
		zap.Int64("draw_id", st.Draw.ID),
		zap.String("draw_code", st.Draw.Code),
		zap.Int("payouts", len(st.Payouts)),
		zap.String("paid", total.StringFixed(2)))

	s.cacheResults(ctx, st.Draw.ID, st.Results)
	s.announce(context.WithoutCancel(ctx), st)

	return st, nil
}

func (s *Service) announce(ctx context.Context, st *draw.Settlement) {
	if s.notifier == nil {
		return
	}

	ev := notify.DrawEvent{
		DrawID:      st.Draw.ID,
		DrawCode:    st.Draw.Code,
		ProductName: st.Draw.ProductName,
		Winners:     make([]notify.Winner, 0, len(st.Results)),
	}
	for _, r := range st.Results {
		ev.Winners = append(ev.Winners, notify.Winner{
			TierName:     r.TierName,
			TicketNumber: r.TicketNumber,
			PrizeAmount:  r.PrizeAmount,
		})
	}

	if err := s.notifier.DrawPublished(ctx, ev); err != nil {
		s.logger.Warn("announce draw results", zap.Int64("draw_id", st.Draw.ID), zap.Error(err))
	}
}

// Flow locks, runs and publishes the current draw in sequence. Each step
// commits on its own; a failure is reported as a *StepError.
func (s *Service) Flow(ctx context.Context) (*FlowResult, error) {
	cur, err := s.CurrentDraw(ctx)
	if err != nil {
		return nil, &StepError{Step: "lock", Err: err}
	}

	res := &FlowResult{}
	if res.Locked, err = s.LockDraw(ctx, cur.ID); err != nil {
		return res, &StepError{Step: "lock", Err: err}
	}
	if res.Run, err = s.RunDraw(ctx, cur.ID); err != nil {
		return res, &StepError{Step: "run", Err: err}
	}
	if res.Published, err = s.PublishDraw(ctx, cur.ID); err != nil {
		return res, &StepError{Step: "publish", Err: err}
	}
	return res, nil
}
