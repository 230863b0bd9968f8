// Package draw implements the draw lifecycle: the state machine, ticket range
// allocation, winning number generation and prize settlement.
package draw

import (
	"fmt"

	"github.com/amesupakorn/eLottery/internal/model"
)

// Event is an operator action on a draw.
type Event string

const (
	EventLock    Event = "lock"
	EventRun     Event = "run"
	EventPublish Event = "publish"
	EventClose   Event = "close"
)

// Next returns the status a draw moves to when evt is applied in status cur.
// Illegal transitions return cur and an error wrapping model.ErrInvalidStatus.
func Next(cur model.DrawStatus, evt Event) (model.DrawStatus, error) {
	switch evt {
	case EventLock:
		if cur == model.DrawStatusScheduled || cur == model.DrawStatusLocked {
			return model.DrawStatusLocked, nil
		}
	case EventRun:
		if cur == model.DrawStatusScheduled || cur == model.DrawStatusLocked {
			return model.DrawStatusDrawing, nil
		}
	case EventPublish:
		if cur == model.DrawStatusDrawing {
			return model.DrawStatusPublished, nil
		}
	case EventClose:
		if cur == model.DrawStatusPublished {
			return model.DrawStatusClosed, nil
		}
	}
	return cur, fmt.Errorf("%w: %s --%s--> ?", model.ErrInvalidStatus, cur, evt)
}

// AcceptsPurchases reports whether tickets can still be bought in status s.
func AcceptsPurchases(s model.DrawStatus) bool {
	return s == model.DrawStatusScheduled
}
