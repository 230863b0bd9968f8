package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

var (
	drawActionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draw_actions_total",
			Help: "Draw lifecycle actions by action and result",
		},
		[]string{"action", "result"},
	)

	drawActionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "draw_action_duration_ms",
			Help:    "Draw lifecycle action duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"action"},
	)

	purchaseTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_purchases_total",
			Help: "Ticket purchase attempts by result",
		},
		[]string{"result"},
	)

	ticketsSold = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_sold_total",
		Help: "Ticket numbers allocated to buyers",
	})

	prizesPaid = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prize_payouts_total",
		Help: "Number of prize credits applied at publish",
	})

	prizeAmount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prize_payout_amount_total",
		Help: "Sum of prize credits applied at publish",
	})

	ledgerEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_entries_total",
			Help: "Wallet ledger entries by entry type",
		},
		[]string{"entry_type"},
	)
)

func outcome(err error) string {
	if err != nil {
		return "fail"
	}
	return "success"
}

// RecordDrawAction records one lock, run or publish call.
func RecordDrawAction(action string, err error, started time.Time) {
	drawActionTotal.WithLabelValues(action, outcome(err)).Inc()
	drawActionDuration.WithLabelValues(action).Observe(float64(time.Since(started).Milliseconds()))
}

// RecordPurchase records a purchase attempt. quantity counts only on success.
func RecordPurchase(quantity int64, err error) {
	purchaseTotal.WithLabelValues(outcome(err)).Inc()
	if err == nil && quantity > 0 {
		ticketsSold.Add(float64(quantity))
	}
}

// RecordPayouts records the prize credits of one settlement.
func RecordPayouts(count int, total decimal.Decimal) {
	if count == 0 {
		return
	}
	prizesPaid.Add(float64(count))
	prizeAmount.Add(total.InexactFloat64())
}

// RecordLedgerEntry counts one ledger entry.
func RecordLedgerEntry(entryType string) {
	ledgerEntries.WithLabelValues(entryType).Inc()
}
