package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/draws/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpReqTotal.WithLabelValues("/api/draws/{id}", http.MethodGet, "418"))

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/draws/"+id, nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	}

	after := testutil.ToFloat64(httpReqTotal.WithLabelValues("/api/draws/{id}", http.MethodGet, "418"))
	assert.Equal(t, 2.0, after-before)
}

func TestRecorders(t *testing.T) {
	okBefore := testutil.ToFloat64(purchaseTotal.WithLabelValues("success"))
	soldBefore := testutil.ToFloat64(ticketsSold)

	RecordPurchase(5, nil)
	RecordPurchase(3, errors.New("insufficient funds"))

	assert.Equal(t, 1.0, testutil.ToFloat64(purchaseTotal.WithLabelValues("success"))-okBefore)
	assert.Equal(t, 5.0, testutil.ToFloat64(ticketsSold)-soldBefore)

	paidBefore := testutil.ToFloat64(prizesPaid)
	RecordPayouts(0, decimal.Zero)
	RecordPayouts(2, decimal.RequireFromString("1500.50"))
	assert.Equal(t, 2.0, testutil.ToFloat64(prizesPaid)-paidBefore)

	RecordDrawAction("run", nil, time.Now())
	assert.GreaterOrEqual(t, testutil.ToFloat64(drawActionTotal.WithLabelValues("run", "success")), 1.0)
}

func TestHandler_ServesRegistry(t *testing.T) {
	RecordLedgerEntry("DEPOSIT")

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `ledger_entries_total{entry_type="DEPOSIT"}`))
}
