package receipt

import (
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() Document {
	return Document{
		ReceiptID:   "RCPT-1",
		DrawCode:    "20261018-555",
		Quantity:    5,
		UnitPrice:   decimal.NewFromInt(100),
		Currency:    "THB",
		RangeStart:  100000,
		RangeEnd:    100004,
		BuyerEmail:  "buyer@example.com",
		PurchasedAt: time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC),
		VerifyURL:   "https://lottery.example/api/receipts/RCPT-1",
	}
}

func TestRender(t *testing.T) {
	out, err := Render(sampleDocument())
	require.NoError(t, err)

	text := string(out)
	for _, want := range []string{
		"Receipt ID: RCPT-1",
		"Product:    " + DefaultProductName,
		"Quantity:   5 unit(s)",
		"Unit Price: 100.00 THB",
		"Range:      100000 - 100004",
		"Total:      500.00 THB",
		"Name:  -",
		"Email: buyer@example.com",
		"Purchase Date: 2026-10-18T09:30:00Z",
		"https://lottery.example/api/receipts/RCPT-1",
	} {
		assert.Contains(t, text, want)
	}
}

func TestKey(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "receipts/2026/03/RCPT-9.txt", Key("RCPT-9", at))
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Put("receipts/2026/10/a.txt", []byte("hello")))

	rc, err := s.Open("receipts/2026/10/a.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = s.Open("receipts/2026/10/missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, s.Put("../escape.txt", []byte("x")))
	assert.Error(t, s.Put("", []byte("x")))

	require.NoError(t, s.Delete("receipts/2026/10/a.txt"))
	_, err = s.Open("receipts/2026/10/a.txt")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Delete("receipts/2026/10/a.txt"))
}

func TestSigner(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	s := NewSigner("secret", 10*time.Minute)

	token, exp, err := s.Sign("RCPT-1", 7, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(10*time.Minute), exp)

	id, uid, err := s.Verify(token, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "RCPT-1", id)
	assert.Equal(t, int64(7), uid)

	_, _, err = s.Verify(token, now.Add(11*time.Minute))
	assert.ErrorIs(t, err, ErrInvalidLink, "expired")

	_, _, err = NewSigner("other", time.Minute).Verify(token, now)
	assert.ErrorIs(t, err, ErrInvalidLink, "wrong key")

	_, _, err = s.Verify(token+"x", now)
	assert.ErrorIs(t, err, ErrInvalidLink, "tampered")
}

func TestIssuer(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	iss := NewIssuer(store, NewSigner("secret", 5*time.Minute), "https://lottery.example/")

	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	key, err := iss.Issue(sampleDocument(), now)
	require.NoError(t, err)
	assert.Equal(t, "receipts/2026/10/RCPT-1.txt", key)

	link, err := iss.Link("RCPT-1", 7, now)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link.URL, "https://lottery.example"+OpenPath+"?token="))

	u, err := url.Parse(link.URL)
	require.NoError(t, err)
	id, uid, err := iss.Resolve(u.Query().Get("token"), now)
	require.NoError(t, err)
	assert.Equal(t, "RCPT-1", id)
	assert.Equal(t, int64(7), uid)

	rc, err := iss.Open(key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Draw Code:  20261018-555")

	assert.Equal(t, "https://lottery.example/api/receipts/RCPT-1", iss.VerifyURL("RCPT-1"))
}
