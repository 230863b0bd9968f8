// Package receipt renders purchase receipts, stores them and signs
// time-limited download links.
package receipt

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultProductName is used when a draw has no product name.
const DefaultProductName = "Digital Lottery Ticket"

// Document is the content of one purchase receipt.
type Document struct {
	ReceiptID   string
	DrawCode    string
	ProductName string
	Quantity    int64
	UnitPrice   decimal.Decimal
	Currency    string
	RangeStart  int64
	RangeEnd    int64
	BuyerName   string
	BuyerEmail  string
	PurchasedAt time.Time
	VerifyURL   string
}

// Total is Quantity times UnitPrice.
func (d Document) Total() decimal.Decimal {
	return d.UnitPrice.Mul(decimal.NewFromInt(d.Quantity))
}

var receiptTmpl = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"money":   func(v decimal.Decimal) string { return v.StringFixed(2) },
	"orDash":  orDash,
	"ticket":  func(n int64) string { return fmt.Sprintf("%06d", n) },
	"isoTime": func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
}).Parse(`eLottery Purchase Receipt
=========================

Receipt ID: {{.ReceiptID}}
Draw Code:  {{.DrawCode}}
Product:    {{.ProductName}}

Purchase Details
----------------
Quantity:   {{.Quantity}} unit(s)
Unit Price: {{money .UnitPrice}} {{.Currency}}
Range:      {{ticket .RangeStart}} - {{ticket .RangeEnd}}
Total:      {{money .Total}} {{.Currency}}

Buyer Information
-----------------
Name:  {{orDash .BuyerName}}
Email: {{orDash .BuyerEmail}}
{{- if not .PurchasedAt.IsZero}}
Purchase Date: {{isoTime .PurchasedAt}}
{{- end}}
{{- if .VerifyURL}}

Verification Link
-----------------
{{.VerifyURL}}
{{- end}}

This receipt confirms your digital lottery purchase. Please keep it for reference.
`))

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Render formats d as a plain-text receipt.
func Render(d Document) ([]byte, error) {
	if d.ProductName == "" {
		d.ProductName = DefaultProductName
	}
	var buf bytes.Buffer
	if err := receiptTmpl.Execute(&buf, d); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
