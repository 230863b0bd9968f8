// Package model contains the domain entities of the eLottery service.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is a registered buyer. Exactly one Wallet belongs to every user.
type User struct {
	ID           int64
	Email        string
	FullName     string
	PasswordHash []byte
	NotifyOptIn  bool
	CreatedAt    time.Time
}

// DisplayName returns the full name, falling back to the e-mail address.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

// DrawStatus is the lifecycle state of a draw.
type DrawStatus string

const (
	DrawStatusScheduled DrawStatus = "SCHEDULED"
	DrawStatusLocked    DrawStatus = "LOCKED"
	DrawStatusDrawing   DrawStatus = "DRAWING"
	DrawStatusPublished DrawStatus = "PUBLISHED"
	DrawStatusClosed    DrawStatus = "CLOSED"
)

// Valid reports whether s is a known draw status.
func (s DrawStatus) Valid() bool {
	switch s {
	case DrawStatusScheduled, DrawStatusLocked, DrawStatusDrawing, DrawStatusPublished, DrawStatusClosed:
		return true
	}
	return false
}

// Draw is one scheduled lottery event.
type Draw struct {
	ID          int64
	Code        string
	ProductName string
	Status      DrawStatus
	CreatedAt   time.Time
}

// PrizeTier is a prize rank within a draw. Immutable once created.
type PrizeTier struct {
	ID           int64
	DrawID       int64
	Rank         int
	Name         string
	PrizeAmount  decimal.Decimal
	WinnersCount int
}

// DrawResult is one drawn ticket number. UserID and PurchaseID are set by settlement.
type DrawResult struct {
	ID           int64
	DrawID       int64
	TierID       int64
	TierName     string
	TicketNumber string
	PrizeAmount  decimal.Decimal
	UserID       *int64
	PurchaseID   *int64
	CreatedAt    time.Time
}

// Settled reports whether the result was matched to a purchase.
func (r DrawResult) Settled() bool {
	return r.PurchaseID != nil
}

// PurchaseStatus is the status of a ticket purchase.
type PurchaseStatus string

const (
	PurchaseStatusOwned    PurchaseStatus = "OWNED"
	PurchaseStatusCanceled PurchaseStatus = "CANCELED"
	// PurchaseStatusWin is never stored; ticket history derives it from linked results.
	PurchaseStatusWin PurchaseStatus = "WIN"
)

// TicketPurchase is a contiguous block of ticket numbers bought for one draw.
type TicketPurchase struct {
	ID          int64
	UserID      int64
	WalletID    int64
	DrawID      int64
	DrawCode    string
	RangeStart  int64
	RangeEnd    int64
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
	Status      PurchaseStatus
	PurchasedAt time.Time
}

// Quantity returns the number of ticket numbers in the range.
func (p TicketPurchase) Quantity() int64 {
	return p.RangeEnd - p.RangeStart + 1
}

// Contains reports whether number falls inside the purchased range.
func (p TicketPurchase) Contains(number int64) bool {
	return number >= p.RangeStart && number <= p.RangeEnd
}

// Wallet holds the balance of one user.
type Wallet struct {
	ID        int64
	UserID    int64
	Balance   decimal.Decimal
	Currency  string
	UpdatedAt time.Time
}

// EntryType classifies a ledger entry.
type EntryType string

const (
	EntryDeposit    EntryType = "DEPOSIT"
	EntryWithdrawal EntryType = "WITHDRAWAL"
	EntryPurchase   EntryType = "PURCHASE"
	EntryPrize      EntryType = "PRIZE"
	EntryRefund     EntryType = "REFUND"
)

// Direction of a ledger entry. CREDIT increases the balance, DEBIT decreases it.
type Direction string

const (
	Credit Direction = "CREDIT"
	Debit  Direction = "DEBIT"
)

// AccountTransaction is an append-only ledger row.
type AccountTransaction struct {
	ID           int64
	WalletID     int64
	EntryType    EntryType
	Direction    Direction
	Amount       decimal.Decimal
	BalanceAfter decimal.Decimal
	RefCode      string
	Note         string
	OccurredAt   time.Time
}

// Receipt points at a stored purchase receipt document.
type Receipt struct {
	ID         string
	UserID     int64
	PurchaseID int64
	DrawCode   string
	ObjectKey  string
	CreatedAt  time.Time
}

// TransactionFilter narrows a transaction history query.
type TransactionFilter struct {
	Query string
	From  *time.Time
	To    *time.Time
	Limit int
}

// PurchaseFilter narrows a ticket history query. Zero values match everything.
type PurchaseFilter struct {
	Status PurchaseStatus
	DrawID int64
}

// TicketHistoryItem is a purchase with its derived status and any prizes it won.
type TicketHistoryItem struct {
	Purchase TicketPurchase
	Status   PurchaseStatus
	Prizes   []DrawResult
}
