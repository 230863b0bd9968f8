package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/amesupakorn/eLottery/internal/model"
)

// Store runs units of work against persistent storage.
type Store interface {
	// InTx runs fn in one atomic transaction. fn's error rolls everything back.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Tx is the set of operations available inside a transaction.
type Tx interface {
	UserTx
	WalletTx
	DrawTx
	PurchaseTx
	ReceiptTx
}

// UserTx manages users.
type UserTx interface {
	CreateUser(ctx context.Context, u *model.User) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	SetNotifyOptIn(ctx context.Context, userID int64, optIn bool) error
}

// WalletTx manages wallets and the ledger.
type WalletTx interface {
	CreateWallet(ctx context.Context, userID int64, currency string, at time.Time) (*model.Wallet, error)
	GetWalletByUser(ctx context.Context, userID int64) (*model.Wallet, error)
	GetWalletForUpdate(ctx context.Context, walletID int64) (*model.Wallet, error)
	UpdateWalletBalance(ctx context.Context, walletID int64, balance decimal.Decimal, at time.Time) error
	InsertTransaction(ctx context.Context, t *model.AccountTransaction) (int64, error)
	ListTransactions(ctx context.Context, walletID int64, f model.TransactionFilter) ([]model.AccountTransaction, error)
}

// DrawTx manages draws, tiers and results.
type DrawTx interface {
	CreateDraw(ctx context.Context, d *model.Draw) (int64, error)
	GetDraw(ctx context.Context, id int64, forUpdate bool) (*model.Draw, error)
	GetDrawByCode(ctx context.Context, code string, forUpdate bool) (*model.Draw, error)
	LatestDrawByStatus(ctx context.Context, status model.DrawStatus) (*model.Draw, error)
	ListDraws(ctx context.Context, status model.DrawStatus) ([]model.Draw, error)
	UpdateDrawStatus(ctx context.Context, drawID int64, status model.DrawStatus) error

	CreatePrizeTier(ctx context.Context, t *model.PrizeTier) (int64, error)
	ListPrizeTiers(ctx context.Context, drawID int64) ([]model.PrizeTier, error)

	ClaimDrawRun(ctx context.Context, drawID int64, at time.Time) error
	CountDrawResults(ctx context.Context, drawID int64) (int, error)
	CreateDrawResult(ctx context.Context, r *model.DrawResult) (int64, error)
	ListDrawResults(ctx context.Context, drawID int64) ([]model.DrawResult, error)
	SettleDrawResult(ctx context.Context, resultID, userID, purchaseID int64) error
	ListResultsByPurchases(ctx context.Context, purchaseIDs []int64) ([]model.DrawResult, error)
}

// PurchaseTx manages ticket purchases.
type PurchaseTx interface {
	LockDrawRanges(ctx context.Context, drawID int64) error
	MaxRangeEnd(ctx context.Context, drawID int64) (int64, bool, error)
	CreatePurchase(ctx context.Context, p *model.TicketPurchase) (int64, error)
	GetPurchase(ctx context.Context, id int64, forUpdate bool) (*model.TicketPurchase, error)
	UpdatePurchaseStatus(ctx context.Context, id int64, status model.PurchaseStatus) error
	ListPurchasesByUser(ctx context.Context, userID int64, f model.PurchaseFilter) ([]model.TicketPurchase, error)
	FindPurchasesCovering(ctx context.Context, drawID int64, numbers []int64) ([]model.TicketPurchase, error)
}

// ReceiptTx manages receipt records.
type ReceiptTx interface {
	CreateReceipt(ctx context.Context, r *model.Receipt) error
	GetReceipt(ctx context.Context, id string) (*model.Receipt, error)
	GetReceiptByPurchase(ctx context.Context, purchaseID int64) (*model.Receipt, error)
}
