// Package memory is an in-process implementation of repository.Store. It is
// used when no database is configured and by tests. Transactions are fully
// serialized and work on a copy of the state that replaces the original on
// commit.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/amesupakorn/eLottery/internal/model"
	"github.com/amesupakorn/eLottery/internal/repository"
)

var errRangeOverlap = errors.New("ticket range overlaps an existing purchase")

// Store keeps all rows in memory.
type Store struct {
	mu sync.Mutex
	st *state
}

// New returns an empty store.
func New() *Store {
	return &Store{st: newState()}
}

type state struct {
	seq       int64
	users     map[int64]model.User
	wallets   map[int64]model.Wallet
	txs       []model.AccountTransaction
	draws     map[int64]model.Draw
	tiers     []model.PrizeTier
	runs      map[int64]time.Time
	results   []model.DrawResult
	purchases map[int64]model.TicketPurchase
	receipts  map[string]model.Receipt
}

func newState() *state {
	return &state{
		users:     map[int64]model.User{},
		wallets:   map[int64]model.Wallet{},
		draws:     map[int64]model.Draw{},
		runs:      map[int64]time.Time{},
		purchases: map[int64]model.TicketPurchase{},
		receipts:  map[string]model.Receipt{},
	}
}

func (s *state) clone() *state {
	c := &state{
		seq:       s.seq,
		users:     make(map[int64]model.User, len(s.users)),
		wallets:   make(map[int64]model.Wallet, len(s.wallets)),
		txs:       append([]model.AccountTransaction(nil), s.txs...),
		draws:     make(map[int64]model.Draw, len(s.draws)),
		tiers:     append([]model.PrizeTier(nil), s.tiers...),
		runs:      make(map[int64]time.Time, len(s.runs)),
		results:   append([]model.DrawResult(nil), s.results...),
		purchases: make(map[int64]model.TicketPurchase, len(s.purchases)),
		receipts:  make(map[string]model.Receipt, len(s.receipts)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.draws {
		c.draws[k] = v
	}
	for k, v := range s.runs {
		c.runs[k] = v
	}
	for k, v := range s.purchases {
		c.purchases[k] = v
	}
	for k, v := range s.receipts {
		c.receipts[k] = v
	}
	return c
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

// InTx runs fn against a private copy of the state and publishes it if fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&tx{st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.st = work
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

type tx struct {
	st *state
}

var _ repository.Tx = (*tx)(nil)

func (t *tx) CreateUser(ctx context.Context, u *model.User) (int64, error) {
	for _, existing := range t.st.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return 0, model.ErrUserExists
		}
	}
	id := t.st.nextID()
	row := *u
	row.ID = id
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	t.st.users[id] = row
	return id, nil
}

func (t *tx) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range t.st.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, model.ErrUserNotFound
}

func (t *tx) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return &u, nil
}

func (t *tx) SetNotifyOptIn(ctx context.Context, userID int64, optIn bool) error {
	u, ok := t.st.users[userID]
	if !ok {
		return model.ErrUserNotFound
	}
	u.NotifyOptIn = optIn
	t.st.users[userID] = u
	return nil
}

func (t *tx) CreateWallet(ctx context.Context, userID int64, currency string, at time.Time) (*model.Wallet, error) {
	for _, w := range t.st.wallets {
		if w.UserID == userID {
			return nil, model.ErrUserExists
		}
	}
	w := model.Wallet{
		ID:        t.st.nextID(),
		UserID:    userID,
		Balance:   decimal.Zero,
		Currency:  currency,
		UpdatedAt: at,
	}
	t.st.wallets[w.ID] = w
	return &w, nil
}

func (t *tx) GetWalletByUser(ctx context.Context, userID int64) (*model.Wallet, error) {
	for _, w := range t.st.wallets {
		if w.UserID == userID {
			return &w, nil
		}
	}
	return nil, model.ErrWalletNotFound
}

func (t *tx) GetWalletForUpdate(ctx context.Context, walletID int64) (*model.Wallet, error) {
	w, ok := t.st.wallets[walletID]
	if !ok {
		return nil, model.ErrWalletNotFound
	}
	return &w, nil
}

func (t *tx) UpdateWalletBalance(ctx context.Context, walletID int64, balance decimal.Decimal, at time.Time) error {
	w, ok := t.st.wallets[walletID]
	if !ok {
		return model.ErrWalletNotFound
	}
	w.Balance = balance
	w.UpdatedAt = at
	t.st.wallets[walletID] = w
	return nil
}

func (t *tx) InsertTransaction(ctx context.Context, at *model.AccountTransaction) (int64, error) {
	if _, ok := t.st.wallets[at.WalletID]; !ok {
		return 0, model.ErrWalletNotFound
	}
	row := *at
	row.ID = t.st.nextID()
	t.st.txs = append(t.st.txs, row)
	return row.ID, nil
}

func (t *tx) ListTransactions(ctx context.Context, walletID int64, f model.TransactionFilter) ([]model.AccountTransaction, error) {
	q := strings.ToLower(strings.TrimSpace(f.Query))

	var out []model.AccountTransaction
	for _, row := range t.st.txs {
		if row.WalletID != walletID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(row.Note), q) && !strings.Contains(strings.ToLower(row.RefCode), q) {
			continue
		}
		if f.From != nil && row.OccurredAt.Before(*f.From) {
			continue
		}
		if f.To != nil && row.OccurredAt.After(*f.To) {
			continue
		}
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		return out[i].ID > out[j].ID
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (t *tx) CreateDraw(ctx context.Context, d *model.Draw) (int64, error) {
	for _, existing := range t.st.draws {
		if existing.Code == d.Code {
			return 0, model.ErrDrawCodeConflict
		}
	}
	row := *d
	row.ID = t.st.nextID()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	t.st.draws[row.ID] = row
	return row.ID, nil
}

func (t *tx) GetDraw(ctx context.Context, id int64, forUpdate bool) (*model.Draw, error) {
	d, ok := t.st.draws[id]
	if !ok {
		return nil, model.ErrDrawNotFound
	}
	return &d, nil
}

func (t *tx) GetDrawByCode(ctx context.Context, code string, forUpdate bool) (*model.Draw, error) {
	for _, d := range t.st.draws {
		if d.Code == code {
			return &d, nil
		}
	}
	return nil, model.ErrDrawNotFound
}

func (t *tx) sortedDraws() []model.Draw {
	out := make([]model.Draw, 0, len(t.st.draws))
	for _, d := range t.st.draws {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (t *tx) LatestDrawByStatus(ctx context.Context, status model.DrawStatus) (*model.Draw, error) {
	for _, d := range t.sortedDraws() {
		if d.Status == status {
			return &d, nil
		}
	}
	return nil, model.ErrDrawNotFound
}

func (t *tx) ListDraws(ctx context.Context, status model.DrawStatus) ([]model.Draw, error) {
	var out []model.Draw
	for _, d := range t.sortedDraws() {
		if status == "" || d.Status == status {
			out = append(out, d)
		}
	}
	return out, nil
}

func (t *tx) UpdateDrawStatus(ctx context.Context, drawID int64, status model.DrawStatus) error {
	d, ok := t.st.draws[drawID]
	if !ok {
		return model.ErrDrawNotFound
	}
	d.Status = status
	t.st.draws[drawID] = d
	return nil
}

func (t *tx) CreatePrizeTier(ctx context.Context, pt *model.PrizeTier) (int64, error) {
	if _, ok := t.st.draws[pt.DrawID]; !ok {
		return 0, model.ErrDrawNotFound
	}
	row := *pt
	row.ID = t.st.nextID()
	t.st.tiers = append(t.st.tiers, row)
	return row.ID, nil
}

func (t *tx) ListPrizeTiers(ctx context.Context, drawID int64) ([]model.PrizeTier, error) {
	var out []model.PrizeTier
	for _, pt := range t.st.tiers {
		if pt.DrawID == drawID {
			out = append(out, pt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *tx) ClaimDrawRun(ctx context.Context, drawID int64, at time.Time) error {
	if _, ok := t.st.runs[drawID]; ok {
		return model.ErrResultsAlreadyExist
	}
	t.st.runs[drawID] = at
	return nil
}

func (t *tx) CountDrawResults(ctx context.Context, drawID int64) (int, error) {
	n := 0
	for _, r := range t.st.results {
		if r.DrawID == drawID {
			n++
		}
	}
	return n, nil
}

func (t *tx) CreateDrawResult(ctx context.Context, r *model.DrawResult) (int64, error) {
	for _, existing := range t.st.results {
		if existing.DrawID == r.DrawID && existing.TicketNumber == r.TicketNumber {
			return 0, model.ErrResultsAlreadyExist
		}
	}
	row := *r
	row.ID = t.st.nextID()
	t.st.results = append(t.st.results, row)
	return row.ID, nil
}

func (t *tx) ListDrawResults(ctx context.Context, drawID int64) ([]model.DrawResult, error) {
	tierRank := map[int64]int{}
	for _, pt := range t.st.tiers {
		tierRank[pt.ID] = pt.Rank
	}

	var out []model.DrawResult
	for _, r := range t.st.results {
		if r.DrawID == drawID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if tierRank[out[i].TierID] != tierRank[out[j].TierID] {
			return tierRank[out[i].TierID] < tierRank[out[j].TierID]
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *tx) SettleDrawResult(ctx context.Context, resultID, userID, purchaseID int64) error {
	for i := range t.st.results {
		if t.st.results[i].ID == resultID {
			uid, pid := userID, purchaseID
			t.st.results[i].UserID = &uid
			t.st.results[i].PurchaseID = &pid
			return nil
		}
	}
	return model.ErrDrawNotFound
}

func (t *tx) ListResultsByPurchases(ctx context.Context, purchaseIDs []int64) ([]model.DrawResult, error) {
	want := make(map[int64]struct{}, len(purchaseIDs))
	for _, id := range purchaseIDs {
		want[id] = struct{}{}
	}
	var out []model.DrawResult
	for _, r := range t.st.results {
		if r.PurchaseID == nil {
			continue
		}
		if _, ok := want[*r.PurchaseID]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// LockDrawRanges is a no-op: transactions are already serialized.
func (t *tx) LockDrawRanges(ctx context.Context, drawID int64) error { return nil }

func (t *tx) MaxRangeEnd(ctx context.Context, drawID int64) (int64, bool, error) {
	var (
		maxEnd int64
		found  bool
	)
	for _, p := range t.st.purchases {
		if p.DrawID != drawID {
			continue
		}
		if !found || p.RangeEnd > maxEnd {
			maxEnd = p.RangeEnd
			found = true
		}
	}
	return maxEnd, found, nil
}

func (t *tx) CreatePurchase(ctx context.Context, p *model.TicketPurchase) (int64, error) {
	for _, existing := range t.st.purchases {
		if existing.DrawID == p.DrawID && existing.RangeStart <= p.RangeEnd && p.RangeStart <= existing.RangeEnd {
			return 0, errRangeOverlap
		}
	}
	row := *p
	row.ID = t.st.nextID()
	if d, ok := t.st.draws[row.DrawID]; ok {
		row.DrawCode = d.Code
	}
	t.st.purchases[row.ID] = row
	return row.ID, nil
}

func (t *tx) GetPurchase(ctx context.Context, id int64, forUpdate bool) (*model.TicketPurchase, error) {
	p, ok := t.st.purchases[id]
	if !ok {
		return nil, model.ErrReceiptOrPurchaseNotFound
	}
	return &p, nil
}

func (t *tx) UpdatePurchaseStatus(ctx context.Context, id int64, status model.PurchaseStatus) error {
	p, ok := t.st.purchases[id]
	if !ok {
		return model.ErrReceiptOrPurchaseNotFound
	}
	p.Status = status
	t.st.purchases[id] = p
	return nil
}

func (t *tx) ListPurchasesByUser(ctx context.Context, userID int64, f model.PurchaseFilter) ([]model.TicketPurchase, error) {
	var out []model.TicketPurchase
	for _, p := range t.st.purchases {
		if p.UserID != userID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.DrawID != 0 && p.DrawID != f.DrawID {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PurchasedAt.Equal(out[j].PurchasedAt) {
			return out[i].PurchasedAt.After(out[j].PurchasedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (t *tx) FindPurchasesCovering(ctx context.Context, drawID int64, numbers []int64) ([]model.TicketPurchase, error) {
	var out []model.TicketPurchase
	for _, p := range t.st.purchases {
		if p.DrawID != drawID || p.Status != model.PurchaseStatusOwned {
			continue
		}
		for _, n := range numbers {
			if p.Contains(n) {
				out = append(out, p)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RangeStart < out[j].RangeStart })
	return out, nil
}

func (t *tx) CreateReceipt(ctx context.Context, r *model.Receipt) error {
	if _, ok := t.st.receipts[r.ID]; ok {
		return model.ErrDuplicateRequest
	}
	for _, existing := range t.st.receipts {
		if existing.PurchaseID == r.PurchaseID {
			return model.ErrDuplicateRequest
		}
	}
	t.st.receipts[r.ID] = *r
	return nil
}

func (t *tx) GetReceipt(ctx context.Context, id string) (*model.Receipt, error) {
	r, ok := t.st.receipts[id]
	if !ok {
		return nil, model.ErrReceiptOrPurchaseNotFound
	}
	return &r, nil
}

func (t *tx) GetReceiptByPurchase(ctx context.Context, purchaseID int64) (*model.Receipt, error) {
	for _, r := range t.st.receipts {
		if r.PurchaseID == purchaseID {
			return &r, nil
		}
	}
	return nil, model.ErrReceiptOrPurchaseNotFound
}
