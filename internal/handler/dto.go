package handler

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/shopspring/decimal"

	"github.com/amesupakorn/eLottery/internal/draw"
	"github.com/amesupakorn/eLottery/internal/model"
	"github.com/amesupakorn/eLottery/internal/service"
	rules "github.com/amesupakorn/eLottery/internal/validation"
)

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func (r signUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, rules.Email...),
		validation.Field(&r.Password, rules.Password...),
		validation.Field(&r.FullName, validation.Length(0, 200)),
	)
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r signInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

type amountRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod"`
}

func (r amountRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Amount, rules.Amount),
		validation.Field(&r.PaymentMethod, validation.Length(0, 64)),
	)
}

type purchaseRequest struct {
	DrawCode string `json:"drawCode"`
	Quantity int64  `json:"quantity"`
}

func (r purchaseRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DrawCode, validation.Required, rules.DrawCode),
		validation.Field(&r.Quantity, rules.Quantity...),
	)
}

type tierRequest struct {
	TierName     string          `json:"tier_name"`
	PrizeAmount  decimal.Decimal `json:"prize_amount"`
	WinnersCount int             `json:"winners_count"`
}

func (r tierRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TierName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.PrizeAmount, rules.Amount),
		validation.Field(&r.WinnersCount, validation.Required, validation.Min(1), validation.Max(1000)),
	)
}

type createDrawRequest struct {
	DrawCode       string        `json:"draw_code"`
	ProductName    string        `json:"product_name"`
	SeedPrizeTiers bool          `json:"seedPrizeTiers"`
	Tiers          []tierRequest `json:"tiers"`
}

func (r createDrawRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DrawCode, rules.DrawCode),
		validation.Field(&r.ProductName, validation.Length(0, 200)),
		validation.Field(&r.Tiers),
	)
}

func (r createDrawRequest) newDraw() service.NewDraw {
	nd := service.NewDraw{
		Code:             r.DrawCode,
		ProductName:      r.ProductName,
		SeedDefaultTiers: r.SeedPrizeTiers,
	}
	for i, t := range r.Tiers {
		nd.Tiers = append(nd.Tiers, model.PrizeTier{
			Rank:         i + 1,
			Name:         t.TierName,
			PrizeAmount:  t.PrizeAmount,
			WinnersCount: t.WinnersCount,
		})
	}
	return nd
}

type receiptRequest struct {
	PurchaseID int64 `json:"purchase_id"`
}

func (r receiptRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PurchaseID, validation.Required, validation.Min(1)),
	)
}

type subscribeRequest struct {
	OptIn *bool `json:"opt_in"`
}

func (r subscribeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OptIn, validation.NotNil),
	)
}

type userResponse struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name,omitempty"`
	NotifyOptIn bool      `json:"notify_opt_in"`
	CreatedAt   time.Time `json:"created_at"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		NotifyOptIn: u.NotifyOptIn,
		CreatedAt:   u.CreatedAt,
	}
}

type authResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

type walletResponse struct {
	ID        int64           `json:"id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func newWalletResponse(w *model.Wallet) walletResponse {
	return walletResponse{
		ID:        w.ID,
		Balance:   w.Balance,
		Currency:  w.Currency,
		UpdatedAt: w.UpdatedAt,
	}
}

type transactionResponse struct {
	ID           int64           `json:"id"`
	EntryType    model.EntryType `json:"entry_type"`
	Direction    model.Direction `json:"direction"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	RefCode      string          `json:"ref_code"`
	Note         string          `json:"note"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

func newTransactionResponse(t *model.AccountTransaction) transactionResponse {
	return transactionResponse{
		ID:           t.ID,
		EntryType:    t.EntryType,
		Direction:    t.Direction,
		Amount:       t.Amount,
		BalanceAfter: t.BalanceAfter,
		RefCode:      t.RefCode,
		Note:         t.Note,
		OccurredAt:   t.OccurredAt,
	}
}

type ledgerResponse struct {
	Wallet      walletResponse      `json:"wallet"`
	Transaction transactionResponse `json:"transaction"`
}

type purchaseResponse struct {
	ID          int64                `json:"id"`
	DrawID      int64                `json:"draw_id"`
	DrawCode    string               `json:"draw_code"`
	RangeStart  int64                `json:"range_start"`
	RangeEnd    int64                `json:"range_end"`
	Quantity    int64                `json:"quantity"`
	UnitPrice   decimal.Decimal      `json:"unit_price"`
	TotalPrice  decimal.Decimal      `json:"total_price"`
	Status      model.PurchaseStatus `json:"status"`
	PurchasedAt time.Time            `json:"purchased_at"`
}

func newPurchaseResponse(p *model.TicketPurchase) purchaseResponse {
	return purchaseResponse{
		ID:          p.ID,
		DrawID:      p.DrawID,
		DrawCode:    p.DrawCode,
		RangeStart:  p.RangeStart,
		RangeEnd:    p.RangeEnd,
		Quantity:    p.Quantity(),
		UnitPrice:   p.UnitPrice,
		TotalPrice:  p.TotalPrice,
		Status:      p.Status,
		PurchasedAt: p.PurchasedAt,
	}
}

type purchaseResultResponse struct {
	Purchase    purchaseResponse    `json:"purchase"`
	Wallet      walletResponse      `json:"wallet"`
	Transaction transactionResponse `json:"transaction"`
	ReceiptID   string              `json:"receipt_id,omitempty"`
}

type cancelResponse struct {
	Purchase purchaseResponse `json:"purchase"`
	Wallet   walletResponse   `json:"wallet"`
}

type previewResponse struct {
	DrawCode   string          `json:"draw_code"`
	Quantity   int64           `json:"quantity"`
	RangeStart int64           `json:"rangeStart"`
	RangeEnd   int64           `json:"rangeEnd"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Currency   string          `json:"currency"`
}

type drawResponse struct {
	ID          int64            `json:"id"`
	DrawCode    string           `json:"draw_code"`
	ProductName string           `json:"product_name"`
	Status      model.DrawStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
}

func newDrawResponse(d *model.Draw) drawResponse {
	return drawResponse{
		ID:          d.ID,
		DrawCode:    d.Code,
		ProductName: d.ProductName,
		Status:      d.Status,
		CreatedAt:   d.CreatedAt,
	}
}

type tierResponse struct {
	ID           int64           `json:"id"`
	Rank         int             `json:"rank"`
	TierName     string          `json:"tier_name"`
	PrizeAmount  decimal.Decimal `json:"prize_amount"`
	WinnersCount int             `json:"winners_count"`
}

type resultResponse struct {
	ID           int64           `json:"id"`
	TierName     string          `json:"tier_name"`
	TicketNumber string          `json:"ticket_number"`
	PrizeAmount  decimal.Decimal `json:"prize_amount"`
	UserID       *int64          `json:"user_id"`
	PurchaseID   *int64          `json:"purchase_id"`
}

func newResultResponses(results []model.DrawResult) []resultResponse {
	out := make([]resultResponse, 0, len(results))
	for _, r := range results {
		out = append(out, resultResponse{
			ID:           r.ID,
			TierName:     r.TierName,
			TicketNumber: r.TicketNumber,
			PrizeAmount:  r.PrizeAmount,
			UserID:       r.UserID,
			PurchaseID:   r.PurchaseID,
		})
	}
	return out
}

type drawDetailsResponse struct {
	Draw    drawResponse     `json:"draw"`
	Tiers   []tierResponse   `json:"tiers"`
	Results []resultResponse `json:"results"`
}

func newDrawDetailsResponse(det *service.DrawDetails) drawDetailsResponse {
	resp := drawDetailsResponse{
		Draw:    newDrawResponse(&det.Draw),
		Tiers:   make([]tierResponse, 0, len(det.Tiers)),
		Results: newResultResponses(det.Results),
	}
	for _, t := range det.Tiers {
		resp.Tiers = append(resp.Tiers, tierResponse{
			ID:           t.ID,
			Rank:         t.Rank,
			TierName:     t.Name,
			PrizeAmount:  t.PrizeAmount,
			WinnersCount: t.WinnersCount,
		})
	}
	return resp
}

type payoutResponse struct {
	ResultID     int64           `json:"result_id"`
	TierName     string          `json:"tier_name"`
	TicketNumber string          `json:"ticket_number"`
	UserID       int64           `json:"user_id"`
	PurchaseID   int64           `json:"purchase_id"`
	Amount       decimal.Decimal `json:"amount"`
}

type settlementResponse struct {
	Draw      drawResponse     `json:"draw"`
	Results   []resultResponse `json:"results"`
	Payouts   []payoutResponse `json:"payouts"`
	TotalPaid decimal.Decimal  `json:"total_paid"`
}

func newSettlementResponse(st *draw.Settlement) settlementResponse {
	resp := settlementResponse{
		Draw:      newDrawResponse(st.Draw),
		Results:   newResultResponses(st.Results),
		Payouts:   make([]payoutResponse, 0, len(st.Payouts)),
		TotalPaid: st.Total(),
	}
	for _, p := range st.Payouts {
		resp.Payouts = append(resp.Payouts, payoutResponse{
			ResultID:     p.ResultID,
			TierName:     p.TierName,
			TicketNumber: p.TicketNumber,
			UserID:       p.UserID,
			PurchaseID:   p.PurchaseID,
			Amount:       p.Amount,
		})
	}
	return resp
}

type flowResponse struct {
	Lock    *drawResponse        `json:"lock,omitempty"`
	Run     *drawDetailsResponse `json:"run,omitempty"`
	Publish *settlementResponse  `json:"publish,omitempty"`
	Step    string               `json:"step,omitempty"`
	Error   string               `json:"error,omitempty"`
}

func newFlowResponse(res *service.FlowResult) flowResponse {
	var resp flowResponse
	if res == nil {
		return resp
	}
	if res.Locked != nil {
		d := newDrawResponse(res.Locked)
		resp.Lock = &d
	}
	if res.Run != nil {
		det := newDrawDetailsResponse(res.Run)
		resp.Run = &det
	}
	if res.Published != nil {
		st := newSettlementResponse(res.Published)
		resp.Publish = &st
	}
	return resp
}

type ticketHistoryResponse struct {
	Purchase purchaseResponse     `json:"purchase"`
	Status   model.PurchaseStatus `json:"status"`
	Prizes   []resultResponse     `json:"prizes"`
}

type receiptResponse struct {
	ReceiptID  string    `json:"receipt_id"`
	PurchaseID int64     `json:"purchase_id"`
	DrawCode   string    `json:"draw_code"`
	CreatedAt  time.Time `json:"created_at"`
}
