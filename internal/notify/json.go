package notify

import "encoding/json"

// MarshalJSON sends the prize amount as a JSON number.
func (w Winner) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TierName     string      `json:"tier_name"`
		TicketNumber string      `json:"ticket_number"`
		PrizeAmount  json.Number `json:"prize_amount"`
	}{w.TierName, w.TicketNumber, json.Number(w.PrizeAmount.String())})
}
