package models

import "math"

// Trade is a recorded execution. Entry and Exit are nil when the price was
// left blank or was not a number.
type Trade struct {
	ID        string   `json:"id"`
	Date      string   `json:"date"`
	Symbol    string   `json:"symbol"`
	Name      string   `json:"name"`
	Entry     *float64 `json:"entry"`
	Exit      *float64 `json:"exit"`
	Qty       float64  `json:"qty"`
	PnL       *float64 `json:"pnl"`
	Plan      string   `json:"plan"`
	Result    string   `json:"result"`
	CreatedAt int64    `json:"createdAt"`
}

// ComputePnL returns (exit-entry)/entry when both prices are present and
// non-zero, else nil. A non-finite result is nil too. The result is stored
// once at creation time.
func ComputePnL(entry, exit *float64) *float64 {
	if entry == nil || exit == nil || *entry == 0 || *exit == 0 {
		return nil
	}
	pnl := (*exit - *entry) / *entry
	if math.IsNaN(pnl) || math.IsInf(pnl, 0) {
		return nil
	}
	return &pnl
}

// TradeDraft prefills the add-trade form when a candidate is promoted.
// Prices are deliberately absent.
type TradeDraft struct {
	Date   string `json:"date"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Plan   string `json:"plan"`
}
