package models

// Default classification given to candidates saved from the auto report.
const (
	DefaultNewsTier = "Tier2(단독/핵심)"
	DefaultPattern  = "패턴1(20MA 회복)"
)

// Candidate is a stock being considered for a closing-time trade.
type Candidate struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Theme     string    `json:"theme"`
	NewsTier  string    `json:"newsTier"`
	Pattern   string    `json:"pattern"`
	Notes     string    `json:"notes"`
	Checklist Checklist `json:"checklist"`
	CreatedAt int64     `json:"createdAt"`
}

// Checklist holds the seven due-diligence flags. Fields absent from a
// decoded record stay false.
type Checklist struct {
	Liquidity  bool `json:"liquidity"`
	Leader     bool `json:"leader"`
	Candle     bool `json:"candle"`
	Position   bool `json:"position"`
	Minute     bool `json:"minute"`
	Orderbook  bool `json:"orderbook"`
	AfterHours bool `json:"afterHours"`
}

// ChecklistSize is the number of due-diligence flags.
const ChecklistSize = 7

// ChecklistKeys lists the flag names in display order.
var ChecklistKeys = []string{"liquidity", "leader", "candle", "position", "minute", "orderbook", "afterHours"}

func (c Checklist) values() []bool {
	return []bool{c.Liquidity, c.Leader, c.Candle, c.Position, c.Minute, c.Orderbook, c.AfterHours}
}

// Count returns how many flags are set.
func (c Checklist) Count() int {
	n := 0
	for _, ok := range c.values() {
		if ok {
			n++
		}
	}
	return n
}

// OKKeys returns the names of the set flags in display order.
func (c Checklist) OKKeys() []string {
	var keys []string
	for i, ok := range c.values() {
		if ok {
			keys = append(keys, ChecklistKeys[i])
		}
	}
	return keys
}

// SetByKey sets the flag called key. Unknown keys are reported false.
func (c *Checklist) SetByKey(key string, v bool) bool {
	switch key {
	case "liquidity":
		c.Liquidity = v
	case "leader":
		c.Leader = v
	case "candle":
		c.Candle = v
	case "position":
		c.Position = v
	case "minute":
		c.Minute = v
	case "orderbook":
		c.Orderbook = v
	case "afterHours", "afterhours":
		c.AfterHours = v
	default:
		return false
	}
	return true
}
