package models

// Report is the daily auto-candidate file published next to the app.
type Report struct {
	Date        string            `json:"date"`
	GeneratedAt string            `json:"generatedAt"`
	Market      *ReportMarket     `json:"market,omitempty"`
	Candidates  []ReportCandidate `json:"candidates"`
}

// ReportMarket carries the market-wide context block.
type ReportMarket struct {
	Program *ProgramFlow `json:"program,omitempty"`
}

// ProgramFlow is program trading buy/sell/net for reference only.
type ProgramFlow struct {
	Buy  *float64 `json:"buy"`
	Sell *float64 `json:"sell"`
	Net  *float64 `json:"net"`
	Note string   `json:"note"`
}

// ReportCandidate is one pre-screened stock. Numeric fields are nullable.
type ReportCandidate struct {
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	LeaderScore *float64 `json:"leaderScore"`
	Market      string   `json:"market"`
	AmountRank  *int     `json:"amountRank"`
	Rate        *float64 `json:"rate"`
	Amount      *float64 `json:"amount"`
	ForeignTop  bool     `json:"foreignTop"`
}

// Top returns at most n candidates in report order.
func (r *Report) Top(n int) []ReportCandidate {
	if r == nil {
		return nil
	}
	if n < 0 || len(r.Candidates) <= n {
		return r.Candidates
	}
	return r.Candidates[:n]
}

// Find returns the candidate with the given code.
func (r *Report) Find(code string) (ReportCandidate, bool) {
	if r == nil {
		return ReportCandidate{}, false
	}
	for _, c := range r.Candidates {
		if c.Code == code {
			return c, true
		}
	}
	return ReportCandidate{}, false
}
