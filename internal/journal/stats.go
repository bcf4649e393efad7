package journal

import (
	"context"
	"math"

	"closing-journal/internal/models"
)

// Stats summarizes closed trades under an equal-weight-per-trade
// assumption.
type Stats struct {
	Count       int     `json:"count"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"winRate"`
	Mean        float64 `json:"mean"`
	Equity      float64 `json:"equity"`
	Cumulative  float64 `json:"cumulative"`
	MaxDrawdown float64 `json:"maxDrawdown"`
}

// ComputeStats folds pnl values in the given order. Non-finite values are
// ignored. With no values, rates are zero and equity is 1.
func ComputeStats(pnls []float64) Stats {
	st := Stats{Equity: 1}
	sum := 0.0
	peak := 1.0
	for _, r := range pnls {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		st.Count++
		sum += r
		switch {
		case r > 0:
			st.Wins++
		case r < 0:
			st.Losses++
		}

		st.Equity *= 1 + r
		if st.Equity > peak {
			peak = st.Equity
		}
		if dd := (peak - st.Equity) / peak; dd > st.MaxDrawdown {
			st.MaxDrawdown = dd
		}
	}
	if st.Count > 0 {
		st.WinRate = float64(st.Wins) / float64(st.Count)
		st.Mean = sum / float64(st.Count)
	}
	st.Cumulative = st.Equity - 1
	return st
}

// TradePnLs returns the pnl of each trade that has one, in slice order.
func TradePnLs(trades []models.Trade) []float64 {
	out := make([]float64, 0, len(trades))
	for _, t := range trades {
		if t.PnL != nil {
			out = append(out, *t.PnL)
		}
	}
	return out
}

// Stats computes statistics over every stored trade in store listing order.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	trades, err := s.tradesInStoreOrder(ctx)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(TradePnLs(trades)), nil
}
