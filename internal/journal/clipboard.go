package journal

import (
	"strings"

	"closing-journal/internal/models"
	"closing-journal/pkg/utils"
)

// CandidateSummary is the messenger-ready text for a candidate.
func CandidateSummary(c models.Candidate) string {
	lines := []string{
		"[종가후보] " + c.Date,
		strings.TrimSpace("- 종목: " + c.Symbol + " " + c.Name),
		"- 테마: " + orDash(c.Theme),
		"- 뉴스: " + c.NewsTier,
		"- 패턴: " + c.Pattern,
		"- 체크(OK): " + okKeys(c.Checklist),
	}
	if c.Notes != "" {
		lines = append(lines, "- 메모: "+c.Notes)
	}
	lines = append(lines, "\n"+utils.Routine)
	return strings.Join(lines, "\n")
}

// TradeSummary is the messenger-ready result text for a trade.
func TradeSummary(t models.Trade) string {
	var b strings.Builder
	b.WriteString("[종가매매 결과] " + t.Date + "\n")
	b.WriteString("- " + t.Symbol + " " + t.Name + "\n")
	b.WriteString("- 진입:" + priceOrDash(t.Entry) + " / 청산:" + priceOrDash(t.Exit) +
		" / 수익:" + utils.FormatRatio(t.PnL, 2) + "\n")
	b.WriteString("- 메모:" + orDash(t.Result))
	return b.String()
}

// ReportSummary is the text copied from an auto-report item.
func ReportSummary(date string, item models.ReportCandidate) string {
	var b strings.Builder
	b.WriteString("[자동후보] " + date + "\n")
	b.WriteString("- " + item.Code + " " + item.Name + "\n")
	b.WriteString("- Score:" + utils.FormatOptional(item.LeaderScore) +
		" 거래대금rank:" + formatRank(item.AmountRank) +
		" 등락:" + utils.FormatRatio(item.Rate, 2) + "\n")
	b.WriteString("- 참고: 외국인상위=" + utils.YesDash(item.ForeignTop) + "\n")
	b.WriteString("(앱에서 체크리스트/패턴 확인 후 종가 접근)")
	return b.String()
}

// PlanText is the trade plan prefilled when promoting a candidate.
func PlanText(c models.Candidate) string {
	return "뉴스:" + c.NewsTier + " / 패턴:" + c.Pattern + " / 테마:" + orDash(c.Theme) +
		"\n체크:" + strings.Join(c.Checklist.OKKeys(), ", ")
}

func okKeys(c models.Checklist) string {
	keys := c.OKKeys()
	if len(keys) == 0 {
		return utils.Placeholder
	}
	return strings.Join(keys, ", ")
}

func orDash(s string) string {
	if s == "" {
		return utils.Placeholder
	}
	return s
}

// priceOrDash prints a stored price; absent and zero prices show "-".
func priceOrDash(v *float64) string {
	if v == nil || *v == 0 {
		return utils.Placeholder
	}
	return utils.FormatPlain(*v)
}
