package view

import (
	"context"
	"fmt"
	"strings"

	"closing-journal/internal/journal"
	"closing-journal/internal/models"
	"closing-journal/internal/report"
	"closing-journal/pkg/utils"
)

// DefaultMaxItems is how many auto-report items are shown.
const DefaultMaxItems = 20

// ReportSource loads the daily auto-candidate report.
type ReportSource interface {
	Fetch(ctx context.Context, bust bool) (*models.Report, error)
}

// Renderer draws panels for a given State.
type Renderer struct {
	Journal  *journal.Service
	Reports  ReportSource
	MaxItems int
	Out      *Output
}

// NewRenderer creates a renderer writing to out.
func NewRenderer(svc *journal.Service, reports ReportSource, maxItems int, out *Output) *Renderer {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &Renderer{Journal: svc, Reports: reports, MaxItems: maxItems, Out: out}
}

// Render draws the panel named by st.Tab.
func (r *Renderer) Render(ctx context.Context, st State) error {
	switch st.Tab {
	case models.TabAuto:
		return r.RenderAuto(ctx, st, false)
	case models.TabToday:
		return r.RenderToday(ctx, st)
	case models.TabPatterns:
		return r.RenderPatterns()
	case models.TabJournal:
		return r.RenderJournal(ctx)
	case models.TabStats:
		return r.RenderStats(ctx)
	case models.TabSettings:
		return r.RenderSettings()
	default:
		return fmt.Errorf("unknown panel %q", st.Tab)
	}
}

// ============================================================================
// Auto
// ============================================================================

// AutoPanel is the auto panel content. A load failure is carried in Error
// with zero items.
type AutoPanel struct {
	Date        string                   `json:"date"`
	GeneratedAt string                   `json:"generatedAt"`
	Market      string                   `json:"market"`
	Items       []models.ReportCandidate `json:"items"`
	Error       string                   `json:"error,omitempty"`
}

// LoadAuto fetches the report and shapes it for display. It never fails.
func (r *Renderer) LoadAuto(ctx context.Context, bust bool) AutoPanel {
	p := AutoPanel{
		Date:        utils.Placeholder,
		GeneratedAt: utils.Placeholder,
		Market:      utils.Placeholder,
		Items:       []models.ReportCandidate{},
	}
	rep, err := r.Reports.Fetch(ctx, bust)
	if err != nil {
		p.Error = err.Error()
		return p
	}
	if rep.Date != "" {
		p.Date = rep.Date
	}
	p.GeneratedAt = report.GeneratedAt(rep)
	if rep.Market != nil && rep.Market.Program != nil {
		p.Market = ProgramLine(*rep.Market.Program)
	}
	if items := rep.Top(r.MaxItems); len(items) > 0 {
		p.Items = items
	}
	return p
}

// ProgramLine renders the program trading reference line.
func ProgramLine(p models.ProgramFlow) string {
	return "프로그램(참고): buy=" + utils.FormatOptional(p.Buy) +
		" sell=" + utils.FormatOptional(p.Sell) +
		" net=" + utils.FormatOptional(p.Net) +
		" · " + p.Note
}

// AutoItemBadge is the score/market/rank badge of a report item.
func AutoItemBadge(it models.ReportCandidate) string {
	rank := utils.Placeholder
	if it.AmountRank != nil {
		rank = fmt.Sprint(*it.AmountRank)
	}
	return "Score " + utils.FormatOptional(it.LeaderScore) + " · " + it.Market + " · 거래대금rank " + rank
}

// AutoItemDetail is the second line of a report item.
func AutoItemDetail(it models.ReportCandidate) string {
	return "등락률: " + utils.FormatRatio(it.Rate, 2) +
		" · 거래대금(원단위 아님/원문표기 기반): " + utils.FormatOptionalNumber(it.Amount) +
		" · 외국인상위참고: " + utils.YesDash(it.ForeignTop)
}

// RenderAuto draws the auto panel. With bust the report is fetched past
// any cache.
func (r *Renderer) RenderAuto(ctx context.Context, st State, bust bool) error {
	p := r.LoadAuto(ctx, bust)
	if r.Out.IsJSON() {
		return r.Out.JSON(p)
	}

	o := r.Out
	o.Bold("자동 후보")
	o.Printf("기준일: %s · 생성: %s\n", p.Date, p.GeneratedAt)
	o.Println(p.Market)
	o.Println()

	if p.Error != "" {
		o.Error("자동 후보 로드 실패: %s", p.Error)
		o.Dim("보고서 파일이 아직 없거나 캐시일 수 있습니다. (export/import는 로컬 데이터용이며 자동 후보는 %s을 읽습니다)", report.DefaultPath)
		return nil
	}

	for _, it := range p.Items {
		o.Printf("%s %s  %s\n", o.BoldText(it.Code), it.Name, o.Badge(AutoItemBadge(it)))
		o.Printf("  %s\n", AutoItemDetail(it))
	}
	if len(p.Items) > 0 {
		o.Println()
		o.Dim("저장: auto save <code> --date %s · 복사: auto copy <code>", st.Date)
	}
	return nil
}

// ============================================================================
// Today
// ============================================================================

// TodayPanel lists the candidates of one day.
type TodayPanel struct {
	Date       string             `json:"date"`
	Count      int                `json:"count"`
	Candidates []models.Candidate `json:"candidates"`
}

// CandidateBadge is "<newsTier> · <pattern> · 체크 n/7".
func CandidateBadge(c models.Candidate) string {
	return fmt.Sprintf("%s · %s · 체크 %d/%d", c.NewsTier, c.Pattern, c.Checklist.Count(), models.ChecklistSize)
}

// RenderToday draws the candidates of st.Date, newest first.
func (r *Renderer) RenderToday(ctx context.Context, st State) error {
	items, err := r.Journal.CandidatesForDate(ctx, st.Date)
	if err != nil {
		return err
	}
	if r.Out.IsJSON() {
		return r.Out.JSON(TodayPanel{Date: st.Date, Count: len(items), Candidates: items})
	}

	o := r.Out
	o.Bold("오늘 후보 %s (%d)", st.Date, len(items))
	for _, c := range items {
		o.Println()
		o.Printf("%s  %s\n", strings.TrimSpace(o.BoldText(c.Symbol)+" "+c.Name), o.Badge(CandidateBadge(c)))
		o.Printf("  테마: %s · 메모: %s\n", dash(c.Theme), c.Notes)
		o.Printf("  %s\n", o.DimText("id "+c.ID))
	}
	return nil
}

// ============================================================================
// Patterns
// ============================================================================

// RenderPatterns draws the static pattern reference.
func (r *Renderer) RenderPatterns() error {
	if r.Out.IsJSON() {
		return r.Out.JSON(Patterns)
	}
	out, err := renderMarkdown(PatternsMarkdown(), r.Out.ColorEnabled())
	if err != nil {
		return err
	}
	r.Out.Printf("%s", out)
	return nil
}

// ============================================================================
// Journal
// ============================================================================

// JournalPanel lists every trade.
type JournalPanel struct {
	Count  int            `json:"count"`
	Trades []models.Trade `json:"trades"`
}

// TradeBadge is "<date> · 수익 <pnl%>".
func TradeBadge(t models.Trade) string {
	return t.Date + " · 수익 " + utils.FormatRatio(t.PnL, 2)
}

// RenderJournal draws every trade, newest first.
func (r *Renderer) RenderJournal(ctx context.Context) error {
	trades, err := r.Journal.Trades(ctx)
	if err != nil {
		return err
	}
	if r.Out.IsJSON() {
		return r.Out.JSON(JournalPanel{Count: len(trades), Trades: trades})
	}

	o := r.Out
	o.Bold("매매 저널 (%d)", len(trades))
	for _, t := range trades {
		badge := o.Badge(TradeBadge(t))
		if t.PnL != nil {
			badge = o.ColoredString(PnLColor(*t.PnL), "["+TradeBadge(t)+"]")
		}
		o.Println()
		o.Printf("%s  %s\n", strings.TrimSpace(o.BoldText(t.Symbol)+" "+t.Name), badge)
		o.Printf("  진입 %s · 청산 %s · 수량 %s\n",
			utils.FormatWon(t.Entry), utils.FormatWon(t.Exit), utils.FormatNumber(t.Qty))
		if t.Plan != "" {
			o.Printf("  플랜: %s\n", t.Plan)
		}
		if t.Result != "" {
			o.Printf("  결과: %s\n", t.Result)
		}
		o.Printf("  %s\n", o.DimText("id "+t.ID))
	}
	return nil
}

// ============================================================================
// Stats
// ============================================================================

// StatsRows formats statistics as label/value pairs.
func StatsRows(st journal.Stats) [][2]string {
	return [][2]string{
		{"총 거래", fmt.Sprint(st.Count)},
		{"승/패", fmt.Sprintf("%d / %d", st.Wins, st.Losses)},
		{"승률", utils.RatioPercent(st.WinRate, 1)},
		{"평균 수익률", utils.RatioPercent(st.Mean, 2)},
		{"누적(가정)", utils.RatioPercent(st.Cumulative, 1)},
		{"MDD(가정)", utils.RatioPercent(st.MaxDrawdown, 1)},
	}
}

// StatsNote qualifies the statistics.
const StatsNote = "※ 통계는 ‘거래당 동일 비중’ 가정의 간이 계산입니다. (초보용)"

// RenderStats draws the statistics over all trades.
func (r *Renderer) RenderStats(ctx context.Context) error {
	st, err := r.Journal.Stats(ctx)
	if err != nil {
		return err
	}
	if r.Out.IsJSON() {
		return r.Out.JSON(st)
	}

	table := NewTable(r.Out, "통계", "값")
	for _, row := range StatsRows(st) {
		table.AddRow(row[0], row[1])
	}
	table.Render()
	r.Out.Println()
	r.Out.Dim("%s", StatsNote)
	return nil
}

// ============================================================================
// Settings
// ============================================================================

// SettingsHelp is the static help text of the settings panel.
var SettingsHelp = []string{
	"알림(텔레그램)",
	"  자동 전송 대신 후보/결과를 copy 명령으로 출력한 뒤 텔레그램에 붙여넣는 방식입니다.",
	"",
	"자동 후보",
	"  auto 패널은 " + report.DefaultPath + " 보고서를 표시만 합니다. --reload 로 캐시를 우회합니다.",
	"",
	"데이터",
	"  export/import 는 로컬 후보와 저널의 백업용입니다. clear 는 되돌릴 수 없습니다.",
}

// RenderSettings draws the settings help.
func (r *Renderer) RenderSettings() error {
	if r.Out.IsJSON() {
		return r.Out.JSON(map[string][]string{"help": SettingsHelp})
	}
	for _, line := range SettingsHelp {
		r.Out.Println(line)
	}
	return nil
}

func dash(s string) string {
	if s == "" {
		return utils.Placeholder
	}
	return s
}
