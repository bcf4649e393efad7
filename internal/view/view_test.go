package view

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"closing-journal/internal/errors"
	"closing-journal/internal/journal"
	"closing-journal/internal/models"
	"closing-journal/internal/store"
)

type mockReports struct {
	mock.Mock
}

func (m *mockReports) Fetch(ctx context.Context, bust bool) (*models.Report, error) {
	args := m.Called(ctx, bust)
	rep, _ := args.Get(0).(*models.Report)
	return rep, args.Error(1)
}

func newTestJournal(t *testing.T) *journal.Service {
	t.Helper()
	kv, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	now := time.Date(2024, 5, 2, 6, 0, 0, 0, time.UTC)
	seq := 0
	return journal.NewService(kv, zerolog.Nop(),
		journal.WithClock(func() time.Time {
			now = now.Add(time.Second)
			return now
		}),
		// Stats fold trades in store (id) order, so ids follow insertion.
		journal.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("trade-%03d", seq)
		}),
	)
}

func sampleReport(n int) *models.Report {
	rep := &models.Report{
		Date:        "2024-05-02",
		GeneratedAt: "2024-05-02T15:20:00+09:00",
		Market: &models.ReportMarket{Program: &models.ProgramFlow{
			Buy: floatPtr(1200), Sell: floatPtr(900), Net: floatPtr(300), Note: "참고",
		}},
	}
	for i := 0; i < n; i++ {
		rank := i + 1
		rep.Candidates = append(rep.Candidates, models.ReportCandidate{
			Code:       fmt.Sprintf("%06d", i),
			Name:       fmt.Sprintf("종목%d", i),
			AmountRank: &rank,
			Rate:       floatPtr(0.0123),
			Amount:     floatPtr(1234567),
		})
	}
	return rep
}

func floatPtr(v float64) *float64 { return &v }

func TestStateTransitions(t *testing.T) {
	now := time.Date(2024, 5, 2, 16, 0, 0, 0, time.UTC)
	st := NewState(now, time.UTC)
	assert.Equal(t, models.TabAuto, st.Tab)
	assert.Equal(t, "2024-05-02", st.Date)

	next, err := st.WithTab(models.TabStats)
	require.NoError(t, err)
	assert.Equal(t, models.TabStats, next.Tab)
	assert.Equal(t, models.TabAuto, st.Tab, "original state must not change")

	_, err = st.WithTab("chart")
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = st.WithDate("05/02/2024")
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
	next, err = st.WithDate("2024-05-03")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-03", next.Date)
}

func TestRenderAutoShowsAtMostMaxItems(t *testing.T) {
	reports := &mockReports{}
	reports.On("Fetch", mock.Anything, false).Return(sampleReport(25), nil)

	var buf bytes.Buffer
	r := NewRenderer(newTestJournal(t), reports, 0, NewOutput(&buf, true, false))
	require.NoError(t, r.Render(context.Background(), State{Tab: models.TabAuto, Date: "2024-05-02"}))

	var p AutoPanel
	require.NoError(t, json.Unmarshal(buf.Bytes(), &p))
	assert.Len(t, p.Items, DefaultMaxItems)
	assert.Equal(t, "2024-05-02 15:20:00", p.GeneratedAt)
	assert.Equal(t, "프로그램(참고): buy=1200 sell=900 net=300 · 참고", p.Market)
	assert.Empty(t, p.Error)
	reports.AssertExpectations(t)
}

func TestRenderAutoErrorIsInline(t *testing.T) {
	reports := &mockReports{}
	reports.On("Fetch", mock.Anything, true).Return(nil, errors.NewReportError("http://x/reports/today.json", 404, nil))

	var buf bytes.Buffer
	r := NewRenderer(newTestJournal(t), reports, 20, NewOutput(&buf, false, false))
	require.NoError(t, r.RenderAuto(context.Background(), State{Tab: models.TabAuto, Date: "2024-05-02"}, true))

	out := buf.String()
	assert.Contains(t, out, "자동 후보 로드 실패: report error [http://x/reports/today.json]: HTTP 404")
	assert.Contains(t, out, "기준일: - · 생성: -")
	assert.NotContains(t, out, "Score")

	p := r.LoadAuto(context.Background(), true)
	assert.Empty(t, p.Items)
	assert.NotEmpty(t, p.Error)
}

func TestAutoItemLines(t *testing.T) {
	rank := 2
	it := models.ReportCandidate{Code: "005930", LeaderScore: floatPtr(88.5), Market: "KOSPI", AmountRank: &rank, Rate: floatPtr(-0.015), Amount: floatPtr(1234567.5), ForeignTop: true}
	assert.Equal(t, "Score 88.5 · KOSPI · 거래대금rank 2", AutoItemBadge(it))
	assert.Equal(t, "등락률: -1.50% · 거래대금(원단위 아님/원문표기 기반): 1,234,567.5 · 외국인상위참고: Y", AutoItemDetail(it))
	assert.Equal(t, "Score - ·  · 거래대금rank -", AutoItemBadge(models.ReportCandidate{}))
}

func TestRenderTodayBadge(t *testing.T) {
	svc := newTestJournal(t)
	ctx := context.Background()
	_, err := svc.AddCandidate(ctx, journal.CandidateInput{
		Date: "2024-05-02", Symbol: "005930", Name: "삼성전자", NewsTier: "Tier1", Pattern: "패턴1",
		Checklist: models.Checklist{Liquidity: true, Candle: true},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	r := NewRenderer(svc, &mockReports{}, 20, NewOutput(&buf, false, false))
	require.NoError(t, r.Render(ctx, State{Tab: models.TabToday, Date: "2024-05-02"}))

	out := buf.String()
	assert.Contains(t, out, "오늘 후보 2024-05-02 (1)")
	assert.Contains(t, out, "005930 삼성전자  [Tier1 · 패턴1 · 체크 2/7]")
	assert.Contains(t, out, "테마: - · 메모: ")
}

func TestRenderJournalAndStats(t *testing.T) {
	svc := newTestJournal(t)
	ctx := context.Background()
	for _, exit := range []string{"105", "98", "103", "99"} {
		_, err := svc.AddTrade(ctx, journal.TradeInput{Symbol: "A", Entry: "100", Exit: exit, Qty: "1500"}, "2024-05-02")
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	r := NewRenderer(svc, &mockReports{}, 20, NewOutput(&buf, false, false))
	require.NoError(t, r.Render(ctx, State{Tab: models.TabJournal}))
	out := buf.String()
	assert.Contains(t, out, "매매 저널 (4)")
	assert.Contains(t, out, "[2024-05-02 · 수익 5.00%]")
	assert.Contains(t, out, "진입 ₩100 · 청산 ₩105 · 수량 1,500")

	buf.Reset()
	require.NoError(t, r.Render(ctx, State{Tab: models.TabStats}))
	out = buf.String()
	for _, want := range []string{"4", "2 / 2", "50.0%", "1.25%", "4.9%", "2.0%", StatsNote} {
		assert.Contains(t, out, want)
	}
}

func TestStatsRowsEmpty(t *testing.T) {
	rows := StatsRows(journal.ComputeStats(nil))
	assert.Equal(t, [2]string{"총 거래", "0"}, rows[0])
	assert.Equal(t, [2]string{"승률", "0.0%"}, rows[2])
	assert.Equal(t, [2]string{"누적(가정)", "0.0%"}, rows[4])
}

func TestPatterns(t *testing.T) {
	html, err := PatternsHTML()
	require.NoError(t, err)
	assert.Contains(t, html, "<h2>패턴 1</h2>")
	assert.Contains(t, html, "<strong>엔벨로프(20,40) 돌파 후 7/15MA 지지</strong>")

	var buf bytes.Buffer
	r := NewRenderer(newTestJournal(t), &mockReports{}, 20, NewOutput(&buf, false, false))
	require.NoError(t, r.Render(context.Background(), State{Tab: models.TabPatterns}))
	assert.Contains(t, buf.String(), "20MA")
}

func TestRenderSettingsJSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(newTestJournal(t), &mockReports{}, 20, NewOutput(&buf, true, false))
	require.NoError(t, r.Render(context.Background(), State{Tab: models.TabSettings}))

	var got map[string][]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, SettingsHelp, got["help"])
}

func TestTableAlignsWideRunes(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(NewOutput(&buf, false, false), "항목", "v")
	table.AddRow("총 거래", "4")
	table.AddRow("MDD", "2.0%")
	table.Render()

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Equal(t, "총 거래  4", string(lines[2]))
	assert.Equal(t, "MDD      2.0%", string(lines[3]))
}
