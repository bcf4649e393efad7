package view

import (
	"bytes"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
)

// Pattern is one entry of the setup reference card.
type Pattern struct {
	Label   string `json:"label"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Patterns is the static reference shown on the patterns panel.
var Patterns = []Pattern{
	{"패턴 1", "신고가 영역 개미털기 후 20MA 회복", "10~40일 조정 후 20일선 재회복 + 거래량 동반"},
	{"패턴 2", "장대양봉 후 5MA 위 가격 방어", "대량 음봉에도 종가가 5일선 위 유지"},
	{"패턴 3", "엔벨로프(20,40) 돌파 후 7/15MA 지지", "돌파→눌림→지지 확인 후 종가 접근"},
}

// PatternsMarkdown renders the reference card as markdown.
func PatternsMarkdown() string {
	var b bytes.Buffer
	b.WriteString("# 종가 패턴\n\n")
	for _, p := range Patterns {
		b.WriteString("## " + p.Label + "\n\n")
		b.WriteString("**" + p.Title + "**\n\n")
		b.WriteString(p.Summary + "\n\n")
	}
	return b.String()
}

// PatternsHTML renders the reference card as an HTML fragment.
func PatternsHTML() (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(PatternsMarkdown()), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// renderMarkdown styles markdown for the terminal. Without color the
// plain notty style is used.
func renderMarkdown(md string, color bool) (string, error) {
	style := "notty"
	if color {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
