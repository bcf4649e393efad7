package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"closing-journal/internal/errors"
	"closing-journal/internal/journal"
	"closing-journal/internal/logging"
	"closing-journal/internal/models"
	"closing-journal/internal/resilience"
	"closing-journal/internal/store"
	"closing-journal/internal/view"
	"closing-journal/pkg/utils"
)

// priceField accepts a price typed either as a JSON number or a string.
type priceField string

func (p *priceField) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = priceField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = priceField(n.String())
	return nil
}

type candidateRequest struct {
	Date      string           `json:"date"`
	Symbol    string           `json:"symbol"`
	Name      string           `json:"name"`
	Theme     string           `json:"theme"`
	NewsTier  string           `json:"newsTier"`
	Pattern   string           `json:"pattern"`
	Notes     string           `json:"notes"`
	Checklist models.Checklist `json:"checklist"`
}

type tradeRequest struct {
	Date   string     `json:"date"`
	Symbol string     `json:"symbol"`
	Name   string     `json:"name"`
	Entry  priceField `json:"entry"`
	Exit   priceField `json:"exit"`
	Qty    priceField `json:"qty"`
	Plan   string     `json:"plan"`
	Result string     `json:"result"`
}

// HealthCheck handles GET /health requests
func (h *APIHandler) HealthCheck(c *gin.Context) {
	body := gin.H{
		"status":    "OK",
		"service":   ServiceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.opts.Version,
	}
	if guarded, ok := h.renderer.Reports.(circuitReporter); ok {
		body["report_circuit"] = guarded.Stats()
	}
	c.JSON(http.StatusOK, body)
}

// circuitReporter is implemented by report sources behind a circuit breaker.
type circuitReporter interface {
	Stats() resilience.CircuitBreakerStats
}

// ============================================================================
// Candidates
// ============================================================================

// ListCandidates handles GET /api/candidates?date=
func (h *APIHandler) ListCandidates(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	st, err := h.state(c, models.TabToday)
	if err != nil {
		h.handleError(c, err)
		return
	}
	items, err := h.journal.CandidatesForDate(ctx, st.Date)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, view.TodayPanel{Date: st.Date, Count: len(items), Candidates: items})
}

// AddCandidate handles POST /api/candidates
func (h *APIHandler) AddCandidate(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	var req candidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, errors.NewValidationError("body", "", err.Error()))
		return
	}
	if req.Date == "" {
		req.Date = h.today()
	}
	cand, err := h.journal.AddCandidate(ctx, journal.CandidateInput{
		Date:      req.Date,
		Symbol:    req.Symbol,
		Name:      req.Name,
		Theme:     req.Theme,
		NewsTier:  req.NewsTier,
		Pattern:   req.Pattern,
		Notes:     req.Notes,
		Checklist: req.Checklist,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cand)
}

// DeleteCandidate handles DELETE /api/candidates/:id
func (h *APIHandler) DeleteCandidate(c *gin.Context) {
	h.dispatch(c, view.ActionTodayDelete, models.TabToday, c.Param("id"))
}

// CandidateSummary handles GET /api/candidates/:id/summary
func (h *APIHandler) CandidateSummary(c *gin.Context) {
	h.dispatch(c, view.ActionTodayCopy, models.TabToday, c.Param("id"))
}

// PromoteCandidate handles POST /api/candidates/:id/promote
func (h *APIHandler) PromoteCandidate(c *gin.Context) {
	h.dispatch(c, view.ActionTodayPromote, models.TabToday, c.Param("id"))
}

// ============================================================================
// Trades
// ============================================================================

// ListTrades handles GET /api/trades
func (h *APIHandler) ListTrades(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	trades, err := h.journal.Trades(ctx)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, view.JournalPanel{Count: len(trades), Trades: trades})
}

// AddTrade handles POST /api/trades
func (h *APIHandler) AddTrade(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, errors.NewValidationError("body", "", err.Error()))
		return
	}
	tr, err := h.journal.AddTrade(ctx, journal.TradeInput{
		Date:   req.Date,
		Symbol: req.Symbol,
		Name:   req.Name,
		Entry:  string(req.Entry),
		Exit:   string(req.Exit),
		Qty:    string(req.Qty),
		Plan:   req.Plan,
		Result: req.Result,
	}, h.today())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tr)
}

// DeleteTrade handles DELETE /api/trades/:id
func (h *APIHandler) DeleteTrade(c *gin.Context) {
	h.dispatch(c, view.ActionJournalDelete, models.TabJournal, c.Param("id"))
}

// TradeSummary handles GET /api/trades/:id/summary
func (h *APIHandler) TradeSummary(c *gin.Context) {
	h.dispatch(c, view.ActionJournalCopy, models.TabJournal, c.Param("id"))
}

// Stats handles GET /api/stats
func (h *APIHandler) Stats(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	st, err := h.journal.Stats(ctx)
	if err != nil {
		h.handleError(c, err)
		return
	}
	rows := make(map[string]string)
	for _, row := range view.StatsRows(st) {
		rows[row[0]] = row[1]
	}
	c.JSON(http.StatusOK, gin.H{"stats": st, "display": rows, "note": view.StatsNote})
}

// ============================================================================
// Auto report
// ============================================================================

// Auto handles GET /api/auto?bust=1. Report failures are part of the
// payload, never an HTTP error.
func (h *APIHandler) Auto(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	bust, _ := strconv.ParseBool(c.DefaultQuery("bust", "0"))
	c.JSON(http.StatusOK, h.renderer.LoadAuto(ctx, bust))
}

// SaveAuto handles POST /api/auto/:code/save?date=
func (h *APIHandler) SaveAuto(c *gin.Context) {
	h.dispatch(c, view.ActionAutoSave, models.TabAuto, c.Param("code"))
}

// AutoSummary handles GET /api/auto/:code/summary
func (h *APIHandler) AutoSummary(c *gin.Context) {
	h.dispatch(c, view.ActionAutoCopy, models.TabAuto, c.Param("code"))
}

// ============================================================================
// Static panels
// ============================================================================

// Patterns handles GET /api/patterns
func (h *APIHandler) Patterns(c *gin.Context) {
	html, err := view.PatternsHTML()
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// Settings handles GET /api/settings
func (h *APIHandler) Settings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"help": view.SettingsHelp})
}

// ============================================================================
// Bulk
// ============================================================================

// Export handles GET /api/export
func (h *APIHandler) Export(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	var buf bytes.Buffer
	if err := h.journal.WriteExport(ctx, &buf); err != nil {
		h.handleError(c, err)
		return
	}
	name := journal.ExportFileName(h.opts.Now(), h.opts.Location)
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "application/json", buf.Bytes())
}

// Import handles POST /api/import
func (h *APIHandler) Import(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	res, err := h.journal.Import(ctx, c.Request.Body)
	if err != nil {
		var syntax *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntax) || errors.As(err, &typeErr) || errors.Is(err, store.ErrMissingKey) {
			err = errors.NewValidationError("body", "", err.Error())
		}
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "가져오기 완료", "result": res})
}

// Clear handles POST /api/clear?confirm=yes
func (h *APIHandler) Clear(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	if err := h.journal.ClearAll(ctx, c.Query("confirm") == "yes"); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ============================================================================
// Helpers
// ============================================================================

// dispatch runs a bound panel action and writes its result: copy text as
// text/plain, deletions as 204, everything else as JSON.
func (h *APIHandler) dispatch(c *gin.Context, action string, tab models.Tab, id string) {
	ctx, cancel := h.context(c)
	defer cancel()

	st, err := h.state(c, tab)
	if err != nil {
		h.handleError(c, err)
		return
	}
	res, err := h.actions.Dispatch(ctx, action, st, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	switch {
	case res.Text != "":
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(res.Text))
	case res.Candidate != nil:
		c.JSON(http.StatusCreated, res.Candidate)
	case res.Draft != nil:
		c.JSON(http.StatusOK, res)
	default:
		c.Status(http.StatusNoContent)
	}
}

func (h *APIHandler) state(c *gin.Context, tab models.Tab) (view.State, error) {
	st := view.State{Tab: tab, Date: h.today()}
	if date := c.Query("date"); date != "" {
		return st.WithDate(date)
	}
	return st, nil
}

func (h *APIHandler) today() string {
	return utils.Today(h.opts.Now(), h.opts.Location)
}

func (h *APIHandler) context(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), DefaultTimeout)
}

// handleError logs the error and maps it to an HTTP status.
func (h *APIHandler) handleError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"
	switch {
	case errors.Is(err, errors.ErrInvalidInput):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, errors.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, errors.ErrNotConfirmed):
		status, message = http.StatusPreconditionRequired, "confirmation required"
	case errors.Is(err, errors.ErrReportUnavailable):
		status, message = http.StatusBadGateway, err.Error()
	case errors.Is(err, resilience.ErrCircuitOpen):
		status, message = http.StatusServiceUnavailable, err.Error()
	}

	requestID := c.GetString(RequestIDContextKey)
	if requestID == "" {
		requestID = "unknown"
	}
	logger := logging.FromContext(c.Request.Context())
	logger.Error().
		Err(err).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Int("status_code", status).
		Msg("API error")

	c.JSON(status, gin.H{
		"error":      message,
		"request_id": requestID,
	})
}
