// Package journal implements the controller actions behind each panel:
// candidates, trades, statistics and bulk export/import.
package journal

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"closing-journal/internal/errors"
	"closing-journal/internal/logging"
	"closing-journal/internal/models"
	"closing-journal/internal/store"
	"closing-journal/pkg/utils"
)

// Service wires user actions to the store.
type Service struct {
	store  store.KVStore
	logger zerolog.Logger
	clock  func() time.Time
	newID  func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for createdAt and exports.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService creates a journal service over kv.
func NewService(kv store.KVStore, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  kv,
		logger: logger,
		clock:  time.Now,
		newID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ============================================================================
// Candidates
// ============================================================================

// CandidateInput is the add-candidate form.
type CandidateInput struct {
	Date      string
	Symbol    string
	Name      string
	Theme     string
	NewsTier  string
	Pattern   string
	Notes     string
	Checklist models.Checklist
}

// AddCandidate validates and stores a new candidate for in.Date.
func (s *Service) AddCandidate(ctx context.Context, in CandidateInput) (*models.Candidate, error) {
	symbol := strings.TrimSpace(in.Symbol)
	if symbol == "" {
		return nil, errors.NewValidationError("symbol", in.Symbol, "종목코드를 입력해주세요")
	}

	c := &models.Candidate{
		ID:        s.newID(),
		Date:      in.Date,
		Symbol:    symbol,
		Name:      strings.TrimSpace(in.Name),
		Theme:     strings.TrimSpace(in.Theme),
		NewsTier:  in.NewsTier,
		Pattern:   in.Pattern,
		Notes:     strings.TrimSpace(in.Notes),
		Checklist: in.Checklist,
		CreatedAt: models.NowMillis(s.clock()),
	}
	if err := s.put(ctx, store.Candidates, c); err != nil {
		return nil, err
	}
	logging.LogCandidate(s.logger, "created", c.ID, c.Date, c.Symbol)
	return c, nil
}

// SaveReportCandidate stores an auto-report item as a candidate for date
// with the default classification and a summary note.
func (s *Service) SaveReportCandidate(ctx context.Context, date string, item models.ReportCandidate) (*models.Candidate, error) {
	c := &models.Candidate{
		ID:       s.newID(),
		Date:     date,
		Symbol:   item.Code,
		Name:     item.Name,
		NewsTier: models.DefaultNewsTier,
		Pattern:  models.DefaultPattern,
		Notes: "자동후보 Score:" + utils.FormatOptional(item.LeaderScore) +
			" 거래대금rank:" + formatRank(item.AmountRank) +
			" 외국인상위:" + utils.YesDash(item.ForeignTop),
		Checklist: models.Checklist{Liquidity: true, Leader: true},
		CreatedAt: models.NowMillis(s.clock()),
	}
	if err := s.put(ctx, store.Candidates, c); err != nil {
		return nil, err
	}
	logging.LogCandidate(s.logger, "saved from report", c.ID, c.Date, c.Symbol)
	return c, nil
}

// Candidate returns the candidate with id, or ErrNotFound.
func (s *Service) Candidate(ctx context.Context, id string) (*models.Candidate, error) {
	var c models.Candidate
	if err := s.get(ctx, store.Candidates, id, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// CandidatesForDate lists the candidates for date, newest first.
func (s *Service) CandidatesForDate(ctx context.Context, date string) ([]models.Candidate, error) {
	docs, err := s.store.ListByIndex(ctx, store.Candidates, store.ByDate, date)
	if err != nil {
		return nil, errors.NewStorageError(store.Candidates, "list", err)
	}
	items := decodeAll[models.Candidate](s.logger, store.Candidates, docs)
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt > items[j].CreatedAt })
	return items, nil
}

// DeleteCandidate removes a candidate. Deleting an unknown id succeeds.
func (s *Service) DeleteCandidate(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, store.Candidates, id); err != nil {
		return errors.NewStorageError(store.Candidates, "delete", err)
	}
	logging.LogCandidate(s.logger, "deleted", id, "", "")
	return nil
}

// PromoteToTrade builds the add-trade form prefill for a candidate. Prices
// are left for manual entry.
func (s *Service) PromoteToTrade(ctx context.Context, id string) (*models.TradeDraft, error) {
	c, err := s.Candidate(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.TradeDraft{
		Date:   c.Date,
		Symbol: c.Symbol,
		Name:   c.Name,
		Plan:   PlanText(*c),
	}, nil
}

// ============================================================================
// Trades
// ============================================================================

// TradeInput is the add-trade form. Prices arrive as typed text.
type TradeInput struct {
	Date   string
	Symbol string
	Name   string
	Entry  string
	Exit   string
	Qty    string
	Plan   string
	Result string
}

// AddTrade validates and stores a trade. pnl is computed here once and
// never recomputed. defaultDate is used when in.Date is blank.
func (s *Service) AddTrade(ctx context.Context, in TradeInput, defaultDate string) (*models.Trade, error) {
	symbol := strings.TrimSpace(in.Symbol)
	if symbol == "" {
		return nil, errors.NewValidationError("symbol", in.Symbol, "종목코드를 입력해주세요")
	}

	date := strings.TrimSpace(in.Date)
	if date == "" {
		date = defaultDate
	}

	entry := ParsePrice(in.Entry)
	exit := ParsePrice(in.Exit)
	qty := 0.0
	if q := ParsePrice(in.Qty); q != nil {
		qty = *q
	}

	t := &models.Trade{
		ID:        s.newID(),
		Date:      date,
		Symbol:    symbol,
		Name:      strings.TrimSpace(in.Name),
		Entry:     entry,
		Exit:      exit,
		Qty:       qty,
		PnL:       models.ComputePnL(entry, exit),
		Plan:      strings.TrimSpace(in.Plan),
		Result:    strings.TrimSpace(in.Result),
		CreatedAt: models.NowMillis(s.clock()),
	}
	if err := s.put(ctx, store.Trades, t); err != nil {
		return nil, err
	}
	logging.LogTrade(s.logger, "created", t.ID, t.Symbol, t.PnL)
	return t, nil
}

// Trade returns the trade with id, or ErrNotFound.
func (s *Service) Trade(ctx context.Context, id string) (*models.Trade, error) {
	var t models.Trade
	if err := s.get(ctx, store.Trades, id, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Trades lists every trade, newest first.
func (s *Service) Trades(ctx context.Context) ([]models.Trade, error) {
	items, err := s.tradesInStoreOrder(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt > items[j].CreatedAt })
	return items, nil
}

// TradesBySymbol lists the trades of one symbol, newest first.
func (s *Service) TradesBySymbol(ctx context.Context, symbol string) ([]models.Trade, error) {
	docs, err := s.store.ListByIndex(ctx, store.Trades, store.BySymbol, symbol)
	if err != nil {
		return nil, errors.NewStorageError(store.Trades, "list", err)
	}
	items := decodeAll[models.Trade](s.logger, store.Trades, docs)
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt > items[j].CreatedAt })
	return items, nil
}

// DeleteTrade removes a trade. Deleting an unknown id succeeds.
func (s *Service) DeleteTrade(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, store.Trades, id); err != nil {
		return errors.NewStorageError(store.Trades, "delete", err)
	}
	logging.LogTrade(s.logger, "deleted", id, "", nil)
	return nil
}

func (s *Service) tradesInStoreOrder(ctx context.Context) ([]models.Trade, error) {
	docs, err := s.store.ListAll(ctx, store.Trades)
	if err != nil {
		return nil, errors.NewStorageError(store.Trades, "list", err)
	}
	return decodeAll[models.Trade](s.logger, store.Trades, docs), nil
}

// ParsePrice reads a typed number. Blank, non-numeric or non-finite text
// ("NaN", "Inf") yields nil.
func ParsePrice(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ============================================================================
// Helpers
// ============================================================================

func (s *Service) put(ctx context.Context, collection string, record any) error {
	if err := s.store.Put(ctx, collection, record); err != nil {
		return errors.NewStorageError(collection, "put", err)
	}
	return nil
}

func (s *Service) get(ctx context.Context, collection, id string, dst any) error {
	doc, err := s.store.Get(ctx, collection, id)
	if err != nil {
		return errors.NewStorageError(collection, "get", err)
	}
	if doc == nil {
		return errors.Wrapf(errors.ErrNotFound, "%s %s", collection, id)
	}
	if err := json.Unmarshal(doc, dst); err != nil {
		return errors.Wrapf(err, "decoding %s %s", collection, id)
	}
	return nil
}

// decodeAll decodes documents, skipping (and logging) ones whose shape does
// not fit the record type, e.g. hand-edited imports.
func decodeAll[T any](logger zerolog.Logger, collection string, docs []json.RawMessage) []T {
	items := make([]T, 0, len(docs))
	log := logging.WithCollection(logger, collection)
	for _, doc := range docs {
		var item T
		if err := json.Unmarshal(doc, &item); err != nil {
			log.Warn().Err(err).Msg("Skipping malformed record")
			continue
		}
		items = append(items, item)
	}
	return items
}

func formatRank(rank *int) string {
	if rank == nil {
		return utils.Placeholder
	}
	return strconv.Itoa(*rank)
}
