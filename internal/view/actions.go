package view

import (
	"context"
	"sort"

	"closing-journal/internal/errors"
	"closing-journal/internal/journal"
	"closing-journal/internal/models"
)

// Action identifiers bound by NewActions.
const (
	ActionAutoSave      = "auto.save"
	ActionAutoCopy      = "auto.copy"
	ActionTodayCopy     = "today.copy"
	ActionTodayDelete   = "today.delete"
	ActionTodayPromote  = "today.promote"
	ActionJournalCopy   = "journal.copy"
	ActionJournalDelete = "journal.delete"
)

// Confirmation prompts.
const (
	PromptDelete   = "삭제할까요?"
	PromptClearAll = "모든 로컬 데이터를 삭제할까요? (복구 불가)"
)

// Result is what an action hands back: text to copy, a record created, a
// trade draft to prefill, and the state to render next.
type Result struct {
	State     State              `json:"state"`
	Text      string             `json:"text,omitempty"`
	Candidate *models.Candidate  `json:"candidate,omitempty"`
	Draft     *models.TradeDraft `json:"draft,omitempty"`
}

// Handler runs one action on the record (or report code) id.
type Handler func(ctx context.Context, st State, id string) (Result, error)

// Confirm asks the user a yes/no question.
type Confirm func(prompt string) bool

// Actions maps action identifiers to handlers. It is built once.
type Actions struct {
	handlers map[string]Handler
}

// NewActions binds every panel action. confirm guards destructive ones.
func NewActions(svc *journal.Service, reports ReportSource, confirm Confirm) *Actions {
	if confirm == nil {
		confirm = func(string) bool { return false }
	}

	reportItem := func(ctx context.Context, code string) (*models.Report, models.ReportCandidate, error) {
		rep, err := reports.Fetch(ctx, false)
		if err != nil {
			return nil, models.ReportCandidate{}, err
		}
		it, ok := rep.Find(code)
		if !ok {
			return nil, models.ReportCandidate{}, errors.Wrapf(errors.ErrNotFound, "report candidate %s", code)
		}
		return rep, it, nil
	}

	a := &Actions{handlers: map[string]Handler{
		ActionAutoSave: func(ctx context.Context, st State, code string) (Result, error) {
			_, it, err := reportItem(ctx, code)
			if err != nil {
				return Result{State: st}, err
			}
			c, err := svc.SaveReportCandidate(ctx, st.Date, it)
			if err != nil {
				return Result{State: st}, err
			}
			return Result{State: st, Candidate: c}, nil
		},
		ActionAutoCopy: func(ctx context.Context, st State, code string) (Result, error) {
			rep, it, err := reportItem(ctx, code)
			if err != nil {
				return Result{State: st}, err
			}
			return Result{State: st, Text: journal.ReportSummary(rep.Date, it)}, nil
		},
		ActionTodayCopy: func(ctx context.Context, st State, id string) (Result, error) {
			c, err := svc.Candidate(ctx, id)
			if err != nil {
				return Result{State: st}, err
			}
			return Result{State: st, Text: journal.CandidateSummary(*c)}, nil
		},
		ActionTodayDelete: func(ctx context.Context, st State, id string) (Result, error) {
			if _, err := svc.Candidate(ctx, id); err != nil {
				return Result{State: st}, err
			}
			if !confirm(PromptDelete) {
				return Result{State: st}, errors.ErrNotConfirmed
			}
			return Result{State: st}, svc.DeleteCandidate(ctx, id)
		},
		ActionTodayPromote: func(ctx context.Context, st State, id string) (Result, error) {
			draft, err := svc.PromoteToTrade(ctx, id)
			if err != nil {
				return Result{State: st}, err
			}
			next := st
			next.Tab = models.TabJournal
			return Result{State: next, Draft: draft}, nil
		},
		ActionJournalCopy: func(ctx context.Context, st State, id string) (Result, error) {
			t, err := svc.Trade(ctx, id)
			if err != nil {
				return Result{State: st}, err
			}
			return Result{State: st, Text: journal.TradeSummary(*t)}, nil
		},
		ActionJournalDelete: func(ctx context.Context, st State, id string) (Result, error) {
			if _, err := svc.Trade(ctx, id); err != nil {
				return Result{State: st}, err
			}
			if !confirm(PromptDelete) {
				return Result{State: st}, errors.ErrNotConfirmed
			}
			return Result{State: st}, svc.DeleteTrade(ctx, id)
		},
	}}
	return a
}

// Dispatch runs the action called name.
func (a *Actions) Dispatch(ctx context.Context, name string, st State, id string) (Result, error) {
	h, ok := a.handlers[name]
	if !ok {
		return Result{State: st}, errors.NewValidationError("action", name, "unknown action")
	}
	return h(ctx, st, id)
}

// Names lists the bound action identifiers.
func (a *Actions) Names() []string {
	names := make([]string, 0, len(a.handlers))
	for name := range a.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
