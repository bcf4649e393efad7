// Package view renders the six journal panels to a terminal and binds the
// per-item actions they offer.
package view

import (
	"time"

	"closing-journal/internal/errors"
	"closing-journal/internal/models"
	"closing-journal/pkg/utils"
)

// State is the view state of one render: the active panel and the selected
// calendar day. It is a value; transitions return a new State.
type State struct {
	Tab  models.Tab `json:"tab"`
	Date string     `json:"date"`
}

// NewState returns the initial state: the auto panel on today's date.
func NewState(now time.Time, loc *time.Location) State {
	return State{Tab: models.TabAuto, Date: utils.Today(now, loc)}
}

// WithTab switches panels.
func (s State) WithTab(tab models.Tab) (State, error) {
	if !tab.Valid() {
		return s, errors.NewValidationError("tab", string(tab), "unknown panel")
	}
	s.Tab = tab
	return s, nil
}

// WithDate selects another calendar day.
func (s State) WithDate(date string) (State, error) {
	if _, err := models.ParseDate(date); err != nil {
		return s, errors.NewValidationError("date", date, "expected YYYY-MM-DD")
	}
	s.Date = date
	return s, nil
}
