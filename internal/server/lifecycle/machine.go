// Package lifecycle is the account state machine. Every operation that
// touches an account asks the machine whether its action is allowed from the
// account's current status and which status results.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Action is an operation applied to an account.
type Action string

const (
	ActionVerify         Action = "verify"
	ActionAuthenticate   Action = "authenticate"
	ActionUpdateProfile  Action = "update_profile"
	ActionChangePassword Action = "change_password"
	ActionResetPassword  Action = "reset_password"
	ActionDelete         Action = "delete"
)

// ErrTerminalState is returned for any action on a deleted account.
var ErrTerminalState = fmt.Errorf("%w: account is deleted", common.ErrPreconditionFailed)

// transitions lists the allowed status changes.
var transitions = map[models.Status]map[models.Status]struct{}{
	models.StatusPending: {
		models.StatusActive:  {},
		models.StatusDeleted: {},
	},
	models.StatusActive: {
		models.StatusActive:  {},
		models.StatusDeleted: {},
	},
	models.StatusDeleted: {},
}

// actions maps (from, action) to the resulting status.
var actions = map[models.Status]map[Action]models.Status{
	models.StatusPending: {
		ActionVerify: models.StatusActive,
		ActionDelete: models.StatusDeleted,
	},
	models.StatusActive: {
		ActionAuthenticate:   models.StatusActive,
		ActionUpdateProfile:  models.StatusActive,
		ActionChangePassword: models.StatusActive,
		ActionResetPassword:  models.StatusActive,
		ActionDelete:         models.StatusDeleted,
	},
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to models.Status) bool {
	targets, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

// Transition records an applied state change.
type Transition struct {
	AccountID int64
	Action    Action
	From      models.Status
	To        models.Status
	At        time.Time
}

// Machine applies actions to accounts.
type Machine struct {
	logger logging.Logger
	now    func() time.Time
}

type Option func(*Machine)

// WithClock injects a clock (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

func New(logger logging.Logger, opts ...Option) *Machine {
	m := &Machine{logger: logger.With("module", "lifecycle"), now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Target returns the status that action leads to from status from.
// Authenticating a non-active account yields common.ErrAccountNotActive;
// any other disallowed pair yields common.ErrPreconditionFailed.
func (m *Machine) Target(from models.Status, action Action) (models.Status, error) {
	if action == ActionAuthenticate && from != models.StatusActive {
		return "", common.ErrAccountNotActive
	}
	if from == models.StatusDeleted {
		return "", ErrTerminalState
	}
	byAction, ok := actions[from]
	if !ok {
		return "", fmt.Errorf("%w: unknown status %q", common.ErrPreconditionFailed, from)
	}
	to, ok := byAction[action]
	if !ok || !CanTransition(from, to) {
		return "", fmt.Errorf("%w: %s not allowed from %s", common.ErrPreconditionFailed, action, from)
	}
	return to, nil
}

// Permit checks that action is allowed without applying it.
func (m *Machine) Permit(from models.Status, action Action) error {
	_, err := m.Target(from, action)
	return err
}

// Apply moves account to the status action leads to. The account is only
// mutated on success; persisting it is the caller's job.
func (m *Machine) Apply(ctx context.Context, account *models.Account, action Action) (Transition, error) {
	from := account.Status
	to, err := m.Target(from, action)
	if err != nil {
		if !errors.Is(err, common.ErrAccountNotActive) {
			m.logger.Warn(ctx, "transition rejected", "account_id", account.ID, "action", action, "from", from)
		}
		return Transition{}, err
	}

	account.Status = to
	tr := Transition{AccountID: account.ID, Action: action, From: from, To: to, At: m.now()}

	if from != to {
		m.logger.Info(ctx, "account transition", "account_id", account.ID, "action", action, "from", from, "to", to)
	}
	return tr, nil
}
