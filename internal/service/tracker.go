// Package service contains the tracker session: sign-in, account, children and
// feeding operations expressed as store actions.
package service

import (
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/feedlog/internal/errs"
	"github.com/and161185/feedlog/internal/model"
	"github.com/and161185/feedlog/internal/store"
)

// Store is the state container the tracker drives.
type Store interface {
	State() model.AppState
	Dispatch(store.Action) error
}

// Tracker is one caregiver session over the shared snapshot.
type Tracker interface {
	// SignIn starts a session for email. Credentials are not verified.
	SignIn(email, password string) (model.User, error)
	// SignUp starts a session for a new account; password must match confirm.
	SignUp(name, email, password, confirm string) (model.User, error)
	// Logout clears the selected child and then the user.
	Logout() error
	// CurrentUser returns the signed-in user or errs.ErrNoSession.
	CurrentUser() (model.User, error)
	// UpdateAccount changes name and/or email of the signed-in user.
	UpdateAccount(name, email string) (model.User, error)

	// Children lists the children the signed-in user is a parent of.
	Children() ([]model.Child, error)
	// AddChild creates a child with the signed-in user as its only parent.
	AddChild(name string, dob model.Date) (model.Child, error)
	// UpdateChildProfile edits name and/or date of birth.
	UpdateChildProfile(childID, name string, dob model.Date) (model.Child, error)
	// InviteParent adds a placeholder account for email as a parent.
	InviteParent(childID, email string) (model.User, error)
	// RemoveParent detaches parentID; the last parent cannot be removed.
	RemoveParent(childID, parentID string) (model.Child, error)
	// SelectChild makes childID the active child.
	SelectChild(childID string) (model.Child, error)
	// SelectedChild returns the active child or errs.ErrNoSession.
	SelectedChild() (model.Child, error)
	// ClearSelection returns to the children list.
	ClearSelection() error

	// RecordFeeding adds an entry for the selected child.
	RecordFeeding(in FeedingInput) (model.FeedingEntry, error)
	// EditFeeding replaces an entry of the selected child, keeping id and creation time.
	EditFeeding(id string, in FeedingInput) (model.FeedingEntry, error)
	// DeleteFeeding removes an entry; an unknown id is not an error.
	DeleteFeeding(id string) error
	// Feedings lists the selected child's entries, newest first.
	Feedings(filter string) ([]model.FeedingEntry, error)
}

type TrackerImpl struct {
	st    Store
	now   func() time.Time
	newID func() (string, error)
}

var _ Tracker = (*TrackerImpl)(nil)

// Option configures a TrackerImpl.
type Option func(*TrackerImpl)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(t *TrackerImpl) { t.now = now } }

// WithIDGenerator overrides UUIDv7 id generation.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(t *TrackerImpl) { t.newID = gen }
}

// NewTracker constructs a Tracker over st.
func NewTracker(st Store, opts ...Option) *TrackerImpl {
	t := &TrackerImpl{st: st, now: time.Now, newID: newUUID}
	for _, o := range opts {
		o(t)
	}
	return t
}

func newUUID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// session returns the signed-in user.
func (t *TrackerImpl) session(s model.AppState) (model.User, error) {
	if s.CurrentUser == nil {
		return model.User{}, errs.ErrNoSession
	}
	return *s.CurrentUser, nil
}

func localPart(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}
