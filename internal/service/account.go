package service

import (
	"fmt"
	"strings"

	"github.com/and161185/feedlog/internal/errs"
	"github.com/and161185/feedlog/internal/model"
	"github.com/and161185/feedlog/internal/store"
)

// SignIn builds a fresh user from email and stores it as the current user.
func (t *TrackerImpl) SignIn(email, password string) (model.User, error) {
	return t.begin("", email, password)
}

// SignUp is SignIn with a display name and a password confirmation.
func (t *TrackerImpl) SignUp(name, email, password, confirm string) (model.User, error) {
	if password != confirm {
		return model.User{}, errs.ErrPasswordMismatch
	}
	return t.begin(name, email, password)
}

func (t *TrackerImpl) begin(name, email, password string) (model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return model.User{}, fmt.Errorf("%w: email and password are required", errs.ErrValidation)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = localPart(email)
	}
	id, err := t.newID()
	if err != nil {
		return model.User{}, err
	}
	u := model.User{ID: id, Email: email, Name: name, CreatedAt: t.now()}

	// a selection left over from another account must not carry over
	if t.st.State().SelectedChild != nil {
		if err := t.st.Dispatch(store.SelectChild{}); err != nil {
			return model.User{}, err
		}
	}
	if err := t.st.Dispatch(store.SetUser{User: &u}); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// Logout deselects first so the store never holds a selection without a user.
func (t *TrackerImpl) Logout() error {
	if err := t.st.Dispatch(store.SelectChild{}); err != nil {
		return err
	}
	return t.st.Dispatch(store.SetUser{})
}

func (t *TrackerImpl) CurrentUser() (model.User, error) {
	return t.session(t.st.State())
}

// UpdateAccount replaces name and email; empty arguments keep the current value.
func (t *TrackerImpl) UpdateAccount(name, email string) (model.User, error) {
	u, err := t.session(t.st.State())
	if err != nil {
		return model.User{}, err
	}
	if v := strings.TrimSpace(name); v != "" {
		u.Name = v
	}
	if v := strings.TrimSpace(email); v != "" {
		u.Email = v
	}
	if err := t.st.Dispatch(store.UpdateUser{User: u}); err != nil {
		return model.User{}, err
	}
	return u, nil
}
