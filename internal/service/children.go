package service

import (
	"fmt"
	"slices"
	"strings"

	"github.com/and161185/feedlog/internal/errs"
	"github.com/and161185/feedlog/internal/model"
	"github.com/and161185/feedlog/internal/store"
	"github.com/and161185/feedlog/internal/view"
)

func (t *TrackerImpl) Children() ([]model.Child, error) {
	s := t.st.State()
	u, err := t.session(s)
	if err != nil {
		return nil, err
	}
	return view.AccessibleChildren(s, u.ID), nil
}

func (t *TrackerImpl) AddChild(name string, dob model.Date) (model.Child, error) {
	u, err := t.session(t.st.State())
	if err != nil {
		return model.Child{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" || dob.IsZero() {
		return model.Child{}, fmt.Errorf("%w: name and date of birth are required", errs.ErrValidation)
	}
	id, err := t.newID()
	if err != nil {
		return model.Child{}, err
	}
	c := model.Child{
		ID:          id,
		Name:        name,
		DateOfBirth: dob,
		ParentIDs:   []string{u.ID},
		CreatedAt:   t.now(),
	}
	if err := t.st.Dispatch(store.AddChild{Child: c}); err != nil {
		return model.Child{}, err
	}
	return c, nil
}

// accessible returns childID if the signed-in user is one of its parents.
func (t *TrackerImpl) accessible(s model.AppState, childID string) (model.User, model.Child, error) {
	u, err := t.session(s)
	if err != nil {
		return model.User{}, model.Child{}, err
	}
	c, ok := s.FindChild(childID)
	if !ok {
		return model.User{}, model.Child{}, fmt.Errorf("child %q: %w", childID, errs.ErrNotFound)
	}
	if !c.HasParent(u.ID) {
		return model.User{}, model.Child{}, fmt.Errorf("child %q: %w", childID, errs.ErrUnauthorized)
	}
	return u, c.Clone(), nil
}

// UpdateChildProfile edits the profile; empty name or zero date keep the current value.
func (t *TrackerImpl) UpdateChildProfile(childID, name string, dob model.Date) (model.Child, error) {
	_, c, err := t.accessible(t.st.State(), childID)
	if err != nil {
		return model.Child{}, err
	}
	if v := strings.TrimSpace(name); v != "" {
		c.Name = v
	}
	if !dob.IsZero() {
		c.DateOfBirth = dob
	}
	if err := t.st.Dispatch(store.UpdateChild{Child: c}); err != nil {
		return model.Child{}, err
	}
	return c, nil
}

// InviteParent has no account directory to look email up in, so it mints a
// placeholder user and links its id.
func (t *TrackerImpl) InviteParent(childID, email string) (model.User, error) {
	_, c, err := t.accessible(t.st.State(), childID)
	if err != nil {
		return model.User{}, err
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return model.User{}, fmt.Errorf("%w: email is required", errs.ErrValidation)
	}
	id, err := t.newID()
	if err != nil {
		return model.User{}, err
	}
	invited := model.User{ID: id, Email: email, Name: localPart(email), CreatedAt: t.now()}
	c.ParentIDs = append(c.ParentIDs, id)
	if err := t.st.Dispatch(store.UpdateChild{Child: c}); err != nil {
		return model.User{}, err
	}
	return invited, nil
}

// RemoveParent refuses to leave a child without parents. When the signed-in
// user removes themselves from the selected child, the selection is cleared.
func (t *TrackerImpl) RemoveParent(childID, parentID string) (model.Child, error) {
	s := t.st.State()
	u, c, err := t.accessible(s, childID)
	if err != nil {
		return model.Child{}, err
	}
	if !c.HasParent(parentID) {
		return model.Child{}, fmt.Errorf("parent %q of child %q: %w", parentID, childID, errs.ErrNotFound)
	}
	if len(c.ParentIDs) <= 1 {
		return model.Child{}, errs.ErrLastParent
	}
	c.ParentIDs = slices.DeleteFunc(c.ParentIDs, func(id string) bool { return id == parentID })
	if err := t.st.Dispatch(store.UpdateChild{Child: c}); err != nil {
		return model.Child{}, err
	}
	if parentID == u.ID && s.SelectedChild != nil && s.SelectedChild.ID == childID {
		if err := t.st.Dispatch(store.SelectChild{}); err != nil {
			return model.Child{}, err
		}
	}
	return c, nil
}

func (t *TrackerImpl) SelectChild(childID string) (model.Child, error) {
	_, c, err := t.accessible(t.st.State(), childID)
	if err != nil {
		return model.Child{}, err
	}
	if err := t.st.Dispatch(store.SelectChild{Child: &c}); err != nil {
		return model.Child{}, err
	}
	return c, nil
}

func (t *TrackerImpl) SelectedChild() (model.Child, error) {
	s := t.st.State()
	if _, err := t.session(s); err != nil {
		return model.Child{}, err
	}
	if s.SelectedChild == nil {
		return model.Child{}, fmt.Errorf("%w: no child selected", errs.ErrNoSession)
	}
	return s.SelectedChild.Clone(), nil
}

func (t *TrackerImpl) ClearSelection() error {
	return t.st.Dispatch(store.SelectChild{})
}
