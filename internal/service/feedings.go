package service

import (
	"fmt"
	"strings"

	"github.com/and161185/feedlog/internal/errs"
	"github.com/and161185/feedlog/internal/model"
	"github.com/and161185/feedlog/internal/store"
	"github.com/and161185/feedlog/internal/view"
)

// FeedingInput is what the feeding form collects. Measurements that do not
// apply to Type, or are not positive, are dropped.
type FeedingInput struct {
	Date         model.Date // zero means today (or unchanged when editing)
	Time         string     // "HH:MM"; empty means now (or unchanged when editing)
	Type         model.FeedingType
	AmountMl     int
	LeftMinutes  int
	RightMinutes int
	Notes        string
	SpitUp       bool
	Peed         bool
	Pooped       bool
}

// FromEntry pre-fills an input from an existing entry, as the edit form does.
func FromEntry(e model.FeedingEntry) FeedingInput {
	in := FeedingInput{
		Date:   e.Date,
		Time:   e.Time,
		Type:   e.FeedingType,
		Notes:  e.Notes,
		SpitUp: e.SpitUp,
		Peed:   e.Peed,
		Pooped: e.Pooped,
	}
	if e.AmountMl != nil {
		in.AmountMl = *e.AmountMl
	}
	if e.LeftBreastMinutes != nil {
		in.LeftMinutes = *e.LeftBreastMinutes
	}
	if e.RightBreastMinutes != nil {
		in.RightMinutes = *e.RightBreastMinutes
	}
	return in
}

// active returns the signed-in user and selected child.
func (t *TrackerImpl) active(s model.AppState) (model.User, model.Child, error) {
	u, err := t.session(s)
	if err != nil {
		return model.User{}, model.Child{}, err
	}
	if s.SelectedChild == nil {
		return model.User{}, model.Child{}, fmt.Errorf("%w: no child selected", errs.ErrNoSession)
	}
	return u, *s.SelectedChild, nil
}

// shape turns form input into the measurement part of an entry.
func shape(e *model.FeedingEntry, in FeedingInput) error {
	if !in.Type.Valid() {
		return fmt.Errorf("%w: feeding type %q", errs.ErrValidation, in.Type)
	}
	if _, err := model.ParseClock(in.Time); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	if in.AmountMl < 0 || in.LeftMinutes < 0 || in.RightMinutes < 0 {
		return fmt.Errorf("%w: measurements cannot be negative", errs.ErrValidation)
	}
	e.Date = in.Date
	e.Time = in.Time
	e.FeedingType = in.Type
	e.AmountMl, e.LeftBreastMinutes, e.RightBreastMinutes = nil, nil, nil
	switch in.Type {
	case model.Bottle:
		if in.AmountMl > 0 {
			e.AmountMl = model.Ptr(in.AmountMl)
		}
	case model.Breast:
		if in.LeftMinutes > 0 {
			e.LeftBreastMinutes = model.Ptr(in.LeftMinutes)
		}
		if in.RightMinutes > 0 {
			e.RightBreastMinutes = model.Ptr(in.RightMinutes)
		}
	}
	e.Notes = strings.TrimSpace(in.Notes)
	e.SpitUp, e.Peed, e.Pooped = in.SpitUp, in.Peed, in.Pooped
	return nil
}

func (t *TrackerImpl) RecordFeeding(in FeedingInput) (model.FeedingEntry, error) {
	u, c, err := t.active(t.st.State())
	if err != nil {
		return model.FeedingEntry{}, err
	}
	now := t.now()
	if in.Date.IsZero() {
		in.Date = view.CurrentDate(now)
	}
	if in.Time == "" {
		in.Time = view.CurrentTime(now)
	}
	id, err := t.newID()
	if err != nil {
		return model.FeedingEntry{}, err
	}
	e := model.FeedingEntry{ID: id, ChildID: c.ID, UserID: u.ID, CreatedAt: now}
	if err := shape(&e, in); err != nil {
		return model.FeedingEntry{}, err
	}
	if err := t.st.Dispatch(store.AddFeedingEntry{Entry: e}); err != nil {
		return model.FeedingEntry{}, err
	}
	return e, nil
}

// EditFeeding re-stamps the author with the signed-in user.
func (t *TrackerImpl) EditFeeding(id string, in FeedingInput) (model.FeedingEntry, error) {
	s := t.st.State()
	u, c, err := t.active(s)
	if err != nil {
		return model.FeedingEntry{}, err
	}
	old, ok := s.FindEntry(id)
	if !ok || old.ChildID != c.ID {
		return model.FeedingEntry{}, fmt.Errorf("entry %q: %w", id, errs.ErrNotFound)
	}
	if in.Date.IsZero() {
		in.Date = old.Date
	}
	if in.Time == "" {
		in.Time = old.Time
	}
	e := model.FeedingEntry{ID: old.ID, ChildID: c.ID, UserID: u.ID, CreatedAt: old.CreatedAt}
	if err := shape(&e, in); err != nil {
		return model.FeedingEntry{}, err
	}
	if err := t.st.Dispatch(store.UpdateFeedingEntry{Entry: e}); err != nil {
		return model.FeedingEntry{}, err
	}
	return e, nil
}

// DeleteFeeding refuses entries of children the user cannot access.
func (t *TrackerImpl) DeleteFeeding(id string) error {
	s := t.st.State()
	u, err := t.session(s)
	if err != nil {
		return err
	}
	if e, ok := s.FindEntry(id); ok {
		if c, found := s.FindChild(e.ChildID); found && !c.HasParent(u.ID) {
			return fmt.Errorf("entry %q: %w", id, errs.ErrUnauthorized)
		}
	}
	return t.st.Dispatch(store.DeleteFeedingEntry{ID: id})
}

func (t *TrackerImpl) Feedings(filter string) ([]model.FeedingEntry, error) {
	s := t.st.State()
	_, c, err := t.active(s)
	if err != nil {
		return nil, err
	}
	f, err := view.ParseFilter(filter)
	if err != nil {
		return nil, err
	}
	return view.Feedings(s, c.ID, f), nil
}
