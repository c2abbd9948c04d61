package store

import (
	"fmt"

	"github.com/and161185/feedlog/internal/errs"
	"github.com/and161185/feedlog/internal/model"
)

// Validate reports why a must be rejected against s, or nil if it may be applied.
// Errors wrap the sentinels in errs. DeleteFeedingEntry and unknown actions are
// always accepted.
func Validate(s model.AppState, a Action) error {
	switch a := a.(type) {
	case SetUser:
		if a.User == nil {
			if s.SelectedChild != nil {
				return fmt.Errorf("%w: clear the selected child before signing out", errs.ErrValidation)
			}
			return nil
		}
		return validateUser(*a.User)
	case UpdateUser:
		if s.CurrentUser == nil {
			return errs.ErrNoSession
		}
		if a.User.ID != s.CurrentUser.ID {
			return fmt.Errorf("%w: user id %q is not the current user", errs.ErrValidation, a.User.ID)
		}
		return validateUser(a.User)
	case AddChild:
		if err := validateChild(a.Child); err != nil {
			return err
		}
		if _, ok := s.FindChild(a.Child.ID); ok {
			return fmt.Errorf("child %q: %w", a.Child.ID, errs.ErrAlreadyExists)
		}
		return nil
	case UpdateChild:
		if _, ok := s.FindChild(a.Child.ID); !ok {
			return fmt.Errorf("child %q: %w", a.Child.ID, errs.ErrNotFound)
		}
		return validateChild(a.Child)
	case SelectChild:
		if a.Child == nil {
			return nil
		}
		return validateSelection(s.CurrentUser, s.Children, *a.Child)
	case AddFeedingEntry:
		if _, ok := s.FindEntry(a.Entry.ID); ok {
			return fmt.Errorf("entry %q: %w", a.Entry.ID, errs.ErrAlreadyExists)
		}
		return validateEntry(s, a.Entry)
	case UpdateFeedingEntry:
		if _, ok := s.FindEntry(a.Entry.ID); !ok {
			return fmt.Errorf("entry %q: %w", a.Entry.ID, errs.ErrNotFound)
		}
		return validateEntry(s, a.Entry)
	case LoadData:
		return validateSnapshot(a.State)
	}
	return nil
}

func validateUser(u model.User) error {
	if u.ID == "" {
		return fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	return nil
}

func validateChild(c model.Child) error {
	if c.ID == "" {
		return fmt.Errorf("%w: empty child id", errs.ErrValidation)
	}
	if len(c.ParentIDs) == 0 {
		return fmt.Errorf("child %q: %w", c.ID, errs.ErrLastParent)
	}
	return nil
}

func validateSelection(user *model.User, children []model.Child, c model.Child) error {
	if user == nil {
		return errs.ErrNoSession
	}
	if err := validateMember(children, c); err != nil {
		return err
	}
	if !c.HasParent(user.ID) {
		return fmt.Errorf("child %q: %w", c.ID, errs.ErrUnauthorized)
	}
	return nil
}

func validateMember(children []model.Child, c model.Child) error {
	for _, x := range children {
		if x.ID != c.ID {
			continue
		}
		if !x.Equal(c) {
			return fmt.Errorf("%w: selected child %q is stale", errs.ErrValidation, c.ID)
		}
		return nil
	}
	return fmt.Errorf("child %q: %w", c.ID, errs.ErrNotFound)
}

func validateEntry(s model.AppState, e model.FeedingEntry) error {
	if e.ID == "" {
		return fmt.Errorf("%w: empty entry id", errs.ErrValidation)
	}
	if _, ok := s.FindChild(e.ChildID); !ok {
		return fmt.Errorf("entry %q references child %q: %w", e.ID, e.ChildID, errs.ErrNotFound)
	}
	return validateShape(e)
}

func validateShape(e model.FeedingEntry) error {
	if _, err := model.ParseClock(e.Time); err != nil {
		return fmt.Errorf("%w: entry %q: %v", errs.ErrValidation, e.ID, err)
	}
	if e.Date.IsZero() {
		return fmt.Errorf("%w: entry %q has no date", errs.ErrValidation, e.ID)
	}
	switch e.FeedingType {
	case model.Bottle:
		if e.LeftBreastMinutes != nil || e.RightBreastMinutes != nil {
			return fmt.Errorf("%w: bottle entry %q carries breast minutes", errs.ErrValidation, e.ID)
		}
	case model.Breast:
		if e.AmountMl != nil {
			return fmt.Errorf("%w: breast entry %q carries an amount", errs.ErrValidation, e.ID)
		}
	default:
		return fmt.Errorf("%w: entry %q has feeding type %q", errs.ErrValidation, e.ID, e.FeedingType)
	}
	for _, v := range []*int{e.AmountMl, e.LeftBreastMinutes, e.RightBreastMinutes} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%w: entry %q has a negative measurement", errs.ErrValidation, e.ID)
		}
	}
	return nil
}

func validateSnapshot(s model.AppState) error {
	if s.CurrentUser == nil && s.SelectedChild != nil {
		return fmt.Errorf("%w: snapshot selects a child without a user", errs.ErrValidation)
	}
	if s.CurrentUser != nil {
		if err := validateUser(*s.CurrentUser); err != nil {
			return err
		}
	}
	seen := make(map[string]struct{}, len(s.Children))
	for _, c := range s.Children {
		if err := validateChild(c); err != nil {
			return err
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("child %q: %w", c.ID, errs.ErrAlreadyExists)
		}
		seen[c.ID] = struct{}{}
	}
	// Access is not re-checked here: a parent may have left a child while it was selected.
	if s.SelectedChild != nil {
		if err := validateMember(s.Children, *s.SelectedChild); err != nil {
			return err
		}
	}
	return nil
}
