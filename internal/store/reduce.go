package store

import (
	"slices"

	"github.com/and161185/feedlog/internal/model"
)

// Reduce applies a to s and returns the next snapshot. It performs no validation
// (see Validate) and never modifies the slices of s, so earlier snapshots stay
// valid for observers. Unknown actions return s unchanged.
func Reduce(s model.AppState, a Action) model.AppState {
	switch a := a.(type) {
	case SetUser:
		s.CurrentUser = cloneUser(a.User)
	case UpdateUser:
		s.CurrentUser = cloneUser(&a.User)
	case AddChild:
		s.Children = appendCopy(s.Children, a.Child.Clone())
	case UpdateChild:
		c := a.Child.Clone()
		s.Children = replaceCopy(s.Children, c, func(x model.Child) bool { return x.ID == c.ID })
		if s.SelectedChild != nil && s.SelectedChild.ID == c.ID {
			sel := c.Clone()
			s.SelectedChild = &sel
		}
	case SelectChild:
		if a.Child == nil {
			s.SelectedChild = nil
		} else {
			sel := a.Child.Clone()
			s.SelectedChild = &sel
		}
	case AddFeedingEntry:
		s.FeedingEntries = appendCopy(s.FeedingEntries, a.Entry.Clone())
	case UpdateFeedingEntry:
		e := a.Entry.Clone()
		s.FeedingEntries = replaceCopy(s.FeedingEntries, e, func(x model.FeedingEntry) bool { return x.ID == e.ID })
	case DeleteFeedingEntry:
		if slices.ContainsFunc(s.FeedingEntries, func(x model.FeedingEntry) bool { return x.ID == a.ID }) {
			s.FeedingEntries = slices.DeleteFunc(slices.Clone(s.FeedingEntries), func(x model.FeedingEntry) bool { return x.ID == a.ID })
		}
	case LoadData:
		return normalize(a.State)
	}
	return s
}

func cloneUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func appendCopy[T any](xs []T, x T) []T {
	out := make([]T, 0, len(xs)+1)
	out = append(out, xs...)
	return append(out, x)
}

func replaceCopy[T any](xs []T, x T, match func(T) bool) []T {
	if !slices.ContainsFunc(xs, match) {
		return xs
	}
	out := slices.Clone(xs)
	for i := range out {
		if match(out[i]) {
			out[i] = x
		}
	}
	return out
}

func normalize(s model.AppState) model.AppState {
	if s.Children == nil {
		s.Children = []model.Child{}
	}
	if s.FeedingEntries == nil {
		s.FeedingEntries = []model.FeedingEntry{}
	}
	return s
}
