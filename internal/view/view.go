// Package view holds read-time projections of the snapshot: filtering, ordering
// and display formatting. Nothing here mutates its input.
package view

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/and161185/feedlog/internal/errs"
	"github.com/and161185/feedlog/internal/model"
)

// Filter selects entries by feeding type.
type Filter string

const (
	All    Filter = "all"
	Bottle Filter = Filter(model.Bottle)
	Breast Filter = Filter(model.Breast)
)

// ParseFilter accepts all, bottle or breast; empty means all.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "", All:
		return All, nil
	case Bottle, Breast:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown filter %q", errs.ErrValidation, s)
	}
}

// Match reports whether e passes the filter.
func (f Filter) Match(e model.FeedingEntry) bool {
	return f == All || f == "" || string(e.FeedingType) == string(f)
}

// ForChild returns the entries recorded for childID, in source order.
func ForChild(entries []model.FeedingEntry, childID string) []model.FeedingEntry {
	out := make([]model.FeedingEntry, 0, len(entries))
	for _, e := range entries {
		if e.ChildID == childID {
			out = append(out, e)
		}
	}
	return out
}

// FilterByType returns the entries matching f, in source order.
func FilterByType(entries []model.FeedingEntry, f Filter) []model.FeedingEntry {
	out := make([]model.FeedingEntry, 0, len(entries))
	for _, e := range entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// SortByRecency returns a copy ordered newest first by date, then time of day.
// Entries with equal keys keep their relative order. A time that does not
// parse sorts as midnight.
func SortByRecency(entries []model.FeedingEntry) []model.FeedingEntry {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b model.FeedingEntry) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return cmp.Compare(clock(b.Time), clock(a.Time))
	})
	return out
}

// Feedings is the list screen projection: one child's entries, filtered, newest first.
func Feedings(s model.AppState, childID string, f Filter) []model.FeedingEntry {
	return SortByRecency(FilterByType(ForChild(s.FeedingEntries, childID), f))
}

// AccessibleChildren returns the children userID is a parent of, in insertion order.
func AccessibleChildren(s model.AppState, userID string) []model.Child {
	out := []model.Child{}
	for _, c := range s.Children {
		if c.HasParent(userID) {
			out = append(out, c)
		}
	}
	return out
}

func clock(s string) int {
	m, err := model.ParseClock(s)
	if err != nil {
		return 0
	}
	return m
}
