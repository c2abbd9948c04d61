// Package model defines the entities held in the application snapshot.
package model

import (
	"slices"
	"time"
)

// FeedingType selects which measurement fields of a FeedingEntry are active.
type FeedingType string

const (
	Bottle FeedingType = "bottle"
	Breast FeedingType = "breast"
)

// Valid reports whether t is one of the known feeding types.
func (t FeedingType) Valid() bool { return t == Bottle || t == Breast }

// User is a caregiver account.
type User struct {
	ID        string    `json:"id"` // opaque, assigned once
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Equal compares users by value, with CreatedAt compared as an instant.
func (u User) Equal(o User) bool {
	return u.ID == o.ID && u.Email == o.Email && u.Name == o.Name && u.CreatedAt.Equal(o.CreatedAt)
}

// Child is a baby profile shared by one or more parents.
type Child struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DateOfBirth Date      `json:"dateOfBirth"`
	ParentIDs   []string  `json:"parentIds"` // never empty
	CreatedAt   time.Time `json:"createdAt"`
}

// HasParent reports whether userID is one of the child's parents.
func (c Child) HasParent(userID string) bool { return slices.Contains(c.ParentIDs, userID) }

// Clone returns a copy that shares no memory with c.
func (c Child) Clone() Child {
	c.ParentIDs = slices.Clone(c.ParentIDs)
	return c
}

// Equal compares children by value.
func (c Child) Equal(o Child) bool {
	return c.ID == o.ID &&
		c.Name == o.Name &&
		c.DateOfBirth == o.DateOfBirth &&
		slices.Equal(c.ParentIDs, o.ParentIDs) &&
		c.CreatedAt.Equal(o.CreatedAt)
}

// FeedingEntry is one recorded feeding. Only the fields matching FeedingType are set:
// AmountMl for bottle, LeftBreastMinutes/RightBreastMinutes for breast.
type FeedingEntry struct {
	ID                 string      `json:"id"`
	ChildID            string      `json:"childId"`
	UserID             string      `json:"userId"`
	Date               Date        `json:"date"`
	Time               string      `json:"time"` // wall clock HH:MM, no zone
	FeedingType        FeedingType `json:"feedingType"`
	AmountMl           *int        `json:"amountMl,omitempty"`
	LeftBreastMinutes  *int        `json:"leftBreastMinutes,omitempty"`
	RightBreastMinutes *int        `json:"rightBreastMinutes,omitempty"`
	Notes              string      `json:"notes,omitempty"`
	SpitUp             bool        `json:"spitUp"`
	Peed               bool        `json:"peed"`
	Pooped             bool        `json:"pooped"`
	CreatedAt          time.Time   `json:"createdAt"`
}

// Clone returns a copy with its own optional measurement values.
func (e FeedingEntry) Clone() FeedingEntry {
	e.AmountMl = cloneInt(e.AmountMl)
	e.LeftBreastMinutes = cloneInt(e.LeftBreastMinutes)
	e.RightBreastMinutes = cloneInt(e.RightBreastMinutes)
	return e
}

// Equal compares entries by value.
func (e FeedingEntry) Equal(o FeedingEntry) bool {
	return e.ID == o.ID &&
		e.ChildID == o.ChildID &&
		e.UserID == o.UserID &&
		e.Date == o.Date &&
		e.Time == o.Time &&
		e.FeedingType == o.FeedingType &&
		equalInt(e.AmountMl, o.AmountMl) &&
		equalInt(e.LeftBreastMinutes, o.LeftBreastMinutes) &&
		equalInt(e.RightBreastMinutes, o.RightBreastMinutes) &&
		e.Notes == o.Notes &&
		e.SpitUp == o.SpitUp &&
		e.Peed == o.Peed &&
		e.Pooped == o.Pooped &&
		e.CreatedAt.Equal(o.CreatedAt)
}

// AppState is the complete snapshot and the unit of persistence.
type AppState struct {
	CurrentUser    *User          `json:"currentUser"`
	Children       []Child        `json:"children"`
	FeedingEntries []FeedingEntry `json:"feedingEntries"`
	SelectedChild  *Child         `json:"selectedChild"`
}

// Empty returns the initial, unauthenticated snapshot.
func Empty() AppState {
	return AppState{Children: []Child{}, FeedingEntries: []FeedingEntry{}}
}

// FindChild returns the child with the given id.
func (s AppState) FindChild(id string) (Child, bool) {
	i := slices.IndexFunc(s.Children, func(c Child) bool { return c.ID == id })
	if i < 0 {
		return Child{}, false
	}
	return s.Children[i], true
}

// FindEntry returns the feeding entry with the given id.
func (s AppState) FindEntry(id string) (FeedingEntry, bool) {
	i := slices.IndexFunc(s.FeedingEntries, func(e FeedingEntry) bool { return e.ID == id })
	if i < 0 {
		return FeedingEntry{}, false
	}
	return s.FeedingEntries[i], true
}

// Equal compares two snapshots by value.
func (s AppState) Equal(o AppState) bool {
	if (s.CurrentUser == nil) != (o.CurrentUser == nil) || (s.SelectedChild == nil) != (o.SelectedChild == nil) {
		return false
	}
	if s.CurrentUser != nil && !s.CurrentUser.Equal(*o.CurrentUser) {
		return false
	}
	if s.SelectedChild != nil && !s.SelectedChild.Equal(*o.SelectedChild) {
		return false
	}
	return slices.EqualFunc(s.Children, o.Children, Child.Equal) &&
		slices.EqualFunc(s.FeedingEntries, o.FeedingEntries, FeedingEntry.Equal)
}

// Ptr returns a pointer to v; handy for optional measurements.
func Ptr[T any](v T) *T { return &v }

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
