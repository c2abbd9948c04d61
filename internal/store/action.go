// Package store holds the application snapshot and applies actions to it.
package store

import "github.com/and161185/feedlog/internal/model"

// ActionType names an action; it is used in logs and metrics.
type ActionType string

const (
	TypeSetUser            ActionType = "SET_USER"
	TypeUpdateUser         ActionType = "UPDATE_USER"
	TypeAddChild           ActionType = "ADD_CHILD"
	TypeUpdateChild        ActionType = "UPDATE_CHILD"
	TypeSelectChild        ActionType = "SELECT_CHILD"
	TypeAddFeedingEntry    ActionType = "ADD_FEEDING_ENTRY"
	TypeUpdateFeedingEntry ActionType = "UPDATE_FEEDING_ENTRY"
	TypeDeleteFeedingEntry ActionType = "DELETE_FEEDING_ENTRY"
	TypeLoadData           ActionType = "LOAD_DATA"
)

// Action is a request to transform the snapshot. Types outside this package may
// implement it; the reducer leaves the state unchanged for any it does not know.
type Action interface {
	Type() ActionType
}

// SetUser replaces the current user; nil signs out. It does not touch the selection.
type SetUser struct{ User *model.User }

// UpdateUser replaces the current user record wholesale.
type UpdateUser struct{ User model.User }

// AddChild appends a child; the caller assigns a fresh id.
type AddChild struct{ Child model.Child }

// UpdateChild replaces the child with the same id and refreshes the selection.
type UpdateChild struct{ Child model.Child }

// SelectChild sets or clears (nil) the selected child.
type SelectChild struct{ Child *model.Child }

// AddFeedingEntry appends an entry.
type AddFeedingEntry struct{ Entry model.FeedingEntry }

// UpdateFeedingEntry replaces the entry with the same id.
type UpdateFeedingEntry struct{ Entry model.FeedingEntry }

// DeleteFeedingEntry removes the entry with the given id, if any.
type DeleteFeedingEntry struct{ ID string }

// LoadData replaces the whole snapshot. Used once, when hydrating from storage.
type LoadData struct{ State model.AppState }

func (SetUser) Type() ActionType            { return TypeSetUser }
func (UpdateUser) Type() ActionType         { return TypeUpdateUser }
func (AddChild) Type() ActionType           { return TypeAddChild }
func (UpdateChild) Type() ActionType        { return TypeUpdateChild }
func (SelectChild) Type() ActionType        { return TypeSelectChild }
func (AddFeedingEntry) Type() ActionType    { return TypeAddFeedingEntry }
func (UpdateFeedingEntry) Type() ActionType { return TypeUpdateFeedingEntry }
func (DeleteFeedingEntry) Type() ActionType { return TypeDeleteFeedingEntry }
func (LoadData) Type() ActionType           { return TypeLoadData }
