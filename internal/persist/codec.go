// Package persist mirrors the store's snapshot into a Storage blob and restores
// it on startup. Neither direction returns I/O errors to callers: failures are
// logged and the in-memory state stays authoritative.
package persist

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/and161185/feedlog/internal/model"
)

// Key is the fixed storage key of the snapshot blob.
const Key = "babyFeedingApp"

// Encode serializes a snapshot as a single JSON object.
func Encode(s model.AppState) ([]byte, error) {
	return json.Marshal(normalize(s))
}

// Decode parses a blob written by Encode or by the earlier browser app, whose
// blobs carried full ISO timestamps for every temporal field.
func Decode(b []byte) (model.AppState, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return model.AppState{}, fmt.Errorf("decode snapshot: not a JSON object")
	}
	var s model.AppState
	if err := json.Unmarshal(b, &s); err != nil {
		return model.AppState{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return normalize(s), nil
}

func normalize(s model.AppState) model.AppState {
	if s.Children == nil {
		s.Children = []model.Child{}
	}
	if s.FeedingEntries == nil {
		s.FeedingEntries = []model.FeedingEntry{}
	}
	for i := range s.Children {
		if s.Children[i].ParentIDs == nil {
			s.Children[i].ParentIDs = []string{}
		}
	}
	if s.SelectedChild != nil && s.SelectedChild.ParentIDs == nil {
		c := s.SelectedChild.Clone()
		c.ParentIDs = []string{}
		s.SelectedChild = &c
	}
	return s
}
