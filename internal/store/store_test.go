package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/and161185/feedlog/internal/errs"
	"github.com/and161185/feedlog/internal/model"
)

type fakeRecorder struct {
	mu   sync.Mutex
	seen map[string]int
}

var _ ActionRecorder = (*fakeRecorder)(nil)

func (f *fakeRecorder) ObserveAction(action, outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = map[string]int{}
	}
	f.seen[action+"/"+outcome]++
}

func signedIn(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s := New(opts...)
	require.NoError(t, s.Dispatch(SetUser{User: &model.User{ID: "u1", Email: "u1@x.io", Name: "u1", CreatedAt: t0}}))
	return s
}

func TestStore_NewIsEmptyAndUnauthenticated(t *testing.T) {
	t.Parallel()
	st := New().State()
	require.Nil(t, st.CurrentUser)
	require.Nil(t, st.SelectedChild)
	require.Empty(t, st.Children)
	require.Empty(t, st.FeedingEntries)
}

func TestStore_SelectionConsistencyScenario(t *testing.T) {
	t.Parallel()
	s := signedIn(t)
	c1 := child("c1", "u1")
	require.NoError(t, s.Dispatch(AddChild{Child: c1}))
	require.NoError(t, s.Dispatch(SelectChild{Child: &c1}))

	c1b := c1.Clone()
	c1b.Name = "New name"
	require.NoError(t, s.Dispatch(UpdateChild{Child: c1b}))

	st := s.State()
	require.NotNil(t, st.SelectedChild)
	require.True(t, st.SelectedChild.Equal(c1b))
}

func TestStore_StrictRejectsEmptyingParents(t *testing.T) {
	t.Parallel()
	s := signedIn(t)
	c := child("c1", "u1")
	require.NoError(t, s.Dispatch(AddChild{Child: c}))

	orphan := c.Clone()
	orphan.ParentIDs = nil
	err := s.Dispatch(UpdateChild{Child: orphan})
	require.ErrorIs(t, err, errs.ErrLastParent)
	require.Equal(t, []string{"u1"}, s.State().Children[0].ParentIDs)

	require.ErrorIs(t, s.Dispatch(AddChild{Child: child("c2")}), errs.ErrLastParent)
}

func TestStore_LenientTrustsCaller(t *testing.T) {
	t.Parallel()
	s := New(WithValidation(false))
	c := child("c1", "u1")
	require.NoError(t, s.Dispatch(AddChild{Child: c}))

	orphan := c.Clone()
	orphan.ParentIDs = []string{}
	require.NoError(t, s.Dispatch(UpdateChild{Child: orphan}))
	require.Empty(t, s.State().Children[0].ParentIDs, "reducer alone does not guard parents")

	stray := child("not-a-member", "u1")
	require.NoError(t, s.Dispatch(SelectChild{Child: &stray}))
	require.NoError(t, s.Dispatch(AddFeedingEntry{Entry: bottle("e1", "ghost", 10)}))
	require.Len(t, s.State().FeedingEntries, 1)
}

func TestStore_StrictRejections(t *testing.T) {
	t.Parallel()

	breastWithAmount := bottle("e9", "c1", 10)
	breastWithAmount.FeedingType = model.Breast

	bottleWithMinutes := bottle("e9", "c1", 10)
	bottleWithMinutes.LeftBreastMinutes = model.Ptr(5)

	badTime := bottle("e9", "c1", 10)
	badTime.Time = "late"

	negative := bottle("e9", "c1", -1)

	noDate := bottle("e9", "c1", 10)
	noDate.Date = model.Date{}

	spoon := bottle("e9", "c1", 10)
	spoon.FeedingType = "spoon"

	notMine := child("c2", "someone-else")
	stale := child("c1", "u1")
	stale.Name = "stale copy"

	tests := []struct {
		name string
		a    Action
		want error
	}{
		{"update other user", UpdateUser{User: model.User{ID: "u2"}}, errs.ErrValidation},
		{"set user without id", SetUser{User: &model.User{}}, errs.ErrValidation},
		{"duplicate child", AddChild{Child: child("c1", "u1")}, errs.ErrAlreadyExists},
		{"child without id", AddChild{Child: child("", "u1")}, errs.ErrValidation},
		{"update unknown child", UpdateChild{Child: child("zz", "u1")}, errs.ErrNotFound},
		{"select non member", SelectChild{Child: &model.Child{ID: "zz", ParentIDs: []string{"u1"}}}, errs.ErrNotFound},
		{"select stale copy", SelectChild{Child: &stale}, errs.ErrValidation},
		{"select not visible", SelectChild{Child: &notMine}, errs.ErrUnauthorized},
		{"entry unknown child", AddFeedingEntry{Entry: bottle("e9", "zz", 10)}, errs.ErrNotFound},
		{"duplicate entry", AddFeedingEntry{Entry: bottle("e1", "c1", 10)}, errs.ErrAlreadyExists},
		{"breast with amount", AddFeedingEntry{Entry: breastWithAmount}, errs.ErrValidation},
		{"bottle with minutes", AddFeedingEntry{Entry: bottleWithMinutes}, errs.ErrValidation},
		{"bad time", AddFeedingEntry{Entry: badTime}, errs.ErrValidation},
		{"negative amount", AddFeedingEntry{Entry: negative}, errs.ErrValidation},
		{"no date", AddFeedingEntry{Entry: noDate}, errs.ErrValidation},
		{"unknown feeding type", AddFeedingEntry{Entry: spoon}, errs.ErrValidation},
		{"update unknown entry", UpdateFeedingEntry{Entry: bottle("zz", "c1", 10)}, errs.ErrNotFound},
		{"load selection without user", LoadData{State: model.AppState{SelectedChild: &model.Child{ID: "c1"}}}, errs.ErrValidation},
		{"load orphan child", LoadData{State: model.AppState{Children: []model.Child{child("c1")}}}, errs.ErrLastParent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := signedIn(t)
			require.NoError(t, s.Dispatch(AddChild{Child: child("c1", "u1")}))
			require.NoError(t, s.Dispatch(AddChild{Child: notMine}))
			require.NoError(t, s.Dispatch(AddFeedingEntry{Entry: bottle("e1", "c1", 10)}))
			before := s.State()

			err := s.Dispatch(tt.a)
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, before, s.State(), "rejected action must not change state")
		})
	}
}

func TestStore_LogoutOrderAndSessionRules(t *testing.T) {
	t.Parallel()
	s := signedIn(t)
	c := child("c1", "u1")
	require.NoError(t, s.Dispatch(AddChild{Child: c}))
	require.NoError(t, s.Dispatch(SelectChild{Child: &c}))

	require.ErrorIs(t, s.Dispatch(SetUser{}), errs.ErrValidation)

	require.NoError(t, s.Dispatch(SelectChild{}))
	require.NoError(t, s.Dispatch(SetUser{}))
	st := s.State()
	require.Nil(t, st.CurrentUser)
	require.Nil(t, st.SelectedChild)

	require.ErrorIs(t, s.Dispatch(SelectChild{Child: &c}), errs.ErrNoSession)
	require.ErrorIs(t, s.Dispatch(UpdateUser{User: model.User{ID: "u1"}}), errs.ErrNoSession)
}

func TestStore_DeleteUnknownNeverRejected(t *testing.T) {
	t.Parallel()
	s := New()
	require.NoError(t, s.Dispatch(DeleteFeedingEntry{ID: "nope"}))
	require.Empty(t, s.State().FeedingEntries)
}

func TestStore_SubscribersSeeEverySnapshot(t *testing.T) {
	t.Parallel()
	s := New()
	var got []int
	unsub := s.Subscribe(func(st model.AppState) { got = append(got, len(st.FeedingEntries)) })

	require.NoError(t, s.Dispatch(SetUser{User: &model.User{ID: "u1"}}))
	require.NoError(t, s.Dispatch(AddChild{Child: child("c1", "u1")}))
	require.NoError(t, s.Dispatch(AddFeedingEntry{Entry: bottle("e1", "c1", 1)}))
	require.NoError(t, s.Dispatch(DeleteFeedingEntry{ID: "missing"}))
	require.NoError(t, s.Dispatch(unknownAction{}))
	require.Error(t, s.Dispatch(AddChild{Child: child("c1", "u1")}))

	require.Equal(t, []int{0, 0, 1, 1, 1}, got, "rejected actions are not transitions")

	unsub()
	require.NoError(t, s.Dispatch(DeleteFeedingEntry{ID: "e1"}))
	require.Len(t, got, 5)
}

func TestStore_RecoversSubscriberPanic(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zap.ErrorLevel)
	rec := &fakeRecorder{}
	s := New(WithLogger(zap.New(core)), WithRecorder(rec))

	var before, after []string
	s.Subscribe(func(st model.AppState) { before = append(before, st.CurrentUser.ID) })
	s.Subscribe(func(model.AppState) { panic("boom") })
	s.Subscribe(func(st model.AppState) { after = append(after, st.CurrentUser.ID) })

	err := s.Dispatch(SetUser{User: &model.User{ID: "u1"}})
	require.NoError(t, err)
	require.Equal(t, "u1", s.State().CurrentUser.ID)
	require.Equal(t, []string{"u1"}, before)
	require.Equal(t, []string{"u1"}, after)
	require.Equal(t, 1, logs.FilterMessage("subscriber panic").Len())
	require.Equal(t, 0, logs.FilterMessage("dispatch panic").Len())
	require.Equal(t, 1, rec.seen["SET_USER/applied"])
	require.Zero(t, rec.seen["SET_USER/panic"])

	require.NotPanics(t, func() { _ = s.Dispatch(DeleteFeedingEntry{ID: "x"}) })
}

type panickyType struct{}

func (panickyType) Type() ActionType { panic("no name") }

func TestStore_RecoversPanickingActionType(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zap.ErrorLevel)
	rec := &fakeRecorder{}
	s := signedIn(t, WithLogger(zap.New(core)), WithRecorder(rec))
	prev := s.State()

	var err error
	require.NotPanics(t, func() { err = s.Dispatch(panickyType{}) })
	require.Error(t, err)
	require.Equal(t, prev, s.State())
	require.Equal(t, 1, logs.FilterMessage("dispatch panic").Len())
	require.Equal(t, 1, rec.seen["UNKNOWN/panic"])

	require.NoError(t, s.Dispatch(DeleteFeedingEntry{ID: "x"}))
}

func TestStore_RecorderOutcomes(t *testing.T) {
	t.Parallel()
	rec := &fakeRecorder{}
	s := New(WithRecorder(rec))
	require.NoError(t, s.Dispatch(SetUser{User: &model.User{ID: "u1"}}))
	require.Error(t, s.Dispatch(UpdateUser{User: model.User{ID: "u2"}}))
	require.NoError(t, s.Dispatch(nil))

	require.Equal(t, 1, rec.seen["SET_USER/applied"])
	require.Equal(t, 1, rec.seen["UPDATE_USER/rejected"])
	require.Len(t, rec.seen, 2)
}
