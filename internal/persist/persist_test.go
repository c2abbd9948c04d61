package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/and161185/feedlog/internal/model"
	"github.com/and161185/feedlog/internal/storage"
	"github.com/and161185/feedlog/internal/store"
)

var t0 = time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

func sampleState() model.AppState {
	u := model.User{ID: "u1", Email: "ann@example.com", Name: "Ann", CreatedAt: t0}
	c := model.Child{
		ID:          "c1",
		Name:        "Ada",
		DateOfBirth: model.NewDate(2023, time.December, 1),
		ParentIDs:   []string{"u1"},
		CreatedAt:   t0,
	}
	return model.AppState{
		CurrentUser: &u,
		Children:    []model.Child{c},
		FeedingEntries: []model.FeedingEntry{
			{
				ID: "e1", ChildID: "c1", UserID: "u1",
				Date: model.NewDate(2024, time.January, 2), Time: "08:15",
				FeedingType: model.Bottle, AmountMl: model.Ptr(120),
				Notes: "hungry", Peed: true, CreatedAt: t0,
			},
			{
				ID: "e2", ChildID: "c1", UserID: "u1",
				Date: model.NewDate(2024, time.January, 2), Time: "11:00",
				FeedingType:       model.Breast,
				LeftBreastMinutes: model.Ptr(10), RightBreastMinutes: model.Ptr(0),
				CreatedAt: t0.Add(time.Hour),
			},
		},
		SelectedChild: &c,
	}
}

// failingStorage fails every Set.
type failingStorage struct {
	*storage.Memory
	err error
}

func (f failingStorage) Set(context.Context, string, []byte) error { return f.err }

type countingStorage struct {
	*storage.Memory
	mu     sync.Mutex
	writes int
	gate   chan struct{}
}

func (c *countingStorage) Set(ctx context.Context, key string, v []byte) error {
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	return c.Memory.Set(ctx, key, v)
}

func (c *countingStorage) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

type fakeWriteRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (f *fakeWriteRecorder) ObserveWrite(outcome string, _ int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
}

func startPersister(t *testing.T, p *Persister) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-p.Done()
	})
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	t.Parallel()
	s := sampleState()
	blob, err := Encode(s)
	require.NoError(t, err)

	got, err := Decode(blob)
	require.NoError(t, err)
	require.True(t, s.Equal(got))

	again, err := Encode(got)
	require.NoError(t, err)
	require.JSONEq(t, string(blob), string(again))
}

func TestEncode_EmptyStateHasArrays(t *testing.T) {
	t.Parallel()
	blob, err := Encode(model.AppState{})
	require.NoError(t, err)
	require.JSONEq(t, `{"currentUser":null,"children":[],"feedingEntries":[],"selectedChild":null}`, string(blob))
}

func TestDecode_LegacyBrowserBlob(t *testing.T) {
	t.Parallel()
	blob := []byte(`{
	  "currentUser": {"id":"1700000000000","email":"ann@example.com","name":"ann","createdAt":"2024-01-02T09:30:00.000Z"},
	  "children": [{"id":"1700000000001","name":"Ada","dateOfBirth":"2023-12-01T00:00:00.000Z","parentIds":["1700000000000"],"createdAt":"2024-01-02T09:31:00.000Z"}],
	  "feedingEntries": [{"id":"1700000000002","childId":"1700000000001","userId":"1700000000000","date":"2024-01-02T00:00:00.000Z","time":"08:15","feedingType":"bottle","amountMl":90,"spitUp":false,"peed":true,"pooped":false,"createdAt":"2024-01-02T09:32:00.000Z"}],
	  "selectedChild": null
	}`)
	s, err := Decode(blob)
	require.NoError(t, err)
	require.Equal(t, t0, s.CurrentUser.CreatedAt.UTC())
	require.Equal(t, model.NewDate(2023, time.December, 1), s.Children[0].DateOfBirth)
	require.Equal(t, model.NewDate(2024, time.January, 2), s.FeedingEntries[0].Date)
	require.Equal(t, 90, *s.FeedingEntries[0].AmountMl)
	require.Nil(t, s.FeedingEntries[0].LeftBreastMinutes)
}

func TestDecode_Rejects(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "null", "[]", "{not json", `{"children":"nope"}`} {
		_, err := Decode([]byte(in))
		require.Error(t, err, "input %q", in)
	}
}

func TestHydrate_LoadsStoredSnapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := storage.NewMemory()
	want := sampleState()
	blob, err := Encode(want)
	require.NoError(t, err)
	require.NoError(t, mem.Set(ctx, Key, blob))

	st := store.New()
	require.Equal(t, Loaded, Hydrate(ctx, mem, Key, st, nil))
	require.True(t, want.Equal(st.State()))
}

func TestHydrate_MissingAndCorrupt(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	core, logs := observer.New(zapcore.WarnLevel)
	log := zap.New(core)

	st := store.New()
	mem := storage.NewMemory()
	require.Equal(t, Empty, Hydrate(ctx, mem, Key, st, log))
	require.Equal(t, 0, logs.Len(), "missing blob is not a warning")

	require.NoError(t, mem.Set(ctx, Key, []byte("{truncated")))
	require.Equal(t, Corrupt, Hydrate(ctx, mem, Key, st, log))
	require.Equal(t, 1, logs.FilterMessage("stored snapshot is corrupt, starting empty").Len())
	require.True(t, model.Empty().Equal(st.State()))

	// decodes, but selects a child that is not in the list
	bad := sampleState()
	bad.Children = []model.Child{}
	blob, err := Encode(bad)
	require.NoError(t, err)
	require.NoError(t, mem.Set(ctx, Key, blob))
	require.Equal(t, Corrupt, Hydrate(ctx, mem, Key, st, log))
	require.True(t, model.Empty().Equal(st.State()))
}

func TestHydrate_ReadErrorFailsSoft(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.WarnLevel)
	st := store.New()
	res := Hydrate(context.Background(), failingGet{}, Key, st, zap.New(core))
	require.Equal(t, ReadFailed, res)
	require.Equal(t, "read_failed", res.String())
	require.Equal(t, model.Empty(), st.State())
	require.Equal(t, 1, logs.FilterMessage("read snapshot failed").Len())
}

type failingGet struct{}

func (failingGet) Get(context.Context, string) ([]byte, error) { return nil, errors.New("dial tcp: refused") }
func (failingGet) Set(context.Context, string, []byte) error   { return nil }

func TestPersister_WritesLatestSnapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := storage.NewMemory()
	rec := &fakeWriteRecorder{}
	p := NewPersister(mem, Key, nil, Options{Recorder: rec})
	startPersister(t, p)

	st := store.New()
	st.Subscribe(p.Observe)

	s := sampleState()
	require.NoError(t, st.Dispatch(store.LoadData{State: s}))
	require.NoError(t, st.Dispatch(store.DeleteFeedingEntry{ID: "e1"}))
	require.NoError(t, p.Flush(ctx))

	blob, err := mem.Get(ctx, Key)
	require.NoError(t, err)
	got, err := Decode(blob)
	require.NoError(t, err)
	require.True(t, st.State().Equal(got))
	require.Len(t, got.FeedingEntries, 1)
	require.NotEmpty(t, rec.outcomes)
	require.Equal(t, WriteOK, rec.outcomes[len(rec.outcomes)-1])
}

func TestPersister_CoalescesWhileBusy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cs := &countingStorage{Memory: storage.NewMemory(), gate: make(chan struct{})}
	p := NewPersister(cs, Key, nil, Options{})
	startPersister(t, p)

	s := model.Empty()
	p.Observe(s)
	// the first write is blocked in Set; these collapse into one follow-up
	for i := 0; i < 10; i++ {
		s.FeedingEntries = append(s.FeedingEntries, model.FeedingEntry{ID: string(rune('a' + i))})
		p.Observe(s)
	}
	close(cs.gate)
	require.NoError(t, p.Flush(ctx))

	require.LessOrEqual(t, cs.count(), 3)
	blob, err := cs.Memory.Get(ctx, Key)
	require.NoError(t, err)
	got, err := Decode(blob)
	require.NoError(t, err)
	require.Len(t, got.FeedingEntries, 10)
}

func TestPersister_FailureIsLoggedAndStorageStaysStale(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	core, logs := observer.New(zapcore.ErrorLevel)
	mem := storage.NewMemory()
	require.NoError(t, mem.Set(ctx, Key, []byte(`{"children":[]}`)))

	rec := &fakeWriteRecorder{}
	p := NewPersister(failingStorage{Memory: mem, err: errors.New("disk full")}, Key, zap.New(core), Options{Recorder: rec})
	startPersister(t, p)

	p.Observe(sampleState())
	require.NoError(t, p.Flush(ctx))

	require.Equal(t, 1, logs.FilterMessage("persist snapshot failed").Len())
	require.Equal(t, []string{WriteFailed}, rec.outcomes)
	blob, err := mem.Get(ctx, Key)
	require.NoError(t, err)
	require.Equal(t, `{"children":[]}`, string(blob))
}

func TestPersister_DrainsOnShutdown(t *testing.T) {
	t.Parallel()
	mem := storage.NewMemory()
	p := NewPersister(mem, Key, nil, Options{})
	ctx, cancel := context.WithCancel(context.Background())

	p.Observe(sampleState())
	cancel()
	p.Run(ctx)

	_, err := mem.Get(context.Background(), Key)
	require.NoError(t, err)

	p.Observe(model.Empty())
	require.NoError(t, p.Flush(context.Background()), "observations after shutdown are dropped")
}

func TestPersister_FlushWithoutRunHonorsContext(t *testing.T) {
	t.Parallel()
	p := NewPersister(storage.NewMemory(), Key, nil, Options{})
	p.Observe(model.Empty())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, p.Flush(ctx), context.DeadlineExceeded)
}

// Hydrate a one-child blob, add an entry through the store, and read storage back.
func TestHydrateThenMutate_PersistsEntry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := storage.NewMemory()
	s := sampleState()
	s.FeedingEntries = []model.FeedingEntry{}
	blob, err := Encode(s)
	require.NoError(t, err)
	require.NoError(t, mem.Set(ctx, Key, blob))

	st := store.New()
	require.Equal(t, Loaded, Hydrate(ctx, mem, Key, st, nil))

	p := NewPersister(mem, Key, nil, Options{})
	startPersister(t, p)
	st.Subscribe(p.Observe)

	e := model.FeedingEntry{
		ID: "e9", ChildID: "c1", UserID: "u1",
		Date: model.NewDate(2024, time.January, 3), Time: "06:00",
		FeedingType: model.Bottle, AmountMl: model.Ptr(60), CreatedAt: t0,
	}
	require.NoError(t, st.Dispatch(store.AddFeedingEntry{Entry: e}))
	require.NoError(t, p.Flush(ctx))

	blob, err = mem.Get(ctx, Key)
	require.NoError(t, err)
	got, err := Decode(blob)
	require.NoError(t, err)
	require.Len(t, got.FeedingEntries, 1)
	require.Equal(t, "c1", got.FeedingEntries[0].ChildID)
}
