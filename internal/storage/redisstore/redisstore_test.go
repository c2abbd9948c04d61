package redisstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/and161185/feedlog/internal/errs"
)

type fakeClient struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
}

var _ Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient { return &fakeClient{data: map[string][]byte{}} }

func (f *fakeClient) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewStringCmd(ctx)
	if f.getErr != nil {
		cmd.SetErr(f.getErr)
		return cmd
	}
	v, ok := f.data[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(string(v))
	return cmd
}

func (f *fakeClient) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewStatusCmd(ctx)
	if f.setErr != nil {
		cmd.SetErr(f.setErr)
		return cmd
	}
	f.data[key] = append([]byte(nil), value.([]byte)...)
	cmd.SetVal("OK")
	return cmd
}

func TestStore_GetSet(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient()
	s := New(c, "feedlog:")

	_, err := s.Get(ctx, "babyFeedingApp")
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, s.Set(ctx, "babyFeedingApp", []byte(`{"x":1}`)))
	require.Contains(t, c.data, "feedlog:babyFeedingApp")

	got, err := s.Get(ctx, "babyFeedingApp")
	require.NoError(t, err)
	require.Equal(t, `{"x":1}`, string(got))
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient()
	s := New(c, "")
	boom := errors.New("READONLY")

	c.setErr = boom
	require.ErrorIs(t, s.Set(ctx, "k", []byte("v")), boom)

	c.getErr = boom
	_, err := s.Get(ctx, "k")
	require.ErrorIs(t, err, boom)
}
