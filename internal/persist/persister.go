package persist

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/feedlog/internal/errs"
	"github.com/and161185/feedlog/internal/model"
	"github.com/and161185/feedlog/internal/storage"
)

// Write outcomes reported to a WriteRecorder.
const (
	WriteOK     = "ok"
	WriteFailed = "failed"
)

// WriteRecorder receives one call per attempted write.
type WriteRecorder interface {
	ObserveWrite(outcome string, size int)
}

// Options tunes a Persister.
type Options struct {
	// WriteTimeout bounds a single Set call; zero means 5s.
	WriteTimeout time.Duration
	Recorder     WriteRecorder
}

// Persister writes observed snapshots in the background. Only the latest
// snapshot matters, so snapshots observed while a write is in flight collapse
// into one follow-up write.
type Persister struct {
	st      storage.Storage
	key     string
	log     *zap.Logger
	timeout time.Duration
	rec     WriteRecorder

	mu      sync.Mutex
	pending *model.AppState
	seq     uint64 // observed snapshots
	written uint64 // seq of the last snapshot handed to storage
	waiters []flushWaiter
	closed  bool

	wake chan struct{}
	done chan struct{}
}

type flushWaiter struct {
	seq uint64
	ch  chan struct{}
}

// NewPersister creates a persister for key. Call Run to start writing.
func NewPersister(st storage.Storage, key string, log *zap.Logger, opts Options) *Persister {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	return &Persister{
		st:      st,
		key:     key,
		log:     log,
		timeout: opts.WriteTimeout,
		rec:     opts.Recorder,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Observe queues s for writing and returns immediately. It is meant to be
// registered as a store subscriber.
func (p *Persister) Observe(s model.AppState) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.pending = &s
	p.seq++
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run writes snapshots until ctx is done, then writes whatever is still
// pending and returns.
func (p *Persister) Run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-p.wake:
			p.writePending(ctx)
		case <-ctx.Done():
			p.mu.Lock()
			p.closed = true
			p.mu.Unlock()
			p.writePending(context.WithoutCancel(ctx))
			p.releaseAll()
			return
		}
	}
}

// Flush blocks until every snapshot observed before the call has been handed
// to storage (successfully or not).
func (p *Persister) Flush(ctx context.Context) error {
	p.mu.Lock()
	if p.written >= p.seq {
		p.mu.Unlock()
		return nil
	}
	if p.closed {
		p.mu.Unlock()
		return errs.ErrClosed
	}
	w := flushWaiter{seq: p.seq, ch: make(chan struct{})}
	p.waiters = append(p.waiters, w)
	p.mu.Unlock()

	select {
	case <-w.ch:
		return nil
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.written >= w.seq {
			return nil
		}
		return errs.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once Run has returned.
func (p *Persister) Done() <-chan struct{} { return p.done }

func (p *Persister) writePending(ctx context.Context) {
	p.mu.Lock()
	s, seq := p.pending, p.seq
	p.pending = nil
	p.mu.Unlock()
	if s == nil {
		return
	}

	p.write(ctx, *s)

	p.mu.Lock()
	p.written = seq
	kept := p.waiters[:0]
	for _, w := range p.waiters {
		if w.seq <= seq {
			close(w.ch)
			continue
		}
		kept = append(kept, w)
	}
	p.waiters = kept
	p.mu.Unlock()
}

func (p *Persister) write(ctx context.Context, s model.AppState) {
	blob, err := Encode(s)
	if err != nil {
		p.log.Error("encode snapshot failed", zap.Error(err))
		p.record(WriteFailed, 0)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.st.Set(ctx, p.key, blob); err != nil {
		p.log.Error("persist snapshot failed",
			zap.String("key", p.key), zap.Int("bytes", len(blob)), zap.Error(err))
		p.record(WriteFailed, 0)
		return
	}
	p.record(WriteOK, len(blob))
}

func (p *Persister) releaseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, w := range p.waiters {
		close(w.ch)
	}
	p.waiters = nil
}

func (p *Persister) record(outcome string, size int) {
	if p.rec != nil {
		p.rec.ObserveWrite(outcome, size)
	}
}
