package decorate

import (
	"context"
	"sync"
	"time"

	"github.com/akhenakh/iconify-lsp/protocol"
)

// DefaultInterval is the minimum time between two passes of a document.
const DefaultInterval = time.Second

// Refresher paces decoration passes per document. A trigger runs a pass
// right away when the previous one started at least interval ago and
// schedules one for the end of the interval otherwise. At most one pass of
// a document runs at a time: triggers arriving meanwhile are folded into a
// single follow-up pass.
type Refresher struct {
	interval time.Duration
	run      func(ctx context.Context, uri protocol.DocumentURI)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	docs   map[protocol.DocumentURI]*docState
	closed bool
}

type docState struct {
	running bool
	pending bool
	last    time.Time
	timer   *time.Timer
}

// NewRefresher returns a refresher calling run for every pass. A zero
// interval runs passes back to back.
func NewRefresher(interval time.Duration, run func(ctx context.Context, uri protocol.DocumentURI)) *Refresher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Refresher{
		interval: interval,
		run:      run,
		ctx:      ctx,
		cancel:   cancel,
		docs:     make(map[protocol.DocumentURI]*docState),
	}
}

// Trigger requests a pass of the document at uri.
func (r *Refresher) Trigger(uri protocol.DocumentURI) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	st, ok := r.docs[uri]
	if !ok {
		st = &docState{}
		r.docs[uri] = st
	}
	if st.running {
		st.pending = true
		return
	}
	r.scheduleLocked(uri, st)
}

// scheduleLocked starts a pass now or arms the trailing timer.
func (r *Refresher) scheduleLocked(uri protocol.DocumentURI, st *docState) {
	if st.timer != nil {
		return
	}
	wait := r.interval - time.Since(st.last)
	if wait <= 0 {
		r.startLocked(uri, st)
		return
	}
	st.timer = time.AfterFunc(wait, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		st.timer = nil
		if r.closed || r.docs[uri] != st {
			return
		}
		if st.running {
			st.pending = true
			return
		}
		r.startLocked(uri, st)
	})
}

func (r *Refresher) startLocked(uri protocol.DocumentURI, st *docState) {
	st.running = true
	st.last = time.Now()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(r.ctx, uri)

		r.mu.Lock()
		defer r.mu.Unlock()
		st.running = false
		if !st.pending || r.closed || r.docs[uri] != st {
			return
		}
		st.pending = false
		r.scheduleLocked(uri, st)
	}()
}

// Forget drops the state of a closed document and its scheduled pass.
func (r *Refresher) Forget(uri protocol.DocumentURI) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.docs[uri]; ok {
		if st.timer != nil {
			st.timer.Stop()
		}
		delete(r.docs, uri)
	}
}

// Close cancels scheduled passes and waits for running ones.
func (r *Refresher) Close() {
	r.mu.Lock()
	r.closed = true
	for uri, st := range r.docs {
		if st.timer != nil {
			st.timer.Stop()
		}
		delete(r.docs, uri)
	}
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
}
