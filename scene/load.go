package scene

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Texture is a loaded image resource owned by whoever holds it.
type Texture interface {
	Release()
}

// Loader loads a texture from path. Implementations should return promptly
// once ctx is canceled.
type Loader interface {
	Load(ctx context.Context, path string) (Texture, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, path string) (Texture, error)

// Load calls f(ctx, path).
func (f LoaderFunc) Load(ctx context.Context, path string) (Texture, error) {
	return f(ctx, path)
}

type request struct {
	path   string
	done   func(Texture)
	cancel context.CancelFunc
}

type result struct {
	id  uint64
	tex Texture
	err error
}

// LoadQueue runs texture loads off the frame goroutine and delivers their
// completions back to it through Poll.
type LoadQueue struct {
	loader Loader
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	completed []result

	pending map[uint64]*request
	nextID  uint64
	closed  bool
}

// NewLoadQueue creates a queue backed by loader.
func NewLoadQueue(loader Loader, logger *slog.Logger) *LoadQueue {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &LoadQueue{
		loader:  loader,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[uint64]*request),
	}
}

// Start begins loading path in the background. done is called from a later
// Poll on success. The returned cancel func drops the request; a texture
// that arrives after cancel is released without calling done.
func (q *LoadQueue) Start(path string, done func(Texture)) (func(), error) {
	if q.closed {
		return nil, ErrClosed
	}

	q.nextID++
	id := q.nextID
	ctx, cancel := context.WithCancel(q.ctx)
	q.pending[id] = &request{path: path, done: done, cancel: cancel}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		tex, err := q.loader.Load(ctx, path)
		q.mu.Lock()
		q.completed = append(q.completed, result{id: id, tex: tex, err: err})
		q.mu.Unlock()
	}()

	return func() { q.drop(id) }, nil
}

func (q *LoadQueue) drop(id uint64) {
	if req, ok := q.pending[id]; ok {
		req.cancel()
		delete(q.pending, id)
	}
}

// Pending returns the number of requests not yet delivered or canceled.
func (q *LoadQueue) Pending() int {
	return len(q.pending)
}

// Poll delivers finished loads without blocking. It returns the number of
// completions handed to their callbacks.
func (q *LoadQueue) Poll() int {
	q.mu.Lock()
	done := q.completed
	q.completed = nil
	q.mu.Unlock()

	delivered := 0
	for _, r := range done {
		req, ok := q.pending[r.id]
		if !ok {
			if r.tex != nil {
				r.tex.Release()
			}
			continue
		}
		delete(q.pending, r.id)
		req.cancel()

		if r.err != nil {
			q.logger.Warn("texture load failed", "path", req.path, "error", fmt.Errorf("loading %s: %w", req.path, r.err))
			continue
		}
		if r.tex == nil {
			continue
		}
		if req.done != nil {
			req.done(r.tex)
			delivered++
		} else {
			r.tex.Release()
		}
	}
	return delivered
}

// Close cancels all pending loads, waits for their goroutines and releases
// anything they produced. It is idempotent.
func (q *LoadQueue) Close() error {
	if q.closed {
		return nil
	}
	q.closed = true
	for id := range q.pending {
		q.drop(id)
	}
	q.cancel()
	q.wg.Wait()
	q.Poll()
	return nil
}
