package scan

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ironsheep/image-extract-mcp/internal/imaging"
)

// Options configures a Session.
type Options struct {
	// Pipeline does the work of one scan. Required.
	Pipeline Pipeline

	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

type job struct {
	version int64
	req     *Request
	ctx     context.Context
	cancel  context.CancelFunc
}

// Session coordinates scans for one viewer. Each Submit supersedes the
// previous one: the old scan is cancelled and, whenever it finishes, its
// result is discarded unless its version is still the current one.
//
// Scans run one at a time on a single worker goroutine. A Submit made while
// another request is still queued replaces it.
type Session struct {
	view View
	opts Options

	version atomic.Int64

	// mu serializes Submit, Close and the check-and-apply in publish.
	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	closed bool

	jobs chan job
	ctx  context.Context
	stop context.CancelFunc
	done chan struct{}
}

// NewSession starts a session that publishes to view. Close must be called
// to stop its worker.
func NewSession(view View, opts Options) *Session {
	opts.defaults()
	ctx, stop := context.WithCancel(context.Background())
	s := &Session{
		view: view,
		opts: opts,
		jobs: make(chan job, 1),
		ctx:  ctx,
		stop: stop,
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

// Version returns the current scan version. It starts at 0 and grows by one
// with every Submit.
func (s *Session) Version() int64 {
	return s.version.Load()
}

// State reports whether a scan is pending.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Submit starts a scan of req and returns its version. Any in-flight scan is
// cancelled and its result will not be published. A nil req clears the view
// without starting a scan. Submit never blocks on scan work.
func (s *Session) Submit(req *Request) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	v := s.version.Add(1)
	if s.closed {
		return v
	}

	// Drop a queued job that never started.
	select {
	case old := <-s.jobs:
		old.cancel()
	default:
	}

	if req == nil {
		s.state = Idle
		s.view.Apply(Update{Version: v, State: Idle, Status: StatusEmpty})
		return v
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.cancel = cancel
	s.state = Scanning
	s.view.Apply(Update{Version: v, State: Scanning, Status: StatusRendering})

	// The slot was drained above and only Submit sends, under mu.
	s.jobs <- job{version: v, req: req, ctx: ctx, cancel: cancel}
	return v
}

// Close cancels any scan in flight and stops the worker. Later Submits only
// advance the version. Close waits for the worker to exit.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	s.version.Add(1)
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = Idle
	s.stop()
	s.mu.Unlock()

	<-s.done
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case j := <-s.jobs:
			s.process(j)
		}
	}
}

func (s *Session) process(j job) {
	defer j.cancel()

	if j.version != s.version.Load() {
		return
	}

	entries, err := s.execute(j)
	s.publish(j.version, entries, err)
}

// execute runs the pipeline, turning a panic into an error.
func (s *Session) execute(j job) (entries []imaging.Entry, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return s.opts.Pipeline(j.ctx, j.req)
}

func (s *Session) publish(version int64, entries []imaging.Entry, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current := s.version.Load(); version != current {
		s.opts.Logger.Debug("scan: discarding stale result", "version", version, "current", current)
		return
	}

	if err != nil {
		s.opts.Logger.Warn("scan: pipeline failed", "version", version, "error", err)
	}
	u := Summarize(entries, err)
	u.Version = version

	s.state = Idle
	s.cancel = nil
	s.view.Apply(u)
}
