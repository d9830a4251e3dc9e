package lazyrpc

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/telnet2/go-lazyrpc/pkg/emitter"
	"github.com/telnet2/go-lazyrpc/pkg/jsonrpc"
)

var _ jsonrpc.Provider = (*LazyProvider)(nil)

// Factory constructs the real provider. It is invoked lazily by the proxy,
// at most once at a time and never again after it has succeeded. The ctx
// passed to it is not tied to any single caller: callers that stop waiting
// do not cancel an in-flight construction.
type Factory func(ctx context.Context) (jsonrpc.Provider, error)

// LazyProvider is a jsonrpc.Provider that defers construction of its
// target until the first remote call. Event subscription operations work
// immediately and are buffered until the target exists; they never
// trigger construction themselves.
type LazyProvider struct {
	mu      sync.Mutex
	factory Factory
	target  jsonrpc.Provider
	pending *attempt
	buffer  *emitter.Bus

	// max-listeners value recorded before construction, applied to the
	// target exactly once during migration.
	maxSet bool
	max    int

	log zerolog.Logger
}

// attempt is one in-flight construction. Every caller that needs the
// target while it is running waits on the same attempt, so the factory
// runs once per attempt no matter how many callers race.
type attempt struct {
	done   chan struct{}
	target jsonrpc.Provider
	err    error
}

// Option configures a LazyProvider.
type Option func(*LazyProvider)

// WithLogger sets the proxy's logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(p *LazyProvider) { p.log = log }
}

// New creates a proxy around factory. No construction happens until the
// first call to Request, Send, SendAsync, or Warm.
func New(factory Factory, opts ...Option) *LazyProvider {
	p := &LazyProvider{
		factory: factory,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.buffer = emitter.New(emitter.WithLogger(p.log))
	return p
}

// Initialized reports whether the target has been constructed.
func (p *LazyProvider) Initialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target != nil
}

// ensure returns the target, constructing it first if needed. Concurrent
// callers share a single factory invocation. A caller whose ctx ends
// stops waiting but does not cancel the construction; the result still
// lands for everyone else.
func (p *LazyProvider) ensure(ctx context.Context) (jsonrpc.Provider, error) {
	p.mu.Lock()
	if p.target != nil {
		target := p.target
		p.mu.Unlock()
		return target, nil
	}
	if p.pending == nil {
		att := &attempt{done: make(chan struct{})}
		p.pending = att
		p.log.Debug().Msg("starting provider construction")
		go p.construct(att)
	}
	att := p.pending
	p.mu.Unlock()

	select {
	case <-att.done:
		return att.target, att.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// construct runs the factory, migrates buffered listeners on success, and
// resumes all waiters. On failure the proxy reverts to uninitialized so a
// later call retries; the buffer is left untouched.
func (p *LazyProvider) construct(att *attempt) {
	target, err := p.factory(context.Background())

	p.mu.Lock()
	if err != nil {
		p.pending = nil
		p.mu.Unlock()
		p.log.Warn().Err(err).Msg("provider construction failed")
		att.err = err
		close(att.done)
		return
	}
	p.migrate(target)
	p.target = target
	p.pending = nil
	p.mu.Unlock()

	p.log.Debug().Msg("provider constructed")
	att.target = target
	close(att.done)
}

// migrate moves every buffered listener onto the target in registration
// order, preserving fire-once semantics, then drains the buffer and
// applies a recorded max-listeners value. Caller holds p.mu, so no
// registration can interleave with the transfer.
func (p *LazyProvider) migrate(target jsonrpc.Provider) {
	for _, event := range p.buffer.EventNames() {
		for _, reg := range p.buffer.Registrations(event) {
			if reg.Once {
				target.Once(event, reg.Fn)
			} else {
				target.On(event, reg.Fn)
			}
		}
		p.buffer.RemoveAllListeners(event)
	}
	if p.maxSet {
		target.SetMaxListeners(p.max)
		p.maxSet = false
	}
}

// Request forwards a single call to the target, constructing it first if
// needed. Construction and call failures propagate unchanged.
func (p *LazyProvider) Request(ctx context.Context, req *jsonrpc.Request) (json.RawMessage, error) {
	target, err := p.ensure(ctx)
	if err != nil {
		return nil, err
	}
	return target.Request(ctx, req)
}

// Send forwards a method-and-params call to the target, constructing it
// first if needed.
func (p *LazyProvider) Send(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	target, err := p.ensure(ctx)
	if err != nil {
		return nil, err
	}
	return target.Send(ctx, method, params...)
}

// SendAsync forwards a callback-style call. Unlike Request and Send, a
// construction failure is delivered through cb rather than returned: the
// callback is the only error channel this shape has.
func (p *LazyProvider) SendAsync(req *jsonrpc.Request, cb jsonrpc.Callback) {
	go func() {
		target, err := p.ensure(context.Background())
		if err != nil {
			cb(err, nil)
			return
		}
		target.SendAsync(req, cb)
	}()
}
