package lazyrpc

import (
	"github.com/telnet2/go-lazyrpc/pkg/emitter"
)

// backendLocked picks the emitter that currently holds the listeners:
// the target once constructed, the buffer before that. Caller holds p.mu.
func (p *LazyProvider) backendLocked() emitter.Emitter {
	if p.target != nil {
		return p.target
	}
	return p.buffer
}

// Registration and removal run under the proxy lock. Migration also runs
// under it, so a registration can never land in an already-drained buffer.

func (p *LazyProvider) On(event string, fn emitter.Listener) emitter.Emitter {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.backendLocked().On(event, fn)
	return p
}

func (p *LazyProvider) Once(event string, fn emitter.Listener) emitter.Emitter {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.backendLocked().Once(event, fn)
	return p
}

func (p *LazyProvider) PrependOn(event string, fn emitter.Listener) emitter.Emitter {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.backendLocked().PrependOn(event, fn)
	return p
}

func (p *LazyProvider) PrependOnce(event string, fn emitter.Listener) emitter.Emitter {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.backendLocked().PrependOnce(event, fn)
	return p
}

func (p *LazyProvider) Off(event string, fn emitter.Listener) emitter.Emitter {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.backendLocked().Off(event, fn)
	return p
}

func (p *LazyProvider) RemoveAllListeners(events ...string) emitter.Emitter {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.backendLocked().RemoveAllListeners(events...)
	return p
}

// Emit picks the backend under the lock but invokes listeners outside it,
// so a listener may call back into the proxy.
func (p *LazyProvider) Emit(event string, args ...any) bool {
	p.mu.Lock()
	backend := p.backendLocked()
	p.mu.Unlock()
	return backend.Emit(event, args...)
}

func (p *LazyProvider) Listeners(event string) []emitter.Listener {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backendLocked().Listeners(event)
}

func (p *LazyProvider) RawListeners(event string) []emitter.Listener {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backendLocked().RawListeners(event)
}

func (p *LazyProvider) ListenerCount(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backendLocked().ListenerCount(event)
}

func (p *LazyProvider) EventNames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backendLocked().EventNames()
}

// SetMaxListeners applies to the target when it exists; before that the
// value is recorded on the buffer and carried over during migration.
func (p *LazyProvider) SetMaxListeners(n int) emitter.Emitter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.target != nil {
		p.target.SetMaxListeners(n)
		return p
	}
	p.buffer.SetMaxListeners(n)
	p.maxSet = true
	p.max = n
	return p
}

func (p *LazyProvider) MaxListeners() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backendLocked().MaxListeners()
}
