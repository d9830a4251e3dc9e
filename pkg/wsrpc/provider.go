// Package wsrpc implements a JSON-RPC 2.0 provider over a WebSocket
// connection. It satisfies jsonrpc.Provider, so it can be placed behind
// the lazy proxy via Factory. Server notifications surface as events: a
// generic "message" event carrying the notification plus an event named
// after the notification method carrying its params.
package wsrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	lazyrpc "github.com/telnet2/go-lazyrpc"
	"github.com/telnet2/go-lazyrpc/pkg/emitter"
	"github.com/telnet2/go-lazyrpc/pkg/jsonrpc"
)

var _ jsonrpc.Provider = (*Provider)(nil)

// DefaultDialTimeout bounds the WebSocket handshake when the dial context
// has no deadline of its own.
const DefaultDialTimeout = 30 * time.Second

// Provider is a WebSocket-backed jsonrpc.Provider. Its event surface is
// an embedded emitter bus; "connect" fires when the read loop starts and
// "disconnect" fires with the terminal error when it stops.
type Provider struct {
	*emitter.Bus

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan *jsonrpc.Response
	closed  bool

	log zerolog.Logger
}

type options struct {
	dialer *websocket.Dialer
	header http.Header
	log    zerolog.Logger
}

// Option configures Dial.
type Option func(*options)

// WithDialer replaces the default websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithHeader sets HTTP headers sent during the handshake.
func WithHeader(h http.Header) Option {
	return func(o *options) { o.header = h }
}

// WithLogger sets the provider's logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// Dial connects to a JSON-RPC WebSocket endpoint and starts the read
// loop. A handshake failure is returned as-is.
func Dial(ctx context.Context, url string, opts ...Option) (*Provider, error) {
	o := &options{
		dialer: &websocket.Dialer{HandshakeTimeout: DefaultDialTimeout},
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	conn, resp, err := o.dialer.DialContext(ctx, url, o.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("wsrpc: dial %s: %w (status %s)", url, err, resp.Status)
		}
		return nil, fmt.Errorf("wsrpc: dial %s: %w", url, err)
	}

	p := &Provider{
		Bus:     emitter.New(emitter.WithLogger(o.log)),
		conn:    conn,
		pending: make(map[string]chan *jsonrpc.Response),
		log:     o.log,
	}
	go p.readLoop(url)
	return p, nil
}

// Factory adapts Dial to the lazy proxy's factory shape.
func Factory(url string, opts ...Option) lazyrpc.Factory {
	return func(ctx context.Context) (jsonrpc.Provider, error) {
		return Dial(ctx, url, opts...)
	}
}

// wireMessage is the superset of a response and a notification frame.
type wireMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpc.Error  `json:"error,omitempty"`
}

// readLoop dispatches incoming frames until the connection dies, then
// fails every pending call and emits "disconnect".
func (p *Provider) readLoop(url string) {
	p.Emit("connect", url)

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			p.shutdown(err)
			return
		}

		var msg wireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			p.log.Debug().Err(err).Msg("dropping unparsable frame")
			continue
		}

		if msg.Method != "" {
			p.dispatchNotification(&msg)
			continue
		}
		p.dispatchResponse(&msg)
	}
}

func (p *Provider) dispatchNotification(msg *wireMessage) {
	var params any
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			p.log.Debug().Err(err).Str("method", msg.Method).Msg("dropping notification params")
		}
	}
	p.Emit("message", &jsonrpc.Request{
		JSONRPC: msg.JSONRPC,
		Method:  msg.Method,
		Params:  params,
	})
	p.Emit(msg.Method, params)
}

func (p *Provider) dispatchResponse(msg *wireMessage) {
	key := fmt.Sprint(msg.ID)

	p.mu.Lock()
	ch, ok := p.pending[key]
	if ok {
		delete(p.pending, key)
	}
	p.mu.Unlock()

	if !ok {
		p.log.Debug().Str("id", key).Msg("dropping response with no pending call")
		return
	}
	ch <- &jsonrpc.Response{JSONRPC: msg.JSONRPC, ID: msg.ID, Result: msg.Result, Error: msg.Error}
}

// shutdown fails all pending calls with err and emits "disconnect". It is
// safe to call more than once; only the first call has any effect.
func (p *Provider) shutdown(err error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	pending := p.pending
	p.pending = make(map[string]chan *jsonrpc.Response)
	p.mu.Unlock()

	for _, ch := range pending {
		close(ch)
	}
	p.log.Debug().Err(err).Int("pending", len(pending)).Msg("connection closed")
	p.Emit("disconnect", err)
}

// call sends req and waits for its response frame.
func (p *Provider) call(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	if req.JSONRPC == "" {
		req.JSONRPC = jsonrpc.Version
	}
	if req.ID == nil {
		req.ID = ulid.Make().String()
	}
	key := fmt.Sprint(req.ID)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("wsrpc: connection closed")
	}
	ch := make(chan *jsonrpc.Response, 1)
	p.pending[key] = ch
	p.mu.Unlock()

	if err := p.write(req); err != nil {
		p.mu.Lock()
		delete(p.pending, key)
		p.mu.Unlock()
		return nil, err
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("wsrpc: connection closed")
		}
		return resp, nil
	case <-ctx.Done():
		p.mu.Lock()
		delete(p.pending, key)
		p.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (p *Provider) write(v any) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteJSON(v)
}

// Request performs a call and returns the raw result. A server-side error
// object is returned unchanged as a *jsonrpc.Error.
func (p *Provider) Request(ctx context.Context, req *jsonrpc.Request) (json.RawMessage, error) {
	resp, err := p.call(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

// Send performs a call from a method name and positional params.
func (p *Provider) Send(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	return p.Request(ctx, jsonrpc.NewRequest(method, params...))
}

// SendAsync performs a call and reports its outcome through cb. Transport
// failures arrive as cb's error; a server-side error object arrives
// inside the response, mirroring the wire.
func (p *Provider) SendAsync(req *jsonrpc.Request, cb jsonrpc.Callback) {
	go func() {
		resp, err := p.call(context.Background(), req)
		if err != nil {
			cb(err, nil)
			return
		}
		cb(nil, resp)
	}()
}

// Close tears down the connection. Pending calls fail and "disconnect"
// fires once the read loop notices.
func (p *Provider) Close() error {
	err := p.conn.Close()
	// The read loop may never have run if the peer vanished mid-handshake;
	// make sure pending calls are failed either way.
	p.shutdown(fmt.Errorf("wsrpc: connection closed"))
	return err
}
