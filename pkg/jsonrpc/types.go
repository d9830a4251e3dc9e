package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/telnet2/go-lazyrpc/pkg/emitter"
)

// Version is the JSON-RPC protocol version spoken on the wire.
const Version = "2.0"

// Request is a JSON-RPC 2.0 request or notification. A nil ID marks a
// notification; no response is expected for it.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// NewRequest builds a request for method. Params are positional; none
// omits the field.
func NewRequest(method string, params ...any) *Request {
	req := &Request{JSONRPC: Version, Method: method}
	if len(params) > 0 {
		req.Params = params
	}
	return req
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// UnmarshalResult decodes the result into v.
func (r *Response) UnmarshalResult(v any) error {
	if r.Error != nil {
		return r.Error
	}
	if len(r.Result) == 0 {
		return fmt.Errorf("jsonrpc: empty result")
	}
	return json.Unmarshal(r.Result, v)
}

// GetResult extracts a path from the result. An empty path returns the
// whole result. The lookup never fails; absent paths yield a zero Result.
func (r *Response) GetResult(path string) gjson.Result {
	if path == "" {
		return gjson.ParseBytes(r.Result)
	}
	return gjson.GetBytes(r.Result, path)
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc: %s (code %d)", e.Message, e.Code)
}

// Callback receives the outcome of a callback-style call. Exactly one of
// err and resp is meaningful: on failure resp is nil, on success err is
// nil and resp carries the wire response (which may itself hold a
// Response.Error from the server).
type Callback func(err error, resp *Response)

// Provider is the combined capability of a JSON-RPC provider: three call
// shapes plus the event subscription surface. The remote-call methods
// pass server-side failures through unchanged.
type Provider interface {
	// Request performs a single call and returns the raw result.
	Request(ctx context.Context, req *Request) (json.RawMessage, error)
	// Send performs a call from a method name and positional params.
	Send(ctx context.Context, method string, params ...any) (json.RawMessage, error)
	// SendAsync performs a call and reports the outcome through cb
	// instead of a return value. It never blocks the caller.
	SendAsync(req *Request, cb Callback)

	emitter.Emitter
}
