// Mock provider used by the proxy tests: an in-memory jsonrpc.Provider
// with scripted results and recorded calls.
package lazyrpc_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/telnet2/go-lazyrpc/pkg/emitter"
	"github.com/telnet2/go-lazyrpc/pkg/jsonrpc"
)

type mockProvider struct {
	*emitter.Bus

	mu      sync.Mutex
	calls   []string
	results map[string]json.RawMessage
	errs    map[string]error
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		Bus:     emitter.New(),
		results: make(map[string]json.RawMessage),
		errs:    make(map[string]error),
	}
}

// respond scripts a JSON result for a method.
func (m *mockProvider) respond(method, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[method] = json.RawMessage(result)
}

// fail scripts an error for a method.
func (m *mockProvider) fail(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[method] = err
}

func (m *mockProvider) calledMethods() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *mockProvider) Request(ctx context.Context, req *jsonrpc.Request) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req.Method)
	if err, ok := m.errs[req.Method]; ok {
		return nil, err
	}
	if result, ok := m.results[req.Method]; ok {
		return result, nil
	}
	return nil, fmt.Errorf("unscripted method %q", req.Method)
}

func (m *mockProvider) Send(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	return m.Request(ctx, jsonrpc.NewRequest(method, params...))
}

func (m *mockProvider) SendAsync(req *jsonrpc.Request, cb jsonrpc.Callback) {
	result, err := m.Request(context.Background(), req)
	if err != nil {
		cb(err, nil)
		return
	}
	cb(nil, &jsonrpc.Response{JSONRPC: jsonrpc.Version, ID: req.ID, Result: result})
}
