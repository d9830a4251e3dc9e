// Package lazyrpc provides a deferred-initialization proxy for JSON-RPC
// providers.
//
// A LazyProvider is usable the moment it is created: callers can register
// event listeners and issue calls before the underlying provider exists.
// The first remote call triggers the injected Factory exactly once, even
// under concurrency; listeners registered beforehand are moved onto the
// real provider in registration order once it is up. Event operations
// never trigger construction on their own.
//
//	proxy := lazyrpc.New(wsrpc.Factory("ws://localhost:8545"))
//	proxy.On("connect", func(args ...any) { ... })
//	result, err := proxy.Send(ctx, "eth_chainId")
//
// If the factory fails, the failure is reported to every caller waiting
// on it and the proxy returns to its uninitialized state, so a later call
// (or Warm) retries construction. Listeners survive failed attempts.
package lazyrpc
