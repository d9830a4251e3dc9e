// Package jsonrpc defines JSON-RPC 2.0 wire types and the Provider
// capability contract: the request/response call surface combined with the
// emitter event surface. Anything that satisfies Provider can stand behind
// the lazy proxy, and the proxy itself satisfies Provider.
package jsonrpc
