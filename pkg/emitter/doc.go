// Package emitter provides an ordered, introspectable event emitter.
//
// The Emitter interface models the familiar on/once/emit surface: listeners
// are invoked in registration order, fire-once listeners are removed before
// their first invocation, and registration operations return the emitter so
// calls can be chained. Bus is the in-memory implementation; it also mirrors
// every emission onto a watermill gochannel so emissions can be bridged into
// message-based pipelines via Stream.
package emitter
