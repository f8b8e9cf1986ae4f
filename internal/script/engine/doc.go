/*
Package engine runs one music-source script in an isolated JavaScript
interpreter using goja.

# Overview

Each Engine owns exactly one goja runtime and one dedicated worker
goroutine. The runtime is not safe for concurrent entry, so every
operation (interface registration, evaluation, calls) is marshalled
onto the worker lane and executed in submission order. Callers from any
goroutine see synchronous, FIFO semantics per engine; separate engines
never block each other.

# Async call protocol

The interpreter cannot natively await host futures, so CallAsync builds
the correlation entirely in script text plus one registered bridge
object:

 1. A fresh call id is generated and a pending slot registered.
 2. A small dispatcher script is evaluated on the lane. It looks up the
    target function, invokes it, and funnels synchronous returns,
    thenable resolutions and thrown errors through a single
    resolve/reject pair tagged with the call id.
 3. The host waits on the slot up to a fixed ceiling. Timeout removes
    the slot and fails the caller, but does not interrupt the running
    interpreter; a stuck script keeps its own lane busy until it
    finishes, and its late callback is discarded. This is a known,
    accepted limitation.

# Failure model

A script that fails top-level evaluation leaves the engine unusable for
that source (reported by the manager as absent). A runtime error inside
one invoked function fails only that call.
*/
package engine
