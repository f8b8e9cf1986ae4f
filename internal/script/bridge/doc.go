/*
Package bridge implements the host capability objects exposed into the
script sandbox: HTTP, crypto and logging.

Bridge operations are the only way sandboxed code reaches the network or
performs cryptography. Every operation fails closed to an empty or benign
value instead of throwing into the sandbox, so a misbehaving script cannot
crash the host through exception propagation. Failures are still
recorded host-side through structured logging.

HTTP calls are synchronous from the sandbox's point of view. They run on
the owning engine's lane, so a slow remote stalls only its own script.
*/
package bridge
