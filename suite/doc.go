// Package suite implements the multi-stage password credential pipeline: an
// ordered chain of hashing handlers that encrypts a plaintext into a stored
// chain, replays the chain to verify a login attempt, partitions a chain into
// its deduplicable (shared) and per-user (intrinsic) halves, and serializes
// chains to a portable JSON form.
//
// Handlers are resolved through an explicit [Registry] built once at startup
// and immutable afterwards. Verification always ends in a constant-time
// comparison, and checks with nothing to verify still execute a dummy
// comparison so that latency does not reveal whether an account exists.
package suite
