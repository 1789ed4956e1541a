// Package redisstore is a Redis-backed credential provider: per-identity
// credential hashes, an atomic Lua-scripted lockout counter with leaky-bucket
// decay, and a content-addressed shared-suite table with an INCR id
// allocator.
package redisstore
