// Package cache provides the synthesis cache used during one compilation.
// Each (voice, text) pair is rendered at most once; concurrent lookups of the
// same pair share a single render. Failures are never cached, and nothing
// outlives the compilation that created the cache.
package cache
