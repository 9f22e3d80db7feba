// Package store loads, validates and caches rule-sets per (jurisdiction,
// product) scope.
//
// Loading is fail-closed: schema violations, duplicate rule IDs, unknown
// condition identifiers and safeguard breaches all reject the whole
// document at load time, never at evaluation time. Cached sets are
// immutable and shared across concurrent evaluations; invalidation is
// content-hash driven (via an fsnotify watcher marking entries dirty)
// rather than TTL based, and concurrent loads of one scope are collapsed
// with singleflight.
package store
