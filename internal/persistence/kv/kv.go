// Package kv abstracts the string-keyed persistence medium the exploration
// store writes through. The interface mirrors a browser local-storage surface
// (get/set/delete/enumerate) so eviction and instance-isolation logic can run
// unchanged against an in-memory fake or the sqlite-backed store.
package kv

import "errors"

// ErrQuotaExceeded is returned by Set when the medium is out of space.
// Callers may free keys and retry.
var ErrQuotaExceeded = errors.New("kv: quota exceeded")

// Store is a synchronous string-keyed store.
type Store interface {
	// Get returns the stored value and whether the key exists.
	Get(key string) (string, bool)
	// Set writes a value, replacing any previous one.
	Set(key, value string) error
	// Delete removes a key; deleting a missing key is a no-op.
	Delete(key string)
	// Keys lists every stored key with the given prefix, in no defined order.
	Keys(prefix string) []string
}
