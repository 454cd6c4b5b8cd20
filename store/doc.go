/*
Package store implements an in-memory keyed record store with per-key
exclusive mutation.

Every record lives under a binary key in its own slot. A slot owns a lock
that serializes all mutations of that record, so that two operations on the
same key never interleave, while operations on different keys run
concurrently. Records never leave the store by reference. Reads return a deep
copy and writes go through Update, which applies a transition function to a
copy and commits the result only when the whole transition succeeded.

An ordered index over all keys allows deterministic range iteration.
*/
package store
