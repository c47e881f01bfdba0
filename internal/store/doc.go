// Package store provides the shell's persistence: a secure store sealing
// values at rest for the session-token mirror, and a plain file store for
// non-sensitive user data. Both are cleared on logout, independently.
package store
