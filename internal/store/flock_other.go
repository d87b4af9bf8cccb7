//go:build !unix

package store

// lockFile is a no-op where advisory locks are not available. The in-process lock still applies.
func lockFile(string) (func(), error) {
	return func() {}, nil
}
