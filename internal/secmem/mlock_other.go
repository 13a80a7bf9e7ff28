//go:build !unix

package secmem

func (b *Buffer) lock() error { return nil }

func (b *Buffer) unlock() {}

// DisableCoreDumps is a no-op on platforms without RLIMIT_CORE.
func DisableCoreDumps() error { return nil }
