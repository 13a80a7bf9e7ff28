//go:build unix

package secmem

import "golang.org/x/sys/unix"

func (b *Buffer) lock() error {
	if len(b.data) == 0 {
		return nil
	}
	return unix.Mlock(b.data)
}

func (b *Buffer) unlock() {
	if len(b.data) == 0 {
		return
	}
	unix.Munlock(b.data)
}

// DisableCoreDumps sets RLIMIT_CORE to zero so a crash cannot write
// passphrase bytes to a core file.
func DisableCoreDumps() error {
	return unix.Setrlimit(unix.RLIMIT_CORE, &unix.Rlimit{Cur: 0, Max: 0})
}
