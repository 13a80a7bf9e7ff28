// Package secmem provides owned buffers for passphrases and other
// sensitive byte strings.
//
// A Buffer guarantees that its backing memory is overwritten with zeros
// when it is destroyed, no matter which code path releases it. Buffers
// are never copied implicitly: the only way to duplicate the contents is
// to read Bytes() and take responsibility for the copy.
package secmem

import (
	"runtime"
	"sync"
)

// Buffer holds sensitive bytes and wipes them on Destroy.
// The memory is locked against swapping where the platform allows it.
type Buffer struct {
	mu     sync.Mutex
	data   []byte
	locked bool
}

// New returns a Buffer with the given size, zero-filled.
func New(size int) *Buffer {
	b := &Buffer{data: make([]byte, size)}

	// Lock failure is non-fatal: unprivileged processes may exceed
	// RLIMIT_MEMLOCK and must still be able to prompt.
	if err := b.lock(); err == nil {
		b.locked = true
	}

	// Backstop only. Callers are expected to Destroy explicitly.
	runtime.SetFinalizer(b, func(b *Buffer) { b.Destroy() })

	return b
}

// FromBytes moves data into a new Buffer. The source slice is wiped
// after the copy so the caller is not left holding a second cleartext
// copy.
func FromBytes(data []byte) *Buffer {
	b := New(len(data))
	copy(b.data, data)
	Wipe(data)
	return b
}

// Bytes returns the backing slice. The slice must be used immediately
// and never stored; it becomes all-zero once Destroy runs.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data
}

// Len returns the number of bytes held.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Destroy wipes and releases the buffer. It is idempotent; the wipe
// itself happens exactly once.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.data == nil {
		return
	}

	wipeBytes(b.data)
	if b.locked {
		b.unlock()
		b.locked = false
	}
	b.data = nil
}

// Wipe overwrites a byte slice with zeros.
func Wipe(data []byte) {
	wipeBytes(data)
}

func wipeBytes(data []byte) {
	if len(data) == 0 {
		return
	}

	for i := range data {
		data[i] = 0
	}

	// Keep the slice alive until the writes have landed.
	runtime.KeepAlive(data)
}
