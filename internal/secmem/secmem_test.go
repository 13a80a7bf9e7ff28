package secmem

import (
	"bytes"
	"testing"
)

func TestFromBytesWipesSource(t *testing.T) {
	src := []byte("hunter2")
	b := FromBytes(src)
	defer b.Destroy()

	if !bytes.Equal(b.Bytes(), []byte("hunter2")) {
		t.Errorf("buffer contents = %q", b.Bytes())
	}
	for i, c := range src {
		if c != 0 {
			t.Fatalf("source byte %d not wiped: %x", i, c)
		}
	}
}

func TestDestroyZeroes(t *testing.T) {
	b := FromBytes([]byte("secret"))
	backing := b.Bytes()

	b.Destroy()

	for i, c := range backing {
		if c != 0 {
			t.Fatalf("backing byte %d not zeroed: %x", i, c)
		}
	}
	if b.Bytes() != nil {
		t.Error("Bytes after Destroy should be nil")
	}
	if b.Len() != 0 {
		t.Errorf("Len after Destroy = %d", b.Len())
	}
}

func TestDestroyIdempotent(t *testing.T) {
	b := New(16)
	b.Destroy()
	b.Destroy() // must not panic or double-unlock
}

func TestWipe(t *testing.T) {
	data := []byte{1, 2, 3}
	Wipe(data)
	for i, c := range data {
		if c != 0 {
			t.Errorf("byte %d = %x", i, c)
		}
	}
	Wipe(nil) // must not panic
}

func TestNewZeroSize(t *testing.T) {
	b := New(0)
	defer b.Destroy()
	if b.Len() != 0 {
		t.Errorf("Len = %d", b.Len())
	}
}
