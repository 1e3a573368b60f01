package pump

import "sync"

// Buffer is a thread-safe, append-only byte sink with a read cursor.
// A Reader appends to it from a drain loop while some other goroutine
// reads; that one-appender-one-reader pattern is the supported use.
type Buffer struct {
	mutex  sync.Mutex
	data   []byte
	cursor int
}

// Write appends p to the captured bytes.
// It implements io.Writer and never returns an error.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.data = append(b.data, p...)
	return len(p), nil
}

// Len returns how many bytes have been captured so far.
func (b *Buffer) Len() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.data)
}

// Bytes returns a copy of everything captured so far.
func (b *Buffer) Bytes() []byte {
	return b.Since(0)
}

// Since returns a copy of the bytes captured from offset off onward.
// An out of range offset yields nil.
func (b *Buffer) Since(off int) []byte {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if off < 0 || off > len(b.data) {
		return nil
	}
	out := make([]byte, len(b.data)-off)
	copy(out, b.data[off:])
	return out
}

// ReadNew returns a copy of the bytes appended since the previous
// ReadNew call and advances the cursor past them.
// Returns nil when nothing new has arrived.
func (b *Buffer) ReadNew() []byte {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.cursor == len(b.data) {
		return nil
	}
	out := make([]byte, len(b.data)-b.cursor)
	copy(out, b.data[b.cursor:])
	b.cursor = len(b.data)
	return out
}

// Rewind moves the read cursor back to the start
// without discarding anything.
func (b *Buffer) Rewind() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.cursor = 0
}

// Reset discards all captured bytes and rewinds the cursor.
func (b *Buffer) Reset() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.data = nil
	b.cursor = 0
}
