package gpio

import "sync"

// FakeLine is a test double that records every write.
// Safe for concurrent use; indicator pulses write from timer goroutines.
type FakeLine struct {
	mu     sync.Mutex
	writes []bool
	value  bool
	closed bool

	// WriteError, if set, is returned by Write and the value is unchanged.
	WriteError error
}

// NewFakeLine creates a FakeLine that starts off.
func NewFakeLine() *FakeLine {
	return &FakeLine{}
}

// Write records the value.
func (f *FakeLine) Write(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteError != nil {
		return f.WriteError
	}
	f.writes = append(f.writes, on)
	f.value = on
	return nil
}

// Close marks the line closed and drives it off.
func (f *FakeLine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.value = false
	return nil
}

// Value returns the last written value.
func (f *FakeLine) Value() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Writes returns a copy of every recorded write.
func (f *FakeLine) Writes() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.writes...)
}

// Closed reports whether Close was called.
func (f *FakeLine) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// SetWriteError sets or clears the error returned by Write.
func (f *FakeLine) SetWriteError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WriteError = err
}

// Reset clears recorded writes.
func (f *FakeLine) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = nil
	f.value = false
	f.closed = false
	f.WriteError = nil
}
