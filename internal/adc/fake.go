package adc

import (
	"fmt"
	"sync"
)

// FakeReader is a test double serving scripted samples per channel.
// Each Read consumes the next sample of that channel; once exhausted the
// last sample repeats. Safe for concurrent use.
type FakeReader struct {
	mu      sync.Mutex
	samples map[int][]int
	index   map[int]int
	errs    map[int]error
	closed  bool
}

// NewFakeReader creates a FakeReader with the given per-channel scripts.
func NewFakeReader(samples map[int][]int) *FakeReader {
	f := &FakeReader{
		samples: make(map[int][]int),
		index:   make(map[int]int),
		errs:    make(map[int]error),
	}
	for ch, s := range samples {
		f.samples[ch] = append([]int(nil), s...)
	}
	return f
}

// Read returns the next scripted sample for channel.
func (f *FakeReader) Read(channel int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.errs[channel]; err != nil {
		return 0, err
	}
	s := f.samples[channel]
	if len(s) == 0 {
		return 0, fmt.Errorf("channel %d: %w", channel, ErrNoSample)
	}
	i := f.index[channel]
	if i < len(s)-1 {
		f.index[channel] = i + 1
	}
	return s[i], nil
}

// Set replaces the script of channel with a single constant value.
func (f *FakeReader) Set(channel, value int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples[channel] = []int{value}
	f.index[channel] = 0
}

// SetError makes reads of channel fail with err (nil clears it).
func (f *FakeReader) SetError(channel int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[channel] = err
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *FakeReader) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
