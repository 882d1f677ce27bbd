package adc

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultIIODevice is the sysfs directory of the first IIO ADC.
const DefaultIIODevice = "/sys/bus/iio/devices/iio:device0"

// IIOReader reads raw samples from the Linux Industrial I/O sysfs interface
// (in_voltageN_raw attributes). Every Read triggers a fresh conversion.
type IIOReader struct {
	dir string
}

// NewIIOReader checks that dir exists and returns a reader for it.
func NewIIOReader(dir string) (*IIOReader, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open iio device: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("open iio device: %s is not a directory", dir)
	}
	return &IIOReader{dir: dir}, nil
}

// Read returns the raw sample of channel.
func (r *IIOReader) Read(channel int) (int, error) {
	path := filepath.Join(r.dir, fmt.Sprintf("in_voltage%d_raw", channel))
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read channel %d: %w", channel, err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse channel %d: %w", channel, err)
	}
	return v, nil
}

// Close is a no-op; sysfs attributes are opened per read.
func (r *IIOReader) Close() error {
	return nil
}
