package adc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// DefaultBaudRate matches the co-processor firmware UART setting.
const DefaultBaudRate = 115200

// DefaultMaxAge is how long a serial sample stays valid without refresh.
const DefaultMaxAge = time.Second

type sample struct {
	value int
	at    time.Time
}

// SerialReader reads samples streamed by an ADC co-processor over a serial
// port and keeps the latest value per channel. The firmware emits one line
// per conversion round: "channel:value[,channel:value...]", e.g. "4:1950,5:12".
type SerialReader struct {
	port     string
	baudRate int
	maxAge   time.Duration
	logger   *zap.SugaredLogger
	now      func() time.Time

	mu      sync.RWMutex
	latest  map[int]sample
	conn    serial.Port
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewSerialReader creates a reader for port. Zero baudRate or maxAge select
// the defaults. Call Connect before Read.
func NewSerialReader(port string, baudRate int, maxAge time.Duration, logger *zap.SugaredLogger) *SerialReader {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if maxAge == 0 {
		maxAge = DefaultMaxAge
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &SerialReader{
		port:     port,
		baudRate: baudRate,
		maxAge:   maxAge,
		logger:   logger,
		now:      time.Now,
		latest:   make(map[int]sample),
	}
}

// Connect opens the serial port and starts consuming lines.
func (r *SerialReader) Connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("already connected")
	}
	conn, err := serial.Open(r.port, &serial.Mode{BaudRate: r.baudRate})
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", r.port, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.conn = conn
	r.cancel = cancel
	r.done = make(chan struct{})
	r.started = true

	go func() {
		defer close(r.done)
		r.consume(ctx, conn)
	}()
	return nil
}

// consume parses lines from src until EOF, error or cancellation.
func (r *SerialReader) consume(ctx context.Context, src io.Reader) {
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		values, err := parseLine(line)
		if err != nil {
			r.logger.Warnf("adc serial: bad line %q: %v", line, err)
			continue
		}
		at := r.now()
		r.mu.Lock()
		for ch, v := range values {
			r.latest[ch] = sample{value: v, at: at}
		}
		r.mu.Unlock()
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		r.logger.Errorf("adc serial: read: %v", err)
	}
}

// Read returns the latest sample of channel, or ErrNoSample if none has
// arrived within maxAge.
func (r *SerialReader) Read(channel int) (int, error) {
	r.mu.RLock()
	s, ok := r.latest[channel]
	r.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("channel %d: %w", channel, ErrNoSample)
	}
	if age := r.now().Sub(s.at); age > r.maxAge {
		return 0, fmt.Errorf("channel %d: %w (stale %v)", channel, ErrNoSample, age)
	}
	return s.value, nil
}

// Close stops the reader goroutine and closes the port.
func (r *SerialReader) Close() error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = false
	r.cancel()
	conn, done := r.conn, r.done
	r.conn = nil
	r.mu.Unlock()

	err := conn.Close()
	<-done
	if err != nil {
		return fmt.Errorf("close serial port: %w", err)
	}
	return nil
}

func parseLine(line string) (map[int]int, error) {
	out := make(map[int]int)
	for _, field := range strings.Split(line, ",") {
		chStr, valStr, ok := strings.Cut(strings.TrimSpace(field), ":")
		if !ok {
			return nil, fmt.Errorf("field %q: expected channel:value", field)
		}
		ch, err := strconv.Atoi(chStr)
		if err != nil {
			return nil, fmt.Errorf("invalid channel %q: %w", chStr, err)
		}
		v, err := strconv.Atoi(valStr)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", valStr, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("negative value %d on channel %d", v, ch)
		}
		out[ch] = v
	}
	return out, nil
}
