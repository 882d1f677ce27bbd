package button

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/heat-timer/internal/adc"
)

// IdleFloor is the raw value above which samples are logged at debug level.
// A released ladder keypad reads close to zero.
const IdleFloor = 100

// DefaultBuffer is the default capacity of the press channel.
const DefaultBuffer = 8

// Scanner polls every classifier channel once per tick and emits at most one
// Press per tick. It performs no debouncing: holding a button produces one
// press per tick, and consumers must be idempotent under repeats.
type Scanner struct {
	classifier *Classifier
	reader     adc.Reader
	presses    chan Press
	logger     *zap.SugaredLogger
}

// NewScanner creates a Scanner reading from r. buffer sets the press channel
// capacity (DefaultBuffer when <= 0). A nil logger disables logging.
func NewScanner(c *Classifier, r adc.Reader, buffer int, logger *zap.SugaredLogger) *Scanner {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Scanner{
		classifier: c,
		reader:     r,
		presses:    make(chan Press, buffer),
		logger:     logger,
	}
}

// Presses returns the channel presses are dispatched on.
func (s *Scanner) Presses() <-chan Press {
	return s.presses
}

// Scan performs one tick: read every channel, classify, and return the press
// if any. Channels that fail to read are left out of classification and their
// errors are returned joined; a press from the remaining channels is still
// reported.
func (s *Scanner) Scan(now time.Time) (Press, bool, error) {
	channels := s.classifier.Channels()
	samples := make(map[int]int, len(channels))
	var errs []error
	for _, ch := range channels {
		v, err := s.reader.Read(ch)
		if err != nil {
			errs = append(errs, fmt.Errorf("read channel %d: %w", ch, err))
			continue
		}
		if v > IdleFloor {
			s.logger.Debugf("channel %d sample %d", ch, v)
		}
		samples[ch] = v
	}

	id, ch, ok := s.classifier.classify(samples)
	if !ok {
		return Press{}, false, errors.Join(errs...)
	}
	return Press{Button: id, Time: now, Channel: ch, Sample: samples[ch]}, true, errors.Join(errs...)
}

// Run scans on every value received from tick until ctx is cancelled.
// Dispatch never blocks: if the press channel is full the press is dropped
// and the next tick supersedes it.
func (s *Scanner) Run(ctx context.Context, tick <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-tick:
			p, ok, err := s.Scan(t)
			if err != nil {
				s.logger.Warnf("scan: %v", err)
			}
			if !ok {
				continue
			}
			s.logger.Infof("button %s pressed (channel %d sample %d)", p.Button, p.Channel, p.Sample)
			select {
			case s.presses <- p:
			default:
				s.logger.Warnf("press channel full, dropping %s", p.Button)
			}
		}
	}
}
