package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/heat-timer/internal/button"
)

// Mode selects the timing preset.
type Mode string

const (
	// ModeDevelop uses second-scale durations for bench testing.
	ModeDevelop Mode = "develop"
	// ModeProduction uses the real appliance durations.
	ModeProduction Mode = "production"
)

// ErrUnknownMode is returned for modes other than develop and production.
var ErrUnknownMode = errors.New("unknown mode")

// ParseMode parses a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeDevelop, ModeProduction:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Timing is the fixed duration table for one mode.
type Timing struct {
	Heat time.Duration
	Cool time.Duration
	// Programs holds the job durations of Program1..Program4.
	Programs [4]time.Duration
}

// TimingFor returns the preset for mode.
func TimingFor(mode Mode) (Timing, error) {
	switch mode {
	case ModeDevelop:
		return Timing{
			Heat:     4 * time.Second,
			Cool:     1 * time.Second,
			Programs: [4]time.Duration{120 * time.Second, 90 * time.Second, 60 * time.Second, 30 * time.Second},
		}, nil
	case ModeProduction:
		return Timing{
			Heat:     4 * time.Minute,
			Cool:     1 * time.Minute,
			Programs: [4]time.Duration{8 * time.Hour, 6 * time.Hour, 4 * time.Hour, 2 * time.Hour},
		}, nil
	}
	return Timing{}, fmt.Errorf("%w: %q", ErrUnknownMode, string(mode))
}

// ProgramDuration returns the job duration selected by id. Reset maps to
// zero. Identities outside the closed set are rejected.
func (t Timing) ProgramDuration(id button.ID) (time.Duration, error) {
	switch id {
	case button.Program1:
		return t.Programs[0], nil
	case button.Program2:
		return t.Programs[1], nil
	case button.Program3:
		return t.Programs[2], nil
	case button.Program4:
		return t.Programs[3], nil
	case button.Reset:
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %s", button.ErrUnknownButton, id)
}
