// Package button turns analog samples from resistor-ladder keypads into
// discrete button presses. Classification is pure; only Scanner touches
// hardware, through an injected adc.Reader.
package button

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ID identifies a physical button. The set is closed: Program1..Program4 and Reset.
type ID int

const (
	Program1 ID = iota + 1
	Program2
	Program3
	Program4
	Reset
)

// ErrUnknownButton is returned for identities outside the closed set.
var ErrUnknownButton = errors.New("unknown button")

// All lists every valid identity in declaration order.
var All = []ID{Program1, Program2, Program3, Program4, Reset}

// Valid reports whether id belongs to the closed set.
func (id ID) Valid() bool {
	return id >= Program1 && id <= Reset
}

func (id ID) String() string {
	switch id {
	case Program1:
		return "PROGRAM1"
	case Program2:
		return "PROGRAM2"
	case Program3:
		return "PROGRAM3"
	case Program4:
		return "PROGRAM4"
	case Reset:
		return "RESET"
	}
	return fmt.Sprintf("BUTTON(%d)", int(id))
}

// ParseID parses a button name such as "program1" or "RESET".
func ParseID(s string) (ID, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, id := range All {
		if id.String() == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownButton, s)
}

// Threshold is the open band (Low, High) of raw ADC values that identifies a button.
type Threshold struct {
	ID   ID
	Low  int
	High int
}

// Matches reports whether sample lies strictly inside the band.
// A sample equal to Low or High never matches.
func (t Threshold) Matches(sample int) bool {
	return t.Low < sample && sample < t.High
}

// Group is the ordered set of thresholds sharing one analog channel.
// Thresholds are checked first-match-wins in slice order.
type Group struct {
	Channel    int
	Thresholds []Threshold
}

// Press is a recognized button for one scan tick.
type Press struct {
	Button  ID
	Time    time.Time
	Channel int
	Sample  int
}
