package button

import "fmt"

// Classifier maps one set of channel samples to at most one button.
type Classifier struct {
	groups []Group
}

// NewClassifier validates groups and returns a Classifier that evaluates
// them in the given order. Every band must satisfy Low < High and carry an
// identity from the closed set; a channel may appear only once.
func NewClassifier(groups []Group) (*Classifier, error) {
	seen := make(map[int]bool)
	cp := make([]Group, 0, len(groups))
	for i, g := range groups {
		if seen[g.Channel] {
			return nil, fmt.Errorf("group %d: channel %d listed twice", i, g.Channel)
		}
		seen[g.Channel] = true
		for j, th := range g.Thresholds {
			if !th.ID.Valid() {
				return nil, fmt.Errorf("group %d threshold %d: %w: %d", i, j, ErrUnknownButton, int(th.ID))
			}
			if th.Low >= th.High {
				return nil, fmt.Errorf("group %d threshold %d (%s): low %d must be below high %d", i, j, th.ID, th.Low, th.High)
			}
		}
		cp = append(cp, Group{
			Channel:    g.Channel,
			Thresholds: append([]Threshold(nil), g.Thresholds...),
		})
	}
	return &Classifier{groups: cp}, nil
}

// Channels returns the analog channels in evaluation order.
func (c *Classifier) Channels() []int {
	out := make([]int, len(c.groups))
	for i, g := range c.groups {
		out[i] = g.Channel
	}
	return out
}

// Classify returns the first button whose band strictly contains the sample
// of its channel. Groups are evaluated in order, so when two channels match
// in the same call the earlier group wins. Channels missing from samples are
// skipped.
func (c *Classifier) Classify(samples map[int]int) (ID, bool) {
	id, _, ok := c.classify(samples)
	return id, ok
}

func (c *Classifier) classify(samples map[int]int) (ID, int, bool) {
	for _, g := range c.groups {
		v, ok := samples[g.Channel]
		if !ok {
			continue
		}
		for _, th := range g.Thresholds {
			if th.Matches(v) {
				return th.ID, g.Channel, true
			}
		}
	}
	return 0, 0, false
}
