package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// durationKeys are the mapping keys decoded into time.Duration.
var durationKeys = map[string]bool{
	"period":       true,
	"max_age":      true,
	"pulse_period": true,
	"pulse_width":  true,
	"heartbeat":    true,
}

// normalizeDurations rewrites a bare 0 on a duration key as "0s" so it
// decodes like any other duration. Other unitless numbers are rejected: a
// scan period of 200 is far more likely to mean milliseconds than seconds.
func normalizeDurations(n *yaml.Node) error {
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			if !durationKeys[key.Value] || val.Kind != yaml.ScalarNode {
				continue
			}
			switch val.ShortTag() {
			case "!!int", "!!float":
			default:
				continue
			}
			if val.Value != "0" {
				return fmt.Errorf("line %d: %s: %s has no unit, write e.g. %q or %q",
					val.Line, key.Value, val.Value, val.Value+"s", val.Value+"ms")
			}
			val.Value = "0s"
			val.Tag = "!!str"
		}
	}
	for _, child := range n.Content {
		if err := normalizeDurations(child); err != nil {
			return err
		}
	}
	return nil
}
