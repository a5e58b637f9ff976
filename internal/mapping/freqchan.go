// Package mapping implements the gateway's static lookup tables: mesh
// channel index <-> frequency, radio modulation <-> data-rate index, and
// tx power <-> index, all driven off the configured mappings.* lists.
package mapping

import "fmt"

// Channels maps a mesh channel index to its configured frequency and back.
type Channels struct {
	frequencies []uint32
}

// NewChannels builds a Channels table over the configured frequency list,
// indexed in list order.
func NewChannels(frequencies []uint32) *Channels {
	return &Channels{frequencies: frequencies}
}

// FrequencyToChan is a linear search for the channel index of freq.
func (c *Channels) FrequencyToChan(freq uint32) (uint8, error) {
	for i, f := range c.frequencies {
		if f == freq {
			return uint8(i), nil
		}
	}
	return 0, fmt.Errorf("mapping: frequency %d does not map to a channel", freq)
}

// ChanToFrequency is a direct index lookup.
func (c *Channels) ChanToFrequency(ch uint8) (uint32, error) {
	if int(ch) >= len(c.frequencies) {
		return 0, fmt.Errorf("mapping: channel %d does not map to a frequency", ch)
	}
	return c.frequencies[ch], nil
}
