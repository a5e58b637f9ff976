package mapping

import "fmt"

// Modulation is the radio modulation scheme of a DataRate.
type Modulation string

const (
	ModulationLoRa Modulation = "LORA"
	ModulationFSK  Modulation = "FSK"
)

// CodeRate is a closed enumeration of LoRa coding rates. Several on-disk
// spellings alias the same rate (e.g. "2/3" and "4/6" both mean Cr46);
// String always emits the canonical spelling.
type CodeRate int

const (
	CodeRateUndefined CodeRate = iota
	CodeRateCr45
	CodeRateCr46
	CodeRateCr47
	CodeRateCr48
	CodeRateCr38
	CodeRateCr26
	CodeRateCr14
	CodeRateCr16
	CodeRateCr56
	CodeRateCrLi45
	CodeRateCrLi46
	CodeRateCrLi48
)

func (c CodeRate) String() string {
	switch c {
	case CodeRateCr45:
		return "4/5"
	case CodeRateCr46:
		return "4/6"
	case CodeRateCr47:
		return "4/7"
	case CodeRateCr48:
		return "4/8"
	case CodeRateCr38:
		return "3/8"
	case CodeRateCr26:
		return "2/6"
	case CodeRateCr14:
		return "1/4"
	case CodeRateCr16:
		return "1/6"
	case CodeRateCr56:
		return "5/6"
	case CodeRateCrLi45:
		return "4/5LI"
	case CodeRateCrLi46:
		return "4/6LI"
	case CodeRateCrLi48:
		return "4/8LI"
	default:
		return ""
	}
}

// MarshalYAML implements yaml.Marshaler.
func (c CodeRate) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler, aliasing the spellings the
// on-air LoRaWAN CodeRate enum and older configs use onto the canonical
// values above.
func (c *CodeRate) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseCodeRate(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCodeRate aliases the spellings the on-air LoRaWAN CodeRate enum and
// older configs use onto the canonical values above.
func ParseCodeRate(s string) (CodeRate, error) {
	switch s {
	case "4/5":
		return CodeRateCr45, nil
	case "4/6", "2/3":
		return CodeRateCr46, nil
	case "4/7":
		return CodeRateCr47, nil
	case "4/8", "2/4", "1/2":
		return CodeRateCr48, nil
	case "3/8":
		return CodeRateCr38, nil
	case "2/6", "1/3":
		return CodeRateCr26, nil
	case "1/4":
		return CodeRateCr14, nil
	case "1/6":
		return CodeRateCr16, nil
	case "5/6":
		return CodeRateCr56, nil
	case "4/5LI":
		return CodeRateCrLi45, nil
	case "4/6LI":
		return CodeRateCrLi46, nil
	case "4/8LI":
		return CodeRateCrLi48, nil
	default:
		return CodeRateUndefined, fmt.Errorf("mapping: unknown code_rate %q", s)
	}
}

// DataRate is a canonical description of a radio data-rate, matched by
// value equality against the configured mappings.data_rates list.
type DataRate struct {
	Modulation      Modulation `yaml:"modulation"`
	SpreadingFactor uint8      `yaml:"spreading_factor,omitempty"`
	Bandwidth       uint32     `yaml:"bandwidth,omitempty"`
	CodeRate        *CodeRate  `yaml:"code_rate,omitempty"`
	Bitrate         uint32     `yaml:"bitrate,omitempty"`
}

func (d DataRate) equal(o DataRate) bool {
	if d.Modulation != o.Modulation {
		return false
	}
	if d.Modulation == ModulationLoRa {
		if d.SpreadingFactor != o.SpreadingFactor || d.Bandwidth != o.Bandwidth {
			return false
		}
		switch {
		case d.CodeRate == nil && o.CodeRate == nil:
			return true
		case d.CodeRate == nil || o.CodeRate == nil:
			return false
		default:
			return *d.CodeRate == *o.CodeRate
		}
	}
	return d.Bitrate == o.Bitrate
}

// DataRates maps a dr index to/from a DataRate, matched by equality
// against the configured list (not identity: callers build a DataRate
// from whatever the radio reports and look it up here).
type DataRates struct {
	rates []DataRate
}

// NewDataRates builds a DataRates table over the configured list, indexed
// in list order.
func NewDataRates(rates []DataRate) *DataRates {
	return &DataRates{rates: rates}
}

// ToIndex linear-searches for dr's equal configured entry.
func (t *DataRates) ToIndex(dr DataRate) (uint8, error) {
	for i, d := range t.rates {
		if d.equal(dr) {
			return uint8(i), nil
		}
	}
	return 0, fmt.Errorf("mapping: modulation does not map to a data-rate")
}

// FromIndex is a direct index lookup.
func (t *DataRates) FromIndex(dr uint8) (DataRate, error) {
	if int(dr) >= len(t.rates) {
		return DataRate{}, fmt.Errorf("mapping: data-rate %d does not map to a modulation", dr)
	}
	return t.rates[dr], nil
}
