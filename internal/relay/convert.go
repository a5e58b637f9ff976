package relay

import (
	"fmt"

	"github.com/agsys/gateway-mesh/internal/gw"
	"github.com/agsys/gateway-mesh/internal/mapping"
)

// modulationToDataRate converts a radio's reported Modulation into the
// canonical DataRate shape the mappings.data_rates table is keyed on.
func modulationToDataRate(mod *gw.Modulation) (mapping.DataRate, error) {
	if mod == nil {
		return mapping.DataRate{}, fmt.Errorf("relay: modulation is nil")
	}

	switch {
	case mod.Lora != nil:
		if mod.Lora.CodeRate == gw.CodeRateUndefined {
			return mapping.DataRate{}, fmt.Errorf("relay: code_rate is undefined")
		}
		cr := mapping.CodeRate(mod.Lora.CodeRate)
		return mapping.DataRate{
			Modulation:      mapping.ModulationLoRa,
			SpreadingFactor: uint8(mod.Lora.SpreadingFactor),
			Bandwidth:       mod.Lora.Bandwidth,
			CodeRate:        &cr,
		}, nil
	case mod.Fsk != nil:
		return mapping.DataRate{Modulation: mapping.ModulationFSK, Bitrate: mod.Fsk.Datarate}, nil
	default:
		return mapping.DataRate{}, fmt.Errorf("relay: modulation has no parameters")
	}
}

// dataRateToModulation is modulationToDataRate's inverse, used when
// re-emitting a relayed frame on the physical radio. polarizationInversion
// is always true for LoRaWAN downlinks transmitted to an end-device, and
// false for gateway-to-gateway mesh traffic.
func dataRateToModulation(dr mapping.DataRate, polarizationInversion bool) *gw.Modulation {
	if dr.Modulation == mapping.ModulationLoRa {
		cr := gw.CodeRateUndefined
		if dr.CodeRate != nil {
			cr = gw.CodeRate(*dr.CodeRate)
		}
		return &gw.Modulation{Lora: &gw.LoraModulationInfo{
			Bandwidth:             dr.Bandwidth,
			SpreadingFactor:       uint32(dr.SpreadingFactor),
			CodeRate:              cr,
			PolarizationInversion: polarizationInversion,
		}}
	}
	return &gw.Modulation{Fsk: &gw.FskModulationInfo{FrequencyDeviation: dr.Bitrate / 2, Datarate: dr.Bitrate}}
}
