package mapping

import "fmt"

// TxPowers maps a tx_power index to/from its configured EIRP value (in
// dBm), indexed in list order.
type TxPowers struct {
	values []int32
}

// NewTxPowers builds a TxPowers table over the configured list.
func NewTxPowers(values []int32) *TxPowers {
	return &TxPowers{values: values}
}

// ToIndex returns the index of the largest configured tx power that does
// not exceed txPower — the closest match that the radio is still allowed
// to use.
func (t *TxPowers) ToIndex(txPower int32) (uint8, error) {
	var (
		found bool
		idx   uint8
	)

	for i, p := range t.values {
		if p <= txPower {
			if !found || t.values[idx] < p {
				idx = uint8(i)
				found = true
			}
		}
	}

	if !found {
		return 0, fmt.Errorf("mapping: no tx power equal or lower than %d", txPower)
	}
	return idx, nil
}

// FromIndex is a direct index lookup.
func (t *TxPowers) FromIndex(index uint8) (int32, error) {
	if int(index) >= len(t.values) {
		return 0, fmt.Errorf("mapping: tx power index %d does not exist", index)
	}
	return t.values[index], nil
}
