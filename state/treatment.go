package state

import "fmt"

// Treatment is the fan-out policy of an address.
type Treatment uint8

const (
	TreatmentMulticastFlood Treatment = iota
	TreatmentMulticastOnce
	TreatmentAnycastClosest
	TreatmentAnycastBalanced
	TreatmentLinkBalanced
)

var treatmentNames = map[Treatment]string{
	TreatmentMulticastFlood:  "flood",
	TreatmentMulticastOnce:   "once",
	TreatmentAnycastClosest:  "closest",
	TreatmentAnycastBalanced: "balanced",
	TreatmentLinkBalanced:    "link",
}

func (t Treatment) String() string {
	if name, ok := treatmentNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Treatment(%d)", uint8(t))
}

func (t Treatment) MarshalText() ([]byte, error) {
	if _, ok := treatmentNames[t]; !ok {
		return nil, fmt.Errorf("unknown treatment %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *Treatment) UnmarshalText(text []byte) error {
	s := string(text)
	// "multicast" is the distribution name used by address configuration
	if s == "multicast" {
		*t = TreatmentMulticastOnce
		return nil
	}
	for k, v := range treatmentNames {
		if v == s {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("%s is not a valid distribution", s)
}
