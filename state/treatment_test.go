package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTreatmentText(t *testing.T) {
	for _, tr := range []Treatment{
		TreatmentMulticastFlood, TreatmentMulticastOnce, TreatmentAnycastClosest,
		TreatmentAnycastBalanced, TreatmentLinkBalanced,
	} {
		text, err := tr.MarshalText()
		assert.NoError(t, err)
		var back Treatment
		assert.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, tr, back)
	}

	var tr Treatment
	assert.NoError(t, tr.UnmarshalText([]byte("multicast")))
	assert.Equal(t, TreatmentMulticastOnce, tr)
	assert.Error(t, tr.UnmarshalText([]byte("anycast")))

	_, err := Treatment(9).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "Treatment(9)", Treatment(9).String())
}
