package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFrameRoundTrip(t *testing.T) {
	in := NodeStatus{
		NodeId:        3,
		InputVoltage:  28.5,
		InputCurrent:  7.25,
		InputPower:    206.625,
		OutputVoltage: 12.0,
		OutputCurrent: 16.5,
		OutputPower:   198.0,
		DutyCycle:     62.5,
		Efficiency:    95.8,
		Status:        StatusShading,
		Timestamp:     123456,
	}

	frame, err := in.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, frame, StatusFrameSize)

	var out NodeStatus
	require.NoError(t, out.UnmarshalBinary(frame))
	assert.Equal(t, in.NodeId, out.NodeId)
	assert.Equal(t, in.Status, out.Status)
	assert.Equal(t, in.Timestamp, out.Timestamp)
	assert.InDelta(t, in.InputPower, out.InputPower, 0.001)
	assert.InDelta(t, in.OutputCurrent, out.OutputCurrent, 0.001)
	assert.InDelta(t, in.DutyCycle, out.DutyCycle, 0.001)
}

func TestWrongSizeFramesAreRejected(t *testing.T) {
	var s NodeStatus
	assert.Error(t, s.UnmarshalBinary(make([]byte, StatusFrameSize-1)))
	assert.Error(t, s.UnmarshalBinary(make([]byte, StatusFrameSize+1)))
	assert.Error(t, s.UnmarshalBinary(nil))

	var c MasterCommand
	assert.Error(t, c.UnmarshalBinary(make([]byte, StatusFrameSize)))
	assert.NoError(t, c.UnmarshalBinary(make([]byte, CommandFrameSize)))
}

func TestCommandAddressing(t *testing.T) {
	broadcast := MasterCommand{NodeId: BroadcastId}
	assert.True(t, broadcast.AppliesTo(1))
	assert.True(t, broadcast.AppliesTo(4))

	direct := MasterCommand{NodeId: 2}
	assert.True(t, direct.AppliesTo(2))
	assert.False(t, direct.AppliesTo(3))
}

func TestFaultMaskString(t *testing.T) {
	assert.Equal(t, "NONE", FaultMask(0).String())
	m := FaultNodeOffline | FaultVoltageImbalance
	assert.Equal(t, "OFFLINE|IMBALANCE", m.String())
	assert.True(t, m.Has(FaultNodeOffline))
	assert.False(t, m.Has(FaultShadingDetected))
}
