package common

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Status codes reported by a node in every status frame.
const (
	StatusNormal      uint8 = 0
	StatusShading     uint8 = 1
	StatusOvervoltage uint8 = 2
	StatusOvercurrent uint8 = 3
	StatusSoftFault   uint8 = 254
	StatusHardFault   uint8 = 255
)

func StatusName(code uint8) string {
	switch code {
	case StatusNormal:
		return "NORMAL"
	case StatusShading:
		return "SHADING"
	case StatusOvervoltage:
		return "OVERVOLTAGE"
	case StatusOvercurrent:
		return "OVERCURRENT"
	case StatusSoftFault:
		return "SOFT_FAULT"
	case StatusHardFault:
		return "HARD_FAULT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", code)
	}
}

// Operating commands carried in a command frame.
const (
	CommandNormal   uint8 = 0
	CommandShutdown uint8 = 1
	CommandReset    uint8 = 2
)

// BroadcastId addresses a command frame to every node.
const BroadcastId uint8 = 0xFF

// FaultMask is a set of concurrently active master-side fault conditions.
type FaultMask uint8

const (
	FaultNodeOffline FaultMask = 1 << iota
	FaultOvervoltageNode
	FaultOvercurrentSystem
	FaultLowEfficiency
	FaultVoltageImbalance
	FaultShadingDetected
)

func (m FaultMask) Has(f FaultMask) bool { return m&f != 0 }

func (m FaultMask) String() string {
	if m == 0 {
		return "NONE"
	}
	names := []struct {
		bit  FaultMask
		name string
	}{
		{FaultNodeOffline, "OFFLINE"},
		{FaultOvervoltageNode, "OV"},
		{FaultOvercurrentSystem, "OC"},
		{FaultLowEfficiency, "LOW_EFF"},
		{FaultVoltageImbalance, "IMBALANCE"},
		{FaultShadingDetected, "SHADING"},
	}
	var active []string
	for _, n := range names {
		if m.Has(n.bit) {
			active = append(active, n.name)
		}
	}
	return strings.Join(active, "|")
}

// NodeStatus is a node's self-report, one per report cycle. The wire layout
// is a packed little-endian record; see MarshalBinary.
type NodeStatus struct {
	NodeId        uint8
	InputVoltage  float64
	InputCurrent  float64
	InputPower    float64
	OutputVoltage float64
	OutputCurrent float64
	OutputPower   float64
	DutyCycle     float64
	Efficiency    float64
	Status        uint8
	Timestamp     uint32
}

// MasterCommand is the outbound control message broadcast to the nodes.
type MasterCommand struct {
	NodeId        uint8
	TargetVoltage float64
	MaxCurrent    float64
	Command       uint8
}

// Frame sizes. Receivers discard any frame whose length differs.
const (
	StatusFrameSize  = 1 + 8*4 + 1 + 4
	CommandFrameSize = 1 + 4 + 4 + 1
)

func putFloat32(b []byte, v float64) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
}

func getFloat32(b []byte) float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
}

// MarshalBinary encodes the status into its fixed 38-byte wire form.
func (s NodeStatus) MarshalBinary() ([]byte, error) {
	b := make([]byte, StatusFrameSize)
	b[0] = s.NodeId
	putFloat32(b[1:], s.InputVoltage)
	putFloat32(b[5:], s.InputCurrent)
	putFloat32(b[9:], s.InputPower)
	putFloat32(b[13:], s.OutputVoltage)
	putFloat32(b[17:], s.OutputCurrent)
	putFloat32(b[21:], s.OutputPower)
	putFloat32(b[25:], s.DutyCycle)
	putFloat32(b[29:], s.Efficiency)
	b[33] = s.Status
	binary.LittleEndian.PutUint32(b[34:], s.Timestamp)
	return b, nil
}

// UnmarshalBinary decodes a status frame. Frames of the wrong size are
// rejected so that truncated or foreign datagrams never reach the trackers.
func (s *NodeStatus) UnmarshalBinary(b []byte) error {
	if len(b) != StatusFrameSize {
		return fmt.Errorf("status frame size %d, want %d", len(b), StatusFrameSize)
	}
	s.NodeId = b[0]
	s.InputVoltage = getFloat32(b[1:])
	s.InputCurrent = getFloat32(b[5:])
	s.InputPower = getFloat32(b[9:])
	s.OutputVoltage = getFloat32(b[13:])
	s.OutputCurrent = getFloat32(b[17:])
	s.OutputPower = getFloat32(b[21:])
	s.DutyCycle = getFloat32(b[25:])
	s.Efficiency = getFloat32(b[29:])
	s.Status = b[33]
	s.Timestamp = binary.LittleEndian.Uint32(b[34:])
	return nil
}

// MarshalBinary encodes the command into its fixed 10-byte wire form.
func (c MasterCommand) MarshalBinary() ([]byte, error) {
	b := make([]byte, CommandFrameSize)
	b[0] = c.NodeId
	putFloat32(b[1:], c.TargetVoltage)
	putFloat32(b[5:], c.MaxCurrent)
	b[9] = c.Command
	return b, nil
}

// UnmarshalBinary decodes a command frame, rejecting wrong-size frames.
func (c *MasterCommand) UnmarshalBinary(b []byte) error {
	if len(b) != CommandFrameSize {
		return fmt.Errorf("command frame size %d, want %d", len(b), CommandFrameSize)
	}
	c.NodeId = b[0]
	c.TargetVoltage = getFloat32(b[1:])
	c.MaxCurrent = getFloat32(b[5:])
	c.Command = b[9]
	return nil
}

// AppliesTo reports whether a command addresses the given node.
func (c MasterCommand) AppliesTo(nodeId uint8) bool {
	return c.NodeId == BroadcastId || c.NodeId == nodeId
}
