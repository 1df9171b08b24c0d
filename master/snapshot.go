package master

import (
	"time"

	"code.siemens.com/pv-string-controller/common"
)

// Snapshot is a point-in-time copy of the system state for the HTTP API. It
// is refreshed on every report tick and read under the controller's lock, so
// web handlers never touch live control state.
type Snapshot struct {
	Timestamp       time.Time      `json:"timestamp"`
	Emergency       bool           `json:"emergency"`
	VoltageSetpoint float64        `json:"voltage_setpoint"`
	Faults          string         `json:"faults"`
	FaultBits       uint8          `json:"fault_bits"`
	NodesOnline     int            `json:"nodes_online"`
	ShadedNodes     int            `json:"shaded_nodes"`
	InputPower      float64        `json:"input_power"`
	OutputPower     float64        `json:"output_power"`
	SystemVoltage   float64        `json:"system_voltage"`
	SystemCurrent   float64        `json:"system_current"`
	Efficiency      float64        `json:"efficiency"`
	Nodes           []NodeSnapshot `json:"nodes"`
}

// NodeSnapshot is one node's last-seen report plus liveness.
type NodeSnapshot struct {
	Id            int     `json:"id"`
	Online        bool    `json:"online"`
	MissedWindows uint16  `json:"missed_windows"`
	Status        string  `json:"status"`
	InputVoltage  float64 `json:"input_voltage"`
	InputCurrent  float64 `json:"input_current"`
	InputPower    float64 `json:"input_power"`
	OutputVoltage float64 `json:"output_voltage"`
	OutputCurrent float64 `json:"output_current"`
	OutputPower   float64 `json:"output_power"`
	DutyCycle     float64 `json:"duty_cycle"`
	Efficiency    float64 `json:"efficiency"`
}

func (c *Controller) snapshot(now time.Time) Snapshot {
	s := c.state
	snap := Snapshot{
		Timestamp:       now,
		Emergency:       s.emergency,
		VoltageSetpoint: s.setpoint,
		Faults:          s.system.faults.String(),
		FaultBits:       uint8(s.system.faults),
		NodesOnline:     s.system.nodesOnline,
		ShadedNodes:     s.system.shadedNodes,
		InputPower:      s.system.totalInputPower,
		OutputPower:     s.system.totalOutputPower,
		SystemVoltage:   s.system.systemVoltage,
		SystemCurrent:   s.system.totalOutputCurrent,
		Efficiency:      s.system.systemEfficiency,
		Nodes:           make([]NodeSnapshot, 0, c.cfg.NumNodes),
	}
	for i := 1; i <= c.cfg.NumNodes; i++ {
		status := s.status[i]
		snap.Nodes = append(snap.Nodes, NodeSnapshot{
			Id:            i,
			Online:        s.trackers[i].online,
			MissedWindows: s.trackers[i].consecutiveErrors,
			Status:        common.StatusName(status.Status),
			InputVoltage:  status.InputVoltage,
			InputCurrent:  status.InputCurrent,
			InputPower:    status.InputPower,
			OutputVoltage: status.OutputVoltage,
			OutputCurrent: status.OutputCurrent,
			OutputPower:   status.OutputPower,
			DutyCycle:     status.DutyCycle,
			Efficiency:    status.Efficiency,
		})
	}
	return snap
}
