// Package master implements the master controller: it aggregates node status
// reports, detects fault conditions, optimizes the shared voltage setpoint
// and broadcasts commands to the converter nodes.
package master

import (
	"time"

	"code.siemens.com/pv-string-controller/common"
)

// nodeTracker is the master-side bookkeeping for one node. One tracker per
// node id lives for the whole process; liveness is recomputed every
// aggregation pass, never cached across them.
type nodeTracker struct {
	lastUpdate time.Time
	online     bool

	// consecutiveErrors counts aggregation passes the node spent outside the
	// liveness window; any accepted frame clears it.
	consecutiveErrors uint16
}

// systemState is derived state, recomputed from scratch on every aggregation
// tick. In a series string the output current is common to all nodes, so
// totalOutputCurrent carries a single node's reading, never a sum.
type systemState struct {
	totalInputPower    float64
	totalOutputPower   float64
	totalOutputCurrent float64
	systemVoltage      float64
	systemEfficiency   float64
	nodesOnline        int
	shadedNodes        int
	hasFault           bool
	faults             common.FaultMask
}

// state is the master's mutable world, indexed 1..NumNodes. It is only ever
// touched from the controller's loop goroutine.
type state struct {
	status   []common.NodeStatus
	trackers []nodeTracker
	system   systemState

	setpoint    float64
	emergency   bool
	receivedAny bool
}

func newState(cfg common.MasterConfig) *state {
	s := &state{
		status:   make([]common.NodeStatus, cfg.NumNodes+1),
		trackers: make([]nodeTracker, cfg.NumNodes+1),
		setpoint: cfg.TargetNodeVoltage(),
	}
	for i := 1; i <= cfg.NumNodes; i++ {
		s.status[i].NodeId = uint8(i)
	}
	return s
}

// store replaces a node's mailbox slot with a fresh report. The record is
// written whole; partial updates never happen.
func (s *state) store(status common.NodeStatus, now time.Time) {
	i := int(status.NodeId)
	if i < 1 || i >= len(s.status) {
		return
	}
	s.status[i] = status
	s.trackers[i].lastUpdate = now
	s.trackers[i].online = true
	s.trackers[i].consecutiveErrors = 0
	s.receivedAny = true
}

// resetClocks gives every node one full timeout window from startup before
// it can be declared offline.
func (s *state) resetClocks(now time.Time) {
	for i := 1; i < len(s.trackers); i++ {
		s.trackers[i].lastUpdate = now
	}
}
