package master

import (
	"math"
	"time"

	"code.siemens.com/pv-string-controller/common"
)

// aggregator rolls the per-node reports up into the system state. Pure,
// order-independent aggregation over the fixed node set; it runs on the
// controller goroutine so no locking is needed.
type aggregator struct {
	cfg   common.MasterConfig
	state *state
}

func newAggregator(cfg common.MasterConfig, state *state) *aggregator {
	return &aggregator{cfg: cfg, state: state}
}

func (a *aggregator) aggregate(now time.Time) {
	sys := &a.state.system
	sys.totalInputPower = 0
	sys.totalOutputPower = 0
	sys.totalOutputCurrent = 0
	sys.systemVoltage = 0
	sys.nodesOnline = 0
	sys.shadedNodes = 0

	for i := 1; i <= a.cfg.NumNodes; i++ {
		tracker := &a.state.trackers[i]
		if now.Sub(tracker.lastUpdate) < a.cfg.NodeTimeout {
			tracker.online = true
			sys.nodesOnline++

			status := a.state.status[i]
			sys.totalInputPower += status.InputPower
			sys.totalOutputPower += status.OutputPower
			// Series string: current is shared, not additive. The value is
			// overwritten per online node in id order, so the last processed
			// node's reading stands (see DESIGN.md).
			sys.totalOutputCurrent = status.OutputCurrent
			sys.systemVoltage += status.OutputVoltage

			if status.Status == common.StatusShading {
				sys.shadedNodes++
			}
		} else {
			tracker.online = false
			if tracker.consecutiveErrors < math.MaxUint16 {
				tracker.consecutiveErrors++
			}
		}
	}

	if sys.totalInputPower > 0.1 {
		sys.systemEfficiency = sys.totalOutputPower / sys.totalInputPower * 100.0
	} else {
		sys.systemEfficiency = 0.0
	}
}
