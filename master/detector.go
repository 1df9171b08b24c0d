package master

import (
	"code.siemens.com/pv-string-controller/common"
)

// detector evaluates the aggregated state against fixed threshold rules.
// Faults genuinely co-occur, so the result is a bitmask, not a single code.
// Detection is stateless per tick; reaction lives in the optimizer and
// supervisor.
type detector struct {
	cfg   common.MasterConfig
	state *state
}

func newDetector(cfg common.MasterConfig, state *state) *detector {
	return &detector{cfg: cfg, state: state}
}

func (d *detector) detect() common.FaultMask {
	var mask common.FaultMask
	sys := &d.state.system

	for i := 1; i <= d.cfg.NumNodes; i++ {
		if !d.state.trackers[i].online {
			mask |= common.FaultNodeOffline
			break
		}
	}

	for i := 1; i <= d.cfg.NumNodes; i++ {
		if d.state.trackers[i].online && d.state.status[i].OutputVoltage > d.cfg.OvervoltageThreshold {
			mask |= common.FaultOvervoltageNode
			break
		}
	}

	if sys.totalOutputCurrent > d.cfg.OvercurrentThreshold {
		mask |= common.FaultOvercurrentSystem
	}

	if sys.systemEfficiency < d.cfg.EfficiencyWarning && sys.totalInputPower > d.cfg.MinPowerForEfficiency {
		mask |= common.FaultLowEfficiency
	}

	if maxV, minV, _, _ := d.voltageSpread(); maxV-minV > d.cfg.BalanceTolerance {
		mask |= common.FaultVoltageImbalance
	}

	if sys.shadedNodes > 0 {
		mask |= common.FaultShadingDetected
	}

	sys.faults = mask
	sys.hasFault = mask != 0
	return mask
}

// voltageSpread returns the highest and lowest online output voltages and
// the node ids carrying them. With no online nodes all values are zero.
func (d *detector) voltageSpread() (maxV, minV float64, maxNode, minNode int) {
	first := true
	for i := 1; i <= d.cfg.NumNodes; i++ {
		if !d.state.trackers[i].online {
			continue
		}
		v := d.state.status[i].OutputVoltage
		if first {
			maxV, minV = v, v
			maxNode, minNode = i, i
			first = false
			continue
		}
		if v > maxV {
			maxV, maxNode = v, i
		}
		if v < minV {
			minV, minNode = v, i
		}
	}
	return maxV, minV, maxNode, minNode
}
