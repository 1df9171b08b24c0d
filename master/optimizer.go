package master

import (
	"github.com/rs/zerolog/log"

	"code.siemens.com/pv-string-controller/common"
)

// optimizer owns the shared per-node voltage setpoint. The steady-state ramp
// nudges it by bounded increments each control tick; fault reaction and
// degraded-node compensation adjust it out of band. Compensation pre-empts
// the ramp for any tick in which it changes the setpoint.
type optimizer struct {
	cfg      common.MasterConfig
	state    *state
	detector *detector

	// degraded is set while any node is classified Faulty. Compensation
	// pre-empts the steady-state ramp for the whole degraded period, and the
	// clamp ceiling widens to the compensation limit.
	degraded    bool
	lastWorking int
}

func newOptimizer(cfg common.MasterConfig, state *state, detector *detector) *optimizer {
	return &optimizer{cfg: cfg, state: state, detector: detector, lastWorking: -1}
}

// optimize runs the steady-state ramp.
func (o *optimizer) optimize() {
	defer o.clamp()

	if o.state.system.nodesOnline < 2 {
		// Not enough data to reason about balance: hold.
		return
	}

	maxV, minV, _, _ := o.detector.voltageSpread()
	if maxV-minV > o.cfg.BalanceTolerance {
		// Conservative pull-back while the string is imbalanced.
		o.state.setpoint -= o.cfg.VoltageRampStep * 0.5
		return
	}

	if o.state.system.systemEfficiency < o.cfg.EfficiencyWarning {
		o.state.setpoint -= o.cfg.VoltageRampStep
		return
	}

	// Hunt upward toward the system maximum.
	systemTarget := o.state.setpoint * float64(o.cfg.NumNodes)
	if systemTarget < o.cfg.MaxSystemVoltage-2.0 {
		o.state.setpoint += o.cfg.VoltageRampStep
	} else if systemTarget > o.cfg.MaxSystemVoltage {
		o.state.setpoint -= o.cfg.VoltageRampStep
	}
}

// reactToFaults applies the per-bit setpoint corrections. It returns true
// when the only remaining option is a supervisor shutdown.
func (o *optimizer) reactToFaults(mask common.FaultMask) (escalate bool) {
	if mask == 0 {
		return false
	}

	if mask.Has(common.FaultNodeOffline) && o.state.system.nodesOnline == 0 {
		return true
	}

	if mask.Has(common.FaultOvervoltageNode) {
		o.state.setpoint -= o.cfg.VoltageRampStep * 2
	}

	if mask.Has(common.FaultOvercurrentSystem) {
		o.state.setpoint -= o.cfg.VoltageRampStep
	}

	if mask.Has(common.FaultVoltageImbalance) {
		maxV, minV, maxNode, minNode := o.detector.voltageSpread()
		log.Warn().Str("comp", "master").
			Float64("max_v", maxV).Int("max_node", maxNode).
			Float64("min_v", minV).Int("min_node", minNode).
			Msg("voltage imbalance across string")
	}

	o.clamp()
	return false
}

// compensate re-optimizes the setpoint when nodes have dropped out of
// production: the remaining working nodes pick up the failed nodes' share of
// the system voltage, up to the compensation ceiling. Returns whether the
// setpoint changed (broadcast immediately) and whether nothing works at all.
func (o *optimizer) compensate() (changed bool, critical bool) {
	if !o.state.receivedAny {
		return false, false
	}

	working, faulty := o.classifyNodes()
	o.degraded = len(faulty) > 0
	if !o.degraded {
		if o.lastWorking != len(working) {
			o.lastWorking = len(working)
			o.clamp()
		}
		return false, false
	}

	// Re-run the analysis only when the working set size changes, so a
	// persisting degradation is not re-logged and re-broadcast every tick.
	if len(working) == o.lastWorking {
		return false, false
	}
	o.lastWorking = len(working)

	log.Warn().Str("comp", "master").
		Ints("faulty_nodes", faulty).
		Ints("working_nodes", working).
		Msg("node failure detected")

	switch {
	case len(working) >= o.cfg.MinNodesForCompensation:
		compensation := o.cfg.TargetSystemVoltage / float64(len(working))
		if compensation > o.cfg.MaxCompensationVoltage {
			compensation = o.cfg.MaxCompensationVoltage
		}
		log.Warn().Str("comp", "master").
			Int("working", len(working)).
			Float64("setpoint", compensation).
			Msg("activating voltage compensation")
		o.state.setpoint = compensation
		return true, false

	case len(working) == 1:
		// One node cannot carry the full system voltage within its safe
		// ceiling; hold the current setpoint rather than push it.
		log.Error().Str("comp", "master").
			Float64("target", o.cfg.TargetSystemVoltage).
			Msg("only one node working, system voltage target unreachable")
		return false, false

	default:
		return false, true
	}
}

// classifyNodes splits the node set into Working and Faulty. A node works if
// it is online and its panel-side readings are all above the floors.
func (o *optimizer) classifyNodes() (working, faulty []int) {
	for i := 1; i <= o.cfg.NumNodes; i++ {
		status := o.state.status[i]
		ok := o.state.trackers[i].online &&
			status.InputPower > o.cfg.WorkingPowerFloor &&
			status.InputVoltage > o.cfg.WorkingVoltageFloor &&
			status.InputCurrent > o.cfg.WorkingCurrentFloor
		if ok {
			working = append(working, i)
		} else {
			faulty = append(faulty, i)
		}
	}
	return working, faulty
}

func (o *optimizer) clamp() {
	ceiling := o.cfg.MaxNodeVoltage()
	if o.degraded && o.cfg.MaxCompensationVoltage > ceiling {
		ceiling = o.cfg.MaxCompensationVoltage
	}
	if o.state.setpoint < o.cfg.MinNodeVoltage() {
		o.state.setpoint = o.cfg.MinNodeVoltage()
	}
	if o.state.setpoint > ceiling {
		o.state.setpoint = ceiling
	}
}
