package node

import (
	"github.com/rs/zerolog/log"

	"code.siemens.com/pv-string-controller/common"
)

// Classifier derives a node status code from instantaneous panel readings
// plus one prior power sample. Rules run in priority order, first match wins.
type Classifier struct {
	cfg    common.FaultConfig
	nodeId uint8

	target    float64
	prevPower float64
	hasPrev   bool
	last      uint8
}

func NewClassifier(cfg common.FaultConfig, nodeId uint8, targetVoltage float64) *Classifier {
	return &Classifier{cfg: cfg, nodeId: nodeId, target: targetVoltage, last: common.StatusNormal}
}

// SetTarget updates the commanded voltage used by the overvoltage rule.
func (c *Classifier) SetTarget(v float64) { c.target = v }

// Classify evaluates one sample and returns the status code. Status changes
// are logged on the transition edge only; a persisting fault is reported in
// every status frame but not re-logged each cycle.
func (c *Classifier) Classify(voltage, current, power float64) uint8 {
	code := c.evaluate(voltage, current, power)

	if code != c.last {
		if code != common.StatusNormal {
			log.Warn().Str("comp", "node").
				Uint8("node", c.nodeId).
				Str("status", common.StatusName(code)).
				Float64("voltage", voltage).
				Float64("current", current).
				Float64("power", power).
				Msg("fault status changed")
		} else {
			log.Info().Str("comp", "node").
				Uint8("node", c.nodeId).
				Msg("recovered to NORMAL")
		}
		c.last = code
	}

	c.prevPower = power
	c.hasPrev = true
	return code
}

func (c *Classifier) evaluate(voltage, current, power float64) uint8 {
	// Open circuit: panel disconnected or completely broken.
	if voltage < c.cfg.VoltageFloor && current < c.cfg.CurrentFloor {
		return common.StatusHardFault
	}

	// Short circuit: high current with collapsed voltage.
	if voltage < c.cfg.VoltageFloor && current > c.cfg.ShortCircuitBound {
		return common.StatusHardFault
	}

	// Dead panel: voltage present but no power.
	if power < c.cfg.PowerFloor && voltage >= c.cfg.VoltageFloor {
		return common.StatusHardFault
	}

	// Power-drop rules compare against the immediately preceding sample.
	if c.hasPrev && c.prevPower > c.cfg.SoftFaultReference {
		dropPct := 100.0 * (c.prevPower - power) / c.prevPower
		if dropPct > c.cfg.HardDropPercent {
			if power < c.cfg.SoftFaultReference {
				return common.StatusHardFault
			}
			return common.StatusSoftFault
		}
		if dropPct > c.cfg.ShadingDropPercent {
			return common.StatusShading
		}
	}

	if voltage > c.target+c.cfg.OvervoltageMargin {
		return common.StatusOvervoltage
	}

	if current > c.cfg.CurrentCeiling {
		return common.StatusOvercurrent
	}

	return common.StatusNormal
}
