package master

import (
	"time"

	"github.com/rs/zerolog/log"

	"code.siemens.com/pv-string-controller/common"
)

// report writes the periodic human-readable system summary. It is diagnostic
// output only, not a machine contract.
func (c *Controller) report() {
	s := c.state

	if !s.receivedAny {
		if time.Since(c.started) > c.cfg.NodeTimeout {
			log.Info().Str("comp", "master").Msg("waiting for node status, check node transport configuration")
		}
		return
	}

	event := log.Info().Str("comp", "master").
		Int("online", s.system.nodesOnline).
		Int("nodes", c.cfg.NumNodes).
		Float64("system_v", s.system.systemVoltage).
		Float64("system_a", s.system.totalOutputCurrent).
		Float64("in_w", s.system.totalInputPower).
		Float64("out_w", s.system.totalOutputPower).
		Float64("eff_pct", s.system.systemEfficiency).
		Float64("setpoint_v", s.setpoint).
		Int("shaded", s.system.shadedNodes)

	switch {
	case s.emergency:
		event.Str("status", "EMERGENCY SHUTDOWN")
	case s.system.hasFault:
		event.Str("status", "FAULT["+s.system.faults.String()+"]")
	default:
		event.Str("status", "NORMAL")
	}
	event.Msg("system status")

	for i := 1; i <= c.cfg.NumNodes; i++ {
		if !s.trackers[i].online {
			log.Info().Str("comp", "master").Int("node", i).Str("state", "OFFLINE").Msg("node detail")
			continue
		}
		status := s.status[i]
		log.Info().Str("comp", "master").Int("node", i).
			Float64("in_v", status.InputVoltage).
			Float64("in_a", status.InputCurrent).
			Float64("out_v", status.OutputVoltage).
			Float64("out_w", status.OutputPower).
			Float64("duty_pct", status.DutyCycle).
			Float64("eff_pct", status.Efficiency).
			Str("state", common.StatusName(status.Status)).
			Msg("node detail")
	}
}
