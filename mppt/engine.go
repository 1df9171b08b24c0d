// Package mppt implements Perturb & Observe maximum power point tracking for
// a single DC-DC converter. It is pure control arithmetic: callers feed it
// panel samples and apply the returned duty cycle to their switching stage.
package mppt

import "code.siemens.com/pv-string-controller/common"

// Sample is one panel-side measurement.
type Sample struct {
	Voltage float64
	Current float64
}

func (s Sample) Power() float64 { return s.Voltage * s.Current }

// Engine hunts the panel's maximum power point by nudging the duty cycle and
// observing whether power improved. It keeps exactly one prior sample.
type Engine struct {
	cfg common.MpptConfig

	duty       float64
	prev       Sample
	hasPrev    bool
	iterations int
}

func NewEngine(cfg common.MpptConfig) *Engine {
	return &Engine{cfg: cfg, duty: cfg.MinDuty}
}

// Duty returns the current duty cycle in percent.
func (e *Engine) Duty() float64 { return e.duty }

// Step runs one P&O iteration on the sample and returns the new duty cycle.
func (e *Engine) Step(s Sample) float64 {
	e.iterations++

	// Startup: ramp the duty cycle until the panel produces usable voltage
	// and a few iterations have passed, so the tracker does not oscillate
	// on a dark panel.
	if s.Voltage < e.cfg.LowVoltageFloor || e.iterations <= e.cfg.StartupIterations {
		e.duty = clamp(e.duty+e.cfg.StartupStep, e.cfg.MinDuty, e.cfg.MaxDuty)
		e.remember(s)
		return e.duty
	}

	power := s.Power()
	if power < e.cfg.MinPower {
		// No sun or disconnected panel: hold.
		e.remember(s)
		return e.duty
	}

	if !e.hasPrev {
		e.remember(s)
		return e.duty
	}

	powerDelta := power - e.prev.Power()
	voltageDelta := s.Voltage - e.prev.Voltage

	switch {
	case powerDelta > e.cfg.Epsilon:
		// Power improved: keep perturbing in the same voltage direction.
		if voltageDelta > 0 {
			e.duty += e.cfg.DutyStep
		} else {
			e.duty -= e.cfg.DutyStep
		}
	case powerDelta < -e.cfg.Epsilon:
		// Power dropped: reverse relative to the voltage change.
		if voltageDelta > 0 {
			e.duty -= e.cfg.DutyStep
		} else {
			e.duty += e.cfg.DutyStep
		}
	default:
		// Within epsilon of the peak: hold.
	}

	e.duty = clamp(e.duty, e.cfg.MinDuty, e.cfg.MaxDuty)
	e.remember(s)
	return e.duty
}

// Shutdown drops the converter to its safe idle duty cycle.
func (e *Engine) Shutdown() float64 {
	e.duty = e.cfg.IdleDuty
	return e.duty
}

// Reset clears tracking state and restarts the startup ramp.
func (e *Engine) Reset() {
	e.duty = e.cfg.MinDuty
	e.hasPrev = false
	e.prev = Sample{}
	e.iterations = 0
}

func (e *Engine) remember(s Sample) {
	e.prev = s
	e.hasPrev = true
}

// clamp bounds the duty cycle to the safe operating band. Never 0% or 100%:
// the switching FETs need a live gate drive on both edges.
func clamp(duty, min, max float64) float64 {
	if duty < min {
		return min
	}
	if duty > max {
		return max
	}
	return duty
}
