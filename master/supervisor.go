package master

import (
	"github.com/rs/zerolog/log"
)

// supervisor owns the terminal shutdown state. Once latched there is no
// recovery path without a process restart: the setpoint pins to zero and
// every further broadcast carries the shutdown command.
type supervisor struct {
	state *state
}

func newSupervisor(state *state) *supervisor {
	return &supervisor{state: state}
}

// trigger latches the emergency state. It returns true on the latching
// transition and false if already latched.
func (s *supervisor) trigger(reason string) bool {
	if s.state.emergency {
		return false
	}
	s.state.emergency = true
	s.state.setpoint = 0
	log.Error().Str("comp", "master").Str("reason", reason).Msg("EMERGENCY SHUTDOWN ACTIVATED")
	return true
}

func (s *supervisor) active() bool {
	return s.state.emergency
}
