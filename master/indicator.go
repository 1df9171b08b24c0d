package master

import (
	"github.com/rs/zerolog/log"
)

// Pattern is a status LED blink pattern.
type Pattern int

const (
	PatternOff       Pattern = iota // no nodes online
	PatternSteady                   // all nodes online and producing
	PatternWaiting                  // partial operation, waiting for nodes
	PatternFault                    // fault bits active
	PatternEmergency                // supervisor latched
)

func (p Pattern) String() string {
	switch p {
	case PatternOff:
		return "off"
	case PatternSteady:
		return "steady"
	case PatternWaiting:
		return "slow-blink"
	case PatternFault:
		return "fault-blink"
	case PatternEmergency:
		return "fast-blink"
	default:
		return "unknown"
	}
}

// Indicator drives the status LED. The GPIO driver is an external
// collaborator; the default implementation just logs pattern changes.
type Indicator interface {
	Set(p Pattern)
}

type logIndicator struct {
	current Pattern
	set     bool
}

// NewLogIndicator returns an Indicator that logs each pattern transition.
func NewLogIndicator() Indicator {
	return &logIndicator{}
}

func (l *logIndicator) Set(p Pattern) {
	if l.set && p == l.current {
		return
	}
	l.current = p
	l.set = true
	log.Info().Str("comp", "master").Str("led", p.String()).Msg("status indication")
}

// pattern picks the LED pattern for the current system state.
func pattern(s *state, numNodes int) Pattern {
	switch {
	case s.emergency:
		return PatternEmergency
	case s.system.hasFault:
		return PatternFault
	case s.system.nodesOnline == numNodes && s.system.totalInputPower > 10.0:
		return PatternSteady
	case s.system.nodesOnline > 0:
		return PatternWaiting
	default:
		return PatternOff
	}
}
