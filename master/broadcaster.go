package master

import (
	"context"

	"github.com/rs/zerolog/log"

	"code.siemens.com/pv-string-controller/common"
)

// CommandSender sends a command frame to all nodes, best effort.
type CommandSender interface {
	BroadcastCommand(ctx context.Context, cmd common.MasterCommand) error
}

// broadcaster re-transmits the current setpoint and operating command on a
// fixed cadence. Once the supervisor has latched, it is the sole writer of
// the shutdown command value.
type broadcaster struct {
	cfg    common.MasterConfig
	state  *state
	sender CommandSender
}

func newBroadcaster(cfg common.MasterConfig, state *state, sender CommandSender) *broadcaster {
	return &broadcaster{cfg: cfg, state: state, sender: sender}
}

func (b *broadcaster) broadcast(ctx context.Context) {
	cmd := common.MasterCommand{
		NodeId:        common.BroadcastId,
		TargetVoltage: b.state.setpoint,
		MaxCurrent:    b.cfg.OvercurrentThreshold,
		Command:       common.CommandNormal,
	}
	if b.state.emergency {
		cmd.Command = common.CommandShutdown
	}

	if err := b.sender.BroadcastCommand(ctx, cmd); err != nil {
		log.Debug().Str("comp", "master").Err(err).Msg("command broadcast failed")
	}
}
