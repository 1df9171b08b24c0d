package transport

import (
	"context"
	"sync"

	"code.siemens.com/pv-string-controller/common"
)

// FakeBus is an in-memory stand-in for the MQTT connector, recording sent
// frames for assertions and letting tests inject received ones.
type FakeBus struct {
	mu sync.Mutex

	Statuses []common.NodeStatus
	Commands []common.MasterCommand

	// PublishError, if set, is returned by the publish methods.
	PublishError error

	statusCh  chan common.NodeStatus
	commandCh chan common.MasterCommand
}

func NewFakeBus() *FakeBus {
	return &FakeBus{
		statusCh:  make(chan common.NodeStatus, 16),
		commandCh: make(chan common.MasterCommand, 16),
	}
}

func (f *FakeBus) PublishStatus(_ context.Context, status common.NodeStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Statuses = append(f.Statuses, status)
	return nil
}

func (f *FakeBus) BroadcastCommand(_ context.Context, cmd common.MasterCommand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Commands = append(f.Commands, cmd)
	select {
	case f.commandCh <- cmd:
	default:
	}
	return nil
}

// StatusChannel is what a master under test consumes.
func (f *FakeBus) StatusChannel() <-chan common.NodeStatus { return f.statusCh }

// CommandChannel is what a node under test consumes.
func (f *FakeBus) CommandChannel() <-chan common.MasterCommand { return f.commandCh }

// InjectStatus delivers a status frame as if it arrived over the air.
func (f *FakeBus) InjectStatus(status common.NodeStatus) {
	f.statusCh <- status
}

// InjectCommand delivers a command frame as if it arrived over the air.
func (f *FakeBus) InjectCommand(cmd common.MasterCommand) {
	f.commandCh <- cmd
}

// SentCommands returns a copy of the recorded command frames.
func (f *FakeBus) SentCommands() []common.MasterCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]common.MasterCommand, len(f.Commands))
	copy(out, f.Commands)
	return out
}

// SentStatuses returns a copy of the recorded status frames.
func (f *FakeBus) SentStatuses() []common.NodeStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]common.NodeStatus, len(f.Statuses))
	copy(out, f.Statuses)
	return out
}
