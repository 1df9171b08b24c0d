// Package node runs one DC-DC converter: it samples the panel, tracks the
// maximum power point, classifies its own health and reports status to the
// master, while consuming the master's voltage setpoint commands.
package node

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"code.siemens.com/pv-string-controller/common"
	"code.siemens.com/pv-string-controller/mppt"
)

// StatusPublisher sends a status frame to the master, best effort.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, status common.NodeStatus) error
}

type event int

const (
	eventSample event = iota
	eventReport
	eventCommandStale
)

// Controller is the node runtime. All state is mutated from the single
// goroutine spawned by Start; tickers and the command watchdog only post
// events onto the internal channel.
type Controller struct {
	cfg        common.NodeConfig
	sampler    Sampler
	converter  Converter
	publisher  StatusPublisher
	commands   <-chan common.MasterCommand
	engine     *mppt.Engine
	classifier *Classifier

	target     float64
	maxCurrent float64
	shutdown   bool
	stale      bool
	latest     common.NodeStatus
	started    time.Time

	events       chan event
	sampleTicker common.Ticker
	reportTicker common.Ticker
	watchdog     common.Timer
}

func NewController(cfg common.NodeConfig, targetVoltage float64, sampler Sampler, converter Converter, publisher StatusPublisher, commands <-chan common.MasterCommand) *Controller {
	return &Controller{
		cfg:        cfg,
		sampler:    sampler,
		converter:  converter,
		publisher:  publisher,
		commands:   commands,
		engine:     mppt.NewEngine(cfg.Mppt),
		classifier: NewClassifier(cfg.Fault, uint8(cfg.NodeId), targetVoltage),
		target:     targetVoltage,
		latest:     common.NodeStatus{NodeId: uint8(cfg.NodeId), Status: common.StatusNormal},
	}
}

func (c *Controller) Start(ctx context.Context) {
	c.started = time.Now()
	c.events = make(chan event, 16)

	c.sampleTicker.Start(c.cfg.SampleInterval, func() { c.post(eventSample) })
	c.reportTicker.Start(c.cfg.ReportInterval, func() { c.post(eventReport) })
	c.watchdog.Start(c.cfg.CommandTimeout, func() { c.post(eventCommandStale) })

	go func() {
		defer c.sampleTicker.Stop()
		defer c.reportTicker.Stop()
		defer c.watchdog.Stop()

		for {
			select {
			case ev := <-c.events:
				switch ev {
				case eventSample:
					c.sampleTick()
				case eventReport:
					c.report(ctx)
				case eventCommandStale:
					log.Warn().Str("comp", "node").Int("node", c.cfg.NodeId).
						Msg("no command from master, holding safe idle duty")
					c.stale = true
				}
			case cmd := <-c.commands:
				c.handleCommand(cmd)
			case <-ctx.Done():
				log.Info().Str("comp", "node").Int("node", c.cfg.NodeId).Msg("shutdown")
				return
			}
		}
	}()
}

func (c *Controller) post(ev event) {
	select {
	case c.events <- ev:
	default:
		// A full event queue means the loop is behind; skip this tick.
	}
}

func (c *Controller) sampleTick() {
	reading, err := c.sampler.Sample()
	if err != nil {
		log.Error().Str("comp", "node").Int("node", c.cfg.NodeId).Err(err).Msg("sample failed")
		return
	}

	inputPower := reading.InputVoltage * reading.InputCurrent
	outputPower := reading.OutputVoltage * reading.OutputCurrent

	var duty float64
	if c.shutdown || c.stale {
		duty = c.engine.Shutdown()
	} else {
		duty = c.engine.Step(mppt.Sample{Voltage: reading.InputVoltage, Current: reading.InputCurrent})
	}
	c.converter.SetDuty(duty)

	status := c.classifier.Classify(reading.InputVoltage, reading.InputCurrent, inputPower)

	efficiency := 0.0
	if inputPower > 0.1 {
		efficiency = outputPower / inputPower * 100.0
	}

	c.latest = common.NodeStatus{
		NodeId:        uint8(c.cfg.NodeId),
		InputVoltage:  reading.InputVoltage,
		InputCurrent:  reading.InputCurrent,
		InputPower:    inputPower,
		OutputVoltage: reading.OutputVoltage,
		OutputCurrent: reading.OutputCurrent,
		OutputPower:   outputPower,
		DutyCycle:     duty,
		Efficiency:    efficiency,
		Status:        status,
	}
}

func (c *Controller) report(ctx context.Context) {
	status := c.latest
	status.Timestamp = uint32(time.Since(c.started).Milliseconds())
	if err := c.publisher.PublishStatus(ctx, status); err != nil {
		// Best-effort transport: the master's liveness timeout absorbs
		// missed reports.
		log.Debug().Str("comp", "node").Int("node", c.cfg.NodeId).Err(err).Msg("status publish failed")
	}
}

func (c *Controller) handleCommand(cmd common.MasterCommand) {
	if !cmd.AppliesTo(uint8(c.cfg.NodeId)) {
		return
	}

	c.stale = false
	c.watchdog.Reset(c.cfg.CommandTimeout)

	c.target = cmd.TargetVoltage
	c.maxCurrent = cmd.MaxCurrent
	c.classifier.SetTarget(cmd.TargetVoltage)

	switch cmd.Command {
	case common.CommandShutdown:
		if !c.shutdown {
			log.Warn().Str("comp", "node").Int("node", c.cfg.NodeId).Msg("master commanded shutdown")
		}
		c.shutdown = true
		c.converter.SetDuty(c.engine.Shutdown())
	case common.CommandReset:
		log.Info().Str("comp", "node").Int("node", c.cfg.NodeId).Msg("master commanded reset")
		c.engine.Reset()
		c.shutdown = false
	case common.CommandNormal:
		c.shutdown = false
	}
}
