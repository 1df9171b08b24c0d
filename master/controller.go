package master

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"code.siemens.com/pv-string-controller/common"
)

type event int

const (
	eventControl event = iota
	eventBroadcast
	eventReport
)

// Controller is the master runtime. Status reception, control ticks,
// broadcasts and reports all run on the one goroutine spawned by Start, so
// the shared state needs no locking; only the HTTP snapshot crosses
// goroutines, behind its own mutex.
type Controller struct {
	cfg       common.MasterConfig
	sender    CommandSender
	statusCh  <-chan common.NodeStatus
	indicator Indicator

	state       *state
	aggregator  *aggregator
	detector    *detector
	optimizer   *optimizer
	broadcaster *broadcaster
	supervisor  *supervisor
	metrics     *metrics

	started  time.Time
	lastMask common.FaultMask

	events      chan event
	emergencyCh chan string

	controlTicker   common.Ticker
	broadcastTicker common.Ticker
	reportTicker    common.Ticker

	mu   sync.RWMutex
	snap Snapshot
}

func NewController(cfg common.MasterConfig, sender CommandSender, statusCh <-chan common.NodeStatus, indicator Indicator, reg prometheus.Registerer) *Controller {
	if indicator == nil {
		indicator = NewLogIndicator()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	s := newState(cfg)
	d := newDetector(cfg, s)

	c := &Controller{
		cfg:         cfg,
		sender:      sender,
		statusCh:    statusCh,
		indicator:   indicator,
		state:       s,
		aggregator:  newAggregator(cfg, s),
		detector:    d,
		optimizer:   newOptimizer(cfg, s, d),
		broadcaster: newBroadcaster(cfg, s, sender),
		supervisor:  newSupervisor(s),
		metrics:     newMetrics(reg),
		emergencyCh: make(chan string, 1),
	}
	return c
}

func (c *Controller) Start(ctx context.Context) {
	c.started = time.Now()
	c.state.resetClocks(c.started)
	c.snap = c.snapshot(c.started)
	c.events = make(chan event, 16)

	c.controlTicker.Start(c.cfg.VoltageRampInterval, func() { c.post(eventControl) })
	c.broadcastTicker.Start(c.cfg.CommandInterval, func() { c.post(eventBroadcast) })
	c.reportTicker.Start(c.cfg.ReportInterval, func() { c.post(eventReport) })

	log.Info().Str("comp", "master").
		Int("nodes", c.cfg.NumNodes).
		Float64("target_system_v", c.cfg.TargetSystemVoltage).
		Float64("setpoint_v", c.state.setpoint).
		Msg("master started, waiting for nodes")

	go c.run(ctx)
}

func (c *Controller) run(ctx context.Context) {
	defer c.controlTicker.Stop()
	defer c.broadcastTicker.Stop()
	defer c.reportTicker.Stop()

	for {
		select {
		case status := <-c.statusCh:
			c.state.store(status, time.Now())
		case ev := <-c.events:
			switch ev {
			case eventControl:
				c.controlTick(ctx)
			case eventBroadcast:
				c.broadcaster.broadcast(ctx)
			case eventReport:
				c.reportTick()
			}
		case reason := <-c.emergencyCh:
			c.shutdown(ctx, reason)
		case <-ctx.Done():
			log.Info().Str("comp", "master").Msg("controller stopped")
			return
		}
	}
}

func (c *Controller) post(ev event) {
	select {
	case c.events <- ev:
	default:
		// The loop is behind; dropping a tick is safe, the next one repeats it.
	}
}

// controlTick is one pass of the aggregation/detection/optimization chain.
func (c *Controller) controlTick(ctx context.Context) {
	if c.supervisor.active() {
		return
	}

	c.aggregator.aggregate(time.Now())
	mask := c.detector.detect()
	c.logFaultTransitions(mask)

	if c.optimizer.reactToFaults(mask) {
		c.shutdown(ctx, "all nodes offline")
		return
	}

	compensated, critical := c.optimizer.compensate()
	switch {
	case critical:
		c.shutdown(ctx, "no working nodes")
	case compensated:
		// Compensation pre-empts the ramp and goes out immediately.
		c.broadcaster.broadcast(ctx)
	case !c.optimizer.degraded:
		c.optimizer.optimize()
	}
}

func (c *Controller) reportTick() {
	c.report()
	c.metrics.update(c.state)
	c.indicator.Set(pattern(c.state, c.cfg.NumNodes))

	snap := c.snapshot(time.Now())
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
}

func (c *Controller) shutdown(ctx context.Context, reason string) {
	if !c.supervisor.trigger(reason) {
		return
	}
	c.metrics.emergencies.Inc()
	c.broadcaster.broadcast(ctx)
	c.indicator.Set(PatternEmergency)
}

func (c *Controller) logFaultTransitions(mask common.FaultMask) {
	if mask == c.lastMask {
		return
	}
	if mask == 0 {
		log.Info().Str("comp", "master").Msg("all faults cleared")
	} else {
		log.Warn().Str("comp", "master").
			Str("faults", mask.String()).
			Str("previous", c.lastMask.String()).
			Msg("fault state changed")
	}
	c.lastMask = mask
}

// EmergencyStop requests a terminal shutdown from outside the control loop,
// e.g. the manual trigger on the HTTP API.
func (c *Controller) EmergencyStop(reason string) {
	select {
	case c.emergencyCh <- reason:
	default:
		// A trigger is already pending; the state is latching anyway.
	}
}

// Snapshot returns the last published state copy for the HTTP API.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}
