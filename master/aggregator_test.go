package master

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"code.siemens.com/pv-string-controller/common"
)

func testMasterConfig() common.MasterConfig {
	return common.MasterConfig{
		NumNodes:                4,
		TargetSystemVoltage:     48.0,
		MinSystemVoltage:        36.0,
		MaxSystemVoltage:        60.0,
		VoltageRampStep:         0.1,
		VoltageRampInterval:     2 * time.Second,
		CommandInterval:         2 * time.Second,
		ReportInterval:          time.Second,
		NodeTimeout:             5 * time.Second,
		BalanceTolerance:        1.0,
		OvervoltageThreshold:    14.0,
		OvercurrentThreshold:    35.0,
		EfficiencyWarning:       80.0,
		MinPowerForEfficiency:   10.0,
		MinNodesForCompensation: 2,
		MaxCompensationVoltage:  30.0,
		WorkingVoltageFloor:     2.0,
		WorkingCurrentFloor:     0.1,
		WorkingPowerFloor:       0.5,
	}
}

func freshStatus(id int, outV, outA float64) common.NodeStatus {
	return common.NodeStatus{
		NodeId:        uint8(id),
		InputVoltage:  28.0,
		InputCurrent:  8.0,
		InputPower:    224.0,
		OutputVoltage: outV,
		OutputCurrent: outA,
		OutputPower:   outV * outA,
		Status:        common.StatusNormal,
	}
}

func TestAggregateLiveness(t *testing.T) {
	cfg := testMasterConfig()
	s := newState(cfg)
	a := newAggregator(cfg, s)
	now := time.Now()

	s.store(freshStatus(1, 12.0, 16.0), now)
	s.store(freshStatus(2, 12.0, 16.0), now.Add(-cfg.NodeTimeout)) // stale

	a.aggregate(now)

	assert.True(t, s.trackers[1].online)
	assert.False(t, s.trackers[2].online)
	assert.False(t, s.trackers[3].online)
	assert.Equal(t, 1, s.system.nodesOnline)
	assert.InDelta(t, 12.0, s.system.systemVoltage, 1e-9)

	// A fresh report re-includes the node on the very next tick.
	s.store(freshStatus(2, 12.0, 16.0), now)
	a.aggregate(now)
	assert.True(t, s.trackers[2].online)
	assert.Equal(t, 2, s.system.nodesOnline)
	assert.InDelta(t, 24.0, s.system.systemVoltage, 1e-9)
}

func TestAggregateSeriesCurrentIsNotSummed(t *testing.T) {
	cfg := testMasterConfig()
	s := newState(cfg)
	a := newAggregator(cfg, s)
	now := time.Now()

	// Different reported currents: the last processed online node stands.
	s.store(freshStatus(1, 12.0, 10.0), now)
	s.store(freshStatus(3, 12.0, 15.0), now)
	s.store(freshStatus(4, 12.0, 12.5), now)

	a.aggregate(now)
	assert.InDelta(t, 12.5, s.system.totalOutputCurrent, 1e-9)

	// Knock node 4 offline: node 3's reading stands instead.
	s.trackers[4].lastUpdate = now.Add(-2 * cfg.NodeTimeout)
	a.aggregate(now)
	assert.InDelta(t, 15.0, s.system.totalOutputCurrent, 1e-9)
}

func TestAggregateEfficiency(t *testing.T) {
	cfg := testMasterConfig()
	s := newState(cfg)
	a := newAggregator(cfg, s)
	now := time.Now()

	status := freshStatus(1, 12.0, 16.0)
	status.InputPower = 200.0
	status.OutputPower = 170.0
	s.store(status, now)

	a.aggregate(now)
	assert.InDelta(t, 85.0, s.system.systemEfficiency, 1e-9)
}

func TestAggregateEfficiencyGuardsDivideByZero(t *testing.T) {
	cfg := testMasterConfig()
	s := newState(cfg)
	a := newAggregator(cfg, s)
	now := time.Now()

	status := freshStatus(1, 0, 0)
	status.InputPower = 0
	status.OutputPower = 0
	s.store(status, now)

	a.aggregate(now)
	assert.Equal(t, 0.0, s.system.systemEfficiency)
}

func TestAggregateCountsShadedNodes(t *testing.T) {
	cfg := testMasterConfig()
	s := newState(cfg)
	a := newAggregator(cfg, s)
	now := time.Now()

	shaded := freshStatus(1, 12.0, 16.0)
	shaded.Status = common.StatusShading
	s.store(shaded, now)
	s.store(freshStatus(2, 12.0, 16.0), now)

	a.aggregate(now)
	assert.Equal(t, 1, s.system.shadedNodes)
}

func TestMissedWindowCounterSaturates(t *testing.T) {
	cfg := testMasterConfig()
	s := newState(cfg)
	a := newAggregator(cfg, s)
	now := time.Now()

	s.trackers[1].consecutiveErrors = math.MaxUint16 - 1
	a.aggregate(now)
	assert.Equal(t, uint16(math.MaxUint16), s.trackers[1].consecutiveErrors)

	// Saturates instead of wrapping back to zero.
	a.aggregate(now)
	assert.Equal(t, uint16(math.MaxUint16), s.trackers[1].consecutiveErrors)

	// A fresh report clears the counter.
	s.store(freshStatus(1, 12.0, 16.0), now)
	assert.Equal(t, uint16(0), s.trackers[1].consecutiveErrors)
}

func TestStoreRejectsOutOfRangeIds(t *testing.T) {
	cfg := testMasterConfig()
	s := newState(cfg)

	s.store(common.NodeStatus{NodeId: 0}, time.Now())
	s.store(common.NodeStatus{NodeId: 5}, time.Now())
	assert.False(t, s.receivedAny)
}
