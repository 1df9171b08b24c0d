package node

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"code.siemens.com/pv-string-controller/common"
)

func faultConfig() common.FaultConfig {
	return common.FaultConfig{
		VoltageFloor:       2.0,
		CurrentFloor:       0.1,
		PowerFloor:         0.5,
		ShortCircuitBound:  1.0,
		SoftFaultReference: 10.0,
		HardDropPercent:    90.0,
		ShadingDropPercent: 50.0,
		OvervoltageMargin:  2.0,
		CurrentCeiling:     35.0,
	}
}

func TestOpenCircuitIsHardFault(t *testing.T) {
	c := NewClassifier(faultConfig(), 1, 12.0)
	assert.Equal(t, common.StatusHardFault, c.Classify(1.0, 0.05, 0.05))
}

func TestShortCircuitIsHardFault(t *testing.T) {
	c := NewClassifier(faultConfig(), 1, 12.0)
	assert.Equal(t, common.StatusHardFault, c.Classify(1.0, 5.0, 5.0))
}

func TestDeadPanelIsHardFault(t *testing.T) {
	// Voltage present but no power.
	c := NewClassifier(faultConfig(), 1, 12.0)
	assert.Equal(t, common.StatusHardFault, c.Classify(18.0, 0.01, 0.18))
}

func TestSeverePowerDropIsHardFault(t *testing.T) {
	c := NewClassifier(faultConfig(), 1, 12.0)
	assert.Equal(t, common.StatusNormal, c.Classify(10.0, 2.0, 20.0))
	// 95% drop and the remaining power is below the soft-fault reference.
	assert.Equal(t, common.StatusHardFault, c.Classify(10.0, 0.1, 1.0))
}

func TestSeverePowerDropWithResidualPowerIsSoftFault(t *testing.T) {
	c := NewClassifier(faultConfig(), 1, 12.0)
	assert.Equal(t, common.StatusNormal, c.Classify(24.0, 10.0, 240.0))
	// 95% drop but 12 W remain, above the soft-fault reference.
	assert.Equal(t, common.StatusSoftFault, c.Classify(12.0, 1.0, 12.0))
}

func TestPartialPowerDropIsShading(t *testing.T) {
	c := NewClassifier(faultConfig(), 1, 12.0)
	assert.Equal(t, common.StatusNormal, c.Classify(20.0, 2.5, 50.0))
	// 60% drop.
	assert.Equal(t, common.StatusShading, c.Classify(20.0, 1.0, 20.0))
}

func TestOvervoltageAgainstCommandedTarget(t *testing.T) {
	cfg := faultConfig()
	cfg.OvervoltageMargin = 0.5
	c := NewClassifier(cfg, 1, 12.0)
	assert.Equal(t, common.StatusOvervoltage, c.Classify(13.0, 1.0, 13.0))

	// Raising the commanded target moves the ceiling.
	c.SetTarget(14.0)
	assert.Equal(t, common.StatusNormal, c.Classify(13.0, 1.0, 13.0))
}

func TestOvercurrent(t *testing.T) {
	c := NewClassifier(faultConfig(), 1, 12.0)
	assert.Equal(t, common.StatusOvercurrent, c.Classify(12.0, 36.0, 432.0))
}

func TestNormalOperation(t *testing.T) {
	c := NewClassifier(faultConfig(), 1, 12.0)
	assert.Equal(t, common.StatusNormal, c.Classify(12.0, 8.0, 96.0))
}

func TestDropRulesNeedPriorSampleAboveReference(t *testing.T) {
	c := NewClassifier(faultConfig(), 1, 12.0)
	// Prior power below the soft-fault reference: drop rules stay silent.
	assert.Equal(t, common.StatusNormal, c.Classify(8.0, 1.0, 8.0))
	assert.Equal(t, common.StatusNormal, c.Classify(8.0, 0.5, 4.0))
}

func TestHardFaultPriorityOverPowerDrop(t *testing.T) {
	// Open circuit wins even if a power-drop rule would also match.
	c := NewClassifier(faultConfig(), 1, 12.0)
	c.Classify(20.0, 2.0, 40.0)
	assert.Equal(t, common.StatusHardFault, c.Classify(1.0, 0.0, 0.0))
}
