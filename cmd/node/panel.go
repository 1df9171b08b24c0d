package main

import (
	"math"
	"math/rand"

	"code.siemens.com/pv-string-controller/node"
)

// simulatedPanel is a software stand-in for the panel ADC and the switching
// stage, good enough to exercise the tracker against a broker without
// hardware. The I-V curve is a single-diode approximation with a little
// measurement noise.
type simulatedPanel struct {
	voc        float64 // open-circuit voltage
	isc        float64 // short-circuit current
	irradiance float64 // 0..1
	busVoltage float64
	efficiency float64

	duty float64
	rng  *rand.Rand
}

func newSimulatedPanel(voc, isc, irradiance float64, seed int64) *simulatedPanel {
	return &simulatedPanel{
		voc:        voc,
		isc:        isc,
		irradiance: irradiance,
		busVoltage: 12.0,
		efficiency: 0.95,
		duty:       5.0,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

func (p *simulatedPanel) SetDuty(percent float64) {
	p.duty = percent
}

// Sample maps the duty cycle onto the panel's operating point: a higher duty
// pulls the operating voltage down from open circuit toward short circuit.
func (p *simulatedPanel) Sample() (reading node.Reading, err error) {
	v := p.voc * (1.0 - p.duty/100.0)
	if v < 0 {
		v = 0
	}
	i := p.isc * p.irradiance * (1.0 - math.Pow(v/p.voc, 8))
	if i < 0 {
		i = 0
	}

	v *= p.noise()
	i *= p.noise()

	outPower := v * i * p.efficiency
	reading = node.Reading{
		InputVoltage:  v,
		InputCurrent:  i,
		OutputVoltage: p.busVoltage,
		OutputCurrent: outPower / p.busVoltage,
	}
	return reading, nil
}

// noise is a ±1% multiplicative measurement error.
func (p *simulatedPanel) noise() float64 {
	return 1.0 + (p.rng.Float64()-0.5)*0.02
}
