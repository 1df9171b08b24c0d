package node

// Reading is one electrical sample of both converter sides, delivered by the
// ADC driver (external collaborator).
type Reading struct {
	InputVoltage  float64
	InputCurrent  float64
	OutputVoltage float64
	OutputCurrent float64
}

// Sampler delivers electrical readings.
type Sampler interface {
	Sample() (Reading, error)
}

// Converter applies a duty cycle to the switching stage (PWM driver,
// external collaborator).
type Converter interface {
	SetDuty(percent float64)
}
