package master

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	nodesOnline prometheus.Gauge
	shadedNodes prometheus.Gauge
	inputPower  prometheus.Gauge
	outputPower prometheus.Gauge
	voltage     prometheus.Gauge
	current     prometheus.Gauge
	efficiency  prometheus.Gauge
	setpoint    prometheus.Gauge
	faultBits   prometheus.Gauge
	emergencies prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		nodesOnline: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pvsc_nodes_online", Help: "Nodes currently within the liveness timeout."}),
		shadedNodes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pvsc_nodes_shaded", Help: "Nodes reporting shading."}),
		inputPower: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pvsc_input_power_watts", Help: "Total panel-side power of online nodes."}),
		outputPower: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pvsc_output_power_watts", Help: "Total bus-side power of online nodes."}),
		voltage: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pvsc_system_voltage_volts", Help: "Sum of per-node output voltages."}),
		current: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pvsc_system_current_amperes", Help: "Shared series output current."}),
		efficiency: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pvsc_system_efficiency_percent", Help: "Output over input power."}),
		setpoint: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pvsc_voltage_setpoint_volts", Help: "Commanded per-node voltage."}),
		faultBits: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pvsc_fault_bits", Help: "Active fault bitmask."}),
		emergencies: factory.NewCounter(prometheus.CounterOpts{
			Name: "pvsc_emergency_stops_total", Help: "Supervisor shutdown latches."}),
	}
}

func (m *metrics) update(s *state) {
	m.nodesOnline.Set(float64(s.system.nodesOnline))
	m.shadedNodes.Set(float64(s.system.shadedNodes))
	m.inputPower.Set(s.system.totalInputPower)
	m.outputPower.Set(s.system.totalOutputPower)
	m.voltage.Set(s.system.systemVoltage)
	m.current.Set(s.system.totalOutputCurrent)
	m.efficiency.Set(s.system.systemEfficiency)
	m.setpoint.Set(s.setpoint)
	m.faultBits.Set(float64(s.system.faults))
}
