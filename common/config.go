package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

type Config struct {
	Url    string
	Name   string
	Id     string
	Master MasterConfig
	Node   NodeConfig
	Web    WebConfig
}

type MasterConfig struct {
	NumNodes            int
	TargetSystemVoltage float64
	MinSystemVoltage    float64
	MaxSystemVoltage    float64

	VoltageRampStep         float64
	VoltageRampInterval     time.Duration
	CommandInterval         time.Duration
	ReportInterval          time.Duration
	NodeTimeout             time.Duration
	BalanceTolerance        float64
	OvervoltageThreshold    float64
	OvercurrentThreshold    float64
	EfficiencyWarning       float64
	MinPowerForEfficiency   float64
	MinNodesForCompensation int
	MaxCompensationVoltage  float64

	// Floors for classifying a node as Working during degraded-node
	// compensation.
	WorkingVoltageFloor float64
	WorkingCurrentFloor float64
	WorkingPowerFloor   float64
}

type NodeConfig struct {
	NodeId         int
	SampleInterval time.Duration
	ReportInterval time.Duration

	// CommandTimeout is how long a node runs without hearing any master
	// command before it drops to the idle duty cycle. Defaults to three
	// master command intervals.
	CommandTimeout time.Duration

	Mppt  MpptConfig
	Fault FaultConfig
}

type MpptConfig struct {
	MinDuty           float64
	MaxDuty           float64
	IdleDuty          float64
	DutyStep          float64
	StartupStep       float64
	StartupIterations int
	LowVoltageFloor   float64
	MinPower          float64
	Epsilon           float64
}

type FaultConfig struct {
	VoltageFloor       float64
	CurrentFloor       float64
	PowerFloor         float64
	ShortCircuitBound  float64
	SoftFaultReference float64
	HardDropPercent    float64
	ShadingDropPercent float64
	OvervoltageMargin  float64
	CurrentCeiling     float64
}

type WebConfig struct {
	Enabled bool
	Addr    string
}

func NewConfig() *Config {
	return &Config{
		Url:  "tcp://localhost:1883",
		Name: "pvsc",
		Id:   uuid.NewString(),
		Master: MasterConfig{
			NumNodes:                4,
			TargetSystemVoltage:     48.0,
			MinSystemVoltage:        36.0,
			MaxSystemVoltage:        60.0,
			VoltageRampStep:         0.1,
			VoltageRampInterval:     2000 * time.Millisecond,
			CommandInterval:         2000 * time.Millisecond,
			ReportInterval:          1000 * time.Millisecond,
			NodeTimeout:             5000 * time.Millisecond,
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
		},
		Node: NodeConfig{
			NodeId:         1,
			SampleInterval: 500 * time.Millisecond,
			ReportInterval: 1000 * time.Millisecond,
			CommandTimeout: 6000 * time.Millisecond,
			Mppt: MpptConfig{
				MinDuty:           5.0,
				MaxDuty:           95.0,
				IdleDuty:          5.0,
				DutyStep:          0.5,
				StartupStep:       1.0,
				StartupIterations: 10,
				LowVoltageFloor:   5.0,
				MinPower:          1.0,
				Epsilon:           0.1,
			},
			Fault: FaultConfig{
				VoltageFloor:       2.0,
				CurrentFloor:       0.1,
				PowerFloor:         0.5,
				ShortCircuitBound:  1.0,
				SoftFaultReference: 10.0,
				HardDropPercent:    90.0,
				ShadingDropPercent: 50.0,
				OvervoltageMargin:  2.0,
				CurrentCeiling:     35.0,
			},
		},
		Web: WebConfig{
			Enabled: true,
			Addr:    ":8080",
		},
	}
}

// TargetNodeVoltage is the per-node share of the system voltage target.
func (c MasterConfig) TargetNodeVoltage() float64 {
	return c.TargetSystemVoltage / float64(c.NumNodes)
}

// MinNodeVoltage is the lower bound of the per-node setpoint.
func (c MasterConfig) MinNodeVoltage() float64 {
	return c.MinSystemVoltage / float64(c.NumNodes)
}

// MaxNodeVoltage is the upper bound of the per-node setpoint.
func (c MasterConfig) MaxNodeVoltage() float64 {
	return c.MaxSystemVoltage / float64(c.NumNodes)
}

// Load returns the defaults overlaid with an optional YAML config file and
// PVSC_* environment variables.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	v := viper.New()
	v.SetEnvPrefix("PVSC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Master.NumNodes < 1 {
		return nil, fmt.Errorf("invalid node count %d", cfg.Master.NumNodes)
	}

	return cfg, nil
}

// setDefaults registers every key with its built-in default. AutomaticEnv
// only resolves environment variables for keys viper already knows, so
// without this the PVSC_* overrides would never be consulted in a run
// without a config file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("url", cfg.Url)
	v.SetDefault("name", cfg.Name)
	v.SetDefault("id", cfg.Id)

	v.SetDefault("master.numnodes", cfg.Master.NumNodes)
	v.SetDefault("master.targetsystemvoltage", cfg.Master.TargetSystemVoltage)
	v.SetDefault("master.minsystemvoltage", cfg.Master.MinSystemVoltage)
	v.SetDefault("master.maxsystemvoltage", cfg.Master.MaxSystemVoltage)
	v.SetDefault("master.voltagerampstep", cfg.Master.VoltageRampStep)
	v.SetDefault("master.voltagerampinterval", cfg.Master.VoltageRampInterval)
	v.SetDefault("master.commandinterval", cfg.Master.CommandInterval)
	v.SetDefault("master.reportinterval", cfg.Master.ReportInterval)
	v.SetDefault("master.nodetimeout", cfg.Master.NodeTimeout)
	v.SetDefault("master.balancetolerance", cfg.Master.BalanceTolerance)
	v.SetDefault("master.overvoltagethreshold", cfg.Master.OvervoltageThreshold)
	v.SetDefault("master.overcurrentthreshold", cfg.Master.OvercurrentThreshold)
	v.SetDefault("master.efficiencywarning", cfg.Master.EfficiencyWarning)
	v.SetDefault("master.minpowerforefficiency", cfg.Master.MinPowerForEfficiency)
	v.SetDefault("master.minnodesforcompensation", cfg.Master.MinNodesForCompensation)
	v.SetDefault("master.maxcompensationvoltage", cfg.Master.MaxCompensationVoltage)
	v.SetDefault("master.workingvoltagefloor", cfg.Master.WorkingVoltageFloor)
	v.SetDefault("master.workingcurrentfloor", cfg.Master.WorkingCurrentFloor)
	v.SetDefault("master.workingpowerfloor", cfg.Master.WorkingPowerFloor)

	v.SetDefault("node.nodeid", cfg.Node.NodeId)
	v.SetDefault("node.sampleinterval", cfg.Node.SampleInterval)
	v.SetDefault("node.reportinterval", cfg.Node.ReportInterval)
	v.SetDefault("node.commandtimeout", cfg.Node.CommandTimeout)
	v.SetDefault("node.mppt.minduty", cfg.Node.Mppt.MinDuty)
	v.SetDefault("node.mppt.maxduty", cfg.Node.Mppt.MaxDuty)
	v.SetDefault("node.mppt.idleduty", cfg.Node.Mppt.IdleDuty)
	v.SetDefault("node.mppt.dutystep", cfg.Node.Mppt.DutyStep)
	v.SetDefault("node.mppt.startupstep", cfg.Node.Mppt.StartupStep)
	v.SetDefault("node.mppt.startupiterations", cfg.Node.Mppt.StartupIterations)
	v.SetDefault("node.mppt.lowvoltagefloor", cfg.Node.Mppt.LowVoltageFloor)
	v.SetDefault("node.mppt.minpower", cfg.Node.Mppt.MinPower)
	v.SetDefault("node.mppt.epsilon", cfg.Node.Mppt.Epsilon)
	v.SetDefault("node.fault.voltagefloor", cfg.Node.Fault.VoltageFloor)
	v.SetDefault("node.fault.currentfloor", cfg.Node.Fault.CurrentFloor)
	v.SetDefault("node.fault.powerfloor", cfg.Node.Fault.PowerFloor)
	v.SetDefault("node.fault.shortcircuitbound", cfg.Node.Fault.ShortCircuitBound)
	v.SetDefault("node.fault.softfaultreference", cfg.Node.Fault.SoftFaultReference)
	v.SetDefault("node.fault.harddroppercent", cfg.Node.Fault.HardDropPercent)
	v.SetDefault("node.fault.shadingdroppercent", cfg.Node.Fault.ShadingDropPercent)
	v.SetDefault("node.fault.overvoltagemargin", cfg.Node.Fault.OvervoltageMargin)
	v.SetDefault("node.fault.currentceiling", cfg.Node.Fault.CurrentCeiling)

	v.SetDefault("web.enabled", cfg.Web.Enabled)
	v.SetDefault("web.addr", cfg.Web.Addr)
}
