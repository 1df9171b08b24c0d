package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"code.siemens.com/pv-string-controller/common"
	"code.siemens.com/pv-string-controller/node"
	"code.siemens.com/pv-string-controller/transport"
)

func main() {
	var configPath string
	var url string
	var nodeId int
	var voc float64
	var isc float64
	var irradiance float64
	debug := flag.Bool("debug", false, "enable debug logging")
	pretty := flag.Bool("pretty", false, "human-readable log output")
	flag.StringVar(&configPath, "config", "", "path to YAML config file")
	flag.StringVar(&url, "url", "", "mqtt broker url")
	flag.IntVar(&nodeId, "node", 0, "node id (1..N)")
	flag.Float64Var(&voc, "voc", 22.0, "simulated panel open-circuit voltage")
	flag.Float64Var(&isc, "isc", 8.0, "simulated panel short-circuit current")
	flag.Float64Var(&irradiance, "irradiance", 1.0, "simulated irradiance, 0..1")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if *pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg, err := common.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if nodeId != 0 {
		cfg.Node.NodeId = nodeId
	}
	if cfg.Node.NodeId < 1 || cfg.Node.NodeId > cfg.Master.NumNodes {
		log.Fatal().Int("node", cfg.Node.NodeId).Msg("node id out of range")
	}
	cfg.Name = fmt.Sprintf("node-%d", cfg.Node.NodeId)
	cfg.Id = fmt.Sprintf("%s-%s", cfg.Name, cfg.Id)
	if url != "" {
		cfg.Url = url
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	connector, err := transport.NewConnector(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("transport setup failed")
	}
	if err = connector.Open(ctx); err != nil {
		log.Fatal().Err(err).Msg("broker connection failed")
	}
	defer connector.Close()

	commandCh, err := connector.SubscribeCommands(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("command subscription failed")
	}

	panel := newSimulatedPanel(voc, isc, irradiance, time.Now().UnixNano())
	controller := node.NewController(cfg.Node, cfg.Master.TargetNodeVoltage(), panel, panel, connector, commandCh)
	controller.Start(ctx)

	log.Info().Int("node", cfg.Node.NodeId).Str("url", cfg.Url).Msg("node running")
	<-ctx.Done()
	log.Info().Int("node", cfg.Node.NodeId).Msg("node shutting down")
}
