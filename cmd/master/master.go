package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"code.siemens.com/pv-string-controller/common"
	"code.siemens.com/pv-string-controller/master"
	"code.siemens.com/pv-string-controller/transport"
	"code.siemens.com/pv-string-controller/web"
)

func main() {
	var configPath string
	var url string
	var id string
	var webAddr string
	debug := flag.Bool("debug", false, "enable debug logging")
	pretty := flag.Bool("pretty", false, "human-readable log output")
	flag.StringVar(&configPath, "config", "", "path to YAML config file")
	flag.StringVar(&url, "url", "", "mqtt broker url")
	flag.StringVar(&id, "id", "", "mqtt client id")
	flag.StringVar(&webAddr, "addr", "", "http listen address")
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
	cfg.Name = "master"
	if url != "" {
		cfg.Url = url
	}
	if id != "" {
		cfg.Id = id
	}
	if webAddr != "" {
		cfg.Web.Addr = webAddr
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

	statusCh, err := connector.SubscribeStatus(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("status subscription failed")
	}

	controller := master.NewController(cfg.Master, connector, statusCh, nil, nil)
	controller.Start(ctx)

	if cfg.Web.Enabled {
		web.NewServer(cfg.Web, controller, nil).Start(ctx)
	}

	<-ctx.Done()
	log.Info().Msg("master shutting down")
}
