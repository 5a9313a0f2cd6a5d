package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"templog"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()

	cfg := templog.LoadConfig()

	cat := templog.DefaultCatalog()
	if cfg.DevicesFile != "" {
		var err error
		cat, err = templog.LoadCatalog(cfg.DevicesFile)
		if err != nil {
			log.Fatal().Err(err).Msg("cannot load device catalog")
		}
	}

	sel := templog.ConsoleSelector{In: os.Stdin, Out: os.Stdout}
	devices, err := sel.Select(cat.Devices)
	if err != nil {
		log.Fatal().Err(err).Msg("nothing to poll")
	}

	if ports, err := templog.ListPorts(); err == nil {
		visible := map[string]bool{}
		for _, p := range ports {
			visible[p] = true
		}
		for _, d := range devices {
			if a, err := templog.ParseAddress(d.Address); err == nil && !visible[a.Port] {
				log.Warn().Str("device", d.Name).Str("port", a.Port).Msg("port not currently visible")
			}
		}
	}

	store, err := templog.OpenStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot open sample store")
	}

	pool := templog.NewBusPool()
	var sessions []*templog.Session
	for _, d := range devices {
		s, err := templog.OpenSession(d, pool)
		if err != nil {
			log.Warn().Str("device", d.Name).Err(err).Msg("skipping instrument")
			continue
		}
		log.Info().Str("device", d.Name).Str("address", d.Address).Msg("instrument connected")
		sessions = append(sessions, s)
	}
	if len(sessions) == 0 {
		store.Close()
		log.Fatal().Msg("no instruments opened")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	broker := templog.NewBroker()
	go broker.Start()
	defer broker.Stop()

	if cfg.ListenAddr != "" {
		mon := templog.NewMonitorServer(broker)
		go func() {
			if err := mon.Run(ctx, cfg.ListenAddr); err != nil {
				log.Error().Err(err).Msg("monitor server failed")
			}
		}()
		log.Info().Str("addr", cfg.ListenAddr).Msg("live monitor listening")
	}

	log.Info().
		Str("db", cfg.DBPath).
		Dur("interval", cfg.Interval).
		Int("instruments", len(sessions)).
		Msg("starting logger, interrupt to stop")

	p := templog.NewPoller(sessions, store, cfg.Interval, log)
	p.Broker = broker
	p.Run(ctx)

	log.Info().Msg("stopping after current poll")
	p.Close()
	log.Info().Msg("logger stopped, resources released")
}
