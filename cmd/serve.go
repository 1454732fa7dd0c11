package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/0xERR0R/resolvd/api"
	"github.com/0xERR0R/resolvd/config"
	"github.com/0xERR0R/resolvd/evt"
	"github.com/0xERR0R/resolvd/log"
	"github.com/0xERR0R/resolvd/metrics"
	"github.com/0xERR0R/resolvd/resolve"
	"github.com/0xERR0R/resolvd/server"
	"github.com/0xERR0R/resolvd/stats"
	"github.com/0xERR0R/resolvd/util"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Args:  cobra.NoArgs,
		Short: "start resolvd (default command)",
		RunE:  startServer,
	}
}

func startServer(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(configPath, true)
	if err != nil {
		return fmt.Errorf("unable to load configuration: %w", err)
	}

	log.ConfigureLogger(cfg.Log)

	printBanner()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine, err := resolve.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("can't create resolution engine: %w", err)
	}

	go func() {
		util.LogOnError("event loop terminated: ", engine.Run(ctx))
	}()

	collector, err := stats.NewCollector()
	if err != nil {
		return fmt.Errorf("can't create statistics collector: %w", err)
	}

	stub, err := server.NewStub(cfg, engine)
	if err != nil {
		return fmt.Errorf("can't create stub listener: %w", err)
	}

	errCh := make(chan error)

	stub.Start(errCh)

	if cfg.Ports.HTTP != "" {
		if err := startHTTPServer(cfg, engine, collector, errCh); err != nil {
			return err
		}
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	evt.Bus().Publish(evt.ApplicationStarted, util.Version, util.BuildTime)

	select {
	case err := <-errCh:
		return err
	case <-signals:
		log.Log().Info("terminating...")
		cancel()

		return stub.Stop()
	}
}

func startHTTPServer(cfg *config.Config, engine *resolve.Manager,
	collector *stats.Collector, errCh chan<- error) error {
	router := api.CreateRouter(cfg)

	api.RegisterEndpoint(router, engine)
	api.RegisterEndpoint(router, collector)

	metrics.Start(router, cfg.Prometheus)

	listener, err := net.Listen("tcp", cfg.Ports.HTTP)
	if err != nil {
		return fmt.Errorf("can't listen on %s: %w", cfg.Ports.HTTP, err)
	}

	go func() {
		log.Log().Infof("http server is up and running on addr/port %s", cfg.Ports.HTTP)

		errCh <- http.Serve(listener, router)
	}()

	return nil
}

func printBanner() {
	log.Log().Info("_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/")
	log.Log().Info("_/                                                              _/")
	log.Log().Info("_/                                                              _/")
	log.Log().Info("_/                  r  e  s  o  l  v  d                         _/")
	log.Log().Info("_/                                                              _/")
	log.Log().Info("_/                                                              _/")
	log.Log().Infof("_/  Version: %-18s Build time: %-18s  _/", util.Version, util.BuildTime)
	log.Log().Info("_/                                                              _/")
	log.Log().Info("_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/")
}
