package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/xtding233/lootsim/internal/catalog"
	"github.com/xtding233/lootsim/internal/config"
	"github.com/xtding233/lootsim/internal/logger"
	"github.com/xtding233/lootsim/internal/server"
)

func main() {
	cfgPath := flag.String("config", "lootsim.yaml", "config file, re-read when it changes")
	flag.Parse()

	logCfg, err := logger.LoadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "lootsim-server: logging config:", err)
		os.Exit(2)
	}
	if err := logger.Initialize(logCfg); err != nil {
		fmt.Fprintln(os.Stderr, "lootsim-server: init logger:", err)
		os.Exit(1)
	}
	defer logger.Close()

	if err := serve(*cfgPath); err != nil {
		logger.Error("server stopped", "error", err)
		logger.Close()
		if errors.Is(err, config.ErrInvalidConfig) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func serve(cfgPath string) error {
	loader := config.NewLoader(cfgPath)
	_, params, err := loader.Resolve(config.Overrides{})
	if err != nil {
		return err
	}
	cat, err := catalog.Default()
	if err != nil {
		return err
	}

	// listen addresses are fixed at startup; everything else is read per request
	watcher := config.WatchLoader(loader, 2*time.Second, func() {
		if _, p, err := loader.Resolve(config.Overrides{}); err != nil {
			logger.Warning("config reload rejected; requests will fail until it is fixed", "path", cfgPath, "error", err)
		} else {
			logger.Info("config reloaded", "path", cfgPath, "version", p.Version, "max_runs", p.MaxRuns)
		}
	})
	watcher.Start()
	defer watcher.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := server.New(cat, loader)
	listeners := []struct {
		addr   string
		listen func(context.Context, string) error
	}{
		{params.HTTPAddr, srv.ListenHTTP},
		{params.GRPCAddr, srv.ListenGRPC},
	}

	errs := make(chan error, len(listeners))
	var wg sync.WaitGroup
	for _, l := range listeners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.listen(ctx, l.addr); err != nil {
				errs <- err
				cancel() // one listener down takes the other with it
			}
		}()
	}
	wg.Wait()
	close(errs)
	return <-errs
}
