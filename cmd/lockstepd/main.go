package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/gorilla/mux"
	"github.com/tendermint/tendermint/libs/log"
	"github.com/tessara-io/lockstep"
	"github.com/tessara-io/lockstep/cmd/lockstepd/handlers"
	"github.com/tessara-io/lockstep/cmd/lockstepd/metrics"
	"github.com/tessara-io/lockstep/errors"
	"github.com/tessara-io/lockstep/x/msig"
)

type configuration struct {
	// HTTP is the address the daemon listens on.
	HTTP string `env:"LOCKSTEP_HTTP" envDefault:":8000"`
	// ChainID names this deployment. It is part of every migration
	// attestation. Ignored when a genesis file is configured, because the
	// genesis declares the chain ID then.
	ChainID string `env:"LOCKSTEP_CHAIN_ID" envDefault:"lockstep-local"`
	// Genesis is an optional path to a genesis file with the initial
	// accounts.
	Genesis string `env:"LOCKSTEP_GENESIS"`
	// EventLog is an optional path to a file that every engine event is
	// appended to, one JSON document per line.
	EventLog string `env:"LOCKSTEP_EVENT_LOG"`
	// MaxPending caps unresolved transactions per account. Zero means the
	// engine default.
	MaxPending uint32 `env:"LOCKSTEP_MAX_PENDING"`
}

func main() {
	logger := log.NewTMLogger(log.NewSyncWriter(os.Stdout)).
		With("module", "lockstepd")

	var conf configuration
	if err := env.Parse(&conf); err != nil {
		logger.Error("cannot parse configuration", "err", err)
		os.Exit(1)
	}

	if err := run(logger, conf); err != nil {
		logger.Error("terminated", "err", err)
		os.Exit(1)
	}
}

func run(logger log.Logger, conf configuration) error {
	sinks := []msig.Sink{msig.LogSink{}}
	if conf.EventLog != "" {
		elog, err := openEventLog(conf.EventLog)
		if err != nil {
			return errors.Wrap(err, "event log")
		}
		defer elog.Close()
		sinks = append(sinks, elog)
	}

	chainID := conf.ChainID
	var appState lockstep.Options
	if conf.Genesis != "" {
		gen, err := lockstep.LoadGenesis(conf.Genesis)
		if err != nil {
			return errors.Wrap(err, "genesis")
		}
		chainID = gen.ChainID
		appState = gen.AppState
	}

	engine, err := msig.NewEngine(msig.Config{
		ChainID:    chainID,
		MaxPending: conf.MaxPending,
		Sink:       msig.MultiSink(sinks...),
	})
	if err != nil {
		return errors.Wrap(err, "engine")
	}
	if appState != nil {
		if err := engine.FromGenesis(appState); err != nil {
			return errors.Wrap(err, "genesis state")
		}
	}

	rt := mux.NewRouter()
	handlers.RegisterRoutes(rt, engine, msig.HarnessFunc(echoHarness))
	rt.Handle("/metrics", metrics.Handler()).Methods("GET")

	server := &http.Server{
		Addr:         conf.HTTP,
		Handler:      metrics.Instrument(handlers.WithLogging(logger, rt)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	failed := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server",
			"address", conf.HTTP,
			"chain_id", chainID,
			"version", lockstep.Version(),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			failed <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-failed:
		return errors.Wrap(err, "http server")
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}

// echoHarness accepts every payload without interpreting it. Deployments that
// apply payloads to an external system replace this with their own harness.
func echoHarness(ctx context.Context, auth msig.Authority, payload []byte) error {
	lockstep.GetLogger(ctx).Info("executing transaction",
		"account", auth.Account().String(),
		"sequence", auth.Sequence(),
		"payload_size", len(payload),
	)
	return nil
}
