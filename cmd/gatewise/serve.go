package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/GateWise/server/internal/config"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/aggregator"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/notify"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/service"
	"github.com/BrandonDHaskell/GateWise/server/internal/healthcheck"
	"github.com/BrandonDHaskell/GateWise/server/internal/httpapi"
	"github.com/BrandonDHaskell/GateWise/server/internal/metrics"
)

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the door event listener and monitor API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	log := a.log

	station, err := config.OpenStation(cfg.UsersPath, cfg.StationPath)
	if err != nil {
		return err
	}
	log.Info("station loaded",
		zap.Int("users", len(station.Users())),
		zap.Stringer("timezone", station.Location()),
	)

	st, err := a.openStores(ctx)
	if err != nil {
		return err
	}
	defer st.close()

	m := metrics.New()
	doors := service.NewDoorRegistry(st.doors)

	var camera service.Camera
	if cfg.SnapshotDir != "" {
		camera = service.SnapshotNamer{Dir: cfg.SnapshotDir}
	}

	access := service.NewAccessService(service.Dependencies{
		Logger:          log,
		Metrics:         m,
		Station:         station,
		Audit:           st.audit,
		Camera:          camera,
		DoorName:        cfg.DoorName,
		RequireSnapshot: cfg.RequireSnapshot,
	})

	var onState func(aggregator.State)
	if cfg.GRPCAddr != "" {
		health := healthcheck.New(cfg.GRPCAddr, log)
		if err := health.Start(); err != nil {
			return err
		}
		defer func() {
			health.SetServing(false)
			health.Stop()
		}()
		onState = func(s aggregator.State) { health.SetServing(s == aggregator.StateServing) }
	}

	agg := aggregator.New(aggregator.Dependencies{
		Logger:      log,
		Metrics:     m,
		Addr:        cfg.ListenAddr,
		Access:      access,
		Audit:       st.audit,
		Doors:       doors,
		Capacity:    cfg.RingCapacity,
		MaxPayload:  cfg.MaxPayloadBytes,
		ReadTimeout: cfg.ReadTimeout,

		OnStateChange: onState,
	})
	// a bind failure means the station cannot serve
	if err := agg.Start(ctx); err != nil {
		return err
	}
	defer agg.Stop()

	if cfg.AMQPURL != "" {
		pub, err := notify.Dial(cfg.AMQPURL, cfg.AMQPExchange, log)
		if err != nil {
			log.Warn("event publishing disabled", zap.Error(err))
		} else {
			cancel := agg.Subscribe(pub.Handle)
			defer func() {
				cancel()
				_ = pub.Close()
			}()
			log.Info("publishing door events", zap.String("exchange", cfg.AMQPExchange))
		}
	}

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:     log,
		Metrics:    m,
		Addr:       cfg.HTTPAddr,
		Aggregator: agg,
		Audit:      st.audit,
		Doors:      doors,
		Commands: &aggregator.CommandSender{
			Timeout: cfg.CommandTimeout,
			Logger:  log,
			Metrics: m,
		},
		Station: station,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-errCh:
		log.Error("http server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	return err
}
