// cmd/modbus-io/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tamzrod/modbus-io/internal/bridge/httpapi"
	"github.com/tamzrod/modbus-io/internal/bridge/mqtt"
	"github.com/tamzrod/modbus-io/internal/command"
	"github.com/tamzrod/modbus-io/internal/config"
	"github.com/tamzrod/modbus-io/internal/metrics"
	"github.com/tamzrod/modbus-io/internal/poller"
	"github.com/tamzrod/modbus-io/internal/publish"
	"github.com/tamzrod/modbus-io/internal/session"
	"github.com/tamzrod/modbus-io/internal/status"
	"github.com/tamzrod/modbus-io/internal/supervisor"
	"github.com/tamzrod/modbus-io/internal/writer"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "modbus_io",
	})

	if len(os.Args) < 2 {
		logger.Fatal("usage: modbus-io <config.yaml>")
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		logger.Fatal("config load failed", "err", err)
	}
	if err := config.Validate(cfg); err != nil {
		logger.Fatal("config validation failed", "err", err)
	}
	config.Normalize(cfg)

	level, err := cfg.LogLevel()
	if err != nil {
		logger.Fatal("log level", "level", cfg.Log.Level, "err", err)
	}
	logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("stopped", "err", err)
	}
	logger.Info("stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	logger.Info("settings",
		"device", cfg.Device.Address, "port", cfg.Device.Port, "unit_id", cfg.Device.UnitID,
		"frequency_hz", cfg.Poll.FrequencyHz, "big_endian", cfg.Device.BigEndian,
	)
	logger.Infof("DO = %d (register %d), DI = %d (register %d)",
		cfg.IO.DigitalOutputs, cfg.IO.DigitalOutputsAddr,
		cfg.IO.DigitalInputs, cfg.IO.DigitalInputsAddr,
	)

	diag := status.New(cfg.Poll.FrequencyHz)

	sessCfg := session.Config{
		Address: cfg.Device.Address,
		Port:    cfg.Device.Port,
		UnitID:  cfg.Device.UnitID,
		Timeout: cfg.Timeout(),
		Trace:   cfg.Device.Trace,
	}
	sess, err := session.New(sessCfg, logger.With("component", "session"))
	if err != nil {
		return err
	}

	// ---- commands (share the poller cache) ----
	pcfg := poller.ConfigFrom(cfg)
	cache := &poller.Cache{}
	cmds := command.New(command.Config{
		Inputs:    pcfg.Inputs,
		Outputs:   pcfg.Outputs,
		BigEndian: pcfg.BigEndian,
	}, sess, cache, diag, logger.With("component", "command"))

	// ---- publish targets ----
	latest := &publish.Latest{}
	targets := []publish.Target{{Name: "latest", Sink: latest}}

	if cfg.MQTT.Broker != "" {
		mc, err := mqtt.New(mqtt.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
		}, cmds, logger.With("component", "mqtt"))
		if err != nil {
			return err
		}
		if err := mc.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := mc.Stop(stopCtx); err != nil {
				logger.Warn("mqtt disconnect", "err", err)
			}
		}()
		targets = append(targets, publish.Target{Name: "mqtt", Sink: mc})
	}

	// ---- poller + supervisor ----
	p, err := poller.Build(cfg, cache, sess, publish.Fanout(targets...), diag, logger.With("component", "poller"))
	if err != nil {
		return err
	}

	sup, err := supervisor.New(sess, p, cfg.Backoff(), diag, logger.With("component", "supervisor"))
	if err != nil {
		return err
	}

	// ---- http (optional) ----
	var wg sync.WaitGroup
	if cfg.HTTP.Listen != "" {
		mh, err := metrics.Handler(diag)
		if err != nil {
			return err
		}

		probeLogger := logger.With("component", "selftest")
		srv := httpapi.New(cfg.HTTP.Listen, httpapi.Deps{
			Diagnostics: diag,
			Latest:      latest,
			Commands:    cmds,
			Metrics:     mh,
			SelfTest:    func() error { return session.Probe(sessCfg, probeLogger) },
		}, logger.With("component", "http"))

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(ctx); err != nil {
				logger.Error("http server", "err", err)
			}
		}()
	}

	// ---- status memory (optional) ----
	var mirror *writer.Mirror
	if cfg.StatusMemory.Endpoint != "" {
		cli, err := writer.NewEndpointClient(writer.Config{
			Endpoint: cfg.StatusMemory.Endpoint,
			Timeout:  cfg.StatusTimeout(),
		})
		if err != nil {
			return err
		}
		defer cli.Close()

		sw, err := writer.NewStatusWriter(writer.StatusPlan{
			UnitID:     cfg.StatusMemory.UnitID,
			BaseSlot:   cfg.StatusMemory.BaseSlot,
			DeviceName: cfg.StatusMemory.DeviceName,
		}, cli)
		if err != nil {
			return err
		}

		mirror = writer.NewMirror(sw, diag, logger.With("component", "status"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			mirror.Run(ctx)
		}()
	}

	err = sup.Run(ctx)
	wg.Wait()

	// Leave the disabled state behind for whoever reads status memory.
	if mirror != nil {
		if serr := mirror.Sync(); serr != nil {
			logger.Warn("final status write failed", "err", serr)
		}
	}
	return err
}
