package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/sadopc/pomotick/internal/config"
	"github.com/sadopc/pomotick/internal/device"
	"github.com/sadopc/pomotick/internal/logging"
	"github.com/sadopc/pomotick/internal/publish"
	"github.com/sadopc/pomotick/internal/stats"
	"github.com/sadopc/pomotick/internal/store"
	"github.com/sadopc/pomotick/internal/timeauth"
)

type syncClientFactory func(cfg config.Config, logger *slog.Logger) timeauth.SyncClient

func ntpSyncClient(cfg config.Config, logger *slog.Logger) timeauth.SyncClient {
	return timeauth.NewNTPClient(cfg.NTPServer, cfg.NTPTimeout, logger)
}

// loadConfig reads the config file and applies flag overrides.
func (o *options) loadConfig() (config.Config, error) {
	path := o.configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return config.Config{}, err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	if o.debug {
		cfg.Debug = true
	}
	return cfg, nil
}

// runtime is a fully wired device plus everything it owns.
type runtime struct {
	cfg    config.Config
	logger *slog.Logger
	store  *store.Store
	sync   timeauth.SyncClient
	clock  *timeauth.Authority
	stats  *stats.Store
	dev    *device.Device

	stopSync func()
	closers  []io.Closer
}

type openOptions struct {
	console io.Writer // nil keeps the console quiet
	notify  func(device.Notice)
	publish bool
}

// open wires store, time authority, statistics, publisher and device, then
// boots the device.
func (o *options) open(oo openOptions) (*runtime, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg}

	logOpts := []logging.Option{logging.WithFormat(cfg.LogFormat)}
	if cfg.Debug {
		logOpts = append(logOpts, logging.WithDebug())
	}
	if oo.console != nil {
		logOpts = append(logOpts, logging.WithConsole(oo.console))
	} else {
		logOpts = append(logOpts, logging.WithQuiet())
	}
	if cfg.LogFile != "" {
		f, err := logging.OpenFile(cfg.LogFile)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, f)
		logOpts = append(logOpts, logging.WithWriter(f))
	}
	rt.logger = logging.New(logOpts...)

	rt.store, err = store.New(cfg.DBPath)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rtc, err := timeauth.NewHostRTC(rt.store.Bucket(device.BucketDevice), nil, cfg.UTCOffsetSeconds, rt.logger)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.sync = o.newSyncClient(cfg, rt.logger)
	rt.clock = timeauth.New(rtc, rt.sync,
		timeauth.WithLogger(rt.logger),
		timeauth.WithLockTimeout(cfg.LockTimeout),
		timeauth.WithResyncInterval(cfg.ResyncInterval),
	)
	rt.clock.Begin(cfg.UTCOffsetSeconds)

	rt.stats = stats.New(rt.store.Bucket(device.BucketStats), rt.clock,
		stats.WithLogger(rt.logger),
		stats.WithLockTimeout(cfg.LockTimeout),
	)

	var pub publish.Publisher = publish.Nop{}
	if oo.publish && cfg.MQTT.Enabled() {
		p, err := publish.NewMQTTPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.TopicPrefix, rt.logger)
		if err != nil {
			rt.logger.Warn("mqtt disabled", "broker", cfg.MQTT.Broker, "error", err)
		} else {
			pub = p
		}
	}

	rt.dev = device.New(device.Deps{
		Store:     rt.store,
		Stats:     rt.stats,
		Time:      rt.clock,
		Publisher: pub,
		Logger:    rt.logger,
		Notify:    oo.notify,
	})
	rt.dev.Boot()
	return rt, nil
}

// startSync runs the background resync loop until ctx ends or Close.
func (rt *runtime) startSync(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		rt.dev.RunSync(ctx, rt.cfg.TickInterval)
	}()
	rt.stopSync = func() {
		cancel()
		<-done
	}
}

// Close persists device state and releases resources in reverse order. It
// waits for an in-flight sync so nothing writes to a closed store.
func (rt *runtime) Close() {
	if rt.stopSync != nil {
		rt.stopSync()
		rt.stopSync = nil
	}
	if rt.dev != nil {
		rt.dev.Shutdown()
	}
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			rt.logger.Warn("close store", "error", err)
		}
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i].Close()
	}
}
