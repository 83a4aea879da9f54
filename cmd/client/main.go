// Command client is the operator client for a multi-agent simulation: it
// shows the frames the simulation broadcasts, gates operator actions on the
// local agent's turn and records voice clips for communication actions.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/commons-client/internal/action"
	"github.com/DoyleJ11/commons-client/internal/audio"
	"github.com/DoyleJ11/commons-client/internal/client"
	"github.com/DoyleJ11/commons-client/internal/clock"
	"github.com/DoyleJ11/commons-client/internal/config"
	"github.com/DoyleJ11/commons-client/internal/console"
	"github.com/DoyleJ11/commons-client/internal/httpapi"
	"github.com/DoyleJ11/commons-client/internal/hub"
	"github.com/DoyleJ11/commons-client/internal/imaging"
	"github.com/DoyleJ11/commons-client/internal/journal"
	"github.com/DoyleJ11/commons-client/internal/logging"
	"github.com/DoyleJ11/commons-client/internal/publisher"
	"github.com/DoyleJ11/commons-client/internal/queue"
	"github.com/DoyleJ11/commons-client/internal/transport"
	itypes "github.com/DoyleJ11/commons-client/internal/types"
	"github.com/DoyleJ11/commons-client/pkg/types"
)

const httpShutdownTimeout = 3 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, config.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Usage: commons-client [flags]\n\n%s", config.Usage())
			return nil
		}
		return err
	}

	logOpts := logging.Options{Debug: cfg.Log.Debug}
	if cfg.Console {
		logOpts.File = cfg.Log.File
	}
	logger, err := logging.New(logOpts)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialect, err := action.ParseDialect(cfg.Dialect)
	if err != nil {
		return err
	}

	broker, err := transport.DialMQTT(ctx, transport.MQTTOptions{
		Host:           cfg.Broker.Host,
		Port:           cfg.Broker.Port,
		ClientID:       cfg.Broker.ClientID,
		KeepAlive:      cfg.Broker.KeepAlive,
		ConnectTimeout: cfg.Broker.ConnectTimeout,
	}, logger.Named("transport"))
	if err != nil {
		return fmt.Errorf("connect to broker %s:%d: %w", cfg.Broker.Host, cfg.Broker.Port, err)
	}
	defer func() { err = multierr.Append(err, broker.Close()) }()

	inbound := queue.New[types.Snapshot]()
	ingest := client.NewIngestor(inbound, logger.Named("ingest"))
	if err := broker.Subscribe(ctx, cfg.Topics.Data, ingest.Handle); err != nil {
		return err
	}

	pub := publisher.New(broker, logger.Named("publisher"),
		publisher.WithTopics(cfg.Topics.Actions, cfg.Topics.Audio),
		publisher.WithDialect(dialect),
	)

	clk := clock.Real()
	sched := client.NewScheduler(clk)
	defer sched.Stop()

	audioLog := logger.Named("audio")
	device, toggle := openAudio(cfg, audioLog)
	defer func() { err = multierr.Append(err, device.Close()) }()
	recorder := audio.NewRecorder(device, cfg.Audio.JoinTimeout, audioLog)
	mic := audio.NewController(cfg.AgentID, recorder, toggle, pub, sched, cfg.Audio.AutoMute, audioLog)

	g, gctx := errgroup.WithContext(ctx)

	var (
		rec    client.Journal = journal.Nop{}
		writer *journal.Writer
	)
	if cfg.JournalDSN != "" {
		store, jerr := journal.OpenPostgres(cfg.JournalDSN)
		if jerr != nil {
			return fmt.Errorf("open journal: %w", jerr)
		}
		defer func() { err = multierr.Append(err, store.Close()) }()
		writer = journal.NewWriter(store, logger.Named("journal"))
		rec = writer
	}
	mic.OnPublished = func(info audio.ClipInfo) {
		rec.Record(journal.Entry{
			AgentID:    cfg.AgentID,
			Kind:       journal.KindAudio,
			Detail:     info.MessageKind,
			DurationMS: info.Duration.Milliseconds(),
		})
	}

	h := hub.NewHub(gctx, logger.Named("hub"))

	loop := client.NewLoop(client.Options{
		AgentID:       cfg.AgentID,
		ShowAllAgents: cfg.ShowAllAgents,
		TickInterval:  cfg.Tick,
	}, client.Deps{
		Clock:     clk,
		Queue:     inbound,
		Pipeline:  imaging.NewPipeline(cfg.Display.Size, cfg.Display.ViewSize),
		Publisher: pub,
		Mic:       mic,
		Views:     h,
		Journal:   rec,
		Scheduler: sched,
		Logger:    logger.Named("loop"),
	})
	g.Go(func() error { return loop.Run(gctx) })
	if writer != nil {
		// The loop journals its final clip while shutting down.
		g.Go(func() error { return writer.RunAfter(loop.Done()) })
	}

	if cfg.HTTP.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           httpapi.SetupRoutes(h, loop, logger.Named("http")),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("control API listening", zap.String("addr", cfg.HTTP.Addr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	if cfg.Console {
		views := make(chan itypes.View, 64)
		if !h.Join("console", views) {
			return errors.New("view hub stopped before the console joined")
		}
		g.Go(func() error { return console.Run(gctx, views, loop) })
	}

	logger.Info("client running",
		zap.String("agent_id", cfg.AgentID),
		zap.String("data_topic", cfg.Topics.Data),
		zap.String("dialect", string(dialect)),
	)

	if err := g.Wait(); err != nil && !errors.Is(err, console.ErrQuit) {
		logger.Error("client stopped", zap.Error(err))
		return err
	}
	logger.Info("client stopped", zap.Int64("dropped_snapshots", ingest.Dropped()))
	return nil
}

// openAudio returns the capture device and mute toggle. A machine without
// a usable microphone still runs; communication actions then publish no
// clip.
func openAudio(cfg *config.Config, logger *zap.Logger) (audio.Device, audio.MuteToggle) {
	if !cfg.Audio.Enabled {
		return audio.NopDevice{}, audio.NopToggle{}
	}
	device, err := audio.NewMalgoDevice(logger)
	if err != nil {
		logger.Warn("microphone unavailable, continuing without audio", zap.Error(err))
		return audio.NopDevice{}, audio.NewCommandToggle(cfg.Audio.MuteToggle)
	}
	return device, audio.NewCommandToggle(cfg.Audio.MuteToggle)
}
