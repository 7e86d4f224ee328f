package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"foldly/internal/config"
	"foldly/internal/event"
	"foldly/internal/eventbus"
	"foldly/internal/notify"
	"foldly/internal/producer"
	"foldly/internal/render"
	"foldly/internal/storage"
	logx "foldly/pkg/logx"
)

func main() {
	var (
		cfgPath string
		demo    bool
	)
	flag.StringVar(&cfgPath, "config", "./config.json", "path to config (json or yaml)")
	flag.BoolVar(&demo, "demo", false, "run a scripted emission sequence and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath, demo); err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string, demo bool) error {
	cfgMgr := config.NewManager(cfgPath)
	cfg, err := cfgMgr.Load()
	if err != nil {
		if !demo {
			return err
		}
		// Demo mode works without a config file.
		cfg = &config.Config{}
		cfgMgr.Commit(cfg)
	}

	logSvc, log := logx.New(cfg.LogxConfig())
	defer logSvc.Close()
	cfgMgr.SetLogger(log.With(logx.String("comp", "config")))

	storeCfg, err := cfg.StorageConfigParsed()
	if err != nil {
		return err
	}
	store, err := storage.Open(storeCfg, log.With(logx.String("comp", "storage")))
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	analytics := notify.NewAnalytics(prometheus.DefaultRegisterer)

	bus := eventbus.New(log.With(logx.String("comp", "bus")),
		eventbus.WithSource("notifyd"),
		eventbus.WithListenerErrorHook(analytics.RecordError),
	)
	defer bus.Close()

	notifyCfg, err := cfg.NotifyConfig()
	if err != nil {
		return err
	}
	mgr := notify.New(notifyCfg, bus,
		render.NewConsole(log.With(logx.String("comp", "render"))),
		render.NewBell(logx.Stdout()),
		cfgMgr, // live do-not-disturb / silent flags
		store,
		analytics,
		log.With(logx.String("comp", "notify")),
	)
	mgr.Start()
	defer mgr.Stop()

	// Hot-reload: watch the config file, re-apply logging on change.
	// Notification flags need no re-apply; the manager reads them live.
	go func() { _ = cfgMgr.Watch(ctx) }()
	updates := cfgMgr.Subscribe(4)
	defer cfgMgr.Unsubscribe(updates)
	go func() {
		for c := range updates {
			logSvc.Apply(c.LogxConfig())
			log.Info("config reloaded")
		}
	}()

	if pc := cfg.Producers; pc != nil && pc.StoragePoll != nil && pc.StoragePoll.Enabled {
		pp := pc.StoragePoll
		spec := pp.Spec
		if spec == "" {
			spec = "@every 30s"
		}
		poller := producer.NewStoragePoller(bus,
			dirUsage(filepath.Dir(cfgPath), pp.LimitBytes),
			pp.WarnPercent, pp.ExceedPercent,
			log.With(logx.String("comp", "producer")),
		)
		if err := poller.Start(spec); err != nil {
			return err
		}
		defer poller.Stop()
	}

	if demo {
		runDemo(bus)
		// Let the drain loop and renderer finish before reporting.
		time.Sleep(500 * time.Millisecond)
		reportAnalytics(log, analytics)
		return nil
	}

	log.Info("notifyd running", logx.String("config", cfgPath))
	<-ctx.Done()
	return nil
}

// dirUsage sums file sizes under root against a fixed limit. A crude
// stand-in for the product's metered storage accounting.
func dirUsage(root string, limit int64) producer.UsageFunc {
	if limit <= 0 {
		limit = 1 << 30
	}
	return func(ctx context.Context) (int64, int64, error) {
		var used int64
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // unreadable entries don't fail the poll
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.Type().IsRegular() {
				if info, err := d.Info(); err == nil {
					used += info.Size()
				}
			}
			return nil
		})
		return used, limit, err
	}
}

// runDemo emits a representative event sequence: a single upload with
// progress, a burst that deduplicates, a batch upload, an external
// upload with actions, and a failure.
func runDemo(bus *eventbus.Bus) {
	bus.Emit(event.FileUploadStart,
		event.FilePayload{FileID: "f1", FileName: "a.pdf", FileSize: 1024}, nil)
	for _, p := range []float64{25, 50, 75} {
		bus.Emit(event.FileUploadProgress,
			event.FilePayload{FileID: "f1", FileName: "a.pdf", FileSize: 1024, Progress: p}, nil)
	}
	bus.Emit(event.FileUploadSuccess,
		event.FilePayload{FileID: "f1", FileName: "a.pdf", FileSize: 1024}, nil)

	// Duplicate burst: one presentation with an occurrence suffix.
	for i := 0; i < 3; i++ {
		bus.Emit(event.LinkCreateSuccess,
			event.LinkPayload{LinkID: "l1", LinkName: "Client uploads"}, nil)
	}

	bus.Emit(event.BatchUploadStart,
		event.BatchPayload{BatchID: "b1", TotalItems: 12, TotalSize: 48 << 20}, nil)
	bus.Emit(event.BatchUploadProgress,
		event.BatchPayload{BatchID: "b1", TotalItems: 12, CompletedItems: 6, Progress: 50}, nil)
	bus.Emit(event.BatchUploadSuccess,
		event.BatchPayload{BatchID: "b1", TotalItems: 12, CompletedItems: 12, TotalSize: 48 << 20}, nil)

	bus.Emit(event.ExternalUploadReceived,
		event.LinkPayload{LinkID: "l1", LinkName: "Client uploads", UploaderName: "Dana", FileCount: 3},
		&event.Options{Actions: []event.Action{
			{Label: "View files", Handler: func() {}},
			{Label: "Dismiss", Secondary: true},
		}})

	bus.Emit(event.FileDeleteError,
		event.FilePayload{FileName: "b.txt", Error: "permission denied"}, nil)
}

func reportAnalytics(log logx.Logger, a *notify.Analytics) {
	snap := a.Snapshot()
	for t, n := range snap.EventCount {
		log.Info("analytics",
			logx.String("type", t.String()),
			logx.Uint64("count", n),
			logx.Uint64("errors", snap.ErrorCount[t]),
			logx.Time("last", snap.LastEmitted[t]))
	}
}
