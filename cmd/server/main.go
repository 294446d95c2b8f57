package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	persistlog "buildsim.ai/internal/persistence/log"
	"buildsim.ai/internal/persistence/snapshot"
	"buildsim.ai/internal/sim/catalogs"
	"buildsim.ai/internal/sim/host"
	"buildsim.ai/internal/sim/tuning"
	"buildsim.ai/internal/sim/world"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index (audits + catalog + save metadata)")

		savePath   = flag.String("save", "", "path to a save to load (optional)")
		loadLatest = flag.Bool("load_latest_save", true, "load the latest save from the data dir if present (when -save is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cat, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalog: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	saveDir := filepath.Join(*dataDir, "saves")
	toLoad := strings.TrimSpace(*savePath)
	if toLoad == "" && *loadLatest {
		if p, err := snapshot.Latest(saveDir); err == nil {
			toLoad = p
		}
	}

	// Optional read model; the save files and audit log stay authoritative.
	idx, err := openRuntimeIndex(*dataDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalog(cat, tune); err != nil {
			logger.Printf("index backend: upsert catalog: %v", err)
		}
	}

	w, err := world.New(tune, cat, world.Host{
		Clock:  host.SystemClock{},
		Wallet: host.NewPurse(tune.StartingGold),
		Vars:   host.NewVariableTable(),
	})
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	w.SetLogger(logger)

	if toLoad != "" {
		snap, err := snapshot.ReadSnapshot(toLoad)
		if err != nil {
			logger.Fatalf("read save: %v", err)
		}
		if err := w.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import save: %v", err)
		}
		logger.Printf("resumed from save=%s areas=%d", filepath.Base(toLoad), len(snap.Core.Areas))
	}

	auditLog := persistlog.NewAuditLogger(*dataDir)
	defer auditLog.Close()
	if idx != nil {
		w.SetAuditLogger(persistlog.Tee{auditLog, idx})
	} else {
		w.SetAuditLogger(auditLog)
	}

	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	sv := saver{dir: saveDir, idx: idx, logger: logger}
	saverDone := make(chan struct{})
	go sv.run(snapCh, saverDone)

	ctx, cancel := signalContext()
	defer cancel()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	srv := &http.Server{
		Addr: *addr,
		Handler: newMux(httpDeps{
			world:       w,
			idx:         idx,
			logger:      logger,
			enableAdmin: envBool("BUILDSIM_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()),
			enablePprof: envBool("BUILDSIM_ENABLE_PPROF_HTTP", false),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Printf("ListenAndServe: %v", err)
		cancel()
	}

	// The loop has exited, so the world can be read directly for the final save.
	<-worldDone
	snapCh <- w.ExportSnapshot(time.Now().UnixMilli())
	close(snapCh)
	<-saverDone
	if idx != nil {
		ctx3, cancel3 := context.WithTimeout(context.Background(), 5*time.Second)
		_ = idx.Sync(ctx3)
		cancel3()
	}
	logger.Printf("shutdown complete")
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
