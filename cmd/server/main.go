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

	"cryptdelve.gg/internal/config"
	"cryptdelve.gg/internal/feed"
	"cryptdelve.gg/internal/fog"
	"cryptdelve.gg/internal/persistence/capture"
	"cryptdelve.gg/internal/persistence/kv"
	"cryptdelve.gg/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", "", "http listen address (overrides config)")
		configPath = flag.String("config", "", "path to config.yaml (optional)")
		kvPath     = flag.String("kv", "", "path to kv sqlite db (overrides config)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if strings.TrimSpace(*addr) != "" {
		cfg.Addr = *addr
	}
	if strings.TrimSpace(*kvPath) != "" {
		cfg.KVPath = *kvPath
	}

	store, err := kv.OpenSQLite(cfg.KVPath, cfg.KVMaxBytes, logger)
	if err != nil {
		logger.Fatalf("open kv: %v", err)
	}
	defer store.Close()

	fogStore := fog.New(store, fog.Options{
		Prefix:   cfg.StoragePrefix,
		Version:  cfg.SchemaVersion,
		MaxAreas: cfg.MaxStoredAreas,
	}, logger)

	decoder := feed.NewDecoder(cfg.AvgBlockTimeMs, logger)

	var capw *capture.Writer
	if cfg.CaptureDir != "" {
		path := filepath.Join(cfg.CaptureDir, "batches-"+time.Now().UTC().Format("2006-01-02-15")+".jsonl.zst")
		capw, err = capture.NewWriter(path)
		if err != nil {
			logger.Fatalf("open capture: %v", err)
		}
		defer capw.Close()
		logger.Printf("capturing ingested batches to %s", path)
	}

	wsServer := ws.NewServer(fogStore, logger)
	ingest, err := newIngestHandler(decoder, wsServer, capw, cfg.SchemaDir, logger)
	if err != nil {
		logger.Fatalf("ingest handler: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", wsServer.Handler())
	mux.Handle("/v1/batches", ingest)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		logger.Printf("listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("serve: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Printf("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
