package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"netscribe/internal/api"
	"netscribe/internal/config"
	"netscribe/internal/discover"
	"netscribe/internal/report"
	"netscribe/internal/snmp"
)

var log *zap.Logger

func main() {
	configFile := flag.String("config.file", "", "YAML config file")
	target := flag.String("target", "", "discover a single target and print the result (comma-separated for several)")
	community := flag.String("community", "", "SNMP community override")
	port := flag.Uint("port", 0, "SNMP port override")
	timeout := flag.Float64("timeout", 0, "SNMP timeout in seconds")
	listen := flag.String("listen", "", "serve the HTTP API on this address instead of one-shot discovery")
	out := flag.String("out", "", "working directory for reports (default: NETSCRIBE_WORKDIR or OS data dir)")
	save := flag.Bool("save", false, "in one-shot mode, also persist results to the working directory")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	level := zap.InfoLevel
	if *debug {
		level = zap.DebugLevel
	}
	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	log, _ = zapConfig.Build()
	defer log.Sync()

	cfg := config.DefaultConfig()
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			log.Fatal("error loading config", zap.Error(err))
		}
		cfg = *loaded
	}
	if *community != "" {
		cfg.Community = *community
	}
	if *port != 0 {
		cfg.Port = uint16(*port)
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}
	if *out != "" {
		cfg.OutputDir = *out
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	if *target != "" {
		cfg.Targets = nil
		for _, addr := range strings.Split(*target, ",") {
			addr = strings.TrimSpace(addr)
			if addr == "" {
				continue
			}
			cfg.Targets = append(cfg.Targets, discover.Target{
				Address:   addr,
				Community: cfg.Community,
				Port:      cfg.Port,
			})
		}
	}

	if *listen != "" {
		serve(cfg)
		return
	}
	oneShot(cfg, *save)
}

// oneShot discovers the configured targets once and prints the results as
// indented JSON on stdout.
func oneShot(cfg config.Config, save bool) {
	if len(cfg.Targets) == 0 {
		log.Fatal("no targets: pass -target or a config file with a targets list")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcomes := discover.ExploreAll(ctx, cfg.Targets, cfg.Concurrency, log,
		discover.WithClientOptions(
			snmp.WithTimeout(time.Duration(cfg.Timeout*float64(time.Second))),
			snmp.WithRetries(cfg.Retries)))

	var results []*discover.Result
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			log.Error("discovery failed",
				zap.String("target", o.Target.Address), zap.Error(o.Err))
			continue
		}
		results = append(results, o.Result)
	}

	if save && len(results) > 0 {
		store := report.NewStore(cfg.OutputDir)
		if err := store.EnsureStructure(); err != nil {
			log.Fatal("error preparing working directory", zap.Error(err))
		}
		sess, err := store.NewSession(results[0].SessionID)
		if err != nil {
			log.Fatal("error creating session directory", zap.Error(err))
		}
		for _, res := range results {
			if err := store.SaveResult(sess, res); err != nil {
				log.Error("error saving result",
					zap.String("target", res.Target), zap.Error(err))
			}
		}
		if err := store.MergeInventory(results, time.Now()); err != nil {
			log.Error("error updating inventory", zap.Error(err))
		}
		log.Info("results saved", zap.String("dir", sess.Path))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if len(results) == 1 {
		_ = enc.Encode(results[0])
	} else {
		_ = enc.Encode(results)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// serve runs the HTTP API until SIGTERM.
func serve(cfg config.Config) {
	store := report.NewStore(cfg.OutputDir)
	if err := store.EnsureStructure(); err != nil {
		log.Fatal("error preparing working directory", zap.Error(err))
	}

	a := api.NewAPI(store, api.Settings{
		Community:   cfg.Community,
		Port:        cfg.Port,
		Timeout:     time.Duration(cfg.Timeout * float64(time.Second)),
		Retries:     cfg.Retries,
		Concurrency: cfg.Concurrency,
	}, log)

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: a.Router(),
	}

	go func() {
		log.Info("serving discovery API",
			zap.String("addr", srv.Addr),
			zap.String("workdir", store.Path()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
