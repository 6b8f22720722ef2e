// rtma-mm is the message manager daemon: it accepts module connections,
// tracks subscriptions and forwards messages between modules.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/pitt-rnel/rtma/internal/broker"
	"github.com/pitt-rnel/rtma/internal/metrics"
	"github.com/pitt-rnel/rtma/internal/msglog"
	"github.com/pitt-rnel/rtma/internal/wire"
	"github.com/pitt-rnel/rtma/pkg/logger"
)

func main() {
	var (
		addr             = pflag.String("addr", "", "interface to listen on (default: any)")
		port             = pflag.Int("port", 7111, "TCP port to listen on")
		timecode         = pflag.Bool("timecode", false, "use the timecoded header variant")
		disableTimingMsg = pflag.Bool("disable_timing_msg", false, "disable the periodic TIMING_MESSAGE broadcast")
		debug            = pflag.Bool("debug", false, "enable address reuse and debug logging")
		metricsAddr      = pflag.String("metrics-addr", "", "address for the Prometheus /metrics endpoint (empty: disabled)")
		msglogBackend    = pflag.String("msglog-backend", "memory", "message log backend: memory, pebble or redis")
		msglogPath       = pflag.String("msglog-path", "", "pebble directory for --msglog-backend=pebble")
		msglogRedisAddr  = pflag.String("msglog-redis-addr", "localhost:6379", "redis address for --msglog-backend=redis")
		logLevel         = pflag.String("log-level", "info", "minimum log level: debug, info, warn or error")
	)
	pflag.Parse()

	level := logger.ParseLevel(*logLevel)
	if *debug {
		level = slog.LevelDebug
	}
	log := logger.New(level, os.Stdout)

	mlog, err := newMessageLog(*msglogBackend, *msglogPath, *msglogRedisAddr)
	if err != nil {
		log.Error("message log setup failed", "backend", *msglogBackend, "error", err)
		os.Exit(1)
	}
	defer mlog.Close()

	cfg := broker.DefaultConfig()
	cfg.Addr = fmt.Sprintf("%s:%d", *addr, *port)
	cfg.ReuseAddr = *debug
	cfg.DisableTimingMsg = *disableTimingMsg
	cfg.MsgLog = mlog
	cfg.Logger = log
	if *timecode {
		cfg.HeaderVariant = wire.TimecodedHeader
		cfg.Registry = nil // rebuilt for the timecoded variant by fillDefaults
	}
	if *metricsAddr != "" {
		cfg.Metrics = metrics.New()
		go serveMetrics(*metricsAddr, log)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := broker.New(cfg)
	if err := b.Run(ctx); err != nil {
		log.Error("message manager failed", "error", err)
		os.Exit(1)
	}
	log.Info("message manager stopped")
}

func newMessageLog(backend, path, redisAddr string) (*msglog.Controller, error) {
	c := msglog.NewController()
	switch backend {
	case "memory", "":
		return c, nil
	case "pebble":
		if path == "" {
			return nil, fmt.Errorf("--msglog-backend=pebble requires --msglog-path")
		}
		return c, c.OpenLog(path)
	case "redis":
		return c, c.OpenLog("redis://" + redisAddr)
	default:
		return nil, fmt.Errorf("unknown message log backend %q", backend)
	}
}

func serveMetrics(addr string, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info("metrics endpoint listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("metrics endpoint failed", "error", err)
	}
}
