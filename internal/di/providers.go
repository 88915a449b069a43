// Package di wires the bootstrap core together: observability sinks, the
// manager, and one initializer per configured resource, registered with its
// declared dependencies.
package di

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"preflight/internal/bootstrap"
	"preflight/internal/config"
	"preflight/internal/observability"
	"preflight/internal/resources"
)

// Resource identifiers used for registration and dependency references in
// configuration files.
const (
	ResourceDatabase    = "database"
	ResourceCache       = "cache"
	ResourceQueue       = "queue"
	ResourceExternalAPI = "external_api"
	ResourceFileSystem  = "filesystem"
	ResourceNetwork     = "network"
)

// ProvideLogger builds the zap logger from the logging configuration.
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Environment == config.Production {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	if cfg.Logging.Format == "console" {
		zapCfg.Encoding = "console"
	} else if cfg.Logging.Format == "json" {
		zapCfg.Encoding = "json"
	}
	return zapCfg.Build()
}

// ProvideRegistry creates the Prometheus registry with the standard process
// and Go runtime collectors.
func ProvideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// ProvideMetrics creates the bootstrap metrics when the metrics sink is
// enabled, and returns nil otherwise so downstream components skip it.
func ProvideMetrics(cfg *config.Config, reg *prometheus.Registry) *observability.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return observability.NewMetrics(reg, cfg.Metrics.Namespace)
}

// ProvideTracer initializes the OTLP tracer when tracing is enabled.
func ProvideTracer(cfg *config.Config) (*observability.TracerProvider, error) {
	if !cfg.Tracing.Enabled {
		return nil, nil
	}
	serviceName := cfg.Tracing.ServiceName
	if serviceName == "" {
		serviceName = "preflight"
	}
	return observability.InitTracing(serviceName, string(cfg.Environment), cfg.Tracing.Endpoint)
}

// ProvideMonitor creates the performance monitor.
func ProvideMonitor(logger *zap.Logger, metrics *observability.Metrics) *observability.PerformanceMonitor {
	return observability.NewPerformanceMonitor(logger, metrics)
}

// ProvideDetector creates the error detector.
func ProvideDetector(logger *zap.Logger) *observability.ErrorDetector {
	return observability.NewErrorDetector(logger)
}

// ProvideCollector creates the data collector.
func ProvideCollector() *observability.DataCollector {
	return observability.NewDataCollector()
}

// ProvideManager creates the manager and registers one initializer per
// configured resource, wiring the dependency edges declared in the
// configuration.
func ProvideManager(
	cfg *config.Config,
	logger *zap.Logger,
	monitor *observability.PerformanceMonitor,
	detector *observability.ErrorDetector,
	collector *observability.DataCollector,
	metrics *observability.Metrics,
	tracer *observability.TracerProvider,
) (*bootstrap.Manager, error) {
	mgr := bootstrap.NewManager(logger, monitor, detector, collector, metrics, tracer)

	type registration struct {
		init bootstrap.Initializer
		deps []string
	}
	var regs []registration

	res := cfg.Resources
	if res.Database != nil {
		regs = append(regs, registration{
			init: resources.NewDatabase(ResourceDatabase, res.Database, logger),
			deps: res.Database.DependsOn,
		})
	}
	if res.Cache != nil {
		regs = append(regs, registration{
			init: resources.NewCache(ResourceCache, res.Cache, logger),
			deps: res.Cache.DependsOn,
		})
	}
	if res.Queue != nil {
		regs = append(regs, registration{
			init: resources.NewQueue(ResourceQueue, res.Queue, logger),
			deps: res.Queue.DependsOn,
		})
	}
	if res.API != nil {
		regs = append(regs, registration{
			init: resources.NewExternalAPI(ResourceExternalAPI, res.API, logger),
			deps: res.API.DependsOn,
		})
	}
	if res.FileSystem != nil {
		regs = append(regs, registration{
			init: resources.NewFileSystem(ResourceFileSystem, res.FileSystem, logger),
			deps: res.FileSystem.DependsOn,
		})
	}
	if res.Network != nil {
		regs = append(regs, registration{
			init: resources.NewNetwork(ResourceNetwork, res.Network, logger),
			deps: res.Network.DependsOn,
		})
	}

	for _, r := range regs {
		if err := mgr.Register(r.init, r.deps...); err != nil {
			return nil, fmt.Errorf("registering %s: %w", r.init.Name(), err)
		}
	}
	return mgr, nil
}
