package di

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"preflight/internal/bootstrap"
	"preflight/internal/config"
	"preflight/internal/observability"
)

// Container holds the wired bootstrap core. Metrics and Tracer are nil when
// the corresponding sink is disabled in configuration.
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Registry  *prometheus.Registry
	Metrics   *observability.Metrics
	Tracer    *observability.TracerProvider
	Monitor   *observability.PerformanceMonitor
	Detector  *observability.ErrorDetector
	Collector *observability.DataCollector
	Manager   *bootstrap.Manager
}
