//go:build !wireinject
// +build !wireinject

package di

import (
	"preflight/internal/config"
)

// InitializeContainer creates a fully wired container. This mirrors the
// provider graph declared in wire.go for builds without the wire generator.
func InitializeContainer(cfg *config.Config) (*Container, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}
	registry := ProvideRegistry()
	metrics := ProvideMetrics(cfg, registry)
	tracer, err := ProvideTracer(cfg)
	if err != nil {
		return nil, err
	}
	monitor := ProvideMonitor(logger, metrics)
	detector := ProvideDetector(logger)
	collector := ProvideCollector()
	manager, err := ProvideManager(cfg, logger, monitor, detector, collector, metrics, tracer)
	if err != nil {
		return nil, err
	}
	return &Container{
		Config:    cfg,
		Logger:    logger,
		Registry:  registry,
		Metrics:   metrics,
		Tracer:    tracer,
		Monitor:   monitor,
		Detector:  detector,
		Collector: collector,
		Manager:   manager,
	}, nil
}
