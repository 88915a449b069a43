//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"preflight/internal/config"
)

// SuperSet is the main provider set containing all providers.
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideRegistry,
	ProvideMetrics,
	ProvideTracer,
	ProvideMonitor,
	ProvideDetector,
	ProvideCollector,
	ProvideManager,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container.
func InitializeContainer(cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
