// Package resources contains the concrete resource variants brought online
// by the bootstrap manager: relational database, cache service, message
// queue, external HTTP API, filesystem tree, and raw network endpoint.
// Every variant implements the bootstrap.Initializer contract and owns its
// Status instance.
package resources

import (
	"go.uber.org/zap"

	"preflight/internal/bootstrap"
)

// base carries the state shared by every resource variant.
type base struct {
	name   string
	status *bootstrap.Status
	logger *zap.Logger
}

func newBase(name string, logger *zap.Logger) base {
	return base{
		name:   name,
		status: bootstrap.NewStatus(),
		logger: logger.Named(name),
	}
}

// Name returns the resource identifier.
func (b *base) Name() string { return b.name }

// Status returns the Status owned by this resource.
func (b *base) Status() *bootstrap.Status { return b.status }

// fail records err into the status, forcing the Failed state, and returns
// it unchanged for propagation.
func (b *base) fail(err error) error {
	b.status.AddError(err.Error())
	return err
}
