package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"preflight/internal/observability"
	"preflight/pkg/errors"
)

// phase names used for measurement keys and spans.
const (
	phaseValidate   = "validate_configuration"
	phaseTest       = "test_connection"
	phaseInitialize = "initialize"
)

// entry tracks one registered resource.
type entry struct {
	initializer Initializer
	deps        []string
	status      *Status
}

// Manager is the orchestrator: it registers initializers together with their
// declared dependencies, computes a valid initialization order via
// depth-first topological sort, detects circular dependencies, and tracks
// completion across all registered resources.
//
// The built-in driver is sequential; independent branches of the graph may
// be driven concurrently by an external caller because the monitor,
// detector, collector, and the manager's own map serialize their writes.
type Manager struct {
	mu        sync.RWMutex
	logger    *zap.Logger
	monitor   *observability.PerformanceMonitor
	detector  *observability.ErrorDetector
	collector *observability.DataCollector
	metrics   *observability.Metrics
	tracer    *observability.TracerProvider

	entries map[string]*entry
	names   []string // registration order, keeps traversal deterministic
}

// NewManager creates a Manager. metrics and tracer may be nil when the
// corresponding sink is not wired.
func NewManager(
	logger *zap.Logger,
	monitor *observability.PerformanceMonitor,
	detector *observability.ErrorDetector,
	collector *observability.DataCollector,
	metrics *observability.Metrics,
	tracer *observability.TracerProvider,
) *Manager {
	return &Manager{
		logger:    logger.Named("state_manager"),
		monitor:   monitor,
		detector:  detector,
		collector: collector,
		metrics:   metrics,
		tracer:    tracer,
		entries:   make(map[string]*entry),
	}
}

// Register stores the initializer under its identifier together with its
// dependency identifiers and begins tracking its status. Registering the
// same identifier twice is an error.
func (m *Manager) Register(init Initializer, deps ...string) error {
	if init == nil {
		return errors.NewUsage("cannot register a nil initializer")
	}
	name := init.Name()
	if name == "" {
		return errors.NewUsage("cannot register an initializer with an empty name")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[name]; exists {
		return &DuplicateRegistrationError{ID: name}
	}
	m.entries[name] = &entry{
		initializer: init,
		deps:        append([]string(nil), deps...),
		status:      init.Status(),
	}
	m.names = append(m.names, name)

	m.logger.Debug("resource registered",
		zap.String("resource", name),
		zap.Strings("dependencies", deps),
	)
	return nil
}

// InitializationOrder performs a depth-first topological sort over all
// registered identifiers. A dependency cycle raises a CycleError naming the
// full cycle; a reference to an unregistered dependency raises an
// UnknownDependencyError instead of being silently skipped.
func (m *Manager) InitializationOrder() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.orderLocked()
}

func (m *Manager) orderLocked() ([]string, error) {
	const (
		stateNew uint8 = iota
		stateVisiting
		stateDone
	)

	state := make(map[string]uint8, len(m.names))
	stack := make([]string, 0, len(m.names))
	stackPos := make(map[string]int, len(m.names))
	order := make([]string, 0, len(m.names))

	var dfs func(id string) error
	dfs = func(id string) error {
		switch state[id] {
		case stateDone:
			return nil
		case stateVisiting:
			pos := stackPos[id]
			cycle := append([]string(nil), stack[pos:]...)
			cycle = append(cycle, id)
			return &CycleError{Path: cycle}
		}

		state[id] = stateVisiting
		stackPos[id] = len(stack)
		stack = append(stack, id)

		for _, dep := range m.entries[id].deps {
			if _, ok := m.entries[dep]; !ok {
				return &UnknownDependencyError{From: id, To: dep}
			}
			if state[dep] == stateVisiting {
				pos := stackPos[dep]
				cycle := append([]string(nil), stack[pos:]...)
				cycle = append(cycle, dep)
				return &CycleError{Path: cycle}
			}
			if err := dfs(dep); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		delete(stackPos, id)
		state[id] = stateDone
		order = append(order, id)
		return nil
	}

	for _, id := range m.names {
		if state[id] == stateDone {
			continue
		}
		if err := dfs(id); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Graph returns a snapshot of the dependency graph with the computed order.
func (m *Manager) Graph() (Graph, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	order, err := m.orderLocked()
	if err != nil {
		return Graph{}, err
	}
	g := Graph{
		Nodes: append([]string(nil), m.names...),
		Order: order,
	}
	for _, id := range m.names {
		for _, dep := range m.entries[id].deps {
			g.Edges = append(g.Edges, GraphEdge{From: id, To: dep})
		}
	}
	return g, nil
}

// HasDependencies reports whether the resource declares any dependencies.
func (m *Manager) HasDependencies(id string) (bool, error) {
	deps, err := m.Dependencies(id)
	if err != nil {
		return false, err
	}
	return len(deps) > 0, nil
}

// Dependencies returns the declared dependency identifiers of a resource.
func (m *Manager) Dependencies(id string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, &NotRegisteredError{ID: id}
	}
	return append([]string(nil), e.deps...), nil
}

// InitializerOf returns the registered initializer for a resource.
func (m *Manager) InitializerOf(id string) (Initializer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, &NotRegisteredError{ID: id}
	}
	return e.initializer, nil
}

// StatusOf returns the tracked Status of a resource.
func (m *Manager) StatusOf(id string) (*Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, &NotRegisteredError{ID: id}
	}
	return e.status, nil
}

// UpdateState replaces the tracked Status of a resource and stamps its end
// time.
func (m *Manager) UpdateState(id string, status *Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return &NotRegisteredError{ID: id}
	}
	status.EndTiming()
	e.status = status
	return nil
}

// IsInitializationComplete reports whether the resource reached a healthy
// terminal state (Initialized or Complete).
func (m *Manager) IsInitializationComplete(id string) (bool, error) {
	status, err := m.StatusOf(id)
	if err != nil {
		return false, err
	}
	return status.IsSuccess(), nil
}

// IsAllComplete reports whether every registered resource reached a healthy
// terminal state. A single failed resource keeps this false.
func (m *Manager) IsAllComplete() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.entries) == 0 {
		return false
	}
	for _, e := range m.entries {
		if !e.status.IsSuccess() {
			return false
		}
	}
	return true
}

// Run walks the computed order, driving each initializer through
// validate -> test -> initialize, then resolves Complete states. Resources
// whose dependencies failed are marked Incomplete and skipped rather than
// silently dropped; the returned error joins every terminal failure.
func (m *Manager) Run(ctx context.Context) error {
	order, err := m.InitializationOrder()
	if err != nil {
		return err
	}

	m.logger.Info("starting resource initialization",
		zap.Strings("order", order),
	)

	var failures []error
	for _, id := range order {
		m.mu.RLock()
		e := m.entries[id]
		m.mu.RUnlock()

		if blocked, dep := m.blockedBy(e); blocked {
			e.status.AddWarning(fmt.Sprintf("skipped: dependency %q did not initialize", dep))
			_ = e.status.SetState(StateIncomplete)
			m.logger.Warn("skipping resource with failed dependency",
				zap.String("resource", id),
				zap.String("dependency", dep),
			)
			continue
		}

		if err := m.runOne(ctx, id, e); err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", id, err))
			// Usage errors indicate a programming mistake in the
			// orchestration itself and abort the run.
			if errors.IsUsage(err) {
				return stderrors.Join(failures...)
			}
		}
	}

	m.resolveCompletion(order)

	if len(failures) > 0 {
		return stderrors.Join(failures...)
	}
	return nil
}

// blockedBy reports whether any direct dependency of e is not in a healthy
// terminal state.
func (m *Manager) blockedBy(e *entry) (bool, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, dep := range e.deps {
		depEntry, ok := m.entries[dep]
		if !ok || !depEntry.status.IsSuccess() {
			return true, dep
		}
	}
	return false, ""
}

// runOne drives the three-phase lifecycle of a single resource, timing each
// phase and classifying each failure. The initializer owns all writes to its
// Status; the driver only observes.
func (m *Manager) runOne(ctx context.Context, id string, e *entry) error {
	status := e.status
	status.StartTiming()
	if err := status.SetState(StateInitializing); err != nil {
		return err
	}

	m.collector.StartTimer(id, "initialization")
	defer func() {
		if seconds, err := m.collector.StopTimer(id, "initialization"); err == nil {
			m.collector.CollectMetric(id, "initialization_seconds", seconds)
		}
		status.EndTiming()
	}()

	phases := []struct {
		name string
		run  func(context.Context) error
	}{
		{phaseValidate, func(context.Context) error { return e.initializer.ValidateConfiguration() }},
		{phaseTest, e.initializer.TestConnection},
		{phaseInitialize, e.initializer.Initialize},
	}

	for _, phase := range phases {
		if err := m.runPhase(ctx, id, phase.name, phase.run); err != nil {
			m.logger.Error("resource initialization failed",
				zap.String("resource", id),
				zap.String("phase", phase.name),
				zap.Error(err),
			)
			return err
		}
	}

	if err := status.MarkInitialized(); err != nil {
		return err
	}
	m.logger.Info("resource initialized", zap.String("resource", id))
	return nil
}

// runPhase times and traces one phase call, counting its outcome and
// routing failures through the detector.
func (m *Manager) runPhase(ctx context.Context, id, phase string, run func(context.Context) error) error {
	phaseCtx := ctx
	if m.tracer != nil {
		var end func()
		phaseCtx, end = m.startSpan(ctx, id, phase)
		defer end()
	}

	m.monitor.StartMeasurement(id, phase)
	err := run(phaseCtx)
	if _, endErr := m.monitor.EndMeasurement(id, phase); endErr != nil {
		return endErr
	}

	outcome := "success"
	if err != nil {
		outcome = "failure"
		m.detector.DetectError(id, err)
	}
	if m.metrics != nil {
		m.metrics.CountOutcome(id, phase, outcome)
	}
	return err
}

func (m *Manager) startSpan(ctx context.Context, id, phase string) (context.Context, func()) {
	spanCtx, span := m.tracer.StartPhase(ctx, id, phase)
	return spanCtx, func() { span.End() }
}

// resolveCompletion advances Initialized resources to Complete once every
// dependency is itself Complete. Processing in topological order guarantees
// a resource's dependencies are resolved before it is, so Complete is only
// reached when the whole transitive closure is Complete.
func (m *Manager) resolveCompletion(order []string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range order {
		e := m.entries[id]
		if !e.status.IsInitialized() {
			continue
		}
		allComplete := true
		for _, dep := range e.deps {
			if !m.entries[dep].status.IsComplete() {
				allComplete = false
				break
			}
		}
		if !allComplete {
			continue
		}
		if err := e.status.MarkComplete(); err != nil {
			m.logger.Warn("could not mark resource complete",
				zap.String("resource", id),
				zap.Error(err),
			)
		}
	}
}

// Shutdown closes every initialized resource in reverse topological order,
// so dependents release their handles before their dependencies.
func (m *Manager) Shutdown(ctx context.Context) error {
	order, err := m.InitializationOrder()
	if err != nil {
		return err
	}

	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		m.mu.RLock()
		e := m.entries[id]
		m.mu.RUnlock()

		if err := e.initializer.Close(ctx); err != nil {
			m.logger.Warn("resource close failed",
				zap.String("resource", id),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("close %s: %w", id, err))
			continue
		}
		m.logger.Debug("resource closed", zap.String("resource", id))
	}
	return stderrors.Join(errs...)
}
