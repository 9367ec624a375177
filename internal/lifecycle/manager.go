package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/moolen/faultline/internal/logging"
)

// DefaultShutdownTimeout is the per-component grace period used by Stop.
const DefaultShutdownTimeout = 30 * time.Second

// Manager starts components after their dependencies and stops them in the
// reverse order they came up.
type Manager struct {
	mu              sync.Mutex
	components      []Component
	dependencies    map[Component][]Component
	started         []Component
	shutdownTimeout time.Duration
	logger          *logging.Logger
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		dependencies:    make(map[Component][]Component),
		shutdownTimeout: DefaultShutdownTimeout,
		logger:          logging.GetLogger("lifecycle"),
	}
}

// Register adds a component. Every dependency must already be registered,
// which also rules out cycles.
func (m *Manager) Register(component Component, dependsOn ...Component) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if component == nil {
		return fmt.Errorf("cannot register nil component")
	}
	if component.Name() == "" {
		return fmt.Errorf("component must have a non-empty name")
	}
	if slices.Contains(m.components, component) {
		return fmt.Errorf("component %s is already registered", component.Name())
	}
	for _, dep := range dependsOn {
		if dep == nil || !slices.Contains(m.components, dep) {
			return fmt.Errorf("dependency of %s is not registered", component.Name())
		}
	}

	m.components = append(m.components, component)
	m.dependencies[component] = slices.Clone(dependsOn)
	m.logger.Debug("Registered %s with %d dependencies", component.Name(), len(dependsOn))
	return nil
}

// Start starts every registered component in dependency order. When one
// fails the components already started are stopped again.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.started = m.started[:0]
	for _, component := range m.order() {
		begin := time.Now()
		m.logger.Info("Starting %s", component.Name())

		if err := component.Start(ctx); err != nil {
			m.logger.Error("Failed to start %s: %v", component.Name(), err)
			m.rollback()
			return fmt.Errorf("starting %s: %w", component.Name(), err)
		}
		m.started = append(m.started, component)
		m.logger.Info("%s started (took %dms)", component.Name(), time.Since(begin).Milliseconds())
	}
	return nil
}

// Stop stops started components in reverse start order. Each one gets its own
// shutdown timeout. Errors are collected and returned together.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for i := len(m.started) - 1; i >= 0; i-- {
		component := m.started[i]
		m.logger.Info("Stopping %s", component.Name())

		stopCtx, cancel := context.WithTimeout(ctx, m.shutdownTimeout)
		err := component.Stop(stopCtx)
		cancel()

		switch {
		case errors.Is(err, context.DeadlineExceeded):
			m.logger.Warn("%s exceeded its %s grace period", component.Name(), m.shutdownTimeout)
			errs = append(errs, fmt.Errorf("stopping %s: %w", component.Name(), err))
		case err != nil:
			m.logger.Error("Error stopping %s: %v", component.Name(), err)
			errs = append(errs, fmt.Errorf("stopping %s: %w", component.Name(), err))
		}
	}
	m.started = m.started[:0]
	return errors.Join(errs...)
}

// IsRunning reports whether the component was started and not yet stopped.
func (m *Manager) IsRunning(component Component) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Contains(m.started, component)
}

// SetShutdownTimeout changes the per-component grace period.
func (m *Manager) SetShutdownTimeout(timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownTimeout = timeout
}

// order lists components with dependencies first, keeping registration order
// between unrelated components.
func (m *Manager) order() []Component {
	visited := make(map[Component]bool, len(m.components))
	sorted := make([]Component, 0, len(m.components))

	var visit func(c Component)
	visit = func(c Component) {
		if visited[c] {
			return
		}
		visited[c] = true
		for _, dep := range m.dependencies[c] {
			visit(dep)
		}
		sorted = append(sorted, c)
	}
	for _, c := range m.components {
		visit(c)
	}
	return sorted
}

func (m *Manager) rollback() {
	for i := len(m.started) - 1; i >= 0; i-- {
		component := m.started[i]
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := component.Stop(ctx); err != nil {
			m.logger.Warn("Error stopping %s during rollback: %v", component.Name(), err)
		}
		cancel()
	}
	m.started = m.started[:0]
}
