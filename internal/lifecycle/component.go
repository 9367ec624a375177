package lifecycle

import "context"

// Component is a long-running part of the server process: the record store,
// the policy watcher, the tracing provider or the HTTP server.
type Component interface {
	// Start brings the component up. It must return once the component is
	// serving; background work keeps running until Stop.
	Start(ctx context.Context) error

	// Stop releases the component's resources within the context deadline.
	Stop(ctx context.Context) error

	// Name is used in log lines and registration errors.
	Name() string
}
