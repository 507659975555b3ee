package ports

// Service is a long-running component with an explicit lifecycle
type Service interface {
	// Start starts the service without blocking
	Start() error

	// Stop stops the service and releases its listeners
	Stop() error
}
