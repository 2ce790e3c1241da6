package workers

import "context"

// Worker is a background trigger source for the sync coordinator. Start
// launches the worker's goroutine; Stop blocks until it has fully exited and
// is safe to call when the worker is not running.
type Worker interface {
	Start(ctx context.Context)
	Stop()
}
