package pinger

import "context"

// Pinger is implemented by components that can report their health.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}
