// Package health aggregates liveness checks of the process dependencies.
package health

import "context"

// Ping is implemented by dependencies that can report reachability.
type Ping interface {
	Ping(ctx context.Context) error
}

// Status aggregates named pingers.
type Status struct {
	pingers map[string]Ping
}

// New returns a Status instance over the given named pingers.
func New(pingers map[string]Ping) *Status {
	return &Status{pingers: pingers}
}

// Status reports, per dependency, whether it currently answers.
func (h *Status) Status(ctx context.Context) map[string]bool {
	m := make(map[string]bool, len(h.pingers))
	for name, p := range h.pingers {
		m[name] = p.Ping(ctx) == nil
	}
	return m
}
