package testutil

import (
	"context"
	"testing"

	"github.com/portico-di/portico"
)

// ValueAdapter builds an adapter whose factory returns a fixed value.
func ValueAdapter(port *portico.Port, lifetime portico.Lifetime, value any) *portico.Adapter {
	return portico.MustAdapter(port, nil, lifetime,
		func(portico.Deps) (any, error) { return value, nil }, nil)
}

// CountingAdapter builds an adapter that records "build:<name>" on every
// factory run and "dispose:<name>" on finalization, returning the port name
// as the instance.
func CountingAdapter(port *portico.Port, requires []*portico.Port, lifetime portico.Lifetime, rec *Recorder) *portico.Adapter {
	return portico.MustAdapter(port, requires, lifetime,
		func(portico.Deps) (any, error) {
			rec.Record("build:" + port.Name())
			return port.Name(), nil
		},
		func(context.Context, any) error {
			rec.Record("dispose:" + port.Name())
			return nil
		})
}

// BasicPorts holds the ports of the graph built by BasicGraph.
type BasicPorts struct {
	Config         *portico.Port
	Logger         *portico.Port
	RequestContext *portico.Port
	RequestID      *portico.Port
}

// BasicGraph builds a small graph exercising all three lifetimes:
// Config (singleton, leaf), Logger (singleton, requires Config),
// RequestContext (scoped, leaf), RequestID (request, leaf).
func BasicGraph(tb testing.TB) (*portico.Graph, BasicPorts) {
	tb.Helper()

	ports := BasicPorts{
		Config:         portico.NewPort("config"),
		Logger:         portico.NewPort("logger"),
		RequestContext: portico.NewPort("request-context"),
		RequestID:      portico.NewPort("request-id"),
	}

	graph, err := portico.NewGraph(
		portico.MustAdapter(ports.Config, nil, portico.Singleton,
			func(portico.Deps) (any, error) {
				return &Config{Env: "test"}, nil
			}, nil),
		portico.MustAdapter(ports.Logger, []*portico.Port{ports.Config}, portico.Singleton,
			func(deps portico.Deps) (any, error) {
				return &Logger{Config: deps.Get(ports.Config).(*Config)}, nil
			}, nil),
		portico.MustAdapter(ports.RequestContext, nil, portico.Scoped,
			func(portico.Deps) (any, error) {
				return NewRequestContext(), nil
			}, nil),
		portico.MustAdapter(ports.RequestID, nil, portico.Request,
			func(portico.Deps) (any, error) {
				return NewRequestContext().ID, nil
			}, nil),
	)
	if err != nil {
		tb.Fatalf("building basic graph: %v", err)
	}
	return graph, ports
}

// NewContainer creates a container over graph and closes it when the test
// finishes.
func NewContainer(tb testing.TB, graph *portico.Graph) *portico.Container {
	tb.Helper()

	container, err := portico.New(graph, nil)
	if err != nil {
		tb.Fatalf("creating container: %v", err)
	}
	tb.Cleanup(func() {
		if err := container.Close(); err != nil {
			tb.Errorf("closing container: %v", err)
		}
	})
	return container
}
