package portico_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portico-di/portico"
	"github.com/portico-di/portico/internal/testutil"
)

func TestScope_Creation(t *testing.T) {
	t.Run("container scope has no parent scope", func(t *testing.T) {
		t.Parallel()

		graph, _ := testutil.BasicGraph(t)
		container := testutil.NewContainer(t, graph)

		scope, err := container.CreateScope()
		require.NoError(t, err)
		t.Cleanup(func() { require.NoError(t, scope.Close()) })

		assert.NotEmpty(t, scope.ID())
		assert.Nil(t, scope.Parent())
		assert.Same(t, container, scope.Container())
		assert.False(t, scope.IsDisposed())
	})

	t.Run("nested scopes track their parents", func(t *testing.T) {
		t.Parallel()

		graph, _ := testutil.BasicGraph(t)
		container := testutil.NewContainer(t, graph)

		scope1, err := container.CreateScope()
		require.NoError(t, err)
		scope2, err := scope1.CreateScope()
		require.NoError(t, err)
		scope3, err := scope2.CreateScope()
		require.NoError(t, err)

		assert.Same(t, scope1, scope2.Parent())
		assert.Same(t, scope2, scope3.Parent())
		assert.Same(t, container, scope3.Container())

		require.NoError(t, scope3.Close())
		require.NoError(t, scope2.Close())
		require.NoError(t, scope1.Close())
	})
}

func TestScope_Resolve(t *testing.T) {
	t.Run("scoped port memoizes within one scope", func(t *testing.T) {
		t.Parallel()

		graph, ports := testutil.BasicGraph(t)
		container := testutil.NewContainer(t, graph)
		scope, err := container.CreateScope()
		require.NoError(t, err)
		t.Cleanup(func() { require.NoError(t, scope.Close()) })

		first, err := portico.Resolve[*testutil.RequestContext](scope, ports.RequestContext)
		require.NoError(t, err)
		second, err := portico.Resolve[*testutil.RequestContext](scope, ports.RequestContext)
		require.NoError(t, err)

		assert.Same(t, first, second)
	})

	t.Run("sibling scopes never share scoped instances", func(t *testing.T) {
		t.Parallel()

		graph, ports := testutil.BasicGraph(t)
		container := testutil.NewContainer(t, graph)

		left, err := container.CreateScope()
		require.NoError(t, err)
		right, err := container.CreateScope()
		require.NoError(t, err)
		t.Cleanup(func() {
			require.NoError(t, left.Close())
			require.NoError(t, right.Close())
		})

		a, err := portico.Resolve[*testutil.RequestContext](left, ports.RequestContext)
		require.NoError(t, err)
		b, err := portico.Resolve[*testutil.RequestContext](right, ports.RequestContext)
		require.NoError(t, err)

		assert.NotSame(t, a, b)
	})

	t.Run("child scope gets its own scoped instance", func(t *testing.T) {
		t.Parallel()

		graph, ports := testutil.BasicGraph(t)
		container := testutil.NewContainer(t, graph)

		parent, err := container.CreateScope()
		require.NoError(t, err)
		t.Cleanup(func() { require.NoError(t, parent.Close()) })
		child, err := parent.CreateScope()
		require.NoError(t, err)

		fromParent, err := portico.Resolve[*testutil.RequestContext](parent, ports.RequestContext)
		require.NoError(t, err)
		fromChild, err := portico.Resolve[*testutil.RequestContext](child, ports.RequestContext)
		require.NoError(t, err)

		assert.NotSame(t, fromParent, fromChild, "scoped caches are never inherited")
	})

	t.Run("singletons converge across the whole scope tree", func(t *testing.T) {
		t.Parallel()

		rec := testutil.NewRecorder()
		port := portico.NewPort("shared")
		graph, err := portico.NewGraph(testutil.CountingAdapter(port, nil, portico.Singleton, rec))
		require.NoError(t, err)
		container := testutil.NewContainer(t, graph)

		scope1, err := container.CreateScope()
		require.NoError(t, err)
		scope2, err := container.CreateScope()
		require.NoError(t, err)
		deep, err := scope2.CreateScope()
		require.NoError(t, err)
		t.Cleanup(func() {
			require.NoError(t, scope1.Close())
			require.NoError(t, scope2.Close())
		})

		first, err := scope1.Resolve(port)
		require.NoError(t, err)
		second, err := deep.Resolve(port)
		require.NoError(t, err)
		third, err := container.Resolve(port)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, first, third)
		assert.Equal(t, 1, rec.Count("build:shared"))
	})

	t.Run("request lifetime stays fresh inside scopes", func(t *testing.T) {
		t.Parallel()

		graph, ports := testutil.BasicGraph(t)
		container := testutil.NewContainer(t, graph)
		scope, err := container.CreateScope()
		require.NoError(t, err)
		t.Cleanup(func() { require.NoError(t, scope.Close()) })

		first, err := portico.Resolve[string](scope, ports.RequestID)
		require.NoError(t, err)
		second, err := portico.Resolve[string](scope, ports.RequestID)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})
}

func TestScope_Dispose(t *testing.T) {
	t.Run("child finalizers run strictly before the parent's", func(t *testing.T) {
		t.Parallel()

		rec := testutil.NewRecorder()
		scoped := portico.NewPort("session")
		graph, err := portico.NewGraph(testutil.CountingAdapter(scoped, nil, portico.Scoped, rec))
		require.NoError(t, err)
		container := testutil.NewContainer(t, graph)

		parent, err := container.CreateScope()
		require.NoError(t, err)
		child, err := parent.CreateScope()
		require.NoError(t, err)

		_, err = parent.Resolve(scoped)
		require.NoError(t, err)
		_, err = child.Resolve(scoped)
		require.NoError(t, err)

		require.NoError(t, parent.Dispose(context.Background()))

		assert.Equal(t, []string{
			"build:session", "build:session",
			"dispose:session", "dispose:session",
		}, rec.Events())
		assert.True(t, child.IsDisposed(), "cascade disposes children first")
	})

	t.Run("deep cascade disposes deepest first", func(t *testing.T) {
		t.Parallel()

		rec := testutil.NewRecorder()
		built := 0
		scoped := portico.NewPort("trace")
		graph, err := portico.NewGraph(
			portico.MustAdapter(scoped, nil, portico.Scoped,
				func(portico.Deps) (any, error) {
					built++
					return fmt.Sprintf("depth-%d", built), nil
				},
				func(_ context.Context, instance any) error {
					rec.Record("dispose:" + instance.(string))
					return nil
				}),
		)
		require.NoError(t, err)
		container, err := portico.New(graph, nil)
		require.NoError(t, err)

		var scopes []*portico.Scope
		var next portico.Resolver = container
		for range 4 {
			scope, err := next.CreateScope()
			require.NoError(t, err)
			_, err = scope.Resolve(scoped)
			require.NoError(t, err)
			scopes = append(scopes, scope)
			next = scope
		}

		require.NoError(t, container.Close())

		assert.Equal(t, []string{
			"dispose:depth-4", "dispose:depth-3", "dispose:depth-2", "dispose:depth-1",
		}, rec.Events())
		for _, scope := range scopes {
			assert.True(t, scope.IsDisposed())
		}
	})

	t.Run("resolve after scope dispose fails", func(t *testing.T) {
		t.Parallel()

		graph, ports := testutil.BasicGraph(t)
		container := testutil.NewContainer(t, graph)
		scope, err := container.CreateScope()
		require.NoError(t, err)
		require.NoError(t, scope.Close())

		_, err = scope.Resolve(ports.RequestContext)

		var disposed portico.DisposedScopeError
		require.ErrorAs(t, err, &disposed)
		assert.Equal(t, "request-context", disposed.PortName)
	})

	t.Run("second close is a no-op", func(t *testing.T) {
		t.Parallel()

		rec := testutil.NewRecorder()
		scoped := portico.NewPort("conn")
		graph, err := portico.NewGraph(testutil.CountingAdapter(scoped, nil, portico.Scoped, rec))
		require.NoError(t, err)
		container := testutil.NewContainer(t, graph)
		scope, err := container.CreateScope()
		require.NoError(t, err)

		_, err = scope.Resolve(scoped)
		require.NoError(t, err)

		require.NoError(t, scope.Close())
		require.NoError(t, scope.Close())
		assert.Equal(t, 1, rec.Count("dispose:conn"))
	})

	t.Run("disposing a scope leaves the container usable", func(t *testing.T) {
		t.Parallel()

		graph, ports := testutil.BasicGraph(t)
		container := testutil.NewContainer(t, graph)
		scope, err := container.CreateScope()
		require.NoError(t, err)
		require.NoError(t, scope.Close())

		_, err = container.Resolve(ports.Config)
		assert.NoError(t, err)

		fresh, err := container.CreateScope()
		require.NoError(t, err)
		t.Cleanup(func() { require.NoError(t, fresh.Close()) })
		_, err = fresh.Resolve(ports.RequestContext)
		assert.NoError(t, err)
	})
}
