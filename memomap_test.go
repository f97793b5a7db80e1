package portico

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoMap_GetOrElseMemoize(t *testing.T) {
	t.Run("builds once and caches", func(t *testing.T) {
		t.Parallel()

		m := newMemoMap()
		port := NewPort("svc")
		calls := 0
		build := func() (any, error) {
			calls++
			return "instance", nil
		}

		first, err := m.getOrElseMemoize(port, build, nil)
		require.NoError(t, err)
		second, err := m.getOrElseMemoize(port, build, nil)
		require.NoError(t, err)

		assert.Equal(t, "instance", first)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, calls)
		assert.True(t, m.has(port))
	})

	t.Run("build error records nothing", func(t *testing.T) {
		t.Parallel()

		m := newMemoMap()
		port := NewPort("svc")

		_, err := m.getOrElseMemoize(port, func() (any, error) {
			return nil, errors.New("nope")
		}, nil)
		require.Error(t, err)
		assert.False(t, m.has(port))

		instance, err := m.getOrElseMemoize(port, func() (any, error) {
			return "ok", nil
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "ok", instance)
	})

	t.Run("order numbers are local and monotonic", func(t *testing.T) {
		t.Parallel()

		m := newMemoMap()
		for _, name := range []string{"a", "b", "c"} {
			_, err := m.getOrElseMemoize(NewPort(name), func() (any, error) { return name, nil }, nil)
			require.NoError(t, err)
		}

		entries := m.snapshotEntries()
		require.Len(t, entries, 3)
		for i, entry := range entries {
			assert.Equal(t, i, entry.resolutionOrder)
		}
	})

	t.Run("fails once disposed", func(t *testing.T) {
		t.Parallel()

		m := newMemoMap()
		require.NoError(t, m.dispose(context.Background()))

		_, err := m.getOrElseMemoize(NewPort("late"), func() (any, error) {
			t.Fatal("factory must not run after disposal")
			return nil, nil
		}, nil)

		var disposed DisposedScopeError
		require.ErrorAs(t, err, &disposed)
		assert.Equal(t, "late", disposed.PortName)
	})
}

func TestMemoMap_Fork(t *testing.T) {
	t.Run("child reads through to parent entries", func(t *testing.T) {
		t.Parallel()

		parent := newMemoMap()
		port := NewPort("shared")
		_, err := parent.getOrElseMemoize(port, func() (any, error) { return "parent", nil }, nil)
		require.NoError(t, err)

		child := parent.fork()
		assert.True(t, child.has(port))
		entry, ok := child.lookup(port)
		require.True(t, ok)
		assert.Equal(t, "parent", entry.instance)
	})

	t.Run("child entries are invisible to the parent", func(t *testing.T) {
		t.Parallel()

		parent := newMemoMap()
		child := parent.fork()
		port := NewPort("child-only")

		_, err := child.getOrElseMemoize(port, func() (any, error) { return "child", nil }, nil)
		require.NoError(t, err)

		assert.True(t, child.has(port))
		assert.False(t, parent.has(port))
	})

	t.Run("child order counter restarts at zero", func(t *testing.T) {
		t.Parallel()

		parent := newMemoMap()
		for _, name := range []string{"a", "b"} {
			_, err := parent.getOrElseMemoize(NewPort(name), func() (any, error) { return name, nil }, nil)
			require.NoError(t, err)
		}

		child := parent.fork()
		_, err := child.getOrElseMemoize(NewPort("first"), func() (any, error) { return 1, nil }, nil)
		require.NoError(t, err)

		entries := child.snapshotEntries()
		require.Len(t, entries, 1)
		assert.Equal(t, 0, entries[0].resolutionOrder)
	})

	t.Run("memoization ignores ancestor entries", func(t *testing.T) {
		t.Parallel()

		parent := newMemoMap()
		port := NewPort("scoped")
		_, err := parent.getOrElseMemoize(port, func() (any, error) { return "parent", nil }, nil)
		require.NoError(t, err)

		child := parent.fork()
		instance, err := child.getOrElseMemoize(port, func() (any, error) { return "child", nil }, nil)
		require.NoError(t, err)

		assert.Equal(t, "child", instance, "local memoization never returns an ancestor's entry")
	})
}

func TestMemoMap_Dispose(t *testing.T) {
	t.Run("runs finalizers in reverse creation order", func(t *testing.T) {
		t.Parallel()

		m := newMemoMap()
		var order []string
		for _, name := range []string{"a", "b", "c"} {
			_, err := m.getOrElseMemoize(NewPort(name),
				func() (any, error) { return name, nil },
				func(_ context.Context, instance any) error {
					order = append(order, instance.(string))
					return nil
				})
			require.NoError(t, err)
		}

		require.NoError(t, m.dispose(context.Background()))
		assert.Equal(t, []string{"c", "b", "a"}, order)
		assert.True(t, m.isDisposed())
	})

	t.Run("continues past failing finalizers and aggregates", func(t *testing.T) {
		t.Parallel()

		m := newMemoMap()
		var attempted []string
		for _, name := range []string{"a", "b", "c"} {
			_, err := m.getOrElseMemoize(NewPort(name),
				func() (any, error) { return name, nil },
				func(_ context.Context, instance any) error {
					attempted = append(attempted, instance.(string))
					return errors.New("fail-" + instance.(string))
				})
			require.NoError(t, err)
		}

		err := m.dispose(context.Background())

		var agg DisposalError
		require.ErrorAs(t, err, &agg)
		assert.Len(t, agg.Errors, 3)
		assert.Equal(t, []string{"c", "b", "a"}, attempted)
	})

	t.Run("finalizer panic becomes an error, not a crash", func(t *testing.T) {
		t.Parallel()

		m := newMemoMap()
		ran := false
		_, err := m.getOrElseMemoize(NewPort("first"),
			func() (any, error) { return 1, nil },
			func(context.Context, any) error {
				ran = true
				return nil
			})
		require.NoError(t, err)
		_, err = m.getOrElseMemoize(NewPort("second"),
			func() (any, error) { return 2, nil },
			func(context.Context, any) error { panic("bad finalizer") })
		require.NoError(t, err)

		err = m.dispose(context.Background())

		var agg DisposalError
		require.ErrorAs(t, err, &agg)
		assert.Len(t, agg.Errors, 1)
		assert.Contains(t, agg.Errors[0].Error(), "panicked")
		assert.True(t, ran, "panic in one finalizer must not skip the rest")
	})

	t.Run("repeat dispose is a permanent no-op", func(t *testing.T) {
		t.Parallel()

		m := newMemoMap()
		calls := 0
		_, err := m.getOrElseMemoize(NewPort("svc"),
			func() (any, error) { return "v", nil },
			func(context.Context, any) error {
				calls++
				return errors.New("always fails")
			})
		require.NoError(t, err)

		require.Error(t, m.dispose(context.Background()))
		require.NoError(t, m.dispose(context.Background()))
		assert.Equal(t, 1, calls)
	})

	t.Run("entries without finalizers are skipped silently", func(t *testing.T) {
		t.Parallel()

		m := newMemoMap()
		_, err := m.getOrElseMemoize(NewPort("plain"), func() (any, error) { return "v", nil }, nil)
		require.NoError(t, err)

		assert.NoError(t, m.dispose(context.Background()))
	})
}
