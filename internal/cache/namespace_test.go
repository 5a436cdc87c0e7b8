package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

func TestNamespace_GetSet(t *testing.T) {
	m, _ := newTestMemory(t)
	ns := NewNamespace(m, "materials", time.Minute)
	ctx := context.Background()

	var got item
	assert.False(t, ns.Get(ctx, "1", &got))

	ns.Set(ctx, "1", item{Name: "cotton", Qty: 5})
	require.True(t, ns.Get(ctx, "1", &got))
	assert.Equal(t, item{Name: "cotton", Qty: 5}, got)
}

func TestNamespace_InvalidateDropsOnlyOwnEntries(t *testing.T) {
	m, _ := newTestMemory(t)
	materials := NewNamespace(m, "materials", time.Minute)
	products := NewNamespace(m, "products", time.Minute)
	ctx := context.Background()

	materials.Set(ctx, "list", item{Name: "a"})
	products.Set(ctx, "list", item{Name: "b"})

	require.NoError(t, materials.Invalidate(ctx))

	var got item
	assert.False(t, materials.Get(ctx, "list", &got))
	assert.True(t, products.Get(ctx, "list", &got))
	assert.Equal(t, "b", got.Name)
}

func TestRemember_LoadsOnceThenHits(t *testing.T) {
	m, _ := newTestMemory(t)
	ns := NewNamespace(m, "products", time.Minute)
	ctx := context.Background()

	calls := 0
	load := func() (item, error) {
		calls++
		return item{Name: "shirt", Qty: calls}, nil
	}

	first, err := Remember(ctx, ns, "7", load)
	require.NoError(t, err)
	second, err := Remember(ctx, ns, "7", load)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestRemember_ErrorIsNotCached(t *testing.T) {
	m, _ := newTestMemory(t)
	ns := NewNamespace(m, "products", time.Minute)
	ctx := context.Background()

	boom := errors.New("db down")
	_, err := Remember(ctx, ns, "k", func() (item, error) { return item{}, boom })
	assert.ErrorIs(t, err, boom)

	got, err := Remember(ctx, ns, "k", func() (item, error) { return item{Name: "ok"}, nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Name)
}

// A read that started before a write and finishes after it must not make
// its stale result visible to later readers.
func TestRemember_RacingWriteNeverPublishesStaleValue(t *testing.T) {
	m, _ := newTestMemory(t)
	ns := NewNamespace(m, "materials", time.Minute)
	ctx := context.Background()

	stale, err := Remember(ctx, ns, "1", func() (item, error) {
		// The write commits and invalidates while this load is in flight.
		require.NoError(t, ns.Invalidate(ctx))
		return item{Name: "old", Qty: 100}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 100, stale.Qty)

	fresh, err := Remember(ctx, ns, "1", func() (item, error) {
		return item{Name: "old", Qty: 70}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 70, fresh.Qty)
}

func TestRemember_NilNamespaceBypasses(t *testing.T) {
	calls := 0
	for i := 0; i < 2; i++ {
		_, err := Remember(context.Background(), nil, "k", func() (int, error) {
			calls++
			return calls, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}

func TestNamespace_NopBackendAlwaysLoads(t *testing.T) {
	ns := NewNamespace(Nop{}, "materials", time.Minute)
	calls := 0
	for i := 0; i < 3; i++ {
		_, err := Remember(context.Background(), ns, "k", func() (int, error) {
			calls++
			return calls, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
	assert.NoError(t, ns.Invalidate(context.Background()))
}
