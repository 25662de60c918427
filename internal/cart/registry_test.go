package cart

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetAndWith(t *testing.T) {
	r := NewRegistry(time.Second)

	_, err := r.Get("caja-1")
	assert.ErrorIs(t, err, ErrCartNotFound)

	snap := r.GetOrCreate("caja-1")
	assert.Empty(t, snap.Items)

	snap, err = r.With("caja-1", func(c *Cart) { c.Add(product(7, "Pan", 990)) })
	require.NoError(t, err)
	assert.Len(t, snap.Items, 1)
	assert.True(t, decimal.NewFromInt(990).Equal(snap.Total))

	other := r.GetOrCreate("caja-2")
	assert.Empty(t, other.Items)
	assert.ElementsMatch(t, []string{"caja-1", "caja-2"}, r.Terminals())
}

func TestRegistry_ConcurrentAdds(t *testing.T) {
	r := NewRegistry(time.Second)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.With("caja-1", func(c *Cart) { c.Add(product(7, "Pan", 990)) })
		}()
	}
	wg.Wait()

	snap, err := r.Get("caja-1")
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 50, snap.Items[0].Quantity)
}

func TestRegistry_Submission(t *testing.T) {
	t.Run("Second submission is rejected while one is in flight", func(t *testing.T) {
		r := NewRegistry(time.Second)
		r.With("caja-1", func(c *Cart) { c.Add(product(1, "A", 1000)) })

		items, err := r.BeginSubmission("caja-1")
		require.NoError(t, err)
		assert.Len(t, items, 1)
		assert.True(t, r.GetOrCreate("caja-1").Submitting)

		_, err = r.BeginSubmission("caja-1")
		assert.ErrorIs(t, err, ErrSubmissionInFlight)

		r.EndSubmission("caja-1", nil)
		assert.False(t, r.GetOrCreate("caja-1").Submitting)
		assert.Len(t, r.GetOrCreate("caja-1").Items, 1, "failed submission keeps the cart")
	})

	t.Run("Success clears the cart and the notice expires", func(t *testing.T) {
		r := NewRegistry(20 * time.Millisecond)
		r.With("caja-1", func(c *Cart) { c.Add(product(1, "A", 1000)) })
		_, err := r.BeginSubmission("caja-1")
		require.NoError(t, err)

		r.EndSubmission("caja-1", &Notice{SaleID: 42, Total: decimal.NewFromInt(1000), At: time.Now()})
		snap := r.GetOrCreate("caja-1")
		assert.Empty(t, snap.Items)
		require.NotNil(t, snap.Notice)
		assert.Equal(t, int64(42), snap.Notice.SaleID)

		assert.Eventually(t, func() bool {
			return r.GetOrCreate("caja-1").Notice == nil
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("Cart is frozen while submitting", func(t *testing.T) {
		r := NewRegistry(time.Second)
		r.With("caja-1", func(c *Cart) { c.Add(product(1, "A", 1000)) })
		_, err := r.BeginSubmission("caja-1")
		require.NoError(t, err)

		snap, err := r.With("caja-1", func(c *Cart) { c.Add(product(8, "Leche", 1200)) })
		assert.ErrorIs(t, err, ErrSubmissionInFlight)
		require.Len(t, snap.Items, 1)
		assert.Equal(t, int64(1), snap.Items[0].ProductID)

		r.EndSubmission("caja-1", nil)
		snap, err = r.With("caja-1", func(c *Cart) { c.Add(product(8, "Leche", 1200)) })
		require.NoError(t, err)
		assert.Len(t, snap.Items, 2)
	})
}
