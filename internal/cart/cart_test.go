package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/storefront-payflow/internal/dynamotest"
)

func storeContract(t *testing.T, s Store) {
	ctx := context.Background()

	items, err := s.Get(ctx, "sid")
	require.NoError(t, err)
	assert.Empty(t, items)

	want := []Item{
		{ProductID: "p-1", Name: "Linen Shirt", Price: 100, Quantity: 2, Size: "M"},
		{ProductID: "p-2", Name: "Cap", Price: 25.5, Quantity: 1},
	}
	require.NoError(t, s.Put(ctx, "sid", want))

	items, err = s.Get(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, want, items)

	want[0].Quantity = 9
	items, _ = s.Get(ctx, "sid")
	assert.Equal(t, 2, items[0].Quantity, "stored cart must not alias the caller's slice")

	require.NoError(t, s.Clear(ctx, "sid"))
	items, err = s.Get(ctx, "sid")
	require.NoError(t, err)
	assert.Empty(t, items)

	assert.Error(t, s.Put(ctx, "", want))
}

func TestStores(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		storeContract(t, NewMemoryStore())
	})
	t.Run("dynamo", func(t *testing.T) {
		fake := dynamotest.New()
		fake.CreateTable("carts", "session_id")
		storeContract(t, NewDynamoStore(fake, "carts"))
	})
}
