package pending

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/storefront-payflow/internal/dynamotest"
)

func TestDecide(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	fresh := NewMarker("ORD1", "bill1", now.Add(-30*time.Minute))
	stale := NewMarker("ORD1", "bill1", now.Add(-2*time.Hour))
	edge := NewMarker("ORD1", "bill1", now.Add(-time.Hour))

	assert.Equal(t, Redirect, Decide(&fresh, now, DefaultTTL))
	assert.Equal(t, Discard, Decide(&stale, now, DefaultTTL))
	assert.Equal(t, Discard, Decide(&edge, now, DefaultTTL))
	assert.Equal(t, Allow, Decide(nil, now, DefaultTTL))
}

func TestMarkerTimestampIsEpochMillis(t *testing.T) {
	at := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	m := NewMarker("ORD1", "bill1", at)
	assert.Equal(t, at.UnixMilli(), m.Timestamp)
	assert.True(t, m.CreatedAt().Equal(at))
}

func storeContract(t *testing.T, s Store) {
	ctx := context.Background()
	now := time.Now()

	got, err := s.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	m := NewMarker("ORD1760600000000A1B2", "gcbhict9", now)
	require.NoError(t, s.Put(ctx, "sid-1", m))

	got, err = s.Get(ctx, "sid-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, m, *got)

	other, err := s.Get(ctx, "sid-2")
	require.NoError(t, err)
	assert.Nil(t, other, "markers are scoped to one session")

	// A newer checkout replaces the marker.
	m2 := NewMarker("ORD1760600000001C3D4", "bill2", now.Add(time.Second))
	require.NoError(t, s.Put(ctx, "sid-1", m2))
	got, err = s.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "bill2", got.BillCode)

	require.NoError(t, s.Clear(ctx, "sid-1"))
	got, err = s.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Clear(ctx, "sid-1"), "clearing twice is fine")
	assert.Error(t, s.Put(ctx, "", m))
}

func TestStores(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		storeContract(t, NewMemoryStore(DefaultTTL))
	})
	t.Run("dynamo", func(t *testing.T) {
		fake := dynamotest.New()
		fake.CreateTable("pending-payments", "session_id")
		storeContract(t, NewDynamoStore(fake, "pending-payments", DefaultTTL))
	})
}

func TestMemoryStore_StaleMarkerStillReadable(t *testing.T) {
	s := NewMemoryStore(DefaultTTL)
	ctx := context.Background()
	stale := NewMarker("ORD1", "bill1", time.Now().Add(-2*time.Hour))
	require.NoError(t, s.Put(ctx, "sid", stale))

	got, err := s.Get(ctx, "sid")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, Discard, Decide(got, time.Now(), DefaultTTL))
}

func TestMemoryStore_SweepsExpiredOnWrite(t *testing.T) {
	s := NewMemoryStore(DefaultTTL)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "old", NewMarker("ORD1", "bill1", time.Now().Add(-3*time.Hour))))
	require.NoError(t, s.Put(ctx, "new", NewMarker("ORD2", "bill2", time.Now())))

	got, err := s.Get(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDynamoStore_WritesTTL(t *testing.T) {
	fake := dynamotest.New()
	fake.CreateTable("pending-payments", "session_id")
	s := NewDynamoStore(fake, "pending-payments", DefaultTTL)
	at := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Put(context.Background(), "sid", NewMarker("ORD1", "bill1", at)))

	items := fake.Items("pending-payments")
	require.Len(t, items, 1)
	assert.Contains(t, items[0], "expires_at")
	assert.Contains(t, items[0], "order_id")
	assert.Contains(t, items[0], "timestamp")
}
