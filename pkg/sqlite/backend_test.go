package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/fumetti/pkg/types"
)

func TestNewBackend(t *testing.T) {
	ctx := context.Background()
	config := types.Config{Store: types.StoreFile, DataDir: t.TempDir()}

	catalog := NewBackend()
	require.NoError(t, catalog.Attach(config))

	c, err := catalog.Add(ctx, types.Metadata{Collana: "Bonelli", NomeFumetto: "Dylan Dog", Numeri: 2})
	require.NoError(t, err)
	require.NoError(t, catalog.SetOwnership(ctx, c.ID, []bool{true, false}))
	require.NoError(t, catalog.Detach())

	reopened := NewBackend()
	require.NoError(t, reopened.Attach(config))
	defer reopened.Detach()

	got, err := reopened.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, got.Owned)
	assert.Equal(t, 50, got.Stats().Percentage)
}
