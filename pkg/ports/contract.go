package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/awaken/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunFlowStoreContract is a reusable test suite that verifies if an adapter complies with FlowStore.
func RunFlowStoreContract(t *testing.T, store FlowStore) {
	t.Helper()
	ctx := context.Background()

	record := &domain.FlowRecord{
		ID:     "contract-flow",
		Stage:  domain.StageRitual,
		Params: domain.Params{Code: "ESTP", Archetype: domain.Enhancer},
		Ritual: &domain.RitualSession{
			ID:        "contract-flow/ritual",
			Phase:     domain.RitualCounting,
			Remaining: 7,
		},
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 1, 1, 0, 0, 3, 0, time.UTC),
	}

	t.Run("Load_NotFound", func(t *testing.T) {
		_, err := store.Load(ctx, "missing-flow")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Save_Load", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, record.ID, record))

		loaded, err := store.Load(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, record.Stage, loaded.Stage)
		assert.Equal(t, record.Params, loaded.Params)
		require.NotNil(t, loaded.Ritual)
		assert.Equal(t, 7, loaded.Ritual.Remaining)
		assert.True(t, record.UpdatedAt.Equal(loaded.UpdatedAt))
	})

	t.Run("Isolation", func(t *testing.T) {
		loaded, err := store.Load(ctx, record.ID)
		require.NoError(t, err)
		loaded.Ritual.Remaining = 0

		again, err := store.Load(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, 7, again.Ritual.Remaining)
	})

	t.Run("List", func(t *testing.T) {
		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, record.ID)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, record.ID))
		_, err := store.Load(ctx, record.ID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}
