package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/awaken/pkg/adapters/memory"
	"github.com/aretw0/awaken/pkg/domain"
	"github.com/aretw0/awaken/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunFlowStoreContract(t, store)
}

func TestMemoryStore_SaveCopiesSessions(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	record := &domain.FlowRecord{
		ID:         "f1",
		Stage:      domain.StageDivination,
		Divination: &domain.DivinationSession{ID: "f1", Phase: domain.DivinationSetup},
	}
	require.NoError(t, store.Save(ctx, "f1", record))

	record.Divination.Phase = domain.DivinationRevealed

	loaded, err := store.Load(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, domain.DivinationSetup, loaded.Divination.Phase)
}

func TestMemoryStore_ListIsSorted(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, store.Save(ctx, id, &domain.FlowRecord{ID: id}))
	}
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}
