package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/awaken/internal/config"
	"github.com/aretw0/awaken/internal/logging"
	"github.com/aretw0/awaken/pkg/adapters/file"
	"github.com/aretw0/awaken/pkg/adapters/memory"
	"github.com/aretw0/awaken/pkg/adapters/redis"
	"github.com/aretw0/awaken/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildStack_Memory(t *testing.T) {
	ctx := context.Background()
	stack, err := BuildStack(ctx, config.Default(), logging.NewNop(), domain.LifecycleHooks{})
	require.NoError(t, err)
	defer stack.Close(ctx)

	assert.IsType(t, &memory.Store{}, stack.Store)
	rec, err := stack.Manager.Open(ctx, "m1", "ENTJ")
	require.NoError(t, err)
	assert.Equal(t, domain.StageRitual, rec.Stage)
}

func TestBuildStack_File(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Store.Driver = config.DriverFile
	cfg.Store.Dir = t.TempDir()

	stack, err := BuildStack(ctx, cfg, logging.NewNop(), domain.LifecycleHooks{})
	require.NoError(t, err)
	defer stack.Close(ctx)

	assert.IsType(t, &file.Store{}, stack.Store)
	_, err = stack.Manager.Open(ctx, "f1", "INTP")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(cfg.Store.Dir, "f1.json"))
}

func TestBuildStack_RedisWithLock(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Store.Driver = config.DriverRedis
	cfg.Store.Redis.Addr = mr.Addr()
	cfg.Store.Redis.Lock = true

	ctx := context.Background()
	stack, err := BuildStack(ctx, cfg, logging.NewNop(), domain.LifecycleHooks{})
	require.NoError(t, err)

	assert.IsType(t, &redis.Store{}, stack.Store)
	_, err = stack.Manager.Open(ctx, "r1", "ISTP")
	require.NoError(t, err)
	assert.True(t, mr.Exists(cfg.Store.Redis.Prefix+"r1"))

	require.NoError(t, stack.Close(ctx))
}

func TestBuildStack_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := config.Default()
	cfg.Store.Driver = config.DriverRedis
	cfg.Store.Redis.Addr = addr

	_, err := BuildStack(context.Background(), cfg, logging.NewNop(), domain.LifecycleHooks{})
	assert.ErrorContains(t, err, "redis")
}

func TestBuildStack_ProfilesDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "conjurer.md"), []byte("---\nelement: ice\n---\n"), 0644))

	cfg := config.Default()
	cfg.Profiles.Dir = dir
	stack, err := BuildStack(context.Background(), cfg, logging.NewNop(), domain.LifecycleHooks{})
	require.NoError(t, err)
	assert.Equal(t, "ice", stack.Profiles.ProfileFor(domain.Conjurer).Element)
}

func TestOpenStore_Sealed(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Store.Driver = config.DriverRedis
	cfg.Store.Redis.Addr = mr.Addr()
	cfg.Store.EncryptionKey = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, 32))

	ctx := context.Background()
	store, locker, closeStore, err := OpenStore(ctx, cfg, logging.NewNop())
	require.NoError(t, err)
	defer closeStore()
	assert.Nil(t, locker)

	rec := &domain.FlowRecord{ID: "s1", Stage: domain.StageRitual, Params: domain.Params{Code: "isfp", Archetype: domain.Transmuter}}
	require.NoError(t, store.Save(ctx, "s1", rec))

	raw, err := mr.Get(cfg.Store.Redis.Prefix + "s1")
	require.NoError(t, err)
	assert.NotContains(t, raw, "isfp")
	assert.Contains(t, raw, `"sealed"`)

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "isfp", loaded.Params.Code)
}
