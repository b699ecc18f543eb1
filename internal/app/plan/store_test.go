package plan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SwapValidates(t *testing.T) {
	store := NewStore(Default(), "")

	bad := Default()
	bad.Reentry.MonthlyLimit = 0
	assert.Error(t, store.Swap(bad))
	assert.Equal(t, 10, store.Current().Reentry.MonthlyLimit)

	good := Default()
	good.Reentry.MonthlyLimit = 5
	require.NoError(t, store.Swap(good))
	assert.Equal(t, 5, store.Current().Reentry.MonthlyLimit)
}

func TestStore_CurrentIsACopy(t *testing.T) {
	store := NewStore(Default(), "")
	snapshot := store.Current()
	snapshot.Cycle.BaseValue = 1

	assert.Equal(t, 360.00, store.Current().Cycle.BaseValue)
}

func TestStore_ReloadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reentry:\n  monthlyLimit: 3\n"), 0o644))

	store := NewStore(Default(), path)
	cfg, err := store.Reload()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Reentry.MonthlyLimit)
	assert.Equal(t, 3, store.Current().Reentry.MonthlyLimit)

	// A broken file leaves the active plan untouched.
	require.NoError(t, os.WriteFile(path, []byte("cycle:\n  baseValue: -1\n"), 0o644))
	_, err = store.Reload()
	assert.Error(t, err)
	assert.Equal(t, 3, store.Current().Reentry.MonthlyLimit)
}

func TestStore_ReloadWithoutPathKeepsPlan(t *testing.T) {
	store := NewStore(Default(), "")
	cfg, err := store.Reload()
	require.NoError(t, err)
	assert.Equal(t, Default().Cycle.BaseValue, cfg.Cycle.BaseValue)
}
