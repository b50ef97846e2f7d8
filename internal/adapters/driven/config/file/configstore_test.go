package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig places a hand-written config.toml in a fresh directory.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))
	return dir
}

func TestNewConfigStore_HomeFallback(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".refrag", "config.toml"), store.Path())
	info, err := os.Stat(filepath.Join(home, ".refrag"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewConfigStore_NoFileStartsEmpty(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "refrag")

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	_, ok := store.Get("sensor.strategy")
	assert.False(t, ok)
	assert.NoFileExists(t, store.Path())
}

func TestNewConfigStore_DirIsAFile(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	_, err := NewConfigStore(filepath.Join(blocker, "refrag"))
	assert.Error(t, err)
}

func TestConfigStore_SensorKeys(t *testing.T) {
	dir := writeConfig(t, `
[sensor]
strategy = "uncertainty"
lambda = 0.3
variance_threshold = 0.02

[retrieval]
k = 7
budget = 3
`)

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "uncertainty", store.GetString("sensor.strategy"))
	assert.InDelta(t, 0.3, store.GetFloat("sensor.lambda"), 1e-12)
	assert.InDelta(t, 0.02, store.GetFloat("sensor.variance_threshold"), 1e-12)
	assert.Equal(t, 7, store.GetInt("retrieval.k"))
	assert.Equal(t, 3, store.GetInt("retrieval.budget"))

	// Tables are flattened, never exposed as maps.
	_, ok := store.Get("sensor")
	assert.False(t, ok)
	_, ok = store.Get("retrieval")
	assert.False(t, ok)
}

func TestConfigStore_GetFloat(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  float64
	}{
		{"float64", 0.7, 0.7},
		{"float32", float32(0.5), 0.5},
		{"toml integer", int64(1), 1},
		{"int", 3, 3},
		{"string", "0.5", 0},
		{"bool", true, 0},
	}

	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, store.Set("sensor.lambda", tt.value))
			assert.InDelta(t, tt.want, store.GetFloat("sensor.lambda"), 1e-9)
		})
	}

	assert.Equal(t, 0.0, store.GetFloat("sensor.missing"))
}

func TestConfigStore_WholeNumberLambda(t *testing.T) {
	dir := writeConfig(t, "[sensor]\nlambda = 1\nvariance_threshold = 0\n")

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, 1.0, store.GetFloat("sensor.lambda"))
	val, ok := store.Get("sensor.variance_threshold")
	require.True(t, ok)
	assert.Equal(t, int64(0), val)
	assert.Equal(t, 0.0, store.GetFloat("sensor.variance_threshold"))
}

func TestConfigStore_TypeMismatchReadsZero(t *testing.T) {
	dir := writeConfig(t, "[retrieval]\nk = \"seven\"\n\n[embedding]\nnormalize = \"yes\"\nmodel = 3\n")

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, 0, store.GetInt("retrieval.k"))
	assert.False(t, store.GetBool("embedding.normalize"))
	assert.Empty(t, store.GetString("embedding.model"))
	assert.Nil(t, store.GetStringSlice("embedding.model"))
}

func TestConfigStore_EmbeddingKeys(t *testing.T) {
	dir := writeConfig(t, `
[embedding]
provider = "ollama"
model = "nomic-embed-text"
normalize = true
stop = ["\n\n", "###", 4]
`)

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "ollama", store.GetString("embedding.provider"))
	assert.Equal(t, "nomic-embed-text", store.GetString("embedding.model"))
	assert.True(t, store.GetBool("embedding.normalize"))
	// Non-string array items are dropped.
	assert.Equal(t, []string{"\n\n", "###"}, store.GetStringSlice("embedding.stop"))
}

func TestConfigStore_SetWritesNestedTables(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("sensor.strategy", "adaptive"))
	require.NoError(t, store.Set("sensor.lambda", 0.25))
	require.NoError(t, store.Set("sensor.variance_threshold", 0.05))
	require.NoError(t, store.Set("retrieval.k", 8))
	require.NoError(t, store.Set("retrieval.budget", 2))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[sensor]")
	assert.Contains(t, string(data), "[retrieval]")
	assert.NotContains(t, string(data), "sensor.lambda")

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "adaptive", reloaded.GetString("sensor.strategy"))
	assert.InDelta(t, 0.25, reloaded.GetFloat("sensor.lambda"), 1e-12)
	assert.InDelta(t, 0.05, reloaded.GetFloat("sensor.variance_threshold"), 1e-12)
	assert.Equal(t, 8, reloaded.GetInt("retrieval.k"))
	assert.Equal(t, 2, reloaded.GetInt("retrieval.budget"))
}

func TestConfigStore_SaveIsOwnerOnly(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save())

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_LoadPicksUpExternalEdits(t *testing.T) {
	dir := writeConfig(t, "[sensor]\nstrategy = \"mmr\"\n")
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.Equal(t, "mmr", store.GetString("sensor.strategy"))

	require.NoError(t, os.WriteFile(store.Path(), []byte("[sensor]\nstrategy = \"ensemble\"\n"), 0600))
	require.NoError(t, store.Load())
	assert.Equal(t, "ensemble", store.GetString("sensor.strategy"))

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, store.Load())
	_, ok := store.Get("sensor.strategy")
	assert.False(t, ok)
}

func TestConfigStore_MalformedTOML(t *testing.T) {
	dir := writeConfig(t, "[sensor\nlambda = 0.5\n")

	_, err := NewConfigStore(dir)
	assert.Error(t, err)
}

func TestConfigStore_LoadKeepsDataOnParseError(t *testing.T) {
	dir := writeConfig(t, "[sensor]\nlambda = 0.4\n")
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(store.Path(), []byte("lambda = = 1"), 0600))
	assert.Error(t, store.Load())
	assert.InDelta(t, 0.4, store.GetFloat("sensor.lambda"), 1e-12)
}

func TestConfigStore_UnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}

	dir := writeConfig(t, "[sensor]\nlambda = 0.5\n")
	require.NoError(t, os.Chmod(filepath.Join(dir, "config.toml"), 0000))
	t.Cleanup(func() { _ = os.Chmod(filepath.Join(dir, "config.toml"), 0600) })

	_, err := NewConfigStore(dir)
	assert.Error(t, err)
}

func TestConfigStore_SetUnencodableValue(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	err = store.Set("sensor.callback", func() {})
	assert.Error(t, err)
}

func TestConfigStore_ConcurrentSensorUpdates(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Set("sensor.lambda", float64(i)/10)
			_ = store.GetFloat("sensor.lambda")
			_ = store.GetString("sensor.strategy")
		}(i)
	}
	wg.Wait()

	got := store.GetFloat("sensor.lambda")
	assert.GreaterOrEqual(t, got, 0.0)
	assert.LessOrEqual(t, got, 0.7)
}

func TestNestMap_KeepsCollidingKeysFlat(t *testing.T) {
	nested := nestMap(map[string]any{
		"a":     "scalar",
		"a.b":   1,
		"x.y.z": true,
	})

	assert.Equal(t, "scalar", nested["a"])
	assert.Equal(t, 1, nested["a.b"])
	assert.Equal(t, map[string]any{"y": map[string]any{"z": true}}, nested["x"])
	assert.Equal(t, map[string]any{"a": "scalar", "a.b": 1, "x.y.z": true}, flattenMap(nested, ""))
}

func TestFlattenMap_SensorTables(t *testing.T) {
	flat := flattenMap(map[string]any{
		"sensor":    map[string]any{"strategy": "mmr", "lambda": 0.5},
		"retrieval": map[string]any{"k": int64(5)},
		"version":   int64(1),
	}, "")

	assert.Equal(t, map[string]any{
		"sensor.strategy": "mmr",
		"sensor.lambda":   0.5,
		"retrieval.k":     int64(5),
		"version":         int64(1),
	}, flat)
}
