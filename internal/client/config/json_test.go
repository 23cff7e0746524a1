package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir string, data map[string]any) string {
	t.Helper()
	path := filepath.Join(dir, "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	dir := t.TempDir()

	t.Run("loads from flags", func(t *testing.T) {
		path := writeTempJSON(t, dir, map[string]any{
			"server_endpoint_addr":  "www.example:9000",
			"online_check_interval": "10s",
			"cache_path":            "cache.db",
			"timezone":              "Europe/Riga",
		})
		os.Args = []string{"testbin", "-config", path}
		cfg := &Config{IdentityToken: "kept"}
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.ServerEndpointAddr)
		assert.Equal(t, 10*time.Second, cfg.OnlineCheckInterval)
		assert.Equal(t, "cache.db", cfg.CachePath)
		assert.Equal(t, "Europe/Riga", cfg.Timezone)
		assert.Equal(t, "kept", cfg.IdentityToken)
	})

	t.Run("no config flag leaves values", func(t *testing.T) {
		os.Args = []string{"testbin"}
		cfg := &Config{ServerEndpointAddr: "defaults:1234", OnlineCheckInterval: 42 * time.Second}
		parseJson(cfg)
		assert.Equal(t, "defaults:1234", cfg.ServerEndpointAddr)
		assert.Equal(t, 42*time.Second, cfg.OnlineCheckInterval)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))
		os.Args = []string{"testbin", "-config", bad}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
