package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, 30*time.Second, cfg.Server.ExchangeTimeout())
	assert.Equal(t, "log", cfg.Log.Dir)
	assert.Equal(t, "system.log", cfg.Log.File)
	assert.Equal(t, "http-access.log", cfg.Log.AccessFile)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 10000, cfg.Origin.TimeoutMS)
	assert.Empty(t, cfg.Plugins)
}

func TestParsePlugins(t *testing.T) {
	cfg, err := Parse([]byte(`
[origin]
url = "http://127.0.0.1:9000"

[[plugin]]
name = " remap "
args = ["--map", "/a=/b"]

[[plugin]]
name = "admit"
`))
	require.NoError(t, err)
	require.Len(t, cfg.Plugins, 2)
	assert.Equal(t, []string{"remap", "--map", "/a=/b"}, cfg.Plugins[0].Argv())
	assert.Equal(t, []string{"admit"}, cfg.Plugins[1].Argv())
	assert.Equal(t, "http://127.0.0.1:9000", cfg.Origin.URL)
}

func TestParseRejects(t *testing.T) {
	key := strings.Repeat("ab", 32)
	cases := map[string]string{
		"half tls":      "[server]\ntls_cert = \"c.pem\"\n",
		"negative":      "[server]\nexchange_timeout_ms = -1\n",
		"level":         "[log]\nlevel = \"loud\"\n",
		"metrics path":  "[metrics]\npath = \"metrics\"\n",
		"origin scheme": "[origin]\nurl = \"ftp://x\"\n",
		"origin host":   "[origin]\nurl = \"http://\"\n",
		"empty target":  "[relay]\ntargets = [\" \"]\n",
		"compress":      "[relay]\ntargets = [\"a:1\"]\ncompress = \"lz4\"\n",
		"short key":     "[relay]\ntargets = [\"a:1\"]\nencrypt = \"aesgcm\"\naes256_key_hex = \"abcd\"\n",
		"bad hex":       "[relay]\ntargets = [\"a:1\"]\nencrypt = \"aesgcm\"\naes256_key_hex = \"" + strings.Repeat("zz", 32) + "\"\n",
		"encrypt":       "[relay]\ntargets = [\"a:1\"]\nencrypt = \"rot13\"\naes256_key_hex = \"" + key + "\"\n",
		"relay tls":     "[relay]\ntargets = [\"a:1\"]\n[relay.tls]\nenable = true\n",
		"plugin name":   "[[plugin]]\nname = \"  \"\n",
		"malformed":     "[server\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.True(t, strings.HasPrefix(err.Error(), "manifest: "), err.Error())
		})
	}
}

func TestParseRelay(t *testing.T) {
	cfg, err := Parse([]byte(`
[relay]
targets = ["127.0.0.1:50051"]
compress = "snappy"
encrypt = "aesgcm"
aes256_key_hex = "` + strings.Repeat("0f", 32) + `"

[relay.static_headers]
x-tenant = "local"
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"127.0.0.1:50051"}, cfg.Relay.Targets)
	assert.Equal(t, "local", cfg.Relay.StaticHeaders["x-tenant"])
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "manifest.toml")
	require.NoError(t, os.WriteFile(p, []byte("[server]\nlisten = \":9090\"\n"), 0o600))

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Listen)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
