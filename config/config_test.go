package config_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openweb3-io/liquidsigner/config"
	"github.com/openweb3-io/liquidsigner/types"
	"github.com/stretchr/testify/require"
)

const sample = `
network: regtest
remote:
  timeout: 10s
signers:
  - name: hot
    kind: software
    mnemonic: env:HOT_MNEMONIC
  - name: jade
    kind: remote
    url: ws://127.0.0.1:8999
    timeout: 2m
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, sample))
	require.NoError(t, err)
	require.Equal(t, types.Regtest, cfg.Network)
	require.Equal(t, 10*time.Second, cfg.Remote.Timeout)
	require.Len(t, cfg.Signers, 2)

	hot, ok := cfg.Signer("hot")
	require.True(t, ok)
	require.Equal(t, config.KindSoftware, hot.Kind)
	require.Equal(t, config.Secret("env:HOT_MNEMONIC"), hot.Mnemonic)
	require.Equal(t, 10*time.Second, cfg.RemoteTimeout(hot))

	jade, ok := cfg.Signer("jade")
	require.True(t, ok)
	require.Equal(t, "ws://127.0.0.1:8999", jade.URL)
	require.Equal(t, 2*time.Minute, cfg.RemoteTimeout(jade))

	_, ok = cfg.Signer("cold")
	require.False(t, ok)
}

func TestLoadDefaultsAndEnv(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, types.Testnet, cfg.Network)
	require.Equal(t, 30*time.Second, cfg.Remote.Timeout)
	require.Empty(t, cfg.Signers)

	t.Setenv("LIQUIDSIGNER_NETWORK", "mainnet")
	cfg, err = config.Load(writeConfig(t, sample))
	require.NoError(t, err)
	require.Equal(t, types.Mainnet, cfg.Network)
}

func TestValidate(t *testing.T) {
	vectors := []struct {
		content string
		err     string
	}{
		{"network: liquid", "invalid network: liquid"},
		{"signers:\n  - kind: software\n    mnemonic: x", "name required"},
		{"signers:\n  - name: a\n    kind: software", "mnemonic required"},
		{"signers:\n  - name: a\n    kind: remote", "url required"},
		{"signers:\n  - name: a\n    url: ws://x", "kind required"},
		{"signers:\n  - name: a\n    kind: remote\n    url: ws://x\n  - name: a\n    kind: remote\n    url: ws://y", "duplicate name"},
	}
	for _, v := range vectors {
		_, err := config.Load(writeConfig(t, v.content))
		require.ErrorContains(t, err, v.err, v.content)
	}

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadOtherKind(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "signers:\n  - name: vault\n    kind: hsm\n    url: tcp://10.0.0.5:1500"))
	require.NoError(t, err)
	hsm, ok := cfg.Signer("vault")
	require.True(t, ok)
	require.Equal(t, "hsm", hsm.Kind)
	require.Equal(t, "tcp://10.0.0.5:1500", hsm.URL)
}

func TestSecretLoad(t *testing.T) {
	ctx := context.Background()

	v, err := config.Secret("plain words").Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "plain words", v)

	t.Setenv("TEST_SECRET", " from env\n")
	v, err = config.Secret("env:TEST_SECRET").Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "from env", v)

	_, err = config.Secret("env:TEST_SECRET_MISSING").Load(ctx)
	require.ErrorContains(t, err, "TEST_SECRET_MISSING not set")

	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte("from file\n"), 0o600))
	v, err = config.Secret("file:" + path).Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "from file", v)

	_, err = config.Secret("vault:secret/data/liquid").Load(ctx)
	require.ErrorContains(t, err, "needs a #field")
}

func TestSecretVault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/secret/data/liquid" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		require.Equal(t, "test-token", r.Header.Get("X-Vault-Token"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"data": map[string]any{"mnemonic": "from vault"},
			},
		})
	}))
	defer server.Close()
	t.Setenv("VAULT_ADDR", server.URL)
	t.Setenv("VAULT_TOKEN", "test-token")

	v, err := config.Secret("vault:secret/data/liquid#mnemonic").Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "from vault", v)

	_, err = config.Secret("vault:secret/data/liquid#passphrase").Load(context.Background())
	require.ErrorContains(t, err, "field passphrase missing")
}

func TestSecretRedacted(t *testing.T) {
	require.Equal(t, "env:X", config.Secret("env:X").Redacted())
	require.Equal(t, "<redacted>", config.Secret("abandon abandon").Redacted())
	require.Equal(t, "", config.Secret("").Redacted())
}
