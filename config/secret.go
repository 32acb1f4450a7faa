package config

import (
	"context"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	vault "github.com/hashicorp/vault/api"
	"github.com/pkg/errors"
)

// Secret is a value, or a reference to where the value is kept:
//
//	env:NAME                          environment variable
//	file:/path                        file content
//	vault:secret/data/path#field      hashicorp vault, client configured from VAULT_* variables
//	gsm:projects/p/secrets/s/versions/latest  google secret manager
//
// Anything else is taken literally.
type Secret string

const (
	SecretEnv   = "env:"
	SecretFile  = "file:"
	SecretVault = "vault:"
	SecretGsm   = "gsm:"
)

var NewVaultClient = func() (*vault.Client, error) {
	return vault.NewClient(vault.DefaultConfig())
}

func (s Secret) Load(ctx context.Context) (string, error) {
	value := string(s)
	switch {
	case strings.HasPrefix(value, SecretEnv):
		name := strings.TrimPrefix(value, SecretEnv)
		v, ok := os.LookupEnv(name)
		if !ok {
			return "", errors.Errorf("secret: environment variable %s not set", name)
		}
		return strings.TrimSpace(v), nil

	case strings.HasPrefix(value, SecretFile):
		bz, err := os.ReadFile(strings.TrimPrefix(value, SecretFile))
		if err != nil {
			return "", errors.Wrap(err, "secret")
		}
		return strings.TrimSpace(string(bz)), nil

	case strings.HasPrefix(value, SecretVault):
		return loadVault(ctx, strings.TrimPrefix(value, SecretVault))

	case strings.HasPrefix(value, SecretGsm):
		return loadGsm(ctx, strings.TrimPrefix(value, SecretGsm))
	}
	return value, nil
}

// Redacted is safe to log.
func (s Secret) Redacted() string {
	value := string(s)
	for _, prefix := range []string{SecretEnv, SecretFile, SecretVault, SecretGsm} {
		if strings.HasPrefix(value, prefix) {
			return value
		}
	}
	if value == "" {
		return ""
	}
	return "<redacted>"
}

func loadVault(ctx context.Context, ref string) (string, error) {
	path, field, ok := strings.Cut(ref, "#")
	if !ok || field == "" {
		return "", errors.Errorf("secret: vault reference %q needs a #field", ref)
	}
	client, err := NewVaultClient()
	if err != nil {
		return "", errors.Wrap(err, "vault client")
	}
	secret, err := client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return "", errors.Wrapf(err, "vault read %s", path)
	}
	if secret == nil || secret.Data == nil {
		return "", errors.Errorf("secret: nothing at vault path %s", path)
	}
	data := secret.Data
	// kv v2 nests the payload
	if inner, ok := data["data"].(map[string]interface{}); ok {
		data = inner
	}
	v, ok := data[field].(string)
	if !ok {
		return "", errors.Errorf("secret: field %s missing at vault path %s", field, path)
	}
	return strings.TrimSpace(v), nil
}

func loadGsm(ctx context.Context, name string) (string, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return "", errors.Wrap(err, "secret manager client")
	}
	defer client.Close()

	resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", errors.Wrapf(err, "access secret %s", name)
	}
	return strings.TrimSpace(string(resp.GetPayload().GetData())), nil
}
