package ai

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("OPENAI_API_KEY: sk-test\n"), 0o600))

	secrets, err := LoadSecrets(path)
	require.NoError(t, err)
	v, ok := secrets.Lookup("OPENAI_API_KEY")
	require.True(t, ok)
	require.Equal(t, "sk-test", v)
}

func TestLoadSecretsMissingFile(t *testing.T) {
	secrets, err := LoadSecrets(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Empty(t, secrets)
}

func TestSecretsLookupFallsBackToEnv(t *testing.T) {
	t.Setenv("IMBOT_TEST_SECRET", "from-env")
	v, ok := Secrets{}.Lookup("IMBOT_TEST_SECRET")
	require.True(t, ok)
	require.Equal(t, "from-env", v)
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("IMBOT_TEST_ENV_KEY", "env-value")
	t.Setenv("IMBOT_TEST_UNSET", "")
	secrets := Secrets{"STORED": "stored-value"}

	v, err := resolveAPIKey("env:IMBOT_TEST_ENV_KEY", secrets)
	require.NoError(t, err)
	require.Equal(t, "env-value", v)

	v, err = resolveAPIKey("secret:STORED", secrets)
	require.NoError(t, err)
	require.Equal(t, "stored-value", v)

	v, err = resolveAPIKey("sk-literal", secrets)
	require.NoError(t, err)
	require.Equal(t, "sk-literal", v)

	_, err = resolveAPIKey("secret:IMBOT_TEST_UNSET", secrets)
	require.ErrorIs(t, err, ErrMissingSecret)
}
