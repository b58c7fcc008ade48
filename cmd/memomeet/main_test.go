package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/memomeet/memomeet/adapters/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	body := `
auth:
  jwt_secret: cli-secret
billing:
  mode: dummy
  webhook_secret: whsec_cli
database:
  driver: sqlite
  dsn: ` + filepath.Join(dir, "cli.db") + `
logging:
  level: error
`
	path := filepath.Join(dir, "memomeet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "memomeet dev")
}

func TestValidate(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := run(t, "validate", "--config", cfg, "--check-database")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid.")
	assert.Contains(t, out, "Prices configured: 4")

	_, err = run(t, "validate", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestAccountsGrantDebitAndAudit(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := run(t, "accounts", "grant", "acc_cli", "10", "--note", "welcome pack", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "acc_cli now has 10")

	out, err = run(t, "accounts", "debit", "acc_cli", "3", "--note", "reconciliation", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "acc_cli now has 7")

	_, err = run(t, "accounts", "debit", "acc_cli", "100", "--note", "too much", "--config", cfg)
	assert.Error(t, err)

	_, err = run(t, "accounts", "grant", "acc_cli", "-1", "--note", "negative", "--config", cfg)
	assert.Error(t, err)

	out, err = run(t, "accounts", "get", "acc_cli", "--json", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, `"credits": 7`)

	out, err = run(t, "accounts", "list", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 1 accounts")

	out, err = run(t, "events", "list", "--account", "acc_cli", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "operator_adjustment"), out)
	assert.Contains(t, out, "welcome pack")
}

func TestTokenIssue(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := run(t, "token", "issue", "acc_cli", "--email", "dev@example.com", "--config", cfg)
	require.NoError(t, err)

	tokens := auth.NewTokenService("cli-secret", "memomeet", 0)
	claims, err := tokens.ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "acc_cli", claims.AccountID())
	assert.Equal(t, "dev@example.com", claims.Email)

	_, err = run(t, "token", "issue", "acc_cli", "--role", "admin", "--config", cfg)
	assert.Error(t, err)
}

func TestTokenSecret(t *testing.T) {
	out, err := run(t, "token", "secret")
	require.NoError(t, err)

	secret := strings.TrimSpace(out)
	assert.Len(t, secret, 64)

	again, err := run(t, "token", "secret")
	require.NoError(t, err)
	assert.NotEqual(t, secret, strings.TrimSpace(again))
}
