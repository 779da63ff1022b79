package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learningfun/internal/service"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func setTestEnv(t *testing.T) {
	t.Setenv("LEARNINGFUN_PUBLIC_URL", "http://localhost:8080")
	t.Setenv("LEARNINGFUN_API_KEY", "test-key")
	t.Setenv("MIGRATIONS_PATH", "../../../migrations")
	t.Setenv("LLM_PROVIDER", "")
}

func TestPreviewPrintsBankItems(t *testing.T) {
	out, err := execute(t, "preview", "--subject", "math", "--type", "addition", "--grade", "1", "--answers")
	require.NoError(t, err)

	assert.Contains(t, out, "math: Addition (grade 1")
	assert.Contains(t, out, "answer:")
}

func TestPreviewRejectsUnknownExercise(t *testing.T) {
	_, err := execute(t, "preview", "--subject", "math", "--type", "calculus")
	assert.ErrorContains(t, err, "unknown exercise")
}

func TestPreviewGenerateFallsBackToTemplates(t *testing.T) {
	setTestEnv(t)

	out, err := execute(t, "preview", "generate", "--topic", "fractions", "--count", "2", "--json")
	require.NoError(t, err)

	var result struct {
		Source    string            `json:"source"`
		Questions []json.RawMessage `json:"questions"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Len(t, result.Questions, 2)
	assert.NotEmpty(t, result.Source)
}

func TestMigrateAndBackupRoundTrip(t *testing.T) {
	setTestEnv(t)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "admin.db")

	out, err := execute(t, "migrate", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "applied")

	out, err = execute(t, "migrate", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Schema is up to date.")

	backupPath := filepath.Join(dir, "out", "backup.json")
	_, err = execute(t, "backup", "export", "--db", dbPath, "--output", backupPath)
	require.NoError(t, err)

	raw, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	var backup service.BackupData
	require.NoError(t, json.Unmarshal(raw, &backup))
	assert.NotEmpty(t, backup.Version)

	out, err = execute(t, "backup", "import", "--db", dbPath, "--input", backupPath, "--clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 0 users")
}
