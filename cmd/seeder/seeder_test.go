package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs one seeder invocation against the sqlite file in dir.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{}
	defer a.close()

	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "phonathon.db"))
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("AMQP_URL", "")
	t.Setenv("ADMIN_PASSWORD", "")
	return dir
}

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMigrateAndInitialData(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Database migrated (sqlite).")

	_, err = execute(t, "initial-data")
	require.Error(t, err, "admin password is required")

	out, err = execute(t, "initial-data", "--admin-password", "adminpass")
	require.NoError(t, err)
	assert.Contains(t, out, "Groups added: 3")
	assert.Contains(t, out, "Result codes added: 13")
	assert.Contains(t, out, "Admin created: true")

	out, err = execute(t, "initial-data", "--admin-password", "adminpass")
	require.NoError(t, err)
	assert.Contains(t, out, "Groups added: 0")
	assert.Contains(t, out, "Admin created: false")
}

func TestSuperuser(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "superuser", "--username", "root", "--password", "s3cret")
	require.NoError(t, err)
	assert.Contains(t, out, `Superuser "root" created.`)

	out, err = execute(t, "superuser", "--username", "root", "--password", "other", "--reset-password")
	require.NoError(t, err)
	assert.Contains(t, out, `Superuser "root" updated.`)

	_, err = execute(t, "superuser", "--username", "root")
	assert.Error(t, err)
}

func TestUploadCommands(t *testing.T) {
	dir := setupEnv(t)

	projects := writeCSV(t, dir, "projects.csv", "name\nSpring\n")
	out, err := execute(t, "upload", "--model", "Project", projects)
	require.NoError(t, err)
	assert.Contains(t, out, "Project: 1 created, 0 updated, 0 skipped")

	prospects := writeCSV(t, dir, "prospects.csv",
		"nric,name,education_school,education_degree,education_year\n"+
			"S1234567A,Anna Low,Engineering,BEng,2010\n"+
			"S7654321B,,Science,BSc,2012\n")
	out, err = execute(t, "upload-pool", "--project", "Spring", "--pool", "P1", prospects)
	require.NoError(t, err)
	assert.Contains(t, out, "Pool: 1 created, 0 updated, 1 skipped")
	assert.Contains(t, out, "line 3 (validation)")
	assert.Contains(t, out, `Pool "P1": 1 added, 1 prospects`)

	_, err = execute(t, "upload", "--model", "Spaceship", projects)
	assert.Error(t, err)

	_, err = execute(t, "upload", "--model", "Project", filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}
