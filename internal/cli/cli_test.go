package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/staffdir/internal/server"
	"github.com/mesh-intelligence/staffdir/internal/sqlite"
	"github.com/mesh-intelligence/staffdir/pkg/types"
)

// env is an isolated config and data directory pair.
type env struct {
	configDir string
	dataDir   string
}

func newEnv(t *testing.T) env {
	t.Helper()
	for _, k := range []string{"BACKEND", "ENDPOINT", "LIST", "DATA_DIR", "CONFIG_DIR", "PAGE_SIZE", "TIMEOUT", "ENRICH_CONCURRENCY"} {
		t.Setenv("STAFFDIR_"+k, "")
	}
	t.Setenv("STAFFDIR_LOG_MODE", "prod")
	root := t.TempDir()
	return env{configDir: filepath.Join(root, "config"), dataDir: filepath.Join(root, "data")}
}

// exec runs staffdir with args and returns stdout, stderr and the exit code.
func (e env) exec(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	full := append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...)
	code := run(root, full, &stderr)
	return stdout.String(), stderr.String(), code
}

func (e env) mustExec(t *testing.T, args ...string) string {
	t.Helper()
	out, errOut, code := e.exec(t, args...)
	require.Equal(t, exitSuccess, code, "staffdir %v: %s", args, errOut)
	return out
}

func TestVersion(t *testing.T) {
	e := newEnv(t)
	out := e.mustExec(t, "version")
	assert.Contains(t, out, "staffdir v"+Version)

	out = e.mustExec(t, "--json", "version")
	var v map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, Version, v["version"])
}

func TestInit(t *testing.T) {
	e := newEnv(t)
	out := e.mustExec(t, "init")
	assert.Contains(t, out, "Wrote")
	assert.FileExists(t, filepath.Join(e.configDir, "config.yaml"))
	assert.FileExists(t, filepath.Join(e.dataDir, "staffdir.db"))
	assert.FileExists(t, filepath.Join(e.dataDir, "people.jsonl"))

	raw, err := os.ReadFile(filepath.Join(e.configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "backend: sqlite")
	assert.Contains(t, string(raw), "timeout: 15s")

	out = e.mustExec(t, "init")
	assert.Contains(t, out, "Kept existing")
}

func TestInitRejectsHTTPWithoutEndpoint(t *testing.T) {
	e := newEnv(t)
	_, errOut, code := e.exec(t, "init", "--backend", "http")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, "endpoint")
	assert.NoFileExists(t, filepath.Join(e.configDir, "config.yaml"))
}

func TestRecordLifecycle(t *testing.T) {
	e := newEnv(t)
	e.mustExec(t, "init")

	out := e.mustExec(t, "--json", "people", "add", "--name", "Ada Lovelace", "--key", "p1", "--email", "ada@example.test")
	var p types.Person
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "p1", p.Key)

	out = e.mustExec(t, "--json", "create", "--label", "Engineer", "--person", "p1")
	var rec types.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "Engineer", rec.Label)
	assert.Equal(t, "Ada Lovelace", rec.PersonDisplayName)

	out = e.mustExec(t, "--json", "list")
	var vm types.ViewModel
	require.NoError(t, json.Unmarshal([]byte(out), &vm))
	require.Len(t, vm.Records, 1)
	assert.Equal(t, rec.ID, vm.Records[0].ID)

	id := fmt.Sprint(rec.ID)
	out = e.mustExec(t, "update", id, "--label", "Senior Engineer")
	assert.Contains(t, out, "Senior Engineer")
	assert.Contains(t, out, "Ada Lovelace", "person kept when --person is not given")

	_, errOut, code := e.exec(t, "update", id, "--person", "p1", "--person", "p2")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, "at most one person may be referenced")

	out = e.mustExec(t, "update", id, "--clear-person")
	assert.NotContains(t, out, "Ada Lovelace")

	out = e.mustExec(t, "list")
	assert.Contains(t, out, "Senior Engineer")

	out = e.mustExec(t, "delete", id)
	assert.Contains(t, out, "Deleted record "+id)

	_, errOut, code = e.exec(t, "delete", id)
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, "not found")

	out = e.mustExec(t, "list")
	assert.Contains(t, out, "No records.")

	out = e.mustExec(t, "--json", "list")
	assert.Contains(t, out, `"records": []`)
}

func TestCreateValidation(t *testing.T) {
	e := newEnv(t)
	e.mustExec(t, "init")

	_, errOut, code := e.exec(t, "create", "--label", "   ")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, "label must not be empty")

	_, errOut, code = e.exec(t, "create", "--label", "x", "--person", "nobody")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, "referenced person does not exist")

	_, _, code = e.exec(t, "update", "abc")
	assert.Equal(t, exitUserError, code)
}

func TestPeopleSearch(t *testing.T) {
	e := newEnv(t)
	e.mustExec(t, "init")
	e.mustExec(t, "people", "add", "--name", "Ada Lovelace")
	e.mustExec(t, "people", "add", "--name", "Grace Hopper")

	out := e.mustExec(t, "--json", "people", "search", "HOP")
	var people []types.Person
	require.NoError(t, json.Unmarshal([]byte(out), &people))
	require.Len(t, people, 1)
	assert.Equal(t, "Grace Hopper", people[0].DisplayName)
}

func TestHTTPBackend(t *testing.T) {
	e := newEnv(t)

	store := sqlite.NewBackend(nil)
	require.NoError(t, store.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { store.Detach() })
	ada, err := store.AddPerson(t.Context(), types.Person{DisplayName: "Ada Lovelace"})
	require.NoError(t, err)
	_, err = store.Add(t.Context(), types.NewRecord{Label: "Remote", PersonRefs: []string{ada.Key}})
	require.NoError(t, err)

	srv := httptest.NewServer(server.New(store, nil, server.Options{}).Handler())
	t.Cleanup(srv.Close)

	t.Setenv("STAFFDIR_BACKEND", "http")
	t.Setenv("STAFFDIR_ENDPOINT", srv.URL+server.APIPrefix)

	out := e.mustExec(t, "--json", "list")
	var vm types.ViewModel
	require.NoError(t, json.Unmarshal([]byte(out), &vm))
	require.Len(t, vm.Records, 1)
	assert.Equal(t, "Ada Lovelace", vm.Records[0].PersonDisplayName)

	_, errOut, code := e.exec(t, "people", "add", "--name", "x")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, "needs the sqlite backend")
}

func TestHTTPBackendUnavailable(t *testing.T) {
	e := newEnv(t)
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	t.Setenv("STAFFDIR_BACKEND", "http")
	t.Setenv("STAFFDIR_ENDPOINT", url+"/api")
	_, _, code := e.exec(t, "list")
	assert.Equal(t, exitSysError, code)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitSuccess},
		{errors.New("bad flag"), exitUserError},
		{fmt.Errorf("x: %w", types.ErrNotFound), exitUserError},
		{fmt.Errorf("x: %w", types.ErrRemoteUnavailable), exitSysError},
		{sysErrorf("attach: %w", errors.New("disk")), exitSysError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), "%v", tt.err)
	}
}
