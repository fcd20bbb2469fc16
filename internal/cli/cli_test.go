package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/fumetti/internal/kv"
	"github.com/mesh-intelligence/fumetti/internal/sqlite"
	"github.com/mesh-intelligence/fumetti/pkg/types"
)

// testEnv holds isolated config and data directories for one test.
type testEnv struct {
	t         *testing.T
	ConfigDir string
	DataDir   string
}

type result struct {
	Stdout string
	Stderr string
	Code   int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	return &testEnv{
		t:         t,
		ConfigDir: filepath.Join(root, "config"),
		DataDir:   filepath.Join(root, "data"),
	}
}

func (e *testEnv) run(args ...string) result {
	e.t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--config-dir", e.ConfigDir, "--data-dir", e.DataDir}, args...)
	code := run(context.Background(), full, &stdout, &stderr)
	return result{Stdout: stdout.String(), Stderr: stderr.String(), Code: code}
}

func (e *testEnv) mustRun(args ...string) result {
	e.t.Helper()
	r := e.run(args...)
	require.Equal(e.t, exitSuccess, r.Code, "fumetti %v\nstdout: %s\nstderr: %s", args, r.Stdout, r.Stderr)
	return r
}

func parseJSON[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), "output: %s", s)
	return v
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	r := env.mustRun("version")
	assert.Contains(t, r.Stdout, "fumetti v"+Version)
	assert.NoDirExists(t, env.ConfigDir, "version does not touch the config directory")
}

func TestInit(t *testing.T) {
	env := newTestEnv(t)
	r := env.mustRun("init")
	assert.Contains(t, r.Stdout, "Fumetti initialized")

	data, err := os.ReadFile(filepath.Join(env.ConfigDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "data_dir: "+env.DataDir)
	assert.Contains(t, string(data), "store: bolt")

	assert.FileExists(t, filepath.Join(env.DataDir, "fumetti.bolt"))

	// Idempotent.
	env.mustRun("init")
}

func TestAddListShow(t *testing.T) {
	env := newTestEnv(t)

	tex := parseJSON[types.Collection](t, env.mustRun("--json", "add", "--collana", "Bonelli", "--nome", "Tex", "--numeri", "4").Stdout)
	assert.Equal(t, []bool{false, false, false, false}, tex.Owned)
	env.mustRun("add", "--collana", "Astorina", "--nome", "Diabolik", "--numeri", "2")

	env.mustRun("own", idArg(tex.ID), "1", "3")

	rows := parseJSON[[]listRow](t, env.mustRun("list", "--json").Stdout)
	require.Len(t, rows, 2)
	assert.Equal(t, "Astorina", rows[0].Collana, "alphabetical by default")
	assert.Equal(t, "Bonelli", rows[1].Collana)
	assert.Equal(t, types.CollectionStats{Total: 4, Owned: 2, Missing: 2, Percentage: 50}, rows[1].Stats)

	table := env.mustRun("list", "--search", "TEX").Stdout
	assert.Contains(t, table, "Tex")
	assert.NotContains(t, table, "Diabolik")
	assert.Contains(t, table, "2/4")

	show := env.mustRun("show", idArg(tex.ID)).Stdout
	assert.Contains(t, show, "Collezione Fumetti")
	assert.Contains(t, show, "Numeri posseduti: 2")
	assert.Contains(t, show, "Completamento: 50%")
	assert.Contains(t, show, "Stampato il ")
}

func TestListEmpty(t *testing.T) {
	env := newTestEnv(t)
	r := env.mustRun("list")
	assert.Contains(t, r.Stdout, "No collections yet")

	rows := parseJSON[[]listRow](t, env.mustRun("list", "--json").Stdout)
	assert.Empty(t, rows)
}

func TestOwnVariants(t *testing.T) {
	env := newTestEnv(t)
	c := parseJSON[types.Collection](t, env.mustRun("--json", "add", "--collana", "A", "--nome", "B", "--numeri", "3").Stdout)
	id := idArg(c.ID)

	owned := func(args ...string) []bool {
		t.Helper()
		row := parseJSON[listRow](t, env.mustRun(append([]string{"--json", "own", id}, args...)...).Stdout)
		return row.Owned
	}

	assert.Equal(t, []bool{true, true, true}, owned("--all"))
	assert.Equal(t, []bool{true, false, true}, owned("2", "--unset"))
	assert.Equal(t, []bool{false, true, true}, owned("1", "2", "--toggle"))
	assert.Equal(t, []bool{false, false, false}, owned("--all", "--unset"))

	assert.Equal(t, exitUserError, env.run("own", id, "4").Code)
	assert.Equal(t, exitUserError, env.run("own", id).Code)
	assert.Equal(t, exitUserError, env.run("own", id, "1", "--unset", "--toggle").Code)
	assert.Equal(t, exitUserError, env.run("own", "99", "1").Code)
}

func TestEditShrinkNeedsYes(t *testing.T) {
	env := newTestEnv(t)
	c := parseJSON[types.Collection](t, env.mustRun("--json", "add", "--collana", "Bonelli", "--nome", "Tex", "--numeri", "5").Stdout)
	id := idArg(c.ID)
	env.mustRun("own", id, "--all")

	r := env.run("edit", id, "--numeri", "3")
	assert.Equal(t, exitUserError, r.Code)
	assert.Contains(t, r.Stderr, "--yes")

	got := parseJSON[listRow](t, env.mustRun("--json", "show", id).Stdout)
	assert.Equal(t, 5, got.Numeri)

	got = parseJSON[listRow](t, env.mustRun("--json", "edit", id, "--numeri", "3", "--yes").Stdout)
	assert.Equal(t, []bool{true, true, true}, got.Owned)

	got = parseJSON[listRow](t, env.mustRun("--json", "edit", id, "--numeri", "4", "--nome", "Tex Willer").Stdout)
	assert.Equal(t, "Tex Willer", got.NomeFumetto)
	assert.Equal(t, "Bonelli", got.Collana)
	assert.Equal(t, []bool{true, true, true, false}, got.Owned)
}

func TestEditCover(t *testing.T) {
	env := newTestEnv(t)
	c := parseJSON[types.Collection](t, env.mustRun("--json", "add", "--collana", "A", "--nome", "B", "--numeri", "1").Stdout)
	id := idArg(c.ID)

	coverPath := filepath.Join(t.TempDir(), "cover.gif")
	require.NoError(t, os.WriteFile(coverPath, []byte("GIF89a\x01\x00\x01\x00"), 0o644))

	got := parseJSON[listRow](t, env.mustRun("--json", "edit", id, "--cover", coverPath).Stdout)
	assert.Contains(t, got.Copertina, "data:image/gif;base64,")
	assert.Contains(t, env.mustRun("show", id).Stdout, "Copertina: image/gif")

	got = parseJSON[listRow](t, env.mustRun("--json", "edit", id, "--no-cover").Stdout)
	assert.Empty(t, got.Copertina)

	textPath := filepath.Join(t.TempDir(), "notes.png")
	require.NoError(t, os.WriteFile(textPath, []byte("not an image"), 0o644))
	assert.Equal(t, exitUserError, env.run("edit", id, "--cover", textPath).Code)
}

func TestBackupRestore(t *testing.T) {
	env := newTestEnv(t)
	c := parseJSON[types.Collection](t, env.mustRun("--json", "add", "--collana", "Bonelli", "--nome", "Tex", "--numeri", "3").Stdout)
	env.mustRun("own", idArg(c.ID), "2")
	env.mustRun("add", "--collana", "Bonelli", "--nome", "Zagor", "--numeri", "2")

	backupPath := filepath.Join(t.TempDir(), "backup.json")
	r := env.mustRun("backup", "--out", backupPath)
	assert.Contains(t, r.Stdout, "Backed up 2 collections")

	env.mustRun("add", "--collana", "Panini", "--nome", "Topolino", "--numeri", "10")

	r = env.run("restore", backupPath)
	assert.Equal(t, exitUserError, r.Code)
	assert.Contains(t, r.Stderr, "--yes")
	assert.Len(t, parseJSON[[]listRow](t, env.mustRun("list", "--json").Stdout), 3)

	env.mustRun("restore", backupPath, "--yes")

	rows := parseJSON[[]listRow](t, env.mustRun("list", "--json", "--sort", "recent").Stdout)
	require.Len(t, rows, 2)
	assert.Equal(t, "Tex", rows[0].NomeFumetto)
	assert.Equal(t, []bool{false, true, false}, rows[0].Owned)
	assert.Equal(t, "Zagor", rows[1].NomeFumetto)
}

func TestBackupToStdout(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("add", "--collana", "A", "--nome", "B", "--numeri", "1")

	doc, err := types.DecodeBackup(bytes.NewReader([]byte(env.mustRun("backup", "--out", "-").Stdout)))
	require.NoError(t, err)
	assert.Equal(t, types.BackupVersion, doc.Version)
	assert.Len(t, doc.Collections, 1)
}

func TestRestoreRejectsBadFiles(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("add", "--collana", "A", "--nome", "B", "--numeri", "1")
	dir := t.TempDir()

	txt := filepath.Join(dir, "backup.txt")
	require.NoError(t, os.WriteFile(txt, []byte(`{}`), 0o644))
	r := env.run("restore", txt, "--yes")
	assert.Equal(t, exitUserError, r.Code)
	assert.Contains(t, r.Stderr, ".json")

	badVersion := filepath.Join(dir, "old.json")
	require.NoError(t, os.WriteFile(badVersion, []byte(`{"version":"0.9","collections":[{"collana":"X","nomeFumetto":"Y","numeri":1,"owned":[true]}]}`), 0o644))
	assert.Equal(t, exitUserError, env.run("restore", badVersion, "--yes").Code)

	missingOwned := filepath.Join(dir, "missing.json")
	require.NoError(t, os.WriteFile(missingOwned, []byte(`{"version":"1.0","collections":[{"collana":"X","nomeFumetto":"Y","numeri":1}]}`), 0o644))
	r = env.run("restore", missingOwned, "--yes")
	assert.Equal(t, exitUserError, r.Code)
	assert.Contains(t, r.Stderr, "missing field 'owned'")

	rows := parseJSON[[]listRow](t, env.mustRun("list", "--json").Stdout)
	require.Len(t, rows, 1)
	assert.Equal(t, "B", rows[0].NomeFumetto)
}

func TestUserErrors(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("add", "--collana", "A", "--nome", "B", "--numeri", "1")

	tests := []struct {
		name string
		args []string
	}{
		{"missing numeri", []string{"add", "--collana", "A", "--nome", "C"}},
		{"blank collana", []string{"add", "--collana", " ", "--nome", "C", "--numeri", "1"}},
		{"duplicate", []string{"add", "--collana", "A", "--nome", "B", "--numeri", "5"}},
		{"unknown flag", []string{"list", "--colour"}},
		{"bad id", []string{"show", "abc"}},
		{"not found", []string{"show", "42"}},
		{"bad sort", []string{"list", "--sort", "price"}},
		{"bad log level", []string{"--log-level", "loud", "list"}},
		{"extra args", []string{"list", "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := env.run(tt.args...)
			assert.Equal(t, exitUserError, r.Code, "stderr: %s", r.Stderr)
			assert.Contains(t, r.Stderr, "fumetti:")
		})
	}
}

// damageStoredRow rewrites the stored database so that collection id has an
// unreadable bitmap.
func damageStoredRow(t *testing.T, env *testEnv, id int) {
	t.Helper()
	store, err := kv.OpenFile(filepath.Join(env.DataDir, "kv"))
	require.NoError(t, err)
	defer store.Close()

	text, ok, err := store.Get(types.DefaultStorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	image, err := sqlite.DecodeImage(text)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "catalog.db")
	require.NoError(t, os.WriteFile(path, image, 0o644))
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec("UPDATE collections SET owned = 'nope' WHERE id = ?", id)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	image, err = os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(types.DefaultStorageKey, sqlite.EncodeImage(image)))
}

func TestCorruptRowIsUserError(t *testing.T) {
	t.Setenv("FUMETTI_STORE", "file")
	env := newTestEnv(t)
	env.mustRun("add", "--collana", "A", "--nome", "Good", "--numeri", "1")
	env.mustRun("add", "--collana", "A", "--nome", "Bad", "--numeri", "2")
	damageStoredRow(t, env, 2)

	r := env.mustRun("list", "--json")
	assert.Contains(t, r.Stdout, "Good")
	assert.NotContains(t, r.Stdout, "Bad")

	for _, args := range [][]string{{"show", "2"}, {"own", "2", "1"}} {
		r = env.run(args...)
		assert.Equal(t, exitUserError, r.Code, "fumetti %v\nstderr: %s", args, r.Stderr)
		assert.Contains(t, r.Stderr, "restore a backup")
	}
}

func TestInvalidStoreInConfig(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.MkdirAll(env.ConfigDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(env.ConfigDir, "config.yaml"), []byte("store: redis\n"), 0o644))

	r := env.run("list")
	assert.Equal(t, exitUserError, r.Code)
	assert.Contains(t, r.Stderr, "unknown store")
}

func TestFileStoreFromEnvironment(t *testing.T) {
	t.Setenv("FUMETTI_STORE", "file")
	env := newTestEnv(t)
	env.mustRun("add", "--collana", "A", "--nome", "B", "--numeri", "1")

	assert.FileExists(t, filepath.Join(env.DataDir, "kv", types.DefaultStorageKey))
	assert.NoFileExists(t, filepath.Join(env.DataDir, "fumetti.bolt"))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitSuccess},
		{types.ErrValidation, exitUserError},
		{types.ErrConfirmationRequired, exitUserError},
		{types.ErrStoreUnknown, exitUserError},
		{errUsage, exitUserError},
		{types.ErrCorruptRow, exitUserError},
		{fmt.Errorf("%w: collection 3: owned is not a boolean array", types.ErrCorruptRow), exitUserError},
		{types.ErrPersistence, exitSysError},
		{errors.New("disk on fire"), exitSysError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), "error %v", tt.err)
	}
}

func TestFormatPrintDate(t *testing.T) {
	got := formatPrintDate(time.Date(2025, time.March, 14, 9, 26, 0, 0, time.UTC))
	assert.Equal(t, "14 marzo 2025 alle ore 09:26", got)
}

func TestWritePrintViewGrid(t *testing.T) {
	owned := make([]bool, 12)
	owned[0], owned[11] = true, true
	c := types.Collection{ID: 1, Collana: "Bonelli", NomeFumetto: "Tex", Numeri: 12, Owned: owned}

	var buf bytes.Buffer
	writePrintView(&buf, c, time.Date(2025, time.December, 1, 18, 5, 0, 0, time.UTC))
	out := buf.String()

	assert.Contains(t, out, " 1 ●   2 ○")
	assert.Contains(t, out, "11 ○  12 ●")
	assert.Contains(t, out, "Numeri mancanti: 10")
	assert.Contains(t, out, "Stampato il 1 dicembre 2025 alle ore 18:05")
	assert.NotContains(t, out, "Copertina:")
}

func idArg(id int64) string {
	return strconv.FormatInt(id, 10)
}
