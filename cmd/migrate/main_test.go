package main

import (
	"bytes"
	"errors"
	"testing"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	calls   []string
	upErr   error
	forced  int
	version uint
	closed  bool
}

func (f *fakeMigrator) Up() error {
	f.calls = append(f.calls, "up")
	return f.upErr
}

func (f *fakeMigrator) Down() error {
	f.calls = append(f.calls, "down")
	return nil
}

func (f *fakeMigrator) Force(v int) error {
	f.calls = append(f.calls, "force")
	f.forced = v
	f.version = uint(v)
	return nil
}

func (f *fakeMigrator) Version() (uint, bool, error) {
	if f.version == 0 {
		return 0, false, migrate.ErrNilVersion
	}
	return f.version, false, nil
}

func opener(m *fakeMigrator) openFunc {
	return func() (migrator, func(), error) {
		return m, func() { m.closed = true }, nil
	}
}

func execute(t *testing.T, open openFunc, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(open, zerolog.Nop())
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCommands(t *testing.T) {
	m := &fakeMigrator{upErr: migrate.ErrNoChange}
	require.NoError(t, run(m, "up", ""))
	require.NoError(t, run(m, "down", ""))
	require.NoError(t, run(m, "force", "1"))
	require.NoError(t, run(m, "version", ""))
	require.Equal(t, []string{"up", "down", "force"}, m.calls)
	require.Equal(t, 1, m.forced)
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	require.EqualError(t, run(&fakeMigrator{}, "sideways", ""), usage)
	require.Error(t, run(&fakeMigrator{}, "force", "x"))
}

func TestRootDefaultsToUp(t *testing.T) {
	m := &fakeMigrator{}
	out, err := execute(t, opener(m))
	require.NoError(t, err)
	require.Equal(t, []string{"up"}, m.calls)
	require.Equal(t, "version=0 dirty=false\n", out)
	require.True(t, m.closed)
}

func TestForceSubcommand(t *testing.T) {
	m := &fakeMigrator{}
	out, err := execute(t, opener(m), "force", "3")
	require.NoError(t, err)
	require.Equal(t, 3, m.forced)
	require.Contains(t, out, "version=3")

	_, err = execute(t, opener(&fakeMigrator{}), "force")
	require.Error(t, err)
}

func TestOpenErrorSurfaces(t *testing.T) {
	failing := func() (migrator, func(), error) { return nil, nil, errors.New("DATABASE_URL is not set") }
	_, err := execute(t, failing, "down")
	require.EqualError(t, err, "DATABASE_URL is not set")
}

func TestFilesListsEmbeddedMigrations(t *testing.T) {
	called := false
	open := func() (migrator, func(), error) {
		called = true
		return nil, nil, errors.New("unexpected")
	}
	out, err := execute(t, open, "files")
	require.NoError(t, err)
	require.False(t, called)
	require.Contains(t, out, "000001_catalog.up.sql")
}
