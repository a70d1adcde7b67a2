package venv

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeActivate(t *testing.T, root string) string {
	t.Helper()

	bin := filepath.Join(root, "bin")
	require.NoError(t, os.MkdirAll(bin, 0o755))

	path := filepath.Join(bin, "activate")
	script := "export VIRTUAL_ENV=" + root + "\nexport PATH=\"$VIRTUAL_ENV/bin:$PATH\"\nunset PYTHONHOME\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o644))

	return path
}

func TestActivate(t *testing.T) {
	base := []string{"PATH=/usr/bin:/bin", "PYTHONHOME=/usr", "HOME=/home/cleaner"}

	t.Run("builds the scoped environment", func(t *testing.T) {
		root := t.TempDir()
		writeActivate(t, root)

		env, err := Activate(root, "bin/activate", base)
		require.NoError(t, err)

		assert.Equal(t, root, env.Root)
		assert.Equal(t, filepath.Join(root, "bin"), env.BinDir)

		environ := env.Environ()
		assert.Contains(t, environ, "VIRTUAL_ENV="+root)
		assert.Contains(t, environ, "PATH="+filepath.Join(root, "bin")+string(os.PathListSeparator)+"/usr/bin:/bin")
		assert.Contains(t, environ, "HOME=/home/cleaner")
		for _, kv := range environ {
			assert.False(t, strings.HasPrefix(kv, "PYTHONHOME="), "PYTHONHOME must be dropped, got %s", kv)
		}
	})

	t.Run("leaves the base environment alone", func(t *testing.T) {
		root := t.TempDir()
		writeActivate(t, root)

		before := append([]string(nil), base...)
		_, err := Activate(root, "bin/activate", base)
		require.NoError(t, err)

		assert.Equal(t, before, base)
	})

	t.Run("replaces a stale VIRTUAL_ENV", func(t *testing.T) {
		root := t.TempDir()
		writeActivate(t, root)

		env, err := Activate(root, "bin/activate", []string{"VIRTUAL_ENV=/somewhere/else", "PATH=/bin"})
		require.NoError(t, err)

		environ := env.Environ()
		assert.Contains(t, environ, "VIRTUAL_ENV="+root)
		assert.NotContains(t, environ, "VIRTUAL_ENV=/somewhere/else")
	})

	t.Run("synthesizes PATH when the base has none", func(t *testing.T) {
		root := t.TempDir()
		writeActivate(t, root)

		env, err := Activate(root, "bin/activate", []string{"HOME=/home/cleaner"})
		require.NoError(t, err)

		assert.Contains(t, env.Environ(), "PATH="+filepath.Join(root, "bin"))
	})

	t.Run("accepts an absolute activate path", func(t *testing.T) {
		root := t.TempDir()
		path := writeActivate(t, root)

		env, err := Activate("/nowhere", path, base)
		require.NoError(t, err)
		assert.Equal(t, root, env.Root)
	})

	t.Run("missing script", func(t *testing.T) {
		root := t.TempDir()

		_, err := Activate(root, "bin/activate", base)
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("script path is a directory", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, "bin", "activate"), 0o755))

		_, err := Activate(root, "bin/activate", base)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is a directory")
	})
}

func TestLookPath(t *testing.T) {
	writeExecutable := func(t *testing.T, dir, name string) string {
		t.Helper()
		require.NoError(t, os.MkdirAll(dir, 0o755))
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
		return path
	}

	t.Run("prefers the venv bin copy", func(t *testing.T) {
		root := t.TempDir()
		writeActivate(t, root)
		want := writeExecutable(t, filepath.Join(root, "bin"), "python3")

		env, err := Activate(root, "bin/activate", []string{"PATH=/usr/bin:/bin"})
		require.NoError(t, err)

		assert.Equal(t, want, env.LookPath("python3"))
	})

	t.Run("falls back to the inherited PATH", func(t *testing.T) {
		root := t.TempDir()
		writeActivate(t, root)

		system := t.TempDir()
		want := writeExecutable(t, system, "python3")
		t.Setenv("PATH", system)

		env, err := Activate(root, "bin/activate", []string{"PATH=" + system})
		require.NoError(t, err)

		assert.Equal(t, want, env.LookPath("python3"))
	})

	t.Run("keeps names that are already paths", func(t *testing.T) {
		root := t.TempDir()
		writeActivate(t, root)

		env, err := Activate(root, "bin/activate", nil)
		require.NoError(t, err)

		assert.Equal(t, "/opt/python/bin/python3", env.LookPath("/opt/python/bin/python3"))
	})

	t.Run("unresolvable names pass through", func(t *testing.T) {
		root := t.TempDir()
		writeActivate(t, root)
		t.Setenv("PATH", t.TempDir())

		env, err := Activate(root, "bin/activate", nil)
		require.NoError(t, err)

		assert.Equal(t, "no-such-interpreter", env.LookPath("no-such-interpreter"))
	})
}
