package venv

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
)

// Env describes an activated virtual environment, scoped to the child
// processes it is handed to. Activation never touches the environment of
// the running process, so there is nothing to restore afterwards.
type Env struct {
	Root   string // venv root, exported to the child as VIRTUAL_ENV
	BinDir string // directory prepended to the child's PATH

	environ []string
}

// Activate validates the activation script and builds the environment a
// child process would see after `source <activate>`: VIRTUAL_ENV set to the
// venv root, the venv bin directory first on PATH and PYTHONHOME dropped.
// The activate path is resolved against dir unless it is absolute. base is
// copied, never mutated.
func Activate(dir, activate string, base []string) (*Env, error) {
	path := activate
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, activate)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("activation script: %w", err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("activation script %s is a directory", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("activation script is not readable: %w", err)
	}
	f.Close()

	binDir := filepath.Dir(path)
	env := &Env{
		Root:   filepath.Dir(binDir),
		BinDir: binDir,
	}
	env.environ = merge(base, env.Root, binDir)

	return env, nil
}

// Environ returns the child process environment.
func (e *Env) Environ() []string {
	return slices.Clone(e.environ)
}

// LookPath resolves name the way a shell would after sourcing the activation
// script: an executable in the venv bin directory wins, then the ordinary
// PATH lookup. Names that already contain a path separator are returned
// unchanged. Resolution failures also return the name unchanged, leaving the
// eventual exec call to report its own error.
func (e *Env) LookPath(name string) string {
	if strings.ContainsRune(name, os.PathSeparator) {
		return name
	}

	candidate := filepath.Join(e.BinDir, name)
	if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() && fi.Mode()&0o111 != 0 {
		return candidate
	}

	if found, err := exec.LookPath(name); err == nil {
		return found
	}
	return name
}

func merge(base []string, root, binDir string) []string {
	environ := make([]string, 0, len(base)+2)
	pathSet := false

	for _, kv := range base {
		switch {
		case strings.HasPrefix(kv, "PYTHONHOME="):
			// bin/activate unsets PYTHONHOME
		case strings.HasPrefix(kv, "VIRTUAL_ENV="):
			// replaced below
		case strings.HasPrefix(kv, "PATH="):
			environ = append(environ, "PATH="+binDir+string(os.PathListSeparator)+strings.TrimPrefix(kv, "PATH="))
			pathSet = true
		default:
			environ = append(environ, kv)
		}
	}

	if !pathSet {
		environ = append(environ, "PATH="+binDir)
	}
	environ = append(environ, "VIRTUAL_ENV="+root)

	return environ
}
