package cleanup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bookbinder/internal/engine"
)

func resultWithDir(t *testing.T, keep bool) *engine.ExecutionResult {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "work")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	return &engine.ExecutionResult{
		Document:          engine.Document{Path: "intro.md"},
		IntermediateDir:   dir,
		KeepIntermediates: keep,
	}
}

func TestAfterSuccessRemovesIntermediates(t *testing.T) {
	res := resultWithDir(t, false)
	NewCoordinator().AfterSuccess([]*engine.ExecutionResult{res})
	require.NoDirExists(t, res.IntermediateDir)
}

func TestAfterFailureRemovesIntermediates(t *testing.T) {
	res := resultWithDir(t, false)
	NewCoordinator().AfterFailure([]*engine.ExecutionResult{res})
	require.NoDirExists(t, res.IntermediateDir)
}

func TestKeepIntermediatesRetains(t *testing.T) {
	res := resultWithDir(t, true)
	NewCoordinator().AfterSuccess([]*engine.ExecutionResult{res})
	require.DirExists(t, res.IntermediateDir)
}

func TestReclaimTolerantOfEmptyInput(t *testing.T) {
	c := NewCoordinator()
	c.AfterSuccess(nil)
	c.AfterSuccess([]*engine.ExecutionResult{nil, {Document: engine.Document{Path: "x.md"}}})
}
