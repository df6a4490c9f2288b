package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildErrorFormatting(t *testing.T) {
	err := New(CategoryConfig, SeverityFatal, "book configuration is required")
	require.Equal(t, "config (fatal): book configuration is required", err.Error())

	wrapped := Wrap(stderrors.New("boom"), CategoryRender, SeverityError, "renderer failed")
	require.Contains(t, wrapped.Error(), "boom")
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(cause, CategoryFileSystem, SeverityFatal, "write artifact")
	require.ErrorIs(t, err, cause)
}

func TestCategoryPredicates(t *testing.T) {
	err := ExecutionError(stderrors.New("boom"), "intro.md", "html")
	require.True(t, IsCategory(err, CategoryExecution))
	require.False(t, IsCategory(err, CategoryMerge))
	require.Equal(t, CategoryExecution, GetCategory(err))

	// works through wrapping layers
	require.True(t, IsCategory(fmt.Errorf("outer: %w", err), CategoryExecution))

	require.Equal(t, CategoryInternal, GetCategory(stderrors.New("plain")))
	require.False(t, IsCategory(nil, CategoryExecution))
}

func TestConstructorContext(t *testing.T) {
	err := ExecutionError(stderrors.New("boom"), "intro.md", "html")
	require.Equal(t, "intro.md", err.Context["document"])
	require.Equal(t, "html", err.Context["format"])

	inv := MergeInvariantError("apx-a.md", "single-html")
	require.Equal(t, CategoryMerge, inv.Category)
	require.Equal(t, SeverityFatal, inv.Severity)
	require.Equal(t, "apx-a.md", inv.Context["document"])
}
