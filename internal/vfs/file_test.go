package vfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootRejectsEmpty(t *testing.T) {
	_, err := NewRoot("  ")
	require.Error(t, err)
}

func TestRelativeAndDisplayName(t *testing.T) {
	root, err := NewRoot(t.TempDir())
	require.NoError(t, err)

	child, err := root.Relative("a.c")
	require.NoError(t, err)

	assert.Equal(t, "a.c", child.Basename())
	assert.Equal(t, root.DisplayName()+"/a.c", child.DisplayName())
	assert.Equal(t, filepath.Join(root.Path(), "a.c"), child.Path())
}

func TestRelativeRejectsTraversal(t *testing.T) {
	root, err := NewRoot(t.TempDir())
	require.NoError(t, err)

	for _, bad := range []string{"", "..", ".", "a/b", `a\b`, "a/.."} {
		_, err := root.Relative(bad)
		assert.Error(t, err, "basename %q", bad)
	}
}

func TestParent(t *testing.T) {
	root, err := NewRoot(t.TempDir())
	require.NoError(t, err)

	sub, err := root.Relative("sub")
	require.NoError(t, err)
	child, err := sub.Relative("a.c")
	require.NoError(t, err)

	parent := child.Parent()
	assert.Equal(t, sub.Path(), parent.Path())
	assert.Equal(t, sub.DisplayName(), parent.DisplayName())
}

func TestCloneIsIndependent(t *testing.T) {
	root, err := NewRoot(t.TempDir())
	require.NoError(t, err)

	clone := root.Clone()
	assert.Equal(t, root.Path(), clone.Path())
	assert.Equal(t, root.DisplayName(), clone.DisplayName())
	assert.NotSame(t, root, clone)
}

func TestListSortedChildren(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.c"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.c"), []byte("a"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	root, err := NewRoot(dir)
	require.NoError(t, err)
	require.True(t, root.IsDirectory())

	children, err := root.List()
	require.NoError(t, err)
	require.Len(t, children, 3)

	var names []string
	for _, c := range children {
		names = append(names, c.Basename())
	}
	assert.Equal(t, []string{"a.c", "b.c", "sub"}, names)
}

func TestCreateDirectoryAndExists(t *testing.T) {
	root, err := NewRoot(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)

	assert.False(t, root.Exists())
	require.NoError(t, root.CreateDirectory())
	assert.True(t, root.Exists())
	assert.True(t, root.IsDirectory())
}

func TestReadWriteRoundTrip(t *testing.T) {
	root, err := NewRoot(t.TempDir())
	require.NoError(t, err)

	f, err := root.Relative("gen.h")
	require.NoError(t, err)

	require.NoError(t, f.WriteAll([]byte("#pragma once\n")))
	data, err := f.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "#pragma once\n", string(data))
	assert.False(t, f.IsDirectory())
}

func TestWriteAllCreatesParent(t *testing.T) {
	root, err := NewRoot(filepath.Join(t.TempDir(), "deep"))
	require.NoError(t, err)

	f, err := root.Relative("x.o")
	require.NoError(t, err)
	require.NoError(t, f.WriteAll([]byte("obj")))
	assert.True(t, f.Exists())
}
