package emit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shadergen/internal/core"
)

var manifestRefs = []HeaderRef{
	{Program: "progA", Include: "progA/generated.h"},
	{Program: "progB", Include: "group/progB/generated.h"},
}

func TestRenderManifest_Pragma(t *testing.T) {
	got := RenderManifest(DefaultManifestName, manifestRefs, GuardPragma)
	expected := "#pragma once\n" +
		"#include \"progA/generated.h\"\n" +
		"#include \"group/progB/generated.h\"\n"
	assert.Equal(t, expected, string(got))
}

func TestRenderManifest_Ifndef(t *testing.T) {
	got := RenderManifest(DefaultManifestName, manifestRefs[:1], GuardIfndef)
	expected := "#ifndef SHADERS_H\n#define SHADERS_H\n" +
		"#include \"progA/generated.h\"\n" +
		"#endif // SHADERS_H\n"
	assert.Equal(t, expected, string(got))
}

func TestRenderManifest_Empty(t *testing.T) {
	assert.Equal(t, "#pragma once\n", string(RenderManifest(DefaultManifestName, nil, GuardPragma)))
}

func TestManifestEmitter_PathInsideRoot(t *testing.T) {
	root := t.TempDir()
	for _, arg := range []string{root, root + string(filepath.Separator)} {
		m := NewManifestEmitter(arg, DefaultManifestName)
		assert.Equal(t, filepath.Join(root, "Shaders.h"), m.Path, arg)
	}
}

func TestManifestEmitter_Writes(t *testing.T) {
	root := t.TempDir()
	m := NewManifestEmitter(root, DefaultManifestName)

	digest, err := m.Emit(manifestRefs)
	require.NoError(t, err)
	assert.Len(t, digest, 64)

	data, err := os.ReadFile(filepath.Join(root, "Shaders.h"))
	require.NoError(t, err)
	assert.Equal(t, RenderManifest(DefaultManifestName, manifestRefs, GuardPragma), data)
}

func TestManifestEmitter_WriteFailureIsManifestError(t *testing.T) {
	m := NewManifestEmitter(filepath.Join(t.TempDir(), "missing"), DefaultManifestName)

	_, err := m.Emit(manifestRefs)
	require.Error(t, err)

	var me *core.ManifestError
	require.True(t, errors.As(err, &me))
	assert.True(t, errors.Is(err, core.ErrManifestWrite))
}
