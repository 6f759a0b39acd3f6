package emit

import (
	"bytes"
	"fmt"
	"path/filepath"

	"shadergen/internal/core"
	"shadergen/internal/trace"
)

// DefaultManifestName is the umbrella header written at the scan root.
const DefaultManifestName = "Shaders.h"

// RenderManifest builds the umbrella header: a guard followed by one
// include line per ref, in the given order.
func RenderManifest(fileName string, refs []HeaderRef, g Guard) []byte {
	macro := guardMacro("", fileName)

	var buf bytes.Buffer
	writeGuardOpen(&buf, g, macro)
	for _, ref := range refs {
		fmt.Fprintf(&buf, "#include \"%s\"\n", ref.Include)
	}
	writeGuardClose(&buf, g, macro)
	return buf.Bytes()
}

// ManifestEmitter writes the umbrella header.
type ManifestEmitter struct {
	// Path is the OS path of the manifest.
	Path   string
	Guard  Guard
	Writer Writer
}

// NewManifestEmitter places the manifest named fileName inside root.
func NewManifestEmitter(root, fileName string) *ManifestEmitter {
	return &ManifestEmitter{
		Path:   filepath.Join(root, fileName),
		Guard:  GuardPragma,
		Writer: NewAtomicWriter(),
	}
}

// Emit writes the manifest listing refs and returns its digest.
// A failure is a *core.ManifestError.
func (m *ManifestEmitter) Emit(refs []HeaderRef) (string, error) {
	data := RenderManifest(filepath.Base(m.Path), refs, m.Guard)
	if err := m.Writer.WriteFile(m.Path, data); err != nil {
		return "", &core.ManifestError{Path: m.Path, Cause: err}
	}
	return trace.Digest(data), nil
}
