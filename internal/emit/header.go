package emit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/iancoleman/strcase"

	"shadergen/internal/core"
	"shadergen/internal/trace"
)

// DefaultHeaderName is the file written into every program directory.
const DefaultHeaderName = "generated.h"

// Guard selects the multiple-inclusion protection of generated files.
type Guard string

const (
	GuardPragma Guard = "pragma"
	GuardIfndef Guard = "ifndef"
)

// ParseGuard validates a configured guard style. Empty means pragma.
func ParseGuard(raw string) (Guard, error) {
	switch Guard(raw) {
	case "", GuardPragma:
		return GuardPragma, nil
	case GuardIfndef:
		return GuardIfndef, nil
	default:
		return "", fmt.Errorf("invalid guard %q (expected pragma|ifndef)", raw)
	}
}

// guardMacro derives an #ifndef macro from a prefix and a file name, e.g.
// ("SHADER_progA_", "generated.h") -> SHADER_progA_GENERATED_H.
// The result is always a C identifier.
func guardMacro(prefix, fileName string) string {
	b := []byte(prefix + strcase.ToScreamingSnake(fileName))
	for i, c := range b {
		if !(c == '_' || 'A' <= c && c <= 'Z' || 'a' <= c && c <= 'z' || '0' <= c && c <= '9') {
			b[i] = '_'
		}
	}
	if len(b) == 0 || '0' <= b[0] && b[0] <= '9' {
		return "_" + string(b)
	}
	return string(b)
}

func writeGuardOpen(buf *bytes.Buffer, g Guard, macro string) {
	if g == GuardIfndef {
		fmt.Fprintf(buf, "#ifndef %s\n#define %s\n", macro, macro)
		return
	}
	buf.WriteString("#pragma once\n")
}

func writeGuardClose(buf *bytes.Buffer, g Guard, macro string) {
	if g == GuardIfndef {
		fmt.Fprintf(buf, "#endif // %s\n", macro)
	}
}

// RenderHeader builds the header text for program name.
//
// sources is indexed by stage; a nil entry is an absent stage and is
// declared NULL. Declarations are always emitted for all five stages in
// stage order. Content is embedded verbatim.
func RenderHeader(name, fileName string, sources [core.NumStages]*core.StageSource, g Guard) ([]byte, error) {
	if err := core.ValidateName(name); err != nil {
		return nil, err
	}
	p := core.ShaderProgram{Name: name}
	macro := guardMacro("SHADER_"+name+"_", fileName)

	var buf bytes.Buffer
	writeGuardOpen(&buf, g, macro)
	buf.WriteByte('\n')
	fmt.Fprintf(&buf, "#define SHADER_SHADERNAME_%s \"%s\"\n", name, name)
	fmt.Fprintf(&buf, "#define LOAD_SHADER_%s \"%s\"", name, name)
	for _, s := range core.Stages {
		buf.WriteString(", ")
		buf.WriteString(p.SymbolName(s))
	}
	buf.WriteString("\n\n")

	for _, s := range core.Stages {
		buf.WriteString(declPrefix)
		buf.WriteString(p.SymbolName(s))
		buf.WriteString(" = ")
		if src := sources[s]; src != nil {
			if err := appendRawLiteral(&buf, src.Content); err != nil {
				return nil, fmt.Errorf("%s: %w", src.File, err)
			}
		} else {
			buf.WriteString("NULL")
		}
		buf.WriteString(";\n\n")
	}
	writeGuardClose(&buf, g, macro)
	return buf.Bytes(), nil
}

// HeaderRef is the outcome of emitting one program header.
type HeaderRef struct {
	Program string

	// Include is the header path relative to the scan root, slash-separated,
	// as written into the manifest.
	Include string

	// Path is the OS path of the header.
	Path string

	// Digest is the sha256 of the rendered bytes.
	Digest string
}

// HeaderEmitter reads the stage files of a valid program and writes its
// header.
type HeaderEmitter struct {
	FileName   string
	Guard      Guard
	Normalizer core.SourceNormalizer
	Writer     Writer
}

// NewHeaderEmitter returns an emitter with the default file name, pragma
// guard, verbatim sources and atomic writes.
func NewHeaderEmitter() *HeaderEmitter {
	return &HeaderEmitter{
		FileName:   DefaultHeaderName,
		Guard:      GuardPragma,
		Normalizer: core.NewRawNormalizer(),
		Writer:     NewAtomicWriter(),
	}
}

// Emit writes the header of p. p must have passed Validate.
//
// Failures are *core.ProgramError: StageRead when a classified file cannot
// be read, HeaderWrite when the output cannot be written, InvalidName when
// the program name is not an identifier. Nothing is left on disk on failure.
func (e *HeaderEmitter) Emit(ctx context.Context, p *core.ShaderProgram) (HeaderRef, error) {
	if err := ctx.Err(); err != nil {
		return HeaderRef{}, err
	}
	var sources [core.NumStages]*core.StageSource
	for _, s := range core.Stages {
		if !p.Has(s) {
			continue
		}
		content, err := os.ReadFile(filepath.Join(p.Dir, p.Files[s]))
		if err != nil {
			return HeaderRef{}, core.NewStageReadError(p.Name, p.Files[s], err)
		}
		if e.Normalizer != nil {
			content = e.Normalizer.Normalize(content)
		}
		sources[s] = &core.StageSource{Stage: s, File: p.Files[s], Content: content}
	}

	out := filepath.Join(p.Dir, e.FileName)
	data, err := RenderHeader(p.Name, e.FileName, sources, e.Guard)
	if err != nil {
		var pe *core.ProgramError
		if errors.As(err, &pe) {
			return HeaderRef{}, pe
		}
		return HeaderRef{}, core.NewHeaderWriteError(p.Name, out, err)
	}
	if err := e.Writer.WriteFile(out, data); err != nil {
		return HeaderRef{}, core.NewHeaderWriteError(p.Name, out, err)
	}
	return HeaderRef{
		Program: p.Name,
		Include: path.Join(p.Rel, e.FileName),
		Path:    out,
		Digest:  trace.Digest(data),
	}, nil
}
