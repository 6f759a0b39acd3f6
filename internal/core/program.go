package core

import (
	"fmt"
	"strings"
)

// ShaderProgram is a directory classified into stage roles.
//
// Invariant: a program is processable iff Validate returns nil, i.e. both the
// vertex and the fragment role are held. An invalid program never produces a
// partial header.
type ShaderProgram struct {
	// Name is the directory base name, used verbatim in generated symbols.
	Name string

	// Dir is the OS path of the program directory. Stage files are read from
	// it and the header is written into it.
	Dir string

	// Rel is the slash-separated path of Dir relative to the scan root.
	Rel string

	// Files holds the file name playing each role, or "" when absent.
	Files [NumStages]string

	// Candidates holds every file that matched each role, in listing order.
	// More than one entry means the role was ambiguous and the last one won.
	Candidates [NumStages][]string

	// Hints holds a "did you mean" file name for missing required roles.
	Hints [NumStages]string
}

// Has reports whether the stage role is held by a file.
func (p *ShaderProgram) Has(s Stage) bool {
	return p.Files[s] != ""
}

// Missing returns the required stages without a file, in declaration order.
func (p *ShaderProgram) Missing() []Stage {
	var missing []Stage
	for _, s := range Stages {
		if s.Required() && !p.Has(s) {
			missing = append(missing, s)
		}
	}
	return missing
}

// Ambiguous returns the stages that more than one file matched.
func (p *ShaderProgram) Ambiguous() []Stage {
	var out []Stage
	for _, s := range Stages {
		if len(p.Candidates[s]) > 1 {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks the required-stage invariant.
func (p *ShaderProgram) Validate() error {
	missing := p.Missing()
	if len(missing) == 0 {
		return nil
	}
	names := make([]string, len(missing))
	for i, s := range missing {
		names[i] = s.String()
		if h := p.Hints[s]; h != "" {
			names[i] += fmt.Sprintf(" (did you mean %s?)", h)
		}
	}
	return programErrorf(p.Name, CodeMissingStage, nil, "missing required shader stage: %s", strings.Join(names, ", "))
}

// SymbolName is the generated constant for a stage: {name}_{keyword}Shader.
func (p *ShaderProgram) SymbolName(s Stage) string {
	return p.Name + "_" + s.Keyword() + "Shader"
}

// ValidateName rejects program names that cannot be spliced into C
// identifiers and macro names.
func ValidateName(name string) error {
	if isIdentifier(name) {
		return nil
	}
	return programErrorf(name, CodeInvalidName, nil, "directory name %q is not a valid identifier", name)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// ValidateIncludePath rejects a root-relative program path that cannot be
// written between the quotes of an #include line.
func ValidateIncludePath(name, rel string) error {
	for i := 0; i < len(rel); i++ {
		switch c := rel[i]; {
		case c == '"', c == '\\', c < 0x20, c == 0x7f:
			return programErrorf(name, CodeInvalidName, nil, "path %q cannot appear in an #include line", rel)
		}
	}
	return nil
}
