package core

import (
	"errors"
	"fmt"
)

var (
	ErrScanRoot      = errors.New("scan root unreadable")
	ErrUnreadableDir = errors.New("directory unreadable")
	ErrMissingStage  = errors.New("missing required shader stage")
	ErrInvalidName   = errors.New("program name is not a valid identifier")
	ErrDuplicateName = errors.New("duplicate program name")
	ErrStageRead     = errors.New("stage file unreadable")
	ErrHeaderWrite   = errors.New("header not written")
	ErrManifestWrite = errors.New("manifest not written")
)

// ProgramError codes. The strings are stable and appear in generation traces.
const (
	CodeMissingStage  = "MissingStage"
	CodeInvalidName   = "InvalidName"
	CodeDuplicateName = "DuplicateName"
	CodeStageRead     = "StageRead"
	CodeHeaderWrite   = "HeaderWrite"
)

// ScanError means the root of the walk could not be read. The run aborts.
type ScanError struct {
	Root  string
	Cause error
}

func (e *ScanError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("scan %s: %v", e.Root, e.Cause)
}

func (e *ScanError) Unwrap() []error { return nonNil(ErrScanRoot, e.Cause) }

// DirectoryError means one directory below the root could not be listed.
// The directory and everything under it is skipped.
type DirectoryError struct {
	Path  string
	Cause error
}

func (e *DirectoryError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("skipping directory %s: %v", e.Path, e.Cause)
}

func (e *DirectoryError) Unwrap() []error { return nonNil(ErrUnreadableDir, e.Cause) }

// ProgramError is a failure isolated to a single program. The program gets
// no header and no manifest line; other programs are unaffected.
type ProgramError struct {
	Program string
	Code    string
	Message string
	Cause   error
}

func (e *ProgramError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = e.kind().Error()
	}
	if e.Cause != nil {
		return fmt.Sprintf("program %s (%s): %s: %v", e.Program, e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("program %s (%s): %s", e.Program, e.Code, msg)
}

func (e *ProgramError) Unwrap() []error { return nonNil(e.kind(), e.Cause) }

func (e *ProgramError) kind() error {
	switch e.Code {
	case CodeMissingStage:
		return ErrMissingStage
	case CodeInvalidName:
		return ErrInvalidName
	case CodeDuplicateName:
		return ErrDuplicateName
	case CodeStageRead:
		return ErrStageRead
	case CodeHeaderWrite:
		return ErrHeaderWrite
	default:
		return nil
	}
}

// ManifestError means the umbrella header could not be written. The run is
// failed even if every program header was written.
type ManifestError struct {
	Path  string
	Cause error
}

func (e *ManifestError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("write manifest %s: %v", e.Path, e.Cause)
}

func (e *ManifestError) Unwrap() []error { return nonNil(ErrManifestWrite, e.Cause) }

func programErrorf(program, code string, cause error, format string, args ...any) *ProgramError {
	return &ProgramError{Program: program, Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// NewStageReadError reports a classified stage file that could not be read.
func NewStageReadError(program, file string, cause error) *ProgramError {
	return programErrorf(program, CodeStageRead, cause, "read %s", file)
}

// NewHeaderWriteError reports a header that could not be written.
func NewHeaderWriteError(program, path string, cause error) *ProgramError {
	return programErrorf(program, CodeHeaderWrite, cause, "write %s", path)
}

// NewDuplicateNameError reports a program whose name was already taken by
// an earlier directory in scan order.
func NewDuplicateNameError(program, rel, firstRel string) *ProgramError {
	return programErrorf(program, CodeDuplicateName, nil, "%s collides with %s", rel, firstRel)
}

func nonNil(errs ...error) []error {
	out := errs[:0:0]
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
