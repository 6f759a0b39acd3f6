package core

import "fmt"

// Stage identifies one programmable pipeline phase.
//
// The numeric order of the constants is the fixed declaration order used in
// every generated header; do not reorder.
type Stage int

const (
	StageVertex Stage = iota
	StageTessControl
	StageTessEval
	StageGeometry
	StageFragment

	// NumStages is the number of stage roles a program can hold.
	NumStages = int(StageFragment) + 1
)

// Stages lists every stage in declaration order.
var Stages = [NumStages]Stage{
	StageVertex,
	StageTessControl,
	StageTessEval,
	StageGeometry,
	StageFragment,
}

var stageKeywords = [NumStages]string{
	StageVertex:      "vertex",
	StageTessControl: "tcs",
	StageTessEval:    "tes",
	StageGeometry:    "geometry",
	StageFragment:    "fragment",
}

var stageNames = [NumStages]string{
	StageVertex:      "vertex",
	StageTessControl: "tessellation-control",
	StageTessEval:    "tessellation-evaluation",
	StageGeometry:    "geometry",
	StageFragment:    "fragment",
}

// Keyword is the case-sensitive substring that assigns a file to this role.
// It is also the role part of the generated symbol name.
func (s Stage) Keyword() string {
	if !s.valid() {
		return ""
	}
	return stageKeywords[s]
}

// Required reports whether a program without this stage is invalid.
func (s Stage) Required() bool {
	return s == StageVertex || s == StageFragment
}

func (s Stage) String() string {
	if !s.valid() {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

func (s Stage) valid() bool { return s >= 0 && int(s) < NumStages }

// StageSource is the raw text of one stage file.
type StageSource struct {
	Stage Stage
	// File is the file name inside the program directory.
	File    string
	Content []byte
}
