package trace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// GenerationTrace is the canonical, deterministic record of one generator run.
//
// Invariants:
//   - Config identifies the settings that shape the output bytes.
//   - Events record logical outcomes, not runtime details: no timestamps,
//     no absolute paths, no error strings, no worker identity.
//
// Canonical representation:
//   - Events are sorted via Canonicalize() using a fully-specified ordering,
//     so parallel emission yields the same bytes as a sequential run.
//   - JSON serialization uses a custom marshaler to fix field order and omit
//     absent optional fields.
//
// The trace is observational only and never affects generation.
type GenerationTrace struct {
	Config string
	Events []Event
}

// EventKind is the stable discriminator for Event.
// The string values are part of the canonical bytes; do not rename.
type EventKind string

const (
	EventDirectorySkipped EventKind = "DirectorySkipped"
	EventStageAmbiguous   EventKind = "StageAmbiguous"
	EventProgramSkipped   EventKind = "ProgramSkipped"
	EventProgramGenerated EventKind = "ProgramGenerated"
	EventOutputStale      EventKind = "OutputStale"
	EventManifestWritten  EventKind = "ManifestWritten"
)

// Event is a single logical outcome.
//
// Optional fields are canonicalized:
//   - Empty slices are normalized to nil (omitted in JSON).
//   - Artifacts are sorted.
type Event struct {
	Kind EventKind

	// Program is the root-relative, slash-separated directory the event is
	// about. Empty only for manifest events.
	Program string

	// Reason is a stable code: a ProgramError code for skips, the stage
	// keyword for ambiguity.
	Reason string

	// Digest is the sha256 of a written or checked output.
	Digest string

	// Artifacts lists root-relative output paths or candidate file names.
	Artifacts []string
}

// Validate checks basic invariants and returns a descriptive error.
func (t *GenerationTrace) Validate() error {
	if t == nil {
		return errors.New("trace is nil")
	}
	if t.Config == "" {
		return errors.New("config is required")
	}
	for i := range t.Events {
		e := t.Events[i]
		if e.Kind == "" {
			return fmt.Errorf("events[%d].kind is required", i)
		}
		if isProgramEvent(e.Kind) && e.Program == "" {
			return fmt.Errorf("events[%d].program is required for kind %q", i, e.Kind)
		}
		for j, a := range e.Artifacts {
			if a == "" {
				return fmt.Errorf("events[%d].artifacts[%d] is empty", i, j)
			}
		}
	}
	return nil
}

func isProgramEvent(kind EventKind) bool {
	switch kind {
	case EventDirectorySkipped, EventStageAmbiguous, EventProgramSkipped, EventProgramGenerated:
		return true
	default:
		return false
	}
}

// Canonicalize normalizes and sorts the trace into its canonical form.
//
// Events are stably sorted by (program, kindOrder, reason, digest,
// artifactsLex). Manifest events have an empty program and sort first.
func (t *GenerationTrace) Canonicalize() {
	if t == nil {
		return
	}
	for i := range t.Events {
		if len(t.Events[i].Artifacts) == 0 {
			t.Events[i].Artifacts = nil
			continue
		}
		art := make([]string, len(t.Events[i].Artifacts))
		copy(art, t.Events[i].Artifacts)
		sort.Strings(art)
		t.Events[i].Artifacts = art
	}

	sort.SliceStable(t.Events, func(i, j int) bool {
		a := t.Events[i]
		b := t.Events[j]

		if a.Program != b.Program {
			return a.Program < b.Program
		}
		if kindOrder(a.Kind) != kindOrder(b.Kind) {
			return kindOrder(a.Kind) < kindOrder(b.Kind)
		}
		if a.Reason != b.Reason {
			return a.Reason < b.Reason
		}
		if a.Digest != b.Digest {
			return a.Digest < b.Digest
		}
		return compareStringSlices(a.Artifacts, b.Artifacts)
	})
}

func kindOrder(k EventKind) int {
	switch k {
	case EventDirectorySkipped:
		return 10
	case EventStageAmbiguous:
		return 20
	case EventProgramSkipped:
		return 30
	case EventProgramGenerated:
		return 40
	case EventOutputStale:
		return 50
	case EventManifestWritten:
		return 60
	default:
		return 1000
	}
}

func compareStringSlices(a, b []string) bool {
	la := len(a)
	lb := len(b)
	n := min(la, lb)
	for i := 0; i < n; i++ {
		if a[i] == b[i] {
			continue
		}
		return a[i] < b[i]
	}
	return la < lb
}

// CanonicalJSON returns the canonical JSON encoding of the trace.
// It canonicalizes a copy to avoid mutating the caller's slices.
func (t GenerationTrace) CanonicalJSON() ([]byte, error) {
	c := GenerationTrace{Config: t.Config}
	c.Events = make([]Event, len(t.Events))
	copy(c.Events, t.Events)
	c.Canonicalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(&c)
}

// Hash returns the sha256 hex of the canonical JSON bytes.
func (t GenerationTrace) Hash() (string, error) {
	b, err := t.CanonicalJSON()
	if err != nil {
		return "", err
	}
	return ComputeTraceHash(b), nil
}

// Count returns the number of events of the given kind.
func (t GenerationTrace) Count(kind EventKind) int {
	n := 0
	for _, e := range t.Events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// MarshalJSON fixes field order. It does not sort; see CanonicalJSON.
func (t GenerationTrace) MarshalJSON() ([]byte, error) {
	if t.Config == "" {
		return nil, errors.New("config is required")
	}
	var buf bytes.Buffer
	buf.WriteString(`{"config":`)
	cb, _ := json.Marshal(t.Config)
	buf.Write(cb)

	buf.WriteString(`,"events":[`)
	for i := range t.Events {
		if i > 0 {
			buf.WriteByte(',')
		}
		eb, err := json.Marshal(t.Events[i])
		if err != nil {
			return nil, err
		}
		buf.Write(eb)
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

// MarshalJSON fixes field order and omits empty optional fields.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Kind == "" {
		return nil, errors.New("kind is required")
	}
	var artifacts []string
	if len(e.Artifacts) > 0 {
		artifacts = make([]string, len(e.Artifacts))
		copy(artifacts, e.Artifacts)
		sort.Strings(artifacts)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')

	// kind (always first)
	buf.WriteString(`"kind":`)
	kb, _ := json.Marshal(string(e.Kind))
	buf.Write(kb)

	writeString := func(key, val string) {
		if val == "" {
			return
		}
		buf.WriteString(`,"` + key + `":`)
		vb, _ := json.Marshal(val)
		buf.Write(vb)
	}
	writeString("program", e.Program)
	writeString("reason", e.Reason)
	writeString("digest", e.Digest)

	if len(artifacts) > 0 {
		buf.WriteString(`,"artifacts":[`)
		for i := range artifacts {
			if i > 0 {
				buf.WriteByte(',')
			}
			ab, _ := json.Marshal(artifacts[i])
			buf.Write(ab)
		}
		buf.WriteByte(']')
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
