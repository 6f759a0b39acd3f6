package core

import (
	"bytes"
	"fmt"
)

// SourceNormalizer transforms a stage source before it is embedded.
type SourceNormalizer interface {
	Normalize(content []byte) []byte
}

// NewlineMode selects how line endings of stage sources are embedded.
type NewlineMode string

const (
	// NewlinesPreserve embeds sources byte-for-byte.
	NewlinesPreserve NewlineMode = "preserve"
	// NewlinesLF converts CRLF and lone CR to LF before embedding.
	NewlinesLF NewlineMode = "lf"
)

// ParseNewlineMode validates a configured newline mode. Empty means preserve.
func ParseNewlineMode(raw string) (NewlineMode, error) {
	switch NewlineMode(raw) {
	case "", NewlinesPreserve:
		return NewlinesPreserve, nil
	case NewlinesLF:
		return NewlinesLF, nil
	default:
		return "", fmt.Errorf("invalid newline mode %q (expected preserve|lf)", raw)
	}
}

// Normalizer returns the SourceNormalizer implementing the mode.
func (m NewlineMode) Normalizer() SourceNormalizer {
	if m == NewlinesLF {
		return NewStreamNormalizer()
	}
	return NewRawNormalizer()
}

// RawNormalizer performs no normalization, preserving raw bytes exactly.
type RawNormalizer struct{}

// NewRawNormalizer creates a normalizer that preserves content unchanged.
func NewRawNormalizer() *RawNormalizer {
	return &RawNormalizer{}
}

// Normalize returns content unchanged.
func (n *RawNormalizer) Normalize(content []byte) []byte {
	return content
}

// StreamNormalizer converts every line ending to LF, the way a text-mode
// read with universal newlines sees the file.
type StreamNormalizer struct{}

// NewStreamNormalizer creates a normalizer that standardizes line endings.
func NewStreamNormalizer() *StreamNormalizer {
	return &StreamNormalizer{}
}

// Normalize converts CRLF, then any remaining CR, to LF.
// The input slice is not modified.
func (n *StreamNormalizer) Normalize(content []byte) []byte {
	if bytes.IndexByte(content, '\r') < 0 {
		return content
	}
	result := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(result, []byte("\r"), []byte("\n"))
}
