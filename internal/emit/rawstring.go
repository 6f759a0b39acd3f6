package emit

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

const (
	// maxDelimiter is the longest d-char-sequence a C++ raw string accepts.
	maxDelimiter = 16

	delimiterBase = "glsl"
)

var (
	ErrNoDelimiter = errors.New("no raw string delimiter fits the source")
	ErrNoSymbol    = errors.New("symbol not declared in header")
	ErrMalformed   = errors.New("malformed declaration")
)

// rawDelimiter picks the d-char-sequence for embedding src.
//
// The empty delimiter is used unless src contains `)"`. Otherwise the first
// of "glsl", "glsl1", "glsl2", ... whose terminator is absent from src wins.
func rawDelimiter(src []byte) (string, error) {
	if !bytes.Contains(src, []byte(`)"`)) {
		return "", nil
	}
	for i := 0; ; i++ {
		d := delimiterBase
		if i > 0 {
			d += strconv.Itoa(i)
		}
		if len(d) > maxDelimiter {
			return "", ErrNoDelimiter
		}
		if !bytes.Contains(src, []byte(")"+d+`"`)) {
			return d, nil
		}
	}
}

// appendRawLiteral appends R"d(src)d" to buf.
func appendRawLiteral(buf *bytes.Buffer, src []byte) error {
	d, err := rawDelimiter(src)
	if err != nil {
		return err
	}
	buf.WriteString(`R"`)
	buf.WriteString(d)
	buf.WriteByte('(')
	buf.Write(src)
	buf.WriteByte(')')
	buf.WriteString(d)
	buf.WriteByte('"')
	return nil
}

const declPrefix = "const char* "

// ExtractStage parses a generated header and returns the embedded source of
// symbol. present is false when the symbol is declared NULL.
//
// Declarations are walked in order and literal bodies are skipped whole, so
// text inside an embedded source is never mistaken for a declaration.
func ExtractStage(header []byte, symbol string) (src []byte, present bool, err error) {
	rest := header
	for {
		i := bytes.Index(rest, []byte(declPrefix))
		if i < 0 {
			return nil, false, fmt.Errorf("%w: %s", ErrNoSymbol, symbol)
		}
		rest = rest[i+len(declPrefix):]

		eq := bytes.Index(rest, []byte(" = "))
		if eq < 0 {
			return nil, false, fmt.Errorf("%w: missing initializer", ErrMalformed)
		}
		name := string(rest[:eq])
		rest = rest[eq+3:]

		var body []byte
		var isNull bool
		body, isNull, rest, err = parseValue(rest)
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", name, err)
		}
		if name == symbol {
			if isNull {
				return nil, false, nil
			}
			return body, true, nil
		}
	}
}

// parseValue consumes `NULL;` or a raw literal followed by ';' and returns
// the remaining input.
func parseValue(in []byte) (body []byte, isNull bool, rest []byte, err error) {
	if bytes.HasPrefix(in, []byte("NULL;")) {
		return nil, true, in[len("NULL;"):], nil
	}
	if !bytes.HasPrefix(in, []byte(`R"`)) {
		return nil, false, nil, fmt.Errorf("%w: expected raw string or NULL", ErrMalformed)
	}
	in = in[2:]
	open := bytes.IndexByte(in, '(')
	if open < 0 || open > maxDelimiter {
		return nil, false, nil, fmt.Errorf("%w: bad raw string delimiter", ErrMalformed)
	}
	term := []byte(")" + string(in[:open]) + `"`)
	in = in[open+1:]
	end := bytes.Index(in, term)
	if end < 0 {
		return nil, false, nil, fmt.Errorf("%w: unterminated raw string", ErrMalformed)
	}
	body = in[:end]
	in = in[end+len(term):]
	if !bytes.HasPrefix(in, []byte(";")) {
		return nil, false, nil, fmt.Errorf("%w: missing ';'", ErrMalformed)
	}
	return body, false, in[1:], nil
}
